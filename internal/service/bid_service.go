package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/civicworks/civic-api/internal/domain"
	"github.com/civicworks/civic-api/internal/mapper"
	"github.com/civicworks/civic-api/internal/policy"
	"github.com/civicworks/civic-api/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type BidService struct {
	bidRepo    *repository.BidRepository
	tenderRepo *repository.TenderRepository
	logger     *zap.Logger
}

func NewBidService(bidRepo *repository.BidRepository, tenderRepo *repository.TenderRepository, logger *zap.Logger) *BidService {
	return &BidService{
		bidRepo:    bidRepo,
		tenderRepo: tenderRepo,
		logger:     logger,
	}
}

// Create submits the calling contractor's bid on an open tender. A
// contractor may bid once per tender.
func (s *BidService) Create(ctx context.Context, tenderID uuid.UUID, req *domain.CreateBidRequest) (*domain.BidDTO, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := authorize(policy.Request{Caller: caller, Resource: policy.ResourceBid, Action: policy.ActionCreate, OwnerID: &caller.UserID}); err != nil {
		return nil, err
	}
	if req.Amount <= 0 {
		return nil, newValidationError("amount", "must be greater than zero")
	}

	tender, err := s.tenderRepo.GetByID(ctx, tenderID)
	if err != nil {
		return nil, notFound(err, ErrTenderNotFound)
	}
	if tender.Status != domain.TenderStatusOpen {
		return nil, fmt.Errorf("%w: tender is not open for bids", ErrInvalidTransition)
	}
	if tender.Deadline != nil && time.Now().After(*tender.Deadline) {
		return nil, fmt.Errorf("%w: tender deadline has passed", ErrInvalidTransition)
	}

	bid := &domain.Bid{
		TenderID:      tenderID,
		ContractorID:  caller.UserID,
		Amount:        req.Amount,
		Proposal:      req.Proposal,
		EstimatedDays: req.EstimatedDays,
		Status:        domain.BidStatusSubmitted,
	}
	if err := s.bidRepo.Create(ctx, bid); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: you have already bid on this tender", ErrConflict)
		}
		return nil, fmt.Errorf("failed to submit bid: %w", err)
	}

	s.logger.Info("bid submitted",
		zap.String("bid_id", bid.ID.String()),
		zap.String("tender_id", tenderID.String()),
		zap.String("contractor_id", caller.UserID.String()),
	)
	dto := mapper.ToBidDTO(bid)
	return &dto, nil
}

// ListByTender returns every bid to tender managers and only their own bid
// to contractors.
func (s *BidService) ListByTender(ctx context.Context, tenderID uuid.UUID) ([]domain.BidDTO, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.tenderRepo.GetByID(ctx, tenderID); err != nil {
		return nil, notFound(err, ErrTenderNotFound)
	}

	var contractorID *uuid.UUID
	if !policy.Allowed(policy.Request{Caller: caller, Resource: policy.ResourceBid, Action: policy.ActionRead}) {
		if !caller.IsContractor() {
			return nil, fmt.Errorf("%w: bids are visible to tender managers and bidders", ErrForbidden)
		}
		contractorID = &caller.UserID
	}

	bids, err := s.bidRepo.ListByTender(ctx, tenderID, contractorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bids: %w", err)
	}

	dtos := make([]domain.BidDTO, len(bids))
	for i := range bids {
		dtos[i] = mapper.ToBidDTO(&bids[i])
	}
	return dtos, nil
}

func (s *BidService) GetByID(ctx context.Context, id uuid.UUID) (*domain.BidDTO, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}

	bid, err := s.bidRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrBidNotFound)
	}
	if err := authorize(policy.Request{Caller: caller, Resource: policy.ResourceBid, Action: policy.ActionRead, OwnerID: &bid.ContractorID}); err != nil {
		return nil, err
	}

	dto := mapper.ToBidDTO(bid)
	return &dto, nil
}
