package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/civicworks/civic-api/internal/auth"
	"github.com/civicworks/civic-api/internal/domain"
	"github.com/civicworks/civic-api/internal/mapper"
	"github.com/civicworks/civic-api/internal/policy"
	"github.com/civicworks/civic-api/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Tender status transition rules. Awarded and cancelled are terminal; a
// repeated award is handled as a no-op before this table is consulted.
var validTenderTransitions = map[domain.TenderStatus][]domain.TenderStatus{
	domain.TenderStatusDraft:     {domain.TenderStatusOpen, domain.TenderStatusCancelled},
	domain.TenderStatusOpen:      {domain.TenderStatusClosed, domain.TenderStatusAwarded, domain.TenderStatusCancelled},
	domain.TenderStatusClosed:    {domain.TenderStatusOpen, domain.TenderStatusAwarded, domain.TenderStatusCancelled},
	domain.TenderStatusAwarded:   {},
	domain.TenderStatusCancelled: {},
}

type TenderService struct {
	tenderRepo *repository.TenderRepository
	issueRepo  *repository.IssueRepository
	deptRepo   *repository.DepartmentRepository
	bidRepo    *repository.BidRepository
	logger     *zap.Logger
	db         *gorm.DB
}

func NewTenderService(
	tenderRepo *repository.TenderRepository,
	issueRepo *repository.IssueRepository,
	deptRepo *repository.DepartmentRepository,
	bidRepo *repository.BidRepository,
	logger *zap.Logger,
	db *gorm.DB,
) *TenderService {
	return &TenderService{
		tenderRepo: tenderRepo,
		issueRepo:  issueRepo,
		deptRepo:   deptRepo,
		bidRepo:    bidRepo,
		logger:     logger,
		db:         db,
	}
}

func (s *TenderService) Create(ctx context.Context, req *domain.CreateTenderRequest) (*domain.TenderDTO, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := authorize(policy.Request{Caller: caller, Resource: policy.ResourceTender, Action: policy.ActionCreate}); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, newValidationError("title", "title is required")
	}
	if req.IssueID != nil {
		if _, err := s.issueRepo.GetByID(ctx, *req.IssueID); err != nil {
			return nil, notFound(err, ErrIssueNotFound)
		}
	}
	departmentID := req.DepartmentID
	if departmentID == nil && caller.UserType == domain.UserTypeDepartmentAdmin {
		departmentID = caller.DepartmentID
	}
	if departmentID != nil {
		if _, err := s.deptRepo.GetByID(ctx, *departmentID); err != nil {
			return nil, notFound(err, ErrDepartmentNotFound)
		}
	}

	var deadline *time.Time
	if req.Deadline != nil && *req.Deadline != "" {
		t, err := mapper.ParseTime(*req.Deadline)
		if err != nil {
			return nil, newValidationError("deadline", "must be an ISO 8601 date or timestamp")
		}
		deadline = &t
	}

	status := domain.TenderStatusDraft
	if req.Open {
		status = domain.TenderStatusOpen
	}

	tender := &domain.Tender{
		IssueID:      req.IssueID,
		DepartmentID: departmentID,
		Title:        title,
		Description:  req.Description,
		Budget:       req.Budget,
		Deadline:     deadline,
		Status:       status,
		CreatedBy:    caller.UserID,
	}
	if err := s.tenderRepo.Create(ctx, tender); err != nil {
		return nil, fmt.Errorf("failed to create tender: %w", err)
	}

	s.logger.Info("tender created",
		zap.String("tender_id", tender.ID.String()),
		zap.String("status", string(tender.Status)),
		zap.String("created_by", caller.UserID.String()),
	)
	dto := mapper.ToTenderDTO(tender)
	return &dto, nil
}

func (s *TenderService) GetByID(ctx context.Context, id uuid.UUID) (*domain.TenderDTO, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := authorize(policy.Request{Caller: caller, Resource: policy.ResourceTender, Action: policy.ActionRead}); err != nil {
		return nil, err
	}

	tender, err := s.tenderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrTenderNotFound)
	}
	dto := mapper.ToTenderDTO(tender)
	return &dto, nil
}

func (s *TenderService) List(ctx context.Context, page, pageSize int, filters repository.TenderFilters) (*domain.PaginatedResponse, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := authorize(policy.Request{Caller: caller, Resource: policy.ResourceTender, Action: policy.ActionRead}); err != nil {
		return nil, err
	}

	page, pageSize = normalizePagination(page, pageSize)
	tenders, total, err := s.tenderRepo.List(ctx, page, pageSize, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenders: %w", err)
	}

	dtos := make([]domain.TenderDTO, len(tenders))
	for i := range tenders {
		dtos[i] = mapper.ToTenderDTO(&tenders[i])
	}
	return paginate(dtos, total, page, pageSize), nil
}

// UpdateStatus changes a tender's status. Moving to awarded requires an
// awardee and propagates the award to the source issue; saving an already
// awarded tender as awarded again changes nothing.
func (s *TenderService) UpdateStatus(ctx context.Context, id uuid.UUID, req *domain.UpdateTenderStatusRequest) (*domain.TenderDTO, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	action := policy.ActionUpdate
	if req.Status == domain.TenderStatusAwarded {
		action = policy.ActionAward
	}
	if err := authorize(policy.Request{Caller: caller, Resource: policy.ResourceTender, Action: action}); err != nil {
		return nil, err
	}
	if !req.Status.IsValid() {
		return nil, newValidationError("status", "unknown tender status")
	}

	tender, err := s.tenderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrTenderNotFound)
	}
	if tender.Status == req.Status {
		dto := mapper.ToTenderDTO(tender)
		return &dto, nil
	}
	if !canTransitionTender(tender.Status, req.Status) {
		return nil, fmt.Errorf("%w: tender cannot move from %s to %s", ErrInvalidTransition, tender.Status, req.Status)
	}

	if req.Status == domain.TenderStatusAwarded {
		if req.AwardedTo == nil {
			return nil, newValidationError("awardedTo", "an awardee is required to award a tender")
		}
		var bidID *uuid.UUID
		bids, err := s.bidRepo.ListByTender(ctx, id, req.AwardedTo)
		if err != nil {
			return nil, fmt.Errorf("failed to look up awardee bid: %w", err)
		}
		if len(bids) > 0 {
			bidID = &bids[0].ID
		}
		return s.award(ctx, caller, tender, *req.AwardedTo, bidID)
	}

	if _, err := s.tenderRepo.UpdateStatus(ctx, id, req.Status); err != nil {
		return nil, fmt.Errorf("failed to update tender status: %w", err)
	}
	s.logger.Info("tender status changed",
		zap.String("tender_id", id.String()),
		zap.String("from", string(tender.Status)),
		zap.String("to", string(req.Status)),
	)
	return s.reload(ctx, id)
}

// Award selects the winning bid of a tender
func (s *TenderService) Award(ctx context.Context, id uuid.UUID, req *domain.AwardTenderRequest) (*domain.TenderDTO, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := authorize(policy.Request{Caller: caller, Resource: policy.ResourceTender, Action: policy.ActionAward}); err != nil {
		return nil, err
	}

	tender, err := s.tenderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrTenderNotFound)
	}
	if tender.Status == domain.TenderStatusAwarded {
		dto := mapper.ToTenderDTO(tender)
		return &dto, nil
	}
	if !canTransitionTender(tender.Status, domain.TenderStatusAwarded) {
		return nil, fmt.Errorf("%w: tender in status %s cannot be awarded", ErrInvalidTransition, tender.Status)
	}

	bid, err := s.bidRepo.GetByID(ctx, req.BidID)
	if err != nil {
		return nil, notFound(err, ErrBidNotFound)
	}
	if bid.TenderID != tender.ID {
		return nil, newValidationError("bidId", "bid does not belong to this tender")
	}
	if bid.Status != domain.BidStatusSubmitted {
		return nil, newValidationError("bidId", "only submitted bids can be awarded")
	}

	return s.award(ctx, caller, tender, bid.ContractorID, &bid.ID)
}

// award performs the guarded transition to awarded and its derived updates
// in one transaction
func (s *TenderService) award(ctx context.Context, caller *auth.UserContext, tender *domain.Tender, awardedTo uuid.UUID, bidID *uuid.UUID) (*domain.TenderDTO, error) {
	now := time.Now()
	transitioned := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tenderRepo := repository.NewTenderRepository(tx)
		rows, err := tenderRepo.MarkAwarded(ctx, tender.ID, awardedTo, bidID, now)
		if err != nil {
			return fmt.Errorf("failed to award tender: %w", err)
		}
		if rows == 0 {
			// another request awarded it first
			return nil
		}
		transitioned = true

		if bidID != nil {
			if err := repository.NewBidRepository(tx).SettleAward(ctx, tender.ID, *bidID); err != nil {
				return fmt.Errorf("failed to settle bids: %w", err)
			}
		}

		tender.Status = domain.TenderStatusAwarded
		tender.AwardedTo = &awardedTo
		tender.AwardedBidID = bidID
		tender.AwardedAt = &now
		return propagateAward(ctx, tx, s.logger, tender, caller.UserID)
	})
	if err != nil {
		return nil, err
	}

	if transitioned {
		s.logger.Info("tender awarded",
			zap.String("tender_id", tender.ID.String()),
			zap.String("awarded_to", awardedTo.String()),
			zap.String("awarded_by", caller.UserID.String()),
		)
	}
	return s.reload(ctx, tender.ID)
}

func (s *TenderService) reload(ctx context.Context, id uuid.UUID) (*domain.TenderDTO, error) {
	tender, err := s.tenderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrTenderNotFound)
	}
	dto := mapper.ToTenderDTO(tender)
	return &dto, nil
}

func canTransitionTender(from, to domain.TenderStatus) bool {
	for _, allowed := range validTenderTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
