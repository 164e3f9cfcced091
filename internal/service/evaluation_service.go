package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/civicworks/civic-api/internal/domain"
	"github.com/civicworks/civic-api/internal/mapper"
	"github.com/civicworks/civic-api/internal/policy"
	"github.com/civicworks/civic-api/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// EvaluationService scores bids. Each evaluator scores a bid at most once.
type EvaluationService struct {
	evaluationRepo *repository.EvaluationRepository
	tenderRepo     *repository.TenderRepository
	bidRepo        *repository.BidRepository
	logger         *zap.Logger
}

func NewEvaluationService(
	evaluationRepo *repository.EvaluationRepository,
	tenderRepo *repository.TenderRepository,
	bidRepo *repository.BidRepository,
	logger *zap.Logger,
) *EvaluationService {
	return &EvaluationService{
		evaluationRepo: evaluationRepo,
		tenderRepo:     tenderRepo,
		bidRepo:        bidRepo,
		logger:         logger,
	}
}

func (s *EvaluationService) Create(ctx context.Context, tenderID uuid.UUID, req *domain.CreateEvaluationRequest) (*domain.EvaluationDTO, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := authorize(policy.Request{Caller: caller, Resource: policy.ResourceEvaluation, Action: policy.ActionCreate, OwnerID: &caller.UserID}); err != nil {
		return nil, err
	}
	if err := validateScores(req.TechnicalScore, req.FinancialScore, req.ExperienceScore, req.TimelineScore, req.Recommendation); err != nil {
		return nil, err
	}

	if _, err := s.tenderRepo.GetByID(ctx, tenderID); err != nil {
		return nil, notFound(err, ErrTenderNotFound)
	}
	bid, err := s.bidRepo.GetByID(ctx, req.BidID)
	if err != nil {
		return nil, notFound(err, ErrBidNotFound)
	}
	if bid.TenderID != tenderID {
		return nil, newValidationError("bidId", "bid does not belong to this tender")
	}

	eval := &domain.TenderEvaluation{
		TenderID:        tenderID,
		BidID:           bid.ID,
		EvaluatorID:     caller.UserID,
		TechnicalScore:  req.TechnicalScore,
		FinancialScore:  req.FinancialScore,
		ExperienceScore: req.ExperienceScore,
		TimelineScore:   req.TimelineScore,
		Recommendation:  req.Recommendation,
		Comments:        req.Comments,
	}
	eval.TotalScore = eval.ComputeTotal()

	if err := s.evaluationRepo.Create(ctx, eval); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: you have already evaluated this bid", ErrConflict)
		}
		return nil, fmt.Errorf("failed to create evaluation: %w", err)
	}

	s.logger.Info("bid evaluated",
		zap.String("evaluation_id", eval.ID.String()),
		zap.String("bid_id", bid.ID.String()),
		zap.Float64("total_score", eval.TotalScore),
	)
	dto := mapper.ToEvaluationDTO(eval)
	return &dto, nil
}

func (s *EvaluationService) GetByID(ctx context.Context, id uuid.UUID) (*domain.EvaluationDTO, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}

	eval, err := s.evaluationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrEvaluationNotFound)
	}
	if err := authorize(policy.Request{Caller: caller, Resource: policy.ResourceEvaluation, Action: policy.ActionRead, OwnerID: &eval.EvaluatorID}); err != nil {
		return nil, err
	}

	dto := mapper.ToEvaluationDTO(eval)
	return &dto, nil
}

// ListByTender returns all evaluations to tender managers and only their own
// to other evaluators.
func (s *EvaluationService) ListByTender(ctx context.Context, tenderID uuid.UUID) ([]domain.EvaluationDTO, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.tenderRepo.GetByID(ctx, tenderID); err != nil {
		return nil, notFound(err, ErrTenderNotFound)
	}

	var evaluatorID *uuid.UUID
	if !policy.Allowed(policy.Request{Caller: caller, Resource: policy.ResourceEvaluation, Action: policy.ActionRead}) {
		evaluatorID = &caller.UserID
	}

	rows, err := s.evaluationRepo.ListByTender(ctx, tenderID, evaluatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluations: %w", err)
	}

	dtos := make([]domain.EvaluationDTO, len(rows))
	for i := range rows {
		dtos[i] = mapper.ToEvaluationDTO(&rows[i])
	}
	return dtos, nil
}

func (s *EvaluationService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateEvaluationRequest) (*domain.EvaluationDTO, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}

	eval, err := s.evaluationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrEvaluationNotFound)
	}
	if err := authorize(policy.Request{Caller: caller, Resource: policy.ResourceEvaluation, Action: policy.ActionUpdate, OwnerID: &eval.EvaluatorID}); err != nil {
		return nil, err
	}
	if err := validateScores(req.TechnicalScore, req.FinancialScore, req.ExperienceScore, req.TimelineScore, req.Recommendation); err != nil {
		return nil, err
	}

	eval.TechnicalScore = req.TechnicalScore
	eval.FinancialScore = req.FinancialScore
	eval.ExperienceScore = req.ExperienceScore
	eval.TimelineScore = req.TimelineScore
	eval.Recommendation = req.Recommendation
	eval.Comments = req.Comments
	eval.TotalScore = eval.ComputeTotal()

	if err := s.evaluationRepo.Update(ctx, eval); err != nil {
		return nil, fmt.Errorf("failed to update evaluation: %w", err)
	}

	dto := mapper.ToEvaluationDTO(eval)
	return &dto, nil
}

func validateScores(technical, financial, experience, timeline float64, rec domain.Recommendation) error {
	fields := map[string]string{}
	for name, v := range map[string]float64{
		"technicalScore":  technical,
		"financialScore":  financial,
		"experienceScore": experience,
		"timelineScore":   timeline,
	} {
		if v < 0 || v > 100 {
			fields[name] = "must be between 0 and 100"
		}
	}
	if !rec.IsValid() {
		fields["recommendation"] = "must be accept, reject or request_clarification"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
