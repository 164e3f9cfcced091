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
	"github.com/civicworks/civic-api/internal/progress"
	"github.com/civicworks/civic-api/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProgressService stores contractor progress updates and supervisor reviews.
// It is the progress.Persister used by the submission flow.
type ProgressService struct {
	progressRepo *repository.ProgressRepository
	logger       *zap.Logger
	db           *gorm.DB
}

var _ progress.Persister = (*ProgressService)(nil)

func NewProgressService(progressRepo *repository.ProgressRepository, logger *zap.Logger, db *gorm.DB) *ProgressService {
	return &ProgressService{
		progressRepo: progressRepo,
		logger:       logger,
		db:           db,
	}
}

// CheckSubmission runs the access checks of SubmitProgress without writing,
// so the caller can be turned away before media is uploaded.
func (s *ProgressService) CheckSubmission(ctx context.Context, p *progress.Payload) error {
	caller, err := callerFrom(ctx)
	if err != nil {
		return err
	}
	if err := authorize(policy.Request{Caller: caller, Resource: policy.ResourceProgress, Action: policy.ActionCreate, OwnerID: &caller.UserID}); err != nil {
		return err
	}
	row := &domain.WorkProgress{IssueID: p.IssueID, TenderID: p.TenderID}
	return s.resolveTarget(ctx, s.db.WithContext(ctx), caller, row)
}

// SubmitProgress inserts one progress row for the caller and applies the
// stage change it implies on the issue, in one transaction.
func (s *ProgressService) SubmitProgress(ctx context.Context, p *progress.Payload) (*domain.WorkProgressDTO, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := authorize(policy.Request{Caller: caller, Resource: policy.ResourceProgress, Action: policy.ActionCreate, OwnerID: &caller.UserID}); err != nil {
		return nil, err
	}
	if err := validatePayload(p); err != nil {
		return nil, err
	}

	row := &domain.WorkProgress{
		IssueID:            p.IssueID,
		TenderID:           p.TenderID,
		ContractorID:       caller.UserID,
		Title:              strings.TrimSpace(p.Title),
		Description:        strings.TrimSpace(p.Description),
		ProgressPercentage: p.ProgressPercentage,
		Status:             p.Status,
		Images:             p.Images,
		Documents:          []string{},
		MaterialsUsed:      p.MaterialsUsed,
		LaborHours:         p.LaborHours,
		Expenses:           p.Expenses,
		Notes:              p.Notes,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.resolveTarget(ctx, tx, caller, row); err != nil {
			return err
		}
		if err := repository.NewProgressRepository(tx).Create(ctx, row); err != nil {
			return fmt.Errorf("failed to store progress update: %w", err)
		}
		return advanceForProgress(ctx, tx, s.logger, row)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("progress update stored",
		zap.String("progress_id", row.ID.String()),
		zap.String("contractor_id", caller.UserID.String()),
		zap.Int("percentage", row.ProgressPercentage),
		zap.String("status", string(row.Status)),
	)
	dto := mapper.ToWorkProgressDTO(row)
	return &dto, nil
}

// resolveTarget checks the referenced issue and tender exist, fills the
// issue from the tender when only the tender is given, and limits
// contractors to work they were awarded or assigned.
func (s *ProgressService) resolveTarget(ctx context.Context, tx *gorm.DB, caller *auth.UserContext, row *domain.WorkProgress) error {
	var tender *domain.Tender
	if row.TenderID != nil {
		t, err := repository.NewTenderRepository(tx).GetByID(ctx, *row.TenderID)
		if err != nil {
			return notFound(err, ErrTenderNotFound)
		}
		tender = t
		if row.IssueID == nil {
			row.IssueID = t.IssueID
		}
	}

	var issue *domain.Issue
	if row.IssueID != nil {
		i, err := repository.NewIssueRepository(tx).GetByID(ctx, *row.IssueID)
		if err != nil {
			return notFound(err, ErrIssueNotFound)
		}
		issue = i
	}

	if caller.IsPrivileged() {
		return nil
	}
	if tender != nil && sameID(tender.AwardedTo, &caller.UserID) {
		return nil
	}
	if issue != nil && sameID(issue.CurrentAssigneeID, &caller.UserID) {
		return nil
	}
	return fmt.Errorf("%w: progress can only be reported on work assigned to you", ErrForbidden)
}

func validatePayload(p *progress.Payload) error {
	fields := map[string]string{}
	if strings.TrimSpace(p.Title) == "" {
		fields["title"] = "title is required"
	}
	if strings.TrimSpace(p.Description) == "" {
		fields["description"] = "description is required"
	}
	if p.IssueID == nil && p.TenderID == nil {
		fields["issueId"] = "an issue or tender is required"
	}
	if p.ProgressPercentage < 0 || p.ProgressPercentage > 100 {
		fields["progressPercentage"] = "must be between 0 and 100"
	}
	if !p.Status.IsValid() {
		fields["status"] = "unknown progress status"
	}
	if p.LaborHours < 0 {
		fields["laborHours"] = "must not be negative"
	}
	if p.Expenses < 0 {
		fields["expenses"] = "must not be negative"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func (s *ProgressService) GetByID(ctx context.Context, id uuid.UUID) (*domain.WorkProgressDTO, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}

	row, err := s.progressRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrProgressNotFound)
	}
	if err := authorize(policy.Request{Caller: caller, Resource: policy.ResourceProgress, Action: policy.ActionRead, OwnerID: &row.ContractorID}); err != nil {
		return nil, err
	}

	dto := mapper.ToWorkProgressDTO(row)
	return &dto, nil
}

// List returns progress rows; contractors only see their own
func (s *ProgressService) List(ctx context.Context, page, pageSize int, filters repository.ProgressFilters) (*domain.PaginatedResponse, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if !caller.IsPrivileged() {
		filters.ContractorID = &caller.UserID
	}

	page, pageSize = normalizePagination(page, pageSize)
	rows, total, err := s.progressRepo.List(ctx, page, pageSize, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress updates: %w", err)
	}

	dtos := make([]domain.WorkProgressDTO, len(rows))
	for i := range rows {
		dtos[i] = mapper.ToWorkProgressDTO(&rows[i])
	}
	return paginate(dtos, total, page, pageSize), nil
}

// Review records the supervisor's notes and rating on a progress row
func (s *ProgressService) Review(ctx context.Context, id uuid.UUID, req *domain.ReviewProgressRequest) (*domain.WorkProgressDTO, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := authorize(policy.Request{Caller: caller, Resource: policy.ResourceProgress, Action: policy.ActionReview}); err != nil {
		return nil, err
	}
	if req.SupervisorRating != nil && (*req.SupervisorRating < 1 || *req.SupervisorRating > 5) {
		return nil, newValidationError("supervisorRating", "must be between 1 and 5")
	}

	rows, err := s.progressRepo.Annotate(ctx, id, req.SupervisorNotes, req.SupervisorRating, caller.UserID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to review progress update: %w", err)
	}
	if rows == 0 {
		return nil, ErrProgressNotFound
	}

	row, err := s.progressRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrProgressNotFound)
	}
	dto := mapper.ToWorkProgressDTO(row)
	return &dto, nil
}
