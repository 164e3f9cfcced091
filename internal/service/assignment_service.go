package service

import (
	"context"
	"fmt"

	"github.com/civicworks/civic-api/internal/domain"
	"github.com/civicworks/civic-api/internal/mapper"
	"github.com/civicworks/civic-api/internal/policy"
	"github.com/civicworks/civic-api/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AssignmentService exposes the hand-off history directly. Rows are
// append-only; the only change allowed afterwards is closing an active row.
type AssignmentService struct {
	assignmentRepo *repository.AssignmentRepository
	issueRepo      *repository.IssueRepository
	logger         *zap.Logger
	db             *gorm.DB
}

func NewAssignmentService(
	assignmentRepo *repository.AssignmentRepository,
	issueRepo *repository.IssueRepository,
	logger *zap.Logger,
	db *gorm.DB,
) *AssignmentService {
	return &AssignmentService{
		assignmentRepo: assignmentRepo,
		issueRepo:      issueRepo,
		logger:         logger,
		db:             db,
	}
}

// Create records a hand-off authored by the caller. Active rows of the same
// type on the issue are marked reassigned, and the target becomes the
// issue's current assignee.
func (s *AssignmentService) Create(ctx context.Context, req *domain.CreateAssignmentRequest) (*domain.AssignmentDTO, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := authorize(policy.Request{Caller: caller, Resource: policy.ResourceAssignment, Action: policy.ActionCreate, OwnerID: &caller.UserID}); err != nil {
		return nil, err
	}
	if !req.AssignmentType.IsValid() {
		return nil, newValidationError("assignmentType", "unknown assignment type")
	}

	assignment := &domain.IssueAssignment{
		IssueID:        req.IssueID,
		AssignmentType: req.AssignmentType,
		AssignedBy:     caller.UserID,
		AssignedTo:     req.AssignedTo,
		AreaID:         req.AreaID,
		DepartmentID:   req.DepartmentID,
		TenderID:       req.TenderID,
		Status:         domain.AssignmentStatusActive,
		Notes:          req.Notes,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		issueRepo := repository.NewIssueRepository(tx)
		if _, err := issueRepo.GetByID(ctx, req.IssueID); err != nil {
			return notFound(err, ErrIssueNotFound)
		}

		assignmentRepo := repository.NewAssignmentRepository(tx)
		if _, err := assignmentRepo.CloseActive(ctx, req.IssueID,
			[]domain.AssignmentType{req.AssignmentType},
			domain.AssignmentStatusReassigned,
		); err != nil {
			return fmt.Errorf("failed to close earlier assignment: %w", err)
		}
		if err := assignmentRepo.Create(ctx, assignment); err != nil {
			return fmt.Errorf("failed to create assignment: %w", err)
		}

		if req.AssignedTo != nil {
			if _, err := issueRepo.UpdateFields(ctx, req.IssueID, map[string]interface{}{
				"current_assignee_id": *req.AssignedTo,
			}); err != nil {
				return fmt.Errorf("failed to update assignee: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("assignment recorded",
		zap.String("assignment_id", assignment.ID.String()),
		zap.String("issue_id", req.IssueID.String()),
		zap.String("type", string(req.AssignmentType)),
		zap.String("assigned_by", caller.UserID.String()),
	)
	dto := mapper.ToAssignmentDTO(assignment)
	return &dto, nil
}

func (s *AssignmentService) GetByID(ctx context.Context, id uuid.UUID) (*domain.AssignmentDTO, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}

	assignment, err := s.assignmentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrAssignmentNotFound)
	}
	if err := authorize(policy.Request{
		Caller:     caller,
		Resource:   policy.ResourceAssignment,
		Action:     policy.ActionRead,
		OwnerID:    &assignment.AssignedBy,
		AssigneeID: assignment.AssignedTo,
	}); err != nil {
		return nil, err
	}

	dto := mapper.ToAssignmentDTO(assignment)
	return &dto, nil
}

// List returns every assignment to privileged callers and only the rows a
// caller authored or received otherwise.
func (s *AssignmentService) List(ctx context.Context, page, pageSize int, filters repository.AssignmentFilters) (*domain.PaginatedResponse, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if !caller.IsPrivileged() {
		filters.InvolvingUserID = &caller.UserID
	}

	page, pageSize = normalizePagination(page, pageSize)
	rows, total, err := s.assignmentRepo.List(ctx, page, pageSize, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}

	dtos := make([]domain.AssignmentDTO, len(rows))
	for i := range rows {
		dtos[i] = mapper.ToAssignmentDTO(&rows[i])
	}
	return paginate(dtos, total, page, pageSize), nil
}

// Close ends an active hand-off with a terminal status
func (s *AssignmentService) Close(ctx context.Context, id uuid.UUID, req *domain.CloseAssignmentRequest) (*domain.AssignmentDTO, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := authorize(policy.Request{Caller: caller, Resource: policy.ResourceAssignment, Action: policy.ActionUpdate}); err != nil {
		return nil, err
	}
	if !req.Status.IsValid() || req.Status == domain.AssignmentStatusActive {
		return nil, newValidationError("status", "must be completed, reassigned or cancelled")
	}

	assignment, err := s.assignmentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrAssignmentNotFound)
	}
	changed, err := s.assignmentRepo.Close(ctx, id, req.Status)
	if err != nil {
		return nil, fmt.Errorf("failed to close assignment: %w", err)
	}
	if !changed {
		return nil, fmt.Errorf("%w: assignment is already %s", ErrInvalidTransition, assignment.Status)
	}

	assignment.Status = req.Status
	dto := mapper.ToAssignmentDTO(assignment)
	return &dto, nil
}
