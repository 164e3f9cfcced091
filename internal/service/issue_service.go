package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/civicworks/civic-api/internal/auth"
	"github.com/civicworks/civic-api/internal/domain"
	"github.com/civicworks/civic-api/internal/logger"
	"github.com/civicworks/civic-api/internal/mapper"
	"github.com/civicworks/civic-api/internal/policy"
	"github.com/civicworks/civic-api/internal/repository"
	"github.com/civicworks/civic-api/internal/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// IssueService owns the issue lifecycle: reporting with auto-assignment,
// manual triage, stage changes and resolution.
type IssueService struct {
	issueRepo          *repository.IssueRepository
	areaRepo           *repository.AreaRepository
	deptRepo           *repository.DepartmentRepository
	assignmentRepo     *repository.AssignmentRepository
	enforceForwardOnly bool
	logger             *zap.Logger
	db                 *gorm.DB
}

func NewIssueService(
	issueRepo *repository.IssueRepository,
	areaRepo *repository.AreaRepository,
	deptRepo *repository.DepartmentRepository,
	assignmentRepo *repository.AssignmentRepository,
	enforceForwardOnly bool,
	logger *zap.Logger,
	db *gorm.DB,
) *IssueService {
	return &IssueService{
		issueRepo:          issueRepo,
		areaRepo:           areaRepo,
		deptRepo:           deptRepo,
		assignmentRepo:     assignmentRepo,
		enforceForwardOnly: enforceForwardOnly,
		logger:             logger,
		db:                 db,
	}
}

// Create files a new issue for the caller. The issue always starts in
// area_review; when its area names an active Area, the area and the first
// verified area_super_admin bound to it are assigned in the same transaction.
func (s *IssueService) Create(ctx context.Context, req *domain.CreateIssueRequest) (*domain.IssueDTO, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := authorize(policy.Request{Caller: caller, Resource: policy.ResourceIssue, Action: policy.ActionCreate}); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	description := strings.TrimSpace(req.Description)
	if title == "" {
		return nil, newValidationError("title", "title is required")
	}
	if description == "" {
		return nil, newValidationError("description", "description is required")
	}
	priority := req.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	if !priority.IsValid() {
		return nil, newValidationError("priority", "unknown priority")
	}

	issue := &domain.Issue{
		ReporterID:    caller.UserID,
		Title:         title,
		Description:   description,
		Category:      strings.TrimSpace(req.Category),
		Area:          strings.TrimSpace(req.Area),
		Address:       req.Address,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		Images:        req.Images,
		Status:        domain.IssueStatusPending,
		Priority:      priority,
		WorkflowStage: domain.StageAreaReview,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		assigned, err := resolveAutoAssignment(ctx, tx, issue.Area)
		if err != nil {
			return err
		}
		issue.AssignedAreaID = assigned.AreaID
		issue.CurrentAssigneeID = assigned.AssigneeID
		return repository.NewIssueRepository(tx).Create(ctx, issue)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create issue: %w", err)
	}

	telemetry.RecordTransition(ctx, string(domain.StageReported), string(domain.StageAreaReview), "create")
	log := logger.WithIssue(s.logger, issue.ID.String(), string(issue.WorkflowStage))
	log.Info("issue reported",
		zap.String("reporter_id", caller.UserID.String()),
		zap.Bool("area_matched", issue.AssignedAreaID != nil),
		zap.Bool("assignee_found", issue.CurrentAssigneeID != nil),
	)

	dto := mapper.ToIssueDTO(issue)
	return &dto, nil
}

func (s *IssueService) GetByID(ctx context.Context, id uuid.UUID) (*domain.IssueDTO, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := authorize(policy.Request{Caller: caller, Resource: policy.ResourceIssue, Action: policy.ActionRead}); err != nil {
		return nil, err
	}

	issue, err := s.issueRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrIssueNotFound)
	}
	dto := mapper.ToIssueDTO(issue)
	return &dto, nil
}

func (s *IssueService) List(ctx context.Context, page, pageSize int, filters *repository.IssueFilters, sortBy repository.IssueSortOption) (*domain.PaginatedResponse, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := authorize(policy.Request{Caller: caller, Resource: policy.ResourceIssue, Action: policy.ActionRead}); err != nil {
		return nil, err
	}

	page, pageSize = normalizePagination(page, pageSize)
	issues, total, err := s.issueRepo.List(ctx, page, pageSize, filters, sortBy)
	if err != nil {
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}

	dtos := make([]domain.IssueDTO, len(issues))
	for i := range issues {
		dtos[i] = mapper.ToIssueDTO(&issues[i])
	}
	return paginate(dtos, total, page, pageSize), nil
}

// AssignToArea hands an issue to an area. Any active admin_to_area row is
// marked reassigned and a new one is recorded. Moving an issue back from a
// later stage cancels the department and contractor hand-offs still active.
func (s *IssueService) AssignToArea(ctx context.Context, issueID uuid.UUID, req *domain.AssignAreaRequest) (*domain.IssueDTO, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := authorize(policy.Request{Caller: caller, Resource: policy.ResourceIssue, Action: policy.ActionAssignArea}); err != nil {
		return nil, err
	}

	var issue *domain.Issue
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		issueRepo := repository.NewIssueRepository(tx)
		var err error
		issue, err = issueRepo.GetByID(ctx, issueID)
		if err != nil {
			return notFound(err, ErrIssueNotFound)
		}
		if err := s.checkRetriage(issue, domain.StageAreaReview); err != nil {
			return err
		}

		area, err := repository.NewAreaRepository(tx).GetByID(ctx, req.AreaID)
		if err != nil {
			return notFound(err, ErrAreaNotFound)
		}
		if !area.IsActive {
			return newValidationError("areaId", "area is not active")
		}

		admin, err := repository.NewProfileRepository(tx).FirstVerifiedAreaAdmin(ctx, area.ID)
		if err != nil {
			return fmt.Errorf("failed to look up area admin: %w", err)
		}
		var assigneeID *uuid.UUID
		if admin != nil {
			assigneeID = &admin.ID
		}

		assignmentRepo := repository.NewAssignmentRepository(tx)
		if _, err := assignmentRepo.CloseActive(ctx, issue.ID,
			[]domain.AssignmentType{domain.AssignmentAdminToArea},
			domain.AssignmentStatusReassigned,
		); err != nil {
			return fmt.Errorf("failed to close earlier assignment: %w", err)
		}
		if _, err := assignmentRepo.CloseActive(ctx, issue.ID,
			[]domain.AssignmentType{domain.AssignmentAreaToDepartment, domain.AssignmentDepartmentToContractor},
			domain.AssignmentStatusCancelled,
		); err != nil {
			return fmt.Errorf("failed to cancel later assignments: %w", err)
		}
		if err := assignmentRepo.Create(ctx, &domain.IssueAssignment{
			IssueID:        issue.ID,
			AssignmentType: domain.AssignmentAdminToArea,
			AssignedBy:     caller.UserID,
			AssignedTo:     assigneeID,
			AreaID:         &area.ID,
			Status:         domain.AssignmentStatusActive,
			Notes:          req.Notes,
		}); err != nil {
			return fmt.Errorf("failed to record assignment: %w", err)
		}

		if _, err := issueRepo.UpdateFields(ctx, issue.ID, map[string]interface{}{
			"assigned_area_id":    area.ID,
			"current_assignee_id": assigneeID,
			"workflow_stage":      domain.StageAreaReview,
		}); err != nil {
			return fmt.Errorf("failed to update issue: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	telemetry.RecordTransition(ctx, string(issue.WorkflowStage), string(domain.StageAreaReview), "assign_area")
	logger.WithUser(s.logger, caller.UserID.String(), string(caller.UserType)).Info("issue assigned to area",
		zap.String("issue_id", issueID.String()),
		zap.String("area_id", req.AreaID.String()),
	)
	return s.reload(ctx, issueID)
}

// AssignToDepartment hands an issue from its area to a department. The
// area-level hand-off is completed, any earlier department hand-off is
// marked reassigned, an active contractor hand-off is cancelled, and the
// department's first verified admin becomes the assignee (none is fine).
func (s *IssueService) AssignToDepartment(ctx context.Context, issueID uuid.UUID, req *domain.AssignDepartmentRequest) (*domain.IssueDTO, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := authorize(policy.Request{Caller: caller, Resource: policy.ResourceIssue, Action: policy.ActionAssignDepartment}); err != nil {
		return nil, err
	}

	var issue *domain.Issue
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		issueRepo := repository.NewIssueRepository(tx)
		var err error
		issue, err = issueRepo.GetByID(ctx, issueID)
		if err != nil {
			return notFound(err, ErrIssueNotFound)
		}
		if err := s.checkRetriage(issue, domain.StageDepartmentAssigned); err != nil {
			return err
		}
		if caller.UserType == domain.UserTypeAreaSuperAdmin && !sameID(caller.AreaID, issue.AssignedAreaID) {
			return fmt.Errorf("%w: issue is not assigned to your area", ErrForbidden)
		}

		dept, err := repository.NewDepartmentRepository(tx).GetByID(ctx, req.DepartmentID)
		if err != nil {
			return notFound(err, ErrDepartmentNotFound)
		}
		if !dept.IsActive {
			return newValidationError("departmentId", "department is not active")
		}

		admin, err := repository.NewProfileRepository(tx).FirstVerifiedDepartmentAdmin(ctx, dept.ID)
		if err != nil {
			return fmt.Errorf("failed to look up department admin: %w", err)
		}
		var assigneeID *uuid.UUID
		if admin != nil {
			assigneeID = &admin.ID
		}

		assignmentRepo := repository.NewAssignmentRepository(tx)
		if _, err := assignmentRepo.CloseActive(ctx, issue.ID,
			[]domain.AssignmentType{domain.AssignmentAdminToArea},
			domain.AssignmentStatusCompleted,
		); err != nil {
			return fmt.Errorf("failed to complete area assignment: %w", err)
		}
		if _, err := assignmentRepo.CloseActive(ctx, issue.ID,
			[]domain.AssignmentType{domain.AssignmentAreaToDepartment},
			domain.AssignmentStatusReassigned,
		); err != nil {
			return fmt.Errorf("failed to close earlier assignment: %w", err)
		}
		if _, err := assignmentRepo.CloseActive(ctx, issue.ID,
			[]domain.AssignmentType{domain.AssignmentDepartmentToContractor},
			domain.AssignmentStatusCancelled,
		); err != nil {
			return fmt.Errorf("failed to cancel later assignments: %w", err)
		}
		if err := assignmentRepo.Create(ctx, &domain.IssueAssignment{
			IssueID:        issue.ID,
			AssignmentType: domain.AssignmentAreaToDepartment,
			AssignedBy:     caller.UserID,
			AssignedTo:     assigneeID,
			AreaID:         issue.AssignedAreaID,
			DepartmentID:   &dept.ID,
			Status:         domain.AssignmentStatusActive,
			Notes:          req.Notes,
		}); err != nil {
			return fmt.Errorf("failed to record assignment: %w", err)
		}

		if _, err := issueRepo.UpdateFields(ctx, issue.ID, map[string]interface{}{
			"assigned_department_id": dept.ID,
			"current_assignee_id":    assigneeID,
			"workflow_stage":         domain.StageDepartmentAssigned,
		}); err != nil {
			return fmt.Errorf("failed to update issue: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	telemetry.RecordTransition(ctx, string(issue.WorkflowStage), string(domain.StageDepartmentAssigned), "assign_department")
	logger.WithUser(s.logger, caller.UserID.String(), string(caller.UserType)).Info("issue assigned to department",
		zap.String("issue_id", issueID.String()),
		zap.String("department_id", req.DepartmentID.String()),
	)
	return s.reload(ctx, issueID)
}

// SetStage moves an issue to any stage. Backward moves are rejected only
// when forward-only enforcement is configured.
func (s *IssueService) SetStage(ctx context.Context, issueID uuid.UUID, req *domain.SetStageRequest) (*domain.IssueDTO, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := authorize(policy.Request{Caller: caller, Resource: policy.ResourceIssue, Action: policy.ActionTransition}); err != nil {
		return nil, err
	}
	if !req.Stage.IsValid() {
		return nil, newValidationError("stage", "unknown workflow stage")
	}

	issue, err := s.issueRepo.GetByID(ctx, issueID)
	if err != nil {
		return nil, notFound(err, ErrIssueNotFound)
	}
	if issue.WorkflowStage == req.Stage {
		dto := mapper.ToIssueDTO(issue)
		return &dto, nil
	}
	if s.enforceForwardOnly && req.Stage.Rank() < issue.WorkflowStage.Rank() {
		return nil, fmt.Errorf("%w: cannot move from %s back to %s", ErrInvalidTransition, issue.WorkflowStage, req.Stage)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if req.Stage == domain.StageResolved {
			return resolveIssue(ctx, tx, issue, time.Now())
		}
		fields := map[string]interface{}{"workflow_stage": req.Stage}
		if issue.WorkflowStage == domain.StageResolved {
			// reopening clears the resolution
			fields["status"] = domain.IssueStatusInProgress
			fields["resolved_at"] = nil
		}
		_, err := repository.NewIssueRepository(tx).UpdateFields(ctx, issue.ID, fields)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to change stage: %w", err)
	}

	telemetry.RecordTransition(ctx, string(issue.WorkflowStage), string(req.Stage), "manual")
	logger.WithIssue(s.logger, issueID.String(), string(req.Stage)).Info("issue stage changed",
		zap.String("from", string(issue.WorkflowStage)),
		zap.String("changed_by", caller.UserID.String()),
	)
	return s.reload(ctx, issueID)
}

// Resolve closes out an issue after department review
func (s *IssueService) Resolve(ctx context.Context, issueID uuid.UUID, req *domain.ResolveIssueRequest) (*domain.IssueDTO, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := authorize(policy.Request{Caller: caller, Resource: policy.ResourceIssue, Action: policy.ActionResolve}); err != nil {
		return nil, err
	}

	issue, err := s.issueRepo.GetByID(ctx, issueID)
	if err != nil {
		return nil, notFound(err, ErrIssueNotFound)
	}
	if issue.WorkflowStage == domain.StageResolved {
		return nil, fmt.Errorf("%w: issue is already resolved", ErrInvalidTransition)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return resolveIssue(ctx, tx, issue, time.Now())
	})
	if err != nil {
		return nil, err
	}

	telemetry.RecordTransition(ctx, string(issue.WorkflowStage), string(domain.StageResolved), "resolve")
	logger.WithIssue(s.logger, issueID.String(), string(domain.StageResolved)).Info("issue resolved",
		zap.String("resolved_by", caller.UserID.String()),
		zap.String("notes", req.Notes),
	)
	return s.reload(ctx, issueID)
}

// Assignments returns the issue's hand-off history, limited to the rows the
// caller may read.
func (s *IssueService) Assignments(ctx context.Context, issueID uuid.UUID) ([]domain.AssignmentDTO, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.issueRepo.GetByID(ctx, issueID); err != nil {
		return nil, notFound(err, ErrIssueNotFound)
	}

	rows, err := s.assignmentRepo.ListByIssue(ctx, issueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}

	dtos := make([]domain.AssignmentDTO, 0, len(rows))
	for i := range rows {
		if !canReadAssignment(caller, &rows[i]) {
			continue
		}
		dtos = append(dtos, mapper.ToAssignmentDTO(&rows[i]))
	}
	return dtos, nil
}

// RetryAutoAssign re-runs auto-assignment for issues still waiting in area
// review without an assignee. Issues routed to an area by hand, or already
// placed in a different area, are not touched. It runs as the system and
// returns how many issues received an assignee.
func (s *IssueService) RetryAutoAssign(ctx context.Context, limit int) (int, error) {
	issues, err := s.issueRepo.ListAwaitingTriage(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list issues awaiting triage: %w", err)
	}

	assigned := 0
	for i := range issues {
		issue := &issues[i]
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			match, err := resolveAutoAssignment(ctx, tx, issue.Area)
			if err != nil || match.AssigneeID == nil || match.AreaID == nil {
				return err
			}
			if issue.AssignedAreaID != nil && *issue.AssignedAreaID != *match.AreaID {
				return nil
			}
			rows, err := repository.NewIssueRepository(tx).ClaimTriage(ctx, issue.ID, *match.AreaID, *match.AssigneeID)
			if err != nil {
				return err
			}
			if rows > 0 {
				assigned++
			}
			return nil
		})
		if err != nil {
			s.logger.Warn("auto-assignment retry failed", zap.String("issue_id", issue.ID.String()), zap.Error(err))
		}
	}
	return assigned, nil
}

// checkRetriage rejects routing a resolved issue, and routing an issue back
// to an earlier stage when forward-only transitions are enforced.
func (s *IssueService) checkRetriage(issue *domain.Issue, next domain.WorkflowStage) error {
	if issue.WorkflowStage == domain.StageResolved {
		return fmt.Errorf("%w: issue is already resolved", ErrInvalidTransition)
	}
	if s.enforceForwardOnly && next.Rank() < issue.WorkflowStage.Rank() {
		return fmt.Errorf("%w: cannot move from %s back to %s", ErrInvalidTransition, issue.WorkflowStage, next)
	}
	return nil
}

func (s *IssueService) reload(ctx context.Context, id uuid.UUID) (*domain.IssueDTO, error) {
	issue, err := s.issueRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIssueNotFound
		}
		return nil, fmt.Errorf("failed to reload issue: %w", err)
	}
	dto := mapper.ToIssueDTO(issue)
	return &dto, nil
}

func canReadAssignment(caller *auth.UserContext, a *domain.IssueAssignment) bool {
	return policy.Allowed(policy.Request{
		Caller:     caller,
		Resource:   policy.ResourceAssignment,
		Action:     policy.ActionRead,
		OwnerID:    &a.AssignedBy,
		AssigneeID: a.AssignedTo,
	})
}

func sameID(a, b *uuid.UUID) bool {
	return a != nil && b != nil && *a == *b
}
