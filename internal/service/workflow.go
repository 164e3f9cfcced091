package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/civicworks/civic-api/internal/domain"
	"github.com/civicworks/civic-api/internal/repository"
	"github.com/civicworks/civic-api/internal/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// The functions in this file hold the derived workflow updates that follow a
// primary write. Each takes the open transaction so the primary write and its
// derived updates commit or roll back together. A derived update that finds
// nothing to change (no matching admin, source issue gone) is a no-op, never
// an error for the primary write.

// autoAssignment is the outcome of resolving an issue's area by name
type autoAssignment struct {
	AreaID     *uuid.UUID
	AssigneeID *uuid.UUID
}

// resolveAutoAssignment finds the first active area named areaName and the
// first verified area_super_admin bound to it. Either may be nil.
func resolveAutoAssignment(ctx context.Context, tx *gorm.DB, areaName string) (autoAssignment, error) {
	var out autoAssignment
	if areaName == "" {
		return out, nil
	}

	area, err := repository.NewAreaRepository(tx).FirstActiveByName(ctx, areaName)
	if err != nil {
		return out, fmt.Errorf("failed to look up area: %w", err)
	}
	if area == nil {
		return out, nil
	}
	out.AreaID = &area.ID

	admin, err := repository.NewProfileRepository(tx).FirstVerifiedAreaAdmin(ctx, area.ID)
	if err != nil {
		return out, fmt.Errorf("failed to look up area admin: %w", err)
	}
	if admin != nil {
		out.AssigneeID = &admin.ID
	}
	return out, nil
}

// propagateAward moves the tender's source issue to contractor_assigned and
// records the department_to_contractor hand-off. Callers invoke it only when
// the tender's status changes to awarded.
func propagateAward(ctx context.Context, tx *gorm.DB, logger *zap.Logger, tender *domain.Tender, actorID uuid.UUID) error {
	if tender.IssueID == nil {
		logger.Debug("awarded tender has no source issue", zap.String("tender_id", tender.ID.String()))
		return nil
	}

	issueRepo := repository.NewIssueRepository(tx)
	issue, err := issueRepo.GetByID(ctx, *tender.IssueID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("source issue of awarded tender no longer exists",
				zap.String("tender_id", tender.ID.String()),
				zap.String("issue_id", tender.IssueID.String()),
			)
			return nil
		}
		return fmt.Errorf("failed to load source issue: %w", err)
	}

	rows, err := issueRepo.UpdateFields(ctx, issue.ID, map[string]interface{}{
		"workflow_stage":      domain.StageContractorAssigned,
		"status":              domain.IssueStatusInProgress,
		"current_assignee_id": tender.AwardedTo,
	})
	if err != nil {
		return fmt.Errorf("failed to update source issue: %w", err)
	}
	if rows == 0 {
		return nil
	}

	assignmentRepo := repository.NewAssignmentRepository(tx)
	if _, err := assignmentRepo.CloseActive(ctx, issue.ID,
		[]domain.AssignmentType{domain.AssignmentAdminToArea, domain.AssignmentAreaToDepartment},
		domain.AssignmentStatusCompleted,
	); err != nil {
		return fmt.Errorf("failed to close earlier assignments: %w", err)
	}
	if _, err := assignmentRepo.CloseActive(ctx, issue.ID,
		[]domain.AssignmentType{domain.AssignmentDepartmentToContractor},
		domain.AssignmentStatusReassigned,
	); err != nil {
		return fmt.Errorf("failed to close earlier contractor assignment: %w", err)
	}

	departmentID := tender.DepartmentID
	if departmentID == nil {
		departmentID = issue.AssignedDepartmentID
	}
	assignment := &domain.IssueAssignment{
		IssueID:        issue.ID,
		AssignmentType: domain.AssignmentDepartmentToContractor,
		AssignedBy:     actorID,
		AssignedTo:     tender.AwardedTo,
		AreaID:         issue.AssignedAreaID,
		DepartmentID:   departmentID,
		TenderID:       &tender.ID,
		Status:         domain.AssignmentStatusActive,
		Notes:          "Tender awarded: " + tender.Title,
	}
	if err := assignmentRepo.Create(ctx, assignment); err != nil {
		return fmt.Errorf("failed to record contractor assignment: %w", err)
	}

	telemetry.RecordTransition(ctx, string(issue.WorkflowStage), string(domain.StageContractorAssigned), "tender_award")
	logger.Info("tender award propagated to issue",
		zap.String("tender_id", tender.ID.String()),
		zap.String("issue_id", issue.ID.String()),
		zap.String("assignment_id", assignment.ID.String()),
	)
	return nil
}

// advanceForProgress moves an issue forward when contractor progress arrives:
// the first update on a contractor_assigned issue starts work, and a completed
// (or 100%) update hands the issue back to the department for review.
func advanceForProgress(ctx context.Context, tx *gorm.DB, logger *zap.Logger, p *domain.WorkProgress) error {
	if p.IssueID == nil {
		return nil
	}

	issueRepo := repository.NewIssueRepository(tx)
	issue, err := issueRepo.GetByID(ctx, *p.IssueID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("failed to load issue: %w", err)
	}

	var next domain.WorkflowStage
	switch {
	case p.Status == domain.ProgressCompleted || p.ProgressPercentage >= 100:
		if issue.WorkflowStage.Rank() < domain.StageDepartmentReview.Rank() {
			next = domain.StageDepartmentReview
		}
	case issue.WorkflowStage == domain.StageContractorAssigned:
		next = domain.StageInProgress
	}
	if next == "" {
		return nil
	}

	fields := map[string]interface{}{"workflow_stage": next}
	if issue.Status == domain.IssueStatusPending {
		fields["status"] = domain.IssueStatusInProgress
	}
	if _, err := issueRepo.UpdateFields(ctx, issue.ID, fields); err != nil {
		return fmt.Errorf("failed to advance issue stage: %w", err)
	}

	telemetry.RecordTransition(ctx, string(issue.WorkflowStage), string(next), "progress")
	logger.Info("issue advanced by progress update",
		zap.String("issue_id", issue.ID.String()),
		zap.String("from", string(issue.WorkflowStage)),
		zap.String("to", string(next)),
		zap.String("progress_id", p.ID.String()),
	)
	return nil
}

// resolveIssue marks the issue resolved and completes its open hand-offs
func resolveIssue(ctx context.Context, tx *gorm.DB, issue *domain.Issue, at time.Time) error {
	if _, err := repository.NewIssueRepository(tx).UpdateFields(ctx, issue.ID, map[string]interface{}{
		"workflow_stage": domain.StageResolved,
		"status":         domain.IssueStatusResolved,
		"resolved_at":    at,
	}); err != nil {
		return fmt.Errorf("failed to resolve issue: %w", err)
	}

	if _, err := repository.NewAssignmentRepository(tx).CloseActive(ctx, issue.ID, []domain.AssignmentType{
		domain.AssignmentAdminToArea,
		domain.AssignmentAreaToDepartment,
		domain.AssignmentDepartmentToContractor,
	}, domain.AssignmentStatusCompleted); err != nil {
		return fmt.Errorf("failed to complete assignments: %w", err)
	}
	return nil
}
