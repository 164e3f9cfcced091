package repository

import (
	"context"

	"github.com/civicworks/civic-api/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AssignmentFilters struct {
	IssueID        *uuid.UUID
	AssignmentType *domain.AssignmentType
	Status         *domain.AssignmentStatus
	// InvolvingUserID restricts to rows the user authored or received
	InvolvingUserID *uuid.UUID
}

// AssignmentRepository stores the append-only hand-off history of issues
type AssignmentRepository struct {
	db *gorm.DB
}

func NewAssignmentRepository(db *gorm.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

func (r *AssignmentRepository) Create(ctx context.Context, a *domain.IssueAssignment) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(a).Error
}

func (r *AssignmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.IssueAssignment, error) {
	var a domain.IssueAssignment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// ListByIssue returns the hand-off history of an issue in insertion order
func (r *AssignmentRepository) ListByIssue(ctx context.Context, issueID uuid.UUID) ([]domain.IssueAssignment, error) {
	var rows []domain.IssueAssignment
	err := r.db.WithContext(ctx).
		Where("issue_id = ?", issueID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *AssignmentRepository) List(ctx context.Context, page, pageSize int, filters AssignmentFilters) ([]domain.IssueAssignment, int64, error) {
	var rows []domain.IssueAssignment
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.IssueAssignment{})
	if filters.IssueID != nil {
		query = query.Where("issue_id = ?", *filters.IssueID)
	}
	if filters.AssignmentType != nil {
		query = query.Where("assignment_type = ?", *filters.AssignmentType)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.InvolvingUserID != nil {
		query = query.Where("assigned_by = ? OR assigned_to = ?", *filters.InvolvingUserID, *filters.InvolvingUserID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error
	return rows, total, err
}

// CountByIssueAndType counts an issue's rows of one assignment type
func (r *AssignmentRepository) CountByIssueAndType(ctx context.Context, issueID uuid.UUID, t domain.AssignmentType) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.IssueAssignment{}).
		Where("issue_id = ? AND assignment_type = ?", issueID, t).
		Count(&n).Error
	return n, err
}

// CloseActive moves the issue's active rows of the given types to status
// and returns how many rows changed.
func (r *AssignmentRepository) CloseActive(ctx context.Context, issueID uuid.UUID, types []domain.AssignmentType, status domain.AssignmentStatus) (int64, error) {
	if len(types) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Model(&domain.IssueAssignment{}).
		Where("issue_id = ? AND status = ? AND assignment_type IN ?", issueID, domain.AssignmentStatusActive, types).
		Update("status", status)
	return result.RowsAffected, result.Error
}

// Close moves one active row to status and reports whether it changed
func (r *AssignmentRepository) Close(ctx context.Context, id uuid.UUID, status domain.AssignmentStatus) (bool, error) {
	result := r.db.WithContext(ctx).Model(&domain.IssueAssignment{}).
		Where("id = ? AND status = ?", id, domain.AssignmentStatusActive).
		Update("status", status)
	return result.RowsAffected > 0, result.Error
}
