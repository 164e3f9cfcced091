package repository

import (
	"context"
	"strings"

	"github.com/civicworks/civic-api/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IssueFilters contains filter options for listing issues
type IssueFilters struct {
	Status               *domain.IssueStatus
	Stage                *domain.WorkflowStage
	Category             *string
	ReporterID           *uuid.UUID
	AssignedAreaID       *uuid.UUID
	AssignedDepartmentID *uuid.UUID
	CurrentAssigneeID    *uuid.UUID
	SearchQuery          *string
}

// IssueSortOption represents available sort options
type IssueSortOption string

const (
	IssueSortByCreatedDesc IssueSortOption = "created_desc"
	IssueSortByCreatedAsc  IssueSortOption = "created_asc"
	IssueSortByVotesDesc   IssueSortOption = "votes_desc"
)

type IssueRepository struct {
	db *gorm.DB
}

func NewIssueRepository(db *gorm.DB) *IssueRepository {
	return &IssueRepository{db: db}
}

func (r *IssueRepository) Create(ctx context.Context, issue *domain.Issue) error {
	return r.db.WithContext(ctx).Create(issue).Error
}

func (r *IssueRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Issue, error) {
	var issue domain.Issue
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&issue).Error; err != nil {
		return nil, err
	}
	return &issue, nil
}

// UpdateFields applies a partial update and returns the number of rows changed.
// Zero rows means the issue no longer exists.
func (r *IssueRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (int64, error) {
	result := r.db.WithContext(ctx).Model(&domain.Issue{}).Where("id = ?", id).Updates(fields)
	return result.RowsAffected, result.Error
}

// ClaimTriage sets the area and assignee of an issue only while it is still
// unassigned in area review. It returns 0 when someone got there first.
func (r *IssueRepository) ClaimTriage(ctx context.Context, id, areaID, assigneeID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Model(&domain.Issue{}).
		Where("id = ? AND current_assignee_id IS NULL AND workflow_stage = ?", id, domain.StageAreaReview).
		Updates(map[string]interface{}{
			"assigned_area_id":    areaID,
			"current_assignee_id": assigneeID,
		})
	return result.RowsAffected, result.Error
}

// AdjustVoteCounters increments the counter for inc and decrements the
// counter for dec, in one statement. Decrements never go below zero.
// Either side may be nil.
func (r *IssueRepository) AdjustVoteCounters(ctx context.Context, id uuid.UUID, inc, dec *domain.VoteType) (int64, error) {
	fields := map[string]interface{}{}
	if dec != nil {
		col := dec.CounterColumn()
		fields[col] = gorm.Expr("CASE WHEN " + col + " > 0 THEN " + col + " - 1 ELSE 0 END")
	}
	if inc != nil {
		col := inc.CounterColumn()
		fields[col] = gorm.Expr(col + " + 1")
	}
	if len(fields) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Model(&domain.Issue{}).Where("id = ?", id).UpdateColumns(fields)
	return result.RowsAffected, result.Error
}

func (r *IssueRepository) List(ctx context.Context, page, pageSize int, filters *IssueFilters, sortBy IssueSortOption) ([]domain.Issue, int64, error) {
	var issues []domain.Issue
	var total int64

	query := r.applyFilters(r.db.WithContext(ctx).Model(&domain.Issue{}), filters)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	switch sortBy {
	case IssueSortByCreatedAsc:
		query = query.Order("created_at ASC")
	case IssueSortByVotesDesc:
		query = query.Order("upvotes DESC").Order("created_at DESC")
	default:
		query = query.Order("created_at DESC")
	}

	err := query.Offset((page - 1) * pageSize).Limit(pageSize).Find(&issues).Error
	return issues, total, err
}

// ListAwaitingTriage returns issues in area review that still have no
// assignee. Issues an administrator already sent to an area are left out.
func (r *IssueRepository) ListAwaitingTriage(ctx context.Context, limit int) ([]domain.Issue, error) {
	var issues []domain.Issue
	err := r.db.WithContext(ctx).
		Where("workflow_stage = ? AND current_assignee_id IS NULL", domain.StageAreaReview).
		Where("area IS NOT NULL AND area <> ''").
		Where("NOT EXISTS (SELECT 1 FROM issue_assignments a WHERE a.issue_id = issues.id AND a.assignment_type = ? AND a.status = ?)",
			domain.AssignmentAdminToArea, domain.AssignmentStatusActive).
		Order("created_at ASC").
		Limit(limit).
		Find(&issues).Error
	return issues, err
}

func (r *IssueRepository) applyFilters(query *gorm.DB, filters *IssueFilters) *gorm.DB {
	if filters == nil {
		return query
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.Stage != nil {
		query = query.Where("workflow_stage = ?", *filters.Stage)
	}
	if filters.Category != nil && *filters.Category != "" {
		query = query.Where("category = ?", *filters.Category)
	}
	if filters.ReporterID != nil {
		query = query.Where("reporter_id = ?", *filters.ReporterID)
	}
	if filters.AssignedAreaID != nil {
		query = query.Where("assigned_area_id = ?", *filters.AssignedAreaID)
	}
	if filters.AssignedDepartmentID != nil {
		query = query.Where("assigned_department_id = ?", *filters.AssignedDepartmentID)
	}
	if filters.CurrentAssigneeID != nil {
		query = query.Where("current_assignee_id = ?", *filters.CurrentAssigneeID)
	}
	if filters.SearchQuery != nil && *filters.SearchQuery != "" {
		term := "%" + strings.ToLower(*filters.SearchQuery) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", term, term)
	}
	return query
}
