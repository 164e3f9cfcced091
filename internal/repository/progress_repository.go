package repository

import (
	"context"
	"time"

	"github.com/civicworks/civic-api/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProgressFilters struct {
	IssueID      *uuid.UUID
	TenderID     *uuid.UUID
	ContractorID *uuid.UUID
	Status       *domain.ProgressStatus
}

type ProgressRepository struct {
	db *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

func (r *ProgressRepository) Create(ctx context.Context, p *domain.WorkProgress) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *ProgressRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.WorkProgress, error) {
	var p domain.WorkProgress
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProgressRepository) List(ctx context.Context, page, pageSize int, filters ProgressFilters) ([]domain.WorkProgress, int64, error) {
	var rows []domain.WorkProgress
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.WorkProgress{})
	if filters.IssueID != nil {
		query = query.Where("issue_id = ?", *filters.IssueID)
	}
	if filters.TenderID != nil {
		query = query.Where("tender_id = ?", *filters.TenderID)
	}
	if filters.ContractorID != nil {
		query = query.Where("contractor_id = ?", *filters.ContractorID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error
	return rows, total, err
}

// Annotate writes the supervisor fields, the only mutable part of a progress row
func (r *ProgressRepository) Annotate(ctx context.Context, id uuid.UUID, notes string, rating *int, reviewer uuid.UUID, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&domain.WorkProgress{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"supervisor_notes":  notes,
			"supervisor_rating": rating,
			"reviewed_by":       reviewer,
			"reviewed_at":       at,
		})
	return result.RowsAffected, result.Error
}
