package repository

import (
	"context"
	"time"

	"github.com/civicworks/civic-api/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TenderFilters struct {
	Status       *domain.TenderStatus
	IssueID      *uuid.UUID
	DepartmentID *uuid.UUID
}

type TenderRepository struct {
	db *gorm.DB
}

func NewTenderRepository(db *gorm.DB) *TenderRepository {
	return &TenderRepository{db: db}
}

func (r *TenderRepository) Create(ctx context.Context, tender *domain.Tender) error {
	return r.db.WithContext(ctx).Create(tender).Error
}

func (r *TenderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tender, error) {
	var tender domain.Tender
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&tender).Error; err != nil {
		return nil, err
	}
	return &tender, nil
}

func (r *TenderRepository) Update(ctx context.Context, tender *domain.Tender) error {
	return r.db.WithContext(ctx).Save(tender).Error
}

// UpdateStatus changes the status of a tender that is not awarded.
// Awarded tenders are only changed through MarkAwarded.
func (r *TenderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.TenderStatus) (int64, error) {
	result := r.db.WithContext(ctx).Model(&domain.Tender{}).
		Where("id = ? AND status <> ?", id, domain.TenderStatusAwarded).
		Update("status", status)
	return result.RowsAffected, result.Error
}

// MarkAwarded moves a tender to awarded only if it is not awarded already.
// It returns 1 when this call performed the transition and 0 otherwise.
func (r *TenderRepository) MarkAwarded(ctx context.Context, id uuid.UUID, awardedTo uuid.UUID, bidID *uuid.UUID, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&domain.Tender{}).
		Where("id = ? AND status <> ?", id, domain.TenderStatusAwarded).
		Updates(map[string]interface{}{
			"status":         domain.TenderStatusAwarded,
			"awarded_to":     awardedTo,
			"awarded_bid_id": bidID,
			"awarded_at":     at,
		})
	return result.RowsAffected, result.Error
}

func (r *TenderRepository) List(ctx context.Context, page, pageSize int, filters TenderFilters) ([]domain.Tender, int64, error) {
	var tenders []domain.Tender
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Tender{})
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.IssueID != nil {
		query = query.Where("issue_id = ?", *filters.IssueID)
	}
	if filters.DepartmentID != nil {
		query = query.Where("department_id = ?", *filters.DepartmentID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&tenders).Error
	return tenders, total, err
}
