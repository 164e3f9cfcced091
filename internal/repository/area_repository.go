package repository

import (
	"context"

	"github.com/civicworks/civic-api/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AreaRepository struct {
	db *gorm.DB
}

func NewAreaRepository(db *gorm.DB) *AreaRepository {
	return &AreaRepository{db: db}
}

func (r *AreaRepository) Create(ctx context.Context, area *domain.Area) error {
	return r.db.WithContext(ctx).Create(area).Error
}

func (r *AreaRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Area, error) {
	var area domain.Area
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&area).Error; err != nil {
		return nil, err
	}
	return &area, nil
}

func (r *AreaRepository) Update(ctx context.Context, area *domain.Area) error {
	return r.db.WithContext(ctx).Save(area).Error
}

func (r *AreaRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.Area{}, "id = ?", id).Error
}

// List returns areas ordered by name; inactive areas only when requested
func (r *AreaRepository) List(ctx context.Context, includeInactive bool) ([]domain.Area, error) {
	var areas []domain.Area
	query := r.db.WithContext(ctx).Model(&domain.Area{})
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}
	err := query.Order("name ASC").Find(&areas).Error
	return areas, err
}

// FirstActiveByName returns an active area with the given name, or nil when
// none matches. Ties are broken arbitrarily.
func (r *AreaRepository) FirstActiveByName(ctx context.Context, name string) (*domain.Area, error) {
	var areas []domain.Area
	err := r.db.WithContext(ctx).
		Where("name = ? AND is_active = ?", name, true).
		Limit(1).
		Find(&areas).Error
	if err != nil || len(areas) == 0 {
		return nil, err
	}
	return &areas[0], nil
}
