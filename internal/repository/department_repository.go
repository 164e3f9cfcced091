package repository

import (
	"context"

	"github.com/civicworks/civic-api/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DepartmentFilters struct {
	Category        *domain.DepartmentCategory
	AreaID          *uuid.UUID
	IncludeInactive bool
}

type DepartmentRepository struct {
	db *gorm.DB
}

func NewDepartmentRepository(db *gorm.DB) *DepartmentRepository {
	return &DepartmentRepository{db: db}
}

func (r *DepartmentRepository) Create(ctx context.Context, dept *domain.Department) error {
	return r.db.WithContext(ctx).Omit("Area").Create(dept).Error
}

func (r *DepartmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Department, error) {
	var dept domain.Department
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&dept).Error; err != nil {
		return nil, err
	}
	return &dept, nil
}

func (r *DepartmentRepository) Update(ctx context.Context, dept *domain.Department) error {
	return r.db.WithContext(ctx).Omit("Area").Save(dept).Error
}

func (r *DepartmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.Department{}, "id = ?", id).Error
}

func (r *DepartmentRepository) List(ctx context.Context, filters DepartmentFilters) ([]domain.Department, error) {
	var depts []domain.Department
	query := r.db.WithContext(ctx).Model(&domain.Department{})
	if !filters.IncludeInactive {
		query = query.Where("is_active = ?", true)
	}
	if filters.Category != nil {
		query = query.Where("category = ?", *filters.Category)
	}
	if filters.AreaID != nil {
		query = query.Where("area_id = ?", *filters.AreaID)
	}
	err := query.Order("name ASC").Find(&depts).Error
	return depts, err
}
