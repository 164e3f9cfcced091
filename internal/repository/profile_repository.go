package repository

import (
	"context"

	"github.com/civicworks/civic-api/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProfileFilters struct {
	UserType     *domain.UserType
	AreaID       *uuid.UUID
	DepartmentID *uuid.UUID
	Verified     *bool
}

type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// CreateIfAbsent inserts the profile unless one with the same id exists.
// It reports whether a row was written.
func (r *ProfileRepository) CreateIfAbsent(ctx context.Context, profile *domain.Profile) (bool, error) {
	result := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(profile)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *ProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	var profile domain.Profile
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdateNames changes only the self-editable name fields
func (r *ProfileRepository) UpdateNames(ctx context.Context, id uuid.UUID, fullName, firstName, lastName string) error {
	return r.db.WithContext(ctx).Model(&domain.Profile{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"full_name":  fullName,
			"first_name": firstName,
			"last_name":  lastName,
		}).Error
}

// UpdateRole sets the role binding fields, including clearing area or department
func (r *ProfileRepository) UpdateRole(ctx context.Context, id uuid.UUID, userType domain.UserType, areaID, departmentID *uuid.UUID, verified bool) error {
	return r.db.WithContext(ctx).Model(&domain.Profile{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"user_type":     userType,
			"area_id":       areaID,
			"department_id": departmentID,
			"is_verified":   verified,
		}).Error
}

func (r *ProfileRepository) List(ctx context.Context, page, pageSize int, filters ProfileFilters) ([]domain.Profile, int64, error) {
	var profiles []domain.Profile
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Profile{})
	if filters.UserType != nil {
		query = query.Where("user_type = ?", *filters.UserType)
	}
	if filters.AreaID != nil {
		query = query.Where("area_id = ?", *filters.AreaID)
	}
	if filters.DepartmentID != nil {
		query = query.Where("department_id = ?", *filters.DepartmentID)
	}
	if filters.Verified != nil {
		query = query.Where("is_verified = ?", *filters.Verified)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("created_at ASC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&profiles).Error
	return profiles, total, err
}

// FirstVerifiedAreaAdmin returns a verified area_super_admin bound to the
// area, or nil when there is none. Ties are broken arbitrarily.
func (r *ProfileRepository) FirstVerifiedAreaAdmin(ctx context.Context, areaID uuid.UUID) (*domain.Profile, error) {
	return r.firstVerified(ctx, domain.UserTypeAreaSuperAdmin, "area_id", areaID)
}

// FirstVerifiedDepartmentAdmin returns a verified department_admin bound to
// the department, or nil when there is none.
func (r *ProfileRepository) FirstVerifiedDepartmentAdmin(ctx context.Context, departmentID uuid.UUID) (*domain.Profile, error) {
	return r.firstVerified(ctx, domain.UserTypeDepartmentAdmin, "department_id", departmentID)
}

func (r *ProfileRepository) firstVerified(ctx context.Context, userType domain.UserType, column string, id uuid.UUID) (*domain.Profile, error) {
	var profiles []domain.Profile
	err := r.db.WithContext(ctx).
		Where("user_type = ? AND is_verified = ?", userType, true).
		Where(clause.Eq{Column: clause.Column{Name: column}, Value: id}).
		Limit(1).
		Find(&profiles).Error
	if err != nil || len(profiles) == 0 {
		return nil, err
	}
	return &profiles[0], nil
}
