package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/civicworks/civic-api/internal/auth"
	"github.com/civicworks/civic-api/internal/domain"
	"github.com/civicworks/civic-api/internal/mapper"
	"github.com/civicworks/civic-api/internal/policy"
	"github.com/civicworks/civic-api/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ProfileService struct {
	profileRepo *repository.ProfileRepository
	areaRepo    *repository.AreaRepository
	deptRepo    *repository.DepartmentRepository
	logger      *zap.Logger
	db          *gorm.DB
}

func NewProfileService(
	profileRepo *repository.ProfileRepository,
	areaRepo *repository.AreaRepository,
	deptRepo *repository.DepartmentRepository,
	logger *zap.Logger,
	db *gorm.DB,
) *ProfileService {
	return &ProfileService{
		profileRepo: profileRepo,
		areaRepo:    areaRepo,
		deptRepo:    deptRepo,
		logger:      logger,
		db:          db,
	}
}

// Resolve returns the stored profile for a verified identity, bootstrapping
// it on first sight. It satisfies auth.ProfileResolver.
func (s *ProfileService) Resolve(ctx context.Context, identity *auth.Identity) (*domain.Profile, error) {
	profile, err := s.profileRepo.GetByID(ctx, identity.Subject)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	if _, _, err := s.Bootstrap(ctx, identity); err != nil {
		return nil, err
	}
	profile, err = s.profileRepo.GetByID(ctx, identity.Subject)
	if err != nil {
		return nil, fmt.Errorf("failed to load bootstrapped profile: %w", err)
	}
	return profile, nil
}

// Bootstrap creates the profile for a newly registered identity with the
// default user type. It is idempotent and runs without a policy check since
// the identity has no profile to authorize with yet. The second return value
// reports whether a row was written.
func (s *ProfileService) Bootstrap(ctx context.Context, identity *auth.Identity) (*domain.ProfileDTO, bool, error) {
	if identity == nil || identity.Subject == uuid.Nil {
		return nil, false, newValidationError("id", "identity id is required")
	}

	profile := &domain.Profile{
		ID:        identity.Subject,
		Email:     identity.Email,
		FullName:  identity.FullName,
		FirstName: identity.FirstName,
		LastName:  identity.LastName,
		UserType:  domain.UserTypeUser,
	}

	created, err := s.profileRepo.CreateIfAbsent(ctx, profile)
	if err != nil {
		return nil, false, fmt.Errorf("failed to bootstrap profile: %w", err)
	}

	stored, err := s.profileRepo.GetByID(ctx, identity.Subject)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load profile: %w", err)
	}

	if created {
		s.logger.Info("profile bootstrapped",
			zap.String("user_id", stored.ID.String()),
			zap.String("email", stored.Email),
		)
	}

	dto := mapper.ToProfileDTO(stored)
	return &dto, created, nil
}

// Me describes the authenticated caller
func (s *ProfileService) Me(ctx context.Context) (*domain.AuthUserDTO, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	return &domain.AuthUserDTO{
		ID:           caller.UserID,
		Email:        caller.Email,
		DisplayName:  caller.DisplayName,
		UserType:     caller.UserType,
		AreaID:       caller.AreaID,
		DepartmentID: caller.DepartmentID,
		IsVerified:   caller.Verified,
	}, nil
}

func (s *ProfileService) GetByID(ctx context.Context, id uuid.UUID) (*domain.ProfileDTO, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := authorize(policy.Request{Caller: caller, Resource: policy.ResourceProfile, Action: policy.ActionRead, OwnerID: &id}); err != nil {
		return nil, err
	}

	profile, err := s.profileRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrProfileNotFound)
	}
	dto := mapper.ToProfileDTO(profile)
	return &dto, nil
}

// List returns profiles for administrators
func (s *ProfileService) List(ctx context.Context, page, pageSize int, filters repository.ProfileFilters) (*domain.PaginatedResponse, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := authorize(policy.Request{Caller: caller, Resource: policy.ResourceProfile, Action: policy.ActionRead}); err != nil {
		return nil, err
	}

	page, pageSize = normalizePagination(page, pageSize)
	profiles, total, err := s.profileRepo.List(ctx, page, pageSize, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}

	dtos := make([]domain.ProfileDTO, len(profiles))
	for i := range profiles {
		dtos[i] = mapper.ToProfileDTO(&profiles[i])
	}
	return paginate(dtos, total, page, pageSize), nil
}

// UpdateSelf changes the basic name fields of a profile
func (s *ProfileService) UpdateSelf(ctx context.Context, id uuid.UUID, req *domain.UpdateProfileRequest) (*domain.ProfileDTO, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := authorize(policy.Request{Caller: caller, Resource: policy.ResourceProfile, Action: policy.ActionUpdate, OwnerID: &id}); err != nil {
		return nil, err
	}

	if _, err := s.profileRepo.GetByID(ctx, id); err != nil {
		return nil, notFound(err, ErrProfileNotFound)
	}
	if err := s.profileRepo.UpdateNames(ctx, id, req.FullName, req.FirstName, req.LastName); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	profile, err := s.profileRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload profile: %w", err)
	}
	dto := mapper.ToProfileDTO(profile)
	return &dto, nil
}

// UpdateRole sets user type, area and department binding and verification
func (s *ProfileService) UpdateRole(ctx context.Context, id uuid.UUID, req *domain.UpdateProfileRoleRequest) (*domain.ProfileDTO, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := authorize(policy.Request{Caller: caller, Resource: policy.ResourceProfile, Action: policy.ActionManageRole, OwnerID: &id}); err != nil {
		return nil, err
	}
	if !req.UserType.IsValid() {
		return nil, newValidationError("userType", "unknown user type")
	}

	if _, err := s.profileRepo.GetByID(ctx, id); err != nil {
		return nil, notFound(err, ErrProfileNotFound)
	}
	if req.AreaID != nil {
		if _, err := s.areaRepo.GetByID(ctx, *req.AreaID); err != nil {
			return nil, notFound(err, ErrAreaNotFound)
		}
	}
	if req.DepartmentID != nil {
		if _, err := s.deptRepo.GetByID(ctx, *req.DepartmentID); err != nil {
			return nil, notFound(err, ErrDepartmentNotFound)
		}
	}

	if err := s.profileRepo.UpdateRole(ctx, id, req.UserType, req.AreaID, req.DepartmentID, req.IsVerified); err != nil {
		return nil, fmt.Errorf("failed to update profile role: %w", err)
	}

	s.logger.Info("profile role updated",
		zap.String("profile_id", id.String()),
		zap.String("user_type", string(req.UserType)),
		zap.Bool("verified", req.IsVerified),
		zap.String("changed_by", caller.UserID.String()),
	)

	profile, err := s.profileRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload profile: %w", err)
	}
	dto := mapper.ToProfileDTO(profile)
	return &dto, nil
}
