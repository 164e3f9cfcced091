package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/civicworks/civic-api/internal/domain"
	"github.com/civicworks/civic-api/internal/mapper"
	"github.com/civicworks/civic-api/internal/policy"
	"github.com/civicworks/civic-api/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type AreaService struct {
	areaRepo *repository.AreaRepository
	logger   *zap.Logger
	db       *gorm.DB
}

func NewAreaService(areaRepo *repository.AreaRepository, logger *zap.Logger, db *gorm.DB) *AreaService {
	return &AreaService{
		areaRepo: areaRepo,
		logger:   logger,
		db:       db,
	}
}

func (s *AreaService) Create(ctx context.Context, req *domain.CreateAreaRequest) (*domain.AreaDTO, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := authorize(policy.Request{Caller: caller, Resource: policy.ResourceArea, Action: policy.ActionCreate}); err != nil {
		return nil, err
	}

	area := &domain.Area{
		Name:        strings.TrimSpace(req.Name),
		Code:        strings.ToUpper(strings.TrimSpace(req.Code)),
		Description: req.Description,
		IsActive:    true,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewAreaRepository(tx)
		if err := repo.Create(ctx, area); err != nil {
			return err
		}
		if req.IsActive != nil && !*req.IsActive {
			area.IsActive = false
			return repo.Update(ctx, area)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: area code %q already exists", ErrConflict, area.Code)
		}
		return nil, fmt.Errorf("failed to create area: %w", err)
	}

	s.logger.Info("area created", zap.String("area_id", area.ID.String()), zap.String("code", area.Code))
	dto := mapper.ToAreaDTO(area)
	return &dto, nil
}

func (s *AreaService) GetByID(ctx context.Context, id uuid.UUID) (*domain.AreaDTO, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}

	area, err := s.areaRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrAreaNotFound)
	}
	if err := authorize(policy.Request{Caller: caller, Resource: policy.ResourceArea, Action: policy.ActionRead, Active: area.IsActive}); err != nil {
		// inactive areas are invisible to non-admins
		return nil, ErrAreaNotFound
	}

	dto := mapper.ToAreaDTO(area)
	return &dto, nil
}

// List returns active areas; administrators may include inactive ones
func (s *AreaService) List(ctx context.Context, includeInactive bool) ([]domain.AreaDTO, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if includeInactive && !caller.IsAdmin() {
		includeInactive = false
	}

	areas, err := s.areaRepo.List(ctx, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("failed to list areas: %w", err)
	}

	dtos := make([]domain.AreaDTO, len(areas))
	for i := range areas {
		dtos[i] = mapper.ToAreaDTO(&areas[i])
	}
	return dtos, nil
}

func (s *AreaService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateAreaRequest) (*domain.AreaDTO, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := authorize(policy.Request{Caller: caller, Resource: policy.ResourceArea, Action: policy.ActionUpdate}); err != nil {
		return nil, err
	}

	area, err := s.areaRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrAreaNotFound)
	}

	area.Name = strings.TrimSpace(req.Name)
	area.Description = req.Description
	if req.IsActive != nil {
		area.IsActive = *req.IsActive
	}

	if err := s.areaRepo.Update(ctx, area); err != nil {
		return nil, fmt.Errorf("failed to update area: %w", err)
	}

	dto := mapper.ToAreaDTO(area)
	return &dto, nil
}

func (s *AreaService) Delete(ctx context.Context, id uuid.UUID) error {
	caller, err := callerFrom(ctx)
	if err != nil {
		return err
	}
	if err := authorize(policy.Request{Caller: caller, Resource: policy.ResourceArea, Action: policy.ActionDelete}); err != nil {
		return err
	}

	if _, err := s.areaRepo.GetByID(ctx, id); err != nil {
		return notFound(err, ErrAreaNotFound)
	}
	if err := s.areaRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete area: %w", err)
	}

	s.logger.Info("area deleted", zap.String("area_id", id.String()), zap.String("deleted_by", caller.UserID.String()))
	return nil
}
