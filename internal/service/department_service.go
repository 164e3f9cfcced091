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

type DepartmentService struct {
	deptRepo *repository.DepartmentRepository
	areaRepo *repository.AreaRepository
	logger   *zap.Logger
	db       *gorm.DB
}

func NewDepartmentService(
	deptRepo *repository.DepartmentRepository,
	areaRepo *repository.AreaRepository,
	logger *zap.Logger,
	db *gorm.DB,
) *DepartmentService {
	return &DepartmentService{
		deptRepo: deptRepo,
		areaRepo: areaRepo,
		logger:   logger,
		db:       db,
	}
}

func (s *DepartmentService) Create(ctx context.Context, req *domain.CreateDepartmentRequest) (*domain.DepartmentDTO, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := authorize(policy.Request{Caller: caller, Resource: policy.ResourceDepartment, Action: policy.ActionCreate}); err != nil {
		return nil, err
	}
	if !req.Category.IsValid() {
		return nil, newValidationError("category", "unknown department category")
	}
	if req.AreaID != nil {
		if _, err := s.areaRepo.GetByID(ctx, *req.AreaID); err != nil {
			return nil, notFound(err, ErrAreaNotFound)
		}
	}

	dept := &domain.Department{
		Name:         strings.TrimSpace(req.Name),
		Code:         strings.ToUpper(strings.TrimSpace(req.Code)),
		Category:     req.Category,
		Description:  req.Description,
		AreaID:       req.AreaID,
		ContactEmail: req.ContactEmail,
		IsActive:     true,
	}

	if err := s.deptRepo.Create(ctx, dept); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: department code %q already exists", ErrConflict, dept.Code)
		}
		return nil, fmt.Errorf("failed to create department: %w", err)
	}

	s.logger.Info("department created",
		zap.String("department_id", dept.ID.String()),
		zap.String("code", dept.Code),
		zap.String("category", string(dept.Category)),
	)
	dto := mapper.ToDepartmentDTO(dept)
	return &dto, nil
}

func (s *DepartmentService) GetByID(ctx context.Context, id uuid.UUID) (*domain.DepartmentDTO, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}

	dept, err := s.deptRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrDepartmentNotFound)
	}
	if err := authorize(policy.Request{Caller: caller, Resource: policy.ResourceDepartment, Action: policy.ActionRead, Active: dept.IsActive}); err != nil {
		return nil, ErrDepartmentNotFound
	}

	dto := mapper.ToDepartmentDTO(dept)
	return &dto, nil
}

func (s *DepartmentService) List(ctx context.Context, filters repository.DepartmentFilters) ([]domain.DepartmentDTO, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if filters.IncludeInactive && !caller.IsAdmin() {
		filters.IncludeInactive = false
	}
	if filters.Category != nil && !filters.Category.IsValid() {
		return nil, newValidationError("category", "unknown department category")
	}

	depts, err := s.deptRepo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}

	dtos := make([]domain.DepartmentDTO, len(depts))
	for i := range depts {
		dtos[i] = mapper.ToDepartmentDTO(&depts[i])
	}
	return dtos, nil
}

func (s *DepartmentService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateDepartmentRequest) (*domain.DepartmentDTO, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := authorize(policy.Request{Caller: caller, Resource: policy.ResourceDepartment, Action: policy.ActionUpdate}); err != nil {
		return nil, err
	}
	if !req.Category.IsValid() {
		return nil, newValidationError("category", "unknown department category")
	}

	dept, err := s.deptRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrDepartmentNotFound)
	}
	if req.AreaID != nil {
		if _, err := s.areaRepo.GetByID(ctx, *req.AreaID); err != nil {
			return nil, notFound(err, ErrAreaNotFound)
		}
	}

	dept.Name = strings.TrimSpace(req.Name)
	dept.Category = req.Category
	dept.Description = req.Description
	dept.AreaID = req.AreaID
	dept.ContactEmail = req.ContactEmail
	if req.IsActive != nil {
		dept.IsActive = *req.IsActive
	}

	if err := s.deptRepo.Update(ctx, dept); err != nil {
		return nil, fmt.Errorf("failed to update department: %w", err)
	}

	dto := mapper.ToDepartmentDTO(dept)
	return &dto, nil
}

func (s *DepartmentService) Delete(ctx context.Context, id uuid.UUID) error {
	caller, err := callerFrom(ctx)
	if err != nil {
		return err
	}
	if err := authorize(policy.Request{Caller: caller, Resource: policy.ResourceDepartment, Action: policy.ActionDelete}); err != nil {
		return err
	}

	if _, err := s.deptRepo.GetByID(ctx, id); err != nil {
		return notFound(err, ErrDepartmentNotFound)
	}
	if err := s.deptRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete department: %w", err)
	}

	s.logger.Info("department deleted", zap.String("department_id", id.String()), zap.String("deleted_by", caller.UserID.String()))
	return nil
}
