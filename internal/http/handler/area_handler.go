package handler

import (
	"net/http"

	"github.com/civicworks/civic-api/internal/domain"
	"github.com/civicworks/civic-api/internal/repository"
	"github.com/civicworks/civic-api/internal/service"
	"go.uber.org/zap"
)

// AreaHandler serves both areas and departments; they share the same
// administrative shape.
type AreaHandler struct {
	areaService       *service.AreaService
	departmentService *service.DepartmentService
	logger            *zap.Logger
}

func NewAreaHandler(areaService *service.AreaService, departmentService *service.DepartmentService, logger *zap.Logger) *AreaHandler {
	return &AreaHandler{
		areaService:       areaService,
		departmentService: departmentService,
		logger:            logger,
	}
}

// ListAreas godoc
// @Summary List areas
// @Tags Areas
// @Produce json
// @Param includeInactive query bool false "Include inactive areas (administrators only)"
// @Success 200 {array} domain.AreaDTO
// @Security BearerAuth
// @Router /areas [get]
func (h *AreaHandler) ListAreas(w http.ResponseWriter, r *http.Request) {
	areas, err := h.areaService.List(r.Context(), r.URL.Query().Get("includeInactive") == "true")
	if err != nil {
		respondServiceError(w, h.logger, err, "list areas")
		return
	}
	respondJSON(w, http.StatusOK, areas)
}

// CreateArea godoc
// @Summary Create area
// @Tags Areas
// @Accept json
// @Produce json
// @Param request body domain.CreateAreaRequest true "Area"
// @Success 201 {object} domain.AreaDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Duplicate code"
// @Security BearerAuth
// @Router /areas [post]
func (h *AreaHandler) CreateArea(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateAreaRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	area, err := h.areaService.Create(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "create area")
		return
	}
	w.Header().Set("Location", "/api/v1/areas/"+area.ID.String())
	respondJSON(w, http.StatusCreated, area)
}

// GetArea godoc
// @Summary Get area
// @Tags Areas
// @Produce json
// @Param id path string true "Area ID" format(uuid)
// @Success 200 {object} domain.AreaDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /areas/{id} [get]
func (h *AreaHandler) GetArea(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	area, err := h.areaService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "get area")
		return
	}
	respondJSON(w, http.StatusOK, area)
}

// UpdateArea godoc
// @Summary Update area
// @Tags Areas
// @Accept json
// @Produce json
// @Param id path string true "Area ID" format(uuid)
// @Param request body domain.UpdateAreaRequest true "Area"
// @Success 200 {object} domain.AreaDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /areas/{id} [put]
func (h *AreaHandler) UpdateArea(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.UpdateAreaRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	area, err := h.areaService.Update(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "update area")
		return
	}
	respondJSON(w, http.StatusOK, area)
}

// DeleteArea godoc
// @Summary Delete area
// @Tags Areas
// @Param id path string true "Area ID" format(uuid)
// @Success 204
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /areas/{id} [delete]
func (h *AreaHandler) DeleteArea(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.areaService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "delete area")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListDepartments godoc
// @Summary List departments
// @Tags Departments
// @Produce json
// @Param category query string false "Filter by category" Enums(public_works, utilities, environment, safety, parks, administration)
// @Param areaId query string false "Filter by area" format(uuid)
// @Param includeInactive query bool false "Include inactive departments (administrators only)"
// @Success 200 {array} domain.DepartmentDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Router /departments [get]
func (h *AreaHandler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	areaID, err := queryID(r, "areaId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	filters := repository.DepartmentFilters{
		Category:        queryString[domain.DepartmentCategory](r, "category"),
		AreaID:          areaID,
		IncludeInactive: r.URL.Query().Get("includeInactive") == "true",
	}

	departments, err := h.departmentService.List(r.Context(), filters)
	if err != nil {
		respondServiceError(w, h.logger, err, "list departments")
		return
	}
	respondJSON(w, http.StatusOK, departments)
}

// CreateDepartment godoc
// @Summary Create department
// @Tags Departments
// @Accept json
// @Produce json
// @Param request body domain.CreateDepartmentRequest true "Department"
// @Success 201 {object} domain.DepartmentDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Duplicate code"
// @Security BearerAuth
// @Router /departments [post]
func (h *AreaHandler) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateDepartmentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	dept, err := h.departmentService.Create(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "create department")
		return
	}
	w.Header().Set("Location", "/api/v1/departments/"+dept.ID.String())
	respondJSON(w, http.StatusCreated, dept)
}

// GetDepartment godoc
// @Summary Get department
// @Tags Departments
// @Produce json
// @Param id path string true "Department ID" format(uuid)
// @Success 200 {object} domain.DepartmentDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /departments/{id} [get]
func (h *AreaHandler) GetDepartment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	dept, err := h.departmentService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "get department")
		return
	}
	respondJSON(w, http.StatusOK, dept)
}

// UpdateDepartment godoc
// @Summary Update department
// @Tags Departments
// @Accept json
// @Produce json
// @Param id path string true "Department ID" format(uuid)
// @Param request body domain.UpdateDepartmentRequest true "Department"
// @Success 200 {object} domain.DepartmentDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /departments/{id} [put]
func (h *AreaHandler) UpdateDepartment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.UpdateDepartmentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	dept, err := h.departmentService.Update(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "update department")
		return
	}
	respondJSON(w, http.StatusOK, dept)
}

// DeleteDepartment godoc
// @Summary Delete department
// @Tags Departments
// @Param id path string true "Department ID" format(uuid)
// @Success 204
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /departments/{id} [delete]
func (h *AreaHandler) DeleteDepartment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.departmentService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "delete department")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
