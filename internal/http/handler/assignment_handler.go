package handler

import (
	"net/http"

	"github.com/civicworks/civic-api/internal/domain"
	"github.com/civicworks/civic-api/internal/repository"
	"github.com/civicworks/civic-api/internal/service"
	"go.uber.org/zap"
)

// AssignmentHandler exposes the issue hand-off history
type AssignmentHandler struct {
	assignmentService *service.AssignmentService
	logger            *zap.Logger
}

// NewAssignmentHandler creates a new assignment handler
func NewAssignmentHandler(assignmentService *service.AssignmentService, logger *zap.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		assignmentService: assignmentService,
		logger:            logger,
	}
}

// List godoc
// @Summary List assignments
// @Description Staff see every hand-off; other users see the rows they authored or received.
// @Tags Assignments
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param issueId query string false "Filter by issue" format(uuid)
// @Param assignmentType query string false "Filter by type" Enums(admin_to_area, area_to_department, department_to_contractor)
// @Param status query string false "Filter by status" Enums(active, completed, reassigned, cancelled)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.AssignmentDTO}
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Router /assignments [get]
func (h *AssignmentHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)

	issueID, err := queryID(r, "issueId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.assignmentService.List(r.Context(), page, pageSize, repository.AssignmentFilters{
		IssueID:        issueID,
		AssignmentType: queryString[domain.AssignmentType](r, "assignmentType"),
		Status:         queryString[domain.AssignmentStatus](r, "status"),
	})
	if err != nil {
		respondServiceError(w, h.logger, err, "list assignments")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Create godoc
// @Summary Record a hand-off
// @Description Earlier active rows of the same type on the issue are marked reassigned.
// @Tags Assignments
// @Accept json
// @Produce json
// @Param request body domain.CreateAssignmentRequest true "Assignment"
// @Success 201 {object} domain.AssignmentDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError "Issue not found"
// @Security BearerAuth
// @Router /assignments [post]
func (h *AssignmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateAssignmentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	assignment, err := h.assignmentService.Create(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "create assignment")
		return
	}
	w.Header().Set("Location", "/api/v1/assignments/"+assignment.ID.String())
	respondJSON(w, http.StatusCreated, assignment)
}

// GetByID godoc
// @Summary Get assignment
// @Tags Assignments
// @Produce json
// @Param id path string true "Assignment ID" format(uuid)
// @Success 200 {object} domain.AssignmentDTO
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /assignments/{id} [get]
func (h *AssignmentHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	assignment, err := h.assignmentService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "get assignment")
		return
	}
	respondJSON(w, http.StatusOK, assignment)
}

// Close godoc
// @Summary Close an active assignment
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID" format(uuid)
// @Param request body domain.CloseAssignmentRequest true "Terminal status"
// @Success 200 {object} domain.AssignmentDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Assignment already closed"
// @Security BearerAuth
// @Router /assignments/{id}/close [post]
func (h *AssignmentHandler) Close(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.CloseAssignmentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	assignment, err := h.assignmentService.Close(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "close assignment")
		return
	}
	respondJSON(w, http.StatusOK, assignment)
}
