package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/civicworks/civic-api/internal/domain"
	"github.com/civicworks/civic-api/internal/repository"
	"github.com/civicworks/civic-api/internal/service"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type IssueHandler struct {
	issueService    *service.IssueService
	voteService     *service.VoteService
	progressService *service.ProgressService
	logger          *zap.Logger
}

func NewIssueHandler(
	issueService *service.IssueService,
	voteService *service.VoteService,
	progressService *service.ProgressService,
	logger *zap.Logger,
) *IssueHandler {
	return &IssueHandler{
		issueService:    issueService,
		voteService:     voteService,
		progressService: progressService,
		logger:          logger,
	}
}

// List godoc
// @Summary List issues
// @Description Paginated issues with optional filters
// @Tags Issues
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param status query string false "Filter by status" Enums(pending, in_progress, resolved, closed)
// @Param stage query string false "Filter by workflow stage" Enums(reported, area_review, department_assigned, contractor_assigned, in_progress, department_review, resolved)
// @Param category query string false "Filter by category"
// @Param areaId query string false "Filter by assigned area" format(uuid)
// @Param departmentId query string false "Filter by assigned department" format(uuid)
// @Param assigneeId query string false "Filter by current assignee" format(uuid)
// @Param reporterId query string false "Filter by reporter" format(uuid)
// @Param search query string false "Search title and description"
// @Param sortBy query string false "Sort option" Enums(created_desc, created_asc, votes_desc)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.IssueDTO}
// @Failure 400 {object} domain.APIError
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Router /issues [get]
func (h *IssueHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)

	filters := &repository.IssueFilters{
		Status:      queryString[domain.IssueStatus](r, "status"),
		Stage:       queryString[domain.WorkflowStage](r, "stage"),
		Category:    queryString[string](r, "category"),
		SearchQuery: queryString[string](r, "search"),
	}
	for name, dst := range map[string]**uuid.UUID{
		"areaId":       &filters.AssignedAreaID,
		"departmentId": &filters.AssignedDepartmentID,
		"assigneeId":   &filters.CurrentAssigneeID,
		"reporterId":   &filters.ReporterID,
	} {
		id, err := queryID(r, name)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		*dst = id
	}

	sortBy := repository.IssueSortByCreatedDesc
	if s := r.URL.Query().Get("sortBy"); s != "" {
		sortBy = repository.IssueSortOption(s)
	}

	result, err := h.issueService.List(r.Context(), page, pageSize, filters, sortBy)
	if err != nil {
		respondServiceError(w, h.logger, err, "list issues")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Create godoc
// @Summary Report an issue
// @Description Files a new issue for the caller. When the area names an active area, the area and its first verified area admin are assigned immediately.
// @Tags Issues
// @Accept json
// @Produce json
// @Param request body domain.CreateIssueRequest true "Issue"
// @Success 201 {object} domain.IssueDTO
// @Failure 400 {object} domain.APIError
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Router /issues [post]
func (h *IssueHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateIssueRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	issue, err := h.issueService.Create(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "create issue")
		return
	}
	w.Header().Set("Location", "/api/v1/issues/"+issue.ID.String())
	respondJSON(w, http.StatusCreated, issue)
}

// GetByID godoc
// @Summary Get issue
// @Tags Issues
// @Produce json
// @Param id path string true "Issue ID" format(uuid)
// @Success 200 {object} domain.IssueDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /issues/{id} [get]
func (h *IssueHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	issue, err := h.issueService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "get issue")
		return
	}
	respondJSON(w, http.StatusOK, issue)
}

// AssignArea godoc
// @Summary Assign issue to an area
// @Description Administrators hand an issue to an active area. The area's first verified admin becomes the assignee.
// @Tags Issues
// @Accept json
// @Produce json
// @Param id path string true "Issue ID" format(uuid)
// @Param request body domain.AssignAreaRequest true "Area"
// @Success 200 {object} domain.IssueDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Issue already resolved"
// @Security BearerAuth
// @Router /issues/{id}/assign-area [post]
func (h *IssueHandler) AssignArea(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.AssignAreaRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	issue, err := h.issueService.AssignToArea(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "assign issue to area")
		return
	}
	respondJSON(w, http.StatusOK, issue)
}

// AssignDepartment godoc
// @Summary Assign issue to a department
// @Description Area admins (for their own area) and administrators hand an issue to a department.
// @Tags Issues
// @Accept json
// @Produce json
// @Param id path string true "Issue ID" format(uuid)
// @Param request body domain.AssignDepartmentRequest true "Department"
// @Success 200 {object} domain.IssueDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Issue already resolved"
// @Security BearerAuth
// @Router /issues/{id}/assign-department [post]
func (h *IssueHandler) AssignDepartment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.AssignDepartmentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	issue, err := h.issueService.AssignToDepartment(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "assign issue to department")
		return
	}
	respondJSON(w, http.StatusOK, issue)
}

// SetStage godoc
// @Summary Change workflow stage
// @Tags Issues
// @Accept json
// @Produce json
// @Param id path string true "Issue ID" format(uuid)
// @Param request body domain.SetStageRequest true "Stage"
// @Success 200 {object} domain.IssueDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Backward move rejected"
// @Security BearerAuth
// @Router /issues/{id}/stage [post]
func (h *IssueHandler) SetStage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.SetStageRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	issue, err := h.issueService.SetStage(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "change issue stage")
		return
	}
	respondJSON(w, http.StatusOK, issue)
}

// Resolve godoc
// @Summary Resolve issue
// @Tags Issues
// @Accept json
// @Produce json
// @Param id path string true "Issue ID" format(uuid)
// @Param request body domain.ResolveIssueRequest false "Resolution notes"
// @Success 200 {object} domain.IssueDTO
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Already resolved"
// @Security BearerAuth
// @Router /issues/{id}/resolve [post]
func (h *IssueHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	// the body is optional
	var req domain.ResolveIssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondValidationError(w, err)
		return
	}
	issue, err := h.issueService.Resolve(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "resolve issue")
		return
	}
	respondJSON(w, http.StatusOK, issue)
}

// Assignments godoc
// @Summary Issue hand-off history
// @Description Assignment rows of the issue that the caller may read
// @Tags Issues
// @Produce json
// @Param id path string true "Issue ID" format(uuid)
// @Success 200 {array} domain.AssignmentDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /issues/{id}/assignments [get]
func (h *IssueHandler) Assignments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	rows, err := h.issueService.Assignments(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "list issue assignments")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

// Progress godoc
// @Summary Issue progress updates
// @Tags Issues
// @Produce json
// @Param id path string true "Issue ID" format(uuid)
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.WorkProgressDTO}
// @Security BearerAuth
// @Router /issues/{id}/progress [get]
func (h *IssueHandler) Progress(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	page, pageSize := pageParams(r)
	result, err := h.progressService.List(r.Context(), page, pageSize, repository.ProgressFilters{IssueID: &id})
	if err != nil {
		respondServiceError(w, h.logger, err, "list issue progress")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Vote godoc
// @Summary Cast or change vote
// @Description One vote per user per issue. Casting the same type again changes nothing; a different type moves the count.
// @Tags Issues
// @Accept json
// @Produce json
// @Param id path string true "Issue ID" format(uuid)
// @Param request body domain.CastVoteRequest true "Vote"
// @Success 200 {object} domain.VoteDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /issues/{id}/vote [put]
func (h *IssueHandler) Vote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.CastVoteRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	vote, err := h.voteService.Cast(r.Context(), id, req.VoteType)
	if err != nil {
		respondServiceError(w, h.logger, err, "cast vote")
		return
	}
	respondJSON(w, http.StatusOK, vote)
}

// Unvote godoc
// @Summary Retract vote
// @Tags Issues
// @Produce json
// @Param id path string true "Issue ID" format(uuid)
// @Success 200 {object} domain.VoteDTO
// @Failure 404 {object} domain.APIError "No vote to retract"
// @Security BearerAuth
// @Router /issues/{id}/vote [delete]
func (h *IssueHandler) Unvote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	vote, err := h.voteService.Retract(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "retract vote")
		return
	}
	respondJSON(w, http.StatusOK, vote)
}
