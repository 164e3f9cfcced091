package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/civicworks/civic-api/internal/domain"
	"github.com/civicworks/civic-api/internal/media"
	"github.com/civicworks/civic-api/internal/progress"
	"github.com/civicworks/civic-api/internal/repository"
	"github.com/civicworks/civic-api/internal/service"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// imagesField is the multipart field carrying attached photos
const imagesField = "images"

// ProgressHandler accepts contractor progress updates and supervisor reviews
type ProgressHandler struct {
	progressService *service.ProgressService
	submitter       *progress.Submitter
	maxUploadMB     int64
	logger          *zap.Logger
}

func NewProgressHandler(progressService *service.ProgressService, submitter *progress.Submitter, maxUploadMB int64, logger *zap.Logger) *ProgressHandler {
	return &ProgressHandler{
		progressService: progressService,
		submitter:       submitter,
		maxUploadMB:     maxUploadMB,
		logger:          logger,
	}
}

// Submit godoc
// @Summary Submit a progress update
// @Description Multipart form. Photos go in the images field. Photos that fail to upload are dropped and the update is stored with the rest.
// @Tags Progress
// @Accept multipart/form-data
// @Produce json
// @Param issueId formData string false "Issue ID" format(uuid)
// @Param tenderId formData string false "Tender ID" format(uuid)
// @Param title formData string true "Title"
// @Param description formData string true "Description"
// @Param progressPercentage formData string false "0-100; non-numeric counts as 0"
// @Param status formData string false "Progress status" Enums(not_started, in_progress, completed, on_hold, cancelled)
// @Param materialsUsed formData string false "Comma or newline separated"
// @Param laborHours formData string false "Labor hours"
// @Param expenses formData string false "Expenses"
// @Param notes formData string false "Notes"
// @Param images formData file false "Photos"
// @Success 201 {object} domain.WorkProgressDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError "Not assigned to this work"
// @Failure 404 {object} domain.APIError
// @Failure 413 {object} domain.APIError
// @Security BearerAuth
// @Router /progress [post]
func (h *ProgressHandler) Submit(w http.ResponseWriter, r *http.Request) {
	limit := h.maxUploadMB * 1024 * 1024
	if r.ContentLength > limit {
		respondWithError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Upload too large: maximum size is %dMB", h.maxUploadMB))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Upload too large: maximum size is %dMB", h.maxUploadMB))
			return
		}
		respondWithError(w, http.StatusBadRequest, "Invalid form: expected multipart/form-data")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	form, err := h.formFromRequest(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	record, err := h.submitter.Submit(r.Context(), form)
	if err != nil {
		respondServiceError(w, h.logger, err, "submit progress update")
		return
	}
	w.Header().Set("Location", "/api/v1/progress/"+record.ID.String())
	respondJSON(w, http.StatusCreated, record)
}

func (h *ProgressHandler) formFromRequest(r *http.Request) (*progress.Form, error) {
	form := &progress.Form{
		Title:              r.FormValue("title"),
		Description:        r.FormValue("description"),
		ProgressPercentage: r.FormValue("progressPercentage"),
		Status:             r.FormValue("status"),
		MaterialsUsed:      r.FormValue("materialsUsed"),
		LaborHours:         r.FormValue("laborHours"),
		Expenses:           r.FormValue("expenses"),
		Notes:              r.FormValue("notes"),
	}

	var err error
	if form.IssueID, err = formID(r, "issueId"); err != nil {
		return nil, err
	}
	if form.TenderID, err = formID(r, "tenderId"); err != nil {
		return nil, err
	}

	for _, header := range r.MultipartForm.File[imagesField] {
		item, err := readPart(header)
		if err != nil {
			return nil, err
		}
		form.Media = append(form.Media, item)
	}
	return form, nil
}

func formID(r *http.Request, name string) (*uuid.UUID, error) {
	raw := strings.TrimSpace(r.FormValue(name))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: must be a valid UUID", name)
	}
	return &id, nil
}

func readPart(header *multipart.FileHeader) (media.Item, error) {
	file, err := header.Open()
	if err != nil {
		return media.Item{}, fmt.Errorf("invalid upload %q", header.Filename)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return media.Item{}, fmt.Errorf("invalid upload %q", header.Filename)
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	return media.Item{Filename: header.Filename, ContentType: contentType, Data: data}, nil
}

// List godoc
// @Summary List progress updates
// @Description Contractors see only their own updates.
// @Tags Progress
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param issueId query string false "Filter by issue" format(uuid)
// @Param tenderId query string false "Filter by tender" format(uuid)
// @Param contractorId query string false "Filter by contractor" format(uuid)
// @Param status query string false "Filter by status" Enums(not_started, in_progress, completed, on_hold, cancelled)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.WorkProgressDTO}
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Router /progress [get]
func (h *ProgressHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)

	filters := repository.ProgressFilters{
		Status: queryString[domain.ProgressStatus](r, "status"),
	}
	for name, dst := range map[string]**uuid.UUID{
		"issueId":      &filters.IssueID,
		"tenderId":     &filters.TenderID,
		"contractorId": &filters.ContractorID,
	} {
		id, err := queryID(r, name)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		*dst = id
	}

	result, err := h.progressService.List(r.Context(), page, pageSize, filters)
	if err != nil {
		respondServiceError(w, h.logger, err, "list progress updates")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// GetByID godoc
// @Summary Get progress update
// @Tags Progress
// @Produce json
// @Param id path string true "Progress ID" format(uuid)
// @Success 200 {object} domain.WorkProgressDTO
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /progress/{id} [get]
func (h *ProgressHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	record, err := h.progressService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "get progress update")
		return
	}
	respondJSON(w, http.StatusOK, record)
}

// Review godoc
// @Summary Review a progress update
// @Tags Progress
// @Accept json
// @Produce json
// @Param id path string true "Progress ID" format(uuid)
// @Param request body domain.ReviewProgressRequest true "Review"
// @Success 200 {object} domain.WorkProgressDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /progress/{id}/review [put]
func (h *ProgressHandler) Review(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.ReviewProgressRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	record, err := h.progressService.Review(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "review progress update")
		return
	}
	respondJSON(w, http.StatusOK, record)
}
