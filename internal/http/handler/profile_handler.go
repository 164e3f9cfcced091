package handler

import (
	"net/http"
	"strconv"

	"github.com/civicworks/civic-api/internal/domain"
	"github.com/civicworks/civic-api/internal/repository"
	"github.com/civicworks/civic-api/internal/service"
	"go.uber.org/zap"
)

type ProfileHandler struct {
	profileService *service.ProfileService
	logger         *zap.Logger
}

func NewProfileHandler(profileService *service.ProfileService, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
		logger:         logger,
	}
}

// List godoc
// @Summary List profiles
// @Description Paginated profiles. Administrators only.
// @Tags Profiles
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param userType query string false "Filter by user type" Enums(user, admin, area_super_admin, department_admin, tender)
// @Param areaId query string false "Filter by area" format(uuid)
// @Param departmentId query string false "Filter by department" format(uuid)
// @Param verified query bool false "Filter by verification"
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.ProfileDTO}
// @Failure 400 {object} domain.APIError
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Router /profiles [get]
func (h *ProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)

	areaID, err := queryID(r, "areaId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	departmentID, err := queryID(r, "departmentId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	filters := repository.ProfileFilters{
		UserType:     queryString[domain.UserType](r, "userType"),
		AreaID:       areaID,
		DepartmentID: departmentID,
	}
	if v := r.URL.Query().Get("verified"); v != "" {
		verified, err := strconv.ParseBool(v)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid verified")
			return
		}
		filters.Verified = &verified
	}

	result, err := h.profileService.List(r.Context(), page, pageSize, filters)
	if err != nil {
		respondServiceError(w, h.logger, err, "list profiles")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// GetByID godoc
// @Summary Get profile
// @Tags Profiles
// @Produce json
// @Param id path string true "Profile ID" format(uuid)
// @Success 200 {object} domain.ProfileDTO
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /profiles/{id} [get]
func (h *ProfileHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	profile, err := h.profileService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "get profile")
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

// Update godoc
// @Summary Update own profile
// @Description Updates display names. Owners and administrators only.
// @Tags Profiles
// @Accept json
// @Produce json
// @Param id path string true "Profile ID" format(uuid)
// @Param request body domain.UpdateProfileRequest true "Names"
// @Success 200 {object} domain.ProfileDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /profiles/{id} [put]
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.UpdateProfileRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	profile, err := h.profileService.UpdateSelf(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "update profile")
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

// UpdateRole godoc
// @Summary Change a profile's role
// @Description Sets user type, area/department binding and verification. Administrators only.
// @Tags Profiles
// @Accept json
// @Produce json
// @Param id path string true "Profile ID" format(uuid)
// @Param request body domain.UpdateProfileRoleRequest true "Role"
// @Success 200 {object} domain.ProfileDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /profiles/{id}/role [put]
func (h *ProfileHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.UpdateProfileRoleRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	profile, err := h.profileService.UpdateRole(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "update profile role")
		return
	}
	respondJSON(w, http.StatusOK, profile)
}
