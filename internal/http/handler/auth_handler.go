package handler

import (
	"net/http"

	"github.com/civicworks/civic-api/internal/auth"
	"github.com/civicworks/civic-api/internal/domain"
	"github.com/civicworks/civic-api/internal/service"
	"go.uber.org/zap"
)

type AuthHandler struct {
	profileService *service.ProfileService
	logger         *zap.Logger
}

func NewAuthHandler(profileService *service.ProfileService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		profileService: profileService,
		logger:         logger,
	}
}

// Me godoc
// @Summary Get current authenticated user
// @Description Returns the caller's identity, user type and area/department binding
// @Tags Auth
// @Produce json
// @Success 200 {object} domain.AuthUserDTO
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	me, err := h.profileService.Me(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "load current user")
		return
	}
	respondJSON(w, http.StatusOK, me)
}

// IdentityCreated godoc
// @Summary Bootstrap a profile for a new identity
// @Description Called by the identity provider when a user registers. Creates the profile with the default user type; repeated calls are harmless.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body domain.IdentityCreatedRequest true "New identity"
// @Success 201 {object} domain.ProfileDTO "Profile created"
// @Success 200 {object} domain.ProfileDTO "Profile already existed"
// @Failure 400 {object} domain.APIError
// @Failure 401 {object} domain.APIError
// @Security WebhookKey
// @Router /identities [post]
func (h *AuthHandler) IdentityCreated(w http.ResponseWriter, r *http.Request) {
	var req domain.IdentityCreatedRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	identity := auth.IdentityFromMetadata(req.ID, req.Email, req.UserMetadata)
	profile, created, err := h.profileService.Bootstrap(r.Context(), identity)
	if err != nil {
		respondServiceError(w, h.logger, err, "bootstrap profile")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respondJSON(w, status, profile)
}
