package handler

import (
	"net/http"

	"marketplace/internal/api/v1/dto"
	"marketplace/internal/middleware"
	"marketplace/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// UserHandler exposes the registration hook.
type UserHandler struct {
	entitlements service.EntitlementService
	validate     *validator.Validate
	logger       zerolog.Logger
}

func NewUserHandler(entitlements service.EntitlementService, v *validator.Validate, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		entitlements: entitlements,
		validate:     v,
		logger:       logger.With().Str("handler", "UserHandler").Logger(),
	}
}

// RegisterRoutes mounts v1 user routes
func (h *UserHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.With(authMiddleware).Post("/users/me/onboard", h.onboard)
}

// onboard godoc
// @Summary Registration hook; starts the trial of the chosen plan
// @Tags users
// @Accept json
// @Produce json
// @Param body body dto.PlanRequestDTO true "Plan chosen at sign-up"
// @Success 200 {object} dto.SubscriptionResponseDTO
// @Router /users/me/onboard [post]
func (h *UserHandler) onboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	planID, ok := decodePlanRequest(w, r, h.validate)
	if !ok {
		return
	}

	snap, err := h.entitlements.Onboard(r.Context(), userID, planID)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to onboard user")
		return
	}
	h.logger.Info().Str("user_id", userID).Str("plan_id", string(planID)).Msg("User onboarded")
	writeJSON(w, h.logger, http.StatusOK, dto.NewSubscriptionResponse(snap))
}
