package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"marketplace/internal/api/v1/dto"
	"marketplace/internal/middleware"
	"marketplace/internal/model"
	"marketplace/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// SubscriptionHandler handles subscription-related endpoints.
type SubscriptionHandler struct {
	entitlements service.EntitlementService
	validate     *validator.Validate
	logger       zerolog.Logger
}

// NewSubscriptionHandler creates a new SubscriptionHandler.
func NewSubscriptionHandler(entitlements service.EntitlementService, v *validator.Validate, logger zerolog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		entitlements: entitlements,
		validate:     v,
		logger:       logger.With().Str("handler", "SubscriptionHandler").Logger(),
	}
}

// RegisterRoutes registers the subscription endpoints.
func (h *SubscriptionHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/subscriptions", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/me", h.getSubscription)
		r.Post("/trial", h.startTrial)
		r.Post("/activate", h.activate)
		r.Post("/cancel", h.cancel)
	})
}

// getSubscription godoc
// @Summary Current entitlements of the caller
// @Tags subscriptions
// @Produce json
// @Success 200 {object} dto.SubscriptionResponseDTO
// @Failure 401 {string} string "unauthorized"
// @Router /subscriptions/me [get]
func (h *SubscriptionHandler) getSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	snap, err := h.entitlements.Snapshot(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to load subscription")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, dto.NewSubscriptionResponse(snap))
}

// startTrial godoc
// @Summary Start or restart the free trial of a plan
// @Tags subscriptions
// @Accept json
// @Produce json
// @Param body body dto.PlanRequestDTO true "Plan to trial"
// @Success 200 {object} dto.SubscriptionResponseDTO
// @Failure 400 {string} string "invalid request payload"
// @Failure 422 {string} string "plan is not trialable"
// @Router /subscriptions/trial [post]
func (h *SubscriptionHandler) startTrial(w http.ResponseWriter, r *http.Request) {
	h.mutatePlan(w, r, h.entitlements.StartTrial)
}

// activate godoc
// @Summary Activate a paid plan
// @Tags subscriptions
// @Accept json
// @Produce json
// @Param body body dto.PlanRequestDTO true "Plan to activate"
// @Success 200 {object} dto.SubscriptionResponseDTO
// @Failure 400 {string} string "invalid request payload"
// @Router /subscriptions/activate [post]
func (h *SubscriptionHandler) activate(w http.ResponseWriter, r *http.Request) {
	h.mutatePlan(w, r, h.entitlements.Activate)
}

// cancel godoc
// @Summary Cancel the current plan and fall back to free
// @Tags subscriptions
// @Produce json
// @Success 200 {object} dto.SubscriptionResponseDTO
// @Router /subscriptions/cancel [post]
func (h *SubscriptionHandler) cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	snap, err := h.entitlements.Cancel(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to cancel subscription")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, dto.NewSubscriptionResponse(snap))
}

type planMutation func(ctx context.Context, userID string, planID model.PlanID) (model.Snapshot, error)

func (h *SubscriptionHandler) mutatePlan(w http.ResponseWriter, r *http.Request, fn planMutation) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	planID, ok := decodePlanRequest(w, r, h.validate)
	if !ok {
		return
	}

	snap, err := fn(r.Context(), userID, planID)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to update subscription")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, dto.NewSubscriptionResponse(snap))
}

func decodePlanRequest(w http.ResponseWriter, r *http.Request, v *validator.Validate) (model.PlanID, bool) {
	var req dto.PlanRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return "", false
	}
	if err := v.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return "", false
	}
	return model.PlanID(req.PlanID), true
}

func writeServiceError(w http.ResponseWriter, logger zerolog.Logger, err error, msg string) {
	switch {
	case errors.Is(err, service.ErrPlanNotTrialable):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		logger.Error().Err(err).Msg(msg)
		http.Error(w, msg, http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, logger zerolog.Logger, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error().Err(err).Msg("failed to encode response")
	}
}
