package handler

import (
	"net/http"
	"strings"

	"marketplace/internal/api/v1/dto"
	"marketplace/internal/middleware"
	"marketplace/internal/model"
	"marketplace/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// PageHandler backs the plan selection page and the plan-restricted
// dashboards. Rendering belongs to the front end; these return JSON.
type PageHandler struct {
	entitlements  service.EntitlementService
	selectionPath string
	logger        zerolog.Logger
}

func NewPageHandler(entitlements service.EntitlementService, selectionPath string, logger zerolog.Logger) *PageHandler {
	return &PageHandler{
		entitlements:  entitlements,
		selectionPath: selectionPath,
		logger:        logger.With().Str("handler", "PageHandler").Logger(),
	}
}

// RegisterRoutes mounts the pages. Dashboards are expected to sit behind the
// plan gate.
func (h *PageHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Get(h.selectionPath, h.pricing)
	r.With(authMiddleware).Get("/dashboard/{area}", h.dashboard)
	r.With(authMiddleware).Get("/dashboard/{area}/*", h.dashboard)
}

func (h *PageHandler) pricing(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp := dto.PricingResponseDTO{
		Plans:    dto.NewPlanListResponse(h.entitlements.ListPlans(r.Context())),
		Redirect: safeRedirect(q.Get("redirect")),
		Plan:     q.Get("plan"),
		Reason:   q.Get("reason"),
	}

	if userID, ok := middleware.UserIDFromContext(r.Context()); ok {
		snap, err := h.entitlements.Snapshot(r.Context(), userID)
		if err != nil {
			h.logger.Warn().Err(err).Str("user_id", userID).Msg("Pricing page without current subscription")
		} else {
			current := dto.NewSubscriptionResponse(snap)
			resp.Current = &current
		}
	}
	writeJSON(w, h.logger, http.StatusOK, resp)
}

func (h *PageHandler) dashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	area := chi.URLParam(r, "area")
	resp := dto.DashboardResponseDTO{Area: area}

	if d, ok := middleware.DecisionFromContext(r.Context()); ok {
		resp.RequiredPlan = string(d.RequiredPlan)
		resp.Subscription = dto.NewSubscriptionResponse(d.Snapshot)
		writeJSON(w, h.logger, http.StatusOK, resp)
		return
	}

	snap, err := h.entitlements.Snapshot(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to load subscription")
		return
	}
	resp.RequiredPlan = string(model.PlanFree)
	resp.Subscription = dto.NewSubscriptionResponse(snap)
	writeJSON(w, h.logger, http.StatusOK, resp)
}

// safeRedirect drops anything that is not a local absolute path.
func safeRedirect(target string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.Contains(target, `\`) {
		return ""
	}
	return target
}
