package handler

import (
	"net/http"

	"marketplace/internal/api/v1/dto"
	"marketplace/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// PlanHandler serves the plan catalog.
type PlanHandler struct {
	entitlements service.EntitlementService
	logger       zerolog.Logger
}

func NewPlanHandler(entitlements service.EntitlementService, logger zerolog.Logger) *PlanHandler {
	return &PlanHandler{
		entitlements: entitlements,
		logger:       logger.With().Str("handler", "PlanHandler").Logger(),
	}
}

// RegisterRoutes mounts v1 plan routes
func (h *PlanHandler) RegisterRoutes(r chi.Router) {
	r.Get("/plans", h.listPlans)
}

// listPlans godoc
// @Summary List subscribable plans
// @Tags plans
// @Produce json
// @Success 200 {array} dto.PlanResponseDTO
// @Router /plans [get]
func (h *PlanHandler) listPlans(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, dto.NewPlanListResponse(h.entitlements.ListPlans(r.Context())))
}
