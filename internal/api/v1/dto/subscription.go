package dto

import (
	"time"

	"marketplace/internal/model"
)

// PlanRequestDTO selects a plan for trial, activation or onboarding.
type PlanRequestDTO struct {
	PlanID string `json:"plan_id" validate:"required,oneof=free supplier trader"`
}

// PlanResponseDTO is a catalog entry.
type PlanResponseDTO struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	PricePerMonth float64  `json:"price_per_month"`
	TrialDays     int      `json:"trial_days"`
	Features      []string `json:"features"`
}

// SubscriptionResponseDTO is the snapshot returned by every subscription endpoint.
type SubscriptionResponseDTO struct {
	UserID                string          `json:"user_id"`
	PlanID                string          `json:"plan_id"`
	Status                string          `json:"status"`
	Plan                  PlanResponseDTO `json:"plan"`
	IsTrialActive         bool            `json:"is_trial_active"`
	TrialSecondsRemaining int64           `json:"trial_seconds_remaining"`
	TrialStatus           string          `json:"trial_status"`
	TrialStartedAt        *time.Time      `json:"trial_started_at,omitempty"`
	TrialEndsAt           *time.Time      `json:"trial_ends_at,omitempty"`
	ActivatedAt           *time.Time      `json:"activated_at,omitempty"`
	CanceledAt            *time.Time      `json:"canceled_at,omitempty"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// PricingResponseDTO backs the plan selection page. The redirect fields echo
// what the plan gate sent; Current is set for identified callers.
type PricingResponseDTO struct {
	Plans    []PlanResponseDTO        `json:"plans"`
	Redirect string                   `json:"redirect,omitempty"`
	Plan     string                   `json:"plan,omitempty"`
	Reason   string                   `json:"reason,omitempty"`
	Current  *SubscriptionResponseDTO `json:"current,omitempty"`
}

// DashboardResponseDTO is returned by the plan-restricted demo areas.
type DashboardResponseDTO struct {
	Area         string                  `json:"area"`
	RequiredPlan string                  `json:"required_plan"`
	Subscription SubscriptionResponseDTO `json:"subscription"`
}

func NewPlanResponse(p model.Plan) PlanResponseDTO {
	features := make([]string, len(p.Features))
	copy(features, p.Features)
	return PlanResponseDTO{
		ID:            string(p.ID),
		Name:          p.Name,
		PricePerMonth: p.PricePerMonth,
		TrialDays:     p.TrialDays,
		Features:      features,
	}
}

func NewPlanListResponse(plans []model.Plan) []PlanResponseDTO {
	out := make([]PlanResponseDTO, 0, len(plans))
	for _, p := range plans {
		out = append(out, NewPlanResponse(p))
	}
	return out
}

func NewSubscriptionResponse(s model.Snapshot) SubscriptionResponseDTO {
	return SubscriptionResponseDTO{
		UserID:                s.UserID,
		PlanID:                string(s.PlanID),
		Status:                string(s.Status),
		Plan:                  NewPlanResponse(s.Plan),
		IsTrialActive:         s.IsTrialActive,
		TrialSecondsRemaining: s.TrialSecondsRemaining,
		TrialStatus:           string(s.TrialStatus),
		TrialStartedAt:        s.TrialStartedAt,
		TrialEndsAt:           s.TrialEndsAt,
		ActivatedAt:           s.ActivatedAt,
		CanceledAt:            s.CanceledAt,
		UpdatedAt:             s.UpdatedAt,
	}
}
