package model

import "time"

// SubscriptionEventType names a subscription transition.
type SubscriptionEventType string

const (
	EventTrialStarted SubscriptionEventType = "subscription.trial_started"
	EventActivated    SubscriptionEventType = "subscription.activated"
	EventCanceled     SubscriptionEventType = "subscription.canceled"
)

// SubscriptionEvent is published after every successful mutation.
type SubscriptionEvent struct {
	ID             string                `json:"id"`
	Type           SubscriptionEventType `json:"type"`
	UserID         string                `json:"user_id"`
	PlanID         PlanID                `json:"plan_id"`
	Status         SubscriptionStatus    `json:"status"`
	PreviousPlanID PlanID                `json:"previous_plan_id"`
	PreviousStatus SubscriptionStatus    `json:"previous_status"`
	OccurredAt     time.Time             `json:"occurred_at"`
}
