package model

import "time"

// SubscriptionStatus represents the lifecycle state of a user's subscription.
type SubscriptionStatus string

const (
	StatusTrial    SubscriptionStatus = "trial"
	StatusActive   SubscriptionStatus = "active"
	StatusExpired  SubscriptionStatus = "expired"
	StatusCanceled SubscriptionStatus = "canceled"
)

// Subscription is the stored entitlement record; exactly one exists per user.
type Subscription struct {
	UserID         string             `db:"user_id" json:"user_id"`
	PlanID         PlanID             `db:"plan_id" json:"plan_id"`
	Status         SubscriptionStatus `db:"status" json:"status"`
	TrialStartedAt *time.Time         `db:"trial_started_at" json:"trial_started_at,omitempty"`
	TrialEndsAt    *time.Time         `db:"trial_ends_at" json:"trial_ends_at,omitempty"`
	ActivatedAt    *time.Time         `db:"activated_at" json:"activated_at,omitempty"`
	CanceledAt     *time.Time         `db:"canceled_at" json:"canceled_at,omitempty"`
	UpdatedAt      time.Time          `db:"updated_at" json:"updated_at"`
}

// DefaultSubscription is the record every never-seen user implicitly has.
func DefaultSubscription(userID string) *Subscription {
	return &Subscription{
		UserID: userID,
		PlanID: PlanFree,
		Status: StatusActive,
	}
}

// Clone returns a deep copy so stored records never alias caller memory.
func (s *Subscription) Clone() *Subscription {
	if s == nil {
		return nil
	}
	c := *s
	c.TrialStartedAt = cloneTime(s.TrialStartedAt)
	c.TrialEndsAt = cloneTime(s.TrialEndsAt)
	c.ActivatedAt = cloneTime(s.ActivatedAt)
	c.CanceledAt = cloneTime(s.CanceledAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
