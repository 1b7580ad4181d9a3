// Package access decides whether a subscription snapshot grants entry to an
// area that requires a given plan.
package access

import "marketplace/internal/model"

// Denial reasons carried in Decision.Reason and on the plan-selection redirect.
const (
	ReasonTrialExpired  = "trial-expired"
	ReasonNotSubscribed = "not-subscribed"
	ReasonPlanMismatch  = "plan-mismatch"
)

// Decision is the outcome of Decide. Reason is empty when Allowed.
type Decision struct {
	Allowed      bool           `json:"allowed"`
	Reason       string         `json:"reason,omitempty"`
	RequiredPlan model.PlanID   `json:"required_plan"`
	Snapshot     model.Snapshot `json:"snapshot"`
}

// Decide checks snap against required. The order of checks matters: a user
// on the right plan whose trial ran out must be told to resume, not to
// subscribe.
func Decide(snap model.Snapshot, required model.PlanID) Decision {
	d := Decision{RequiredPlan: required, Snapshot: snap}

	switch {
	case required == model.PlanFree:
		d.Allowed = true
	case snap.PlanID == required && (snap.Status == model.StatusActive || snap.IsTrialActive):
		d.Allowed = true
	case snap.PlanID == required && (snap.Status == model.StatusTrial || snap.Status == model.StatusExpired):
		d.Reason = ReasonTrialExpired
	case snap.PlanID == model.PlanFree || snap.Status == model.StatusCanceled:
		d.Reason = ReasonNotSubscribed
	default:
		d.Reason = ReasonPlanMismatch
	}
	return d
}
