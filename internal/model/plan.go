package model

// PlanID identifies a subscribable plan in the catalog.
type PlanID string

const (
	PlanFree     PlanID = "free"
	PlanSupplier PlanID = "supplier"
	PlanTrader   PlanID = "trader"
)

// Plan represents a catalog entry. Plans are fixed at deploy time.
type Plan struct {
	ID            PlanID   `json:"id"`
	Name          string   `json:"name"`
	PricePerMonth float64  `json:"price_per_month"`
	TrialDays     int      `json:"trial_days,omitempty"`
	Features      []string `json:"features"`
}

// Trialable reports whether a trial can be started on the plan.
func (p Plan) Trialable() bool {
	return p.TrialDays > 0
}
