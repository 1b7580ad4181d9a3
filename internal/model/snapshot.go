package model

import "time"

// TrialStatus summarises where a user stands with respect to a trial window.
type TrialStatus string

const (
	TrialPending TrialStatus = "pending"
	TrialActive  TrialStatus = "active"
	TrialExpired TrialStatus = "expired"
)

// Snapshot is the read view of a subscription at a point in time.
// It is never persisted.
type Snapshot struct {
	Subscription
	Plan                  Plan        `json:"plan"`
	IsTrialActive         bool        `json:"is_trial_active"`
	TrialSecondsRemaining int64       `json:"trial_seconds_remaining"`
	TrialStatus           TrialStatus `json:"trial_status"`
}

// NewSnapshot derives the snapshot of sub at now. A trial whose window has
// elapsed is reported as expired even though the stored record still says
// trial; the store catches up on the next mutation.
func NewSnapshot(sub *Subscription, plan Plan, now time.Time) Snapshot {
	rec := sub.Clone()
	if rec == nil {
		rec = &Subscription{}
	}

	snap := Snapshot{
		Subscription: *rec,
		Plan:         plan,
		TrialStatus:  TrialPending,
	}

	if rec.TrialEndsAt != nil {
		left := rec.TrialEndsAt.Sub(now)
		if left > 0 {
			snap.TrialSecondsRemaining = int64(left / time.Second)
		}
		// the last sub-second of a window already reads as expired
		if snap.TrialSecondsRemaining > 0 {
			snap.TrialStatus = TrialActive
		} else {
			snap.TrialStatus = TrialExpired
		}
		if left <= 0 && rec.Status == StatusTrial {
			snap.Status = StatusExpired
		}
	}

	snap.IsTrialActive = snap.Status == StatusTrial && snap.TrialSecondsRemaining > 0
	return snap
}
