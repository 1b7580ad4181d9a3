package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var supplier = Plan{ID: PlanSupplier, Name: "Supplier", PricePerMonth: 29, TrialDays: 1}

func TestNewSnapshotDefaultRecord(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	snap := NewSnapshot(DefaultSubscription("u1"), Plan{ID: PlanFree}, now)

	assert.Equal(t, PlanFree, snap.PlanID)
	assert.Equal(t, StatusActive, snap.Status)
	assert.False(t, snap.IsTrialActive)
	assert.Zero(t, snap.TrialSecondsRemaining)
	assert.Equal(t, TrialPending, snap.TrialStatus)
}

func TestNewSnapshotTrialCountingDown(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	sub := &Subscription{UserID: "u1", PlanID: PlanSupplier, Status: StatusTrial, TrialStartedAt: &start, TrialEndsAt: &end}

	snap := NewSnapshot(sub, supplier, start.Add(90*time.Minute+500*time.Millisecond))

	assert.Equal(t, StatusTrial, snap.Status)
	assert.True(t, snap.IsTrialActive)
	assert.Equal(t, TrialActive, snap.TrialStatus)
	// floored: 22h29m59.5s left
	assert.Equal(t, int64(22*3600+29*60+59), snap.TrialSecondsRemaining)
}

func TestNewSnapshotTrialElapsedReportsExpired(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	sub := &Subscription{UserID: "u1", PlanID: PlanSupplier, Status: StatusTrial, TrialStartedAt: &start, TrialEndsAt: &end}

	for _, now := range []time.Time{end, end.Add(2 * time.Hour)} {
		snap := NewSnapshot(sub, supplier, now)
		assert.Equal(t, StatusExpired, snap.Status)
		assert.False(t, snap.IsTrialActive)
		assert.Zero(t, snap.TrialSecondsRemaining)
		assert.Equal(t, TrialExpired, snap.TrialStatus)
	}

	// the record itself is untouched
	assert.Equal(t, StatusTrial, sub.Status)
}

func TestNewSnapshotDoesNotAliasRecord(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	sub := &Subscription{UserID: "u1", PlanID: PlanSupplier, Status: StatusTrial, TrialStartedAt: &start, TrialEndsAt: &end}

	snap := NewSnapshot(sub, supplier, start)
	*snap.TrialEndsAt = start

	assert.Equal(t, start.Add(24*time.Hour), *sub.TrialEndsAt)
}

func TestNewSnapshotLastSubSecondReadsExpired(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	sub := &Subscription{UserID: "u1", PlanID: PlanSupplier, Status: StatusTrial, TrialStartedAt: &start, TrialEndsAt: &end}

	snap := NewSnapshot(sub, supplier, end.Add(-400*time.Millisecond))

	assert.Zero(t, snap.TrialSecondsRemaining)
	assert.False(t, snap.IsTrialActive)
	assert.Equal(t, TrialExpired, snap.TrialStatus)
}
