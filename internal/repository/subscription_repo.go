package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketplace/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// SubscriptionRepository holds exactly one subscription record per user.
type SubscriptionRepository interface {
	// Get returns the stored record, or the default free/active record when
	// the user has none yet. Get never writes.
	Get(ctx context.Context, userID string) (*model.Subscription, error)
	// Put replaces the user's record. Last write wins.
	Put(ctx context.Context, sub *model.Subscription) error
}

// pgxQuerier is the subset of *pgxpool.Pool the repository needs.
type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type subscriptionRepo struct {
	pool pgxQuerier
}

// NewSubscriptionRepo creates a Postgres-backed SubscriptionRepository.
func NewSubscriptionRepo(pool pgxQuerier) SubscriptionRepository {
	return &subscriptionRepo{pool: pool}
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS user_subscriptions (
    user_id          TEXT PRIMARY KEY,
    plan_id          TEXT NOT NULL,
    status           TEXT NOT NULL,
    trial_started_at TIMESTAMPTZ,
    trial_ends_at    TIMESTAMPTZ,
    activated_at     TIMESTAMPTZ,
    canceled_at      TIMESTAMPTZ,
    updated_at       TIMESTAMPTZ NOT NULL
)`

// EnsurePostgresSchema creates the user_subscriptions table if needed.
func EnsurePostgresSchema(ctx context.Context, pool pgxQuerier) error {
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("create user_subscriptions table: %w", err)
	}
	return nil
}

// Get returns the user's subscription regardless of status.
func (r *subscriptionRepo) Get(ctx context.Context, userID string) (*model.Subscription, error) {
	const q = `
        SELECT user_id, plan_id, status, trial_started_at, trial_ends_at, activated_at, canceled_at, updated_at
        FROM user_subscriptions
        WHERE user_id = $1
    `
	var (
		us     model.Subscription
		planID string
		status string
	)
	err := r.pool.QueryRow(ctx, q, userID).Scan(
		&us.UserID,
		&planID,
		&status,
		&us.TrialStartedAt,
		&us.TrialEndsAt,
		&us.ActivatedAt,
		&us.CanceledAt,
		&us.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.DefaultSubscription(userID), nil
		}
		return nil, fmt.Errorf("fetch subscription for user %s: %w", userID, err)
	}
	us.PlanID = model.PlanID(planID)
	us.Status = model.SubscriptionStatus(status)
	return &us, nil
}

// Put replaces the whole record for sub.UserID.
func (r *subscriptionRepo) Put(ctx context.Context, sub *model.Subscription) error {
	if sub == nil || sub.UserID == "" {
		return errors.New("subscription with user id is required")
	}
	const q = `
        INSERT INTO user_subscriptions (user_id, plan_id, status, trial_started_at, trial_ends_at, activated_at, canceled_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (user_id) DO UPDATE
        SET plan_id = EXCLUDED.plan_id,
            status = EXCLUDED.status,
            trial_started_at = EXCLUDED.trial_started_at,
            trial_ends_at = EXCLUDED.trial_ends_at,
            activated_at = EXCLUDED.activated_at,
            canceled_at = EXCLUDED.canceled_at,
            updated_at = EXCLUDED.updated_at
    `
	_, err := r.pool.Exec(ctx, q,
		sub.UserID,
		string(sub.PlanID),
		string(sub.Status),
		utcPtr(sub.TrialStartedAt),
		utcPtr(sub.TrialEndsAt),
		utcPtr(sub.ActivatedAt),
		utcPtr(sub.CanceledAt),
		sub.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert subscription for user %s: %w", sub.UserID, err)
	}
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
