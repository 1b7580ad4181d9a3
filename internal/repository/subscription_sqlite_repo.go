package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	"marketplace/internal/model"

	_ "modernc.org/sqlite"
)

type sqliteSubscriptionRepo struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the SQLite database at path and ensures the
// schema exists. Use ":memory:" for a throwaway database.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	dsn := path + "?" + url.Values{
		"_pragma": []string{
			"busy_timeout(30000)",
			"journal_mode(WAL)",
			"synchronous(NORMAL)",
		},
	}.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := ensureSQLiteSchema(ctx, db); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, errors.Join(err, fmt.Errorf("close sqlite db after schema init failure: %w", closeErr))
		}
		return nil, err
	}
	return db, nil
}

func ensureSQLiteSchema(ctx context.Context, db *sql.DB) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS user_subscriptions (
		user_id TEXT PRIMARY KEY,
		plan_id TEXT NOT NULL,
		status TEXT NOT NULL,
		trial_started_at INTEGER,
		trial_ends_at INTEGER,
		activated_at INTEGER,
		canceled_at INTEGER,
		updated_at INTEGER NOT NULL
	);
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init user_subscriptions schema: %w", err)
	}
	return nil
}

// NewSQLiteSubscriptionRepo creates a SQLite-backed SubscriptionRepository.
// Timestamps are stored as unix nanoseconds.
func NewSQLiteSubscriptionRepo(db *sql.DB) SubscriptionRepository {
	return &sqliteSubscriptionRepo{db: db}
}

func (r *sqliteSubscriptionRepo) Get(ctx context.Context, userID string) (*model.Subscription, error) {
	const q = `
		SELECT user_id, plan_id, status, trial_started_at, trial_ends_at, activated_at, canceled_at, updated_at
		FROM user_subscriptions
		WHERE user_id = ?
	`
	var (
		us                                           model.Subscription
		planID, status                               string
		trialStarted, trialEnds, activated, canceled sql.NullInt64
		updated                                      int64
	)
	err := r.db.QueryRowContext(ctx, q, userID).Scan(
		&us.UserID, &planID, &status,
		&trialStarted, &trialEnds, &activated, &canceled,
		&updated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.DefaultSubscription(userID), nil
		}
		return nil, fmt.Errorf("fetch subscription for user %s: %w", userID, err)
	}
	us.PlanID = model.PlanID(planID)
	us.Status = model.SubscriptionStatus(status)
	us.TrialStartedAt = fromNanos(trialStarted)
	us.TrialEndsAt = fromNanos(trialEnds)
	us.ActivatedAt = fromNanos(activated)
	us.CanceledAt = fromNanos(canceled)
	us.UpdatedAt = time.Unix(0, updated).UTC()
	return &us, nil
}

func (r *sqliteSubscriptionRepo) Put(ctx context.Context, sub *model.Subscription) error {
	if sub == nil || sub.UserID == "" {
		return errors.New("subscription with user id is required")
	}
	const q = `
		INSERT INTO user_subscriptions (user_id, plan_id, status, trial_started_at, trial_ends_at, activated_at, canceled_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			plan_id = excluded.plan_id,
			status = excluded.status,
			trial_started_at = excluded.trial_started_at,
			trial_ends_at = excluded.trial_ends_at,
			activated_at = excluded.activated_at,
			canceled_at = excluded.canceled_at,
			updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, q,
		sub.UserID, string(sub.PlanID), string(sub.Status),
		toNanos(sub.TrialStartedAt), toNanos(sub.TrialEndsAt),
		toNanos(sub.ActivatedAt), toNanos(sub.CanceledAt),
		sub.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("upsert subscription for user %s: %w", sub.UserID, err)
	}
	return nil
}

func toNanos(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func fromNanos(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := time.Unix(0, n.Int64).UTC()
	return &t
}
