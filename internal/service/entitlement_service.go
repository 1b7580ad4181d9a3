package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"marketplace/internal/catalog"
	"marketplace/internal/metrics"
	"marketplace/internal/model"
	"marketplace/internal/pubsub"
	"marketplace/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrPlanNotTrialable is returned by StartTrial for plans without trial days.
var ErrPlanNotTrialable = errors.New("plan is not trialable")

// EntitlementService is the only place a subscription record is created or
// transitioned. Every mutation replaces the whole record.
type EntitlementService interface {
	ListPlans(ctx context.Context) []model.Plan
	Snapshot(ctx context.Context, userID string) (model.Snapshot, error)
	StartTrial(ctx context.Context, userID string, planID model.PlanID) (model.Snapshot, error)
	Activate(ctx context.Context, userID string, planID model.PlanID) (model.Snapshot, error)
	Cancel(ctx context.Context, userID string) (model.Snapshot, error)
	Onboard(ctx context.Context, userID string, planID model.PlanID) (model.Snapshot, error)
}

// Option customises an EntitlementService.
type Option func(*entitlementService)

// WithClock replaces time.Now as the source of the current time.
func WithClock(clock func() time.Time) Option {
	return func(s *entitlementService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithPublisher sends a SubscriptionEvent to topic after every mutation.
func WithPublisher(p pubsub.Publisher, topic string) Option {
	return func(s *entitlementService) {
		if p != nil {
			s.publisher = p
			s.topic = topic
		}
	}
}

type entitlementService struct {
	repo      repository.SubscriptionRepository
	plans     *catalog.Catalog
	publisher pubsub.Publisher
	topic     string
	clock     func() time.Time
	logger    zerolog.Logger
}

// NewEntitlementService creates a new EntitlementService with a scoped logger.
func NewEntitlementService(repo repository.SubscriptionRepository, plans *catalog.Catalog, logger zerolog.Logger, opts ...Option) EntitlementService {
	s := &entitlementService{
		repo:      repo,
		plans:     plans,
		publisher: pubsub.NoopPublisher{},
		clock:     time.Now,
		logger:    logger.With().Str("service", "EntitlementService").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *entitlementService) now() time.Time {
	return s.clock().UTC()
}

// ListPlans returns the catalog in display order.
func (s *entitlementService) ListPlans(ctx context.Context) []model.Plan {
	return s.plans.ListPlans()
}

// Snapshot returns the user's current entitlements. An elapsed trial is
// reported as expired without touching the store.
func (s *entitlementService) Snapshot(ctx context.Context, userID string) (model.Snapshot, error) {
	sub, err := s.repo.Get(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch subscription")
		metrics.SubscriptionErrorsTotal.WithLabelValues("snapshot", "store").Inc()
		return model.Snapshot{}, fmt.Errorf("get subscription: %w", err)
	}
	return s.snapshotOf(sub, "snapshot")
}

// StartTrial replaces the record with a fresh trial window starting now.
// Calling it again restarts the window.
func (s *entitlementService) StartTrial(ctx context.Context, userID string, planID model.PlanID) (model.Snapshot, error) {
	plan, err := s.plan(planID, "start_trial")
	if err != nil {
		return model.Snapshot{}, err
	}
	if !plan.Trialable() {
		metrics.SubscriptionErrorsTotal.WithLabelValues("start_trial", "not_trialable").Inc()
		return model.Snapshot{}, fmt.Errorf("start trial on %q: %w", planID, ErrPlanNotTrialable)
	}

	now := s.now()
	ends := now.Add(time.Duration(plan.TrialDays) * 24 * time.Hour)
	return s.replace(ctx, model.EventTrialStarted, plan, &model.Subscription{
		UserID:         userID,
		PlanID:         plan.ID,
		Status:         model.StatusTrial,
		TrialStartedAt: &now,
		TrialEndsAt:    &ends,
		UpdatedAt:      now,
	})
}

// Activate marks the plan as paid for. Allowed from every state.
func (s *entitlementService) Activate(ctx context.Context, userID string, planID model.PlanID) (model.Snapshot, error) {
	plan, err := s.plan(planID, "activate")
	if err != nil {
		return model.Snapshot{}, err
	}

	now := s.now()
	return s.replace(ctx, model.EventActivated, plan, &model.Subscription{
		UserID:      userID,
		PlanID:      plan.ID,
		Status:      model.StatusActive,
		ActivatedAt: &now,
		UpdatedAt:   now,
	})
}

// Cancel drops the user back to the free plan.
func (s *entitlementService) Cancel(ctx context.Context, userID string) (model.Snapshot, error) {
	plan, err := s.plan(model.PlanFree, "cancel")
	if err != nil {
		return model.Snapshot{}, err
	}

	now := s.now()
	return s.replace(ctx, model.EventCanceled, plan, &model.Subscription{
		UserID:     userID,
		PlanID:     model.PlanFree,
		Status:     model.StatusCanceled,
		CanceledAt: &now,
		UpdatedAt:  now,
	})
}

// Onboard is called once a user registers. Picking a trialable plan starts
// its trial; anything else leaves the default free record in place.
func (s *entitlementService) Onboard(ctx context.Context, userID string, planID model.PlanID) (model.Snapshot, error) {
	plan, err := s.plan(planID, "onboard")
	if err != nil {
		return model.Snapshot{}, err
	}
	if plan.Trialable() {
		return s.StartTrial(ctx, userID, plan.ID)
	}
	return s.Snapshot(ctx, userID)
}

func (s *entitlementService) plan(id model.PlanID, action string) (model.Plan, error) {
	plan, err := s.plans.GetPlan(id)
	if err != nil {
		s.logger.Error().Err(err).Str("plan_id", string(id)).Str("action", action).Msg("Plan lookup failed")
		metrics.SubscriptionErrorsTotal.WithLabelValues(action, "unknown_plan").Inc()
		return model.Plan{}, err
	}
	return plan, nil
}

func (s *entitlementService) snapshotOf(sub *model.Subscription, action string) (model.Snapshot, error) {
	plan, err := s.plan(sub.PlanID, action)
	if err != nil {
		return model.Snapshot{}, err
	}
	return model.NewSnapshot(sub, plan, s.now()), nil
}

func (s *entitlementService) replace(ctx context.Context, eventType model.SubscriptionEventType, plan model.Plan, next *model.Subscription) (model.Snapshot, error) {
	action := actionName(eventType)

	prev, err := s.repo.Get(ctx, next.UserID)
	if err != nil {
		// previous state only feeds the event
		s.logger.Warn().Err(err).Str("user_id", next.UserID).Msg("Failed to read previous subscription")
	}

	if err := s.repo.Put(ctx, next); err != nil {
		s.logger.Error().Err(err).
			Str("user_id", next.UserID).
			Str("plan_id", string(next.PlanID)).
			Str("status", string(next.Status)).
			Msg("Failed to store subscription")
		metrics.SubscriptionErrorsTotal.WithLabelValues(action, "store").Inc()
		return model.Snapshot{}, fmt.Errorf("put subscription: %w", err)
	}

	metrics.SubscriptionTransitionsTotal.WithLabelValues(action, string(next.PlanID)).Inc()
	s.logger.Info().
		Str("user_id", next.UserID).
		Str("plan_id", string(next.PlanID)).
		Str("status", string(next.Status)).
		Msg("Subscription updated")

	s.publish(ctx, eventType, prev, next)
	return model.NewSnapshot(next, plan, next.UpdatedAt), nil
}

func (s *entitlementService) publish(ctx context.Context, eventType model.SubscriptionEventType, prev, next *model.Subscription) {
	event := model.SubscriptionEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		UserID:     next.UserID,
		PlanID:     next.PlanID,
		Status:     next.Status,
		OccurredAt: next.UpdatedAt,
	}
	if prev != nil {
		event.PreviousPlanID = prev.PlanID
		event.PreviousStatus = prev.Status
	}

	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error().Err(err).Str("event_id", event.ID).Msg("Failed to marshal subscription event")
		return
	}
	if _, err := s.publisher.Publish(ctx, s.topic, payload); err != nil {
		s.logger.Error().Err(err).
			Str("event_id", event.ID).
			Str("user_id", event.UserID).
			Str("type", string(event.Type)).
			Msg("Failed to publish subscription event")
	}
}

func actionName(t model.SubscriptionEventType) string {
	switch t {
	case model.EventTrialStarted:
		return "start_trial"
	case model.EventActivated:
		return "activate"
	case model.EventCanceled:
		return "cancel"
	default:
		return string(t)
	}
}
