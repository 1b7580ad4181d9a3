package repository

import (
	"context"
	"errors"

	"marketplace/internal/model"

	"github.com/patrickmn/go-cache"
)

type memorySubscriptionRepo struct {
	records *cache.Cache
}

// NewMemorySubscriptionRepo creates a process-local SubscriptionRepository.
// Records never expire and are copied on the way in and out.
func NewMemorySubscriptionRepo() SubscriptionRepository {
	return &memorySubscriptionRepo{records: cache.New(cache.NoExpiration, 0)}
}

func (r *memorySubscriptionRepo) Get(_ context.Context, userID string) (*model.Subscription, error) {
	v, found := r.records.Get(userID)
	if !found {
		return model.DefaultSubscription(userID), nil
	}
	sub := v.(model.Subscription)
	return sub.Clone(), nil
}

func (r *memorySubscriptionRepo) Put(_ context.Context, sub *model.Subscription) error {
	if sub == nil || sub.UserID == "" {
		return errors.New("subscription with user id is required")
	}
	r.records.Set(sub.UserID, *sub.Clone(), cache.NoExpiration)
	return nil
}
