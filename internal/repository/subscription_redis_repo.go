package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"marketplace/internal/model"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "entitlements:subscription:"

type redisSubscriptionRepo struct {
	client *redis.Client
}

// NewRedisSubscriptionRepo creates a Redis-backed SubscriptionRepository.
// Each record is a JSON value under entitlements:subscription:{user_id}.
func NewRedisSubscriptionRepo(client *redis.Client) SubscriptionRepository {
	return &redisSubscriptionRepo{client: client}
}

func redisKey(userID string) string {
	return redisKeyPrefix + userID
}

func (r *redisSubscriptionRepo) Get(ctx context.Context, userID string) (*model.Subscription, error) {
	raw, err := r.client.Get(ctx, redisKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.DefaultSubscription(userID), nil
		}
		return nil, fmt.Errorf("fetch subscription for user %s: %w", userID, err)
	}
	var us model.Subscription
	if err := json.Unmarshal(raw, &us); err != nil {
		return nil, fmt.Errorf("decode subscription for user %s: %w", userID, err)
	}
	return &us, nil
}

func (r *redisSubscriptionRepo) Put(ctx context.Context, sub *model.Subscription) error {
	if sub == nil || sub.UserID == "" {
		return errors.New("subscription with user id is required")
	}
	raw, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("encode subscription for user %s: %w", sub.UserID, err)
	}
	if err := r.client.Set(ctx, redisKey(sub.UserID), raw, 0).Err(); err != nil {
		return fmt.Errorf("store subscription for user %s: %w", sub.UserID, err)
	}
	return nil
}
