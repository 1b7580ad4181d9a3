package repository

import (
	"context"
	"fmt"

	"marketplace/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// NewSubscriptionStore opens the backend selected by cfg.StoreBackend. The
// returned close func releases the underlying connection.
func NewSubscriptionStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (SubscriptionRepository, func(), error) {
	logger = logger.With().Str("store", cfg.StoreBackend).Logger()

	switch cfg.StoreBackend {
	case config.StoreMemory, "":
		logger.Warn().Msg("Using in-memory subscription store; records are lost on restart")
		return NewMemorySubscriptionRepo(), func() {}, nil

	case config.StorePostgres:
		pool, err := pgxpool.New(ctx, cfg.DBConnectionString)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ping postgres: %w", err)
		}
		if err := EnsurePostgresSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info().Msg("Database connection successful")
		return NewSubscriptionRepo(pool), pool.Close, nil

	case config.StoreSQLite:
		db, err := OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info().Str("path", cfg.SQLitePath).Msg("SQLite store opened")
		return NewSQLiteSubscriptionRepo(db), func() {
			if err := db.Close(); err != nil {
				logger.Error().Err(err).Msg("Failed to close SQLite store")
			}
		}, nil

	case config.StoreRedis:
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		client := redis.NewClient(opt)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		logger.Info().Msg("Redis connection successful")
		return NewRedisSubscriptionRepo(client), func() {
			if err := client.Close(); err != nil {
				logger.Error().Err(err).Msg("Failed to close Redis client")
			}
		}, nil

	default:
		return nil, nil, fmt.Errorf("unsupported store backend %q", cfg.StoreBackend)
	}
}
