package main

import (
	"context"
	"flag"
	"time"

	"marketplace/internal/config"
	"marketplace/internal/logger"

	"cloud.google.com/go/pubsub"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

type topicResources struct {
	Topic    string
	DLQTopic string
	Sub      string
	DLQSub   string
}

func resourcesFor(topicID string) topicResources {
	return topicResources{
		Topic:    topicID,
		DLQTopic: topicID + "-dlq",
		Sub:      topicID + "-sub",
		DLQSub:   topicID + "-dlq-sub",
	}
}

func main() {
	reset := flag.Bool("reset", false, "delete every topic and subscription in the emulator first")
	flag.Parse()

	// Load environment variables early for local development
	envErr := godotenv.Load()
	logger := logger.New()
	if envErr != nil {
		logger.Warn().Msg("No .env file found, relying on system environment variables.")
	}
	logger.Info().Msg("Starting Pub/Sub setup for the local environment.")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Msgf("Failed to load config: %v", err)
	}
	logger = logger.Level(cfg.ZerologLevel())
	if cfg.GCPProjectID == "" {
		logger.Fatal().Msg("GCP_PROJECT_ID is not set in the environment.")
	}
	if cfg.PubSubEmulatorHost == "" {
		logger.Fatal().Msg("PUBSUB_EMULATOR_HOST must be set for local environment.")
	}

	clientOptions := []option.ClientOption{
		option.WithEndpoint(cfg.PubSubEmulatorHost),
		option.WithoutAuthentication(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := pubsub.NewClient(ctx, cfg.GCPProjectID, clientOptions...)
	if err != nil {
		logger.Fatal().Msgf("Failed to create Pub/Sub client: %v", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error().Msgf("Failed to close pubsub client: %v", err)
		}
	}()

	if *reset {
		resetLocalEmulator(ctx, client, logger)
	}
	if err := ensureResources(ctx, client, logger, resourcesFor(cfg.PubSubSubscriptionTopic)); err != nil {
		logger.Fatal().Err(err).Msg("Pub/Sub setup failed")
	}

	logger.Info().Msg("Pub/Sub setup for local environment complete.")
}

// resetLocalEmulator performs a destructive reset of all topics and subscriptions.
// This should ONLY be used against the local emulator.
func resetLocalEmulator(ctx context.Context, client *pubsub.Client, logger zerolog.Logger) {
	logger.Info().Msg("--- Deleting all existing resources for a clean local setup ---")

	subs := client.Subscriptions(ctx)
	for {
		sub, err := subs.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			logger.Fatal().Msgf("Failed to list subscriptions: %v", err)
		}
		logger.Info().Msgf("Deleting subscription: %s", sub.ID())
		if err := sub.Delete(ctx); err != nil {
			logger.Warn().Msgf("Failed to delete subscription %s: %v", sub.ID(), err)
		}
	}

	topics := client.Topics(ctx)
	for {
		topic, err := topics.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			logger.Fatal().Msgf("Failed to list topics: %v", err)
		}
		logger.Info().Msgf("Deleting topic: %s", topic.ID())
		if err := topic.Delete(ctx); err != nil {
			logger.Warn().Msgf("Failed to delete topic %s: %v", topic.ID(), err)
		}
	}
}

// ensureResources creates the event topic, its dead-letter topic and a pull
// subscription on each. Downstream consumers (billing, notifications) pull
// from the main subscription.
func ensureResources(ctx context.Context, client *pubsub.Client, logger zerolog.Logger, res topicResources) error {
	retention := 7 * 24 * time.Hour

	dlqTopic, err := createTopicIfNotExists(ctx, client, logger, res.DLQTopic, retention)
	if err != nil {
		return err
	}
	mainTopic, err := createTopicIfNotExists(ctx, client, logger, res.Topic, retention)
	if err != nil {
		return err
	}

	if err := createSubscriptionIfNotExists(ctx, client, logger, res.Sub, pubsub.SubscriptionConfig{
		Topic:            mainTopic,
		AckDeadline:      60 * time.Second,
		ExpirationPolicy: 31 * 24 * time.Hour,
		RetryPolicy: &pubsub.RetryPolicy{
			MinimumBackoff: 10 * time.Second,
			MaximumBackoff: 600 * time.Second,
		},
		DeadLetterPolicy: &pubsub.DeadLetterPolicy{
			DeadLetterTopic:     dlqTopic.String(),
			MaxDeliveryAttempts: 5,
		},
	}); err != nil {
		return err
	}

	return createSubscriptionIfNotExists(ctx, client, logger, res.DLQSub, pubsub.SubscriptionConfig{
		Topic:            dlqTopic,
		AckDeadline:      60 * time.Second,
		ExpirationPolicy: 31 * 24 * time.Hour,
	})
}

func createTopicIfNotExists(ctx context.Context, client *pubsub.Client, logger zerolog.Logger, topicID string, retention time.Duration) (*pubsub.Topic, error) {
	topic := client.Topic(topicID)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if exists {
		logger.Info().Msgf("Topic %s already exists.", topicID)
		return topic, nil
	}

	logger.Info().Msgf("Creating topic: %s with %v retention", topicID, retention)
	return client.CreateTopicWithConfig(ctx, topicID, &pubsub.TopicConfig{
		RetentionDuration: retention,
	})
}

func createSubscriptionIfNotExists(ctx context.Context, client *pubsub.Client, logger zerolog.Logger, subID string, cfg pubsub.SubscriptionConfig) error {
	sub := client.Subscription(subID)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		logger.Info().Msgf("Subscription %s already exists.", subID)
		return nil
	}

	logger.Info().Msgf("Creating subscription %s on topic %s", subID, cfg.Topic.ID())
	_, err = client.CreateSubscription(ctx, subID, cfg)
	return err
}
