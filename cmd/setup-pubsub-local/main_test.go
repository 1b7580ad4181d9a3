package main

import (
	"context"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResourcesFor(t *testing.T) {
	res := resourcesFor("subscription-events")
	assert.Equal(t, "subscription-events", res.Topic)
	assert.Equal(t, "subscription-events-dlq", res.DLQTopic)
	assert.Equal(t, "subscription-events-sub", res.Sub)
	assert.Equal(t, "subscription-events-dlq-sub", res.DLQSub)
}

func TestEnsureResourcesIsIdempotent(t *testing.T) {
	if os.Getenv("PUBSUB_EMULATOR_HOST") == "" {
		t.Skip("PUBSUB_EMULATOR_HOST is not set, skip pubsub emulator test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := pubsub.NewClient(ctx, "local-test")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	res := resourcesFor("setup-test-" + time.Now().Format("150405"))
	require.NoError(t, ensureResources(ctx, client, zerolog.Nop(), res))
	require.NoError(t, ensureResources(ctx, client, zerolog.Nop(), res))

	exists, err := client.Subscription(res.Sub).Exists(ctx)
	require.NoError(t, err)
	assert.True(t, exists)
}
