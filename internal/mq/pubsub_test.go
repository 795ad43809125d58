package mq

import (
	"context"
	"testing"

	"cloud.google.com/go/pubsub"
	"github.com/sarf14/onboarding-tool-sub001/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newOfflinePubSub builds a client against an emulator address that is never
// dialed; topic handles are created locally.
func newOfflinePubSub(t *testing.T) (*PubSubClient, *int) {
	t.Helper()
	t.Setenv("PUBSUB_EMULATOR_HOST", "127.0.0.1:1")

	p, err := NewPubSubClient(context.Background(), config.PubSubConfig{ProjectID: "onboarding-test"})
	require.NoError(t, err)

	opened := 0
	p.openTopic = func(_ context.Context, name string) (*pubsub.Topic, error) {
		opened++
		return p.client.Topic(name), nil
	}
	return p, &opened
}

func TestPublisherReusesTopicHandles(t *testing.T) {
	ctx := context.Background()
	p, opened := newOfflinePubSub(t)

	first, err := p.publisher(ctx, "onboarding.progress")
	require.NoError(t, err)
	second, err := p.publisher(ctx, "onboarding.progress")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.True(t, first.EnableMessageOrdering)
	assert.Equal(t, 1, *opened)

	other, err := p.publisher(ctx, "onboarding.audit")
	require.NoError(t, err)
	assert.NotSame(t, first, other)
	assert.Equal(t, 2, *opened)

	require.NoError(t, p.Close())
	assert.Empty(t, p.topics)
}

func TestOrderingKeyFollowsTrainee(t *testing.T) {
	assert.Equal(t, "7", orderingKey(map[string]string{"type": "task_recorded", "trainee_id": "7"}))
	assert.Empty(t, orderingKey(nil))
}
