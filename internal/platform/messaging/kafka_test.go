package messaging

import (
	"context"
	"testing"
	"time"

	"ballotbox/contexts/governance/ballot-engine/ports"

	"github.com/stretchr/testify/require"
)

func TestPublishFansOutToTopicSubscribers(t *testing.T) {
	bus, err := NewKafka([]string{"localhost:9092"}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hosted := bus.Subscribe(ctx, "ballot.voting.hosted")
	cast := bus.Subscribe(ctx, "ballot.ballot.cast")

	require.NoError(t, bus.Publish(ctx, "ballot.voting.hosted", ports.EventEnvelope{EventID: "evt-1", EventType: "voting.hosted"}))

	select {
	case event := <-hosted:
		require.Equal(t, "evt-1", event.EventID)
	case <-time.After(time.Second):
		t.Fatal("expected event on subscribed topic")
	}
	select {
	case event := <-cast:
		t.Fatalf("unexpected event on other topic: %s", event.EventID)
	default:
	}
}

func TestSubscriptionClosesWithContext(t *testing.T) {
	bus, err := NewKafka(nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	events := bus.Subscribe(ctx, "ballot.ballot.cast")
	cancel()

	select {
	case _, ok := <-events:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscription was not closed")
	}
	require.NoError(t, bus.Publish(context.Background(), "ballot.ballot.cast", ports.EventEnvelope{EventID: "evt-2"}))
}
