package events

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestBusDeliversEventsAcrossNodes(t *testing.T) {
	client := newRedis(t)
	publisher := NewBus(client, nil, "tutorq", zerolog.Nop())
	subscriber := NewBus(client, nil, "tutorq", zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var received []Event
	require.NoError(t, subscriber.Subscribe(ctx, func(event Event) {
		mu.Lock()
		received = append(received, event)
		mu.Unlock()
	}))
	defer subscriber.Close()

	require.NoError(t, publisher.Publish(ctx, TypeAnalyticsCompleted, map[string]int{"tutors_updated": 3}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	event := received[0]
	mu.Unlock()
	require.Equal(t, TypeAnalyticsCompleted, event.Type)

	var payload map[string]int
	require.NoError(t, json.Unmarshal(event.Payload, &payload))
	require.Equal(t, 3, payload["tutors_updated"])
}

func TestBusIgnoresOwnEvents(t *testing.T) {
	client := newRedis(t)
	bus := NewBus(client, nil, "tutorq", zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := make(chan Event, 1)
	require.NoError(t, bus.Subscribe(ctx, func(event Event) { calls <- event }))
	defer bus.Close()

	require.NoError(t, bus.Publish(ctx, TypeEvaluationStored, map[string]string{"session_id": "s1"}))

	select {
	case <-calls:
		t.Fatal("bus delivered its own event")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBusWithoutTransportsIsNoop(t *testing.T) {
	bus := NewBus(nil, nil, "", zerolog.Nop())
	require.NoError(t, bus.Publish(context.Background(), TypeAnalyticsCompleted, nil))
	require.NoError(t, bus.Subscribe(context.Background(), func(Event) {}))
	bus.Close()
}
