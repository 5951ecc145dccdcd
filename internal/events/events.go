package events

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/tutorq-api/internal/observability"
)

// Event types emitted by the batch jobs and the API.
const (
	TypeAnalyticsCompleted = "analytics.completed"
	TypeEvaluationStored   = "evaluation.stored"
)

// Event is the envelope published on Redis and NATS.
type Event struct {
	Type    string          `json:"type"`
	Source  string          `json:"source"`
	Payload json.RawMessage `json:"payload,omitempty"`
	SentAt  time.Time       `json:"sent_at"`
}

// Publisher emits domain events.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload interface{}) error
}

// Handler processes an event received from another process.
type Handler func(Event)

// Bus fans events out over Redis pub/sub and NATS. Either transport may be nil.
type Bus struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	logger       zerolog.Logger
	nodeID       string

	mu      sync.Mutex
	closers []func()
}

// NewBus constructs an event bus. channelBase is used as the Redis channel
// prefix and, with ':' replaced by '.', as the NATS subject prefix.
func NewBus(redisClient *redis.Client, natsConn *nats.Conn, channelBase string, logger zerolog.Logger) *Bus {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":events"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".events"
	}

	return &Bus{
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		logger:       logger.With().Str("component", "event_bus").Logger(),
		nodeID:       uuid.NewString(),
	}
}

// Publish serialises the payload and sends it on every configured transport.
func (b *Bus) Publish(ctx context.Context, eventType string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	body, err := json.Marshal(Event{
		Type:    eventType,
		Source:  b.nodeID,
		Payload: raw,
		SentAt:  time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	if b.redis != nil && b.redisChannel != "" {
		if err := b.redis.Publish(ctx, b.redisChannel, body).Err(); err != nil {
			return err
		}
	}

	if b.nats != nil && b.natsSubject != "" {
		if err := b.nats.Publish(b.natsSubject, body); err != nil {
			return err
		}
	}

	observability.EventsPublished().WithLabelValues(eventType).Inc()
	return nil
}

// Subscribe registers the handler on every configured transport. Events sent
// by this bus are ignored. Subscriptions end when ctx is cancelled or Close is called.
func (b *Bus) Subscribe(ctx context.Context, handler Handler) error {
	if b.redis != nil && b.redisChannel != "" {
		pubsub := b.redis.Subscribe(ctx, b.redisChannel)
		if _, err := pubsub.Receive(ctx); err != nil {
			_ = pubsub.Close()
			return err
		}
		b.track(func() { _ = pubsub.Close() })
		go b.consumeRedis(ctx, pubsub, handler)
	}

	if b.nats != nil && b.natsSubject != "" {
		sub, err := b.nats.Subscribe(b.natsSubject, func(msg *nats.Msg) {
			b.dispatch(msg.Data, handler)
		})
		if err != nil {
			return err
		}
		drain := func() {
			if err := sub.Drain(); err != nil {
				b.logger.Warn().Err(err).Msg("failed to drain nats subscription")
			}
		}
		b.track(drain)
		go func() {
			<-ctx.Done()
			drain()
		}()
	}

	return nil
}

// Close tears down every active subscription.
func (b *Bus) Close() {
	b.mu.Lock()
	closers := b.closers
	b.closers = nil
	b.mu.Unlock()

	for _, closeFn := range closers {
		closeFn()
	}
}

func (b *Bus) track(closeFn func()) {
	b.mu.Lock()
	b.closers = append(b.closers, closeFn)
	b.mu.Unlock()
}

func (b *Bus) consumeRedis(ctx context.Context, pubsub *redis.PubSub, handler Handler) {
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, redis.ErrClosed) {
				return
			}
			b.logger.Error().Err(err).Msg("event redis subscription closed")
			return
		}
		b.dispatch([]byte(msg.Payload), handler)
	}
}

func (b *Bus) dispatch(payload []byte, handler Handler) {
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		b.logger.Warn().Err(err).Msg("invalid event payload")
		return
	}

	if event.Source == b.nodeID {
		return
	}

	handler(event)
}

// Discard is a Publisher that drops every event.
type Discard struct{}

// Publish implements Publisher.
func (Discard) Publish(context.Context, string, interface{}) error { return nil }
