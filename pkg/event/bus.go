package event

import (
	"context"
	"encoding/json"
	"time"

	"atelier/pkg/logger"
)

// Publisher is the minimal surface services use to emit events.
type Publisher interface {
	Emit(ctx context.Context, eventType, key string, payload map[string]any)
	Close() error
}

// Bus emits envelopes through a Producer. Emit never returns an error:
// publish failures are logged so a request whose write already committed
// cannot be failed by the broker.
type Bus struct {
	producer *Producer
	source   string
	log      *logger.Logger
}

func NewBus(producer *Producer, source string, log *logger.Logger) *Bus {
	return &Bus{producer: producer, source: source, log: log}
}

func (b *Bus) Emit(ctx context.Context, eventType, key string, payload map[string]any) {
	env := NewEnvelope(eventType, b.source, payload)
	value, err := json.Marshal(env)
	if err != nil {
		b.log.Error("Failed to encode event", "event_type", eventType, "error", err)
		return
	}

	msg := Message{
		Key:   key,
		Value: value,
		Headers: map[string]string{
			HeaderEventID:   env.ID,
			HeaderEventType: eventType,
			HeaderSource:    b.source,
			HeaderTimestamp: env.OccurredAt.Format(time.RFC3339),
		},
		Timestamp: env.OccurredAt,
	}

	if err := b.producer.Publish(ctx, msg); err != nil {
		b.log.Error("Failed to publish event",
			"event_type", eventType,
			"key", key,
			"error", err,
		)
		return
	}
	b.log.Debug("Event published", "event_type", eventType, "key", key, "event_id", env.ID)
}

func (b *Bus) Close() error {
	return b.producer.Close()
}

// NoopPublisher discards events. Used when no brokers are configured and
// in tests.
type NoopPublisher struct{}

func (NoopPublisher) Emit(context.Context, string, string, map[string]any) {}
func (NoopPublisher) Close() error                                         { return nil }
