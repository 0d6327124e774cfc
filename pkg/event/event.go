// Package event publishes and consumes domain events over Kafka. Events
// are fire-and-forget from the services' point of view: a broker outage
// never fails the HTTP request that produced the event.
package event

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types carried on the bus.
const (
	TypeBookingCreated       = "booking.created"
	TypeBookingStatusChanged = "booking.status_changed"
	TypeBookingCancelled     = "booking.cancelled"
	TypeOrderCreated         = "order.created"
	TypeContactReceived      = "contact.received"
	TypeSubscriptionCreated  = "subscription.created"
	TypePaymentPaid          = "payment.paid"
	TypePaymentFailed        = "payment.failed"
	TypePaymentRefunded      = "payment.refunded"
)

// Header keys attached to every message.
const (
	HeaderEventID   = "event-id"
	HeaderEventType = "event-type"
	HeaderSource    = "source"
	HeaderTimestamp = "timestamp"

	headerRetryCount    = "retry-count"
	headerOriginalTopic = "original-topic"
)

// Envelope is the wire format of a domain event.
type Envelope struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Source     string         `json:"source"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload"`
}

// NewEnvelope stamps a payload with identity and time.
func NewEnvelope(eventType, source string, payload map[string]any) Envelope {
	return Envelope{
		ID:         uuid.NewString(),
		Type:       eventType,
		Source:     source,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

// Message is a raw bus message, decoupled from kafka-go types so handlers
// and tests never import the driver.
type Message struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
}

// Decode unmarshals the message value into an Envelope.
func (m *Message) Decode() (Envelope, error) {
	var env Envelope
	err := json.Unmarshal(m.Value, &env)
	return env, err
}

// EventType returns the event-type header.
func (m *Message) EventType() string {
	return m.Headers[HeaderEventType]
}

func (m *Message) retryCount() int {
	count := 0
	if s, ok := m.Headers[headerRetryCount]; ok {
		_ = json.Unmarshal([]byte(s), &count)
	}
	return count
}

func (m *Message) bumpRetryCount() {
	data, _ := json.Marshal(m.retryCount() + 1)
	m.Headers[headerRetryCount] = string(data)
}
