package event

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewEnvelope(t *testing.T) {
	env := NewEnvelope(TypeBookingCreated, "api", map[string]any{"booking_id": "abc"})

	if env.ID == "" {
		t.Error("expected generated event ID")
	}
	if env.Type != TypeBookingCreated {
		t.Errorf("expected type %q, got %q", TypeBookingCreated, env.Type)
	}
	if env.Source != "api" {
		t.Errorf("expected source 'api', got %q", env.Source)
	}
	if env.OccurredAt.IsZero() {
		t.Error("expected OccurredAt to be set")
	}
	if env.Payload["booking_id"] != "abc" {
		t.Errorf("unexpected payload: %v", env.Payload)
	}
}

func TestMessage_Decode(t *testing.T) {
	env := NewEnvelope(TypeOrderCreated, "api", map[string]any{"order_id": "o1"})
	value, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	msg := Message{Key: "o1", Value: value, Headers: map[string]string{}, Timestamp: time.Now()}
	decoded, err := msg.Decode()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.ID != env.ID {
		t.Errorf("expected ID %q, got %q", env.ID, decoded.ID)
	}
	if decoded.Payload["order_id"] != "o1" {
		t.Errorf("unexpected payload: %v", decoded.Payload)
	}
}

func TestMessage_RetryCount(t *testing.T) {
	msg := Message{Headers: map[string]string{}}

	if got := msg.retryCount(); got != 0 {
		t.Errorf("expected 0 retries, got %d", got)
	}

	msg.bumpRetryCount()
	msg.bumpRetryCount()

	if got := msg.retryCount(); got != 2 {
		t.Errorf("expected 2 retries, got %d", got)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"connection refused", errFixture("dial tcp: connection refused"), true},
		{"io timeout", errFixture("read tcp: i/o timeout"), true},
		{"handler failure", errFixture("invalid payload shape"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isTransient(tt.err); got != tt.want {
				t.Errorf("isTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

type errFixture string

func (e errFixture) Error() string { return string(e) }
