// Package eventstream defines the transport-neutral events emitted when a
// relay finishes, and the publisher capability that ships them.
package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeRelayCompleted is emitted once a relay stream has ended,
	// successfully or not.
	EventTypeRelayCompleted = "circuitchat.relay.completed"
)

// RelayCompletedEvent is the payload describing one finished relay.
type RelayCompletedEvent struct {
	SchemaVersion int         `json:"schema_version"`
	EventType     string      `json:"event_type"`
	EventID       string      `json:"event_id"`
	EmittedAt     time.Time   `json:"emitted_at"`
	RelayID       string      `json:"relay_id"`
	Source        EventSource `json:"source"`

	Mode        string `json:"mode"`
	Preset      string `json:"preset,omitempty"`
	Turns       int    `json:"turns"`
	Frames      int    `json:"frames"`
	Passthrough int    `json:"passthrough"`
	Aborted     bool   `json:"aborted"`
	Error       string `json:"error,omitempty"`
	DurationMs  int64  `json:"duration_ms"`

	// Text is the accumulated sanitized model text.
	Text string `json:"text"`
}

// EventSource identifies the upstream that produced the relay.
type EventSource struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// NewRelayCompletedEvent returns an event with its envelope fields set.
func NewRelayCompletedEvent(relayID string, source EventSource) *RelayCompletedEvent {
	return &RelayCompletedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeRelayCompleted,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		RelayID:       relayID,
		Source:        source,
	}
}
