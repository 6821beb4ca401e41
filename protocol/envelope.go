package protocol

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/rajinisivaram/reactor-core/core"
)

// MessageType defines the stream-to-client message types
type MessageType string

const (
	// Streaming content
	MessageValue MessageType = "stream.value" // one emitted value

	// Terminal signals
	MessageError    MessageType = "stream.error"    // stream failed
	MessageComplete MessageType = "stream.complete" // stream finished normally
)

// Envelope represents a single stream signal on the wire
type Envelope struct {
	Type      MessageType `json:"type"`
	ID        string      `json:"id"`       // Server-generated message ID
	StreamID  string      `json:"streamId"` // Stream identifier
	Payload   any         `json:"payload,omitempty"`
	Errors    []string    `json:"errors,omitempty"` // Failure causes, in arrival order
	Timestamp int64       `json:"timestamp"`
}

// NewValueMessage wraps an emitted value
func NewValueMessage(streamID string, payload any) Envelope {
	return Envelope{
		Type:      MessageValue,
		ID:        uuid.NewString(),
		StreamID:  streamID,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}
}

// NewErrorMessage wraps a terminal failure. Aggregated failures are
// flattened so the client sees every collected cause.
func NewErrorMessage(streamID string, err error) Envelope {
	var causes []string
	var agg core.AggregateError
	if errors.As(err, &agg) {
		for _, c := range agg.Causes {
			causes = append(causes, c.Error())
		}
	} else if err != nil {
		causes = []string{err.Error()}
	}
	return Envelope{
		Type:      MessageError,
		ID:        uuid.NewString(),
		StreamID:  streamID,
		Errors:    causes,
		Timestamp: time.Now().UnixMilli(),
	}
}

// NewCompleteMessage marks normal termination
func NewCompleteMessage(streamID string) Envelope {
	return Envelope{
		Type:      MessageComplete,
		ID:        uuid.NewString(),
		StreamID:  streamID,
		Timestamp: time.Now().UnixMilli(),
	}
}
