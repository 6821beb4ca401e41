package protocol

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/rajinisivaram/reactor-core/core"
)

func TestNewValueMessage(t *testing.T) {
	env := NewValueMessage("stream-1", 42)
	if env.Type != MessageValue {
		t.Fatalf("expected %s, got %s", MessageValue, env.Type)
	}
	if env.StreamID != "stream-1" {
		t.Fatalf("unexpected stream id %q", env.StreamID)
	}
	if env.ID == "" {
		t.Fatal("message id should be generated")
	}
	if env.Timestamp == 0 {
		t.Fatal("timestamp should be set")
	}

	data, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var decoded Envelope
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded.Payload != float64(42) {
		t.Fatalf("unexpected payload %v", decoded.Payload)
	}
}

func TestNewErrorMessage_SingleCause(t *testing.T) {
	env := NewErrorMessage("stream-1", errors.New("boom"))
	if env.Type != MessageError {
		t.Fatalf("expected %s, got %s", MessageError, env.Type)
	}
	if len(env.Errors) != 1 || env.Errors[0] != "boom" {
		t.Fatalf("unexpected errors %v", env.Errors)
	}
}

func TestNewErrorMessage_FlattensAggregate(t *testing.T) {
	agg := core.AggregateError{Causes: []error{
		errors.New("first"),
		errors.New("second"),
	}}
	env := NewErrorMessage("stream-1", agg)
	if len(env.Errors) != 2 {
		t.Fatalf("expected 2 causes, got %v", env.Errors)
	}
	if env.Errors[0] != "first" || env.Errors[1] != "second" {
		t.Fatalf("causes out of order: %v", env.Errors)
	}
}

func TestNewCompleteMessage(t *testing.T) {
	env := NewCompleteMessage("stream-1")
	if env.Type != MessageComplete {
		t.Fatalf("expected %s, got %s", MessageComplete, env.Type)
	}
	if env.Payload != nil || len(env.Errors) != 0 {
		t.Fatal("completion carries no payload and no errors")
	}
}
