package core

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestHooks_Callbacks(t *testing.T) {
	var gotValue any
	var gotErr error
	h := NewHooks(
		WithDroppedValue(func(v any) { gotValue = v }),
		WithDroppedError(func(err error) { gotErr = err }),
	)

	h.OnDroppedValue(42)
	assert.Equal(t, 42, gotValue)

	boom := errors.New("boom")
	h.OnDroppedError(boom)
	assert.Equal(t, boom, gotErr)
}

func TestHooks_DefaultsDoNotPanic(t *testing.T) {
	h := NewHooks()
	h.OnDroppedValue("orphan")
	h.OnDroppedError(errors.New("late"))
}

func TestHooks_WithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	h := NewHooks(WithLogger(logger))

	h.OnDroppedError(errors.New("late failure"))
	assert.Contains(t, buf.String(), "late failure")
	assert.Contains(t, buf.String(), "dropped error")
}
