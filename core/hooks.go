package core

import (
	"os"

	"github.com/rs/zerolog"
)

// Hooks receives the signals a merge engine cannot deliver: values and
// errors that arrive after termination or cancellation. The engine always
// invokes a hook instead of discarding silently or panicking; policy
// (log, ignore, escalate) belongs to the caller.
//
// Each engine instance holds its own Hooks, passed at construction. There
// is no process-wide mutable default.
type Hooks struct {
	droppedValue func(v any)
	droppedError func(err error)
}

// HookOption customizes a Hooks instance.
type HookOption func(*Hooks)

// WithDroppedValue replaces the dropped-value callback.
func WithDroppedValue(fn func(v any)) HookOption {
	return func(h *Hooks) { h.droppedValue = fn }
}

// WithDroppedError replaces the dropped-error callback.
func WithDroppedError(fn func(err error)) HookOption {
	return func(h *Hooks) { h.droppedError = fn }
}

// WithLogger installs callbacks that log dropped signals through l: values
// at debug level, errors at warn level.
func WithLogger(l zerolog.Logger) HookOption {
	return func(h *Hooks) {
		h.droppedValue = func(v any) {
			l.Debug().Interface("value", v).Msg("dropped value after termination")
		}
		h.droppedError = func(err error) {
			l.Warn().Err(err).Msg("dropped error after termination")
		}
	}
}

// NewHooks builds a Hooks. Without options, dropped signals are logged to
// stderr: errors at warn level, values at debug level.
func NewHooks(opts ...HookOption) *Hooks {
	h := &Hooks{}
	WithLogger(zerolog.New(os.Stderr).With().Timestamp().Logger())(h)
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// OnDroppedValue routes a value that can no longer be delivered.
func (h *Hooks) OnDroppedValue(v any) {
	h.droppedValue(v)
}

// OnDroppedError routes an error that can no longer be delivered.
func (h *Hooks) OnDroppedError(err error) {
	h.droppedError(err)
}
