package reactor

import "github.com/rajinisivaram/reactor-core/core"

// options carries the operator configuration assembled by Option values
// and checked by validateOptions before any subscription happens.
type options[R any] struct {
	maxConcurrency int
	prefetch       int
	delayError     bool
	mainQueue      core.QueueFactory[R]
	innerQueue     core.QueueFactory[R]
	hooks          *core.Hooks
}

func defaultOptions[R any]() options[R] {
	return options[R]{
		maxConcurrency: DefaultMaxConcurrency,
		prefetch:       DefaultPrefetch,
	}
}

// Option configures a FlatMap operator.
type Option[R any] func(*options[R])

// WithMaxConcurrency bounds the number of simultaneously subscribed inner
// sequences. Pass Unlimited to subscribe every mapped sequence immediately.
func WithMaxConcurrency[R any](n int) Option[R] {
	return func(o *options[R]) { o.maxConcurrency = n }
}

// WithPrefetch sets the per-inner request and buffer size.
func WithPrefetch[R any](n int) Option[R] {
	return func(o *options[R]) { o.prefetch = n }
}

// WithDelayError switches from fail-fast to delay-error termination: every
// failure is collected and already-active inners run to completion before
// the composite error is surfaced.
func WithDelayError[R any](delay bool) Option[R] {
	return func(o *options[R]) { o.delayError = delay }
}

// WithQueueFactory overrides the default buffer implementation. main backs
// the buffered-scalar queue, inner backs each unfused inner's buffer;
// either may be nil to keep the default.
func WithQueueFactory[R any](main, inner core.QueueFactory[R]) Option[R] {
	return func(o *options[R]) {
		if main != nil {
			o.mainQueue = main
		}
		if inner != nil {
			o.innerQueue = inner
		}
	}
}

// WithHooks installs the dropped-signal callbacks for this operator
// instance.
func WithHooks[R any](h *core.Hooks) Option[R] {
	return func(o *options[R]) { o.hooks = h }
}
