// Package reactor implements a backpressure-aware concurrent stream-merging
// engine: FlatMap subscribes an outer sequence, maps each item to an inner
// sequence, and interleaves up to a bounded number of inner sequences into
// one serialized output stream while honoring downstream demand.
//
// The engine owns no goroutines. It reacts to signals arriving from
// whatever goroutines drive the outer sequence, each inner sequence, the
// downstream demand and cancellation, and serializes emission through a
// lock-free work-counter trampoline.
package reactor

import (
	"math"
	"sync/atomic"

	"github.com/rajinisivaram/reactor-core/core"
	"github.com/rajinisivaram/reactor-core/queue"
)

// Unlimited removes the concurrency bound: every mapped inner sequence is
// subscribed immediately.
const Unlimited = math.MaxInt32

const (
	// DefaultMaxConcurrency is the number of inner sequences subscribed
	// simultaneously unless configured otherwise.
	DefaultMaxConcurrency = 256
	// DefaultPrefetch is the per-inner request and buffer size.
	DefaultPrefetch = 32
)

// FlatMap is the merge operator. It accepts exactly one downstream
// subscriber; build it with NewFlatMap.
type FlatMap[T, R any] struct {
	source     core.Publisher[T]
	mapper     func(T) core.Publisher[R]
	opts       options[R]
	subscribed atomic.Bool
}

// NewFlatMap builds the operator over source and mapper. Configuration is
// validated here, never deferred to subscription time; an invalid option
// yields a core.ConfigurationError.
func NewFlatMap[T, R any](source core.Publisher[T], mapper func(T) core.Publisher[R], opts ...Option[R]) (*FlatMap[T, R], error) {
	if source == nil {
		return nil, core.ConfigurationError{Option: "source", Reason: "must not be nil"}
	}
	if mapper == nil {
		return nil, core.ConfigurationError{Option: "mapper", Reason: "must not be nil"}
	}
	o := defaultOptions[R]()
	for _, opt := range opts {
		opt(&o)
	}
	if err := validateOptions(&o); err != nil {
		return nil, err
	}
	if o.hooks == nil {
		o.hooks = core.NewHooks()
	}
	if o.mainQueue == nil {
		o.mainQueue = defaultQueueFactory[R]
	}
	if o.innerQueue == nil {
		o.innerQueue = defaultQueueFactory[R]
	}
	return &FlatMap[T, R]{source: source, mapper: mapper, opts: o}, nil
}

// Subscribe attaches the one downstream subscriber and subscribes the
// coordinator to the outer sequence. Any later subscriber is rejected with
// core.ErrDuplicateSubscription.
func (f *FlatMap[T, R]) Subscribe(s core.Subscriber[R]) {
	if !f.subscribed.CompareAndSwap(false, true) {
		s.OnSubscribe(noopSubscription{})
		s.OnError(core.ErrDuplicateSubscription)
		return
	}
	f.source.Subscribe(newFlatMapMain(s, f.mapper, f.opts))
}

// defaultQueueFactory serves both the scalar buffer and the inner buffers:
// bounded ring for a positive capacity, unbounded segmented queue when the
// concurrency bound is removed.
func defaultQueueFactory[R any](capacity int) core.Queue[R] {
	if capacity <= 0 {
		return queue.NewGrowable[R]()
	}
	return queue.NewRing[R](capacity)
}

// noopSubscription backs rejected subscribers so they still observe a
// protocol-correct OnSubscribe before the terminal error.
type noopSubscription struct{}

func (noopSubscription) Request(int64) {}
func (noopSubscription) Cancel()       {}
