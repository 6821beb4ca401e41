package reactor

import (
	"sync/atomic"

	"github.com/rajinisivaram/reactor-core/core"
)

// Just returns a scalar publisher of a single, immediately-available value.
func Just[T any](v T) core.Publisher[T] {
	return just[T]{v: v}
}

type just[T any] struct{ v T }

func (j just[T]) Call() (T, bool, error) { return j.v, true, nil }

func (j just[T]) Subscribe(s core.Subscriber[T]) {
	s.OnSubscribe(&scalarSubscription[T]{actual: s, v: j.v})
}

// Empty returns a scalar publisher that completes without a value.
func Empty[T any]() core.Publisher[T] {
	return empty[T]{}
}

type empty[T any] struct{}

func (empty[T]) Call() (T, bool, error) {
	var zero T
	return zero, false, nil
}

func (empty[T]) Subscribe(s core.Subscriber[T]) {
	s.OnSubscribe(noopSubscription{})
	s.OnComplete()
}

// Error returns a publisher that fails with err as soon as it is
// subscribed.
func Error[T any](err error) core.Publisher[T] {
	return errorSource[T]{err: err}
}

type errorSource[T any] struct{ err error }

func (e errorSource[T]) Subscribe(s core.Subscriber[T]) {
	s.OnSubscribe(noopSubscription{})
	s.OnError(e.err)
}

// Callable returns a scalar publisher that evaluates call once per
// subscriber: ok=false completes empty, a non-nil error is terminal.
func Callable[T any](call func() (T, bool, error)) core.Publisher[T] {
	return callable[T]{call: call}
}

type callable[T any] struct {
	call func() (T, bool, error)
}

func (c callable[T]) Call() (T, bool, error) { return c.call() }

func (c callable[T]) Subscribe(s core.Subscriber[T]) {
	v, ok, err := c.call()
	if err != nil {
		s.OnSubscribe(noopSubscription{})
		s.OnError(err)
		return
	}
	if !ok {
		s.OnSubscribe(noopSubscription{})
		s.OnComplete()
		return
	}
	s.OnSubscribe(&scalarSubscription[T]{actual: s, v: v})
}

// scalarSubscription serves one value either by push (Request) or by pull
// (sync fusion).
type scalarSubscription[T any] struct {
	actual core.Subscriber[T]
	v      T
	state  atomic.Int32 // 0 fresh, 1 consumed, 2 cancelled
}

func (s *scalarSubscription[T]) Request(n int64) {
	if n <= 0 {
		return
	}
	if s.state.CompareAndSwap(0, 1) {
		s.actual.OnNext(s.v)
		if s.state.Load() != 2 {
			s.actual.OnComplete()
		}
	}
}

func (s *scalarSubscription[T]) Cancel() { s.state.Store(2) }

func (s *scalarSubscription[T]) RequestFusion(requested core.FusionMode) core.FusionMode {
	if requested&core.FusionSync != 0 {
		return core.FusionSync
	}
	return core.FusionNone
}

func (s *scalarSubscription[T]) Poll() (T, bool) {
	if s.state.CompareAndSwap(0, 1) {
		return s.v, true
	}
	var zero T
	return zero, false
}

func (s *scalarSubscription[T]) IsEmpty() bool { return s.state.Load() != 0 }

func (s *scalarSubscription[T]) Size() int {
	if s.state.Load() == 0 {
		return 1
	}
	return 0
}

func (s *scalarSubscription[T]) Clear(discard func(T)) {
	if s.state.CompareAndSwap(0, 1) && discard != nil {
		discard(s.v)
	}
}

// FromSlice returns a sync-fusable publisher of the given items.
func FromSlice[T any](items []T) core.Publisher[T] {
	return fromSlice[T]{items: items}
}

type fromSlice[T any] struct{ items []T }

func (f fromSlice[T]) Subscribe(s core.Subscriber[T]) {
	s.OnSubscribe(&sliceSubscription[T]{actual: s, items: f.items})
}

// Range returns a sync-fusable publisher of count consecutive integers
// starting at start.
func Range(start, count int) core.Publisher[int] {
	items := make([]int, count)
	for i := range items {
		items[i] = start + i
	}
	return fromSlice[int]{items: items}
}

// sliceSubscription walks a slice either by pull (sync fusion) or by a
// demand-driven push loop serialized through a work counter.
type sliceSubscription[T any] struct {
	actual core.Subscriber[T]
	items  []T

	index      atomic.Int64
	requested  atomic.Int64
	wip        atomic.Int32
	cancelled  atomic.Bool
	terminated atomic.Bool
	fused      atomic.Bool
}

func (s *sliceSubscription[T]) Request(n int64) {
	if n <= 0 || s.fused.Load() || s.terminated.Load() {
		// Sync-fused consumers pull; their requests are ignored.
		return
	}
	addCap(&s.requested, n)
	if s.wip.Add(1) != 1 {
		return
	}
	s.drainLoop()
}

func (s *sliceSubscription[T]) drainLoop() {
	missed := int32(1)
	for {
		r := s.requested.Load()
		var e int64
		for e != r {
			if s.cancelled.Load() {
				return
			}
			i := s.index.Load()
			if i == int64(len(s.items)) {
				s.terminated.Store(true)
				s.actual.OnComplete()
				return
			}
			s.actual.OnNext(s.items[i])
			s.index.Store(i + 1)
			e++
		}
		if s.index.Load() == int64(len(s.items)) {
			if !s.cancelled.Load() {
				s.terminated.Store(true)
				s.actual.OnComplete()
			}
			return
		}
		if e != 0 {
			subCap(&s.requested, e)
		}
		missed = s.wip.Add(-missed)
		if missed == 0 {
			return
		}
	}
}

func (s *sliceSubscription[T]) Cancel() { s.cancelled.Store(true) }

func (s *sliceSubscription[T]) RequestFusion(requested core.FusionMode) core.FusionMode {
	if requested&core.FusionSync != 0 {
		s.fused.Store(true)
		return core.FusionSync
	}
	return core.FusionNone
}

func (s *sliceSubscription[T]) Poll() (T, bool) {
	var zero T
	i := s.index.Load()
	if i >= int64(len(s.items)) || s.cancelled.Load() {
		return zero, false
	}
	s.index.Store(i + 1)
	return s.items[i], true
}

func (s *sliceSubscription[T]) IsEmpty() bool {
	return s.index.Load() >= int64(len(s.items))
}

func (s *sliceSubscription[T]) Size() int {
	n := int64(len(s.items)) - s.index.Load()
	if n < 0 {
		return 0
	}
	return int(n)
}

func (s *sliceSubscription[T]) Clear(discard func(T)) {
	for {
		v, ok := s.Poll()
		if !ok {
			return
		}
		if discard != nil {
			discard(v)
		}
	}
}

// Hide conceals the scalar and fusion capabilities of p, forcing consumers
// onto the plain push path. Useful to verify that fusion is a pure
// optimization.
func Hide[T any](p core.Publisher[T]) core.Publisher[T] {
	return hide[T]{source: p}
}

type hide[T any] struct{ source core.Publisher[T] }

func (h hide[T]) Subscribe(s core.Subscriber[T]) {
	h.source.Subscribe(&hideSubscriber[T]{actual: s})
}

type hideSubscriber[T any] struct {
	actual core.Subscriber[T]
}

func (h *hideSubscriber[T]) OnSubscribe(s core.Subscription) {
	h.actual.OnSubscribe(plainSubscription{s: s})
}

func (h *hideSubscriber[T]) OnNext(v T)        { h.actual.OnNext(v) }
func (h *hideSubscriber[T]) OnError(err error) { h.actual.OnError(err) }
func (h *hideSubscriber[T]) OnComplete()       { h.actual.OnComplete() }

// plainSubscription strips any fusion capability from the wrapped
// subscription.
type plainSubscription struct{ s core.Subscription }

func (p plainSubscription) Request(n int64) { p.s.Request(n) }
func (p plainSubscription) Cancel()         { p.s.Cancel() }

// FromChannel returns a publisher that pushes values read from ch, one
// goroutine per subscriber, honoring demand. The stream completes when ch
// is closed.
func FromChannel[T any](ch <-chan T) core.Publisher[T] {
	return fromChannel[T]{ch: ch}
}

type fromChannel[T any] struct{ ch <-chan T }

func (f fromChannel[T]) Subscribe(s core.Subscriber[T]) {
	sub := &channelSubscription[T]{
		actual: s,
		ch:     f.ch,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	s.OnSubscribe(sub)
	go sub.run()
}

type channelSubscription[T any] struct {
	actual core.Subscriber[T]
	ch     <-chan T

	requested  atomic.Int64
	cancelOnce atomic.Bool
	wake       chan struct{}
	done       chan struct{}
}

func (c *channelSubscription[T]) Request(n int64) {
	if n <= 0 {
		return
	}
	addCap(&c.requested, n)
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *channelSubscription[T]) Cancel() {
	if c.cancelOnce.Swap(true) {
		return
	}
	close(c.done)
}

func (c *channelSubscription[T]) run() {
	for {
		if c.requested.Load() == 0 {
			select {
			case <-c.wake:
				continue
			case <-c.done:
				return
			}
		}
		select {
		case v, ok := <-c.ch:
			if !ok {
				c.actual.OnComplete()
				return
			}
			c.actual.OnNext(v)
			subCap(&c.requested, 1)
		case <-c.done:
			return
		}
	}
}
