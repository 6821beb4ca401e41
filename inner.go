package reactor

import (
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/rajinisivaram/reactor-core/core"
)

// innerQueue pairs the pollable view the drain loop consumes with the
// offerable view the push path fills. For a fused source the queue is the
// source's own and offerable is nil.
type innerQueue[R any] struct {
	pollable core.Pollable[R]
	queue    core.Queue[R]
}

// subscriptionRef boxes a Subscription so it can live in an atomic pointer.
type subscriptionRef struct {
	s core.Subscription
}

// flatMapInner subscribes to one mapped sequence on behalf of the main
// coordinator: it negotiates fusion, buffers pushed items, tracks its own
// outstanding request and reports every signal back to the coordinator.
type flatMapInner[T, R any] struct {
	parent   *flatMapMain[T, R]
	prefetch int
	limit    int64
	id       string

	index int // registry slot, owned by the outer thread / drain loop

	sub     atomic.Pointer[subscriptionRef]
	queue   atomic.Pointer[innerQueue[R]]
	fusion  atomic.Uint32
	done    atomic.Bool
	failure atomic.Pointer[errorBox]

	cancelled atomic.Bool

	// produced counts items consumed since the last upstream replenish.
	// Only the drain-exclusive thread touches it.
	produced int64
}

func newFlatMapInner[T, R any](parent *flatMapMain[T, R], prefetch int) *flatMapInner[T, R] {
	return &flatMapInner[T, R]{
		parent:   parent,
		prefetch: prefetch,
		limit:    int64(prefetch - (prefetch >> 2)),
		id:       uuid.NewString(),
	}
}

func (in *flatMapInner[T, R]) OnSubscribe(s core.Subscription) {
	if !in.sub.CompareAndSwap(nil, &subscriptionRef{s: s}) {
		s.Cancel()
		in.parent.hooks.OnDroppedError(core.ErrDuplicateOnSubscribe)
		return
	}
	if in.parent.cancelled.Load() {
		s.Cancel()
		return
	}
	if qs, ok := s.(core.QueueSubscription[R]); ok {
		switch qs.RequestFusion(core.FusionAny) {
		case core.FusionSync:
			// Everything is already available: switch to pull-only mode.
			in.fusion.Store(uint32(core.FusionSync))
			in.queue.Store(&innerQueue[R]{pollable: qs})
			in.done.Store(true)
			in.parent.drain()
			return
		case core.FusionAsync:
			in.fusion.Store(uint32(core.FusionAsync))
			in.queue.Store(&innerQueue[R]{pollable: qs})
		}
	}
	s.Request(int64(in.prefetch))
}

func (in *flatMapInner[T, R]) OnNext(v R) {
	if core.FusionMode(in.fusion.Load()) == core.FusionAsync {
		// The value already sits in the fused queue; the signal only means
		// "there is something to poll".
		in.parent.drain()
		return
	}
	in.parent.tryEmit(in, v)
}

func (in *flatMapInner[T, R]) OnError(err error) {
	in.failure.Store(&errorBox{err: err})
	in.parent.innerError(in, err)
}

func (in *flatMapInner[T, R]) OnComplete() {
	if in.done.Swap(true) {
		return
	}
	in.parent.drain()
}

// replenish requests more from the inner source once enough consumed items
// accumulate, keeping at most prefetch in flight. Sync-fused sources are
// pull-only and never see a request.
func (in *flatMapInner[T, R]) replenish(n int64) {
	if core.FusionMode(in.fusion.Load()) == core.FusionSync {
		return
	}
	p := in.produced + n
	if p >= in.limit {
		in.produced = 0
		if ref := in.sub.Load(); ref != nil {
			ref.s.Request(p)
		}
	} else {
		in.produced = p
	}
}

// bufferQueue returns the push-mode buffer, creating it on first use. Only
// the inner source's thread calls this, so creation is single-writer.
func (in *flatMapInner[T, R]) bufferQueue() core.Queue[R] {
	if ref := in.queue.Load(); ref != nil {
		return ref.queue
	}
	q := in.parent.innerQueueFactory(in.prefetch)
	in.queue.Store(&innerQueue[R]{pollable: q, queue: q})
	return q
}

func (in *flatMapInner[T, R]) pollable() core.Pollable[R] {
	if ref := in.queue.Load(); ref != nil {
		return ref.pollable
	}
	return nil
}

func (in *flatMapInner[T, R]) cancel() {
	if in.cancelled.Swap(true) {
		return
	}
	if ref := in.sub.Load(); ref != nil {
		ref.s.Cancel()
	}
}

// Inner handles surface the same diagnostic view as the coordinator.

func (in *flatMapInner[T, R]) ID() string { return in.id }

func (in *flatMapInner[T, R]) Buffered() int {
	if p := in.pollable(); p != nil {
		return p.Size()
	}
	return 0
}

func (in *flatMapInner[T, R]) RequestedFromDownstream() int64 {
	return int64(in.prefetch) - in.produced
}

func (in *flatMapInner[T, R]) Terminated() bool { return in.done.Load() }

func (in *flatMapInner[T, R]) Cancelled() bool { return in.cancelled.Load() }

func (in *flatMapInner[T, R]) Prefetch() int { return in.prefetch }

func (in *flatMapInner[T, R]) Err() error {
	if f := in.failure.Load(); f != nil {
		return f.err
	}
	return nil
}
