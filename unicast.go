package reactor

import (
	"sync/atomic"

	"github.com/rajinisivaram/reactor-core/core"
	"github.com/rajinisivaram/reactor-core/queue"
)

// Unicast is a single-subscriber processor: values pushed by the producer
// side are buffered in an unbounded queue and replayed to the one
// downstream subscriber, honoring its demand. Consumers that negotiate
// async fusion poll the buffer directly and receive only readiness
// signals.
type Unicast[T any] struct {
	q *queue.Growable[T]

	actual    atomic.Pointer[subscriberBox[T]]
	requested atomic.Int64
	wip       atomic.Int32
	fused     atomic.Bool
	done      atomic.Bool
	failure   atomic.Pointer[errorBox]
	cancelled atomic.Bool
	once      atomic.Bool
}

type subscriberBox[T any] struct{ s core.Subscriber[T] }

type errorBox struct{ err error }

// NewUnicast returns an empty processor ready for pushes and a single
// Subscribe.
func NewUnicast[T any]() *Unicast[T] {
	return &Unicast[T]{q: queue.NewGrowable[T]()}
}

// Push buffers v for the subscriber. It reports false when the processor
// has already terminated or been cancelled, in which case v is dropped.
func (u *Unicast[T]) Push(v T) bool {
	if u.done.Load() || u.cancelled.Load() {
		return false
	}
	u.q.Offer(v)
	u.drain()
	return true
}

// Complete marks the end of the stream. Buffered values are still
// delivered first.
func (u *Unicast[T]) Complete() {
	if u.done.Swap(true) {
		return
	}
	u.drain()
}

// Fail terminates the stream with err once buffered values have been
// delivered.
func (u *Unicast[T]) Fail(err error) {
	if u.done.Load() || u.cancelled.Load() {
		return
	}
	u.failure.Store(&errorBox{err: err})
	u.done.Store(true)
	u.drain()
}

func (u *Unicast[T]) Subscribe(s core.Subscriber[T]) {
	if u.once.Swap(true) {
		s.OnSubscribe(noopSubscription{})
		s.OnError(core.ErrDuplicateSubscription)
		return
	}
	u.actual.Store(&subscriberBox[T]{s: s})
	s.OnSubscribe(u)
	u.drain()
}

func (u *Unicast[T]) Request(n int64) {
	if n <= 0 {
		return
	}
	addCap(&u.requested, n)
	u.drain()
}

func (u *Unicast[T]) Cancel() {
	if u.cancelled.Swap(true) {
		return
	}
	if u.wip.Add(1) == 1 {
		u.q.Clear(nil)
		u.actual.Store(nil)
	}
}

func (u *Unicast[T]) RequestFusion(requested core.FusionMode) core.FusionMode {
	if requested&core.FusionAsync != 0 {
		u.fused.Store(true)
		return core.FusionAsync
	}
	return core.FusionNone
}

func (u *Unicast[T]) Poll() (T, bool)       { return u.q.Poll() }
func (u *Unicast[T]) IsEmpty() bool         { return u.q.IsEmpty() }
func (u *Unicast[T]) Size() int             { return u.q.Size() }
func (u *Unicast[T]) Clear(discard func(T)) { u.q.Clear(discard) }

func (u *Unicast[T]) drain() {
	if u.wip.Add(1) != 1 {
		return
	}
	if u.fused.Load() {
		u.drainFused()
		return
	}
	u.drainLoop()
}

// drainFused forwards readiness only: the subscriber polls the buffer
// itself, so the terminal signal may arrive while items remain queued.
func (u *Unicast[T]) drainFused() {
	missed := int32(1)
	for {
		if u.cancelled.Load() {
			u.q.Clear(nil)
			u.actual.Store(nil)
			return
		}
		box := u.actual.Load()
		if box != nil {
			d := u.done.Load()
			var zero T
			box.s.OnNext(zero)
			if d {
				u.actual.Store(nil)
				if f := u.failure.Load(); f != nil {
					box.s.OnError(f.err)
				} else {
					box.s.OnComplete()
				}
				return
			}
		}
		missed = u.wip.Add(-missed)
		if missed == 0 {
			return
		}
	}
}

func (u *Unicast[T]) drainLoop() {
	missed := int32(1)
	for {
		box := u.actual.Load()
		if box != nil {
			r := u.requested.Load()
			var e int64
			for e != r {
				if u.cancelled.Load() {
					u.q.Clear(nil)
					u.actual.Store(nil)
					return
				}
				d := u.done.Load()
				v, ok := u.q.Poll()
				if !ok {
					if d {
						u.terminate(box)
						return
					}
					break
				}
				box.s.OnNext(v)
				e++
			}
			if e == r && u.done.Load() && u.q.IsEmpty() {
				if u.cancelled.Load() {
					u.q.Clear(nil)
					u.actual.Store(nil)
					return
				}
				u.terminate(box)
				return
			}
			if e != 0 {
				subCap(&u.requested, e)
			}
		}
		missed = u.wip.Add(-missed)
		if missed == 0 {
			return
		}
	}
}

func (u *Unicast[T]) terminate(box *subscriberBox[T]) {
	u.actual.Store(nil)
	if f := u.failure.Load(); f != nil {
		box.s.OnError(f.err)
		return
	}
	box.s.OnComplete()
}
