// Package queue provides the buffer implementations behind the merge
// engine: a bounded power-of-two ring and an unbounded segmented queue.
// Both are single-producer single-consumer; producers and consumers may
// live on different goroutines, with visibility guaranteed by atomic
// position counters.
package queue

import "sync/atomic"

// Ring is a bounded SPSC ring buffer. Offer fails once capacity items are
// buffered; it never blocks and never grows.
type Ring[T any] struct {
	buf  []T
	mask uint64
	cap  uint64

	head atomic.Uint64 // consumer position
	tail atomic.Uint64 // producer position
}

// NewRing creates a ring holding exactly capacity items. capacity must be
// at least 1; the backing array is rounded up to a power of two but Offer
// still refuses the capacity+1'th item.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	n := 1
	for n < capacity {
		n <<= 1
	}
	return &Ring[T]{
		buf:  make([]T, n),
		mask: uint64(n - 1),
		cap:  uint64(capacity),
	}
}

// Offer appends v, reporting false when the ring is full.
func (r *Ring[T]) Offer(v T) bool {
	tail := r.tail.Load()
	if tail-r.head.Load() >= r.cap {
		return false
	}
	r.buf[tail&r.mask] = v
	r.tail.Store(tail + 1)
	return true
}

// Poll removes the oldest item, reporting false when empty.
func (r *Ring[T]) Poll() (T, bool) {
	var zero T
	head := r.head.Load()
	if head >= r.tail.Load() {
		return zero, false
	}
	v := r.buf[head&r.mask]
	r.buf[head&r.mask] = zero
	r.head.Store(head + 1)
	return v, true
}

func (r *Ring[T]) IsEmpty() bool {
	return r.head.Load() >= r.tail.Load()
}

func (r *Ring[T]) Size() int {
	d := r.tail.Load() - r.head.Load()
	return int(d)
}

// Clear drains the ring from the consumer side, handing every item to
// discard when non-nil. It is safe against a concurrent Offer.
func (r *Ring[T]) Clear(discard func(T)) {
	for {
		v, ok := r.Poll()
		if !ok {
			return
		}
		if discard != nil {
			discard(v)
		}
	}
}
