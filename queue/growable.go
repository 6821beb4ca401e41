package queue

import "sync/atomic"

const segmentSize = 128

// segment is one fixed-size link of a Growable queue. Each slot carries a
// ready flag so the consumer never observes a partially published value.
type segment[T any] struct {
	vals  [segmentSize]T
	ready [segmentSize]atomic.Bool
	next  atomic.Pointer[segment[T]]
}

// Growable is an unbounded SPSC queue built from linked fixed-size
// segments. The producer appends a fresh segment when the current one
// fills; consumed segments are unlinked and left to the garbage collector.
type Growable[T any] struct {
	prodSeg *segment[T]
	prodIdx int

	consSeg *segment[T]
	consIdx int

	size atomic.Int64
}

// NewGrowable creates an empty unbounded queue.
func NewGrowable[T any]() *Growable[T] {
	s := &segment[T]{}
	return &Growable[T]{prodSeg: s, consSeg: s}
}

// Offer appends v. It always succeeds.
func (g *Growable[T]) Offer(v T) bool {
	s := g.prodSeg
	i := g.prodIdx
	s.vals[i] = v
	if i+1 == segmentSize {
		// Link the successor before publishing the slot so a consumer that
		// sees the last ready flag always finds the next segment.
		next := &segment[T]{}
		s.next.Store(next)
		g.prodSeg = next
		g.prodIdx = 0
	} else {
		g.prodIdx = i + 1
	}
	s.ready[i].Store(true)
	g.size.Add(1)
	return true
}

// Poll removes the oldest item, reporting false when empty.
func (g *Growable[T]) Poll() (T, bool) {
	var zero T
	s := g.consSeg
	i := g.consIdx
	if !s.ready[i].Load() {
		return zero, false
	}
	v := s.vals[i]
	s.vals[i] = zero
	if i+1 == segmentSize {
		// The producer links the successor before publishing the last slot.
		g.consSeg = s.next.Load()
		g.consIdx = 0
	} else {
		g.consIdx = i + 1
	}
	g.size.Add(-1)
	return v, true
}

func (g *Growable[T]) IsEmpty() bool {
	return g.size.Load() <= 0
}

func (g *Growable[T]) Size() int {
	n := g.size.Load()
	if n < 0 {
		return 0
	}
	return int(n)
}

// Clear drains the queue from the consumer side, handing every item to
// discard when non-nil.
func (g *Growable[T]) Clear(discard func(T)) {
	for {
		v, ok := g.Poll()
		if !ok {
			return
		}
		if discard != nil {
			discard(v)
		}
	}
}
