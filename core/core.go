package core

import "math"

// Unbounded is the demand sentinel. A subscriber that requests Unbounded
// items has opted out of backpressure; demand counters saturate at this
// value instead of overflowing.
const Unbounded int64 = math.MaxInt64

// Subscription is the link handed to a subscriber when it attaches to a
// publisher. Request and Cancel may be invoked from any goroutine.
type Subscription interface {
	// Request adds n to the subscriber's outstanding demand. n must be
	// positive; a non-positive n is a usage violation and is reported
	// through the dropped-error hook rather than honored.
	Request(n int64)

	// Cancel tears the subscription down. Idempotent; after the first call
	// the publisher must eventually stop signaling.
	Cancel()
}

// Subscriber receives the signals of one subscription: OnSubscribe exactly
// once before anything else, then zero or more OnNext calls, then at most
// one of OnError or OnComplete. Signals are never delivered concurrently.
type Subscriber[T any] interface {
	OnSubscribe(s Subscription)
	OnNext(v T)
	OnError(err error)
	OnComplete()
}

// Publisher is a source of zero or more values terminated by a completion
// or an error.
type Publisher[T any] interface {
	Subscribe(s Subscriber[T])
}

// FusionMode is the negotiated queue-fusion capability of a subscription.
// Modes form a bitmask so a consumer can ask for "any" and let the source
// answer with what it supports. The answer is resolved once, at subscribe
// time, and never changes.
type FusionMode uint8

const (
	// FusionNone means the source does not expose a pollable queue.
	FusionNone FusionMode = 0
	// FusionSync means every item is already available; the consumer may
	// switch to a pure pull loop and no push signals will arrive.
	FusionSync FusionMode = 1 << 0
	// FusionAsync means items still arrive via push notification but live
	// in the source's own queue, so the consumer polls instead of keeping
	// a duplicate buffer.
	FusionAsync FusionMode = 1 << 1
	// FusionAny requests whichever mode the source supports.
	FusionAny = FusionSync | FusionAsync
)

func (m FusionMode) String() string {
	switch m {
	case FusionSync:
		return "sync"
	case FusionAsync:
		return "async"
	case FusionAny:
		return "any"
	default:
		return "none"
	}
}

// Pollable is the consumer side of a queue: single consumer at a time.
type Pollable[T any] interface {
	// Poll removes and returns the next item, reporting false when empty.
	Poll() (T, bool)
	IsEmpty() bool
	Size() int
	// Clear drops every buffered item, passing each one to discard so the
	// caller can route it to a dropped-value hook. discard may be nil.
	Clear(discard func(T))
}

// Queue adds the producer side. Offer reports false when the queue is at
// capacity; callers treat that as a demand overflow, never as a retry hint.
type Queue[T any] interface {
	Pollable[T]
	Offer(v T) bool
}

// QueueFactory builds the buffer behind a merge stage. capacity <= 0 asks
// for an unbounded queue.
type QueueFactory[T any] func(capacity int) Queue[T]

// QueueSubscription is the fusion capability handshake. A subscription that
// also implements QueueSubscription lets its subscriber pull buffered items
// directly instead of being pushed-and-buffered a second time.
//
// Fusion is purely an optimization: observable values, ordering, completion
// and error behavior are identical whether or not it is negotiated.
type QueueSubscription[T any] interface {
	Subscription
	Pollable[T]

	// RequestFusion is called at most once, during OnSubscribe, with the
	// set of modes the consumer can operate in. The source answers with
	// the single mode it enters, or FusionNone.
	RequestFusion(requested FusionMode) FusionMode
}

// ScalarSource marks a publisher statically known to produce at most one
// value. Merge operators use it to bypass the full inner-subscription
// machinery and buffer the value directly.
type ScalarSource[T any] interface {
	Publisher[T]

	// Call evaluates the scalar. ok is false for a known-empty source.
	// A non-nil error is terminal and is latched exactly like a source
	// failure.
	Call() (v T, ok bool, err error)
}

// Inspector is a read-only, side-effect-free diagnostic surface exposed by
// merge coordinators and their inner handles. It exists for external
// monitoring only and is never consulted by the data path.
type Inspector interface {
	// Buffered reports the number of items currently held in queues.
	Buffered() int
	// RequestedFromDownstream reports outstanding downstream demand.
	RequestedFromDownstream() int64
	Terminated() bool
	Cancelled() bool
	Prefetch() int
	// Err returns the latched terminal error, if any.
	Err() error
}

// InnerInspector is the per-inner-sequence diagnostic view.
type InnerInspector interface {
	Inspector
	// ID returns the stable identifier assigned to the inner handle.
	ID() string
}
