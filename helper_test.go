package reactor

import (
	"sync"
	"time"

	"github.com/rajinisivaram/reactor-core/core"
)

// failer is the slice of testing.TB that both *testing.T and *rapid.T
// satisfy, so the helpers below work in example-based and property tests
// alike.
type failer interface {
	Fatalf(format string, args ...any)
}

// testSubscriber records every signal and exposes manual demand control.
// initial demand is requested inside OnSubscribe; pass 0 to start with no
// demand at all.
type testSubscriber[T any] struct {
	initial int64

	mu         sync.Mutex
	sub        core.Subscription
	values     []T
	err        error
	completed  bool
	subscribes int

	done chan struct{}
}

func newTestSubscriber[T any](initial int64) *testSubscriber[T] {
	return &testSubscriber[T]{initial: initial, done: make(chan struct{})}
}

func (s *testSubscriber[T]) OnSubscribe(sub core.Subscription) {
	s.mu.Lock()
	s.sub = sub
	s.subscribes++
	s.mu.Unlock()
	if s.initial > 0 {
		sub.Request(s.initial)
	}
}

func (s *testSubscriber[T]) OnNext(v T) {
	s.mu.Lock()
	s.values = append(s.values, v)
	s.mu.Unlock()
}

func (s *testSubscriber[T]) OnError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil || s.completed {
		return
	}
	s.err = err
	close(s.done)
}

func (s *testSubscriber[T]) OnComplete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil || s.completed {
		return
	}
	s.completed = true
	close(s.done)
}

func (s *testSubscriber[T]) Request(n int64) {
	s.mu.Lock()
	sub := s.sub
	s.mu.Unlock()
	sub.Request(n)
}

func (s *testSubscriber[T]) Cancel() {
	s.mu.Lock()
	sub := s.sub
	s.mu.Unlock()
	sub.Cancel()
}

func (s *testSubscriber[T]) Subscription() core.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sub
}

func (s *testSubscriber[T]) Values() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]T, len(s.values))
	copy(out, s.values)
	return out
}

func (s *testSubscriber[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *testSubscriber[T]) Completed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed
}

func (s *testSubscriber[T]) await(t failer) {
	select {
	case <-s.done:
	case <-time.After(5 * time.Second):
		t.Fatalf("stream did not terminate: %d values, err=%v", len(s.Values()), s.Err())
	}
}

// publisherFunc adapts a function to the Publisher interface for scripted
// protocol-violation tests.
type publisherFunc[T any] func(core.Subscriber[T])

func (f publisherFunc[T]) Subscribe(s core.Subscriber[T]) { f(s) }

// rogueSource ignores granted demand: on the first request it pushes all
// of its items at once and never completes.
type rogueSource[T any] struct {
	items []T
}

func (r rogueSource[T]) Subscribe(s core.Subscriber[T]) {
	s.OnSubscribe(&rogueSubscription[T]{actual: s, items: r.items})
}

type rogueSubscription[T any] struct {
	actual core.Subscriber[T]
	items  []T
	fired  bool
}

func (r *rogueSubscription[T]) Request(int64) {
	if r.fired {
		return
	}
	r.fired = true
	for _, v := range r.items {
		r.actual.OnNext(v)
	}
}

func (r *rogueSubscription[T]) Cancel() {}
