package reactor

import (
	"sync"

	"github.com/rajinisivaram/reactor-core/core"
)

// SubscribeFunc attaches callback-based consumption to p with unbounded
// demand. Nil callbacks are skipped. The returned subscription can be used
// to cancel.
func SubscribeFunc[T any](p core.Publisher[T], onNext func(T), onError func(error), onComplete func()) core.Subscription {
	fs := &funcSubscriber[T]{onNext: onNext, onError: onError, onComplete: onComplete}
	p.Subscribe(fs)
	return fs
}

type funcSubscriber[T any] struct {
	onNext     func(T)
	onError    func(error)
	onComplete func()

	mu  sync.Mutex
	sub core.Subscription
}

func (f *funcSubscriber[T]) OnSubscribe(s core.Subscription) {
	f.mu.Lock()
	f.sub = s
	f.mu.Unlock()
	s.Request(core.Unbounded)
}

func (f *funcSubscriber[T]) OnNext(v T) {
	if f.onNext != nil {
		f.onNext(v)
	}
}

func (f *funcSubscriber[T]) OnError(err error) {
	if f.onError != nil {
		f.onError(err)
	}
}

func (f *funcSubscriber[T]) OnComplete() {
	if f.onComplete != nil {
		f.onComplete()
	}
}

func (f *funcSubscriber[T]) Request(n int64) {
	f.mu.Lock()
	s := f.sub
	f.mu.Unlock()
	if s != nil {
		s.Request(n)
	}
}

func (f *funcSubscriber[T]) Cancel() {
	f.mu.Lock()
	s := f.sub
	f.mu.Unlock()
	if s != nil {
		s.Cancel()
	}
}

// Collect drains p to completion with unbounded demand and returns
// everything it emitted. It blocks until the stream terminates.
func Collect[T any](p core.Publisher[T]) ([]T, error) {
	var (
		values []T
		rerr   error
	)
	done := make(chan struct{})
	SubscribeFunc(p,
		func(v T) { values = append(values, v) },
		func(err error) { rerr = err; close(done) },
		func() { close(done) },
	)
	<-done
	return values, rerr
}
