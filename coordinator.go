package reactor

import (
	"fmt"
	"sync/atomic"

	"github.com/rajinisivaram/reactor-core/core"
)

// queueRef boxes a Queue so it can live in an atomic pointer.
type queueRef[R any] struct {
	q core.Queue[R]
}

// flatMapMain is the merge coordinator: the sole subscriber of the outer
// sequence and the sole emitter to the downstream. Every shared field is
// atomic; mutual exclusion on the emission path comes from the wip
// trampoline, never from a lock.
type flatMapMain[T, R any] struct {
	actual core.Subscriber[R]
	mapper func(T) core.Publisher[R]

	delayError     bool
	maxConcurrency int
	prefetch       int
	hooks          *core.Hooks

	mainQueueFactory  core.QueueFactory[R]
	innerQueueFactory core.QueueFactory[R]

	upstream atomic.Pointer[subscriptionRef]

	// wip is the trampoline work counter: a caller that raises it from
	// zero becomes the sole drainer; everyone else just records intent.
	wip       atomic.Int32
	requested atomic.Int64

	cancelled  atomic.Bool
	done       atomic.Bool // outer finished, or fail-fast latched
	terminated atomic.Bool
	fatal      atomic.Bool // overflow: terminate even under delay-error

	errs    errorAggregator
	scalars atomic.Pointer[queueRef[R]]
	inners  innerRegistry[T, R]

	// lastIndex is the round-robin cursor; drain-exclusive.
	lastIndex int
}

func newFlatMapMain[T, R any](actual core.Subscriber[R], mapper func(T) core.Publisher[R], o options[R]) *flatMapMain[T, R] {
	m := &flatMapMain[T, R]{
		actual:            actual,
		mapper:            mapper,
		delayError:        o.delayError,
		maxConcurrency:    o.maxConcurrency,
		prefetch:          o.prefetch,
		hooks:             o.hooks,
		mainQueueFactory:  o.mainQueue,
		innerQueueFactory: o.innerQueue,
	}
	m.inners.init()
	return m
}

func (m *flatMapMain[T, R]) upstreamSub() core.Subscription {
	if ref := m.upstream.Load(); ref != nil {
		return ref.s
	}
	return nil
}

// OnSubscribe accepts the outer subscription and primes it with one slot of
// demand per allowed concurrent inner, so outer items never outpace the
// registry bound.
func (m *flatMapMain[T, R]) OnSubscribe(s core.Subscription) {
	if !m.upstream.CompareAndSwap(nil, &subscriptionRef{s: s}) {
		s.Cancel()
		m.hooks.OnDroppedError(core.ErrDuplicateOnSubscribe)
		return
	}
	m.actual.OnSubscribe(m)
	if m.maxConcurrency == Unlimited {
		s.Request(core.Unbounded)
	} else {
		s.Request(int64(m.maxConcurrency))
	}
}

func (m *flatMapMain[T, R]) OnNext(t T) {
	if m.done.Load() {
		m.hooks.OnDroppedValue(t)
		return
	}
	p, err := m.applyMapper(t)
	if err != nil {
		m.mapFailure(err)
		return
	}
	if sc, ok := p.(core.ScalarSource[R]); ok {
		m.emitScalar(sc)
		return
	}
	inner := newFlatMapInner(m, m.prefetch)
	if m.cancelled.Load() {
		return
	}
	m.inners.add(inner)
	p.Subscribe(inner)
}

// applyMapper invokes the mapping function, converting a panic into a
// MapperError and a nil publisher into a NullItemError.
func (m *flatMapMain[T, R]) applyMapper(t T) (p core.Publisher[R], err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = core.MapperError{Cause: e}
			} else {
				err = core.MapperError{Cause: fmt.Errorf("%v", r)}
			}
			p = nil
		}
	}()
	p = m.mapper(t)
	if p == nil && err == nil {
		return nil, core.NullItemError{Origin: "mapper"}
	}
	return p, nil
}

// mapFailure latches a mapping failure through the same machinery as a
// source failure. Under delay-error the outer keeps producing, so the slot
// the bad item consumed is handed back to it.
func (m *flatMapMain[T, R]) mapFailure(err error) {
	if m.delayError {
		if !m.errs.latch(err, true) {
			m.hooks.OnDroppedError(err)
			return
		}
		if m.maxConcurrency != Unlimited {
			if s := m.upstreamSub(); s != nil {
				s.Request(1)
			}
		}
		m.drain()
		return
	}
	if m.errs.latch(err, false) {
		m.done.Store(true)
		if s := m.upstreamSub(); s != nil {
			s.Cancel()
		}
		m.drain()
	} else {
		m.hooks.OnDroppedError(err)
	}
}

// emitScalar serves a statically-known single value without the full inner
// subscription machinery.
func (m *flatMapMain[T, R]) emitScalar(sc core.ScalarSource[R]) {
	v, ok, err := sc.Call()
	if err != nil {
		m.mapFailure(err)
		return
	}
	if !ok {
		// Known-empty: the outer slot frees up immediately.
		if m.maxConcurrency != Unlimited {
			if s := m.upstreamSub(); s != nil {
				s.Request(1)
			}
		}
		m.drain()
		return
	}
	m.tryEmitScalar(v)
}

// tryEmitScalar emits v straight to the downstream when the trampoline is
// free, demand is available and nothing is queued ahead of it; otherwise it
// buffers v for the drain loop.
func (m *flatMapMain[T, R]) tryEmitScalar(v R) {
	if m.wip.CompareAndSwap(0, 1) {
		r := m.requested.Load()
		sq := m.scalarQueue()
		if r != 0 && (sq == nil || sq.IsEmpty()) {
			m.actual.OnNext(v)
			subCap(&m.requested, 1)
			if m.maxConcurrency != Unlimited {
				if s := m.upstreamSub(); s != nil {
					s.Request(1)
				}
			}
		} else {
			if !m.offerScalar(v) {
				m.latchOverflow("scalar source")
				m.drainLoop()
				return
			}
		}
		if m.wip.Add(-1) == 0 {
			return
		}
		m.drainLoop()
		return
	}
	if !m.offerScalar(v) {
		m.latchOverflow("scalar source")
	}
	m.drain()
}

// scalarQueue returns the buffered-scalar queue, or nil before first use.
func (m *flatMapMain[T, R]) scalarQueue() core.Queue[R] {
	if ref := m.scalars.Load(); ref != nil {
		return ref.q
	}
	return nil
}

// offerScalar buffers v, creating the queue on first use. Only the outer
// thread offers scalars, so creation is single-writer.
func (m *flatMapMain[T, R]) offerScalar(v R) bool {
	sq := m.scalarQueue()
	if sq == nil {
		capacity := m.maxConcurrency
		if m.maxConcurrency == Unlimited {
			capacity = 0
		}
		sq = m.mainQueueFactory(capacity)
		m.scalars.Store(&queueRef[R]{q: sq})
	}
	return sq.Offer(v)
}

// latchOverflow records a demand overflow. Overflow is always fatal, even
// under delay-error: a producer that ignores requests cannot be waited out.
func (m *flatMapMain[T, R]) latchOverflow(source string) {
	err := core.OverflowError{Source: source}
	if !m.errs.latch(err, m.delayError) {
		m.hooks.OnDroppedError(err)
	}
	m.fatal.Store(true)
	m.done.Store(true)
	if s := m.upstreamSub(); s != nil {
		s.Cancel()
	}
}

func (m *flatMapMain[T, R]) OnError(err error) {
	if m.done.Load() {
		m.hooks.OnDroppedError(err)
		return
	}
	if m.errs.latch(err, m.delayError) {
		m.done.Store(true)
		m.drain()
	} else {
		m.hooks.OnDroppedError(err)
	}
}

func (m *flatMapMain[T, R]) OnComplete() {
	if m.done.Swap(true) {
		return
	}
	m.drain()
}

// innerError routes a failed inner through the fail-fast or delay-error
// machinery. Under fail-fast the first error wins and everything else is
// torn down; concurrent losers surface only through the dropped-error hook.
func (m *flatMapMain[T, R]) innerError(inner *flatMapInner[T, R], err error) {
	if m.errs.latch(err, m.delayError) {
		inner.done.Store(true)
		if !m.delayError {
			m.done.Store(true)
			if s := m.upstreamSub(); s != nil {
				s.Cancel()
			}
		}
		m.drain()
		return
	}
	m.hooks.OnDroppedError(err)
	inner.done.Store(true)
	m.drain()
}

// tryEmit is the unfused inner fast path: emit straight through when the
// trampoline is free and demand allows, otherwise buffer and let the drain
// loop serve it in rotation.
func (m *flatMapMain[T, R]) tryEmit(inner *flatMapInner[T, R], v R) {
	if m.cancelled.Load() || m.terminated.Load() || inner.cancelled.Load() {
		m.hooks.OnDroppedValue(v)
		return
	}
	if m.wip.CompareAndSwap(0, 1) {
		r := m.requested.Load()
		p := inner.pollable()
		if r != 0 && (p == nil || p.IsEmpty()) {
			m.actual.OnNext(v)
			subCap(&m.requested, 1)
			inner.replenish(1)
		} else {
			if !inner.bufferQueue().Offer(v) {
				m.latchOverflow("inner source")
				m.drainLoop()
				return
			}
		}
		if m.wip.Add(-1) == 0 {
			return
		}
		m.drainLoop()
		return
	}
	if !inner.bufferQueue().Offer(v) {
		m.latchOverflow("inner source")
	}
	m.drain()
}

// Request implements the downstream subscription: it adds saturating demand
// and enters the drain loop.
func (m *flatMapMain[T, R]) Request(n int64) {
	if n <= 0 {
		m.hooks.OnDroppedError(core.ConfigurationError{
			Option: "request",
			Reason: fmt.Sprintf("must be positive, got %d", n),
		})
		return
	}
	addCap(&m.requested, n)
	m.drain()
}

// Cancel destroys the coordinator and every active inner immediately and
// unconditionally. Idempotent. Buffered items go to the dropped-value hook.
func (m *flatMapMain[T, R]) Cancel() {
	if m.cancelled.Swap(true) {
		return
	}
	if m.wip.Add(1) == 1 {
		// No drainer was active and none can start now: safe to tear down.
		if s := m.upstreamSub(); s != nil {
			s.Cancel()
		}
		m.discardAll()
	}
}

// drain enters the trampoline: the caller that moves wip off zero drains;
// everyone else has recorded intent and trusts the active drainer to
// re-check before leaving.
func (m *flatMapMain[T, R]) drain() {
	if m.wip.Add(1) != 1 {
		return
	}
	m.drainLoop()
}

// discardAll cancels every inner and routes all buffered values to the
// dropped-value hook. Only the thread that owns the trampoline calls it.
func (m *flatMapMain[T, R]) discardAll() {
	discard := func(v R) { m.hooks.OnDroppedValue(v) }
	if sq := m.scalarQueue(); sq != nil {
		sq.Clear(discard)
	}
	for _, slot := range m.inners.snapshot() {
		inner := slot.inner.Load()
		if inner == nil {
			continue
		}
		// Clear before cancelling: a sync-fused pollable is the upstream
		// subscription itself and stops serving once cancelled.
		if p := inner.pollable(); p != nil {
			p.Clear(discard)
		}
		inner.cancel()
	}
}

// checkTerminated resolves the terminal state for one drain step: cancel
// wins over everything; fail-fast fires as soon as an error is latched;
// delay-error waits until outer and inners are finished and buffers empty.
func (m *flatMapMain[T, R]) checkTerminated(d bool, empty bool) bool {
	if m.cancelled.Load() {
		if s := m.upstreamSub(); s != nil {
			s.Cancel()
		}
		m.discardAll()
		return true
	}
	if m.delayError && !m.fatal.Load() {
		if d && empty {
			m.terminated.Store(true)
			if err := m.errs.consume(); err != nil {
				m.actual.OnError(err)
			} else {
				m.actual.OnComplete()
			}
			return true
		}
		return false
	}
	if d {
		if m.errs.hasError() {
			err := m.errs.consume()
			m.terminated.Store(true)
			if s := m.upstreamSub(); s != nil {
				s.Cancel()
			}
			m.discardAll()
			m.actual.OnError(err)
			return true
		}
		if empty {
			m.terminated.Store(true)
			m.actual.OnComplete()
			return true
		}
	}
	return false
}

// drainLoop is the serialized emission path. One sweep serves buffered
// scalars first, then one round-robin rotation over the inner slots,
// advancing the cursor after each slot so no single fast inner starves the
// others. The loop re-runs while concurrent callers recorded intent.
func (m *flatMapMain[T, R]) drainLoop() {
	missed := int32(1)
	for {
		d := m.done.Load()
		slots := m.inners.snapshot()
		n := len(slots)
		sq := m.scalarQueue()
		noSources := m.inners.active() == 0
		if m.checkTerminated(d, noSources && (sq == nil || sq.IsEmpty())) {
			return
		}

		again := false
		r := m.requested.Load()
		var emitted int64
		var replenishMain int64

		if r != 0 && sq != nil {
			for emitted != r {
				d = m.done.Load()
				v, ok := sq.Poll()
				if m.checkTerminated(d, false) {
					return
				}
				if !ok {
					break
				}
				m.actual.OnNext(v)
				emitted++
			}
			if emitted != 0 {
				replenishMain += emitted
				r = subCap(&m.requested, emitted)
				emitted = 0
				again = true
			}
		}

		if r != 0 && !noSources {
			j := m.lastIndex
			if j >= n {
				j = 0
			}
			for i := 0; i < n; i++ {
				if m.cancelled.Load() {
					if s := m.upstreamSub(); s != nil {
						s.Cancel()
					}
					m.discardAll()
					return
				}
				inner := slots[j].inner.Load()
				if inner != nil {
					innerDone := inner.done.Load()
					p := inner.pollable()
					if innerDone && p == nil {
						m.inners.remove(inner.index)
						again = true
						replenishMain++
					} else if p != nil {
						for emitted != r {
							innerDone = inner.done.Load()
							v, ok := p.Poll()
							if m.checkTerminated(m.done.Load(), false) {
								return
							}
							if innerDone && !ok {
								m.inners.remove(inner.index)
								again = true
								replenishMain++
								break
							}
							if !ok {
								break
							}
							m.actual.OnNext(v)
							emitted++
						}
						if emitted == r && inner.done.Load() && p.IsEmpty() {
							m.inners.remove(inner.index)
							again = true
							replenishMain++
						}
						if emitted != 0 {
							if !inner.done.Load() {
								inner.replenish(emitted)
							}
							r = subCap(&m.requested, emitted)
							emitted = 0
						}
					}
				}
				// Advance past the slot just visited even when leaving on
				// exhausted demand, so the next sweep starts at its
				// neighbor instead of re-serving the same inner.
				j++
				if j == n {
					j = 0
				}
				if r == 0 {
					break
				}
			}
			m.lastIndex = j
		}

		if r == 0 && !noSources {
			// Zero demand still lets finished inners retire, which keeps
			// outer replenishment flowing.
			for _, slot := range m.inners.snapshot() {
				if m.cancelled.Load() {
					if s := m.upstreamSub(); s != nil {
						s.Cancel()
					}
					m.discardAll()
					return
				}
				inner := slot.inner.Load()
				if inner != nil && inner.done.Load() {
					p := inner.pollable()
					if p == nil || p.IsEmpty() {
						m.inners.remove(inner.index)
						again = true
						replenishMain++
					}
				}
			}
		}

		if replenishMain != 0 && m.maxConcurrency != Unlimited &&
			!m.done.Load() && !m.cancelled.Load() {
			if s := m.upstreamSub(); s != nil {
				s.Request(replenishMain)
			}
		}

		if again {
			continue
		}
		missed = m.wip.Add(-missed)
		if missed == 0 {
			return
		}
	}
}

// Diagnostic introspection surface; read-only, never consulted by the data
// path.

func (m *flatMapMain[T, R]) Buffered() int {
	total := 0
	if sq := m.scalarQueue(); sq != nil {
		total += sq.Size()
	}
	for _, slot := range m.inners.snapshot() {
		if inner := slot.inner.Load(); inner != nil {
			total += inner.Buffered()
		}
	}
	return total
}

func (m *flatMapMain[T, R]) RequestedFromDownstream() int64 {
	return m.requested.Load()
}

func (m *flatMapMain[T, R]) Terminated() bool { return m.terminated.Load() }

func (m *flatMapMain[T, R]) Cancelled() bool { return m.cancelled.Load() }

func (m *flatMapMain[T, R]) Prefetch() int { return m.prefetch }

func (m *flatMapMain[T, R]) Err() error { return m.errs.peek() }

// Inners returns the live inner handles for monitoring.
func (m *flatMapMain[T, R]) Inners() []core.InnerInspector {
	var out []core.InnerInspector
	for _, slot := range m.inners.snapshot() {
		if inner := slot.inner.Load(); inner != nil {
			out = append(out, inner)
		}
	}
	return out
}
