package reactor

import (
	"sync/atomic"

	"github.com/rajinisivaram/reactor-core/core"
)

// errorNode is one immutable state of the aggregator. States advance by
// compare-and-swap only; a losing writer retries against the fresh state or
// learns the aggregator has already been consumed.
type errorNode struct {
	causes []error
}

// consumed marks an aggregator whose error has been handed to the
// downstream. Anything latched afterwards belongs to the dropped hooks.
var consumed = new(errorNode)

// errorAggregator is the terminal-failure store: a single slot under
// fail-fast, an ordered cause list under delay-error.
type errorAggregator struct {
	state atomic.Pointer[errorNode]
}

// latch records err, returning false when it can no longer be accepted:
// under fail-fast a second error loses to the first writer, and after the
// terminal signal was emitted nothing is accepted. Callers route refused
// errors to the dropped-error hook.
func (a *errorAggregator) latch(err error, delay bool) bool {
	for {
		cur := a.state.Load()
		if cur == consumed {
			return false
		}
		if cur != nil && !delay {
			return false
		}
		var next *errorNode
		if cur == nil {
			next = &errorNode{causes: []error{err}}
		} else {
			causes := make([]error, len(cur.causes)+1)
			copy(causes, cur.causes)
			causes[len(cur.causes)] = err
			next = &errorNode{causes: causes}
		}
		if a.state.CompareAndSwap(cur, next) {
			return true
		}
	}
}

// hasError reports whether a failure is latched and still undelivered.
func (a *errorAggregator) hasError() bool {
	cur := a.state.Load()
	return cur != nil && cur != consumed
}

// peek returns the failure that would currently terminate the merge,
// without consuming it. Used by the diagnostic surface.
func (a *errorAggregator) peek() error {
	cur := a.state.Load()
	if cur == nil || cur == consumed {
		return nil
	}
	return cur.unwrap()
}

// consume atomically takes the latched failure for delivery downstream.
// It returns nil when nothing was latched; either way the aggregator is
// sealed afterwards.
func (a *errorAggregator) consume() error {
	for {
		cur := a.state.Load()
		if cur == consumed {
			return nil
		}
		if a.state.CompareAndSwap(cur, consumed) {
			if cur == nil {
				return nil
			}
			return cur.unwrap()
		}
	}
}

func (n *errorNode) unwrap() error {
	if len(n.causes) == 1 {
		return n.causes[0]
	}
	return core.AggregateError{Causes: n.causes}
}
