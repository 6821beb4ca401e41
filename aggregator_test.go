package reactor

import (
	"errors"
	"testing"

	"github.com/rajinisivaram/reactor-core/core"
)

func TestAggregator_FailFastFirstWriterWins(t *testing.T) {
	var a errorAggregator
	e1 := errors.New("first")
	e2 := errors.New("second")

	if !a.latch(e1, false) {
		t.Fatal("first error should be accepted")
	}
	if a.latch(e2, false) {
		t.Fatal("second error should be refused under fail-fast")
	}
	if got := a.consume(); got != e1 {
		t.Fatalf("expected first error, got %v", got)
	}
}

func TestAggregator_DelayCollectsInOrder(t *testing.T) {
	var a errorAggregator
	e1 := errors.New("first")
	e2 := errors.New("second")
	e3 := errors.New("third")

	for _, e := range []error{e1, e2, e3} {
		if !a.latch(e, true) {
			t.Fatalf("error %v should be accepted under delay-error", e)
		}
	}

	got := a.consume()
	agg, ok := got.(core.AggregateError)
	if !ok {
		t.Fatalf("expected AggregateError, got %T", got)
	}
	if len(agg.Causes) != 3 {
		t.Fatalf("expected 3 causes, got %d", len(agg.Causes))
	}
	for i, want := range []error{e1, e2, e3} {
		if agg.Causes[i] != want {
			t.Fatalf("cause %d: expected %v, got %v", i, want, agg.Causes[i])
		}
	}
}

func TestAggregator_SingleCauseUnwrapped(t *testing.T) {
	var a errorAggregator
	e := errors.New("only")
	a.latch(e, true)
	if got := a.consume(); got != e {
		t.Fatalf("single cause should come back bare, got %v", got)
	}
}

func TestAggregator_SealedAfterConsume(t *testing.T) {
	var a errorAggregator
	a.latch(errors.New("boom"), true)
	if a.consume() == nil {
		t.Fatal("consume should return the latched error")
	}
	if a.latch(errors.New("late"), true) {
		t.Fatal("latch after consume should be refused")
	}
	if a.consume() != nil {
		t.Fatal("second consume should return nil")
	}
	if a.hasError() {
		t.Fatal("sealed aggregator should not report an error")
	}
}

func TestAggregator_PeekDoesNotConsume(t *testing.T) {
	var a errorAggregator
	if a.peek() != nil {
		t.Fatal("empty aggregator should peek nil")
	}
	e := errors.New("boom")
	a.latch(e, false)
	if a.peek() != e {
		t.Fatal("peek should return the latched error")
	}
	if !a.hasError() {
		t.Fatal("error should still be latched after peek")
	}
	if a.consume() != e {
		t.Fatal("consume after peek should still deliver")
	}
}
