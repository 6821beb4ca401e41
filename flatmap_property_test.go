package reactor

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/rajinisivaram/reactor-core/core"
)

// Merging sync sources with unbounded concurrency and demand yields the
// exact concatenation of the mapped sequences.
func TestFlatMap_ConcatenationProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		outer := rapid.SliceOfN(rapid.IntRange(-100, 100), 0, 50).Draw(t, "outer")
		width := rapid.IntRange(0, 5).Draw(t, "width")

		var want []int
		for _, v := range outer {
			for i := 0; i < width; i++ {
				want = append(want, v+i)
			}
		}

		fm, err := NewFlatMap(
			FromSlice(outer),
			func(v int) core.Publisher[int] {
				items := make([]int, width)
				for i := range items {
					items[i] = v + i
				}
				return FromSlice(items)
			},
			WithMaxConcurrency[int](Unlimited),
		)
		if err != nil {
			t.Fatalf("construction failed: %v", err)
		}

		ts := newTestSubscriber[int](core.Unbounded)
		fm.Subscribe(ts)
		ts.await(t)

		if ts.Err() != nil {
			t.Fatalf("unexpected error: %v", ts.Err())
		}
		got := ts.Values()
		if len(got) != len(want) {
			t.Fatalf("expected %d values, got %d", len(want), len(got))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("position %d: expected %d, got %d", i, want[i], got[i])
			}
		}
	})
}

// Hiding fusion and scalar capabilities never changes the observable
// output.
func TestFlatMap_FusionTransparencyProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		outer := rapid.SliceOfN(rapid.IntRange(0, 50), 0, 20).Draw(t, "outer")

		run := func(hidden bool) []int {
			mapper := func(v int) core.Publisher[int] {
				p := FromSlice([]int{v, v * 2})
				if hidden {
					return Hide(p)
				}
				return p
			}
			source := core.Publisher[int](FromSlice(outer))
			if hidden {
				source = Hide(source)
			}
			fm, err := NewFlatMap(source, mapper)
			if err != nil {
				t.Fatalf("construction failed: %v", err)
			}
			ts := newTestSubscriber[int](core.Unbounded)
			fm.Subscribe(ts)
			ts.await(t)
			if ts.Err() != nil {
				t.Fatalf("unexpected error: %v", ts.Err())
			}
			return ts.Values()
		}

		fused := run(false)
		plain := run(true)
		if len(fused) != len(plain) {
			t.Fatalf("fused yielded %d values, plain %d", len(fused), len(plain))
		}
		for i := range fused {
			if fused[i] != plain[i] {
				t.Fatalf("position %d: fused %d, plain %d", i, fused[i], plain[i])
			}
		}
	})
}

// The engine never emits more than the downstream requested, and serves
// exactly what it can per request.
func TestFlatMap_DemandProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		outer := rapid.SliceOfN(rapid.IntRange(0, 100), 1, 20).Draw(t, "outer")
		requests := rapid.SliceOfN(rapid.Int64Range(1, 5), 1, 30).Draw(t, "requests")

		fm, err := NewFlatMap(
			FromSlice(outer),
			func(v int) core.Publisher[int] { return FromSlice([]int{v, v + 1}) },
		)
		if err != nil {
			t.Fatalf("construction failed: %v", err)
		}

		ts := newTestSubscriber[int](0)
		fm.Subscribe(ts)

		total := 2 * len(outer)
		var granted int64
		for _, r := range requests {
			ts.Request(r)
			granted += r
			want := int(granted)
			if want > total {
				want = total
			}
			if got := len(ts.Values()); got != want {
				t.Fatalf("after requesting %d: expected %d values, got %d", granted, want, got)
			}
		}
	})
}

// At most maxConcurrency inner sequences are subscribed at once: with
// inners that never finish, the mapper runs exactly min(len(outer), bound)
// times.
func TestFlatMap_ConcurrencyBoundProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 30).Draw(t, "outer length")
		bound := rapid.IntRange(1, 10).Draw(t, "bound")

		ch := make(chan int)
		calls := 0
		fm, err := NewFlatMap(
			Range(0, n),
			func(v int) core.Publisher[int] {
				calls++
				return FromChannel(ch)
			},
			WithMaxConcurrency[int](bound),
		)
		if err != nil {
			t.Fatalf("construction failed: %v", err)
		}

		ts := newTestSubscriber[int](core.Unbounded)
		fm.Subscribe(ts)

		want := n
		if bound < n {
			want = bound
		}
		if calls != want {
			t.Fatalf("expected %d concurrent subscriptions, got %d", want, calls)
		}

		// Releasing the inners lets the rest of the outer flow and the
		// whole merge complete.
		close(ch)
		ts.await(t)
		if !ts.Completed() {
			t.Fatalf("merge did not complete: %v", ts.Err())
		}
	})
}
