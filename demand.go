package reactor

import (
	"sync/atomic"

	"github.com/rajinisivaram/reactor-core/core"
)

// addCap adds n to a demand counter, saturating at core.Unbounded instead
// of overflowing. It returns the value before the addition.
func addCap(r *atomic.Int64, n int64) int64 {
	for {
		cur := r.Load()
		if cur == core.Unbounded {
			return cur
		}
		next := cur + n
		if next < 0 {
			next = core.Unbounded
		}
		if r.CompareAndSwap(cur, next) {
			return cur
		}
	}
}

// subCap subtracts n produced items from a demand counter. An unbounded
// counter stays unbounded; the counter never goes negative. It returns the
// value after the subtraction.
func subCap(r *atomic.Int64, n int64) int64 {
	for {
		cur := r.Load()
		if cur == core.Unbounded {
			return cur
		}
		next := cur - n
		if next < 0 {
			next = 0
		}
		if r.CompareAndSwap(cur, next) {
			return next
		}
	}
}
