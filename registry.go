package reactor

import "sync/atomic"

// innerSlot is one arena cell. Slots are allocated once and shared across
// registry growth, so a concurrent clear is always visible regardless of
// which snapshot of the slot table a reader holds.
type innerSlot[T, R any] struct {
	inner atomic.Pointer[flatMapInner[T, R]]
}

// freeNode is a Treiber-stack link of reclaimed slot indices.
type freeNode struct {
	idx  int
	next *freeNode
}

// innerRegistry is the table of currently subscribed inner sequences: a
// growable arena of fixed slots with a lock-free free list. Only the outer
// sequence's thread inserts (outer signals are serialized), but removal and
// iteration happen from whichever thread holds the drain trampoline, so
// every shared field is atomic.
type innerRegistry[T, R any] struct {
	slots atomic.Pointer[[]*innerSlot[T, R]]
	free  atomic.Pointer[freeNode]
	count atomic.Int32
}

const registryInitialSize = 8

func (reg *innerRegistry[T, R]) init() {
	slots := make([]*innerSlot[T, R], registryInitialSize)
	for i := range slots {
		slots[i] = &innerSlot[T, R]{}
	}
	reg.slots.Store(&slots)
	for i := registryInitialSize - 1; i >= 0; i-- {
		reg.push(i)
	}
}

func (reg *innerRegistry[T, R]) push(idx int) {
	n := &freeNode{idx: idx}
	for {
		head := reg.free.Load()
		n.next = head
		if reg.free.CompareAndSwap(head, n) {
			return
		}
	}
}

func (reg *innerRegistry[T, R]) pop() (int, bool) {
	for {
		head := reg.free.Load()
		if head == nil {
			return 0, false
		}
		if reg.free.CompareAndSwap(head, head.next) {
			return head.idx, true
		}
	}
}

// add claims a slot for inner, growing the arena when the free list is
// exhausted, and records the slot index on the handle. Single inserter.
func (reg *innerRegistry[T, R]) add(inner *flatMapInner[T, R]) {
	idx, ok := reg.pop()
	if !ok {
		idx = reg.grow()
	}
	inner.index = idx
	(*reg.slots.Load())[idx].inner.Store(inner)
	reg.count.Add(1)
}

// grow doubles the slot table, reusing the existing cells so in-flight
// readers and removers stay coherent, and returns one fresh index.
func (reg *innerRegistry[T, R]) grow() int {
	old := *reg.slots.Load()
	next := make([]*innerSlot[T, R], len(old)*2)
	copy(next, old)
	for i := len(old); i < len(next); i++ {
		next[i] = &innerSlot[T, R]{}
	}
	reg.slots.Store(&next)
	for i := len(next) - 1; i > len(old); i-- {
		reg.push(i)
	}
	return len(old)
}

// remove retires the inner at idx and returns its slot to the free pool.
func (reg *innerRegistry[T, R]) remove(idx int) {
	(*reg.slots.Load())[idx].inner.Store(nil)
	reg.count.Add(-1)
	reg.push(idx)
}

// snapshot returns the current slot table for one drain sweep.
func (reg *innerRegistry[T, R]) snapshot() []*innerSlot[T, R] {
	return *reg.slots.Load()
}

func (reg *innerRegistry[T, R]) active() int32 {
	return reg.count.Load()
}
