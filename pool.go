// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package forest

import "sync/atomic"

// quadrantArena is the per-forest pool of transient quadrant slots used
// by the local balance kernel's worklist (spec.md §5). Unlike the teacher's
// sync.Pool of *node[V] (shared-ownership pointers reused across
// goroutines), spec.md §9 asks for an arena or index-based scheme instead:
// every transient quadrant is a plain value living at an integer index
// into a single growable slice, with a free-list for reuse across
// operations. Every slot an operation allocates is freed again before that
// operation returns, matching the "freed before exit" resource rule of
// §5.
type quadrantArena struct {
	items []Quadrant
	free  []int32

	totalAllocated atomic.Int64
	currentLive    atomic.Int64
}

// newQuadrantArena returns an empty arena; New and Copy create one per
// forest.
func newQuadrantArena() *quadrantArena {
	return &quadrantArena{}
}

// Alloc stores q in the arena and returns its index, reusing a freed slot
// when one is available.
func (a *quadrantArena) Alloc(q Quadrant) int32 {
	a.currentLive.Add(1)
	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		a.items[idx] = q
		return idx
	}
	a.totalAllocated.Add(1)
	a.items = append(a.items, q)
	return int32(len(a.items) - 1)
}

// Get returns the quadrant stored at idx.
func (a *quadrantArena) Get(idx int32) Quadrant {
	return a.items[idx]
}

// Free returns the slot at idx to the free-list.
func (a *quadrantArena) Free(idx int32) {
	a.currentLive.Add(-1)
	a.free = append(a.free, idx)
}

// Reset releases every slot in the arena at once, the bulk equivalent of
// calling Free at the end of an operation whose worklist is fully drained.
func (a *quadrantArena) Reset() {
	a.currentLive.Store(0)
	a.items = a.items[:0]
	a.free = a.free[:0]
}

// Stats returns the number of currently live (checked-out) slots and the
// total number of slots ever allocated, for the Inspect hook.
func (a *quadrantArena) Stats() (live, total int64) {
	return a.currentLive.Load(), a.totalAllocated.Load()
}
