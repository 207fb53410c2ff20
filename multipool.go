// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package forest

import (
	"sync"
	"sync/atomic"

	"github.com/go-amr/forest/internal/value"
)

// userDataPool is the per-forest pool allocating user-data values (spec.md
// §5's "fixed-size user-data blocks", generalized: V's layout is fixed by
// the type system rather than a runtime byte count). Only the owning
// process ever touches it; it is mutated during init/replace callbacks
// when a leaf is created, split, or merged away.
//
// Unlike the teacher's multiPool (separate sync.Pool sub-pools per node
// shape: internal/leaf/fringe), there is only one payload shape here, so a
// single sub-pool suffices; the live/total tracking is carried over
// unchanged and reported by Stats, the teacher's diagnostic for pool
// pressure during development. No Inspect metric reads it.
type userDataPool[V any] struct {
	sync.Pool

	totalAllocated atomic.Int64
	currentLive    atomic.Int64

	// zst records whether V is a zero-sized type (e.g. struct{}), in
	// which case every *V returned by Get points at the same runtime
	// zerobase address; pooling buys nothing but costs nothing either,
	// so this is purely informational (no code path reads it), the
	// same diagnostic the teacher's Fast[V] needs to
	// refuse ZST payloads outright, but here never a correctness issue
	// since forest leaves never alias through their *V the way Fast's
	// node layout does.
	zst bool
}

// newUserDataPool returns a pool whose zero value is produced by zero, a
// constructor for an empty/default V (usually just `func() V { var v V;
// return v }`, but left as a parameter so callers with an expensive
// default can override it).
func newUserDataPool[V any](zero func() V) *userDataPool[V] {
	p := &userDataPool[V]{zst: value.IsZST[V]()}
	p.New = func() any {
		p.totalAllocated.Add(1)
		v := zero()
		return &v
	}
	return p
}

// Get retrieves a *V from the pool, or allocates one via New if empty.
func (p *userDataPool[V]) Get() *V {
	if p == nil {
		var v V
		return &v
	}
	p.currentLive.Add(1)
	return p.Pool.Get().(*V)
}

// Put returns a *V to the pool for reuse once borrowGhostData has copied
// the ghost payload out of it.
func (p *userDataPool[V]) Put(v *V) {
	if p == nil {
		return
	}
	p.currentLive.Add(-1)
	var zero V
	*v = zero
	p.Pool.Put(v)
}

// Stats returns the number of currently live (checked-out) values and the
// total ever allocated. Inspect does not read it.
func (p *userDataPool[V]) Stats() (live, total int64) {
	if p == nil {
		return 0, 0
	}
	return p.currentLive.Load(), p.totalAllocated.Load()
}

// borrowGhostData runs build to produce the payload for a ghost quadrant
// that balance_ghost.go/balance_sort.go/balance_crosstree.go graft into a
// tree only for the lifetime of one balance round (spec.md §5's per-forest
// user-data pool, "mutated during init/replace"): the value is checked out
// of the pool, populated, copied into the leaf, and immediately returned,
// since the ghost itself is stripped again before the round ends and never
// needs its own surviving *V.
func (f *Forest[V]) borrowGhostData(build func() V) V {
	dp := f.data.Get()
	*dp = build()
	v := *dp
	f.data.Put(dp)
	return v
}
