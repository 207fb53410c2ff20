// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

// Package forest implements a distributed forest of quadtrees/octrees with
// 2:1 balance, refine/coarsen/partition collective operations, and a
// ghost-layer exchange protocol — a Go-native, generic-payload rendering of
// the p4est forest-of-octrees model.
package forest

import (
	"context"
	"fmt"

	"github.com/bits-and-blooms/bitset"

	"github.com/go-amr/forest/internal/assert"
	"github.com/go-amr/forest/internal/comm"
)

// Forest is the top-level, per-process handle on a distributed collection
// of trees sharing one Connectivity. Every exported collective method
// (Refine, Coarsen, Balance, Partition) must be called by every rank in
// Communicator, in the same order, exactly once per logical step — the
// same contract p4est_refine/p4est_balance/p4est_partition carry.
type Forest[V any] struct {
	Comm  comm.Communicator
	Conn  *Connectivity
	Trees []*Tree[V]

	init    InitFunc[V]
	replace ReplaceFunc[V]

	minQuadrants int64
	revision     uint64

	partition *comm.Partition

	arena *quadrantArena
	data  *userDataPool[V]

	Inspect *Inspect

	// lastTerritory records which ranks actually contributed a ghost
	// quadrant during the most recent balanceGhost round, a dense bitmap
	// over rank indices. Exposed for diagnostics (LastTerritory); nil
	// until the first ghost-protocol round. Refine, Coarsen, Partition and
	// the sort variant never reset it.
	lastTerritory *bitset.BitSet
}

// LastTerritory reports which ranks this process exchanged ghost
// quadrants with during its most recent ghost-protocol Balance round, or
// nil if no such round has run yet. The sort variant does not update it,
// so after a sort-variant Balance it still reports the last
// ghost-protocol round.
func (f *Forest[V]) LastTerritory() *bitset.BitSet { return f.lastTerritory }

// New constructs a forest with one uniform-level-0 tree per entry of
// conn.NumTrees, owned entirely by rank 0 until the first Partition call —
// the same bootstrap sequence p4est_new uses before its first
// p4est_partition. minQuadrants is stored on the forest (and carried over
// by Copy) but no operation reads it: New does not refine to reach it,
// and neither Balance nor Partition applies a per-rank floor.
func New[V any](c comm.Communicator, conn *Connectivity, minQuadrants int64, init InitFunc[V], ins *Inspect) *Forest[V] {
	assert.Invariant(conn != nil, "New: connectivity must not be nil")
	assert.Invariant(init != nil, "New: InitFunc must not be nil")

	f := &Forest[V]{
		Comm:         c,
		Conn:         conn,
		Trees:        make([]*Tree[V], conn.NumTrees),
		init:         init,
		minQuadrants: minQuadrants,
		arena:        newQuadrantArena(),
		data:         newUserDataPool(func() V { var v V; return v }),
		Inspect:      ins,
	}
	for t := 0; t < conn.NumTrees; t++ {
		root := Quadrant{Level: 0}
		tr := NewTree[V](TreeID(t), conn.Dim, root)
		if c.Rank() == 0 {
			tr.PushBack(Leaf[V]{Quadrant: root, Data: init(f, TreeID(t), root)})
		}
		f.Trees[t] = tr
	}
	f.recomputePartition(context.Background())
	return f
}

// Copy returns a deep copy of f. If copyData is false, every leaf's
// payload is recreated via f's InitFunc instead of cloned, the Go
// counterpart of p4est_copy's copy_data flag (cheap structural copy when
// callers only need the tree shape, e.g. to snapshot before a speculative
// refine).
func (f *Forest[V]) Copy(copyData bool) *Forest[V] {
	out := &Forest[V]{
		Comm:         f.Comm,
		Conn:         f.Conn,
		Trees:        make([]*Tree[V], len(f.Trees)),
		init:         f.init,
		replace:      f.replace,
		minQuadrants: f.minQuadrants,
		revision:     f.revision,
		partition:    f.partition,
		arena:        newQuadrantArena(),
		data:         newUserDataPool(func() V { var v V; return v }),
		Inspect:      f.Inspect,
	}
	for i, t := range f.Trees {
		if copyData {
			out.Trees[i] = t.Clone()
			continue
		}
		fresh := NewTree[V](t.ID, t.Dim, t.Root)
		for _, l := range t.Leaves() {
			fresh.PushBack(Leaf[V]{Quadrant: l.Quadrant, Data: out.init(out, t.ID, l.Quadrant)})
		}
		out.Trees[i] = fresh
	}
	return out
}

// ResetData re-initializes every leaf's payload in place by calling
// InitFunc again, without changing tree shape or the partition — the
// counterpart of p4est_reset_data, useful when a caller's payload type
// changed meaning but the mesh itself did not.
func (f *Forest[V]) ResetData() {
	for _, t := range f.Trees {
		leaves := t.Leaves()
		for i := range leaves {
			leaves[i].Data = f.init(f, t.ID, leaves[i].Quadrant)
		}
	}
	f.revision++
}

// Revision returns the forest's monotonically increasing revision
// counter, bumped by every collective operation that can change leaf
// count or payload (Refine, Coarsen, Balance, Partition, ResetData). It
// exists for caller-side cache invalidation and grounds the checksum
// stability property of spec.md §8: the checksum only ever changes on a
// revision bump.
func (f *Forest[V]) Revision() uint64 { return f.revision }

// LocalQuadrantCount returns the number of leaves this rank currently
// owns, summed across every tree.
func (f *Forest[V]) LocalQuadrantCount() int64 {
	var n int64
	for _, t := range f.Trees {
		n += int64(t.Len())
	}
	return n
}

// GlobalQuadrantCount returns the total leaf count across every rank and
// tree, as of the last collective operation that refreshed the partition.
func (f *Forest[V]) GlobalQuadrantCount() int64 {
	if f.partition == nil {
		return f.LocalQuadrantCount()
	}
	return f.partition.Total()
}

// recomputePartition runs the Allreduce/Allgather p4est_comm_count_quadrants
// performs after any operation that can change local leaf counts,
// rebuilding the global_first_position-style boundary array.
func (f *Forest[V]) recomputePartition(ctx context.Context) {
	if f.Comm == nil {
		// a single-process forest (tests, or a degenerate 1-rank group)
		// still gets a partition so OwnerOf and GlobalQuadrantCount work.
		f.partition = comm.NewPartition([]int64{f.LocalQuadrantCount()})
		return
	}
	counts, err := f.Comm.Allgather(ctx, encodeCount(f.LocalQuadrantCount()))
	assert.Resource(err, "partition allgather")
	perRank := make([]int64, len(counts))
	for i, c := range counts {
		perRank[i] = decodeCount(c)
	}
	f.partition = comm.NewPartition(perRank)
}

func encodeCount(n int64) []byte {
	return []byte(fmt.Sprintf("%d", n))
}

func decodeCount(b []byte) int64 {
	var n int64
	fmt.Sscanf(string(b), "%d", &n)
	return n
}

// Tree returns the tree with the given id.
func (f *Forest[V]) Tree(id TreeID) *Tree[V] { return f.Trees[id] }

// Checksum is spec.md §8's testable checksum-stability property: a
// collision-resistant digest over every leaf's tree id, quadrant and
// payload (per-leaf digests XORed together), stable under any operation that does not change
// tree shape or payload content, and identical across partitions of the
// same global forest (computed locally per rank then combined, see
// checksum.go).
func (f *Forest[V]) Checksum(ctx context.Context, encode func(V) []byte) ([]byte, error) {
	return f.checksum(ctx, encode)
}
