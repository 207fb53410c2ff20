// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package forest

import (
	"context"
	"slices"

	"github.com/bits-and-blooms/bitset"

	"github.com/go-amr/forest/internal/comm"
)

// balanceGhost implements the ghost-layer protocol of spec.md §4.5. Each
// rank broadcasts its own leaves as boundary candidates, every peer folds
// the ones that land inside its own trees into its tree as foreign
// "ghost" quadrants, re-runs the local balance kernel so any own leaf
// that is now visibly too coarse gets split, and finally discards every
// ghost again — they were only ever borrowed for the comparison, never
// this rank's to keep.
//
// Two rounds run because a split produced against a first-round ghost can
// itself create a new violation the remote side only learns about after
// seeing this rank's now-finer boundary; p4est's own protocol likewise
// converges in exactly two exchanges rather than iterating to a network
// fixpoint.
func (f *Forest[V]) balanceGhost(ctx context.Context, ct ConnectType, replace ReplaceFunc[V]) error {
	if err := f.ghostRound(ctx, ct, replace, true); err != nil {
		return err
	}
	return f.ghostRound(ctx, ct, replace, false)
}

func (f *Forest[V]) ghostRound(ctx context.Context, ct ConnectType, replace ReplaceFunc[V], first bool) error {
	mine := f.encodeBoundary()
	gathered, err := f.Comm.Allgather(ctx, mine)
	if err != nil {
		return err
	}

	offsets := InsulationOffsets(f.Conn.Dim)
	bound := ct.maxCoDim(f.Conn.Dim)

	sent := 0
	territory := bitset.New(uint(len(gathered)))
	for _, t := range f.Trees {
		footprint := quadrantsOf(t.Leaves())

		if first {
			f.countLocalOnlySkipped(t, ct)
		}

		for rank, buf := range gathered {
			if comm.Rank(rank) == f.Comm.Rank() {
				continue
			}
			for _, rec := range comm.DecodeBoundary(buf) {
				recTree := TreeID(rec.Tree)
				q := Quadrant{X: rec.X, Y: rec.Y, Z: rec.Z, Level: rec.Level}
				if recTree == t.ID {
					sent++
					territory.Set(uint(rank))
					t.insertForeign(q, f.borrowGhostData(func() V { return f.init(f, t.ID, q) }))
					continue
				}
				// rec belongs to a different tree owned by a remote rank;
				// it can still border t across a tree-to-tree connectivity
				// transform, the same check crossTreeBalance runs locally.
				for _, img := range f.treeCrossingImages(recTree, q, offsets, bound) {
					if img.Tree != t.ID {
						continue
					}
					sent++
					territory.Set(uint(rank))
					t.insertForeign(img.Quadrant, f.borrowGhostData(func() V { return f.init(f, t.ID, img.Quadrant) }))
				}
			}
		}

		f.localBalance(t, ct, replace)
		t.keepOnly(footprint)
	}
	f.lastTerritory = territory

	if first {
		f.Inspect.addFirstRoundSent(sent)
	} else {
		f.Inspect.addSecondRoundSent(sent)
	}
	return nil
}

// insertForeign inserts a single leaf at its sorted position, used only
// to temporarily graft a ghost quadrant into the tree for one balance
// pass (never by any other caller: ordinary growth goes through
// Refine/Coarsen/Complete, which operate on the whole leaf slice at
// once).
func (t *Tree[V]) insertForeign(q Quadrant, data V) {
	i := t.LowerBound(q)
	t.leaves = slices.Insert(t.leaves, i, Leaf[V]{Quadrant: q, Data: data})
	t.levelCounts[q.Level]++
	if q.Level > t.maxLevel {
		t.maxLevel = q.Level
	}
}

// keepOnly discards every leaf not contained in footprint (the tree's own
// leaves as they stood before this balance round's ghosts were grafted
// in), undoing insertForeign's effect once the round's comparisons are
// done.
func (t *Tree[V]) keepOnly(footprint []Quadrant) {
	leaves := t.Leaves()
	out := make([]Leaf[V], 0, len(leaves))
	for _, l := range leaves {
		if _, ok := quadrantOwner(t.Dim, footprint, l.Quadrant); ok {
			out = append(out, l)
		}
	}
	t.Splice(out)
}

func quadrantsOf[V any](leaves []Leaf[V]) []Quadrant {
	out := make([]Quadrant, len(leaves))
	for i, l := range leaves {
		out[i] = l.Quadrant
	}
	return out
}

// quadrantOwner returns the footprint entry (assumed sorted and a
// complete tiling) whose cell contains q, if any.
func quadrantOwner(dim int, footprint []Quadrant, q Quadrant) (Quadrant, bool) {
	i, found := slices.BinarySearchFunc(footprint, q, func(a, b Quadrant) int { return a.Compare(dim, b) })
	if found {
		return footprint[i], true
	}
	if i > 0 && footprint[i-1].IsAncestor(dim, q) {
		return footprint[i-1], true
	}
	return Quadrant{}, false
}

// encodeBoundary packs every locally owned leaf, across every tree, into
// one flat buffer for this round's Allgather.
func (f *Forest[V]) encodeBoundary() []byte {
	var records []comm.BoundaryRecord
	for _, t := range f.Trees {
		for _, l := range t.Leaves() {
			records = append(records, comm.BoundaryRecord{
				Tree: int32(t.ID), X: l.X, Y: l.Y, Z: l.Z, Level: l.Level,
			})
		}
	}
	return comm.EncodeBoundary(records)
}

// countLocalOnlySkipped increments Inspect.LocalOnlySkipped once per local
// leaf whose entire insulation layer (within ct's bound) is covered by
// other leaves already present in t, i.e. no neighbor position needs a
// remote answer — p4est_comm_neighborhood_owned's "skipped" accounting
// (spec.md §9, SPEC_FULL.md §4), kept as a pure diagnostic: this
// implementation still broadcasts every boundary leaf every round (see the
// Allgather simplification documented on balanceGhost) rather than
// actually pruning the send, so the count reports what a scheduled-send
// protocol would have skipped without changing what is sent.
func (f *Forest[V]) countLocalOnlySkipped(t *Tree[V], ct ConnectType) {
	offsets := InsulationOffsets(t.Dim)
	bound := ct.maxCoDim(t.Dim)
	for _, leaf := range t.Leaves() {
		owned := true
		for _, off := range offsets {
			if off.CoDim > bound {
				continue
			}
			nq := leaf.Quadrant.Neighbor(off)
			if nq.OutOfRoot(t.Dim) {
				owned = false
				break
			}
			if _, ok := t.findCovering(nq); !ok {
				owned = false
				break
			}
		}
		if owned {
			f.Inspect.incLocalOnlySkipped()
		}
	}
}
