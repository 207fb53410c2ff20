// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package forest

import (
	"context"
	"slices"
)

// Refine applies fn to every locally owned leaf, replacing any leaf for
// which fn returns true with its childrenCount(dim) children. If
// recursive is true, each new child is itself offered to fn again (down
// to QMaxLevel), matching p4est_refine's recursive flag; otherwise a
// leaf refines at most once per call. The refinement itself only touches
// this rank's leaves (spec.md §4.1), but the partition boundary is
// recomputed afterward via Allgather, so every rank must call Refine.
func (f *Forest[V]) Refine(recursive bool, fn RefineFunc[V], replace ReplaceFunc[V]) {
	for _, t := range f.Trees {
		f.refineTree(t, recursive, fn, replace)
	}
	f.revision++
	f.recomputePartition(context.Background())
}

func (f *Forest[V]) refineTree(t *Tree[V], recursive bool, fn RefineFunc[V], replace ReplaceFunc[V]) {
	in := t.Leaves()
	out := make([]Leaf[V], 0, len(in))

	// worklist seeded with the tree's current leaves; refining a child
	// immediately (recursive mode) pushes its children back onto the
	// worklist rather than the output.
	work := append([]Leaf[V](nil), in...)
	for len(work) > 0 {
		leaf := work[0]
		work = work[1:]

		if int(leaf.Level) >= QMaxLevel || !fn(f, t.ID, leaf.Quadrant, leaf.Data) {
			out = append(out, leaf)
			continue
		}

		children := leaf.Quadrant.Children(t.Dim)
		newLeaves := make([]Leaf[V], len(children))
		for i, c := range children {
			newLeaves[i] = Leaf[V]{Quadrant: c, Data: f.init(f, t.ID, c)}
		}
		if replace != nil {
			replace(f, t.ID, []Leaf[V]{leaf}, newLeaves)
		}
		if recursive {
			work = append(newLeaves, work...)
		} else {
			out = append(out, newLeaves...)
		}
	}
	slices.SortFunc(out, func(a, b Leaf[V]) int { return a.Quadrant.Compare(t.Dim, b.Quadrant) })
	t.Splice(out)
}
