// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package forest

import (
	"context"
	"slices"
)

// Coarsen scans each tree for maximal families (childrenCount(dim)
// siblings in child-id order, all present as leaves) and replaces a
// family with its parent whenever fn approves it. If recursive is true,
// a newly created parent is itself checked against its own siblings
// again, climbing toward the root — the mirror image of Refine's
// recursive descent. Like Refine, no leaf data crosses a process boundary
// here, but the partition boundary is refreshed afterward via Allgather,
// so every rank must call it.
func (f *Forest[V]) Coarsen(recursive bool, fn CoarsenFunc[V], replace ReplaceFunc[V]) {
	for _, t := range f.Trees {
		f.coarsenTree(t, recursive, fn, replace)
	}
	f.revision++
	f.recomputePartition(context.Background())
}

func (f *Forest[V]) coarsenTree(t *Tree[V], recursive bool, fn CoarsenFunc[V], replace ReplaceFunc[V]) {
	n := childrenCount(t.Dim)
	for {
		in := t.Leaves()
		out := make([]Leaf[V], 0, len(in))
		changed := false

		i := 0
		for i < len(in) {
			if family, ok := matchFamily(t.Dim, in, i, n); ok && fn(f, t.ID, family) {
				parent := family[0].Quadrant.Parent()
				incoming := []Leaf[V]{{Quadrant: parent, Data: f.init(f, t.ID, parent)}}
				if replace != nil {
					replace(f, t.ID, family, incoming)
				}
				out = append(out, incoming[0])
				i += n
				changed = true
				continue
			}
			out = append(out, in[i])
			i++
		}
		t.Splice(out)
		if !recursive || !changed {
			return
		}
	}
}

// matchFamily reports whether in[i:i+n] is a complete family: n
// consecutive same-level siblings sharing one parent, laid out in the
// same Morton order as parent.Children(dim), the only shape Coarsen is
// ever allowed to collapse. Matching against the parent's own
// Morton-sorted children (rather than raw child-id arithmetic) keeps this
// correct independent of how child ids happen to be numbered.
func matchFamily[V any](dim int, in []Leaf[V], i, n int) ([]Leaf[V], bool) {
	if i+n > len(in) {
		return nil, false
	}
	first := in[i].Quadrant
	if first.Level == 0 {
		return nil, false
	}
	parent := first.Parent()
	want := parent.Children(dim)
	slices.SortFunc(want, func(a, b Quadrant) int { return a.Compare(dim, b) })
	for k := 0; k < n; k++ {
		q := in[i+k].Quadrant
		if q.Level != first.Level || !q.Parent().IsEqual(parent) || !q.IsEqual(want[k]) {
			return nil, false
		}
	}
	return in[i : i+n], true
}
