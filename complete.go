// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package forest

import (
	"context"
	"slices"
)

// Complete fills every gap in each tree's sparse leaf sequence with the
// minimal set of quadrants that makes the tree a complete tiling of its
// root again (spec.md §4.7). The ghost-layer protocol's merge step and the
// sort variant's boundary reduction both hand back a disjoint, sorted,
// but possibly incomplete representative set; Complete is what turns that
// back into a valid tree before the next operation runs. Every
// gap-filling leaf gets its data from InitFunc; replace is not called.
func (f *Forest[V]) Complete(replace ReplaceFunc[V]) {
	for _, t := range f.Trees {
		f.completeTree(t, replace)
	}
	f.revision++
	f.recomputePartition(context.Background())
}

func (f *Forest[V]) completeTree(t *Tree[V], replace ReplaceFunc[V]) {
	in := t.Leaves()
	out := make([]Leaf[V], 0, len(in))

	emit := func(lowBound, highBound *Quadrant) {
		for _, q := range fillGap(t.Dim, t.Root, lowBound, highBound) {
			leaf := Leaf[V]{Quadrant: q, Data: f.init(f, t.ID, q)}
			out = append(out, leaf)
		}
	}

	var prevLast *Quadrant
	for i := range in {
		next := in[i].Quadrant.FirstDescendant(QMaxLevel)
		emit(prevLast, &next)
		out = append(out, in[i])
		last := in[i].Quadrant.LastDescendant(QMaxLevel)
		prevLast = &last
	}
	emit(prevLast, nil)

	slices.SortFunc(out, func(a, b Leaf[V]) int { return a.Quadrant.Compare(t.Dim, b.Quadrant) })
	t.Splice(out)
}

// fillGap returns the maximal quadrants descending from node whose entire
// extent lies strictly between lowBound's last descendant and highBound's
// first descendant at QMaxLevel — a nil bound means unbounded on that
// side. This is a direct recursive descent rather than a linear scan:
// a node entirely inside the gap is emitted whole; a node entirely
// outside is pruned; a node straddling a boundary is split into its
// children and re-checked, terminating at QMaxLevel where every quadrant
// is a single linear-order unit.
func fillGap(dim int, node Quadrant, lowBound, highBound *Quadrant) []Quadrant {
	first := node.FirstDescendant(QMaxLevel)
	last := node.LastDescendant(QMaxLevel)

	if lowBound != nil && last.Compare(dim, *lowBound) <= 0 {
		return nil
	}
	if highBound != nil && first.Compare(dim, *highBound) >= 0 {
		return nil
	}

	insideLow := lowBound == nil || first.Compare(dim, *lowBound) > 0
	insideHigh := highBound == nil || last.Compare(dim, *highBound) < 0
	if insideLow && insideHigh {
		return []Quadrant{node}
	}
	if int(node.Level) >= QMaxLevel {
		return nil
	}

	var out []Quadrant
	for _, c := range node.Children(dim) {
		out = append(out, fillGap(dim, c, lowBound, highBound)...)
	}
	return out
}
