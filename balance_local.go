// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package forest

import "slices"

// localBalance enforces 2:1 balance within tree t alone, ignoring every
// other tree and every other process (spec.md §4.4's local kernel). It
// repeatedly finds, for every leaf, the insulation-layer neighbors
// admitted by ct; whenever the leaf covering a neighbor position is more
// than one level coarser, that coarser leaf is queued for a one-level
// split. Splitting shrinks the gap by exactly one level per pass, so the
// loop is a textbook fixpoint: it terminates because every split strictly
// reduces the sum of (leaf.Level - neighbor.Level) across all violating
// pairs, and that sum is bounded by QMaxLevel per leaf.
func (f *Forest[V]) localBalance(t *Tree[V], ct ConnectType, replace ReplaceFunc[V]) {
	offsets := InsulationOffsets(t.Dim)
	bound := ct.maxCoDim(t.Dim)

	for {
		leaves := t.Leaves()
		toSplit := make(map[int]bool)

		for _, leaf := range leaves {
			for _, off := range offsets {
				if off.CoDim > bound {
					continue
				}
				nq := leaf.Quadrant.Neighbor(off)
				if nq.OutOfRoot(t.Dim) {
					continue // crosses a tree or process boundary; not this kernel's job
				}
				j, ok := t.findCovering(nq)
				if !ok {
					continue
				}
				if int(leaves[j].Level) < int(leaf.Level)-1 {
					toSplit[j] = true
				}
			}
		}
		if len(toSplit) == 0 {
			live, _ := f.arena.Stats()
			f.Inspect.setArenaLive(live)
			return
		}

		out := make([]Leaf[V], 0, len(leaves)+3*len(toSplit))
		for i, leaf := range leaves {
			if !toSplit[i] {
				out = append(out, leaf)
				continue
			}
			// children are staged through the transient quadrant arena
			// rather than kept only in a local slice, per spec.md §9's
			// worklist note: every quadrant produced mid-operation but not
			// yet committed to a tree has an owning slot, not an implicit
			// stack frame.
			idxs := make([]int32, childrenCount(t.Dim))
			for k, c := range leaf.Quadrant.Children(t.Dim) {
				idxs[k] = f.arena.Alloc(c)
			}
			newLeaves := make([]Leaf[V], len(idxs))
			for k, idx := range idxs {
				c := f.arena.Get(idx)
				newLeaves[k] = Leaf[V]{Quadrant: c, Data: f.init(f, t.ID, c)}
				f.arena.Free(idx)
			}
			if replace != nil {
				replace(f, t.ID, []Leaf[V]{leaf}, newLeaves)
			}
			out = append(out, newLeaves...)
		}
		slices.SortFunc(out, func(a, b Leaf[V]) int { return a.Quadrant.Compare(t.Dim, b.Quadrant) })
		t.Splice(out)
		leaves = out
	}
}

// findCovering returns the index of the leaf whose cell contains or
// equals q: an exact match, q's actual ancestor already present as a
// leaf, or (only possible transiently, mid-balance) a leaf finer than q
// sharing its lower corner.
func (t *Tree[V]) findCovering(q Quadrant) (int, bool) {
	i := t.LowerBound(q)
	if i < t.Len() && t.At(i).Quadrant.IsEqual(q) {
		return i, true
	}
	if i > 0 && t.At(i-1).Quadrant.IsAncestor(t.Dim, q) {
		return i - 1, true
	}
	if i < t.Len() && q.IsAncestor(t.Dim, t.At(i).Quadrant) {
		return i, true
	}
	return 0, false
}
