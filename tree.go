// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package forest

import (
	"slices"

	"github.com/go-amr/forest/internal/assert"
)

// Leaf is a quadrant carrying user data. The tree, Morton-sorted-sequence
// and transform tags that spec.md's original overloads onto pad8/pad16
// live elsewhere (internal/comm.BoundaryRecord during balance, TreeID on
// the containing Tree) rather than on Leaf itself, per spec.md §9's
// redesign note.
type Leaf[V any] struct {
	Quadrant
	Data V
}

// Tree is a finite, Morton-sorted, non-overlapping sequence of leaves
// whose union tiles Root. Contiguity is preserved deliberately (spec.md
// §9): a plain growable slice, not a pointer structure, so that
// Morton-sorted scans and binary search stay cache-friendly.
type Tree[V any] struct {
	ID   TreeID
	Dim  int
	Root Quadrant

	leaves []Leaf[V]

	levelCounts [QMaxLevel + 1]int
	maxLevel    int8

	firstDesc Quadrant
	lastDesc  Quadrant
}

// NewTree returns an empty tree rooted at root.
func NewTree[V any](id TreeID, dim int, root Quadrant) *Tree[V] {
	t := &Tree[V]{ID: id, Dim: dim, Root: root}
	t.firstDesc = root.FirstDescendant(QMaxLevel)
	t.lastDesc = root.LastDescendant(QMaxLevel)
	return t
}

// Len returns the number of leaves currently stored.
func (t *Tree[V]) Len() int { return len(t.leaves) }

// At returns the leaf at sorted position i.
func (t *Tree[V]) At(i int) Leaf[V] { return t.leaves[i] }

// Leaves returns the tree's sorted leaf sequence. Callers must not retain
// it across a mutating call.
func (t *Tree[V]) Leaves() []Leaf[V] { return t.leaves }

// MaxLevel returns the deepest level currently occupied by any leaf.
func (t *Tree[V]) MaxLevel() int8 { return t.maxLevel }

// LevelCount returns the number of leaves at the given level.
func (t *Tree[V]) LevelCount(level int8) int { return t.levelCounts[level] }

// FirstDescendant and LastDescendant return the tree's cached extreme
// corner leaves at QMaxLevel, independent of what is actually stored.
func (t *Tree[V]) FirstDescendant() Quadrant { return t.firstDesc }
func (t *Tree[V]) LastDescendant() Quadrant  { return t.lastDesc }

// compare orders two leaves by Morton compare, the sole ordering relation
// tree storage ever uses.
func (t *Tree[V]) compare(a, b Leaf[V]) int {
	return a.Quadrant.Compare(t.Dim, b.Quadrant)
}

// LowerBound returns the smallest index i such that t.At(i) does not sort
// strictly before q (first position where q could be inserted to keep the
// sequence sorted).
func (t *Tree[V]) LowerBound(q Quadrant) int {
	i, _ := slices.BinarySearchFunc(t.leaves, q, func(l Leaf[V], q Quadrant) int {
		return l.Quadrant.Compare(t.Dim, q)
	})
	return i
}

// UpperBound returns the smallest index i such that t.At(i) sorts strictly
// after q.
func (t *Tree[V]) UpperBound(q Quadrant) int {
	i := t.LowerBound(q)
	for i < len(t.leaves) && t.leaves[i].Quadrant.IsEqual(q) {
		i++
	}
	return i
}

// PushBack appends a leaf that is known to sort after every existing
// entry, in amortized-constant time. Panics (a programming error, per
// spec.md §7) if sortedness would be violated.
func (t *Tree[V]) PushBack(leaf Leaf[V]) {
	if n := len(t.leaves); n > 0 {
		assert.Invariant(t.leaves[n-1].Quadrant.Compare(t.Dim, leaf.Quadrant) < 0,
			"PushBack: leaf %+v does not sort after last leaf %+v", leaf.Quadrant, t.leaves[n-1].Quadrant)
	}
	t.leaves = append(t.leaves, leaf)
	t.levelCounts[leaf.Level]++
	if leaf.Level > t.maxLevel {
		t.maxLevel = leaf.Level
	}
}

// Range extracts (copies out) the leaves in [lo, hi), an O(n) operation
// over the extracted range only.
func (t *Tree[V]) Range(lo, hi int) []Leaf[V] {
	out := make([]Leaf[V], hi-lo)
	copy(out, t.leaves[lo:hi])
	return out
}

// Splice replaces the tree's entire leaf sequence with newLeaves, which
// must already be sorted; on a multi-rank forest it is only this rank's
// part of the tiling. It recomputes the level counts and maxlevel from the
// new sequence and keeps newLeaves itself as the storage (no copy), the
// way spec.md §4.2 describes tree storage's per-level bookkeeping.
func (t *Tree[V]) Splice(newLeaves []Leaf[V]) {
	t.levelCounts = [QMaxLevel + 1]int{}
	t.maxLevel = 0
	for _, l := range newLeaves {
		t.levelCounts[l.Level]++
		if l.Level > t.maxLevel {
			t.maxLevel = l.Level
		}
	}
	t.leaves = newLeaves
}

// IsComplete reports whether the tree's leaves are strictly Morton-sorted,
// pairwise non-overlapping, and tile Root exactly — spec.md §3 invariant
// 1, checked directly rather than assumed.
func (t *Tree[V]) IsComplete() bool {
	if len(t.leaves) == 0 {
		return false
	}
	for i, l := range t.leaves {
		if !l.Quadrant.IsValid(t.Dim) {
			return false
		}
		if i > 0 && t.leaves[i-1].Quadrant.Compare(t.Dim, l.Quadrant) >= 0 {
			return false
		}
	}
	if !t.leaves[0].Quadrant.FirstDescendant(QMaxLevel).IsEqual(t.Root.FirstDescendant(QMaxLevel)) {
		return false
	}
	last := t.leaves[len(t.leaves)-1]
	if !last.Quadrant.LastDescendant(QMaxLevel).IsEqual(t.Root.LastDescendant(QMaxLevel)) {
		return false
	}
	for i := 1; i < len(t.leaves); i++ {
		prevLast := t.leaves[i-1].Quadrant.LastDescendant(QMaxLevel)
		curFirst := t.leaves[i].Quadrant.FirstDescendant(QMaxLevel)
		if prevLast.Compare(t.Dim, curFirst) >= 0 {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the tree; V is cloned via Cloner[V] when it
// implements that interface (see cloner.go), otherwise copied by value.
func (t *Tree[V]) Clone() *Tree[V] {
	out := &Tree[V]{
		ID: t.ID, Dim: t.Dim, Root: t.Root,
		levelCounts: t.levelCounts, maxLevel: t.maxLevel,
		firstDesc: t.firstDesc, lastDesc: t.lastDesc,
	}
	out.leaves = make([]Leaf[V], len(t.leaves))
	for i, l := range t.leaves {
		out.leaves[i] = Leaf[V]{Quadrant: l.Quadrant, Data: cloneValue(l.Data)}
	}
	return out
}
