// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package forest

import (
	"github.com/go-amr/forest/internal/assert"
	"github.com/go-amr/forest/internal/morton"
)

// Dim2 and Dim3 select the quadtree (2D) or octree (3D) coordinate algebra.
const (
	Dim2 = 2
	Dim3 = 3
)

// MaxLevel is the maximum refinement level a coordinate can be expressed at
// (M in spec terms); QMaxLevel is the deepest level a quadrant may actually
// occupy, one level shallower so that every quadrant still has room for at
// least one child.
const (
	MaxLevel  = morton.MaxLevel
	QMaxLevel = MaxLevel - 1
)

// childrenCount returns 2^dim, the number of children a quadrant of the
// given dimension has (4 for quadtrees, 8 for octrees).
func childrenCount(dim int) int {
	return 1 << uint(dim)
}

// Quadrant is an axis-aligned cell identified by its level and its
// coordinates in [0, 1<<MaxLevel); Z is unused (left 0) for 2D quadrants.
// An "extended" quadrant is one whose coordinates are allowed to range over
// [-1<<MaxLevel, 2<<MaxLevel) to express an off-tree neighbor mid-transform;
// ordinary quadrants never leave [0, 1<<MaxLevel).
type Quadrant struct {
	X, Y, Z int32
	Level   int8
}

// Quadrant itself is dimension-agnostic and has no Dim method: callers
// pass dim explicitly to every algebra function that needs it.

// sideLen returns the side length (in level-MaxLevel integer units) of a
// quadrant at the given level: 2^(MaxLevel-level).
func sideLen(level int8) int32 {
	return 1 << uint(MaxLevel-int(level))
}

// SideLen exports sideLen for callers outside the package (tree storage,
// balance) that need the cell width at a given level.
func SideLen(level int8) int32 { return sideLen(level) }

// coords returns the quadrant's dim coordinates as a slice, for use with
// the generic morton helpers.
func (q Quadrant) coords(dim int) []uint32 {
	c := make([]uint32, dim)
	c[0] = uint32(q.X)
	c[1] = uint32(q.Y)
	if dim == Dim3 {
		c[2] = uint32(q.Z)
	}
	return c
}

// IsValid reports whether q's coordinates are non-negative multiples of its
// side length within [0, 1<<MaxLevel), and its level lies in [0, QMaxLevel].
func (q Quadrant) IsValid(dim int) bool {
	if q.Level < 0 || int(q.Level) > QMaxLevel {
		return false
	}
	h := sideLen(q.Level)
	if q.X < 0 || q.X >= morton.MaxCoord || q.X%h != 0 {
		return false
	}
	if q.Y < 0 || q.Y >= morton.MaxCoord || q.Y%h != 0 {
		return false
	}
	if dim == Dim3 && (q.Z < 0 || q.Z >= morton.MaxCoord || q.Z%h != 0) {
		return false
	}
	return true
}

// axisWeight returns the child-id bit weight of coordinate axis (0=X,
// 1=Y, 2=Z) for the given dimension, matching morton.Interleave's
// per-level bit order (X packed most significant, then Y, then Z least
// significant): weight 1<<(dim-1-axis).
func axisWeight(dim, axis int) int {
	return 1 << uint(dim-1-axis)
}

// ChildID returns the quadrant's index (0..children-1) among its
// childrenCount(dim) siblings, derived from the bit of each coordinate just below
// the quadrant's own side length, weighted X-major to match the Morton
// order morton.Interleave/CompareCoords impose (X is the more significant
// coordinate at a given level, then Y, then Z).
func (q Quadrant) ChildID(dim int) int {
	assert.Invariant(q.Level > 0, "ChildID: root quadrant has no parent bit")
	h := sideLen(q.Level)
	id := 0
	if q.X&h != 0 {
		id |= axisWeight(dim, 0)
	}
	if q.Y&h != 0 {
		id |= axisWeight(dim, 1)
	}
	if dim == Dim3 && q.Z&h != 0 {
		id |= axisWeight(dim, 2)
	}
	return id
}

// Parent returns q's parent: clear the bit at the child's side length in
// each coordinate and decrement level. Panics if q is already a root
// (Level == 0), per spec.md §4.1.
func (q Quadrant) Parent() Quadrant {
	assert.Invariant(q.Level > 0, "Parent: quadrant at level 0 has no parent")
	h := sideLen(q.Level)
	return Quadrant{
		X:     q.X &^ h,
		Y:     q.Y &^ h,
		Z:     q.Z &^ h,
		Level: q.Level - 1,
	}
}

// Children returns q's children, indexed by child id (so the returned
// slice is already in Morton order: ChildID(dim) of out[id] is id).
func (q Quadrant) Children(dim int) []Quadrant {
	n := childrenCount(dim)
	out := make([]Quadrant, n)
	for id := 0; id < n; id++ {
		out[id] = q.Child(dim, id)
	}
	return out
}

// Child returns the single child of q with the given child id, without
// allocating the full sibling slice.
func (q Quadrant) Child(dim, id int) Quadrant {
	h := sideLen(q.Level + 1)
	c := Quadrant{X: q.X, Y: q.Y, Z: q.Z, Level: q.Level + 1}
	if id&axisWeight(dim, 0) != 0 {
		c.X += h
	}
	if id&axisWeight(dim, 1) != 0 {
		c.Y += h
	}
	if dim == Dim3 && id&axisWeight(dim, 2) != 0 {
		c.Z += h
	}
	return c
}

// Sibling returns the sibling of q (same parent) with the given child id.
func (q Quadrant) Sibling(dim, id int) Quadrant {
	assert.Invariant(q.Level > 0, "Sibling: quadrant at level 0 has no siblings")
	return q.Parent().Child(dim, id)
}

// FirstDescendant returns the extreme lower-corner descendant of q at
// level L (L >= q.Level).
func (q Quadrant) FirstDescendant(level int8) Quadrant {
	assert.Invariant(level >= q.Level, "FirstDescendant: level must be >= q.Level")
	return Quadrant{X: q.X, Y: q.Y, Z: q.Z, Level: level}
}

// LastDescendant returns the extreme upper-corner descendant of q at level
// L (L >= q.Level): q's own corner plus (side length at q.Level - side
// length at L) in every coordinate.
func (q Quadrant) LastDescendant(level int8) Quadrant {
	assert.Invariant(level >= q.Level, "LastDescendant: level must be >= q.Level")
	delta := sideLen(q.Level) - sideLen(level)
	return Quadrant{X: q.X + delta, Y: q.Y + delta, Z: q.Z + delta, Level: level}
}

// IsAncestor reports whether q is a strict ancestor of other (same tree
// frame; q.Level < other.Level and q contains other).
func (q Quadrant) IsAncestor(dim int, other Quadrant) bool {
	if q.Level >= other.Level {
		return false
	}
	h := sideLen(q.Level)
	return other.X&^(h-1) == q.X && other.Y&^(h-1) == q.Y &&
		(dim != Dim3 || other.Z&^(h-1) == q.Z)
}

// IsParent reports whether q is exactly the parent of other.
func (q Quadrant) IsParent(dim int, other Quadrant) bool {
	return other.Level == q.Level+1 && q.IsAncestor(dim, other)
}

// IsSibling reports whether q and other are distinct children of the same
// parent.
func (q Quadrant) IsSibling(dim int, other Quadrant) bool {
	if q.Level != other.Level || q.Level == 0 {
		return false
	}
	if q.IsEqual(other) {
		return false
	}
	return q.Parent().IsEqual(other.Parent())
}

// IsEqual reports whether q and other identify the same quadrant.
func (q Quadrant) IsEqual(other Quadrant) bool {
	return q.X == other.X && q.Y == other.Y && q.Z == other.Z && q.Level == other.Level
}

// Overlaps reports whether q and other's cells intersect (including one
// containing the other).
func (q Quadrant) Overlaps(dim int, other Quadrant) bool {
	return q.IsAncestor(dim, other) || other.IsAncestor(dim, q) || q.IsEqual(other)
}

// Compare implements the total Morton order: shallower-level-first
// tiebreak only matters when both quadrants share the same coordinates
// (one the ancestor of the other), in which case the coarser one (smaller
// level) sorts first, matching p4est's p4est_quadrant_compare.
func (q Quadrant) Compare(dim int, other Quadrant) int {
	a := q.coords(dim)
	b := other.coords(dim)
	if c := morton.CompareCoords(a, b); c != 0 {
		return c
	}
	switch {
	case q.Level < other.Level:
		return -1
	case q.Level > other.Level:
		return 1
	default:
		return 0
	}
}

// NearestCommonAncestor returns the finest quadrant containing both a and
// b: strip low bits from the shallower-extended coordinates until the
// remaining prefixes agree.
func NearestCommonAncestor(dim int, a, b Quadrant) Quadrant {
	level := a.Level
	if b.Level < level {
		level = b.Level
	}
	for level > 0 {
		h := sideLen(level)
		if a.X&^(h-1) == b.X&^(h-1) && a.Y&^(h-1) == b.Y&^(h-1) &&
			(dim != Dim3 || a.Z&^(h-1) == b.Z&^(h-1)) {
			break
		}
		level--
	}
	h := sideLen(level)
	return Quadrant{X: a.X &^ (h - 1), Y: a.Y &^ (h - 1), Z: a.Z &^ (h - 1), Level: level}
}

// LinearID returns the Morton linear id of q, expressed at reference level
// L (L >= q.Level): q's own coordinates padded with zero bits down to L.
func (q Quadrant) LinearID(dim int, level int8) morton.ID {
	assert.Invariant(level >= q.Level, "LinearID: level must be >= q.Level")
	return morton.Interleave(q.coords(dim), int(level))
}

// SetMorton builds the quadrant at the given level whose linear id (at that
// same level) is id. It is the inverse of LinearID when level == q.Level.
func SetMorton(dim int, level int8, id morton.ID) Quadrant {
	c := morton.Deinterleave(id, dim, int(level))
	q := Quadrant{X: int32(c[0]), Y: int32(c[1]), Level: level}
	if dim == Dim3 {
		q.Z = int32(c[2])
	}
	return q
}
