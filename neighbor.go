// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package forest

// ConnectType is the co-dimension bound up to which 2:1 balance (or ghost
// exchange) is enforced: Face only, Face+Edge (3D only), or Full
// (face+edge+corner).
type ConnectType int8

const (
	ConnectFace ConnectType = iota
	ConnectEdge
	ConnectFull
)

// maxCoDim returns the largest neighbor co-dimension (1=face, 2=edge,
// dim=corner) that this connect type admits, for the given dimension.
func (c ConnectType) maxCoDim(dim int) int {
	switch c {
	case ConnectFace:
		return 1
	case ConnectEdge:
		return 2
	default:
		return dim
	}
}

// Bound returns the B ∈ {1, D+1, 2^D} value spec.md §4.4 uses to describe
// the local balance kernel's filter, derived from the connect type and
// dimension.
func (c ConnectType) Bound(dim int) int {
	switch c {
	case ConnectFace:
		return 1
	case ConnectEdge:
		return dim + 1
	default:
		return 1 << uint(dim)
	}
}

// NeighborOffset is one of the 3^dim-1 directions in a quadrant's
// insulation layer: a unit offset in each coordinate, plus the
// co-dimension (number of nonzero components) that classifies it as a
// face (1), edge (2, 3D only) or corner (dim) neighbor.
type NeighborOffset struct {
	DX, DY, DZ int32
	CoDim      int
	// Code is a stable index into the insulation enumeration, used to tag
	// boundary records during the ghost-layer protocol (spec.md §4.5).
	Code int
}

// InsulationOffsets enumerates every direction in a quadrant's 3^dim-1
// insulation layer (the one-ring of same-size neighbors), in a stable
// deterministic order matching p4est's m*9+k*3+l enumeration generalized to
// dim dimensions.
func InsulationOffsets(dim int) []NeighborOffset {
	var offsets []NeighborOffset
	code := 0
	zRange := []int32{0}
	if dim == Dim3 {
		zRange = []int32{-1, 0, 1}
	}
	for _, dz := range zRange {
		for _, dy := range [...]int32{-1, 0, 1} {
			for _, dx := range [...]int32{-1, 0, 1} {
				if dx == 0 && dy == 0 && dz == 0 {
					continue
				}
				codim := 0
				for _, d := range [...]int32{dx, dy, dz} {
					if d != 0 {
						codim++
					}
				}
				offsets = append(offsets, NeighborOffset{DX: dx, DY: dy, DZ: dz, CoDim: codim, Code: code})
				code++
			}
		}
	}
	return offsets
}

// Neighbor returns the (possibly extended, i.e. outside the tree root)
// quadrant adjacent to q in the given insulation direction: same level and
// size, shifted by one side length per nonzero offset component.
func (q Quadrant) Neighbor(off NeighborOffset) Quadrant {
	h := sideLen(q.Level)
	return Quadrant{
		X:     q.X + off.DX*h,
		Y:     q.Y + off.DY*h,
		Z:     q.Z + off.DZ*h,
		Level: q.Level,
	}
}

// FaceNeighbor returns q's same-size neighbor across face index f (2D:
// 0=-x,1=+x,2=-y,3=+y; 3D adds 4=-z,5=+z), possibly extended.
func (q Quadrant) FaceNeighbor(dim, f int) Quadrant {
	off := faceOffset(f)
	return q.Neighbor(off)
}

func faceOffset(f int) NeighborOffset {
	axis := f / 2
	dir := int32(1)
	if f%2 == 0 {
		dir = -1
	}
	off := NeighborOffset{CoDim: 1}
	switch axis {
	case 0:
		off.DX = dir
	case 1:
		off.DY = dir
	case 2:
		off.DZ = dir
	}
	return off
}

// EdgeNeighbor returns q's same-size neighbor across 3D edge index e
// (0..11), possibly extended. Valid only for octrees.
func (q Quadrant) EdgeNeighbor(e int) Quadrant {
	// edges are indexed by which axis runs along the edge (0=x,1=y,2=z)
	// and the 2-bit combination of the other two axes' signs.
	axis := e / 4
	bits := e % 4
	var dx, dy, dz int32
	s0, s1 := int32(1), int32(1)
	if bits&1 == 0 {
		s0 = -1
	}
	if bits&2 == 0 {
		s1 = -1
	}
	switch axis {
	case 0:
		dy, dz = s0, s1
	case 1:
		dx, dz = s0, s1
	case 2:
		dx, dy = s0, s1
	}
	return q.Neighbor(NeighborOffset{DX: dx, DY: dy, DZ: dz, CoDim: 2})
}

// CornerNeighbor returns q's same-size neighbor across corner index c
// (2D: 0..3, 3D: 0..7), possibly extended.
func (q Quadrant) CornerNeighbor(dim, c int) Quadrant {
	off := NeighborOffset{CoDim: dim}
	if c&1 != 0 {
		off.DX = 1
	} else {
		off.DX = -1
	}
	if c&2 != 0 {
		off.DY = 1
	} else {
		off.DY = -1
	}
	if dim == Dim3 {
		if c&4 != 0 {
			off.DZ = 1
		} else {
			off.DZ = -1
		}
	}
	return q.Neighbor(off)
}

// OutOfRoot reports whether an (extended) quadrant's coordinates fall
// outside [0, 1<<MaxLevel) in any live dimension, i.e. it has crossed the
// tree root boundary and needs a transform into a neighbor tree's frame.
func (q Quadrant) OutOfRoot(dim int) bool {
	rootLen := int32(1) << uint(MaxLevel)
	if q.X < 0 || q.X >= rootLen || q.Y < 0 || q.Y >= rootLen {
		return true
	}
	return dim == Dim3 && (q.Z < 0 || q.Z >= rootLen)
}
