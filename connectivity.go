// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package forest

import "fmt"

// TreeID indexes a tree within a Connectivity / Forest.
type TreeID int32

// noNeighbor marks a face/tree slot with no neighbor across it (a domain
// boundary).
const noNeighbor TreeID = -1

// EdgeTransform names one neighbor-tree image of a quadrant crossing a 3D
// edge: the neighbor tree, the edge index in that tree's frame, and
// whether the tangential axis is flipped.
type EdgeTransform struct {
	Tree    TreeID
	Edge    int
	Flipped bool
}

// CornerTransform names one neighbor-tree image of a quadrant crossing a
// vertex: the neighbor tree and the corner index in that tree's frame.
type CornerTransform struct {
	Tree   TreeID
	Corner int
}

// Connectivity is a static, read-only graph of trees: shared vertices, and
// face/edge/corner neighbor relations with orientation codes describing
// how a quadrant's coordinates transform when it crosses a boundary. It is
// never mutated during balance (spec.md §3).
type Connectivity struct {
	Dim         int
	NumVertices int
	NumTrees    int

	// Vertices holds 3 floats per vertex (x, y, z); it is consulted only
	// for coordinate-to-physical-space mapping, out of core scope.
	Vertices []float64

	// TreeToVertex holds childrenCount(Dim) vertex indices per tree.
	TreeToVertex []int32

	faceTree        [][]TreeID // [tree][face] -> neighbor tree, or noNeighbor
	faceFace        [][]int8   // [tree][face] -> neighbor's face index
	faceOrientation [][]uint8  // [tree][face] -> orientation code

	edgeNeighbors   [][][]EdgeTransform   // [tree][edge] -> images, 3D only
	cornerNeighbors [][][]CornerTransform // [tree][corner] -> images
}

// NewConnectivity allocates an empty connectivity for numTrees trees of the
// given dimension, with every face/edge/corner initialized to "no
// neighbor" (a free-standing domain boundary). Callers wire up neighbors
// with SetFaceNeighbor, AddEdgeNeighbor and AddCornerNeighbor, then call
// Validate.
func NewConnectivity(dim int, numTrees int) *Connectivity {
	faces := 2 * dim
	corners := childrenCount(dim)
	c := &Connectivity{
		Dim:             dim,
		NumTrees:        numTrees,
		faceTree:        make([][]TreeID, numTrees),
		faceFace:        make([][]int8, numTrees),
		faceOrientation: make([][]uint8, numTrees),
		cornerNeighbors: make([][][]CornerTransform, numTrees),
	}
	if dim == Dim3 {
		c.edgeNeighbors = make([][][]EdgeTransform, numTrees)
	}
	for t := 0; t < numTrees; t++ {
		c.faceTree[t] = make([]TreeID, faces)
		c.faceFace[t] = make([]int8, faces)
		c.faceOrientation[t] = make([]uint8, faces)
		for f := range c.faceTree[t] {
			c.faceTree[t][f] = noNeighbor
		}
		c.cornerNeighbors[t] = make([][]CornerTransform, corners)
		// every corner is at least its own trivial image in its own tree
		for k := 0; k < corners; k++ {
			c.cornerNeighbors[t][k] = []CornerTransform{{Tree: TreeID(t), Corner: k}}
		}
		if dim == Dim3 {
			c.edgeNeighbors[t] = make([][]EdgeTransform, 12)
			for e := 0; e < 12; e++ {
				c.edgeNeighbors[t][e] = []EdgeTransform{{Tree: TreeID(t), Edge: e}}
			}
		}
	}
	return c
}

// SetFaceNeighbor glues face f of tree t to face of tree nt, with the
// given orientation code, and wires the reverse direction symmetrically.
func (c *Connectivity) SetFaceNeighbor(t, f int, nt, nf int, orientation uint8) {
	c.faceTree[t][f] = TreeID(nt)
	c.faceFace[t][f] = int8(nf)
	c.faceOrientation[t][f] = orientation
	c.faceTree[nt][nf] = TreeID(t)
	c.faceFace[nt][nf] = int8(f)
	c.faceOrientation[nt][nf] = orientation
}

// AddCornerNeighbor records that corner k of tree t is also corner nk of
// tree nt (a vertex shared by more than two trees is built by calling this
// once per additional tree). The reverse link is added symmetrically.
func (c *Connectivity) AddCornerNeighbor(t, k int, nt, nk int) {
	c.cornerNeighbors[t][k] = append(c.cornerNeighbors[t][k], CornerTransform{Tree: TreeID(nt), Corner: nk})
	if nt != t || nk != k {
		c.cornerNeighbors[nt][nk] = append(c.cornerNeighbors[nt][nk], CornerTransform{Tree: TreeID(t), Corner: k})
	}
}

// AddEdgeNeighbor records that edge e of tree t is also edge ne of tree nt
// (3D only), flipped if the tangential axis runs in opposite directions.
func (c *Connectivity) AddEdgeNeighbor(t, e int, nt, ne int, flipped bool) {
	c.edgeNeighbors[t][e] = append(c.edgeNeighbors[t][e], EdgeTransform{Tree: TreeID(nt), Edge: ne, Flipped: flipped})
	if nt != t || ne != e {
		c.edgeNeighbors[nt][ne] = append(c.edgeNeighbors[nt][ne], EdgeTransform{Tree: TreeID(t), Edge: e, Flipped: flipped})
	}
}

// Validate checks that every face transform this connectivity declares has
// a consistent inverse: if face f of tree t points to face nf of tree nt,
// then face nf of tree nt must point back to face f of tree t with the
// same orientation. This is the Go-native counterpart of p4est's
// connectivity consistency checks. The constructors do not call it;
// callers run it explicitly rather than assuming consistency.
func (c *Connectivity) Validate() error {
	for t := 0; t < c.NumTrees; t++ {
		for f, nt := range c.faceTree[t] {
			if nt == noNeighbor {
				continue
			}
			nf := int(c.faceFace[t][f])
			if c.faceTree[nt][nf] != TreeID(t) || int(c.faceFace[nt][nf]) != f {
				return fmt.Errorf("connectivity: face %d of tree %d does not point back from face %d of tree %d", f, t, nf, nt)
			}
			if c.faceOrientation[nt][nf] != c.faceOrientation[t][f] {
				return fmt.Errorf("connectivity: orientation mismatch between tree %d face %d and tree %d face %d", t, f, nt, nf)
			}
		}
	}
	return nil
}

// NewUnitSquare returns the trivial single-tree connectivity used by
// spec.md §8 scenario 1: one quadtree with no neighbors (every face is a
// domain boundary).
func NewUnitSquare() *Connectivity {
	return NewConnectivity(Dim2, 1)
}

// NewMoebius returns the two-tree connectivity used by spec.md §8 scenario
// 2: tree 0 and tree 1 glued along one pair of faces with a flip
// (orientation 1), and sharing a corner across the twist so that a
// corner-balance refinement in tree 0 is visible to tree 1 through that
// shared vertex.
func NewMoebius() *Connectivity {
	c := NewConnectivity(Dim2, 2)
	// glue tree 0's +x face (1) to tree 1's +x face (1) with a flip,
	// giving the strip a half-twist the way a Möbius band's connectivity
	// glues its two ends with reversed orientation.
	c.SetFaceNeighbor(0, 1, 1, 1, 1)
	// the two trees also share the corner diagonally opposite the twist,
	// so a corner refinement in tree 0 is visible across it under Full
	// connect-type.
	c.AddCornerNeighbor(0, 0, 1, 3)
	return c
}
