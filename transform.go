// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package forest

// TreeImage is one neighbor-tree image of an extended quadrant after a
// face, edge or corner transform: the tree it now belongs to, and its
// coordinates in that tree's local frame.
type TreeImage struct {
	Tree     TreeID
	Quadrant Quadrant
}

// Transform computes every neighbor-tree image of an extended quadrant
// produced by q.Neighbor(off) when that quadrant has left fromTree's root
// (q.OutOfRoot reports true). It unifies the face, edge and corner cases
// the way spec.md §4.1 describes for "utransform": the number of crossed
// axes determines which kind of boundary was crossed, and a corner or edge
// shared by several trees yields one image per tree (spec.md §9's "cyclic
// topology" note: represented as a list of (tree, orientation) records).
//
// Transform assumes ext is exactly one cell beyond fromTree's root along
// every crossed axis, which holds for every caller in this package: the
// insulation layer only ever reaches one cell past a tree boundary.
func (c *Connectivity) Transform(fromTree TreeID, ext Quadrant) []TreeImage {
	crossed := c.crossedAxes(ext)
	switch len(crossed) {
	case 0:
		return []TreeImage{{Tree: fromTree, Quadrant: ext}}
	case 1:
		return c.transformFace(fromTree, ext, crossed[0])
	case 2:
		if c.Dim != Dim3 {
			// two axes out of root in 2D is a corner, not an edge
			return c.transformCorner(fromTree, ext)
		}
		return c.transformEdge(fromTree, ext, crossed)
	default:
		return c.transformCorner(fromTree, ext)
	}
}

// crossedAxes reports which coordinate axes (0=x,1=y,2=z) of ext fall
// outside the tree root.
func (c *Connectivity) crossedAxes(ext Quadrant) []int {
	rootLen := int32(1) << uint(MaxLevel)
	var axes []int
	if ext.X < 0 || ext.X >= rootLen {
		axes = append(axes, 0)
	}
	if ext.Y < 0 || ext.Y >= rootLen {
		axes = append(axes, 1)
	}
	if c.Dim == Dim3 && (ext.Z < 0 || ext.Z >= rootLen) {
		axes = append(axes, 2)
	}
	return axes
}

func axisCoord(q Quadrant, axis int) int32 {
	switch axis {
	case 0:
		return q.X
	case 1:
		return q.Y
	default:
		return q.Z
	}
}

func setAxisCoord(q *Quadrant, axis int, v int32) {
	switch axis {
	case 0:
		q.X = v
	case 1:
		q.Y = v
	default:
		q.Z = v
	}
}

// transformFace handles a single-axis crossing: look up the face neighbor
// of fromTree on the crossed axis/direction, remap the tangential
// coordinate(s) per the stored orientation code, and place the normal
// coordinate at the corresponding boundary of the neighbor tree.
func (c *Connectivity) transformFace(fromTree TreeID, ext Quadrant, axis int) []TreeImage {
	rootLen := int32(1) << uint(MaxLevel)
	dir := 0 // 0 = low face (even index), 1 = high face (odd index)
	if axisCoord(ext, axis) >= rootLen {
		dir = 1
	}
	f := axis*2 + dir
	nt := c.faceTree[fromTree][f]
	if nt == noNeighbor {
		// domain boundary: orientation transform produced no neighbor,
		// silently dropped per spec.md §7.
		return nil
	}
	nf := int(c.faceFace[fromTree][f])
	orientation := c.faceOrientation[fromTree][f]

	h := sideLen(ext.Level)
	img := ext
	// normal coordinate lands just inside the neighbor's matching face
	if nf%2 == 0 {
		setAxisCoord(&img, nf/2, 0)
	} else {
		setAxisCoord(&img, nf/2, rootLen-h)
	}
	// remap tangential axes (every axis other than the crossed one)
	tangential := tangentialAxes(c.Dim, axis)
	flip := orientation&1 != 0
	for i, ta := range tangential {
		v := axisCoord(ext, ta)
		if flip && i == 0 {
			v = rootLen - h - v
		}
		// map tangential axis i of fromTree onto tangential axis i of nt
		// (or swapped, for the 3D 8-valued orientation codes, when bit 2
		// is set).
		destAxis := tangential[i]
		if c.Dim == Dim3 && orientation&4 != 0 && len(tangential) == 2 {
			destAxis = tangential[1-i]
		}
		setAxisCoord(&img, destAxis, v)
	}
	return []TreeImage{{Tree: nt, Quadrant: img}}
}

// tangentialAxes returns the axes other than the given normal axis, in a
// stable order.
func tangentialAxes(dim, normal int) []int {
	var out []int
	for a := 0; a < dim; a++ {
		if a != normal {
			out = append(out, a)
		}
	}
	return out
}

// transformEdge handles a two-axis crossing in 3D: the remaining axis is
// tangential and runs along the shared edge. Several trees may share an
// edge, so this can yield multiple images.
func (c *Connectivity) transformEdge(fromTree TreeID, ext Quadrant, crossed []int) []TreeImage {
	rootLen := int32(1) << uint(MaxLevel)
	h := sideLen(ext.Level)
	// identify which of the 12 edges this is: axis = the uncrossed axis,
	// and the 2-bit sign combination of the two crossed axes.
	tangentAxis := 3 - crossed[0] - crossed[1]
	var bits int
	if axisCoord(ext, crossed[0]) >= rootLen {
		bits |= 1
	}
	if axisCoord(ext, crossed[1]) >= rootLen {
		bits |= 2
	}
	e := tangentAxis*4 + bits

	images := make([]TreeImage, 0, len(c.edgeNeighbors[fromTree][e]))
	for _, et := range c.edgeNeighbors[fromTree][e] {
		img := ext
		nTangentAxis := et.Edge / 4
		nBits := et.Edge % 4
		for _, a := range crossed {
			axisIdx := 0
			if a == crossed[1] {
				axisIdx = 1
			}
			sign := (nBits >> uint(axisIdx)) & 1
			if sign == 0 {
				setAxisCoord(&img, a, 0)
			} else {
				setAxisCoord(&img, a, rootLen-h)
			}
		}
		v := axisCoord(ext, tangentAxis)
		if et.Flipped {
			v = rootLen - h - v
		}
		setAxisCoord(&img, nTangentAxis, v)
		images = append(images, TreeImage{Tree: et.Tree, Quadrant: img})
	}
	return images
}

// transformCorner handles a full (dim-axis) crossing: every coordinate
// simply lands at the matching corner of each tree sharing that vertex.
func (c *Connectivity) transformCorner(fromTree TreeID, ext Quadrant) []TreeImage {
	rootLen := int32(1) << uint(MaxLevel)
	h := sideLen(ext.Level)
	k := 0
	if ext.X >= rootLen {
		k |= 1
	}
	if ext.Y >= rootLen {
		k |= 2
	}
	if c.Dim == Dim3 && ext.Z >= rootLen {
		k |= 4
	}

	images := make([]TreeImage, 0, len(c.cornerNeighbors[fromTree][k]))
	for _, ct := range c.cornerNeighbors[fromTree][k] {
		if ct.Tree == fromTree && ct.Corner == k {
			continue // the trivial self-image carries no new information
		}
		img := Quadrant{Level: ext.Level}
		if ct.Corner&1 != 0 {
			img.X = rootLen - h
		}
		if ct.Corner&2 != 0 {
			img.Y = rootLen - h
		}
		if c.Dim == Dim3 && ct.Corner&4 != 0 {
			img.Z = rootLen - h
		}
		images = append(images, TreeImage{Tree: ct.Tree, Quadrant: img})
	}
	return images
}
