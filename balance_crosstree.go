// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package forest

// crossTreeBalance enforces 2:1 balance across tree-to-tree boundaries that
// this rank can resolve without any communication: for every local leaf
// whose insulation neighbor leaves its own tree's root, Connectivity.Transform
// produces the neighbor tree's image(s) of that leaf (spec.md §4.1's
// utransform, §4.5 Phase A's face/edge/corner triples). Each image is
// grafted into the corresponding local Tree[V] as a foreign ghost — every
// rank holds one Tree[V] per global tree id regardless of how many leaves it
// currently owns there, so the destination always exists — the local kernel
// re-runs there, and the graft is stripped again once the comparison is
// done, the same graft/balance/strip shape balanceGhost uses for same-tree
// boundaries (spec.md §9's "cyclic topology" note: a corner or edge shared
// by several trees yields one image per tree, handled here as however many
// TreeImage values Transform returns).
//
// This pass runs unconditionally, independent of process count: two trees
// connected by Connectivity can both be fully owned by the same rank (the
// two-tree scenario of spec.md §8.2), and that case needs no messaging at
// all to resolve. When the neighbor tree's relevant leaves are instead owned
// by a different rank, this pass alone cannot see them; that case is
// resolved by the same treeCrossingImages transform applied to the remote
// boundary records the inter-rank ghost/sort exchange receives, so a leaf
// that crosses both a tree boundary and a process boundary at once still
// gets grafted into the right tree on the right rank.
func (f *Forest[V]) crossTreeBalance(ct ConnectType, replace ReplaceFunc[V]) {
	if len(f.Trees) < 2 {
		return // no tree-to-tree boundary can exist with a single tree
	}

	offsets := InsulationOffsets(f.Conn.Dim)
	bound := ct.maxCoDim(f.Conn.Dim)

	footprints := make([][]Quadrant, len(f.Trees))
	for i, t := range f.Trees {
		footprints[i] = quadrantsOf(t.Leaves())
	}

	for _, t := range f.Trees {
		for _, leaf := range t.Leaves() {
			for _, img := range f.treeCrossingImages(t.ID, leaf.Quadrant, offsets, bound) {
				nt := f.Tree(img.Tree)
				nt.insertForeign(img.Quadrant, f.borrowGhostData(func() V { return f.init(f, nt.ID, img.Quadrant) }))
			}
		}
	}

	for i, t := range f.Trees {
		f.localBalance(t, ct, replace)
		t.keepOnly(footprints[i])
	}
}

// treeCrossingImages returns every other-tree image a leaf at q (owned by
// srcTree) projects into, across every insulation offset admitted by
// bound: q.Neighbor(off) that stays within srcTree's root contributes
// nothing here (localBalance's job), and Connectivity.Transform's trivial
// self-image (landing back in srcTree) is filtered out, since that case is
// already covered by q's own presence in srcTree. Shared by crossTreeBalance
// (comparing against this rank's own trees) and the ghost/sort rounds
// (comparing against a remote rank's boundary records), so both apply the
// identical face/edge/corner transform to a leaf regardless of which
// process happens to own it.
func (f *Forest[V]) treeCrossingImages(srcTree TreeID, q Quadrant, offsets []NeighborOffset, bound int) []TreeImage {
	var imgs []TreeImage
	for _, off := range offsets {
		if off.CoDim > bound {
			continue
		}
		nq := q.Neighbor(off)
		if !nq.OutOfRoot(f.Conn.Dim) {
			continue
		}
		for _, img := range f.Conn.Transform(srcTree, nq) {
			if img.Tree == srcTree {
				continue
			}
			imgs = append(imgs, img)
		}
	}
	return imgs
}
