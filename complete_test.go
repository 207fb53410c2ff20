// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package forest

import (
	"testing"

	"github.com/go-amr/forest/internal/comm"
)

func initZero(f *Forest[int64], t TreeID, q Quadrant) int64 { return 0 }

func TestFillGapFillsEntireRoot(t *testing.T) {
	t.Parallel()
	root := Quadrant{Level: 0}
	got := fillGap(Dim2, root, nil, nil)
	if len(got) != 1 || !got[0].IsEqual(root) {
		t.Fatalf("fillGap with no bounds should return just the root, got %+v", got)
	}
}

func TestFillGapBetweenTwoSiblings(t *testing.T) {
	t.Parallel()
	root := Quadrant{Level: 0}
	children := root.Children(Dim2)
	low := children[0].LastDescendant(QMaxLevel)
	high := children[2].FirstDescendant(QMaxLevel)

	got := fillGap(Dim2, root, &low, &high)
	// the gap between sibling 0 and sibling 2 is exactly sibling 1.
	if len(got) != 1 || !got[0].IsEqual(children[1]) {
		t.Fatalf("fillGap(between child0 and child2) = %+v, want [%+v]", got, children[1])
	}
}

func TestCompleteFillsSparseTree(t *testing.T) {
	t.Parallel()
	conn := NewUnitSquare()
	f := newSingleRankForest(conn)

	tr := f.Tree(0)
	root := Quadrant{Level: 0}
	children := root.Children(Dim2)
	// leave out children[1] and children[2], simulating a ghost merge that
	// produced a disjoint, incomplete representative set.
	tr.Splice([]Leaf[int64]{
		{Quadrant: children[0]},
		{Quadrant: children[3]},
	})
	if tr.IsComplete() {
		t.Fatal("test setup: tree should start incomplete")
	}

	f.Complete(nil)

	if !tr.IsComplete() {
		t.Fatal("Complete should leave every tree as a complete tiling")
	}
	if tr.Len() != 4 {
		t.Fatalf("Complete should fill the two missing level-1 children, got %d leaves", tr.Len())
	}
}

func TestCompleteIsNoOpOnCompleteTree(t *testing.T) {
	t.Parallel()
	conn := NewUnitSquare()
	f := newSingleRankForest(conn)
	tr := f.Tree(0)
	before := tr.Len()

	f.Complete(nil)

	if tr.Len() != before {
		t.Errorf("Complete changed leaf count of an already-complete tree: %d -> %d", before, tr.Len())
	}
	if !tr.IsComplete() {
		t.Error("tree should remain complete")
	}
}

func newSingleRankForest(conn *Connectivity) *Forest[int64] {
	group := comm.NewInProcessGroup(1)
	return New[int64](group[0], conn, 0, initZero, nil)
}
