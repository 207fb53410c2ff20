// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package forest

import (
	"context"
	"testing"
)

func TestNewUnitSquareValidates(t *testing.T) {
	t.Parallel()
	if err := NewUnitSquare().Validate(); err != nil {
		t.Fatalf("NewUnitSquare should validate cleanly: %v", err)
	}
}

func TestNewMoebiusValidates(t *testing.T) {
	t.Parallel()
	if err := NewMoebius().Validate(); err != nil {
		t.Fatalf("NewMoebius should validate cleanly: %v", err)
	}
}

func TestValidateCatchesAsymmetricFace(t *testing.T) {
	t.Parallel()
	c := NewConnectivity(Dim2, 2)
	// wire only the forward direction, bypassing SetFaceNeighbor's symmetric
	// wiring, to construct a connectivity Validate must reject.
	c.faceTree[0][1] = 1
	c.faceFace[0][1] = 0
	if err := c.Validate(); err == nil {
		t.Fatal("Validate should reject a face transform with no consistent inverse")
	}
}

// TestCrossTreeBalancePropagatesThroughSharedCorner is the two-tree
// Möbius corner-balance scenario: tree 0's origin corner is refined down
// to level 5, and full (face+edge+corner) balance must propagate that
// refinement across the shared corner into tree 1, which starts as a
// single unrefined root.
func TestCrossTreeBalancePropagatesThroughSharedCorner(t *testing.T) {
	t.Parallel()
	conn := NewMoebius()
	f := newSingleRankForest(conn)

	towardOrigin := func(f *Forest[int64], tr TreeID, q Quadrant, data int64) bool {
		return tr == 0 && q.X == 0 && q.Y == 0 && q.Level < 5
	}
	f.Refine(true, towardOrigin, nil)

	t0 := f.Tree(0)
	if t0.MaxLevel() != 5 {
		t.Fatalf("tree 0 should be refined to level 5 at the origin, MaxLevel() = %d", t0.MaxLevel())
	}

	t1 := f.Tree(1)
	if t1.Len() != 1 {
		t.Fatalf("test setup: tree 1 should start as a single unrefined root, has %d leaves", t1.Len())
	}

	if err := f.Balance(context.Background(), ConnectFull, nil); err != nil {
		t.Fatalf("Balance returned error: %v", err)
	}

	if !t0.IsComplete() {
		t.Error("tree 0 should remain a complete tiling after balance")
	}
	if !t1.IsComplete() {
		t.Error("tree 1 should remain a complete tiling after balance")
	}
	if t1.Len() <= 1 {
		t.Fatalf("balance should have propagated the shared-corner refinement into tree 1, still has %d leaf(s)", t1.Len())
	}
	if t1.MaxLevel() < 4 {
		t.Errorf("tree 1's corner neighborhood should reach at least level 4, MaxLevel() = %d", t1.MaxLevel())
	}
}
