// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package forest

import (
	"context"
	"testing"

	"github.com/go-amr/forest/internal/comm"
)

func TestNewSeedsOneRootLeafPerTree(t *testing.T) {
	t.Parallel()
	conn := NewMoebius()
	f := newSingleRankForest(conn)
	if len(f.Trees) != conn.NumTrees {
		t.Fatalf("len(Trees) = %d, want %d", len(f.Trees), conn.NumTrees)
	}
	for _, tr := range f.Trees {
		if tr.Len() != 1 {
			t.Errorf("tree %d should start with exactly one root leaf, has %d", tr.ID, tr.Len())
		}
	}
	if f.Revision() != 0 {
		t.Errorf("Revision() on a freshly constructed forest = %d, want 0", f.Revision())
	}
}

func TestRevisionBumpsOnMutatingOperations(t *testing.T) {
	t.Parallel()
	conn := NewUnitSquare()
	f := newSingleRankForest(conn)
	r0 := f.Revision()

	f.Refine(false, func(*Forest[int64], TreeID, Quadrant, int64) bool { return true }, nil)
	if f.Revision() != r0+1 {
		t.Errorf("Revision after Refine = %d, want %d", f.Revision(), r0+1)
	}

	f.Coarsen(false, func(*Forest[int64], TreeID, []Leaf[int64]) bool { return true }, nil)
	if f.Revision() != r0+2 {
		t.Errorf("Revision after Coarsen = %d, want %d", f.Revision(), r0+2)
	}

	f.ResetData()
	if f.Revision() != r0+3 {
		t.Errorf("Revision after ResetData = %d, want %d", f.Revision(), r0+3)
	}
}

func TestCopyStructuralWithoutData(t *testing.T) {
	t.Parallel()
	conn := NewUnitSquare()
	f := New[int64](comm.NewInProcessGroup(1)[0], conn, 0, func(f *Forest[int64], tr TreeID, q Quadrant) int64 {
		return int64(q.Level) + 100
	}, nil)
	f.Refine(true, func(_ *Forest[int64], _ TreeID, q Quadrant, _ int64) bool { return q.Level < 2 }, nil)

	clone := f.Copy(true)
	if clone.Tree(0).Len() != f.Tree(0).Len() {
		t.Fatalf("Copy(true) leaf count = %d, want %d", clone.Tree(0).Len(), f.Tree(0).Len())
	}
	for i := 0; i < f.Tree(0).Len(); i++ {
		if clone.Tree(0).At(i).Data != f.Tree(0).At(i).Data {
			t.Errorf("Copy(true) should preserve leaf data at %d: got %d, want %d", i, clone.Tree(0).At(i).Data, f.Tree(0).At(i).Data)
		}
	}

	structural := f.Copy(false)
	if structural.Tree(0).Len() != f.Tree(0).Len() {
		t.Fatalf("Copy(false) should preserve tree shape, got %d leaves, want %d", structural.Tree(0).Len(), f.Tree(0).Len())
	}
	for i := 0; i < f.Tree(0).Len(); i++ {
		want := int64(structural.Tree(0).At(i).Level) + 100
		if got := structural.Tree(0).At(i).Data; got != want {
			t.Errorf("Copy(false) should re-run InitFunc, leaf %d data = %d, want %d", i, got, want)
		}
	}
}

func TestResetDataReinitializesPayload(t *testing.T) {
	t.Parallel()
	conn := NewUnitSquare()
	calls := 0
	f := New[int64](comm.NewInProcessGroup(1)[0], conn, 0, func(*Forest[int64], TreeID, Quadrant) int64 {
		calls++
		return int64(calls)
	}, nil)
	before := f.Tree(0).At(0).Data

	f.ResetData()

	after := f.Tree(0).At(0).Data
	if after == before {
		t.Error("ResetData should re-invoke InitFunc and change the stored payload")
	}
}

func TestGlobalQuadrantCountTracksPartition(t *testing.T) {
	t.Parallel()
	conn := NewUnitSquare()
	f := newSingleRankForest(conn)
	if f.GlobalQuadrantCount() != 1 {
		t.Fatalf("GlobalQuadrantCount() = %d, want 1", f.GlobalQuadrantCount())
	}
	f.Refine(false, func(*Forest[int64], TreeID, Quadrant, int64) bool { return true }, nil)
	if f.GlobalQuadrantCount() != int64(childrenCount(Dim2)) {
		t.Errorf("GlobalQuadrantCount() after one refine = %d, want %d", f.GlobalQuadrantCount(), childrenCount(Dim2))
	}
	if f.LocalQuadrantCount() != f.GlobalQuadrantCount() {
		t.Errorf("a single-rank forest's local and global counts should agree: %d vs %d", f.LocalQuadrantCount(), f.GlobalQuadrantCount())
	}
}

func TestChecksumStableAcrossNoOpOperations(t *testing.T) {
	t.Parallel()
	conn := NewUnitSquare()
	f := newSingleRankForest(conn)
	f.Refine(true, func(_ *Forest[int64], _ TreeID, q Quadrant, _ int64) bool { return q.Level < 3 }, nil)

	encode := func(v int64) []byte { return []byte{byte(v)} }
	ctx := context.Background()
	sum1, err := f.Checksum(ctx, encode)
	if err != nil {
		t.Fatalf("Checksum returned error: %v", err)
	}

	f.Complete(nil) // already complete: a true no-op on tree shape and data
	sum2, err := f.Checksum(ctx, encode)
	if err != nil {
		t.Fatalf("Checksum returned error: %v", err)
	}

	if string(sum1) != string(sum2) {
		t.Error("checksum should be stable across an operation that does not change tree shape or payload")
	}
}
