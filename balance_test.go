// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package forest

import (
	"context"
	"slices"
	"testing"
)

// assertBalanced fails the test if any pair of same-tree insulation
// neighbors admitted by ct differs by more than one level, and if the
// tree is not a complete tiling of its root.
func assertBalanced[V any](t *testing.T, tr *Tree[V], ct ConnectType) {
	t.Helper()
	if !tr.IsComplete() {
		t.Fatalf("tree %d is not a complete tiling after balance", tr.ID)
	}
	offsets := InsulationOffsets(tr.Dim)
	bound := ct.maxCoDim(tr.Dim)
	for _, leaf := range tr.Leaves() {
		for _, off := range offsets {
			if off.CoDim > bound {
				continue
			}
			nq := leaf.Quadrant.Neighbor(off)
			if nq.OutOfRoot(tr.Dim) {
				continue
			}
			j, ok := tr.findCovering(nq)
			if !ok {
				t.Fatalf("tree %d: no leaf covers neighbor position %+v of %+v", tr.ID, nq, leaf.Quadrant)
			}
			diff := int(leaf.Level) - int(tr.At(j).Level)
			if diff > 1 || diff < -1 {
				t.Errorf("tree %d: leaf %+v and covering neighbor %+v differ by %d levels",
					tr.ID, leaf.Quadrant, tr.At(j).Quadrant, diff)
			}
		}
	}
}

// TestBalanceUnitSquareFaceScenario is the single-process unit-square,
// 2D, face-balance scenario: one tree, four level-3 leaves at the
// corners, completed into a full tiling and then face-balanced. The
// result must be a valid complete 2:1-graded tiling, and the four
// original corner leaves must still be present (they are already the
// finest thing in their neighborhood, so balance has nothing to split
// there).
func TestBalanceUnitSquareFaceScenario(t *testing.T) {
	t.Parallel()
	conn := NewUnitSquare()
	f := newSingleRankForest(conn)
	tr := f.Tree(0)

	h := SideLen(3)
	corners := []Quadrant{
		{X: 0, Y: 0, Level: 3},
		{X: 7 * h, Y: 0, Level: 3},
		{X: 0, Y: 7 * h, Level: 3},
		{X: 7 * h, Y: 7 * h, Level: 3},
	}
	sorted := append([]Quadrant(nil), corners...)
	slices.SortFunc(sorted, func(a, b Quadrant) int { return a.Compare(Dim2, b) })
	leaves := make([]Leaf[int64], len(sorted))
	for i, q := range sorted {
		leaves[i] = Leaf[int64]{Quadrant: q}
	}
	tr.Splice(leaves)
	f.Complete(nil)

	if err := f.Balance(context.Background(), ConnectFace, nil); err != nil {
		t.Fatalf("Balance returned error: %v", err)
	}

	assertBalanced[int64](t, tr, ConnectFace)

	for _, c := range corners {
		i := tr.LowerBound(c)
		if i >= tr.Len() || !tr.At(i).Quadrant.IsEqual(c) {
			t.Errorf("corner leaf %+v should survive face-balance unchanged", c)
		}
	}
}

func TestBalanceIsIdempotent(t *testing.T) {
	t.Parallel()
	conn := NewUnitSquare()
	f := newSingleRankForest(conn)
	tr := f.Tree(0)

	tr.Splice([]Leaf[int64]{{Quadrant: Quadrant{X: 0, Y: 0, Level: 4}}})
	f.Complete(nil)

	ctx := context.Background()
	if err := f.Balance(ctx, ConnectFull, nil); err != nil {
		t.Fatalf("first Balance returned error: %v", err)
	}
	firstLen := tr.Len()
	snapshot := append([]Leaf[int64](nil), tr.Leaves()...)

	if err := f.Balance(ctx, ConnectFull, nil); err != nil {
		t.Fatalf("second Balance returned error: %v", err)
	}
	if tr.Len() != firstLen {
		t.Fatalf("Balance is not idempotent: leaf count changed from %d to %d", firstLen, tr.Len())
	}
	for i, l := range tr.Leaves() {
		if !l.Quadrant.IsEqual(snapshot[i].Quadrant) {
			t.Fatalf("Balance is not idempotent: leaf %d changed from %+v to %+v", i, snapshot[i].Quadrant, l.Quadrant)
		}
	}
}

func TestBalanceNeverCoarsens(t *testing.T) {
	t.Parallel()
	conn := NewUnitSquare()
	f := newSingleRankForest(conn)
	tr := f.Tree(0)
	before := tr.Len()

	if err := f.Balance(context.Background(), ConnectFull, nil); err != nil {
		t.Fatalf("Balance returned error: %v", err)
	}
	if tr.Len() < before {
		t.Errorf("Balance should never reduce leaf count below the starting complete tiling, got %d < %d", tr.Len(), before)
	}
}
