// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package forest

import (
	"strings"
	"testing"
)

func TestTreeEqualComparesQuadrantsAndData(t *testing.T) {
	t.Parallel()
	conn := NewUnitSquare()
	a := newSingleRankForest(conn)
	b := newSingleRankForest(conn)

	if !a.Tree(0).Equal(b.Tree(0)) {
		t.Fatal("two freshly seeded single-leaf trees should be equal")
	}

	a.Refine(false, func(*Forest[int64], TreeID, Quadrant, int64) bool { return true }, nil)
	if a.Tree(0).Equal(b.Tree(0)) {
		t.Fatal("a refined tree should not equal an unrefined one")
	}

	b.Refine(false, func(*Forest[int64], TreeID, Quadrant, int64) bool { return true }, nil)
	if !a.Tree(0).Equal(b.Tree(0)) {
		t.Fatal("two trees refined identically should be equal again")
	}

	a.Tree(0).Leaves()[0].Data = 42
	if a.Tree(0).Equal(b.Tree(0)) {
		t.Fatal("trees with differing leaf payloads must not be equal")
	}
}

func TestForestDumpStringListsEveryLeaf(t *testing.T) {
	t.Parallel()
	conn := NewUnitSquare()
	f := newSingleRankForest(conn)
	f.Refine(false, func(*Forest[int64], TreeID, Quadrant, int64) bool { return true }, nil)

	out := f.dumpString()
	if !strings.Contains(out, "tree 0 dim=2 leaves=4") {
		t.Errorf("dumpString() = %q, want a header mentioning 4 leaves", out)
	}
	if strings.Count(out, "\n") < 5 {
		t.Errorf("dumpString() should emit one line per leaf plus a header, got %q", out)
	}
}
