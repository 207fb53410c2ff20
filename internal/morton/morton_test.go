// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package morton

import (
	"math/rand/v2"
	"testing"
)

func TestInterleaveDeinterleaveRoundTrip2D(t *testing.T) {
	t.Parallel()
	const level = 10
	mask := uint32(1<<level) - 1
	for i := 0; i < 200; i++ {
		x := rand.Uint32() & mask
		y := rand.Uint32() & mask
		id := Interleave([]uint32{x, y}, level)
		got := Deinterleave(id, 2, level)
		if got[0] != x || got[1] != y {
			t.Fatalf("round trip failed: in=(%d,%d) out=(%d,%d)", x, y, got[0], got[1])
		}
	}
}

func TestInterleaveDeinterleaveRoundTrip3D(t *testing.T) {
	t.Parallel()
	const level = 8
	mask := uint32(1<<level) - 1
	for i := 0; i < 200; i++ {
		x := rand.Uint32() & mask
		y := rand.Uint32() & mask
		z := rand.Uint32() & mask
		id := Interleave([]uint32{x, y, z}, level)
		got := Deinterleave(id, 3, level)
		if got[0] != x || got[1] != y || got[2] != z {
			t.Fatalf("round trip failed: in=(%d,%d,%d) out=(%d,%d,%d)", x, y, z, got[0], got[1], got[2])
		}
	}
}

func TestInterleaveOrdersLikeZCurve(t *testing.T) {
	t.Parallel()
	// Morton order of the four level-1 children of a 2D root, in child-id
	// order, must match their Z-curve enumeration with X as the more
	// significant coordinate: (0,0) (0,1) (1,0) (1,1).
	pts := [][2]uint32{{0, 0}, {0, 1}, {1, 0}, {1, 1}}
	var prev ID
	for i, p := range pts {
		id := Interleave(p[:], 1)
		if i > 0 && id.Compare(prev) <= 0 {
			t.Fatalf("point %v did not sort after previous point", p)
		}
		prev = id
	}
}

func TestCompareCoordsMatchesInterleave(t *testing.T) {
	t.Parallel()
	const level = 12
	mask := uint32(1<<level) - 1
	for i := 0; i < 500; i++ {
		a := []uint32{rand.Uint32() & mask, rand.Uint32() & mask}
		b := []uint32{rand.Uint32() & mask, rand.Uint32() & mask}
		want := Interleave(a, level).Compare(Interleave(b, level))
		got := CompareCoords(a, b)
		if (want < 0) != (got < 0) || (want > 0) != (got > 0) || (want == 0) != (got == 0) {
			t.Fatalf("CompareCoords(%v,%v)=%d disagrees with Interleave compare=%d", a, b, got, want)
		}
	}
}

func TestIDCompare(t *testing.T) {
	t.Parallel()
	a := ID{Hi: 0, Lo: 5}
	b := ID{Hi: 0, Lo: 10}
	c := ID{Hi: 1, Lo: 0}

	if a.Compare(b) >= 0 {
		t.Error("a should sort before b")
	}
	if b.Compare(c) >= 0 {
		t.Error("b should sort before c (Hi dominates Lo)")
	}
	if a.Compare(a) != 0 {
		t.Error("a should equal itself")
	}
}
