// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package forest

import (
	"bytes"
	"context"
	"testing"

	"github.com/go-amr/forest/internal/comm"
)

// buildAndChecksum grows a uniform level-depth quadtree on rank 0 (or
// across ranks, if the group already shares quadrants) and returns its
// post-balance checksum. Every collective call runs on every rank
// unconditionally, since Refine/Balance recompute the partition boundary
// and Checksum gathers every rank's digest, all via Allgather, regardless
// of how many leaves a given rank currently owns.
func buildAndChecksum(ctx context.Context, c comm.Communicator, depth int8) ([]byte, error) {
	f := New[int64](c, NewUnitSquare(), 0, initZero, nil)
	f.Refine(true, func(_ *Forest[int64], _ TreeID, q Quadrant, _ int64) bool {
		return q.Level < depth
	}, nil)
	if err := f.Balance(ctx, ConnectFull, nil); err != nil {
		return nil, err
	}
	return f.Checksum(ctx, nil)
}

// TestChecksumAgreesAcrossProcessCounts is the partition-invariance
// scenario: the same uniformly refined, balanced unit square must hash
// identically whether it lives entirely on one rank or is spread across
// four, because Checksum folds every rank's local digest together with an
// order-independent XOR combine.
func TestChecksumAgreesAcrossProcessCounts(t *testing.T) {
	t.Parallel()
	const depth = int8(4)
	ctx := context.Background()

	single := comm.NewInProcessGroup(1)
	var oneProcSum []byte
	if err := comm.Run(ctx, single, func(ctx context.Context, c comm.Communicator) error {
		sum, err := buildAndChecksum(ctx, c, depth)
		oneProcSum = sum
		return err
	}); err != nil {
		t.Fatalf("single-rank run failed: %v", err)
	}

	group := comm.NewInProcessGroup(4)
	sums := make([][]byte, 4)
	if err := comm.Run(ctx, group, func(ctx context.Context, c comm.Communicator) error {
		sum, err := buildAndChecksum(ctx, c, depth)
		sums[c.Rank()] = sum
		return err
	}); err != nil {
		t.Fatalf("four-rank run failed: %v", err)
	}

	for r, sum := range sums {
		if !bytes.Equal(sum, oneProcSum) {
			t.Errorf("rank %d checksum %x does not match single-process checksum %x", r, sum, oneProcSum)
		}
	}
}

// TestPartitionPreservesGlobalChecksum verifies that re-partitioning
// (moving quadrants between ranks without touching the underlying set)
// leaves the forest-wide checksum unchanged.
func TestPartitionPreservesGlobalChecksum(t *testing.T) {
	t.Parallel()
	const size = 4
	ctx := context.Background()
	group := comm.NewInProcessGroup(size)

	conn := NewUnitSquare()
	forests := make([]*Forest[int64], size)
	var before []byte
	if err := comm.Run(ctx, group, func(ctx context.Context, c comm.Communicator) error {
		f := New[int64](c, conn, 0, initZero, nil)
		f.Refine(true, func(_ *Forest[int64], _ TreeID, q Quadrant, _ int64) bool {
			return q.Level < 3
		}, nil)
		forests[c.Rank()] = f
		sum, err := f.Checksum(ctx, nil)
		if c.Rank() == 0 {
			before = sum
		}
		return err
	}); err != nil {
		t.Fatalf("setup run failed: %v", err)
	}

	weight := func(*Forest[int64], TreeID, Quadrant, int64) int64 { return 1 }
	encode := func(int64) []byte { return nil }
	decode := func([]byte) int64 { return 0 }

	var after []byte
	if err := comm.Run(ctx, group, func(ctx context.Context, c comm.Communicator) error {
		f := forests[c.Rank()]
		if _, err := f.Partition(ctx, weight, encode, decode); err != nil {
			return err
		}
		sum, err := f.Checksum(ctx, nil)
		if c.Rank() == 0 {
			after = sum
		}
		return err
	}); err != nil {
		t.Fatalf("partition run failed: %v", err)
	}

	if !bytes.Equal(before, after) {
		t.Errorf("partitioning changed the global checksum: before=%x after=%x", before, after)
	}
}
