// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

// Package comm abstracts the collective and point-to-point communication
// primitives spec.md §4.3 names (broadcast partition boundaries, pairwise
// exchange of boundary quadrants, sparse notify, reductions) behind a small
// interface, since nothing in the retrieval pack binds to MPI. The only
// implementation shipped here, InProcessCommunicator, simulates a rank
// group with goroutines and channels, which is sufficient for the
// scenario and property tests spec.md §8 describes and keeps the forest
// package itself transport-agnostic.
package comm

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Rank identifies one member of a process group.
type Rank int32

// Communicator is the point-to-point and collective surface the forest
// package's balance and partition operations are built on. Every method is
// collective unless its doc says otherwise: all ranks must call it, in the
// same order, or the group deadlocks — the same contract MPI communicators
// carry, kept here as a Go interface instead of a C binding.
type Communicator interface {
	// Rank returns this process's rank in [0, Size).
	Rank() Rank
	// Size returns the number of ranks in the group.
	Size() int

	// Send delivers payload to rank dst tagged with tag. Blocking from the
	// caller's perspective; pair with a matching Recv on dst.
	Send(ctx context.Context, dst Rank, tag int, payload []byte) error
	// Recv blocks until a message tagged tag arrives from src.
	Recv(ctx context.Context, src Rank, tag int) ([]byte, error)

	// ISend starts sending payload to dst tagged with tag and returns
	// immediately; the send is not guaranteed complete until Request.Wait
	// returns. Used by the recursive-doubling sort balance variant, which
	// needs its lo-side and hi-side sends in flight simultaneously rather
	// than serialized.
	ISend(ctx context.Context, dst Rank, tag int, payload []byte) (Request, error)
	// IRecv starts receiving a message tagged tag from src and returns
	// immediately; the payload is only valid once Request.Wait returns.
	IRecv(ctx context.Context, src Rank, tag int) (Request, error)
	// Probe blocks until a message tagged tag is available from src and
	// reports its size, without consuming it — a later Recv/IRecv with
	// the same src and tag still receives it.
	Probe(ctx context.Context, src Rank, tag int) (int, error)

	// Allgather runs send through every rank and returns the per-rank
	// results ordered by Rank.
	Allgather(ctx context.Context, send []byte) ([][]byte, error)
	// Alltoall personalizes the exchange: send must have one entry per
	// rank (send[r] is this rank's payload for rank r), and the result's
	// entry r is what rank r sent back to this rank.
	Alltoall(ctx context.Context, send [][]byte) ([][]byte, error)
	// Allreduce combines send across every rank with op, returning the
	// combined result identically on every rank.
	Allreduce(ctx context.Context, send int64, op ReduceOp) (int64, error)

	// Barrier blocks until every rank has called it.
	Barrier(ctx context.Context) error
}

// Request is a handle to an in-flight ISend or IRecv. Wait blocks until
// the operation completes, returning the received payload for an IRecv
// request (nil for an ISend request) or the error either encountered.
type Request interface {
	Wait(ctx context.Context) ([]byte, error)
}

// ReduceOp names a reduction combiner for Allreduce.
type ReduceOp int

const (
	Sum ReduceOp = iota
	Max
	Min
)

func reduce(op ReduceOp, a, b int64) int64 {
	switch op {
	case Max:
		if a > b {
			return a
		}
		return b
	case Min:
		if a < b {
			return a
		}
		return b
	default:
		return a + b
	}
}

// Run executes fn once per rank of group concurrently via an errgroup,
// cancelling every rank's context if any rank returns an error — the shape
// every collective forest operation (balance, partition) drives its
// per-rank work through.
func Run(ctx context.Context, group []Communicator, fn func(ctx context.Context, c Communicator) error) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, c := range group {
		c := c
		g.Go(func() error {
			if err := fn(ctx, c); err != nil {
				return fmt.Errorf("rank %d: %w", c.Rank(), err)
			}
			return nil
		})
	}
	return g.Wait()
}
