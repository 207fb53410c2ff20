// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package comm

import (
	"context"
	"fmt"
	"sync"
)

// envelope is one message in flight between two ranks of an in-process
// group.
type envelope struct {
	from    Rank
	tag     int
	payload []byte
}

// InProcessCommunicator simulates one rank of a process group with
// goroutines and buffered channels rather than OS processes or network
// sockets: every rank in the group shares the same address space, and
// Send/Recv rendezvous through a per-(src,dst) channel keyed by tag.
type InProcessCommunicator struct {
	rank  Rank
	group *inProcessGroup
}

type inProcessGroup struct {
	size    int
	inboxes map[Rank]map[Rank]chan envelope // inboxes[dst][src]

	peekMu sync.Mutex
	peeked map[Rank]map[Rank][]envelope // peeked[dst][src]: probed but not yet consumed

	barrierMu    sync.Mutex
	barrierCount int
	barrierGate  chan struct{}
}

// NewInProcessGroup returns size communicators, one per simulated rank,
// all wired to the same shared-memory group.
func NewInProcessGroup(size int) []Communicator {
	g := &inProcessGroup{size: size, inboxes: make(map[Rank]map[Rank]chan envelope), peeked: make(map[Rank]map[Rank][]envelope)}
	for dst := Rank(0); int(dst) < size; dst++ {
		g.inboxes[dst] = make(map[Rank]chan envelope)
		for src := Rank(0); int(src) < size; src++ {
			g.inboxes[dst][src] = make(chan envelope, 64)
		}
	}
	out := make([]Communicator, size)
	for r := 0; r < size; r++ {
		out[r] = &InProcessCommunicator{rank: Rank(r), group: g}
	}
	return out
}

func (c *InProcessCommunicator) Rank() Rank { return c.rank }
func (c *InProcessCommunicator) Size() int  { return c.group.size }

func (c *InProcessCommunicator) Send(ctx context.Context, dst Rank, tag int, payload []byte) error {
	ch := c.group.inboxes[dst][c.rank]
	cp := append([]byte(nil), payload...)
	select {
	case ch <- envelope{from: c.rank, tag: tag, payload: cp}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *InProcessCommunicator) Recv(ctx context.Context, src Rank, tag int) ([]byte, error) {
	e, err := c.fetch(ctx, src, tag, true)
	if err != nil {
		return nil, err
	}
	return e.payload, nil
}

// fetch locates the next envelope from src tagged tag, consuming it from
// the channel if consume is true or parking it in the group's peek
// buffer otherwise (so a later Probe doesn't steal a message a Recv still
// needs, and a later Recv/IRecv still sees what Probe already saw).
// Non-matching envelopes seen along the way are requeued, same as the
// original Recv's drain-and-requeue behavior; in practice every caller in
// this package uses one tag per phase, so this runs at most once per real
// message beyond the peek buffer check.
func (c *InProcessCommunicator) fetch(ctx context.Context, src Rank, tag int, consume bool) (envelope, error) {
	g := c.group

	g.peekMu.Lock()
	if bucket := g.peeked[c.rank][src]; len(bucket) > 0 {
		for i, e := range bucket {
			if e.tag == tag {
				if consume {
					g.peeked[c.rank][src] = append(bucket[:i], bucket[i+1:]...)
				}
				g.peekMu.Unlock()
				return e, nil
			}
		}
	}
	g.peekMu.Unlock()

	ch := g.inboxes[c.rank][src]
	var pending []envelope
	defer func() {
		for _, e := range pending {
			ch <- e
		}
	}()
	for {
		select {
		case e := <-ch:
			if e.tag == tag {
				if !consume {
					g.peekMu.Lock()
					if g.peeked[c.rank] == nil {
						g.peeked[c.rank] = make(map[Rank][]envelope)
					}
					g.peeked[c.rank][src] = append(g.peeked[c.rank][src], e)
					g.peekMu.Unlock()
				}
				return e, nil
			}
			pending = append(pending, e)
		case <-ctx.Done():
			return envelope{}, ctx.Err()
		}
	}
}

// inProcessRequest is the Request handle ISend/IRecv hand back: a
// goroutine runs the blocking operation and closes done when it
// completes, so Wait just joins that goroutine.
type inProcessRequest struct {
	done    chan struct{}
	payload []byte
	err     error
}

func (r *inProcessRequest) Wait(ctx context.Context) ([]byte, error) {
	select {
	case <-r.done:
		return r.payload, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *InProcessCommunicator) ISend(ctx context.Context, dst Rank, tag int, payload []byte) (Request, error) {
	r := &inProcessRequest{done: make(chan struct{})}
	go func() {
		r.err = c.Send(ctx, dst, tag, payload)
		close(r.done)
	}()
	return r, nil
}

func (c *InProcessCommunicator) IRecv(ctx context.Context, src Rank, tag int) (Request, error) {
	r := &inProcessRequest{done: make(chan struct{})}
	go func() {
		r.payload, r.err = c.Recv(ctx, src, tag)
		close(r.done)
	}()
	return r, nil
}

// Probe blocks until a message tagged tag from src is visible and
// reports its length without consuming it, parking it in the group's
// peek buffer so the Recv/IRecv that follows still observes it.
func (c *InProcessCommunicator) Probe(ctx context.Context, src Rank, tag int) (int, error) {
	e, err := c.fetch(ctx, src, tag, false)
	if err != nil {
		return 0, err
	}
	return len(e.payload), nil
}

func (c *InProcessCommunicator) Allgather(ctx context.Context, send []byte) ([][]byte, error) {
	const tag = -1000
	for dst := Rank(0); int(dst) < c.group.size; dst++ {
		if dst == c.rank {
			continue
		}
		if err := c.Send(ctx, dst, tag, send); err != nil {
			return nil, err
		}
	}
	out := make([][]byte, c.group.size)
	out[c.rank] = send
	for src := Rank(0); int(src) < c.group.size; src++ {
		if src == c.rank {
			continue
		}
		payload, err := c.Recv(ctx, src, tag)
		if err != nil {
			return nil, err
		}
		out[src] = payload
	}
	return out, nil
}

func (c *InProcessCommunicator) Alltoall(ctx context.Context, send [][]byte) ([][]byte, error) {
	if len(send) != c.group.size {
		return nil, fmt.Errorf("alltoall: send has %d entries, want %d (group size)", len(send), c.group.size)
	}
	const tag = -3000
	for dst := Rank(0); int(dst) < c.group.size; dst++ {
		if dst == c.rank {
			continue
		}
		if err := c.Send(ctx, dst, tag, send[dst]); err != nil {
			return nil, err
		}
	}
	out := make([][]byte, c.group.size)
	out[c.rank] = send[c.rank]
	for src := Rank(0); int(src) < c.group.size; src++ {
		if src == c.rank {
			continue
		}
		payload, err := c.Recv(ctx, src, tag)
		if err != nil {
			return nil, err
		}
		out[src] = payload
	}
	return out, nil
}

func (c *InProcessCommunicator) Allreduce(ctx context.Context, send int64, op ReduceOp) (int64, error) {
	payload := []byte(fmt.Sprintf("%d", send))
	gathered, err := c.Allgather(ctx, payload)
	if err != nil {
		return 0, err
	}
	var acc int64
	for i, g := range gathered {
		var v int64
		if _, err := fmt.Sscanf(string(g), "%d", &v); err != nil {
			return 0, fmt.Errorf("allreduce: rank %d sent malformed value: %w", i, err)
		}
		if i == 0 {
			acc = v
			continue
		}
		acc = reduce(op, acc, v)
	}
	return acc, nil
}

// Barrier blocks every rank until all group.size ranks have called it. A
// cyclic barrier: the last arrival closes the shared gate and immediately
// installs a fresh one, so the same group can barrier repeatedly across
// phases without an explicit reset call.
func (c *InProcessCommunicator) Barrier(ctx context.Context) error {
	g := c.group
	g.barrierMu.Lock()
	if g.barrierGate == nil {
		g.barrierGate = make(chan struct{})
	}
	gate := g.barrierGate
	g.barrierCount++
	last := g.barrierCount == g.size
	if last {
		g.barrierCount = 0
		g.barrierGate = nil
	}
	g.barrierMu.Unlock()

	if last {
		close(gate)
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
