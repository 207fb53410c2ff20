// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package forest

import (
	"context"
	"encoding/binary"

	"github.com/go-amr/forest/internal/comm"
	"github.com/samber/lo"
)

// Partition redistributes leaves across ranks so that each rank's share
// of total weight is as close to total/size as spec.md §6 describes,
// without changing tree shape. A nil weight weighs every leaf 1 (plain
// leaf-count partitioning). encode/decode carry V across the wire the
// same way Checksum's encode parameter does, since the package has no
// other way to know how to serialize a caller's payload type.
//
// Partition is collective. It returns the number of quadrants that
// changed owning rank. Per the zero-weight resolution recorded in
// SPEC_FULL.md: if every leaf's weight is zero, Partition is a no-op and
// returns 0 — there is no meaningful "even split" of nothing, so it is
// not attempted.
//
// Implementation note: rather than a pairwise send/receive schedule, this
// builds the new assignment from a single Allgather of every rank's
// (quadrant, weight, encoded payload) triples, the same simplification
// Notify documents for the simulated in-process transport — a real
// large-scale transport would instead compute the new boundary from
// weight prefix sums alone and ship only the quadrants that actually
// move.
func (f *Forest[V]) Partition(ctx context.Context, weight WeightFunc[V], encode func(V) []byte, decode func([]byte) V) (int64, error) {
	if f.Comm == nil || f.Comm.Size() == 1 {
		f.revision++
		return 0, nil
	}

	mine := f.encodePartitionEntries(weight, encode)
	gathered, err := f.Comm.Allgather(ctx, mine)
	if err != nil {
		return 0, err
	}

	var global []partitionEntry
	for rank, buf := range gathered {
		global = append(global, decodePartitionEntries(buf, comm.Rank(rank))...)
	}

	var total int64
	for _, e := range global {
		total += e.weight
	}
	if total == 0 {
		return 0, nil
	}

	size := int64(f.Comm.Size())
	newOwner := make([]comm.Rank, len(global))
	var cum int64
	rank := comm.Rank(0)
	for i, e := range global {
		for cum >= total*int64(rank+1)/size && rank < comm.Rank(size-1) {
			rank++
		}
		newOwner[i] = rank
		cum += e.weight
	}

	shipped := int64(lo.CountBy(lo.Range(len(global)), func(i int) bool {
		return newOwner[i] != global[i].origin
	}))

	byTree := make(map[TreeID][]Leaf[V])
	me := f.Comm.Rank()
	for i, e := range global {
		if newOwner[i] != me {
			continue
		}
		byTree[e.tree] = append(byTree[e.tree], Leaf[V]{Quadrant: e.q, Data: decode(e.payload)})
	}
	for _, t := range f.Trees {
		t.Splice(byTree[t.ID])
	}

	f.revision++
	f.recomputePartition(ctx)
	return shipped, nil
}

type partitionEntry struct {
	tree    TreeID
	q       Quadrant
	weight  int64
	payload []byte
	origin  comm.Rank
}

func (f *Forest[V]) encodePartitionEntries(weight WeightFunc[V], encode func(V) []byte) []byte {
	var buf []byte
	var hdr [4 + 4*4 + 8 + 4]byte
	for _, t := range f.Trees {
		for _, l := range t.Leaves() {
			w := int64(1)
			if weight != nil {
				w = weight(f, t.ID, l.Quadrant, l.Data)
			}
			payload := encode(l.Data)

			binary.LittleEndian.PutUint32(hdr[0:], uint32(t.ID))
			binary.LittleEndian.PutUint32(hdr[4:], uint32(l.X))
			binary.LittleEndian.PutUint32(hdr[8:], uint32(l.Y))
			binary.LittleEndian.PutUint32(hdr[12:], uint32(l.Z))
			binary.LittleEndian.PutUint32(hdr[16:], uint32(l.Level))
			binary.LittleEndian.PutUint64(hdr[20:], uint64(w))
			binary.LittleEndian.PutUint32(hdr[28:], uint32(len(payload)))

			buf = append(buf, hdr[:]...)
			buf = append(buf, payload...)
		}
	}
	return buf
}

func decodePartitionEntries(buf []byte, origin comm.Rank) []partitionEntry {
	var out []partitionEntry
	off := 0
	const hdrSize = 4 + 4*4 + 8 + 4
	for off < len(buf) {
		tree := TreeID(binary.LittleEndian.Uint32(buf[off:]))
		x := int32(binary.LittleEndian.Uint32(buf[off+4:]))
		y := int32(binary.LittleEndian.Uint32(buf[off+8:]))
		z := int32(binary.LittleEndian.Uint32(buf[off+12:]))
		level := int8(binary.LittleEndian.Uint32(buf[off+16:]))
		w := int64(binary.LittleEndian.Uint64(buf[off+20:]))
		n := int(binary.LittleEndian.Uint32(buf[off+28:]))
		off += hdrSize
		payload := buf[off : off+n]
		off += n

		out = append(out, partitionEntry{
			tree:    tree,
			q:       Quadrant{X: x, Y: y, Z: z, Level: level},
			weight:  w,
			payload: payload,
			origin:  origin,
		})
	}
	return out
}
