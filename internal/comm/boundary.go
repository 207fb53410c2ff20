// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package comm

import "context"

// BoundaryRecord is the wire-format envelope the ghost-layer protocol
// (spec.md §4.5) ships across a Send/Recv pair: one quadrant crossing a
// process boundary, tagged with the tree it belongs to and the
// insulation-layer direction code that produced it. Per SPEC_FULL.md's
// resolution of the pad8/pad16 overload, these tags live here rather than
// on the long-lived Leaf[V] value, since they only matter for the
// duration of one exchange round.
type BoundaryRecord struct {
	Tree       int32
	X, Y, Z    int32
	Level      int8
	Code       int8 // the NeighborOffset.Code that produced this record
	FromTree   int32
	UserData   []byte // caller-encoded payload, opaque to comm
}

// Notify is the sparse notification primitive of spec.md §4.3
// (p4est_notify / NBX-style): given the set of peers this rank will send
// to, Notify returns the set of peers that listed this rank in their own
// outgoing set.
//
// The in-process implementation below trades asymptotic elegance for a
// transport that composes with InProcessCommunicator: every rank
// announces its outgoing peer set through one Allgather round, then
// derives its own incoming set locally. Real NBX avoids the Allgather by
// using MPI_Ibarrier probes; simulating that over channels buys nothing
// in a single address space, so this keeps the simple form documented as
// the one known deviation from the original protocol's wire behavior.
func Notify(ctx context.Context, c Communicator, outgoing []Rank) ([]Rank, error) {
	mine := make(map[Rank]bool, len(outgoing))
	for _, r := range outgoing {
		mine[r] = true
	}
	send := encodeRankSet(outgoing)
	gathered, err := c.Allgather(ctx, send)
	if err != nil {
		return nil, err
	}
	var incoming []Rank
	for src, payload := range gathered {
		if Rank(src) == c.Rank() {
			continue
		}
		for _, dst := range decodeRankSet(payload) {
			if dst == c.Rank() {
				incoming = append(incoming, Rank(src))
				break
			}
		}
	}
	return incoming, nil
}

func encodeRankSet(rs []Rank) []byte {
	out := make([]byte, 4*len(rs))
	for i, r := range rs {
		putU32(out[4*i:], uint32(r))
	}
	return out
}

func decodeRankSet(b []byte) []Rank {
	out := make([]Rank, len(b)/4)
	for i := range out {
		out[i] = Rank(getU32(b[4*i:]))
	}
	return out
}

// boundaryRecordSize is the fixed wire width of one BoundaryRecord,
// excluding UserData: Tree, X, Y, Z (int32 each) plus Level (1 byte).
const boundaryRecordSize = 4*4 + 1

// EncodeBoundary packs records into a flat byte buffer for one
// Communicator.Allgather/Send call. Only Tree, X, Y, Z and Level are
// carried; Code, FromTree and UserData are not part of this fixed-width
// encoding.
func EncodeBoundary(records []BoundaryRecord) []byte {
	buf := make([]byte, len(records)*boundaryRecordSize)
	off := 0
	for _, r := range records {
		putU32(buf[off:], uint32(r.Tree))
		putU32(buf[off+4:], uint32(r.X))
		putU32(buf[off+8:], uint32(r.Y))
		putU32(buf[off+12:], uint32(r.Z))
		buf[off+16] = byte(r.Level)
		off += boundaryRecordSize
	}
	return buf
}

// DecodeBoundary is the inverse of EncodeBoundary.
func DecodeBoundary(buf []byte) []BoundaryRecord {
	n := len(buf) / boundaryRecordSize
	out := make([]BoundaryRecord, n)
	off := 0
	for i := 0; i < n; i++ {
		out[i] = BoundaryRecord{
			Tree:  int32(getU32(buf[off:])),
			X:     int32(getU32(buf[off+4:])),
			Y:     int32(getU32(buf[off+8:])),
			Z:     int32(getU32(buf[off+12:])),
			Level: int8(buf[off+16]),
		}
		off += boundaryRecordSize
	}
	return out
}

func putU32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func getU32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
