// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package forest

import (
	"context"
	"encoding/binary"

	"lukechampine.com/blake3"
)

// checksum hashes every leaf (tree id, coordinates, level and payload) on
// its own with BLAKE3 and XORs the leaf digests into one local digest,
// then combines each rank's local digest into one forest-wide digest via
// an Allreduce-style fold (XOR is order-independent, so leaves and ranks
// can combine in any order and still agree) — the property spec.md §8
// calls "checksum stability": two forests holding the same global
// quadrant set under different partitions hash identically.
func (f *Forest[V]) checksum(ctx context.Context, encode func(V) []byte) ([]byte, error) {
	local := make([]byte, 32)
	var lenBuf [8]byte
	for _, t := range f.Trees {
		for _, l := range t.Leaves() {
			h := blake3.New(32, nil)
			binary.LittleEndian.PutUint32(lenBuf[:4], uint32(t.ID))
			h.Write(lenBuf[:4])
			binary.LittleEndian.PutUint32(lenBuf[:4], uint32(l.X))
			h.Write(lenBuf[:4])
			binary.LittleEndian.PutUint32(lenBuf[:4], uint32(l.Y))
			h.Write(lenBuf[:4])
			binary.LittleEndian.PutUint32(lenBuf[:4], uint32(l.Z))
			h.Write(lenBuf[:4])
			h.Write([]byte{byte(l.Level)})
			if encode != nil {
				h.Write(encode(l.Data))
			}
			for i, b := range h.Sum(nil) {
				local[i] ^= b
			}
		}
	}

	if f.Comm == nil || f.Comm.Size() == 1 {
		return local, nil
	}
	gathered, err := f.Comm.Allgather(ctx, local)
	if err != nil {
		return nil, err
	}
	combined := make([]byte, 32)
	for _, g := range gathered {
		for i := range combined {
			combined[i] ^= g[i]
		}
	}
	return combined, nil
}
