// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package forest

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/go-amr/forest/internal/comm"
)

// balanceSort implements the sort-variant balance algorithm of spec.md
// §4.6: instead of exchanging with every topological neighbor directly,
// the group runs recursive-doubling rounds at stride 1, 2, 4, ..., so
// information from rank r reaches rank r±k in O(log size) rounds instead
// of needing a direct link for every k. This is the variant Inspect asks
// for at high process counts, where the ghost protocol's per-peer
// fan-out would otherwise dominate.
//
// A single recursive-doubling sweep only moves a violation one hop per
// stride round; a split produced deep into a sweep can still leave a
// coarser neighbor one level too coarse on the opposite side of the same
// rank, which the next sweep then has to find. minInsulationLevel bounds
// how many sweeps that chain can possibly need, mirroring localBalance's
// own per-leaf termination argument: each sweep strictly reduces the
// level gap somewhere, and the gap from the shallowest local leaf to
// QMaxLevel bounds how many times that can happen.
func (f *Forest[V]) balanceSort(ctx context.Context, ct ConnectType, replace ReplaceFunc[V]) error {
	size := f.Comm.Size()
	minLevel, err := f.minInsulationLevel(ctx)
	if err != nil {
		return err
	}
	maxSweeps := int(QMaxLevel-minLevel) + 1

	for sweep := 0; sweep < maxSweeps; sweep++ {
		anyChanged := false
		for stride := 1; stride < size; stride *= 2 {
			changed, err := f.sortRound(ctx, ct, replace, stride)
			if err != nil {
				return err
			}
			anyChanged = anyChanged || changed
		}
		if !anyChanged {
			return nil
		}
	}
	return nil
}

// minInsulationLevel returns the coarsest level any rank's insulation
// layer still needs to reach: the shallowest leaf level present anywhere
// in the group, via Allreduce-Min over every rank's own shallowest local
// leaf (QMaxLevel if a rank currently owns no leaves at all, the identity
// element for a minimum).
func (f *Forest[V]) minInsulationLevel(ctx context.Context) (int8, error) {
	level := int8(QMaxLevel)
	for _, t := range f.Trees {
		for _, l := range t.Leaves() {
			if l.Level < level {
				level = l.Level
			}
		}
	}
	reduced, err := f.Comm.Allreduce(ctx, int64(level), comm.Min)
	if err != nil {
		return 0, err
	}
	return int8(reduced), nil
}

// sortTag distinguishes the two payloads a stride round ever carries: a
// sender's lo-half boundary buffer versus its hi-half, so a rank can tell
// which half of a peer's leaves it is looking at without decoding the
// quadrants first.
func sortTag(stride int, lo bool) int {
	if lo {
		return 2 * stride
	}
	return 2*stride + 1
}

// sortRound runs one recursive-doubling stride: this rank exchanges
// boundary halves with rank-stride and rank+stride (whichever exist),
// each direction driven by its own ISend/IRecv pair so both are in
// flight at once, merges whatever arrives into the corresponding local
// trees (through the same cross-tree transform the ghost protocol and
// crossTreeBalance use), re-runs the local balance kernel, and reports
// whether any tree actually grew as a result.
func (f *Forest[V]) sortRound(ctx context.Context, ct ConnectType, replace ReplaceFunc[V], stride int) (bool, error) {
	rank := int(f.Comm.Rank())
	size := f.Comm.Size()

	// lo true: the partner sits below this rank (rank-stride), so this
	// rank sends its own lo-side and expects the partner's hi-side back.
	type partner struct {
		rank int
		lo   bool
	}
	var partners []partner
	if p := rank + stride; p < size {
		partners = append(partners, partner{rank: p, lo: false})
	}
	if p := rank - stride; p >= 0 {
		partners = append(partners, partner{rank: p, lo: true})
	}

	incoming := make([][]comm.BoundaryRecord, len(partners))
	g, gctx := errgroup.WithContext(ctx)
	for i, pe := range partners {
		i, pe := i, pe
		g.Go(func() error {
			mySide := f.encodeBoundarySide(pe.lo)
			sendTag := sortTag(stride, pe.lo)
			recvTag := sortTag(stride, !pe.lo)

			sreq, err := f.Comm.ISend(gctx, comm.Rank(pe.rank), sendTag, mySide)
			if err != nil {
				return err
			}
			rreq, err := f.Comm.IRecv(gctx, comm.Rank(pe.rank), recvTag)
			if err != nil {
				return err
			}
			payload, err := rreq.Wait(gctx)
			if err != nil {
				return err
			}
			if _, err := sreq.Wait(gctx); err != nil {
				return err
			}
			incoming[i] = comm.DecodeBoundary(payload)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return false, err
	}
	// every rank has now exchanged with every partner this stride uses;
	// the next stride's sends must not land before this stride's last
	// receive is consumed.
	if err := f.Comm.Barrier(ctx); err != nil {
		return false, err
	}

	offsets := InsulationOffsets(f.Conn.Dim)
	bound := ct.maxCoDim(f.Conn.Dim)

	changed := false
	for _, t := range f.Trees {
		before := t.Len()
		footprint := quadrantsOf(t.Leaves())

		for _, recs := range incoming {
			for _, rec := range recs {
				recTree := TreeID(rec.Tree)
				q := Quadrant{X: rec.X, Y: rec.Y, Z: rec.Z, Level: rec.Level}
				if recTree == t.ID {
					t.insertForeign(q, f.borrowGhostData(func() V { return f.init(f, t.ID, q) }))
					continue
				}
				for _, img := range f.treeCrossingImages(recTree, q, offsets, bound) {
					if img.Tree != t.ID {
						continue
					}
					t.insertForeign(img.Quadrant, f.borrowGhostData(func() V { return f.init(f, t.ID, img.Quadrant) }))
				}
			}
		}

		f.localBalance(t, ct, replace)
		t.keepOnly(footprint)
		if t.Len() != before {
			changed = true
		}
	}
	return changed, nil
}

// encodeBoundarySide packs half of each tree's locally owned leaves into
// one flat buffer: the lower half (by Morton order) when lo is true, the
// upper half otherwise. Shipping only the half actually adjacent to a
// given stride direction is what makes the recursive-doubling exchange
// cheaper per round than the ghost protocol's full-boundary Allgather.
func (f *Forest[V]) encodeBoundarySide(lo bool) []byte {
	var records []comm.BoundaryRecord
	for _, t := range f.Trees {
		leaves := t.Leaves()
		mid := len(leaves) / 2
		side := leaves[mid:]
		if lo {
			side = leaves[:mid]
		}
		for _, l := range side {
			records = append(records, comm.BoundaryRecord{
				Tree: int32(t.ID), X: l.X, Y: l.Y, Z: l.Z, Level: l.Level,
			})
		}
	}
	return comm.EncodeBoundary(records)
}
