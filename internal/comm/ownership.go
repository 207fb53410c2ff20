// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package comm

import "sort"

// Partition is the global partition boundary array spec.md §4.3 describes:
// globalFirstPosition[r] is the global index (across every tree's
// Morton-sorted leaf sequence, concatenated tree by tree) of the first
// quadrant owned by rank r, with globalFirstPosition[size] set to the
// total quadrant count as a sentinel upper bound.
type Partition struct {
	globalFirstPosition []int64
}

// NewPartition builds a Partition from each rank's locally owned quadrant
// count (ordered by rank), the collective result of an Allgather the
// forest package runs once per Balance/Partition/Refine/Coarsen.
func NewPartition(countsByRank []int64) *Partition {
	p := &Partition{globalFirstPosition: make([]int64, len(countsByRank)+1)}
	var acc int64
	for r, n := range countsByRank {
		p.globalFirstPosition[r] = acc
		acc += n
	}
	p.globalFirstPosition[len(countsByRank)] = acc
	return p
}

// Total returns the global quadrant count.
func (p *Partition) Total() int64 { return p.globalFirstPosition[len(p.globalFirstPosition)-1] }

// OwnerOf returns the rank owning global position pos (p4est's
// p4est_comm_find_owner, a binary search over the partition boundary
// array rather than a linear scan).
func (p *Partition) OwnerOf(pos int64) Rank {
	// find the largest r such that globalFirstPosition[r] <= pos
	r := sort.Search(len(p.globalFirstPosition)-1, func(r int) bool {
		return p.globalFirstPosition[r+1] > pos
	})
	return Rank(r)
}

// FirstPosition returns the global index of the first quadrant owned by
// rank r.
func (p *Partition) FirstPosition(r Rank) int64 { return p.globalFirstPosition[r] }

// Count returns the number of quadrants owned by rank r.
func (p *Partition) Count(r Rank) int64 {
	return p.globalFirstPosition[r+1] - p.globalFirstPosition[r]
}
