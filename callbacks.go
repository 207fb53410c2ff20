// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package forest

// RefineFunc decides whether the leaf at quadrant q in tree t may be
// refined (subdivided into its children).
type RefineFunc[V any] func(f *Forest[V], t TreeID, q Quadrant, data V) bool

// CoarsenFunc decides whether the CHILDREN siblings in family (in child-id
// order) may be replaced by their common parent.
type CoarsenFunc[V any] func(f *Forest[V], t TreeID, family []Leaf[V]) bool

// InitFunc populates the user data of a newly created leaf (by New,
// Refine, Coarsen, Balance, or Complete).
type InitFunc[V any] func(f *Forest[V], t TreeID, q Quadrant) V

// ReplaceFunc transfers user data across a refinement or coarsening event:
// outgoing holds the leaves being removed, incoming the leaves replacing
// them (a single parent and CHILDREN children, in one direction or the
// other). If nil, incoming leaves are simply populated by InitFunc and
// outgoing data is dropped.
type ReplaceFunc[V any] func(f *Forest[V], t TreeID, outgoing, incoming []Leaf[V])

// WeightFunc returns a non-negative load weight for quadrant q, used by
// Partition to balance work rather than leaf count across processes. A nil
// WeightFunc partitions by leaf count (every leaf weighs 1).
type WeightFunc[V any] func(f *Forest[V], t TreeID, q Quadrant, data V) int64
