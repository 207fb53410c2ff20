// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package forest

import "context"

// Balance enforces 2:1 balance up to connect type ct across every tree,
// every process boundary, and every tree-to-tree connectivity transform
// (spec.md §4.4–§4.6). It is collective: every rank in f.Comm must call
// Balance, in the same order, with the same ct. The ghost-layer protocol
// (§4.5) is used unless f.Inspect requests the sort variant (§4.6) via
// Inspect.BalanceSort — useful at high process counts, where the sort
// variant's recursive-doubling communication pattern scales better than
// the ghost protocol's per-peer exchange.
func (f *Forest[V]) Balance(ctx context.Context, ct ConnectType, replace ReplaceFunc[V]) error {
	for _, t := range f.Trees {
		f.localBalance(t, ct, replace)
	}
	f.crossTreeBalance(ct, replace)

	if f.Comm == nil || f.Comm.Size() == 1 {
		f.revision++
		f.recomputePartition(ctx)
		return nil
	}

	var err error
	if f.Inspect.balanceSort() {
		err = f.balanceSort(ctx, ct, replace)
	} else {
		err = f.balanceGhost(ctx, ct, replace)
	}
	if err != nil {
		return err
	}

	for _, t := range f.Trees {
		f.localBalance(t, ct, replace)
	}
	f.crossTreeBalance(ct, replace)

	f.revision++
	f.recomputePartition(ctx)
	return nil
}
