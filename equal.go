// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package forest

import "reflect"

// Equaler is a generic interface for types that can decide their own
// equality logic, overriding the potentially expensive default comparison
// with reflect.DeepEqual. Tree.Equal and the "idempotence" and
// "partition independence" testable properties of spec.md §8 use it to
// compare leaf payloads.
type Equaler[V any] interface {
	Equal(other V) bool
}

func valuesEqual[V any](a, b V) bool {
	if e, ok := any(a).(Equaler[V]); ok {
		return e.Equal(b)
	}
	return reflect.DeepEqual(a, b)
}

// Equal reports whether two trees hold leaf-for-leaf identical quadrants
// and payloads, independent of TreeID (callers compare per-tree) — the
// comparison spec.md §8's idempotence and checksum-stability properties
// are built from.
func (t *Tree[V]) Equal(other *Tree[V]) bool {
	if t.Dim != other.Dim || !t.Root.IsEqual(other.Root) || len(t.leaves) != len(other.leaves) {
		return false
	}
	for i := range t.leaves {
		a, b := t.leaves[i], other.leaves[i]
		if !a.Quadrant.IsEqual(b.Quadrant) || !valuesEqual(a.Data, b.Data) {
			return false
		}
	}
	return true
}
