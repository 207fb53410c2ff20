// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package forest

// Cloner is an interface that enables deep cloning of values of type V. If
// a leaf's payload type implements Cloner[V], Tree.Clone and Forest.Copy
// use its Clone method instead of a shallow Go value copy, so that
// pointer-shaped user data is not aliased between the original and the
// copy.
type Cloner[V any] interface {
	Clone() V
}

// cloneValue returns a deep copy of v via Cloner[V] when v implements it,
// otherwise a plain (shallow) Go value copy.
func cloneValue[V any](v V) V {
	if c, ok := any(v).(Cloner[V]); ok {
		return c.Clone()
	}
	return v
}
