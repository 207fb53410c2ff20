// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

// Package assert implements the fatal debug-boundary checks spec.md §7
// calls for: programming errors and resource-exhaustion errors are not
// recoverable in a collective, distributed algorithm, so they panic rather
// than propagate as error values that a caller might be tempted to retry.
package assert

import "fmt"

// Invariant panics with a formatted message if cond is false. It marks a
// precondition violation: the caller broke the contract (e.g. a refine
// callback refined a leaf at allowed_level, a tree lost sortedness).
func Invariant(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf("forest: invariant violated: "+format, args...))
	}
}

// NotReached panics unconditionally; it marks a code path the caller's
// preconditions should have made impossible to reach.
func NotReached(format string, args ...any) {
	panic(fmt.Sprintf("forest: unreachable: "+format, args...))
}

// Resource panics to report a resource-exhaustion error (allocation
// failure, message buffer exhaustion). There is no recovery path: the
// operation is collective, and partial rollback would desynchronize the
// process group.
func Resource(err error, what string) {
	if err != nil {
		panic(fmt.Sprintf("forest: resource exhausted (%s): %v", what, err))
	}
}
