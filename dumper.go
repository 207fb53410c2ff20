// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package forest

import (
	"fmt"
	"io"
	"strings"
)

// dumpString is a wrapper around dump for tests and debug sessions.
func (f *Forest[V]) dumpString() string {
	w := new(strings.Builder)
	if err := f.dump(w); err != nil {
		panic(err)
	}
	return w.String()
}

// dump writes every tree's leaf sequence to w, one line per leaf, useful
// during development and debugging.
//
//	Output:
//
//	tree 0 dim=2 leaves=7 revision=2
//	  [0,0]/1
//	  [0,536870912]/2
//	  [0,805306368]/2
//	  [268435456,536870912]/2
//	  [268435456,805306368]/2
//	  [536870912,0]/1
//	  [536870912,536870912]/1
func (f *Forest[V]) dump(w io.Writer) error {
	for _, t := range f.Trees {
		if _, err := fmt.Fprintf(w, "tree %d dim=%d leaves=%d revision=%d\n", t.ID, t.Dim, t.Len(), f.revision); err != nil {
			return err
		}
		for _, l := range t.Leaves() {
			if err := dumpLeaf(w, t.Dim, l.Quadrant); err != nil {
				return err
			}
		}
	}
	return nil
}

func dumpLeaf(w io.Writer, dim int, q Quadrant) error {
	if dim == Dim3 {
		_, err := fmt.Fprintf(w, "  [%d,%d,%d]/%d\n", q.X, q.Y, q.Z, q.Level)
		return err
	}
	_, err := fmt.Fprintf(w, "  [%d,%d]/%d\n", q.X, q.Y, q.Level)
	return err
}
