// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package value

import "testing"

func TestIsZeroSizedType(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		got  bool
		want bool
	}{
		{
			name: "struct{}",
			got:  IsZST[struct{}](),
			want: true,
		},
		{
			name: "[0]byte",
			got:  IsZST[[0]byte](),
			want: true,
		},
		{
			name: "int",
			got:  IsZST[int](),
			want: false,
		},
		{
			name: "struct_with_field",
			got:  IsZST[struct{ X int }](),
			want: false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if tt.got != tt.want {
				t.Errorf("want %v, got %v", tt.want, tt.got)
			}
		})
	}
}
