package auth_test

import (
	"testing"

	"github.com/veridian-labs/veridian/pkg/auth"
)

func TestAllow(t *testing.T) {
	cases := []struct {
		name     string
		required []string
		held     []string
		want     bool
	}{
		{"match", []string{"admin"}, []string{"admin"}, true},
		{"match among several", []string{"admin", "editor"}, []string{"user", "editor"}, true},
		{"case-insensitive", []string{"Admin"}, []string{"admin"}, true},
		{"no overlap", []string{"admin"}, []string{"user"}, false},
		{"no requirement passes role holder", nil, []string{"user"}, true},
		{"roleless denied", []string{"admin"}, nil, false},
		{"roleless denied even with no requirement", nil, nil, false},
		{"roleless denied with empty slice", []string{}, []string{}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := auth.Allow(tc.required, tc.held); got != tc.want {
				t.Fatalf("Allow(%v, %v) = %v, want %v", tc.required, tc.held, got, tc.want)
			}
		})
	}
}
