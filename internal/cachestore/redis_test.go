package cachestore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeGlob(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain name untouched", "cpl-v2", "cpl-v2"},
		{"star escaped", "v*", `v\*`},
		{"question mark escaped", "v?", `v\?`},
		{"brackets escaped", "v[1]", `v\[1\]`},
		{"caret escaped", "v^2", `v\^2`},
		{"backslash escaped", `v\2`, `v\\2`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, escapeGlob(tt.in))
		})
	}
}
