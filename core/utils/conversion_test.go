package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToBool(t *testing.T) {
	tests := []struct {
		in   any
		want bool
	}{
		{true, true},
		{false, false},
		{1, true},
		{0, false},
		{int64(1), true},
		{float64(1), true},
		{float64(0), false},
		{"1", true},
		{"TRUE", true},
		{" yes ", true},
		{"on", true},
		{"0", false},
		{"", false},
		{[]byte("1"), true},
		{nil, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ToBool(tt.in), "ToBool(%#v)", tt.in)
	}
}
