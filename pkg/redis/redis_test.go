package redis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSearchTerm(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Red  Shirt", want: "red shirt"},
		{in: "   hoodie\t", want: "hoodie"},
		{in: "", want: ""},
		{in: strings.Repeat("a", 150), want: strings.Repeat("a", 100)},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeSearchTerm(tt.in))
	}
}
