package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateSKUCode(t *testing.T) {
	code := GenerateSKUCode(12, "Navy Blue", "m")
	assert.True(t, strings.HasPrefix(code, "PRD12-NAVYBLUE-M-"), code)
	assert.Len(t, strings.TrimPrefix(code, "PRD12-NAVYBLUE-M-"), 8)

	assert.NotEqual(t, code, GenerateSKUCode(12, "Navy Blue", "m"))
	assert.True(t, strings.HasPrefix(GenerateSKUCode(3, "", ""), "PRD3-"))
}

func TestGenerateToken(t *testing.T) {
	token, err := GenerateToken(32)
	assert.NoError(t, err)
	assert.Len(t, token, 64)

	other, err := GenerateToken(32)
	assert.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func TestHashToken(t *testing.T) {
	assert.Equal(t, HashToken("abc"), HashToken("abc"))
	assert.NotEqual(t, HashToken("abc"), HashToken("abd"))
	assert.Len(t, HashToken("abc"), 64)
}
