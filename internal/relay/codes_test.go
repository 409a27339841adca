package relay

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestGenerateCodeLength(t *testing.T) {
	code, err := generateCode(6)
	require.NoError(t, err)
	assert.Len(t, code, 6)
}

func TestGenerateCodeCharsetProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		length := rapid.IntRange(1, 32).Draw(t, "length")
		code, err := generateCode(length)
		require.NoError(t, err)
		assert.Len(t, code, length)
		for _, ch := range code {
			assert.True(t, strings.ContainsRune(codeAlphabet, ch),
				"code %q contains %q outside the alphabet", code, ch)
		}
	})
}

func TestGenerateCodeSpread(t *testing.T) {
	// Not a statistical test; just a sanity check that consecutive
	// codes are not constant.
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := generateCode(6)
		require.NoError(t, err)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 45)
}
