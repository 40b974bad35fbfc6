package apikey

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playgambit/backend/internal/errs"
)

func TestParseRoundTrip(t *testing.T) {
	k, err := Parse("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	assert.Equal(t, "0123456789abcdef0123456789abcdef", k.String())
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, s := range []string{"", "hello", "0123456789abcdef", strings.Repeat("g", 32), strings.Repeat("a", 33)} {
		_, err := Parse(s)
		assert.ErrorIs(t, err, errs.ErrMalformedAPIKey, "input %q", s)
	}
}

func TestNewKeysAreDistinct(t *testing.T) {
	a, b := New(), New()
	assert.NotEqual(t, a, b)
	assert.Len(t, a.String(), 32)
}

func TestHashIsStableAndHex(t *testing.T) {
	k, err := Parse("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	h := k.Hash()
	assert.Equal(t, h, k.Hash())
	assert.Len(t, h.String(), 64)

	parsed, err := ParseHashed(h.String())
	require.NoError(t, err)
	assert.Equal(t, h, parsed)
}

func TestParseHashedRejectsUppercaseAndWrongLength(t *testing.T) {
	valid := strings.Repeat("ab", 32)
	_, err := ParseHashed(valid)
	require.NoError(t, err)

	_, err = ParseHashed(strings.ToUpper(valid))
	assert.ErrorIs(t, err, errs.ErrMalformedAPIKey)

	_, err = ParseHashed(valid[:63])
	assert.ErrorIs(t, err, errs.ErrMalformedAPIKey)
}
