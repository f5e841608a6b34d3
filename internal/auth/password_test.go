package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)

	assert.True(t, CheckPasswordHash("correct horse battery staple", hash))
	assert.False(t, CheckPasswordHash("correct horse battery stapler", hash))
	assert.False(t, CheckPasswordHash("", hash))
}

func TestHashPasswordSaltsDiffer(t *testing.T) {
	first, err := HashPassword("same password")
	require.NoError(t, err)
	second, err := HashPassword("same password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)

	salt1, _, _ := strings.Cut(first, ":")
	salt2, _, _ := strings.Cut(second, ":")
	assert.NotEqual(t, salt1, salt2)
}

func TestCheckPasswordHashMalformedStored(t *testing.T) {
	for _, stored := range []string{"", "no-separator", "zz:not-hex", "abcd:1234"} {
		assert.False(t, CheckPasswordHash("anything", stored), "stored=%q", stored)
	}
}
