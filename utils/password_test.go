package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashSecret(t *testing.T) {
	hash, err := HashSecret("rex")
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	assert.NotContains(t, hash, "rex", "hash must not contain the plaintext")
	assert.True(t, strings.HasPrefix(hash, "$2a$12$"), "expected bcrypt cost 12, got %s", hash)

	hash2, err := HashSecret("rex")
	require.NoError(t, err)
	assert.NotEqual(t, hash, hash2, "bcrypt salting should make hashes differ")
}

func TestVerifySecret(t *testing.T) {
	hash, err := HashSecret("correct horse")
	require.NoError(t, err)

	assert.True(t, VerifySecret("correct horse", hash))
	assert.False(t, VerifySecret("wrong horse", hash))
	assert.False(t, VerifySecret("", hash))
	assert.False(t, VerifySecret("correct horse", "not-a-hash"))
}
