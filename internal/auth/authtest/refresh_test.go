package authtest_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aelexs/todoclient/internal/auth/authtest"
)

func TestGenerateRefreshToken(t *testing.T) {
	t.Run("produces 43-char base64url string", func(t *testing.T) {
		token, err := authtest.GenerateRefreshToken()
		require.NoError(t, err)
		assert.Len(t, token, 43)
	})

	t.Run("produces different tokens", func(t *testing.T) {
		t1, err := authtest.GenerateRefreshToken()
		require.NoError(t, err)
		t2, err := authtest.GenerateRefreshToken()
		require.NoError(t, err)
		assert.NotEqual(t, t1, t2)
	})
}

func TestHashRefreshToken(t *testing.T) {
	assert.Equal(t, authtest.HashRefreshToken("a"), authtest.HashRefreshToken("a"))
	assert.NotEqual(t, authtest.HashRefreshToken("a"), authtest.HashRefreshToken("b"))
	assert.Len(t, authtest.HashRefreshToken("a"), 64)
}
