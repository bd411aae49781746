package authtest_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aelexs/todoclient/internal/auth"
	"github.com/aelexs/todoclient/internal/auth/authtest"
	"github.com/aelexs/todoclient/internal/domain"
	"github.com/aelexs/todoclient/internal/domain/domaintest"
)

var start = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

var alice = domain.User{ID: 1, Username: "alice", Email: "a@b.com"}

func TestMintAccessToken(t *testing.T) {
	clock := domaintest.NewFakeClock(start)
	minter := authtest.NewMinter(authtest.MinterConfig{AccessTTL: 10 * time.Minute, Clock: clock})

	result, err := minter.MintAccessToken(alice, 3)
	require.NoError(t, err)
	assert.NotEmpty(t, result.JTI)
	assert.Equal(t, start.Add(10*time.Minute), result.ExpiresAt)

	t.Run("verifies while fresh", func(t *testing.T) {
		claims, err := minter.Verify(result.Token)
		require.NoError(t, err)
		assert.Equal(t, "a@b.com", claims.Subject)
		assert.Equal(t, int64(1), claims.UserID)
		assert.Equal(t, "alice", claims.Username)
		assert.Equal(t, int64(3), claims.Generation)
		assert.Equal(t, result.JTI, claims.ID)
	})

	t.Run("readable by the client inspector", func(t *testing.T) {
		insp := auth.NewInspector(auth.InspectorConfig{Clock: clock})
		assert.Equal(t, "a@b.com", insp.UserID(result.Token))
		assert.False(t, insp.IsExpired(result.Token))
		assert.False(t, insp.WillExpireSoon(result.Token, 5*time.Minute))

		claims, ok := insp.Decode(result.Token)
		require.True(t, ok)
		assert.Equal(t, auth.FlexibleID("1"), claims.UserID)
	})

	t.Run("rejects after expiry", func(t *testing.T) {
		clock.Set(start.Add(11 * time.Minute))
		defer clock.Set(start)

		_, err := minter.Verify(result.Token)
		assert.ErrorIs(t, err, authtest.ErrTokenInvalid)
	})

	t.Run("rejects a foreign signature", func(t *testing.T) {
		other := authtest.NewMinter(authtest.MinterConfig{Secret: []byte("other"), Clock: clock})
		_, err := other.Verify(result.Token)
		assert.ErrorIs(t, err, authtest.ErrTokenInvalid)
	})

	t.Run("negative ttl mints an expired token", func(t *testing.T) {
		expired, err := minter.MintWithTTL(alice, 0, -time.Second)
		require.NoError(t, err)
		_, err = minter.Verify(expired.Token)
		assert.ErrorIs(t, err, authtest.ErrTokenInvalid)
	})
}
