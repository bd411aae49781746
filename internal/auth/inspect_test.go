package auth_test

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aelexs/todoclient/internal/auth"
	"github.com/aelexs/todoclient/internal/domain/domaintest"
)

var start = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

func newTestInspector(t *testing.T) (*auth.Inspector, *domaintest.FakeClock) {
	t.Helper()
	clock := domaintest.NewFakeClock(start)
	return auth.NewInspector(auth.InspectorConfig{Clock: clock}), clock
}

// makeToken builds an unsigned three-segment token around the given payload.
func makeToken(t *testing.T, payload any) string {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return header + "." + base64.RawURLEncoding.EncodeToString(body) + ".sig"
}

func TestDecode(t *testing.T) {
	insp, _ := newTestInspector(t)

	t.Run("backend claims", func(t *testing.T) {
		token := makeToken(t, map[string]any{
			"sub":      "a@b.com",
			"userId":   42,
			"email":    "a@b.com",
			"username": "alice",
			"type":     "access",
			"exp":      start.Add(time.Hour).Unix(),
		})

		claims, ok := insp.Decode(token)
		require.True(t, ok)
		assert.Equal(t, "a@b.com", claims.Subject)
		assert.Equal(t, auth.FlexibleID("42"), claims.UserID)
		assert.Equal(t, "alice", claims.Username)
		assert.Equal(t, "access", claims.Type)
		require.NotNil(t, claims.ExpiresAt)
		assert.True(t, claims.ExpiresAt.Equal(start.Add(time.Hour)))
	})

	t.Run("string userId", func(t *testing.T) {
		claims, ok := insp.Decode(makeToken(t, map[string]any{"userId": "u-7"}))
		require.True(t, ok)
		assert.Equal(t, auth.FlexibleID("u-7"), claims.UserID)
	})

	t.Run("padded payload", func(t *testing.T) {
		body := base64.URLEncoding.EncodeToString([]byte(`{"sub":"x"}`))
		claims, ok := insp.Decode("h." + body + ".s")
		require.True(t, ok)
		assert.Equal(t, "x", claims.Subject)
	})

	malformed := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"one segment", "abc"},
		{"two segments", "a.b"},
		{"four segments", "a.b.c.d"},
		{"invalid base64", "h.!!!.s"},
		{"not json", "h." + base64.RawURLEncoding.EncodeToString([]byte("hello")) + ".s"},
		{"json array", "h." + base64.RawURLEncoding.EncodeToString([]byte("[1,2]")) + ".s"},
		{"opaque test token", "h.p1.s"},
		{"empty payload", "h..s"},
	}
	for _, tt := range malformed {
		t.Run("malformed "+tt.name, func(t *testing.T) {
			claims, ok := insp.Decode(tt.token)
			assert.False(t, ok)
			assert.Nil(t, claims)
			assert.True(t, insp.IsExpired(tt.token))
			assert.True(t, insp.WillExpireSoon(tt.token, 0))
		})
	}
}

func TestIsExpired(t *testing.T) {
	insp, clock := newTestInspector(t)

	tests := []struct {
		name    string
		payload map[string]any
		want    bool
	}{
		{"exp one second ago", map[string]any{"exp": start.Unix() - 1}, true},
		{"exp exactly now", map[string]any{"exp": start.Unix()}, true},
		{"exp in one hour", map[string]any{"exp": start.Unix() + 3600}, false},
		{"missing exp", map[string]any{"sub": "a@b.com"}, true},
		{"zero exp", map[string]any{"exp": 0}, true},
		{"fractional exp", map[string]any{"exp": float64(start.Unix()) + 60.5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock.Set(start)
			assert.Equal(t, tt.want, insp.IsExpired(makeToken(t, tt.payload)))
		})
	}

	t.Run("expires as the clock advances", func(t *testing.T) {
		clock.Set(start)
		token := makeToken(t, map[string]any{"exp": start.Add(time.Minute).Unix()})
		assert.False(t, insp.IsExpired(token))

		clock.Advance(time.Minute)
		assert.True(t, insp.IsExpired(token))
	})
}

func TestWillExpireSoon(t *testing.T) {
	insp, clock := newTestInspector(t)

	tests := []struct {
		name      string
		remaining time.Duration
		threshold time.Duration
		want      bool
	}{
		{"one hour left", time.Hour, 5 * time.Minute, false},
		{"four minutes left", 4 * time.Minute, 5 * time.Minute, true},
		{"exactly threshold left", 5 * time.Minute, 5 * time.Minute, false},
		{"already expired", -time.Second, 5 * time.Minute, true},
		{"default threshold, four minutes left", 4 * time.Minute, 0, true},
		{"default threshold, six minutes left", 6 * time.Minute, 0, false},
		{"custom threshold", 20 * time.Minute, 30 * time.Minute, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock.Set(start)
			token := makeToken(t, map[string]any{"exp": start.Add(tt.remaining).Unix()})
			assert.Equal(t, tt.want, insp.WillExpireSoon(token, tt.threshold))
		})
	}

	t.Run("missing exp", func(t *testing.T) {
		assert.True(t, insp.WillExpireSoon(makeToken(t, map[string]any{"sub": "x"}), time.Minute))
	})
}

func TestNeedsRefresh(t *testing.T) {
	clock := domaintest.NewFakeClock(start)
	insp := auth.NewInspector(auth.InspectorConfig{Clock: clock, Threshold: 10 * time.Minute})
	assert.Equal(t, 10*time.Minute, insp.Threshold())

	assert.False(t, insp.NeedsRefresh(makeToken(t, map[string]any{"exp": start.Add(time.Hour).Unix()})))
	assert.True(t, insp.NeedsRefresh(makeToken(t, map[string]any{"exp": start.Add(9 * time.Minute).Unix()})))
	assert.True(t, insp.NeedsRefresh("garbage"))
}

func TestIdentityClaims(t *testing.T) {
	insp, _ := newTestInspector(t)

	t.Run("sub wins over userId", func(t *testing.T) {
		token := makeToken(t, map[string]any{"sub": "a@b.com", "userId": 1, "email": "a@b.com"})
		assert.Equal(t, "a@b.com", insp.UserID(token))
		assert.Equal(t, "a@b.com", insp.Email(token))
	})

	t.Run("falls back to userId", func(t *testing.T) {
		token := makeToken(t, map[string]any{"userId": 17})
		assert.Equal(t, "17", insp.UserID(token))
		assert.Empty(t, insp.Email(token))
	})

	t.Run("undecodable token", func(t *testing.T) {
		assert.Empty(t, insp.UserID("nope"))
		assert.Empty(t, insp.Email("nope"))
		_, ok := insp.Expiration("nope")
		assert.False(t, ok)
	})

	t.Run("expiration in UTC", func(t *testing.T) {
		exp, ok := insp.Expiration(makeToken(t, map[string]any{"exp": start.Unix() + 60}))
		require.True(t, ok)
		assert.Equal(t, time.UTC, exp.Location())
		assert.True(t, exp.Equal(start.Add(time.Minute)))
	})
}

func TestNewInspectorDefaults(t *testing.T) {
	insp := auth.NewInspector(auth.InspectorConfig{})
	assert.Equal(t, 5*time.Minute, insp.Threshold())

	token := makeToken(t, map[string]any{"exp": time.Now().Add(time.Hour).Unix()})
	assert.False(t, insp.IsExpired(token))
}
