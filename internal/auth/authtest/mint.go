// Package authtest provides an in-process stand-in for the todo REST backend:
// HS256 token minting, rotating refresh tokens, and a chi-routed HTTP server
// exposing the auth and todo endpoints.
package authtest

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/aelexs/todoclient/internal/domain"
)

// TokenTypeAccess is the type claim carried by access tokens.
const TokenTypeAccess = "access"

var (
	// ErrTokenInvalid is returned when a token fails signature or claim checks.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenRevoked is returned for tokens minted before the last Invalidate.
	ErrTokenRevoked = errors.New("token revoked")
)

// TokenClaims mirrors the claims issued by the todo backend: the subject is
// the user's email and the numeric user ID travels in userId.
type TokenClaims struct {
	jwt.RegisteredClaims
	UserID     int64  `json:"userId"`
	Email      string `json:"email"`
	Username   string `json:"username"`
	Type       string `json:"type"`
	Generation int64  `json:"gen"`
}

// MintResult holds the result of minting an access token.
type MintResult struct {
	Token     string
	JTI       string
	ExpiresAt time.Time
}

// Minter creates and verifies HS256 access tokens.
type Minter struct {
	secret    []byte
	accessTTL time.Duration
	clock     domain.Clock
}

// MinterConfig holds configuration for creating a Minter.
type MinterConfig struct {
	Secret    []byte
	AccessTTL time.Duration
	Clock     domain.Clock
}

// NewMinter creates a new Minter. A missing secret gets a fixed test value.
func NewMinter(cfg MinterConfig) *Minter {
	secret := cfg.Secret
	if len(secret) == 0 {
		secret = []byte("authtest-signing-secret")
	}
	ttl := cfg.AccessTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	clock := cfg.Clock
	if clock == nil {
		clock = domain.RealClock{}
	}
	return &Minter{secret: secret, accessTTL: ttl, clock: clock}
}

// AccessTTL returns the lifetime of minted tokens.
func (m *Minter) AccessTTL() time.Duration {
	return m.accessTTL
}

// MintAccessToken creates a signed access token for user at the given
// revocation generation.
func (m *Minter) MintAccessToken(user domain.User, generation int64) (MintResult, error) {
	return m.MintWithTTL(user, generation, m.accessTTL)
}

// MintWithTTL is MintAccessToken with an explicit lifetime. A negative ttl
// yields an already expired token.
func (m *Minter) MintWithTTL(user domain.User, generation int64, ttl time.Duration) (MintResult, error) {
	now := m.clock.Now().UTC()
	jti := uuid.NewString()
	expiresAt := now.Add(ttl)

	claims := TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        jti,
		},
		UserID:     user.ID,
		Email:      user.Email,
		Username:   user.Username,
		Type:       TokenTypeAccess,
		Generation: generation,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims).SignedString(m.secret)
	if err != nil {
		return MintResult{}, fmt.Errorf("sign access token: %w", err)
	}

	return MintResult{Token: signed, JTI: jti, ExpiresAt: expiresAt}, nil
}

// Verify checks the signature and expiry of token and returns its claims.
func (m *Minter) Verify(token string) (*TokenClaims, error) {
	var claims TokenClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if claims.Type != TokenTypeAccess {
		return nil, fmt.Errorf("%w: unexpected token type %q", ErrTokenInvalid, claims.Type)
	}
	return &claims, nil
}
