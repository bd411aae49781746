// Package auth inspects JWT access tokens on the client side. Nothing here
// verifies signatures: decoded claims drive proactive refresh scheduling
// only and are never used for trust decisions.
package auth

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aelexs/todoclient/internal/domain"
)

// Inspector decodes token payloads and answers expiry questions against
// an injected clock. All methods fail soft: an undecodable token yields
// "no claims", which every expiry check treats as expired.
type Inspector struct {
	clock     domain.Clock
	threshold time.Duration
	parser    *jwt.Parser
}

// InspectorConfig holds configuration for creating an Inspector.
type InspectorConfig struct {
	Clock domain.Clock
	// Threshold is the default refresh window for WillExpireSoon.
	Threshold time.Duration
}

// NewInspector creates a new Inspector.
func NewInspector(cfg InspectorConfig) *Inspector {
	clock := cfg.Clock
	if clock == nil {
		clock = domain.RealClock{}
	}
	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = domain.DefaultRefreshThreshold
	}
	return &Inspector{
		clock:     clock,
		threshold: threshold,
		parser:    jwt.NewParser(jwt.WithPaddingAllowed()),
	}
}

// Threshold returns the default refresh window.
func (i *Inspector) Threshold() time.Duration {
	return i.threshold
}

// Decode returns the claims of the token's middle segment. It returns
// false when the token does not have exactly three segments, the payload
// is not base64url, or the payload is not a JSON claims object.
func (i *Inspector) Decode(token string) (*Claims, bool) {
	if token == "" {
		return nil, false
	}
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, false
	}
	payload, err := i.parser.DecodeSegment(parts[1])
	if err != nil {
		return nil, false
	}
	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, false
	}
	return &claims, true
}

// Expiration returns the token's exp claim. It returns false when the
// token is undecodable or carries no expiry.
func (i *Inspector) Expiration(token string) (time.Time, bool) {
	claims, ok := i.Decode(token)
	if !ok {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil || exp.IsZero() {
		return time.Time{}, false
	}
	return exp.UTC(), true
}

// IsExpired reports whether now >= exp. A token whose expiry cannot be
// determined is expired.
func (i *Inspector) IsExpired(token string) bool {
	exp, ok := i.Expiration(token)
	if !ok {
		return true
	}
	return !i.clock.Now().Before(exp)
}

// WillExpireSoon reports whether less than threshold remains before exp.
// A non-positive threshold selects the configured default. Undecodable
// tokens always expire soon.
func (i *Inspector) WillExpireSoon(token string, threshold time.Duration) bool {
	if threshold <= 0 {
		threshold = i.threshold
	}
	exp, ok := i.Expiration(token)
	if !ok {
		return true
	}
	return exp.Sub(i.clock.Now()) < threshold
}

// NeedsRefresh combines IsExpired and WillExpireSoon with the default
// threshold.
func (i *Inspector) NeedsRefresh(token string) bool {
	return i.IsExpired(token) || i.WillExpireSoon(token, 0)
}

// UserID returns the sub claim, falling back to userId.
func (i *Inspector) UserID(token string) string {
	claims, ok := i.Decode(token)
	if !ok {
		return ""
	}
	if claims.Subject != "" {
		return claims.Subject
	}
	return string(claims.UserID)
}

// Email returns the email claim, or "" when absent.
func (i *Inspector) Email(token string) string {
	claims, ok := i.Decode(token)
	if !ok {
		return ""
	}
	return claims.Email
}
