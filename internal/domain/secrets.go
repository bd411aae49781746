package domain

import (
	"encoding/json"
	"log/slog"
)

// SecretString wraps sensitive string values such as passwords.
// Implements slog.LogValuer and fmt.Stringer so the value never ends up in
// logs or formatted output by accident.
type SecretString string

// String returns a redacted placeholder, never the actual value.
func (s SecretString) String() string {
	return "[REDACTED]"
}

// LogValue implements slog.LogValuer so the secret is never logged in
// plaintext, even if the handler's ReplaceAttr is bypassed.
func (s SecretString) LogValue() slog.Value {
	return slog.StringValue("[REDACTED]")
}

// MarshalJSON redacts the secret when an enclosing struct is encoded.
func (s SecretString) MarshalJSON() ([]byte, error) {
	return json.Marshal("[REDACTED]")
}

// Expose returns the actual secret value.
// Use only where the secret must leave the process (request bodies).
func (s SecretString) Expose() string {
	return string(s)
}

// IsEmpty returns true if the secret is empty.
func (s SecretString) IsEmpty() bool {
	return len(s) == 0
}

var (
	_ slog.LogValuer  = SecretString("")
	_ json.Marshaler = SecretString("")
)
