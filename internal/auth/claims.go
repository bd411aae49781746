package auth

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload of an access token as issued by the todo backend:
// the registered claims (sub carries the email, exp the expiry) plus the
// numeric user ID and profile fields.
type Claims struct {
	jwt.RegisteredClaims
	UserID   FlexibleID `json:"userId,omitempty"`
	Email    string     `json:"email,omitempty"`
	Username string     `json:"username,omitempty"`
	Type     string     `json:"type,omitempty"`
}

// FlexibleID accepts an identifier encoded as either a JSON string or a
// JSON number.
type FlexibleID string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if i, err := n.Int64(); err == nil {
		*f = FlexibleID(strconv.FormatInt(i, 10))
		return nil
	}
	*f = FlexibleID(n.String())
	return nil
}
