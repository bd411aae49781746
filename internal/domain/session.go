package domain

import (
	"fmt"
	"net/mail"
	"strings"
)

// User is the cached profile of the authenticated identity.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

// DisplayName returns the username, falling back to the email address.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}

// Credentials are the inputs of a login.
type Credentials struct {
	Email    string
	Password SecretString
}

// Validate rejects credentials that cannot possibly succeed, before any
// network call is made.
func (c Credentials) Validate() error {
	if err := validateEmail(c.Email); err != nil {
		return err
	}
	if c.Password.IsEmpty() {
		return fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	return nil
}

// Registration holds the inputs of a new-account registration.
type Registration struct {
	Username string
	Email    string
	Password SecretString
}

// Validate checks registration inputs.
func (r Registration) Validate() error {
	if strings.TrimSpace(r.Username) == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	if len(r.Password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, MinPasswordLength)
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%w: invalid email address %q", ErrInvalidInput, email)
	}
	return nil
}

// AuthResult is the body returned by register, login and refresh.
// On refresh the refresh token and user are optional.
type AuthResult struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	TokenType    string `json:"tokenType,omitempty"`
	ExpiresIn    int64  `json:"expiresIn,omitempty"`
	User         *User  `json:"user,omitempty"`
}
