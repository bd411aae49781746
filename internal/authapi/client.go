// Package authapi calls the backend's authentication endpoints.
package authapi

import (
	"context"
	"fmt"
	"net/http"
	"path"

	"github.com/aelexs/todoclient/internal/domain"
	"github.com/aelexs/todoclient/internal/restclient"
)

// doer is the subset of restclient.Client used here.
type doer interface {
	Do(ctx context.Context, req restclient.Request, out any) error
}

var _ doer = (*restclient.Client)(nil)

// Client is the auth endpoint client.
type Client struct {
	rest     doer
	authPath string
}

// Config holds configuration for creating a Client.
type Config struct {
	REST *restclient.Client
	// AuthPath is the auth endpoints' base path. Defaults to /api/v1/auth.
	AuthPath string
}

// New creates a Client.
func New(cfg Config) *Client {
	authPath := cfg.AuthPath
	if authPath == "" {
		authPath = domain.DefaultAuthPath
	}
	return &Client{rest: cfg.REST, authPath: authPath}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Register creates an account and returns its first session.
func (c *Client) Register(ctx context.Context, reg domain.Registration) (domain.AuthResult, error) {
	return c.authenticate(ctx, "auth.register", "register", registerRequest{
		Username: reg.Username,
		Email:    reg.Email,
		Password: reg.Password.Expose(),
	})
}

// Login exchanges credentials for a session.
func (c *Client) Login(ctx context.Context, creds domain.Credentials) (domain.AuthResult, error) {
	return c.authenticate(ctx, "auth.login", "login", loginRequest{
		Email:    creds.Email,
		Password: creds.Password.Expose(),
	})
}

// Refresh exchanges a refresh token for a new access token. The backend
// may rotate the refresh token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (domain.AuthResult, error) {
	return c.authenticate(ctx, "auth.refresh", "refresh", refreshRequest{RefreshToken: refreshToken})
}

// Logout asks the backend to invalidate refreshToken. authorization may be
// empty.
func (c *Client) Logout(ctx context.Context, refreshToken, authorization string) error {
	return c.rest.Do(ctx, restclient.Request{
		Op:            "auth.logout",
		Method:        http.MethodPost,
		Path:          path.Join(c.authPath, "logout"),
		Body:          refreshRequest{RefreshToken: refreshToken},
		Authorization: authorization,
	}, nil)
}

func (c *Client) authenticate(ctx context.Context, op, endpoint string, body any) (domain.AuthResult, error) {
	var res domain.AuthResult
	err := c.rest.Do(ctx, restclient.Request{
		Op:     op,
		Method: http.MethodPost,
		Path:   path.Join(c.authPath, endpoint),
		Body:   body,
	}, &res)
	if err != nil {
		return domain.AuthResult{}, err
	}
	if res.AccessToken == "" {
		return domain.AuthResult{}, fmt.Errorf("%s: %w: response carries no access token", op, domain.ErrRequestFailed)
	}
	return res, nil
}
