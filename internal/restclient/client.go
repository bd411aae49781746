// Package restclient sends JSON requests to the todo backend and turns
// transport failures and non-2xx responses into domain errors.
package restclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/aelexs/todoclient/internal/domain"
	"github.com/aelexs/todoclient/internal/errmap"
)

const (
	// maxResponseBytes bounds how much of a response body is read.
	maxResponseBytes = 1 << 20

	headerRequestID = "X-Request-ID"
)

// Request describes one backend call.
type Request struct {
	// Op names the logical operation in errors and logs, e.g. "todos.list".
	Op     string
	Method string
	Path   string
	Query  url.Values
	// Body is JSON-encoded when non-nil.
	Body any
	// Authorization is sent verbatim as the Authorization header.
	Authorization string
}

// Config holds configuration for creating a Client.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	// HTTPClient replaces the default otelhttp-instrumented client.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client is a JSON-over-HTTP client bound to one base URL. It is safe for
// concurrent use.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	timeout   time.Duration
	userAgent string
	logger    *slog.Logger
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: base URL", domain.ErrConfigRequired)
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: base URL %q", domain.ErrInvalidInput, cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = domain.DefaultRequestTimeout
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "todoclient"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:   base,
		http:      httpClient,
		timeout:   timeout,
		userAgent: userAgent,
		logger:    logger,
	}, nil
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string { return c.baseURL.String() }

// Do sends req and decodes a successful JSON response into out (which may
// be nil). Failures are reported as:
//   - domain.ErrNetwork when no response was received, including timeouts;
//   - *domain.RequestError for non-2xx responses;
//   - a decode error when a 2xx body is not valid JSON for out.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return err
	}
	requestID := httpReq.Header.Get(headerRequestID)

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.DebugContext(ctx, "backend request failed",
			"op", req.Op,
			"method", req.Method,
			"path", req.Path,
			"request_id", requestID,
			"error", err,
		)
		return fmt.Errorf("%s: %w: %w", req.Op, domain.ErrNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%s: read response: %w: %w", req.Op, domain.ErrNetwork, err)
	}

	c.logger.DebugContext(ctx, "backend request",
		"op", req.Op,
		"method", req.Method,
		"path", req.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
		"request_id", requestID,
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &domain.RequestError{
			Op:         req.Op,
			StatusCode: resp.StatusCode,
			Message:    serverMessage(body),
			Kind:       errmap.FromHTTPStatus(resp.StatusCode),
		}
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", req.Op, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	target := c.baseURL.JoinPath(req.Path)
	if len(req.Query) > 0 {
		target.RawQuery = req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("%s: encode request: %w", req.Op, err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", req.Op, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set(headerRequestID, domain.NewRequestID())
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.Authorization != "" {
		httpReq.Header.Set("Authorization", req.Authorization)
	}
	return httpReq, nil
}

// serverMessage extracts the human-readable message from an error body.
// Spring-style bodies carry it in "message", others in "error".
func serverMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}
