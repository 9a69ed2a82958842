// Package httpx is the JSON-over-HTTP client shared by the REST adapters.
// Every request waits on a per-client rate limiter, carries the adapter's
// authentication and is decoded into a caller-supplied value.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultTimeout = 30 * time.Second
	maxBodySize    = 8 << 20
	bodyExcerpt    = 512
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Platform   string
	Operation  string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: HTTP %d", e.Platform, e.Operation, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// Client performs authenticated GET requests against one base URL.
type Client struct {
	platform string
	baseURL  string
	http     *http.Client
	limiter  *rate.Limiter
	logger   *slog.Logger
	headers  http.Header
	prefix   string
	auth     func(*http.Request)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default 30s-timeout client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRateLimit sets the sustained request rate and burst.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst) }
}

// WithLogger sets the logger for request failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithBasicAuth authenticates with a username and password.
func WithBasicAuth(username, password string) Option {
	return func(c *Client) {
		c.auth = func(r *http.Request) { r.SetBasicAuth(username, password) }
	}
}

// WithBearerToken authenticates with an Authorization: Bearer header.
func WithBearerToken(token string) Option {
	return func(c *Client) {
		c.auth = func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.headers.Set(key, value) }
}

// WithResponsePrefix strips a guard prefix (such as Gerrit's ")]}'") from bodies.
func WithResponsePrefix(prefix string) Option {
	return func(c *Client) { c.prefix = prefix }
}

// New creates a client for the platform rooted at baseURL.
func New(platform, baseURL string, opts ...Option) *Client {
	c := &Client{
		platform: platform,
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: defaultTimeout},
		limiter:  rate.NewLimiter(rate.Limit(10), 5),
		logger:   slog.New(slog.DiscardHandler),
		headers:  make(http.Header),
	}
	c.headers.Set("Accept", "application/json")
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the root all request paths are resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetJSON issues GET baseURL+path?query and decodes the response into out.
// operation names the call in errors and logs.
func (c *Client) GetJSON(ctx context.Context, operation, path string, query url.Values, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s %s: rate limiter: %w", c.platform, operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range c.headers {
		req.Header[k] = v
	}
	if c.auth != nil {
		c.auth(req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("request failed", "platform", c.platform, "operation", operation, "url", target, "error", err)
		return fmt.Errorf("%s %s: request failed: %w", c.platform, operation, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("%s %s: failed to read response: %w", c.platform, operation, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{
			Platform:   c.platform,
			Operation:  operation,
			URL:        target,
			StatusCode: resp.StatusCode,
			Body:       excerpt(body),
		}
		c.logger.Warn("unexpected status", "platform", c.platform, "operation", operation, "url", target, "status", resp.StatusCode)
		return se
	}

	if c.prefix != "" {
		body = bytes.TrimPrefix(bytes.TrimLeft(body, " \t\r\n"), []byte(c.prefix))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s %s: failed to decode response: %w", c.platform, operation, err)
	}
	return nil
}

func excerpt(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > bodyExcerpt {
		s = s[:bodyExcerpt] + "..."
	}
	return s
}
