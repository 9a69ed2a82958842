// Package gh implements the GitHub platform adapter on the GraphQL API.
// Activity is gathered with the search connection, one query per category.
package gh

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/machinebox/graphql"
	"github.com/robby/reviewr/internal/httpx"
)

// DefaultEndpoint is the public GitHub GraphQL endpoint.
const DefaultEndpoint = "https://api.github.com/graphql"

// Client is a thin GitHub GraphQL client.
type Client struct {
	gql   *graphql.Client
	token string
}

// NewClient creates a client for endpoint. An empty endpoint means DefaultEndpoint.
// hc may be nil.
func NewClient(endpoint, token string, hc *http.Client, logger *slog.Logger) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if hc == nil {
		hc = &http.Client{}
	}
	wrapped := *hc
	base := wrapped.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	wrapped.Transport = &statusTransport{base: base}

	gql := graphql.NewClient(endpoint, graphql.WithHTTPClient(&wrapped))
	if logger != nil {
		gql.Log = func(s string) { logger.Debug(s, "platform", ID) }
	}
	return &Client{gql: gql, token: token}
}

// makeRequest executes a GraphQL request with authentication.
func (c *Client) makeRequest(ctx context.Context, req *graphql.Request, resp interface{}) error {
	req.Header.Set("Authorization", "Bearer "+c.token)
	return c.gql.Run(ctx, req, resp)
}

// statusTransport turns non-2xx responses into *httpx.StatusError. The
// graphql client otherwise decodes a JSON error body as an empty result.
type statusTransport struct {
	base http.RoundTripper
}

func (t *statusTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return resp, nil
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return nil, &httpx.StatusError{
		Platform:   ID,
		Operation:  "graphql",
		URL:        req.URL.String(),
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
}
