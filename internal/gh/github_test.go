package gh

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/robby/reviewr/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

const prNodes = `{"data":{"search":{"issueCount":1,"nodes":[{
  "__typename":"PullRequest","number":42,"title":"Add retries","url":"https://github.com/acme/api/pull/42",
  "state":"MERGED","createdAt":"2024-03-01T10:00:00Z","updatedAt":"2024-03-02T10:00:00Z",
  "additions":10,"deletions":2,"baseRefName":"main","headRefName":"retries",
  "repository":{"nameWithOwner":"acme/api"},"author":{"login":"octo"}}]}}}`

const emptySearch = `{"data":{"search":{"issueCount":0,"nodes":[]}}}`

func newTestPlatform(t *testing.T, handler func(gqlRequest) string) (*Platform, func() []gqlRequest) {
	t.Helper()
	var (
		mu   sync.Mutex
		seen []gqlRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer ghp_test" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Bad credentials"}`))
			return
		}
		var req gqlRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		mu.Lock()
		seen = append(seen, req)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(handler(req)))
	}))
	t.Cleanup(srv.Close)

	p := New(Config{Token: "ghp_test", Endpoint: srv.URL})
	p.now = func() time.Time { return time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC) }
	return p, func() []gqlRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]gqlRequest(nil), seen...)
	}
}

func TestDetailedActivities(t *testing.T) {
	p, seen := newTestPlatform(t, func(req gqlRequest) string {
		switch q, _ := req.Variables["q"].(string); {
		case strings.HasSuffix(q, "in:email"):
			return `{"data":{"search":{"nodes":[{"login":"octo"}]}}}`
		case strings.Contains(q, "is:merged"):
			return prNodes
		default:
			return emptySearch
		}
	})

	d, err := p.DetailedActivities(context.Background(), "octo@example.com", 30)
	require.NoError(t, err)
	assert.Equal(t, []domain.Category{domain.CategoryMergeRequestsMerged}, d.Categories())

	item := d.Items(domain.CategoryMergeRequestsMerged)[0]
	assert.Equal(t, "acme/api#42", item.ID)
	assert.Equal(t, "Merged", item.Status)
	assert.Equal(t, "acme/api", item.Project)
	assert.Equal(t, "+10/-2", item.Metadata["size"])
	assert.Equal(t, "Pull Request", item.Metadata["item_type"])
	assert.Equal(t, "https://github.com/acme/api/pull/42", p.ItemURL(item))

	reqs := seen()
	require.Len(t, reqs, 6)
	assert.Equal(t, "is:pr author:octo created:>=2024-03-01", reqs[1].Variables["q"])
}

func TestLoginFallsBackToLocalPart(t *testing.T) {
	p, seen := newTestPlatform(t, func(req gqlRequest) string {
		if q, _ := req.Variables["q"].(string); strings.HasSuffix(q, "in:email") {
			return `{"data":{"search":{"nodes":[]}}}`
		}
		return emptySearch
	})

	_, err := p.DetailedActivities(context.Background(), "dev@example.com", 7)
	require.NoError(t, err)
	assert.Contains(t, seen()[1].Variables["q"], "author:dev ")
}

func TestActivityMetrics(t *testing.T) {
	p, _ := newTestPlatform(t, func(req gqlRequest) string {
		assert.EqualValues(t, 1, req.Variables["first"])
		return prNodes
	})

	m, err := p.ActivityMetrics(context.Background(), "octo", 7)
	require.NoError(t, err)
	assert.Equal(t, 5, m.TotalItems)
}

func TestGraphQLErrors(t *testing.T) {
	p, _ := newTestPlatform(t, func(gqlRequest) string {
		return `{"errors":[{"message":"rate limit exceeded"}]}`
	})

	_, err := p.DetailedActivities(context.Background(), "octo", 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit exceeded")
}

func TestTestConnection(t *testing.T) {
	p, _ := newTestPlatform(t, func(gqlRequest) string {
		return `{"data":{"viewer":{"login":"octo"}}}`
	})
	s, err := p.TestConnection(context.Background())
	require.NoError(t, err)
	assert.True(t, s.IsOK())

	p.client.token = "wrong"
	s, err = p.TestConnection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusError, s.Kind)
	assert.Contains(t, s.Reason, "authentication failed")

	s, err = New(Config{}).TestConnection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNotConfigured, s.Kind)
}
