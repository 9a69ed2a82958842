package jira

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/robby/reviewr/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchFixture = `{
  "total": 1,
  "issues": [{
    "key": "CORE-12",
    "fields": {
      "summary": "Login fails on Safari",
      "status": {"name": "In Progress"},
      "issuetype": {"name": "Bug"},
      "priority": {"name": "High"},
      "components": [{"name": "web"}, {"name": "auth"}],
      "created": "2024-03-01T10:00:00.000+0000",
      "updated": "2024-03-03T09:00:00.000+0000",
      "project": {"key": "CORE", "name": "Core Platform"},
      "assignee": {"displayName": "Dev One"}
    }
  }]
}`

func newTestPlatform(t *testing.T, cfg Config, handler http.HandlerFunc) *Platform {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg.URL = srv.URL
	if cfg.Username == "" {
		cfg.Username = "dev@example.com"
	}
	if cfg.APIToken == "" {
		cfg.APIToken = "token"
	}
	return New(cfg)
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `"dev@example.com"`, quote("dev@example.com"))
	assert.Equal(t, `"a \"b\" \\c"`, quote(`a "b" \c`))
}

func TestDetailedActivities(t *testing.T) {
	var (
		mu   sync.Mutex
		jqls []string
	)
	p := newTestPlatform(t, Config{ProjectFilter: "CORE"}, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/3/search", r.URL.Path)
		assert.Equal(t, "50", r.URL.Query().Get("maxResults"))
		jql := r.URL.Query().Get("jql")
		mu.Lock()
		jqls = append(jqls, jql)
		mu.Unlock()
		if strings.Contains(jql, "resolved >=") {
			_, _ = w.Write([]byte(`{"total":0,"issues":[]}`))
			return
		}
		_, _ = w.Write([]byte(searchFixture))
	})

	d, err := p.DetailedActivities(context.Background(), "dev@example.com", 30)
	require.NoError(t, err)
	assert.Equal(t, []domain.Category{domain.CategoryIssuesCreated, domain.CategoryIssuesAssigned}, d.Categories())

	item := d.Items(domain.CategoryIssuesCreated)[0]
	assert.Equal(t, "CORE-12", item.ID)
	assert.Equal(t, "In Progress", item.Status)
	assert.Equal(t, "CORE", item.Project)
	assert.Equal(t, "Bug", item.Metadata["issue_type"])
	assert.Equal(t, "High", item.Metadata["priority"])
	assert.Equal(t, "web, auth", item.Metadata["components"])
	assert.Equal(t, "Dev One", item.Metadata["assignee"])
	assert.Equal(t, 2024, item.Created.Year())
	assert.True(t, strings.HasSuffix(item.URL, "/browse/CORE-12"))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, jqls, 3)
	assert.Equal(t, `project = "CORE" AND reporter = "dev@example.com" AND created >= -30d ORDER BY created DESC`, jqls[0])
	assert.Contains(t, jqls[2], "resolution = Unresolved")
}

func TestActivityMetrics(t *testing.T) {
	p := newTestPlatform(t, Config{}, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "0", r.URL.Query().Get("maxResults"))
		_, _ = w.Write([]byte(`{"total":4,"issues":[]}`))
	})

	m, err := p.ActivityMetrics(context.Background(), "dev@example.com", 7)
	require.NoError(t, err)
	assert.Equal(t, 12, m.TotalItems)
	assert.Equal(t, 4, m.ItemsByCategory[domain.CategoryIssuesResolved])
}

func TestSearchItems(t *testing.T) {
	p := newTestPlatform(t, Config{}, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Query().Get("jql"), `text ~ "safari"`)
		_, _ = w.Write([]byte(searchFixture))
	})

	items, err := p.SearchItems(context.Background(), "safari", "dev@example.com")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Login fails on Safari", items[0].Title)
}

func TestTestConnection(t *testing.T) {
	p := newTestPlatform(t, Config{}, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/3/myself", r.URL.Path)
		w.WriteHeader(http.StatusUnauthorized)
	})

	s, err := p.TestConnection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusError, s.Kind)

	ok := newTestPlatform(t, Config{}, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"accountId":"1"}`))
	})
	s, err = ok.TestConnection(context.Background())
	require.NoError(t, err)
	assert.True(t, s.IsOK())

	assert.False(t, New(Config{URL: "https://x"}).IsConfigured())
}

func TestItemURL(t *testing.T) {
	p := New(Config{URL: "https://acme.atlassian.net/"})
	assert.Equal(t, "https://acme.atlassian.net/browse/ABC-1", p.ItemURL(domain.ActivityItem{ID: "ABC-1"}))
}
