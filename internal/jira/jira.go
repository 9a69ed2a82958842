// Package jira implements the Jira Cloud platform adapter over REST API v3.
package jira

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/robby/reviewr/internal/domain"
	"github.com/robby/reviewr/internal/httpx"
)

// ID is the platform id of the Jira adapter.
const ID = "jira"

const (
	timeLayout   = "2006-01-02T15:04:05.000-0700"
	searchFields = "summary,status,assignee,reporter,created,updated,resolutiondate,project,issuetype,priority,components"
)

// Config holds the connection settings.
type Config struct {
	URL           string
	Username      string // account email
	APIToken      string
	ProjectFilter string // optional project key restricting every query
	MaxResults    int    // 0 means 50
}

// Platform is the Jira adapter.
type Platform struct {
	cfg    Config
	client *httpx.Client
}

// New creates a Jira adapter. Extra options are passed to the HTTP client.
func New(cfg Config, opts ...httpx.Option) *Platform {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 50
	}
	base := []httpx.Option{httpx.WithBasicAuth(cfg.Username, cfg.APIToken)}
	return &Platform{
		cfg:    cfg,
		client: httpx.New(ID, cfg.URL, append(base, opts...)...),
	}
}

func (p *Platform) ID() string   { return ID }
func (p *Platform) Name() string { return "Jira" }
func (p *Platform) Icon() string { return "🎫" }

func (p *Platform) IsConfigured() bool {
	return p.cfg.URL != "" && p.cfg.Username != "" && p.cfg.APIToken != ""
}

type searchResponse struct {
	Total  int     `json:"total"`
	Issues []issue `json:"issues"`
}

type named struct {
	Name string `json:"name"`
}

type issue struct {
	Key    string `json:"key"`
	Fields struct {
		Summary        string  `json:"summary"`
		Status         named   `json:"status"`
		IssueType      named   `json:"issuetype"`
		Priority       *named  `json:"priority"`
		Components     []named `json:"components"`
		Created        string  `json:"created"`
		Updated        string  `json:"updated"`
		ResolutionDate string  `json:"resolutiondate"`
		Project        struct {
			Key  string `json:"key"`
			Name string `json:"name"`
		} `json:"project"`
		Assignee *struct {
			DisplayName string `json:"displayName"`
		} `json:"assignee"`
	} `json:"fields"`
}

// quote renders s as a JQL string literal.
func quote(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}

func (p *Platform) jql(clause string) string {
	if p.cfg.ProjectFilter != "" {
		clause = fmt.Sprintf("project = %s AND %s", quote(p.cfg.ProjectFilter), clause)
	}
	return clause
}

func (p *Platform) queries(subject string, days int) []struct {
	category domain.Category
	jql      string
} {
	who := quote(subject)
	return []struct {
		category domain.Category
		jql      string
	}{
		{domain.CategoryIssuesCreated, p.jql(fmt.Sprintf("reporter = %s AND created >= -%dd ORDER BY created DESC", who, days))},
		{domain.CategoryIssuesResolved, p.jql(fmt.Sprintf("assignee = %s AND resolved >= -%dd ORDER BY resolved DESC", who, days))},
		{domain.CategoryIssuesAssigned, p.jql(fmt.Sprintf("assignee = %s AND resolution = Unresolved ORDER BY updated DESC", who))},
	}
}

// DetailedActivities runs one JQL search per category.
func (p *Platform) DetailedActivities(ctx context.Context, subject string, days int) (domain.DetailedActivities, error) {
	result := domain.NewDetailedActivities()
	for _, q := range p.queries(subject, days) {
		resp, err := p.search(ctx, "search "+string(q.category), q.jql, p.cfg.MaxResults)
		if err != nil {
			return domain.DetailedActivities{}, err
		}
		for _, is := range resp.Issues {
			result.Add(q.category, p.toItem(is, q.category))
		}
	}
	return result, nil
}

// ActivityMetrics counts issues per category without fetching them.
func (p *Platform) ActivityMetrics(ctx context.Context, subject string, days int) (domain.ActivityMetrics, error) {
	m := domain.ActivityMetrics{ItemsByCategory: make(map[domain.Category]int)}
	for _, q := range p.queries(subject, days) {
		resp, err := p.search(ctx, "count "+string(q.category), q.jql, 0)
		if err != nil {
			return domain.ActivityMetrics{}, err
		}
		m.ItemsByCategory[q.category] = resp.Total
		m.TotalItems += resp.Total
	}
	return m, nil
}

// SearchItems runs a text search over issues the subject reported or owns.
func (p *Platform) SearchItems(ctx context.Context, query, subject string) ([]domain.ActivityItem, error) {
	jql := p.jql(fmt.Sprintf("text ~ %s AND (reporter = %s OR assignee = %s) ORDER BY updated DESC", quote(query), quote(subject), quote(subject)))
	resp, err := p.search(ctx, "search", jql, p.cfg.MaxResults)
	if err != nil {
		return nil, err
	}
	items := make([]domain.ActivityItem, 0, len(resp.Issues))
	for _, is := range resp.Issues {
		items = append(items, p.toItem(is, domain.CategoryIssuesCreated))
	}
	return items, nil
}

// TestConnection fetches the authenticated user.
func (p *Platform) TestConnection(ctx context.Context) (domain.ConnectionStatus, error) {
	if !p.IsConfigured() {
		return domain.NotConfigured(), nil
	}
	err := p.client.GetJSON(ctx, "test connection", "/rest/api/3/myself", nil, nil)
	switch {
	case err == nil:
		return domain.Connected(), nil
	case httpx.IsStatus(err, http.StatusUnauthorized):
		return domain.Failure("authentication failed, check username and API token"), nil
	case httpx.IsStatus(err, http.StatusForbidden):
		return domain.Warning("authenticated but access is restricted"), nil
	default:
		return domain.Failure(err.Error()), nil
	}
}

// ItemURL links to the issue browse page.
func (p *Platform) ItemURL(item domain.ActivityItem) string {
	return fmt.Sprintf("%s/browse/%s", p.client.BaseURL(), item.ID)
}

func (p *Platform) search(ctx context.Context, operation, jql string, max int) (searchResponse, error) {
	params := url.Values{}
	params.Set("jql", jql)
	params.Set("maxResults", strconv.Itoa(max))
	params.Set("fields", searchFields)

	var resp searchResponse
	if err := p.client.GetJSON(ctx, operation, "/rest/api/3/search", params, &resp); err != nil {
		return searchResponse{}, err
	}
	return resp, nil
}

func (p *Platform) toItem(is issue, category domain.Category) domain.ActivityItem {
	f := is.Fields
	md := map[string]string{
		"issue_type": f.IssueType.Name,
		"project":    f.Project.Name,
		"status":     f.Status.Name,
	}
	if f.Assignee != nil {
		md["assignee"] = f.Assignee.DisplayName
	}
	if f.Priority != nil {
		md["priority"] = f.Priority.Name
	}
	if len(f.Components) > 0 {
		names := make([]string, len(f.Components))
		for i, c := range f.Components {
			names[i] = c.Name
		}
		md["components"] = strings.Join(names, ", ")
	}
	if f.ResolutionDate != "" {
		md["resolved"] = f.ResolutionDate
	}

	item := domain.ActivityItem{
		ID:         is.Key,
		Title:      f.Summary,
		Status:     f.Status.Name,
		Created:    parseTime(f.Created),
		Updated:    parseTime(f.Updated),
		PlatformID: ID,
		Category:   category,
		Project:    f.Project.Key,
		Metadata:   md,
	}
	item.URL = p.ItemURL(item)
	return item
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
