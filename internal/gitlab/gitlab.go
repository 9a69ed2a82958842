// Package gitlab implements the GitLab platform adapter over REST API v4.
// Several instances can be registered side by side; each gets its own id.
package gitlab

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/robby/reviewr/internal/domain"
	"github.com/robby/reviewr/internal/httpx"
)

// IDPrefix prefixes every GitLab platform id.
const IDPrefix = "gitlab:"

const perPage = "100"

// Config describes one GitLab instance.
type Config struct {
	InstanceID string // short id, e.g. "work"
	Name       string // display name, defaults to "GitLab"
	URL        string // instance root, e.g. https://gitlab.com
	Token      string // personal access token
}

// Platform is the adapter for one GitLab instance.
type Platform struct {
	cfg    Config
	client *httpx.Client
	now    func() time.Time
}

// New creates a GitLab adapter. Extra options are passed to the HTTP client.
func New(cfg Config, opts ...httpx.Option) *Platform {
	if cfg.Name == "" {
		cfg.Name = "GitLab"
	}
	base := []httpx.Option{httpx.WithBearerToken(cfg.Token)}
	return &Platform{
		cfg:    cfg,
		client: httpx.New(IDPrefix+cfg.InstanceID, apiBase(cfg.URL), append(base, opts...)...),
		now:    time.Now,
	}
}

func apiBase(root string) string {
	root = strings.TrimRight(root, "/")
	if root == "" || strings.HasSuffix(root, "/api/v4") {
		return root
	}
	return root + "/api/v4"
}

func (p *Platform) ID() string   { return IDPrefix + p.cfg.InstanceID }
func (p *Platform) Name() string { return p.cfg.Name }
func (p *Platform) Icon() string { return "🦊" }

func (p *Platform) IsConfigured() bool {
	return p.cfg.URL != "" && p.cfg.Token != ""
}

type user struct {
	Username string `json:"username"`
	Name     string `json:"name"`
}

type project struct {
	Name              string `json:"name"`
	PathWithNamespace string `json:"path_with_namespace"`
}

type mergeRequest struct {
	IID          int       `json:"iid"`
	ProjectID    int       `json:"project_id"`
	Title        string    `json:"title"`
	State        string    `json:"state"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	TargetBranch string    `json:"target_branch"`
	SourceBranch string    `json:"source_branch"`
	Author       user      `json:"author"`
	Assignees    []user    `json:"assignees"`
	MergedBy     *user     `json:"merged_by"`
	WebURL       string    `json:"web_url"`
	Project      *project  `json:"project"`
}

type issue struct {
	IID       int       `json:"iid"`
	ProjectID int       `json:"project_id"`
	Title     string    `json:"title"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Author    user      `json:"author"`
	Assignees []user    `json:"assignees"`
	WebURL    string    `json:"web_url"`
	Project   *project  `json:"project"`
}

// Username derives a GitLab username from subject. GitLab filters by
// username, so an email address is reduced to its local part.
func Username(subject string) string {
	if at := strings.IndexByte(subject, '@'); at >= 0 {
		return subject[:at]
	}
	return subject
}

// DetailedActivities collects merge requests authored, reviewed and merged by
// the subject, plus issues they created or are assigned.
func (p *Platform) DetailedActivities(ctx context.Context, subject string, days int) (domain.DetailedActivities, error) {
	username := Username(subject)
	since := p.now().AddDate(0, 0, -days).UTC().Format(time.RFC3339)
	result := domain.NewDetailedActivities()

	mrQueries := []struct {
		category domain.Category
		params   url.Values
	}{
		{domain.CategoryMergeRequestsCreated, url.Values{"author_username": {username}, "created_after": {since}, "state": {"all"}}},
		{domain.CategoryMergeRequestsReviewed, url.Values{"reviewer_username": {username}, "updated_after": {since}, "state": {"all"}}},
		{domain.CategoryMergeRequestsMerged, url.Values{"state": {"merged"}, "updated_after": {since}}},
	}
	for _, q := range mrQueries {
		mrs, err := p.mergeRequests(ctx, "fetch "+string(q.category), q.params)
		if err != nil {
			return domain.DetailedActivities{}, err
		}
		for _, mr := range mrs {
			// The API has no merged_by filter.
			if q.category == domain.CategoryMergeRequestsMerged && (mr.MergedBy == nil || mr.MergedBy.Username != username) {
				continue
			}
			result.Add(q.category, p.mergeRequestItem(mr, q.category))
		}
	}

	issueQueries := []struct {
		category domain.Category
		params   url.Values
	}{
		{domain.CategoryIssuesCreated, url.Values{"author_username": {username}, "created_after": {since}, "state": {"all"}}},
		{domain.CategoryIssuesAssigned, url.Values{"assignee_username": {username}, "updated_after": {since}, "state": {"opened"}}},
	}
	for _, q := range issueQueries {
		issues, err := p.issues(ctx, "fetch "+string(q.category), q.params)
		if err != nil {
			return domain.DetailedActivities{}, err
		}
		for _, is := range issues {
			result.Add(q.category, p.issueItem(is, q.category))
		}
	}
	return result, nil
}

// ActivityMetrics is derived from DetailedActivities; GitLab has no cheap count endpoint.
func (p *Platform) ActivityMetrics(ctx context.Context, subject string, days int) (domain.ActivityMetrics, error) {
	d, err := p.DetailedActivities(ctx, subject, days)
	if err != nil {
		return domain.ActivityMetrics{}, err
	}
	return d.Metrics(), nil
}

// SearchItems searches merge requests authored by the subject.
func (p *Platform) SearchItems(ctx context.Context, query, subject string) ([]domain.ActivityItem, error) {
	mrs, err := p.mergeRequests(ctx, "search", url.Values{
		"author_username": {Username(subject)},
		"search":          {query},
		"state":           {"all"},
	})
	if err != nil {
		return nil, err
	}
	items := make([]domain.ActivityItem, 0, len(mrs))
	for _, mr := range mrs {
		items = append(items, p.mergeRequestItem(mr, domain.CategoryMergeRequestsCreated))
	}
	return items, nil
}

// TestConnection fetches the token's user.
func (p *Platform) TestConnection(ctx context.Context) (domain.ConnectionStatus, error) {
	if !p.IsConfigured() {
		return domain.NotConfigured(), nil
	}
	var u user
	err := p.client.GetJSON(ctx, "test connection", "/user", nil, &u)
	switch {
	case err == nil:
		return domain.Connected(), nil
	case httpx.IsStatus(err, http.StatusUnauthorized):
		return domain.Failure("authentication failed, check the access token"), nil
	case httpx.IsStatus(err, http.StatusForbidden):
		return domain.Warning("token lacks the read_api scope"), nil
	default:
		return domain.Failure(err.Error()), nil
	}
}

// ItemURL returns the web URL reported by the API.
func (p *Platform) ItemURL(item domain.ActivityItem) string {
	return item.URL
}

func (p *Platform) mergeRequests(ctx context.Context, operation string, params url.Values) ([]mergeRequest, error) {
	params = withDefaults(params)
	var mrs []mergeRequest
	if err := p.client.GetJSON(ctx, operation, "/merge_requests", params, &mrs); err != nil {
		return nil, err
	}
	return mrs, nil
}

func (p *Platform) issues(ctx context.Context, operation string, params url.Values) ([]issue, error) {
	params = withDefaults(params)
	var issues []issue
	if err := p.client.GetJSON(ctx, operation, "/issues", params, &issues); err != nil {
		return nil, err
	}
	return issues, nil
}

func withDefaults(params url.Values) url.Values {
	params.Set("scope", "all")
	params.Set("per_page", perPage)
	params.Set("order_by", "updated_at")
	params.Set("sort", "desc")
	return params
}

func statusLabel(state string) string {
	switch state {
	case "opened":
		return "Open"
	case "merged":
		return "Merged"
	case "closed":
		return "Closed"
	default:
		return state
	}
}

func projectLabel(p *project, id int) string {
	if p == nil {
		return fmt.Sprintf("Project ID: %d", id)
	}
	return fmt.Sprintf("%s (%s)", p.Name, p.PathWithNamespace)
}

func (p *Platform) mergeRequestItem(mr mergeRequest, category domain.Category) domain.ActivityItem {
	md := map[string]string{
		"author":        mr.Author.Name,
		"item_type":     "Merge Request",
		"target_branch": mr.TargetBranch,
		"source_branch": mr.SourceBranch,
	}
	if len(mr.Assignees) > 0 {
		md["assignee"] = mr.Assignees[0].Name
	}
	if mr.MergedBy != nil {
		md["merged_by"] = mr.MergedBy.Name
	}
	return domain.ActivityItem{
		ID:         fmt.Sprintf("mr-%d", mr.IID),
		Title:      mr.Title,
		Status:     statusLabel(mr.State),
		Created:    mr.CreatedAt,
		Updated:    mr.UpdatedAt,
		URL:        mr.WebURL,
		PlatformID: p.ID(),
		Category:   category,
		Project:    projectLabel(mr.Project, mr.ProjectID),
		Metadata:   md,
	}
}

func (p *Platform) issueItem(is issue, category domain.Category) domain.ActivityItem {
	md := map[string]string{
		"author":    is.Author.Name,
		"item_type": "Issue",
	}
	if len(is.Assignees) > 0 {
		md["assignee"] = is.Assignees[0].Name
	}
	return domain.ActivityItem{
		ID:         fmt.Sprintf("issue-%d", is.IID),
		Title:      is.Title,
		Status:     statusLabel(is.State),
		Created:    is.CreatedAt,
		Updated:    is.UpdatedAt,
		URL:        is.WebURL,
		PlatformID: p.ID(),
		Category:   category,
		Project:    projectLabel(is.Project, is.ProjectID),
		Metadata:   md,
	}
}
