// Package gerrit implements the Gerrit Code Review platform adapter over the
// Gerrit REST API (authenticated /a/ endpoints, HTTP basic auth).
package gerrit

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

// ID is the platform id of the Gerrit adapter.
const ID = "gerrit"

// xssiPrefix guards every Gerrit JSON response.
const xssiPrefix = ")]}'"

const timeLayout = "2006-01-02 15:04:05.000000000"

// Config holds the connection settings.
type Config struct {
	URL      string
	Username string
	Password string // HTTP password generated in Gerrit settings
	Limit    int    // max changes per query, 0 means 100
}

// Platform is the Gerrit adapter.
type Platform struct {
	cfg    Config
	client *httpx.Client
}

// New creates a Gerrit adapter. Extra options are passed to the HTTP client.
func New(cfg Config, opts ...httpx.Option) *Platform {
	if cfg.Limit <= 0 {
		cfg.Limit = 100
	}
	base := []httpx.Option{
		httpx.WithBasicAuth(cfg.Username, cfg.Password),
		httpx.WithResponsePrefix(xssiPrefix),
	}
	return &Platform{
		cfg:    cfg,
		client: httpx.New(ID, cfg.URL, append(base, opts...)...),
	}
}

func (p *Platform) ID() string   { return ID }
func (p *Platform) Name() string { return "Gerrit" }
func (p *Platform) Icon() string { return "🔧" }

// IsConfigured reports whether URL, username and password are all set.
func (p *Platform) IsConfigured() bool {
	return p.cfg.URL != "" && p.cfg.Username != "" && p.cfg.Password != ""
}

// change is the subset of Gerrit's ChangeInfo that is used.
type change struct {
	ID         string `json:"id"`
	Number     int    `json:"_number"`
	Project    string `json:"project"`
	Branch     string `json:"branch"`
	Subject    string `json:"subject"`
	Status     string `json:"status"`
	Created    string `json:"created"`
	Updated    string `json:"updated"`
	Insertions int    `json:"insertions"`
	Deletions  int    `json:"deletions"`
	Owner      struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"owner"`
}

// queries maps each category to its search expression.
func queries(subject string, days int) []struct {
	category domain.Category
	query    string
} {
	age := fmt.Sprintf("-age:%dd", days)
	return []struct {
		category domain.Category
		query    string
	}{
		{domain.CategoryChangesCreated, fmt.Sprintf("owner:%s %s", subject, age)},
		{domain.CategoryChangesMerged, fmt.Sprintf("owner:%s status:merged %s", subject, age)},
		{domain.CategoryReviewsGiven, fmt.Sprintf("reviewer:%s -owner:%s %s", subject, subject, age)},
		{domain.CategoryReviewsReceived, fmt.Sprintf("owner:%s is:reviewed %s", subject, age)},
	}
}

// DetailedActivities runs one change query per category.
func (p *Platform) DetailedActivities(ctx context.Context, subject string, days int) (domain.DetailedActivities, error) {
	result := domain.NewDetailedActivities()
	for _, q := range queries(subject, days) {
		changes, err := p.queryChanges(ctx, "list "+string(q.category), q.query)
		if err != nil {
			return domain.DetailedActivities{}, err
		}
		for _, c := range changes {
			result.Add(q.category, p.toItem(c, q.category))
		}
	}
	return result, nil
}

// ActivityMetrics returns per-category change counts.
func (p *Platform) ActivityMetrics(ctx context.Context, subject string, days int) (domain.ActivityMetrics, error) {
	d, err := p.DetailedActivities(ctx, subject, days)
	if err != nil {
		return domain.ActivityMetrics{}, err
	}
	return d.Metrics(), nil
}

// SearchItems finds the subject's changes whose commit message matches query.
func (p *Platform) SearchItems(ctx context.Context, query, subject string) ([]domain.ActivityItem, error) {
	q := fmt.Sprintf("owner:%s message:%q", subject, query)
	changes, err := p.queryChanges(ctx, "search", q)
	if err != nil {
		return nil, err
	}
	items := make([]domain.ActivityItem, 0, len(changes))
	for _, c := range changes {
		items = append(items, p.toItem(c, domain.CategoryChangesCreated))
	}
	return items, nil
}

// TestConnection fetches the authenticated account.
func (p *Platform) TestConnection(ctx context.Context) (domain.ConnectionStatus, error) {
	if !p.IsConfigured() {
		return domain.NotConfigured(), nil
	}
	var account struct {
		Username string `json:"username"`
	}
	err := p.client.GetJSON(ctx, "test connection", "/a/accounts/self", nil, &account)
	switch {
	case err == nil:
		return domain.Connected(), nil
	case httpx.IsStatus(err, http.StatusUnauthorized), httpx.IsStatus(err, http.StatusForbidden):
		return domain.Failure("authentication failed, check username and HTTP password"), nil
	default:
		return domain.Failure(err.Error()), nil
	}
}

// ItemURL links to the change page.
func (p *Platform) ItemURL(item domain.ActivityItem) string {
	if item.Project == "" {
		return fmt.Sprintf("%s/c/%s", p.client.BaseURL(), item.ID)
	}
	return fmt.Sprintf("%s/c/%s/+/%s", p.client.BaseURL(), item.Project, item.ID)
}

func (p *Platform) queryChanges(ctx context.Context, operation, query string) ([]change, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("n", strconv.Itoa(p.cfg.Limit))
	params.Add("o", "DETAILED_ACCOUNTS")

	var changes []change
	if err := p.client.GetJSON(ctx, operation, "/a/changes/", params, &changes); err != nil {
		return nil, err
	}
	return changes, nil
}

func (p *Platform) toItem(c change, category domain.Category) domain.ActivityItem {
	item := domain.ActivityItem{
		ID:         strconv.Itoa(c.Number),
		Title:      c.Subject,
		Status:     statusLabel(c.Status),
		Created:    parseTime(c.Created),
		Updated:    parseTime(c.Updated),
		PlatformID: ID,
		Category:   category,
		Project:    c.Project,
		Metadata: map[string]string{
			"branch":    c.Branch,
			"change_id": c.ID,
			"owner":     c.Owner.Name,
			"size":      fmt.Sprintf("+%d/-%d", c.Insertions, c.Deletions),
		},
	}
	item.URL = p.ItemURL(item)
	return item
}

func statusLabel(s string) string {
	switch strings.ToUpper(s) {
	case "NEW":
		return "Open"
	case "MERGED":
		return "Merged"
	case "ABANDONED":
		return "Abandoned"
	default:
		return s
	}
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
