package gh

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/robby/reviewr/internal/domain"
	"github.com/robby/reviewr/internal/httpx"
)

// ID is the platform id of the GitHub adapter.
const ID = "github"

const pageSize = 50

// Config holds the connection settings.
type Config struct {
	Token    string
	Endpoint string // GraphQL endpoint, empty means DefaultEndpoint
	// HTTPClient and Logger are optional.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Platform is the GitHub adapter.
type Platform struct {
	cfg    Config
	client *Client
	now    func() time.Time
}

// New creates a GitHub adapter.
func New(cfg Config) *Platform {
	return &Platform{
		cfg:    cfg,
		client: NewClient(cfg.Endpoint, cfg.Token, cfg.HTTPClient, cfg.Logger),
		now:    time.Now,
	}
}

func (p *Platform) ID() string         { return ID }
func (p *Platform) Name() string       { return "GitHub" }
func (p *Platform) Icon() string       { return "🐙" }
func (p *Platform) IsConfigured() bool { return p.cfg.Token != "" }

type categoryQuery struct {
	category domain.Category
	q        string
}

func (p *Platform) queries(login string, days int) []categoryQuery {
	since := p.now().AddDate(0, 0, -days).UTC().Format("2006-01-02")
	return []categoryQuery{
		{domain.CategoryMergeRequestsCreated, fmt.Sprintf("is:pr author:%s created:>=%s", login, since)},
		{domain.CategoryMergeRequestsMerged, fmt.Sprintf("is:pr author:%s is:merged merged:>=%s", login, since)},
		{domain.CategoryMergeRequestsReviewed, fmt.Sprintf("is:pr reviewed-by:%s -author:%s updated:>=%s", login, login, since)},
		{domain.CategoryIssuesCreated, fmt.Sprintf("is:issue author:%s created:>=%s", login, since)},
		{domain.CategoryIssuesAssigned, fmt.Sprintf("is:issue is:open assignee:%s", login)},
	}
}

// login maps subject to a GitHub login. Emails are looked up; when no user
// publishes that email the local part is used.
func (p *Platform) login(ctx context.Context, subject string) (string, error) {
	at := strings.IndexByte(subject, '@')
	if at < 0 {
		return subject, nil
	}
	login, err := p.client.LoginForEmail(ctx, subject)
	if err != nil {
		return "", err
	}
	if login == "" {
		return subject[:at], nil
	}
	return login, nil
}

// DetailedActivities runs one search per category.
func (p *Platform) DetailedActivities(ctx context.Context, subject string, days int) (domain.DetailedActivities, error) {
	login, err := p.login(ctx, subject)
	if err != nil {
		return domain.DetailedActivities{}, err
	}
	result := domain.NewDetailedActivities()
	for _, q := range p.queries(login, days) {
		_, nodes, err := p.client.Search(ctx, q.q, pageSize)
		if err != nil {
			return domain.DetailedActivities{}, err
		}
		for _, n := range nodes {
			result.Add(q.category, toItem(n, q.category))
		}
	}
	return result, nil
}

// ActivityMetrics uses the search issueCount of every category.
func (p *Platform) ActivityMetrics(ctx context.Context, subject string, days int) (domain.ActivityMetrics, error) {
	login, err := p.login(ctx, subject)
	if err != nil {
		return domain.ActivityMetrics{}, err
	}
	m := domain.ActivityMetrics{ItemsByCategory: make(map[domain.Category]int)}
	for _, q := range p.queries(login, days) {
		count, _, err := p.client.Search(ctx, q.q, 1)
		if err != nil {
			return domain.ActivityMetrics{}, err
		}
		m.ItemsByCategory[q.category] = count
		m.TotalItems += count
	}
	return m, nil
}

// SearchItems searches PRs and issues involving the subject.
func (p *Platform) SearchItems(ctx context.Context, query, subject string) ([]domain.ActivityItem, error) {
	login, err := p.login(ctx, subject)
	if err != nil {
		return nil, err
	}
	_, nodes, err := p.client.Search(ctx, fmt.Sprintf("%s involves:%s", query, login), pageSize)
	if err != nil {
		return nil, err
	}
	items := make([]domain.ActivityItem, 0, len(nodes))
	for _, n := range nodes {
		category := domain.CategoryIssuesCreated
		if n.Typename == "PullRequest" {
			category = domain.CategoryMergeRequestsCreated
		}
		items = append(items, toItem(n, category))
	}
	return items, nil
}

// TestConnection asks for the viewer login.
func (p *Platform) TestConnection(ctx context.Context) (domain.ConnectionStatus, error) {
	if !p.IsConfigured() {
		return domain.NotConfigured(), nil
	}
	_, err := p.client.Viewer(ctx)
	switch {
	case err == nil:
		return domain.Connected(), nil
	case httpx.IsStatus(err, http.StatusUnauthorized):
		return domain.Failure("authentication failed, check the GitHub token"), nil
	case httpx.IsStatus(err, http.StatusForbidden):
		return domain.Warning("rate limited or token lacks scopes"), nil
	default:
		return domain.Failure(err.Error()), nil
	}
}

// ItemURL returns the html URL reported by the API.
func (p *Platform) ItemURL(item domain.ActivityItem) string {
	return item.URL
}

func stateLabel(state string) string {
	switch state {
	case "OPEN":
		return "Open"
	case "MERGED":
		return "Merged"
	case "CLOSED":
		return "Closed"
	default:
		return state
	}
}

func toItem(n searchNode, category domain.Category) domain.ActivityItem {
	md := map[string]string{
		"author":     n.Author.Login,
		"repository": n.Repository.NameWithOwner,
	}
	itemType := "Issue"
	if n.Typename == "PullRequest" {
		itemType = "Pull Request"
		md["base_branch"] = n.BaseRef
		md["head_branch"] = n.HeadRef
		md["size"] = fmt.Sprintf("+%d/-%d", n.Additions, n.Deletions)
	}
	md["item_type"] = itemType

	return domain.ActivityItem{
		ID:         n.Repository.NameWithOwner + "#" + strconv.Itoa(n.Number),
		Title:      n.Title,
		Status:     stateLabel(n.State),
		Created:    n.CreatedAt,
		Updated:    n.UpdatedAt,
		URL:        n.URL,
		PlatformID: ID,
		Category:   category,
		Project:    n.Repository.NameWithOwner,
		Metadata:   md,
	}
}
