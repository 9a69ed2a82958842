// Package platformtest provides a scriptable Platform for tests.
package platformtest

import (
	"context"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/robby/reviewr/internal/domain"
)

// Fake is a Platform whose behavior is fixed by its fields.
//
// When Gate is non-nil, DetailedActivities blocks until Gate is closed (or the
// context is done, unless IgnoreContext is set). Entered, when non-nil, receives
// one value each time DetailedActivities begins.
type Fake struct {
	PlatformID    string
	DisplayName   string
	IconGlyph     string
	Unconfigured  bool
	BaseURL       string
	Activities    domain.DetailedActivities
	Err           error
	PanicValue    any
	Gate          chan struct{}
	IgnoreContext bool
	Entered       chan struct{}
	Health        domain.ConnectionStatus
	HealthErr     error

	calls atomic.Int32
}

// New creates a configured fake that returns activities.
func New(id string, activities domain.DetailedActivities) *Fake {
	return &Fake{
		PlatformID:  id,
		DisplayName: strings.ToUpper(id[:1]) + id[1:],
		IconGlyph:   "🔧",
		Activities:  activities,
		Health:      domain.Connected(),
	}
}

// WithItems builds a DetailedActivities with n generated items per category.
func WithItems(platformID string, perCategory map[domain.Category]int) domain.DetailedActivities {
	d := domain.NewDetailedActivities()
	for cat, n := range perCategory {
		for i := 0; i < n; i++ {
			d.Add(cat, domain.ActivityItem{
				ID:         string(cat) + "-" + strconv.Itoa(i),
				Title:      "item " + strconv.Itoa(i),
				PlatformID: platformID,
				Category:   cat,
				Project:    "proj",
			})
		}
	}
	return d
}

// Calls returns how many times DetailedActivities was invoked.
func (f *Fake) Calls() int { return int(f.calls.Load()) }

func (f *Fake) ID() string         { return f.PlatformID }
func (f *Fake) Name() string       { return f.DisplayName }
func (f *Fake) Icon() string       { return f.IconGlyph }
func (f *Fake) IsConfigured() bool { return !f.Unconfigured }

func (f *Fake) ActivityMetrics(ctx context.Context, subject string, days int) (domain.ActivityMetrics, error) {
	d, err := f.DetailedActivities(ctx, subject, days)
	if err != nil {
		return domain.ActivityMetrics{}, err
	}
	return d.Metrics(), nil
}

func (f *Fake) DetailedActivities(ctx context.Context, subject string, days int) (domain.DetailedActivities, error) {
	f.calls.Add(1)
	if f.Entered != nil {
		f.Entered <- struct{}{}
	}
	if f.Gate != nil {
		if f.IgnoreContext {
			<-f.Gate
		} else {
			select {
			case <-f.Gate:
			case <-ctx.Done():
				return domain.DetailedActivities{}, ctx.Err()
			}
		}
	}
	if f.PanicValue != nil {
		panic(f.PanicValue)
	}
	if f.Err != nil {
		return domain.DetailedActivities{}, f.Err
	}
	return f.Activities, nil
}

func (f *Fake) SearchItems(ctx context.Context, query, subject string) ([]domain.ActivityItem, error) {
	var result []domain.ActivityItem
	for _, cat := range f.Activities.Categories() {
		for _, item := range f.Activities.Items(cat) {
			if strings.Contains(strings.ToLower(item.Title), strings.ToLower(query)) {
				result = append(result, item)
			}
		}
	}
	return result, nil
}

func (f *Fake) TestConnection(ctx context.Context) (domain.ConnectionStatus, error) {
	return f.Health, f.HealthErr
}

func (f *Fake) ItemURL(item domain.ActivityItem) string {
	if f.BaseURL == "" {
		return item.URL
	}
	return f.BaseURL + "/" + item.ID
}
