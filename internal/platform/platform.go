// Package platform defines the capability surface every backend adapter
// implements, and the registry the fetch orchestrator fans out over.
package platform

import (
	"context"

	"github.com/robby/reviewr/internal/domain"
)

// Platform is the uniform contract a backend (Gerrit, Jira, GitLab, ...) satisfies.
//
// ID, Name, Icon, IsConfigured and ItemURL are pure and must not perform I/O.
// The remaining methods may block on the network and return backend-specific
// errors; callers only ever surface err.Error(). Implementations must not share
// mutable state with other adapters, since each one runs on its own goroutine.
type Platform interface {
	ID() string
	Name() string
	Icon() string

	// IsConfigured reports whether credentials and a URL are present.
	// It does not imply the backend is reachable.
	IsConfigured() bool

	ActivityMetrics(ctx context.Context, subject string, days int) (domain.ActivityMetrics, error)
	DetailedActivities(ctx context.Context, subject string, days int) (domain.DetailedActivities, error)
	SearchItems(ctx context.Context, query, subject string) ([]domain.ActivityItem, error)

	// TestConnection performs a live health probe.
	TestConnection(ctx context.Context) (domain.ConnectionStatus, error)

	ItemURL(item domain.ActivityItem) string
}

// Handle is the opaque identity of a platform, detached from its adapter.
type Handle struct {
	ID         string
	Name       string
	Icon       string
	Configured bool
}

// HandleOf derives a Handle from an adapter.
func HandleOf(p Platform) Handle {
	return Handle{
		ID:         p.ID(),
		Name:       p.Name(),
		Icon:       p.Icon(),
		Configured: p.IsConfigured(),
	}
}
