package nav

import (
	"github.com/robby/reviewr/internal/domain"
	"github.com/robby/reviewr/internal/platform"
)

// PlatformRow is one platform line of the Summary view.
type PlatformRow struct {
	Handle        platform.Handle
	Status        string
	Outcome       domain.ConnectionStatus
	HasData       bool
	ItemCount     int
	CategoryCount int
}

// CategoryRow is one category line of the platform view.
type CategoryRow struct {
	Category domain.Category
	Count    int
}

// Snapshot is everything a renderer needs to draw one frame. It holds copies
// and stays valid after the machine moves on.
type Snapshot struct {
	State          State
	Loading        bool
	Notice         string
	PlatformCursor int
	Platforms      []PlatformRow

	// Set when State.Level is LevelPlatform or LevelCategory.
	Platform   *PlatformRow
	Categories []CategoryRow

	// Set when State.Level is LevelCategory.
	Items        []domain.ActivityItem
	SelectedItem *domain.ActivityItem
}

// Snapshot captures the current display state.
func (m *Machine) Snapshot() Snapshot {
	snap := Snapshot{
		State:          m.state,
		Loading:        m.loading,
		Notice:         m.notice,
		PlatformCursor: m.platformCursor,
		Platforms:      make([]PlatformRow, 0, len(m.platforms)),
	}

	for _, h := range m.platforms {
		snap.Platforms = append(snap.Platforms, m.row(h))
	}

	if m.state.Level == LevelSummary {
		return snap
	}

	h, ok := m.handle(m.state.PlatformID)
	if !ok {
		h = platform.Handle{ID: m.state.PlatformID, Name: m.state.PlatformID}
	}
	row := m.row(h)
	snap.Platform = &row

	for _, c := range m.results.Categories(m.state.PlatformID) {
		snap.Categories = append(snap.Categories, CategoryRow{
			Category: c,
			Count:    m.results.CategoryCount(m.state.PlatformID, c),
		})
	}

	if m.state.Level == LevelCategory {
		snap.Items = m.results.Items(m.state.PlatformID, m.state.Category)
		if item, ok := m.selectedItem(); ok {
			snap.SelectedItem = &item
		}
	}

	return snap
}

func (m *Machine) row(h platform.Handle) PlatformRow {
	return PlatformRow{
		Handle:        h,
		Status:        m.statuses[h.ID],
		Outcome:       m.outcomes[h.ID],
		HasData:       m.results.Has(h.ID),
		ItemCount:     m.results.TotalItems(h.ID),
		CategoryCount: len(m.results.Categories(h.ID)),
	}
}
