package nav

import (
	"fmt"

	"github.com/robby/reviewr/internal/domain"
	"github.com/robby/reviewr/internal/fetch"
	"github.com/robby/reviewr/internal/platform"
	"github.com/robby/reviewr/internal/store"
)

// Lookup resolves a platform id to its adapter. *platform.Registry satisfies it.
type Lookup interface {
	Platform(id string) (platform.Platform, bool)
}

// Machine owns the navigation state and the per-platform display status.
// All methods must be called from the same goroutine.
type Machine struct {
	lookup    Lookup
	platforms []platform.Handle
	results   *store.Store

	state          State
	platformCursor int

	// platformID -> last highlighted category, kept across Back and GoToSummary
	categoryCursors map[string]int

	statuses map[string]string
	outcomes map[string]domain.ConnectionStatus
	loading  bool
	canceler Canceler
	notice   string
}

// New creates a machine over the given platforms, in display order.
// lookup may be nil, in which case item URLs come from the items themselves.
func New(lookup Lookup, platforms []platform.Handle) *Machine {
	m := &Machine{
		lookup:          lookup,
		results:         store.New(),
		categoryCursors: make(map[string]int),
	}
	m.setPlatforms(platforms)
	return m
}

func (m *Machine) setPlatforms(platforms []platform.Handle) {
	m.platforms = append([]platform.Handle(nil), platforms...)
	m.statuses = make(map[string]string, len(platforms))
	m.outcomes = make(map[string]domain.ConnectionStatus, len(platforms))
	for _, h := range platforms {
		m.statuses[h.ID] = StatusWaiting
	}
	m.platformCursor = clamp(m.platformCursor, len(m.platforms))
}

// Attach binds a new fetch session. Previous results and statuses are
// discarded, navigation state and remembered cursors are kept.
func (m *Machine) Attach(s *fetch.Session) {
	m.AttachCanceler(s, s.Platforms)
}

// AttachCanceler is Attach for callers that drive the machine without a real session.
func (m *Machine) AttachCanceler(c Canceler, platforms []platform.Handle) {
	m.results.Reset()
	m.setPlatforms(platforms)
	m.canceler = c
	m.loading = true
	m.notice = ""
	m.clampState()
}

// State returns the active view.
func (m *Machine) State() State {
	return m.state
}

// Loading reports whether a fetch is in flight.
func (m *Machine) Loading() bool {
	return m.loading
}

// PlatformCursor returns the highlighted platform index in Summary.
func (m *Machine) PlatformCursor() int {
	return m.platformCursor
}

// Results exposes the data received so far.
func (m *Machine) Results() *store.Store {
	return m.results
}

// Apply handles one input and returns any external effect it requests.
func (m *Machine) Apply(in Input) Effect {
	m.notice = ""

	switch in {
	case SelectNextPlatform:
		m.cyclePlatform(1)
	case SelectPreviousPlatform:
		m.cyclePlatform(-1)
	case Enter:
		return m.enter()
	case Back:
		m.back()
	case MoveCursorUp:
		m.moveCursor(-1)
	case MoveCursorDown:
		m.moveCursor(1)
	case MoveCursorTop:
		m.jumpCursor(0)
	case MoveCursorBottom:
		m.jumpCursor(-1)
	case GoToSummary:
		m.goToSummary()
	case RequestCancel:
		if m.loading && m.canceler != nil {
			m.canceler.Cancel()
			m.notice = "cancelling..."
		}
	case CopyURL:
		if url := m.selectedItemURL(); url != "" {
			return Effect{CopyURL: url}
		}
	}
	return Effect{}
}

// HandleProgress folds a fetch event into the display state.
func (m *Machine) HandleProgress(ev fetch.Event) {
	switch e := ev.(type) {
	case fetch.Started:
		m.loading = true
		m.statuses[e.PlatformID] = StatusFetching

	case fetch.Completed:
		m.outcomes[e.PlatformID] = e.Status()
		if !e.Success {
			m.statuses[e.PlatformID] = StatusFailed
			return
		}
		m.statuses[e.PlatformID] = fmt.Sprintf("done (%d)", e.ItemCount)
		m.results.Put(e.PlatformID, e.Activities)
		m.clampState()

	case fetch.AllCompleted:
		m.loading = false
		m.canceler = nil
		for id, d := range e.Results {
			if !m.results.Has(id) {
				m.results.Put(id, d)
			}
		}
		m.clampState()

	case fetch.Cancelled:
		m.loading = false
		m.canceler = nil
		for _, id := range e.Pending {
			m.statuses[id] = StatusCancelled
		}
		m.notice = "fetch cancelled"
	}
}

func (m *Machine) cyclePlatform(delta int) {
	if m.state.Level != LevelSummary || len(m.platforms) == 0 {
		return
	}
	n := len(m.platforms)
	m.platformCursor = ((m.platformCursor+delta)%n + n) % n
}

func (m *Machine) enter() Effect {
	switch m.state.Level {
	case LevelSummary:
		if len(m.platforms) == 0 {
			return Effect{}
		}
		id := m.platforms[m.platformCursor].ID
		m.state = State{
			Level:          LevelPlatform,
			PlatformID:     id,
			CategoryCursor: clamp(m.categoryCursors[id], len(m.results.Categories(id))),
		}

	case LevelPlatform:
		cats := m.results.Categories(m.state.PlatformID)
		if len(cats) == 0 {
			return Effect{}
		}
		m.state.Level = LevelCategory
		m.state.Category = cats[m.state.CategoryCursor]
		m.state.ItemCursor = 0

	case LevelCategory:
		if url := m.selectedItemURL(); url != "" {
			return Effect{OpenURL: url}
		}
	}
	return Effect{}
}

func (m *Machine) back() {
	switch m.state.Level {
	case LevelCategory:
		m.state.Level = LevelPlatform
		m.state.Category = ""
		m.state.ItemCursor = 0
	case LevelPlatform:
		m.state = State{Level: LevelSummary}
	}
}

func (m *Machine) goToSummary() {
	if id := m.state.PlatformID; id != "" {
		if i := m.platformIndex(id); i >= 0 {
			m.platformCursor = i
		}
	}
	m.state = State{Level: LevelSummary}
}

func (m *Machine) moveCursor(delta int) {
	cursor, n := m.cursor()
	m.setCursor(clamp(cursor+delta, n))
}

func (m *Machine) jumpCursor(idx int) {
	_, n := m.cursor()
	if idx < 0 {
		idx = n - 1
	}
	m.setCursor(clamp(idx, n))
}

// cursor returns the active cursor and the length of the list it moves in.
func (m *Machine) cursor() (int, int) {
	switch m.state.Level {
	case LevelPlatform:
		return m.state.CategoryCursor, len(m.results.Categories(m.state.PlatformID))
	case LevelCategory:
		return m.state.ItemCursor, m.results.CategoryCount(m.state.PlatformID, m.state.Category)
	default:
		return m.platformCursor, len(m.platforms)
	}
}

func (m *Machine) setCursor(v int) {
	switch m.state.Level {
	case LevelPlatform:
		m.state.CategoryCursor = v
		m.categoryCursors[m.state.PlatformID] = v
	case LevelCategory:
		m.state.ItemCursor = v
	default:
		m.platformCursor = v
	}
}

// clampState keeps cursors valid after the underlying data changed.
func (m *Machine) clampState() {
	m.platformCursor = clamp(m.platformCursor, len(m.platforms))
	if m.state.Level == LevelSummary {
		return
	}

	cats := m.results.Categories(m.state.PlatformID)
	if m.state.Level == LevelCategory && m.results.CategoryCount(m.state.PlatformID, m.state.Category) == 0 {
		m.state.Level = LevelPlatform
		m.state.Category = ""
		m.state.ItemCursor = 0
	}
	m.state.CategoryCursor = clamp(m.state.CategoryCursor, len(cats))
	if m.state.Level == LevelCategory {
		m.state.ItemCursor = clamp(m.state.ItemCursor, m.results.CategoryCount(m.state.PlatformID, m.state.Category))
	}
}

func (m *Machine) selectedItem() (domain.ActivityItem, bool) {
	if m.state.Level != LevelCategory {
		return domain.ActivityItem{}, false
	}
	item, err := m.results.Item(m.state.PlatformID, m.state.Category, m.state.ItemCursor)
	if err != nil {
		return domain.ActivityItem{}, false
	}
	return item, true
}

func (m *Machine) selectedItemURL() string {
	item, ok := m.selectedItem()
	if !ok {
		return ""
	}
	if m.lookup != nil {
		if p, ok := m.lookup.Platform(m.state.PlatformID); ok {
			if url := p.ItemURL(item); url != "" {
				return url
			}
		}
	}
	return item.URL
}

func (m *Machine) platformIndex(id string) int {
	for i, h := range m.platforms {
		if h.ID == id {
			return i
		}
	}
	return -1
}

func (m *Machine) handle(id string) (platform.Handle, bool) {
	if i := m.platformIndex(id); i >= 0 {
		return m.platforms[i], true
	}
	return platform.Handle{}, false
}

// clamp bounds v to [0, n-1], or 0 for an empty list.
func clamp(v, n int) int {
	if n <= 0 || v < 0 {
		return 0
	}
	if v >= n {
		return n - 1
	}
	return v
}
