// Package store holds the browsable activity results of a fetch session.
// Results arrive one platform at a time and are looked up by the navigation
// layer by platform id, category and index.
package store

import (
	"errors"
	"sort"

	"github.com/robby/reviewr/internal/domain"
)

var (
	// ErrNoResults indicates no results have been stored for the platform.
	ErrNoResults = errors.New("no results for platform")
	// ErrItemNotFound indicates the requested item index is out of range.
	ErrItemNotFound = errors.New("item not found")
)

// Store keeps per-platform activity results.
// It is owned by a single goroutine (the UI loop) and is not safe for concurrent use.
type Store struct {
	// platformID -> results
	results map[string]domain.DetailedActivities

	// platformID -> non-empty categories in canonical order
	categories map[string][]domain.Category
}

// New creates a new empty Store instance.
func New() *Store {
	return &Store{
		results:    make(map[string]domain.DetailedActivities),
		categories: make(map[string][]domain.Category),
	}
}

// Put stores a platform's results, replacing anything stored before for it.
// The store takes ownership of d; callers must not modify it afterwards.
func (s *Store) Put(platformID string, d domain.DetailedActivities) {
	if d.ItemsByCategory == nil {
		d = domain.NewDetailedActivities()
	}
	s.results[platformID] = d
	s.categories[platformID] = d.Categories()
}

// Has reports whether results have been stored for the platform.
func (s *Store) Has(platformID string) bool {
	_, ok := s.results[platformID]
	return ok
}

// Platforms returns the ids with stored results, sorted.
func (s *Store) Platforms() []string {
	ids := make([]string, 0, len(s.results))
	for id := range s.results {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Categories returns the non-empty categories of a platform.
func (s *Store) Categories(platformID string) []domain.Category {
	cats := s.categories[platformID]
	// Return a copy
	result := make([]domain.Category, len(cats))
	copy(result, cats)
	return result
}

// CategoryCount returns the number of items in a platform category.
func (s *Store) CategoryCount(platformID string, category domain.Category) int {
	return len(s.results[platformID].ItemsByCategory[category])
}

// Items returns a copy of the items of a platform category.
func (s *Store) Items(platformID string, category domain.Category) []domain.ActivityItem {
	d, ok := s.results[platformID]
	if !ok {
		return []domain.ActivityItem{}
	}
	return d.Items(category)
}

// Item returns a single item by index.
// Returns ErrNoResults if the platform has no results, or ErrItemNotFound if
// the index is out of range.
func (s *Store) Item(platformID string, category domain.Category, index int) (domain.ActivityItem, error) {
	d, ok := s.results[platformID]
	if !ok {
		return domain.ActivityItem{}, ErrNoResults
	}
	items := d.ItemsByCategory[category]
	if index < 0 || index >= len(items) {
		return domain.ActivityItem{}, ErrItemNotFound
	}
	return items[index], nil
}

// TotalItems returns the number of items stored for a platform.
func (s *Store) TotalItems(platformID string) int {
	return s.results[platformID].TotalItems()
}

// Results returns every stored result set keyed by platform id.
// The map is a copy; the result values share item storage with the store.
func (s *Store) Results() map[string]domain.DetailedActivities {
	result := make(map[string]domain.DetailedActivities, len(s.results))
	for id, d := range s.results {
		result[id] = d
	}
	return result
}

// Reset removes all stored results.
func (s *Store) Reset() {
	s.results = make(map[string]domain.DetailedActivities)
	s.categories = make(map[string][]domain.Category)
}
