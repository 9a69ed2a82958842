// Package domain defines the normalized activity types shared by every platform
// adapter and the UI. These types carry no behavior beyond presentation helpers
// and are independent of any single backend's API structure.
package domain

import (
	"sort"
	"time"
)

// ActivityItem is a single piece of activity (a change, ticket, merge request, ...)
// as reported by one platform. Items are treated as immutable once an adapter
// returns them; use WithMetadata to derive a modified copy.
type ActivityItem struct {
	ID         string            // Unique within PlatformID + Category
	Title      string            // Subject line or summary
	Status     string            // Free-text status label from the source system
	Created    time.Time         // Creation timestamp (zero if unknown)
	Updated    time.Time         // Last update timestamp (zero if unknown)
	URL        string            // Direct link, may be empty if the adapter synthesizes it
	PlatformID string            // Originating platform id (e.g. "gerrit", "gitlab:work")
	Category   Category          // Which activity bucket this item belongs to
	Project    string            // Project or repository name
	Metadata   map[string]string // Open-ended extra fields (priority, branch, ...)
}

// MetadataKeys returns the metadata keys in sorted order for stable rendering.
func (i ActivityItem) MetadataKeys() []string {
	keys := make([]string, 0, len(i.Metadata))
	for k := range i.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// WithMetadata returns a copy of the item with key set to value.
// The receiver's metadata map is never modified.
func (i ActivityItem) WithMetadata(key, value string) ActivityItem {
	md := make(map[string]string, len(i.Metadata)+1)
	for k, v := range i.Metadata {
		md[k] = v
	}
	md[key] = value
	i.Metadata = md
	return i
}

// DetailedActivities is the full browsable result of one platform retrieval,
// keyed by category. Item slices keep the order the adapter reported.
type DetailedActivities struct {
	ItemsByCategory map[Category][]ActivityItem
}

// NewDetailedActivities creates an empty result set.
func NewDetailedActivities() DetailedActivities {
	return DetailedActivities{ItemsByCategory: make(map[Category][]ActivityItem)}
}

// Add appends items to a category. Empty input is ignored so that categories
// only exist when they hold at least one item.
func (d *DetailedActivities) Add(category Category, items ...ActivityItem) {
	if len(items) == 0 {
		return
	}
	if d.ItemsByCategory == nil {
		d.ItemsByCategory = make(map[Category][]ActivityItem)
	}
	d.ItemsByCategory[category] = append(d.ItemsByCategory[category], items...)
}

// TotalItems returns the number of items across all categories.
func (d DetailedActivities) TotalItems() int {
	total := 0
	for _, items := range d.ItemsByCategory {
		total += len(items)
	}
	return total
}

// Categories returns the non-empty categories in canonical order.
func (d DetailedActivities) Categories() []Category {
	cats := make([]Category, 0, len(d.ItemsByCategory))
	for c, items := range d.ItemsByCategory {
		if len(items) > 0 {
			cats = append(cats, c)
		}
	}
	SortCategories(cats)
	return cats
}

// Items returns a copy of the items stored under category.
func (d DetailedActivities) Items(category Category) []ActivityItem {
	items := d.ItemsByCategory[category]
	result := make([]ActivityItem, len(items))
	copy(result, items)
	return result
}

// Metrics summarizes the detailed result into counts.
func (d DetailedActivities) Metrics() ActivityMetrics {
	m := ActivityMetrics{ItemsByCategory: make(map[Category]int, len(d.ItemsByCategory))}
	for c, items := range d.ItemsByCategory {
		m.ItemsByCategory[c] = len(items)
		m.TotalItems += len(items)
	}
	return m
}

// ActivityMetrics is the cheap summary form of a platform's activity.
type ActivityMetrics struct {
	TotalItems       int
	ItemsByCategory  map[Category]int
	PlatformSpecific map[string]int
}
