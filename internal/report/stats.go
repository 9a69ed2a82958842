// Package report summarises fetch results and exports them to XLSX.
package report

import (
	"fmt"

	"github.com/robby/reviewr/internal/domain"
)

// Statistics are counts over every platform's results.
type Statistics struct {
	Total      int
	Platforms  int
	ByPlatform map[string]int
	ByCategory map[domain.Category]int
	ByStatus   map[string]int
}

// Compute builds Statistics from results keyed by platform id.
func Compute(results map[string]domain.DetailedActivities) Statistics {
	s := Statistics{
		ByPlatform: make(map[string]int),
		ByCategory: make(map[domain.Category]int),
		ByStatus:   make(map[string]int),
	}
	for id, d := range results {
		n := d.TotalItems()
		s.ByPlatform[id] = n
		s.Total += n
		if n > 0 {
			s.Platforms++
		}
		for _, c := range d.Categories() {
			for _, item := range d.Items(c) {
				s.ByCategory[c]++
				s.ByStatus[item.Status]++
			}
		}
	}
	return s
}

// Categories returns the categories with at least one item, in canonical order.
func (s Statistics) Categories() []domain.Category {
	cats := make([]domain.Category, 0, len(s.ByCategory))
	for c, n := range s.ByCategory {
		if n > 0 {
			cats = append(cats, c)
		}
	}
	domain.SortCategories(cats)
	return cats
}

// Describe is the one-line summary of a platform's results.
func Describe(d domain.DetailedActivities) string {
	return SummaryLine(d.TotalItems(), len(d.Categories()))
}

// SummaryLine formats item and category counts as shown in the summary view.
func SummaryLine(items, categories int) string {
	if items == 0 {
		return "No data available"
	}
	return fmt.Sprintf("%d items across %d categories", items, categories)
}
