package domain

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Category identifies an activity bucket. Known categories are the constants
// below; adapters may introduce others with OtherCategory.
type Category string

// Known categories, declared in canonical display order.
const (
	CategoryChangesCreated        Category = "changes_created"
	CategoryChangesReviewed       Category = "changes_reviewed"
	CategoryChangesMerged         Category = "changes_merged"
	CategoryReviewsGiven          Category = "reviews_given"
	CategoryReviewsReceived       Category = "reviews_received"
	CategoryIssuesCreated         Category = "issues_created"
	CategoryIssuesAssigned        Category = "issues_assigned"
	CategoryIssuesResolved        Category = "issues_resolved"
	CategoryIssuesCommented       Category = "issues_commented"
	CategoryMergeRequestsCreated  Category = "merge_requests_created"
	CategoryMergeRequestsReviewed Category = "merge_requests_reviewed"
	CategoryMergeRequestsMerged   Category = "merge_requests_merged"
	CategoryCommitsPushed         Category = "commits_pushed"
)

const otherPrefix = "other:"

type categoryInfo struct {
	name     string
	icon     string
	shortKey rune
}

var knownCategories = []Category{
	CategoryChangesCreated,
	CategoryChangesReviewed,
	CategoryChangesMerged,
	CategoryReviewsGiven,
	CategoryReviewsReceived,
	CategoryIssuesCreated,
	CategoryIssuesAssigned,
	CategoryIssuesResolved,
	CategoryIssuesCommented,
	CategoryMergeRequestsCreated,
	CategoryMergeRequestsReviewed,
	CategoryMergeRequestsMerged,
	CategoryCommitsPushed,
}

var categoryTable = map[Category]categoryInfo{
	CategoryChangesCreated:        {"Changes Created", "📝", 'c'},
	CategoryChangesReviewed:       {"Changes Reviewed", "👀", 'v'},
	CategoryChangesMerged:         {"Changes Merged", "✅", 'm'},
	CategoryReviewsGiven:          {"Reviews Given", "👀", 'g'},
	CategoryReviewsReceived:       {"Reviews Received", "📥", 'r'},
	CategoryIssuesCreated:         {"Issues Created", "🎫", 'c'},
	CategoryIssuesAssigned:        {"Issues Assigned", "📌", 'a'},
	CategoryIssuesResolved:        {"Issues Resolved", "✅", 'r'},
	CategoryIssuesCommented:       {"Issues Commented", "💬", 'o'},
	CategoryMergeRequestsCreated:  {"Merge Requests Created", "📝", 'c'},
	CategoryMergeRequestsReviewed: {"Merge Requests Reviewed", "👀", 'v'},
	CategoryMergeRequestsMerged:   {"Merge Requests Merged", "✅", 'm'},
	CategoryCommitsPushed:         {"Commits Pushed", "📤", 'p'},
}

var titleCaser = cases.Title(language.English)

// OtherCategory creates a category unknown to the core, named by the adapter.
func OtherCategory(name string) Category {
	return Category(otherPrefix + name)
}

// IsKnown reports whether c is one of the declared constants.
func (c Category) IsKnown() bool {
	_, ok := categoryTable[c]
	return ok
}

// OtherName returns the adapter-supplied name of an Other category, or "" for known ones.
func (c Category) OtherName() string {
	if s, ok := strings.CutPrefix(string(c), otherPrefix); ok {
		return s
	}
	if !c.IsKnown() {
		return string(c)
	}
	return ""
}

// DisplayName returns the human readable name of the category.
func (c Category) DisplayName() string {
	if info, ok := categoryTable[c]; ok {
		return info.name
	}
	name := strings.NewReplacer("_", " ", "-", " ").Replace(c.OtherName())
	return titleCaser.String(name)
}

// Icon returns the list icon used next to the category.
func (c Category) Icon() string {
	if info, ok := categoryTable[c]; ok {
		return info.icon
	}
	return "📄"
}

// ShortKey returns a single-letter mnemonic for the category.
func (c Category) ShortKey() rune {
	if info, ok := categoryTable[c]; ok {
		return info.shortKey
	}
	return 'o'
}

func (c Category) String() string {
	return c.DisplayName()
}

func (c Category) rank() int {
	for i, k := range knownCategories {
		if k == c {
			return i
		}
	}
	return len(knownCategories)
}

// SortCategories orders categories canonically: known categories in declaration
// order, followed by other categories sorted by name.
func SortCategories(cats []Category) {
	sort.SliceStable(cats, func(i, j int) bool {
		ri, rj := cats[i].rank(), cats[j].rank()
		if ri != rj {
			return ri < rj
		}
		return cats[i] < cats[j]
	})
}
