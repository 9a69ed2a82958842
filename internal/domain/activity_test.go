package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetailedActivities_TotalsAndCategories(t *testing.T) {
	d := NewDetailedActivities()
	d.Add(CategoryReviewsGiven, ActivityItem{ID: "1"}, ActivityItem{ID: "2"})
	d.Add(CategoryChangesCreated, ActivityItem{ID: "3"})
	d.Add(OtherCategory("approvals"), ActivityItem{ID: "4"})
	d.Add(CategoryIssuesCreated)

	assert.Equal(t, 4, d.TotalItems())
	assert.Equal(t, []Category{CategoryChangesCreated, CategoryReviewsGiven, OtherCategory("approvals")}, d.Categories())

	m := d.Metrics()
	assert.Equal(t, 4, m.TotalItems)
	assert.Equal(t, 2, m.ItemsByCategory[CategoryReviewsGiven])
}

func TestDetailedActivities_ItemsReturnsCopy(t *testing.T) {
	d := NewDetailedActivities()
	d.Add(CategoryChangesMerged, ActivityItem{ID: "a", Title: "original"})

	items := d.Items(CategoryChangesMerged)
	require.Len(t, items, 1)
	items[0].Title = "changed"

	assert.Equal(t, "original", d.Items(CategoryChangesMerged)[0].Title)
	assert.Empty(t, d.Items(CategoryIssuesAssigned))
}

func TestDetailedActivities_ZeroValueAdd(t *testing.T) {
	var d DetailedActivities
	d.Add(CategoryCommitsPushed, ActivityItem{ID: "x"})
	assert.Equal(t, 1, d.TotalItems())
}

func TestActivityItem_WithMetadataDoesNotMutate(t *testing.T) {
	item := ActivityItem{ID: "1", Metadata: map[string]string{"branch": "main"}}
	updated := item.WithMetadata("priority", "high")

	assert.Len(t, item.Metadata, 1)
	assert.Equal(t, "high", updated.Metadata["priority"])
	assert.Equal(t, []string{"branch", "priority"}, updated.MetadataKeys())
}

func TestCategory_DisplayName(t *testing.T) {
	assert.Equal(t, "Changes Created", CategoryChangesCreated.DisplayName())
	assert.Equal(t, "Merge Requests Merged", CategoryMergeRequestsMerged.DisplayName())
	assert.Equal(t, "Code Owner Approvals", OtherCategory("code_owner_approvals").DisplayName())
	assert.Equal(t, "code_owner_approvals", OtherCategory("code_owner_approvals").OtherName())
	assert.Equal(t, "", CategoryIssuesResolved.OtherName())
}

func TestCategory_IconsAndKeys(t *testing.T) {
	assert.Equal(t, "📝", CategoryChangesCreated.Icon())
	assert.Equal(t, "🎫", CategoryIssuesCreated.Icon())
	assert.Equal(t, "📄", OtherCategory("x").Icon())
	assert.Equal(t, 'g', CategoryReviewsGiven.ShortKey())
	assert.Equal(t, 'o', OtherCategory("x").ShortKey())
}

func TestSortCategories(t *testing.T) {
	cats := []Category{
		OtherCategory("zeta"),
		CategoryIssuesResolved,
		OtherCategory("alpha"),
		CategoryChangesCreated,
	}
	SortCategories(cats)
	assert.Equal(t, []Category{
		CategoryChangesCreated,
		CategoryIssuesResolved,
		OtherCategory("alpha"),
		OtherCategory("zeta"),
	}, cats)
}

func TestConnectionStatus(t *testing.T) {
	var zero ConnectionStatus
	assert.Equal(t, StatusNotConfigured, zero.Kind)
	assert.False(t, zero.IsOK())

	assert.True(t, Connected().IsOK())
	assert.Equal(t, "✅", Connected().Icon())
	assert.Equal(t, "⚠️", Warning("slow").Icon())
	assert.Equal(t, "❌", Failure("boom").Icon())
	assert.Equal(t, "⚪", NotConfigured().Icon())
	assert.Equal(t, "Error: boom", Failure("boom").String())
	assert.Equal(t, "Not configured", NotConfigured().String())
}
