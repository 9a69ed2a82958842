package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"
	"github.com/robby/reviewr/internal/domain"
	"github.com/robby/reviewr/internal/nav"
	"github.com/robby/reviewr/internal/report"
)

const (
	summaryTitle = "Multi-Platform Activity Summary"
	// chromeHeight is the header, blank line and footer lines around the body.
	chromeHeight = 5
	detailHeight = 10
	timeLayout   = "2006-01-02 15:04"
)

// View renders the current frame.
func (m AppModel) View() string {
	snap := m.machine.Snapshot()
	width := m.width
	if width < 20 {
		width = 20
	}

	header := m.renderHeader(snap, width)
	var body string
	if m.showHelp {
		body = m.help.View(width)
	} else {
		switch snap.State.Level {
		case nav.LevelPlatform:
			body = m.renderPlatform(snap, width)
		case nav.LevelCategory:
			body = m.renderCategory(snap, width)
		default:
			body = m.renderSummary(snap, width)
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, "", body, "", m.renderFooter(snap, width))
}

// Title returns the heading of the active view.
func Title(snap nav.Snapshot) string {
	if snap.Platform == nil {
		return summaryTitle
	}
	name := snap.Platform.Handle.Name
	if snap.State.Level == nav.LevelCategory {
		return fmt.Sprintf("%s - %s", name, snap.State.Category.DisplayName())
	}
	return name + " Activity"
}

func (m AppModel) renderHeader(snap nav.Snapshot, width int) string {
	left := TitleStyle.Render(Title(snap))

	var right string
	if snap.Loading {
		done := 0
		for _, p := range snap.Platforms {
			if p.HasData || p.Status == nav.StatusFailed {
				done++
			}
		}
		right = fmt.Sprintf("%s fetching %d/%d", m.spinner.View(), done, len(snap.Platforms))
	} else if m.subject != "" {
		right = DimStyle.Render(fmt.Sprintf("%s, last %d days", m.subject, m.days))
	}

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m AppModel) renderFooter(snap nav.Snapshot, width int) string {
	switch {
	case m.errorToast != "":
		return ErrorStyle.Render(clip(m.errorToast, width))
	case snap.Notice != "":
		return NoticeStyle.Render(snap.Notice)
	case m.quitAfter:
		return NoticeStyle.Render("cancelling, will quit when done...")
	case m.toast != "":
		return NoticeStyle.Render(clip(m.toast, width))
	}
	return DimStyle.Render(m.help.ShortView(width))
}

func (m AppModel) renderSummary(snap nav.Snapshot, width int) string {
	if len(snap.Platforms) == 0 {
		return DimStyle.Render("No platforms configured.")
	}

	nameWidth := 0
	for _, p := range snap.Platforms {
		if w := runewidth.StringWidth(p.Handle.Name); w > nameWidth {
			nameWidth = w
		}
	}

	rows := make([]string, 0, len(snap.Platforms))
	for i, p := range snap.Platforms {
		line := fmt.Sprintf("%s %s  %s", p.Handle.Icon, padRight(p.Handle.Name, nameWidth), platformLine(snap, p))
		rows = append(rows, cursorRow(clip(line, width-2), i == snap.PlatformCursor))
	}
	start, end := visibleRange(len(rows), snap.PlatformCursor, m.listHeight(0))
	return strings.Join(rows[start:end], "\n")
}

// platformLine is the status column of a summary row.
func platformLine(snap nav.Snapshot, p nav.PlatformRow) string {
	switch {
	case p.Status == nav.StatusFailed:
		return ErrorStyle.Render(p.Outcome.String())
	case p.HasData:
		line := report.SummaryLine(p.ItemCount, p.CategoryCount)
		if p.Status != "" {
			line = p.Status + " · " + line
		}
		return SuccessStyle.Render(line)
	case p.Status == nav.StatusFetching:
		return DimStyle.Render("fetching...")
	case p.Status == nav.StatusCancelled:
		return DimStyle.Render("cancelled")
	case snap.Loading:
		return DimStyle.Render("waiting")
	}
	return DimStyle.Render("No data available")
}

func (m AppModel) renderPlatform(snap nav.Snapshot, width int) string {
	p := snap.Platform
	lines := []string{DimStyle.Render(platformLine(snap, *p))}
	if len(snap.Categories) == 0 {
		return strings.Join(lines, "\n")
	}
	lines = append(lines, "")

	rows := make([]string, 0, len(snap.Categories))
	for i, c := range snap.Categories {
		line := fmt.Sprintf("%s %s (%d)", c.Category.Icon(), c.Category.DisplayName(), c.Count)
		rows = append(rows, cursorRow(clip(line, width-2), i == snap.State.CategoryCursor))
	}
	start, end := visibleRange(len(rows), snap.State.CategoryCursor, m.listHeight(2))
	lines = append(lines, rows[start:end]...)
	return strings.Join(lines, "\n")
}

func (m AppModel) renderCategory(snap nav.Snapshot, width int) string {
	rows := make([]string, 0, len(snap.Items))
	for i, item := range snap.Items {
		rows = append(rows, cursorRow(itemLine(item, width-2), i == snap.State.ItemCursor))
	}
	start, end := visibleRange(len(rows), snap.State.ItemCursor, m.listHeight(detailHeight))
	list := strings.Join(rows[start:end], "\n")

	if snap.SelectedItem == nil {
		return list
	}
	return lipgloss.JoinVertical(lipgloss.Left, list, "", renderDetail(*snap.SelectedItem, width))
}

// itemLine renders "title ... status" right-aligned to width.
func itemLine(item domain.ActivityItem, width int) string {
	suffix := item.Status
	if suffix == "" {
		suffix = item.ID
	}
	available := width - runewidth.StringWidth(suffix) - 1
	if available < 5 {
		available = 5
	}
	title := clip(item.Title, available)
	padding := width - runewidth.StringWidth(title) - runewidth.StringWidth(suffix)
	if padding < 1 {
		padding = 1
	}
	return title + strings.Repeat(" ", padding) + suffix
}

func renderDetail(item domain.ActivityItem, width int) string {
	inner := width - 4 // border and padding
	if inner < 10 {
		inner = 10
	}
	fields := [][2]string{
		{"ID", item.ID},
		{"Project", item.Project},
		{"Status", item.Status},
		{"Created", formatTime(item.Created)},
		{"Updated", formatTime(item.Updated)},
	}
	for _, k := range item.MetadataKeys() {
		fields = append(fields, [2]string{k, item.Metadata[k]})
	}

	var b strings.Builder
	b.WriteString(SelectedItemStyle.Render(wordwrap.String(item.Title, inner)))
	for _, f := range fields {
		if f[1] == "" {
			continue
		}
		b.WriteString("\n")
		b.WriteString(clip(DimStyle.Render(f[0]+": ")+f[1], inner))
	}
	return DetailStyle.Width(inner + 2).Render(b.String())
}

// listHeight is the number of list rows that fit next to reserved lines.
func (m AppModel) listHeight(reserved int) int {
	h := m.height - chromeHeight - reserved
	if h < 3 {
		h = 3
	}
	return h
}

// visibleRange returns the window [start, end) of n rows of size that keeps cursor visible.
func visibleRange(n, cursor, size int) (int, int) {
	if n <= size {
		return 0, n
	}
	start := 0
	if cursor >= size {
		start = cursor - size + 1
	}
	return start, start + size
}

func cursorRow(line string, selected bool) string {
	if selected {
		return SelectedItemStyle.Render("> " + line)
	}
	return NormalItemStyle.Render("  " + line)
}

// clip shortens s to width cells, ignoring ANSI styling.
func clip(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return truncate.StringWithTail(s, uint(width), "…")
}

func padRight(s string, width int) string {
	return runewidth.FillRight(s, width)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(timeLayout)
}
