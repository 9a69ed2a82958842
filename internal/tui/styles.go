package tui

import "github.com/charmbracelet/lipgloss"

var (
	// TitleStyle is used for view titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")) // Purple

	// SelectedItemStyle is used for the highlighted row.
	SelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("170")). // Light purple
				Bold(true)

	// NormalItemStyle is used for non-selected rows.
	NormalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")) // Light gray

	// ErrorStyle is used for failures.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")). // Red
			Bold(true)

	// SuccessStyle is used for completed platforms.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")) // Green

	// NoticeStyle is used for transient footer messages.
	NoticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("99")) // Light blue

	// DimStyle is used for secondary text and the footer.
	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")) // Dark gray

	// DetailStyle frames the item detail panel.
	DetailStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)
