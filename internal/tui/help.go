package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"
)

var (
	// HelpOverlayStyle defines the style for the help overlay container.
	HelpOverlayStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1, 2).
		MarginTop(1)
)

// HelpModel renders the key binding overlay and the one-line footer hints.
type HelpModel struct {
	full   help.Model
	short  help.Model
	keymap KeyMap
}

// NewHelpModel creates a new help model.
func NewHelpModel(keymap KeyMap) HelpModel {
	full := help.New()
	full.ShowAll = true

	return HelpModel{
		full:   full,
		short:  help.New(),
		keymap: keymap,
	}
}

// View renders the full help overlay.
func (m HelpModel) View(width int) string {
	m.full.Width = width - 8 // Account for padding and border
	body := lipgloss.JoinVertical(lipgloss.Left,
		TitleStyle.Render("Key bindings"),
		m.full.View(m.keymap),
	)
	return HelpOverlayStyle.Render(body)
}

// ShortView renders the footer hint line.
func (m HelpModel) ShortView(width int) string {
	m.short.Width = width
	return m.short.View(m.keymap)
}
