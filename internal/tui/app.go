package tui

import (
	"context"
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/browser"
	"github.com/robby/reviewr/internal/fetch"
	"github.com/robby/reviewr/internal/nav"
)

// StartFunc launches a new fetch session, used by refresh.
type StartFunc func(ctx context.Context) (*fetch.Session, error)

// Option configures an AppModel.
type Option func(*AppModel)

// WithURLOpener replaces the browser used for Enter on an item.
func WithURLOpener(open func(string) error) Option {
	return func(m *AppModel) { m.openURL = open }
}

// WithClipboard replaces the clipboard writer used by copy.
func WithClipboard(write func(string) error) Option {
	return func(m *AppModel) { m.copyURL = write }
}

// WithRefresh enables the refresh key.
func WithRefresh(start StartFunc) Option {
	return func(m *AppModel) { m.start = start }
}

// AppModel is the root Bubble Tea model. Navigation state lives in the
// machine; the model only translates keys and renders snapshots.
type AppModel struct {
	// Dependencies
	ctx     context.Context
	machine *nav.Machine
	session *fetch.Session
	start   StartFunc
	openURL func(string) error
	copyURL func(string) error

	// UI components
	keymap  KeyMap
	help    HelpModel
	spinner spinner.Model

	// View state
	subject    string
	days       int
	width      int
	height     int
	showHelp   bool
	quitAfter  bool // ctrl+c while loading: quit once the session ends
	refreshing bool // a start is in flight and has not reported back
	toast      string
	errorToast string
}

// NewAppModel creates the browser over machine. session may be nil when no
// fetch is running; otherwise it is attached to the machine.
func NewAppModel(ctx context.Context, machine *nav.Machine, session *fetch.Session, opts ...Option) AppModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	m := AppModel{
		ctx:     ctx,
		machine: machine,
		openURL: browser.OpenURL,
		copyURL: clipboard.WriteAll,
		keymap:  DefaultKeyMap(),
		help:    NewHelpModel(DefaultKeyMap()),
		spinner: sp,
		width:   80,
		height:  24,
	}
	for _, opt := range opts {
		opt(&m)
	}
	if session != nil {
		(&m).attach(session)
	}
	return m
}

// Init starts the spinner and begins reading progress.
func (m AppModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, tea.WindowSize()}
	if m.session != nil {
		cmds = append(cmds, waitForProgress(m.session))
	}
	return tea.Batch(cmds...)
}

// Update handles messages.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case progressMsg:
		if m.session == nil || msg.sessionID != m.session.ID {
			return m, nil
		}
		m.machine.HandleProgress(msg.event)
		switch msg.event.(type) {
		case fetch.AllCompleted, fetch.Cancelled:
			if m.quitAfter {
				return m, tea.Quit
			}
		}
		return m, waitForProgress(m.session)

	case streamClosedMsg:
		if m.quitAfter && m.session != nil && msg.sessionID == m.session.ID {
			return m, tea.Quit
		}
		return m, nil

	case sessionStartedMsg:
		m.refreshing = false
		if msg.err != nil {
			m.errorToast = fmt.Sprintf("Refresh failed: %v", msg.err)
			return m, nil
		}
		(&m).attach(msg.session)
		m.toast = "refreshing..."
		return m, waitForProgress(msg.session)

	case effectDoneMsg:
		if msg.err != nil {
			m.errorToast = msg.err.Error()
		} else {
			m.toast = msg.notice
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	}

	return m, nil
}

// handleKeyPress processes keyboard input.
func (m AppModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.toast = ""
	m.errorToast = ""

	if key.Matches(msg, m.keymap.ForceQuit) {
		if m.machine.Loading() && !m.quitAfter {
			m.quitAfter = true
			m.machine.Apply(nav.RequestCancel)
			return m, nil
		}
		return m, tea.Quit
	}

	// Help overlay
	if m.showHelp {
		if key.Matches(msg, m.keymap.Help, m.keymap.Quit) {
			m.showHelp = false
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keymap.Quit):
		if m.session != nil {
			m.session.Cancel()
		}
		return m, tea.Quit
	case key.Matches(msg, m.keymap.Help):
		m.showHelp = true
	case key.Matches(msg, m.keymap.Up):
		m.machine.Apply(nav.MoveCursorUp)
	case key.Matches(msg, m.keymap.Down):
		m.machine.Apply(nav.MoveCursorDown)
	case key.Matches(msg, m.keymap.Top):
		m.machine.Apply(nav.MoveCursorTop)
	case key.Matches(msg, m.keymap.Bottom):
		m.machine.Apply(nav.MoveCursorBottom)
	case key.Matches(msg, m.keymap.NextPlatform):
		m.machine.Apply(nav.SelectNextPlatform)
	case key.Matches(msg, m.keymap.PrevPlatform):
		m.machine.Apply(nav.SelectPreviousPlatform)
	case key.Matches(msg, m.keymap.Back):
		m.machine.Apply(nav.Back)
	case key.Matches(msg, m.keymap.Summary):
		m.machine.Apply(nav.GoToSummary)
	case key.Matches(msg, m.keymap.Cancel):
		m.machine.Apply(nav.RequestCancel)
	case key.Matches(msg, m.keymap.Enter):
		return m, m.runEffect(m.machine.Apply(nav.Enter))
	case key.Matches(msg, m.keymap.Copy):
		return m, m.runEffect(m.machine.Apply(nav.CopyURL))
	case key.Matches(msg, m.keymap.Refresh):
		cmd := m.refresh()
		if cmd != nil {
			m.refreshing = true
		}
		return m, cmd
	}
	return m, nil
}

// attach makes s the session whose progress is displayed. A different
// session attached before is cancelled.
func (m *AppModel) attach(s *fetch.Session) {
	if m.session != nil && m.session.ID != s.ID {
		m.session.Cancel()
	}
	m.session = s
	m.subject = s.Subject
	m.days = s.Days
	m.machine.Attach(s)
}

func (m AppModel) refresh() tea.Cmd {
	if m.start == nil || m.refreshing || m.machine.Loading() {
		return nil
	}
	start, ctx := m.start, m.ctx
	return func() tea.Msg {
		s, err := start(ctx)
		return sessionStartedMsg{session: s, err: err}
	}
}

// runEffect performs the external action requested by the machine.
func (m AppModel) runEffect(e nav.Effect) tea.Cmd {
	switch {
	case e.OpenURL != "":
		open, url := m.openURL, e.OpenURL
		return func() tea.Msg {
			if err := open(url); err != nil {
				return effectDoneMsg{err: fmt.Errorf("failed to open browser: %w", err)}
			}
			return effectDoneMsg{notice: "opened " + url}
		}
	case e.CopyURL != "":
		write, url := m.copyURL, e.CopyURL
		return func() tea.Msg {
			if err := write(url); err != nil {
				return effectDoneMsg{err: fmt.Errorf("failed to copy URL: %w", err)}
			}
			return effectDoneMsg{notice: "copied " + url}
		}
	}
	return nil
}

// waitForProgress reads the next event of s.
func waitForProgress(s *fetch.Session) tea.Cmd {
	events, id := s.Events(), s.ID
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return streamClosedMsg{sessionID: id}
		}
		return progressMsg{sessionID: id, event: ev}
	}
}
