// Package tui is the interactive activity browser. It renders the navigation
// machine and feeds it key presses and fetch progress.
package tui

import "github.com/robby/reviewr/internal/fetch"

type (
	// progressMsg carries one event of the session identified by sessionID.
	progressMsg struct {
		sessionID string
		event     fetch.Event
	}

	// streamClosedMsg is sent once a session's progress stream is drained.
	streamClosedMsg struct {
		sessionID string
	}

	// sessionStartedMsg is the result of a refresh.
	sessionStartedMsg struct {
		session *fetch.Session
		err     error
	}

	// effectDoneMsg reports the outcome of opening or copying a URL.
	effectDoneMsg struct {
		notice string
		err    error
	}
)
