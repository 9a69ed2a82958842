// Package nav implements the view hierarchy used to browse fetch results:
// Summary, then a platform, then one of its categories. The machine is driven
// by abstract inputs and by fetch progress events, and never blocks.
package nav

import "github.com/robby/reviewr/internal/domain"

// Level is the depth of the current view.
type Level int

const (
	LevelSummary Level = iota
	LevelPlatform
	LevelCategory
)

func (l Level) String() string {
	switch l {
	case LevelPlatform:
		return "platform"
	case LevelCategory:
		return "category"
	default:
		return "summary"
	}
}

// State is the active view. PlatformID is empty in Summary, Category is only
// set in LevelCategory.
type State struct {
	Level          Level
	PlatformID     string
	Category       domain.Category
	CategoryCursor int
	ItemCursor     int
}

// Input is an abstract navigation request.
type Input int

const (
	SelectNextPlatform Input = iota
	SelectPreviousPlatform
	Enter
	Back
	MoveCursorUp
	MoveCursorDown
	MoveCursorTop
	MoveCursorBottom
	GoToSummary
	RequestCancel
	CopyURL
)

// Effect is an external action requested by an input. The machine never
// performs it; the caller does.
type Effect struct {
	OpenURL string
	CopyURL string
}

// Canceler stops a running fetch. *fetch.Session satisfies it.
type Canceler interface {
	Cancel()
}

// Status strings shown next to each platform.
const (
	StatusWaiting   = "waiting"
	StatusFetching  = "fetching"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)
