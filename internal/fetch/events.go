package fetch

import (
	"time"

	"github.com/robby/reviewr/internal/domain"
)

// Event is one entry of a session's progress stream. The concrete types are
// Started, Completed, AllCompleted and Cancelled.
type Event interface {
	isEvent()
}

// Started is emitted once per platform, before its retrieval begins.
type Started struct {
	PlatformID string
}

// Completed is emitted once per launched platform when its retrieval returns.
// On success Activities holds the platform's data; ownership passes to the
// receiver and the orchestrator keeps no reference it will mutate.
type Completed struct {
	PlatformID string
	Success    bool
	ItemCount  int
	Error      string
	Activities domain.DetailedActivities
	Duration   time.Duration
}

// Status returns the completion expressed as a connection status.
func (c Completed) Status() domain.ConnectionStatus {
	if c.Success {
		return domain.Connected()
	}
	return domain.Failure(c.Error)
}

// AllCompleted is the terminal event of a session that ran to the end.
// Results holds the successful platforms only.
type AllCompleted struct {
	Total      int
	Successful int
	Results    map[string]domain.DetailedActivities
}

// Cancelled is the terminal event of a session stopped by its cancel handle.
// Pending lists the platforms that never reported Completed.
type Cancelled struct {
	Pending []string
}

func (Started) isEvent()      {}
func (Completed) isEvent()    {}
func (AllCompleted) isEvent() {}
func (Cancelled) isEvent()    {}
