package fetch

import (
	"context"
	"sync"

	"github.com/robby/reviewr/internal/platform"
)

// Session is one running fetch. Its progress stream ends with exactly one
// AllCompleted or Cancelled event, after which the channel is closed.
type Session struct {
	ID        string
	Subject   string
	Days      int
	Platforms []platform.Handle // platforms fanned out to, in registration order

	events     chan Event
	done       chan struct{}
	cancel     context.CancelFunc
	cancelOnce sync.Once
}

// Events returns the progress stream.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Done is closed once the terminal event has been queued.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Cancel requests early termination. It is safe to call more than once and
// from any goroutine; calls after the session finished have no effect.
func (s *Session) Cancel() {
	s.cancelOnce.Do(s.cancel)
}

// Collect drains the session, passing every event to fn (which may be nil).
// It returns the terminal AllCompleted and true, or a zero value and false if
// the session was cancelled.
func (s *Session) Collect(fn func(Event)) (AllCompleted, bool) {
	var (
		result   AllCompleted
		finished bool
	)
	for ev := range s.events {
		if fn != nil {
			fn(ev)
		}
		if done, ok := ev.(AllCompleted); ok {
			result = done
			finished = true
		}
	}
	return result, finished
}
