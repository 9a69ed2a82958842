// Package fetch runs one retrieval per configured platform concurrently and
// reports progress as a stream of events.
//
// A session owns a coordinator goroutine and one worker goroutine per platform.
// Workers only talk to the coordinator; the coordinator is the only writer of
// the progress channel and the only owner of the aggregated results until it
// hands them over in the terminal AllCompleted event.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/robby/reviewr/internal/domain"
	"github.com/robby/reviewr/internal/platform"
)

// ErrNoConfiguredPlatforms is returned by Start when there is nothing to fetch.
var ErrNoConfiguredPlatforms = errors.New("no configured platforms")

// Source yields the platforms a session fans out to. *platform.Registry satisfies it.
type Source interface {
	Configured() []platform.Platform
}

// Orchestrator starts fetch sessions.
type Orchestrator struct {
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger used for session and platform records.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics sets the collectors updated by every session.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// New creates an Orchestrator.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// outcome is what a worker hands back to the coordinator.
type outcome struct {
	platformID string
	activities domain.DetailedActivities
	err        error
	duration   time.Duration
}

// Start launches a session over the configured platforms of src.
//
// The set of platforms is fixed at this point. If it is empty Start returns
// ErrNoConfiguredPlatforms and nothing is launched. Cancelling ctx has the same
// effect as calling Session.Cancel.
func (o *Orchestrator) Start(ctx context.Context, src Source, subject string, days int) (*Session, error) {
	platforms := src.Configured()
	if len(platforms) == 0 {
		return nil, ErrNoConfiguredPlatforms
	}

	ctx, cancel := context.WithCancel(ctx)

	handles := make([]platform.Handle, len(platforms))
	for i, p := range platforms {
		handles[i] = platform.HandleOf(p)
	}

	s := &Session{
		ID:        uuid.NewString(),
		Subject:   subject,
		Days:      days,
		Platforms: handles,
		events:    make(chan Event, capacityFor(len(platforms))),
		done:      make(chan struct{}),
		cancel:    cancel,
	}

	logger := o.logger.With("session", s.ID)
	logger.Info("fetch started", "subject", subject, "days", days, "platforms", len(platforms))

	go o.coordinate(ctx, s, platforms, logger)

	return s, nil
}

// capacityFor returns a buffer size holding every event a session over n
// platforms can emit, so the coordinator never blocks on a slow consumer.
func capacityFor(n int) int {
	return 2*n + 1
}

func (o *Orchestrator) coordinate(ctx context.Context, s *Session, platforms []platform.Platform, logger *slog.Logger) {
	defer close(s.done)
	defer close(s.events)
	defer s.cancel()

	results := make(chan outcome, len(platforms))
	completed := make(map[string]bool, len(platforms))
	launched := 0

	for _, p := range platforms {
		if ctx.Err() != nil {
			break
		}
		id := p.ID()
		s.events <- Started{PlatformID: id}
		o.metrics.recordStarted(id)
		go o.retrieve(ctx, p, s.Subject, s.Days, results, logger)
		launched++
	}

	aggregated := make(map[string]domain.DetailedActivities, launched)
	for received := 0; received < launched; {
		select {
		case <-ctx.Done():
			o.finishCancelled(s, platforms, completed, logger)
			return
		case r := <-results:
			received++
			if ctx.Err() != nil {
				o.finishCancelled(s, platforms, completed, logger)
				return
			}
			completed[r.platformID] = true
			c := completedFrom(r)
			if c.Success {
				aggregated[r.platformID] = r.activities
			}
			logger.Info("platform completed",
				"platform", c.PlatformID,
				"success", c.Success,
				"items", c.ItemCount,
				"duration", c.Duration,
				"error", c.Error,
			)
			o.metrics.recordCompleted(c)
			s.events <- c
		}
	}

	if ctx.Err() != nil {
		o.finishCancelled(s, platforms, completed, logger)
		return
	}

	done := AllCompleted{
		Total:      launched,
		Successful: len(aggregated),
		Results:    aggregated,
	}
	logger.Info("fetch completed", "total", done.Total, "successful", done.Successful)
	o.metrics.recordSession("completed")
	s.events <- done
}

func (o *Orchestrator) finishCancelled(s *Session, platforms []platform.Platform, completed map[string]bool, logger *slog.Logger) {
	var ids []string
	for _, p := range platforms {
		if !completed[p.ID()] {
			ids = append(ids, p.ID())
		}
	}
	logger.Info("fetch cancelled", "pending", ids)
	o.metrics.recordSession("cancelled")
	s.events <- Cancelled{Pending: ids}
}

// retrieve runs one adapter call. It always delivers exactly one outcome,
// converting a panic into an error.
func (o *Orchestrator) retrieve(ctx context.Context, p platform.Platform, subject string, days int, out chan<- outcome, logger *slog.Logger) {
	start := time.Now()
	r := outcome{platformID: p.ID()}

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("platform panicked", "platform", r.platformID, "panic", rec, "stack", string(debug.Stack()))
			r.activities = domain.DetailedActivities{}
			r.err = fmt.Errorf("panic: %v", rec)
		}
		r.duration = time.Since(start)
		out <- r
	}()

	r.activities, r.err = p.DetailedActivities(ctx, subject, days)
}

func completedFrom(r outcome) Completed {
	c := Completed{
		PlatformID: r.platformID,
		Duration:   r.duration,
	}
	if r.err != nil {
		c.Error = r.err.Error()
		return c
	}
	c.Success = true
	c.Activities = r.activities
	c.ItemCount = r.activities.TotalItems()
	return c
}
