package fetch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/robby/reviewr/internal/domain"
	"github.com/robby/reviewr/internal/platform"
	"github.com/robby/reviewr/internal/platform/platformtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTimeout = 2 * time.Second

// drain reads the stream until it is closed.
func drain(t *testing.T, s *Session) []Event {
	t.Helper()
	var events []Event
	timeout := time.After(testTimeout)
	for {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatalf("stream not closed after %s, got %d events", testTimeout, len(events))
			return events
		}
	}
}

// next reads exactly one event.
func next(t *testing.T, s *Session) Event {
	t.Helper()
	select {
	case ev, ok := <-s.Events():
		require.True(t, ok, "stream closed unexpectedly")
		return ev
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func registryOf(platforms ...platform.Platform) *platform.Registry {
	r := platform.NewRegistry()
	r.MustRegister(platforms...)
	return r
}

func TestStart_NoConfiguredPlatforms(t *testing.T) {
	off := platformtest.New("gerrit", domain.DetailedActivities{})
	off.Unconfigured = true

	for _, reg := range []*platform.Registry{platform.NewRegistry(), registryOf(off)} {
		s, err := New().Start(context.Background(), reg, "dev@example.com", 30)
		assert.ErrorIs(t, err, ErrNoConfiguredPlatforms)
		assert.Nil(t, s)
	}
	assert.Equal(t, 0, off.Calls())
}

func TestStart_EmitsStartedCompletedAndAllCompleted(t *testing.T) {
	a := platformtest.New("gerrit", platformtest.WithItems("gerrit", map[domain.Category]int{domain.CategoryChangesCreated: 2}))
	b := platformtest.New("jira", platformtest.WithItems("jira", map[domain.Category]int{domain.CategoryIssuesCreated: 1}))
	c := platformtest.New("gitlab", domain.NewDetailedActivities())
	skipped := platformtest.New("github", domain.DetailedActivities{})
	skipped.Unconfigured = true

	s, err := New().Start(context.Background(), registryOf(a, b, skipped, c), "dev@example.com", 7)
	require.NoError(t, err)
	require.NotEmpty(t, s.ID)
	require.Len(t, s.Platforms, 3)

	events := drain(t, s)
	require.Len(t, events, 7)

	started := map[string]int{}
	completed := map[string]int{}
	for i, ev := range events {
		switch e := ev.(type) {
		case Started:
			started[e.PlatformID] = i
		case Completed:
			completed[e.PlatformID] = i
			assert.True(t, e.Success)
		}
	}
	assert.Len(t, started, 3)
	assert.Len(t, completed, 3)
	for id, at := range completed {
		assert.Less(t, started[id], at, "Started must precede Completed for %s", id)
	}

	done, ok := events[len(events)-1].(AllCompleted)
	require.True(t, ok, "last event must be AllCompleted")
	assert.Equal(t, 3, done.Total)
	assert.Equal(t, 3, done.Successful)
	assert.Equal(t, 2, done.Results["gerrit"].TotalItems())
	assert.Equal(t, 0, skipped.Calls())

	select {
	case <-s.Done():
	case <-time.After(testTimeout):
		t.Fatal("session not done")
	}
}

func TestStart_StartedEventsFollowRegistrationOrder(t *testing.T) {
	a := platformtest.New("gerrit", domain.NewDetailedActivities())
	b := platformtest.New("jira", domain.NewDetailedActivities())
	c := platformtest.New("gitlab", domain.NewDetailedActivities())

	s, err := New().Start(context.Background(), registryOf(a, b, c), "dev", 1)
	require.NoError(t, err)

	var order []string
	for _, ev := range drain(t, s) {
		if st, ok := ev.(Started); ok {
			order = append(order, st.PlatformID)
		}
	}
	assert.Equal(t, []string{"gerrit", "jira", "gitlab"}, order)
}

func TestStart_PartialFailureIsolation(t *testing.T) {
	failing := platformtest.New("jira", domain.DetailedActivities{})
	failing.Err = errors.New("connection refused")
	failing.Gate = make(chan struct{})
	healthy := platformtest.New("gerrit", platformtest.WithItems("gerrit", map[domain.Category]int{domain.CategoryReviewsGiven: 3}))

	s, err := New().Start(context.Background(), registryOf(failing, healthy), "dev", 30)
	require.NoError(t, err)

	assert.Equal(t, Started{PlatformID: "jira"}, next(t, s))
	assert.Equal(t, Started{PlatformID: "gerrit"}, next(t, s))

	// gerrit must finish while jira is still blocked
	c, ok := next(t, s).(Completed)
	require.True(t, ok)
	assert.Equal(t, "gerrit", c.PlatformID)
	assert.True(t, c.Success)
	assert.Equal(t, 3, c.ItemCount)

	close(failing.Gate)

	c, ok = next(t, s).(Completed)
	require.True(t, ok)
	assert.Equal(t, "jira", c.PlatformID)
	assert.False(t, c.Success)
	assert.Equal(t, "connection refused", c.Error)
	assert.Equal(t, domain.Failure("connection refused"), c.Status())

	done, ok := next(t, s).(AllCompleted)
	require.True(t, ok)
	assert.Equal(t, 2, done.Total)
	assert.Equal(t, 1, done.Successful)
	assert.Contains(t, done.Results, "gerrit")
	assert.NotContains(t, done.Results, "jira")
}

func TestStart_GerritAndFailingJiraScenario(t *testing.T) {
	gerrit := platformtest.New("gerrit", platformtest.WithItems("gerrit", map[domain.Category]int{
		domain.CategoryChangesCreated: 6,
		domain.CategoryChangesMerged:  4,
	}))
	jira := platformtest.New("jira", domain.DetailedActivities{})
	jira.Err = errors.New("network error")
	jira.Gate = make(chan struct{})

	s, err := New().Start(context.Background(), registryOf(gerrit, jira), "dev@example.com", 30)
	require.NoError(t, err)

	assert.Equal(t, Started{PlatformID: "gerrit"}, next(t, s))
	assert.Equal(t, Started{PlatformID: "jira"}, next(t, s))

	c := next(t, s).(Completed)
	assert.Equal(t, "gerrit", c.PlatformID)
	assert.True(t, c.Success)
	assert.Equal(t, 10, c.ItemCount)
	assert.Len(t, c.Activities.Categories(), 2)

	close(jira.Gate)
	c = next(t, s).(Completed)
	assert.Equal(t, "jira", c.PlatformID)
	assert.False(t, c.Success)
	assert.Equal(t, "network error", c.Error)

	done := next(t, s).(AllCompleted)
	assert.Equal(t, 2, done.Total)
	assert.Equal(t, 1, done.Successful)

	assert.Empty(t, drain(t, s))
}

func TestStart_PanicBecomesFailedCompletion(t *testing.T) {
	broken := platformtest.New("gitlab", domain.DetailedActivities{})
	broken.PanicValue = "boom"
	healthy := platformtest.New("gerrit", platformtest.WithItems("gerrit", map[domain.Category]int{domain.CategoryChangesMerged: 1}))

	s, err := New().Start(context.Background(), registryOf(broken, healthy), "dev", 1)
	require.NoError(t, err)

	done, ok := s.Collect(func(ev Event) {
		if c, ok := ev.(Completed); ok && c.PlatformID == "gitlab" {
			assert.False(t, c.Success)
			assert.Equal(t, "panic: boom", c.Error)
		}
	})
	require.True(t, ok)
	assert.Equal(t, 1, done.Successful)
	assert.Contains(t, done.Results, "gerrit")
}

func TestSession_CancelBeforeAnyCompletion(t *testing.T) {
	a := platformtest.New("gerrit", domain.DetailedActivities{})
	a.Gate = make(chan struct{})
	b := platformtest.New("jira", domain.DetailedActivities{})
	b.Gate = make(chan struct{})
	b.IgnoreContext = true // abandoned, never returns during the test
	defer close(b.Gate)

	s, err := New().Start(context.Background(), registryOf(a, b), "dev", 30)
	require.NoError(t, err)

	_, ok := next(t, s).(Started)
	require.True(t, ok)

	s.Cancel()

	var cancelled, all, completed int
	var last Event
	for _, ev := range drain(t, s) {
		switch ev.(type) {
		case Cancelled:
			cancelled++
		case AllCompleted:
			all++
		case Completed:
			completed++
		}
		last = ev
	}
	assert.Equal(t, 1, cancelled)
	assert.Equal(t, 0, all)
	assert.Equal(t, 0, completed)
	c, ok := last.(Cancelled)
	require.True(t, ok, "Cancelled must be last")
	assert.ElementsMatch(t, []string{"gerrit", "jira"}, c.Pending)
}

func TestSession_CancelKeepsAlreadyCompletedPlatforms(t *testing.T) {
	fast := platformtest.New("gerrit", platformtest.WithItems("gerrit", map[domain.Category]int{domain.CategoryChangesCreated: 2}))
	slow := platformtest.New("jira", domain.DetailedActivities{})
	slow.Gate = make(chan struct{})

	s, err := New().Start(context.Background(), registryOf(fast, slow), "dev", 30)
	require.NoError(t, err)

	next(t, s) // Started gerrit
	next(t, s) // Started jira
	c := next(t, s).(Completed)
	require.Equal(t, "gerrit", c.PlatformID)

	s.Cancel()
	s.Cancel()

	events := drain(t, s)
	require.Len(t, events, 1)
	cancelled, ok := events[0].(Cancelled)
	require.True(t, ok)
	assert.Equal(t, []string{"jira"}, cancelled.Pending)
}

func TestSession_ParentContextCancellation(t *testing.T) {
	p := platformtest.New("gerrit", domain.DetailedActivities{})
	p.Gate = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	s, err := New().Start(ctx, registryOf(p), "dev", 30)
	require.NoError(t, err)

	cancel()

	_, finished := s.Collect(nil)
	assert.False(t, finished)
}

func TestSession_CancelAfterCompletionIsNoop(t *testing.T) {
	p := platformtest.New("gerrit", domain.NewDetailedActivities())
	s, err := New().Start(context.Background(), registryOf(p), "dev", 30)
	require.NoError(t, err)

	_, finished := s.Collect(nil)
	require.True(t, finished)

	assert.NotPanics(t, s.Cancel)
}

func TestSession_SlowConsumerNeverBlocksCoordinator(t *testing.T) {
	var platforms []platform.Platform
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		platforms = append(platforms, platformtest.New(id, domain.NewDetailedActivities()))
	}

	s, err := New().Start(context.Background(), registryOf(platforms...), "dev", 30)
	require.NoError(t, err)

	// nothing reads until the coordinator has finished
	select {
	case <-s.Done():
	case <-time.After(testTimeout):
		t.Fatal("coordinator blocked on an unread stream")
	}

	assert.Len(t, drain(t, s), 2*len(platforms)+1)
}

func TestCapacityFor(t *testing.T) {
	assert.Equal(t, 3, capacityFor(1))
	assert.Equal(t, 21, capacityFor(10))
}

func TestOrchestrator_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	ok := platformtest.New("gerrit", platformtest.WithItems("gerrit", map[domain.Category]int{domain.CategoryChangesCreated: 4}))
	bad := platformtest.New("jira", domain.DetailedActivities{})
	bad.Err = errors.New("401")

	s, err := New(WithMetrics(metrics)).Start(context.Background(), registryOf(ok, bad), "dev", 30)
	require.NoError(t, err)
	_, finished := s.Collect(nil)
	require.True(t, finished)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.started.WithLabelValues("gerrit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.completed.WithLabelValues("gerrit", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.completed.WithLabelValues("jira", "failure")))
	assert.Equal(t, 4.0, testutil.ToFloat64(metrics.items.WithLabelValues("gerrit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.sessions.WithLabelValues("completed")))
}
