package fetch

import "github.com/prometheus/client_golang/prometheus"

// Metrics records fetch activity. A nil *Metrics is valid and records nothing.
type Metrics struct {
	started   *prometheus.CounterVec
	completed *prometheus.CounterVec
	items     *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	sessions  *prometheus.CounterVec
}

// NewMetrics creates the fetch collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		started: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reviewr",
			Subsystem: "fetch",
			Name:      "platform_started_total",
			Help:      "Number of platform retrievals launched.",
		}, []string{"platform"}),
		completed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reviewr",
			Subsystem: "fetch",
			Name:      "platform_completed_total",
			Help:      "Number of platform retrievals finished, by outcome.",
		}, []string{"platform", "outcome"}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reviewr",
			Subsystem: "fetch",
			Name:      "items_total",
			Help:      "Number of activity items retrieved per platform.",
		}, []string{"platform"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "reviewr",
			Subsystem: "fetch",
			Name:      "platform_duration_seconds",
			Help:      "Time spent in a platform retrieval.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"platform"}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reviewr",
			Subsystem: "fetch",
			Name:      "sessions_total",
			Help:      "Number of fetch sessions, by terminal event.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.started, m.completed, m.items, m.duration, m.sessions)
	return m
}

func (m *Metrics) recordStarted(platformID string) {
	if m == nil {
		return
	}
	m.started.WithLabelValues(platformID).Inc()
}

func (m *Metrics) recordCompleted(c Completed) {
	if m == nil {
		return
	}
	outcome := "success"
	if !c.Success {
		outcome = "failure"
	}
	m.completed.WithLabelValues(c.PlatformID, outcome).Inc()
	m.items.WithLabelValues(c.PlatformID).Add(float64(c.ItemCount))
	m.duration.WithLabelValues(c.PlatformID).Observe(c.Duration.Seconds())
}

func (m *Metrics) recordSession(outcome string) {
	if m == nil {
		return
	}
	m.sessions.WithLabelValues(outcome).Inc()
}

