package metrics

import "github.com/prometheus/client_golang/prometheus"

// OutboxMetrics tracks the publisher's per-event outcomes.
type OutboxMetrics struct {
	outcomes *prometheus.CounterVec
	lag      prometheus.Histogram
}

// NewOutboxMetrics registers the outbox publisher metrics on the provided registerer.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_events_total",
		Help: "Outbox events handled by the publisher, by event type and outcome.",
	}, []string{"event_type", "outcome"})
	lag := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "outbox_publish_lag_seconds",
		Help:    "Time between event creation and a successful publish.",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
	})
	reg.MustRegister(outcomes, lag)
	return &OutboxMetrics{outcomes: outcomes, lag: lag}
}

// Published counts a delivered event and records its lag in seconds.
func (m *OutboxMetrics) Published(eventType string, lagSeconds float64) {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.WithLabelValues(normalizeLabel(eventType), "published").Inc()
	if lagSeconds >= 0 {
		m.lag.Observe(lagSeconds)
	}
}

// Failed counts a publish attempt that will be retried.
func (m *OutboxMetrics) Failed(eventType string) {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.WithLabelValues(normalizeLabel(eventType), "failed").Inc()
}

// DeadLettered counts an event moved to the DLQ.
func (m *OutboxMetrics) DeadLettered(eventType string) {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.WithLabelValues(normalizeLabel(eventType), "dead_lettered").Inc()
}
