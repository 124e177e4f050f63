package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WorkOrderMetrics tracks work order operations.
type WorkOrderMetrics struct {
	conflicts *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// NewWorkOrderMetrics registers the work order metrics on the provided registerer.
func NewWorkOrderMetrics(reg prometheus.Registerer) *WorkOrderMetrics {
	if reg == nil {
		return &WorkOrderMetrics{}
	}
	conflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "work_order_conflicts_total",
		Help: "Work order operations that lost a concurrent modification race.",
	}, []string{"operation"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "work_order_operation_duration_seconds",
		Help:    "Duration of work order operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	reg.MustRegister(conflicts, duration)
	return &WorkOrderMetrics{
		conflicts: conflicts,
		duration:  duration,
	}
}

// IncConflict counts a concurrent modification for the named operation.
func (m *WorkOrderMetrics) IncConflict(operation string) {
	if m == nil || m.conflicts == nil {
		return
	}
	m.conflicts.WithLabelValues(normalizeLabel(operation)).Inc()
}

// ObserveDuration records how long the named operation took.
func (m *WorkOrderMetrics) ObserveDuration(operation string, d time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(operation)).Observe(d.Seconds())
}
