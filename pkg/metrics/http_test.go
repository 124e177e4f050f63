package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestHTTPMetricsLabelsByRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	m.ObserveRequest("POST", "/work-orders/{orderId}/payments", 201, 20*time.Millisecond)
	m.ObserveRequest("POST", "/work-orders/{orderId}/payments", 201, 30*time.Millisecond)
	m.ObserveRequest("GET", "", 404, time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)
	requests := findMetricFamily(families, "http_requests_total")
	require.NotNil(t, requests)

	counts := map[string]float64{}
	for _, metric := range requests.GetMetric() {
		counts[labelValue(metric.GetLabel(), "route")+" "+labelValue(metric.GetLabel(), "status")] = metric.GetCounter().GetValue()
	}
	require.Equal(t, 2.0, counts["/work-orders/{orderId}/payments 201"])
	require.Equal(t, 1.0, counts["unmatched 404"])
}

func TestNilHTTPMetricsIsNoop(t *testing.T) {
	var m *HTTPMetrics
	require.NotPanics(t, func() { m.ObserveRequest("GET", "/", 200, time.Second) })
	require.Nil(t, NewHTTPMetrics(nil))
}
