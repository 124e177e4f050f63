package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestInventoryMetricsCountsMovements(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewInventoryMetrics(reg)
	m.IncMovement("OUT")
	m.IncMovement("OUT")
	m.IncMovement("IN")
	m.IncInsufficientStock()
	m.AddDiscrepancies(2)
	m.AddDiscrepancies(0)
	m.IncLowStockAlert()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "inventory_movements_total", "kind", "OUT"); err != nil {
		t.Fatalf("fetch movements: %v", err)
	} else if got != 2 {
		t.Fatalf("expected OUT=2, got %f", got)
	}
	for name, want := range map[string]float64{
		"inventory_insufficient_stock_total":   1,
		"inventory_ledger_discrepancies_total": 2,
		"inventory_low_stock_alerts_total":     1,
	} {
		mf := findMetricFamily(mfs, name)
		if mf == nil || len(mf.GetMetric()) != 1 {
			t.Fatalf("metric %q not found", name)
		}
		if got := mf.GetMetric()[0].GetCounter().GetValue(); got != want {
			t.Fatalf("%s expected %f, got %f", name, want, got)
		}
	}
}

func TestWorkOrderMetricsExportsConflictsAndDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWorkOrderMetrics(reg)
	m.IncConflict("add_part_usage")
	m.ObserveDuration("add_part_usage", 40*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "work_order_conflicts_total", "operation", "add_part_usage"); err != nil {
		t.Fatalf("fetch conflicts: %v", err)
	} else if got != 1 {
		t.Fatalf("expected conflicts=1, got %f", got)
	}
	if got, err := fetchHistogramSum(mfs, "work_order_operation_duration_seconds", "operation", "add_part_usage"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var inv *InventoryMetrics
	inv.IncMovement("IN")
	inv.IncInsufficientStock()
	var wo *WorkOrderMetrics
	wo.IncConflict("x")
	wo.ObserveDuration("x", time.Second)
	NewInventoryMetrics(nil).IncLowStockAlert()
}
