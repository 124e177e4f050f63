package metrics

import "github.com/prometheus/client_golang/prometheus"

// InventoryMetrics tracks stock ledger activity.
type InventoryMetrics struct {
	movements     *prometheus.CounterVec
	insufficient  prometheus.Counter
	discrepancies prometheus.Counter
	lowStock      prometheus.Counter
}

// NewInventoryMetrics registers the inventory metrics on the provided registerer.
func NewInventoryMetrics(reg prometheus.Registerer) *InventoryMetrics {
	if reg == nil {
		return &InventoryMetrics{}
	}
	movements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_movements_total",
		Help: "Stock movements applied to the parts ledger.",
	}, []string{"kind"})
	insufficient := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "inventory_insufficient_stock_total",
		Help: "Outbound movements rejected because stock would go negative.",
	})
	discrepancies := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "inventory_ledger_discrepancies_total",
		Help: "Parts whose stock does not match their movement history.",
	})
	lowStock := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "inventory_low_stock_alerts_total",
		Help: "Low stock alerts emitted.",
	})
	reg.MustRegister(movements, insufficient, discrepancies, lowStock)
	return &InventoryMetrics{
		movements:     movements,
		insufficient:  insufficient,
		discrepancies: discrepancies,
		lowStock:      lowStock,
	}
}

// IncMovement counts an applied movement of the given kind.
func (m *InventoryMetrics) IncMovement(kind string) {
	if m == nil || m.movements == nil {
		return
	}
	m.movements.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncInsufficientStock counts a rejected outbound movement.
func (m *InventoryMetrics) IncInsufficientStock() {
	if m == nil || m.insufficient == nil {
		return
	}
	m.insufficient.Inc()
}

// AddDiscrepancies counts parts found out of balance by reconciliation.
func (m *InventoryMetrics) AddDiscrepancies(n int) {
	if m == nil || m.discrepancies == nil || n <= 0 {
		return
	}
	m.discrepancies.Add(float64(n))
}

// IncLowStockAlert counts an emitted low stock alert.
func (m *InventoryMetrics) IncLowStockAlert() {
	if m == nil || m.lowStock == nil {
		return
	}
	m.lowStock.Inc()
}
