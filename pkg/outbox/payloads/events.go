package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/motorshop-backend/pkg/enums"
)

// WorkOrderCreatedEvent signals a new work order at intake.
type WorkOrderCreatedEvent struct {
	WorkOrderID        uuid.UUID               `json:"work_order_id"`
	OrderNumber        string                  `json:"order_number"`
	MotorcycleID       uuid.UUID               `json:"motorcycle_id"`
	Status             string                  `json:"status"`
	Priority           enums.WorkOrderPriority `json:"priority"`
	ProblemDescription string                  `json:"problem_description"`
	AssignedTo         *string                 `json:"assigned_to,omitempty"`
}

// WorkOrderStatusChangedEvent is emitted for every recorded status transition.
type WorkOrderStatusChangedEvent struct {
	WorkOrderID    uuid.UUID  `json:"work_order_id"`
	OrderNumber    string     `json:"order_number"`
	PreviousStatus string     `json:"previous_status"`
	NewStatus      string     `json:"new_status"`
	Comment        *string    `json:"comment,omitempty"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty"`
}

// WorkOrderTotalsChangedEvent carries recomputed money fields. Amounts are
// fixed two-decimal strings.
type WorkOrderTotalsChangedEvent struct {
	WorkOrderID   uuid.UUID           `json:"work_order_id"`
	ServiceTotal  string              `json:"service_total"`
	PartsTotal    string              `json:"parts_total"`
	OrderTotal    string              `json:"order_total"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
}

// PaymentRegisteredEvent is emitted when money is received for an order.
type PaymentRegisteredEvent struct {
	WorkOrderID   uuid.UUID           `json:"work_order_id"`
	PaymentID     uuid.UUID           `json:"payment_id"`
	Amount        string              `json:"amount"`
	Method        enums.PaymentMethod `json:"method"`
	TotalPaid     string              `json:"total_paid"`
	OrderTotal    string              `json:"order_total"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	PaidAt        time.Time           `json:"paid_at"`
}

// PartStockAdjustedEvent is emitted for manual stock receipts and counts.
type PartStockAdjustedEvent struct {
	PartID      uuid.UUID          `json:"part_id"`
	MovementID  uuid.UUID          `json:"movement_id"`
	Kind        enums.MovementKind `json:"kind"`
	Quantity    int                `json:"quantity"`
	StockBefore int                `json:"stock_before"`
	StockAfter  int                `json:"stock_after"`
}

// PartLowStockEvent tells purchasing a part reached its reorder threshold.
type PartLowStockEvent struct {
	PartID           uuid.UUID `json:"part_id"`
	Code             string    `json:"code"`
	Name             string    `json:"name"`
	StockOnHand      int       `json:"stock_on_hand"`
	ReorderThreshold int       `json:"reorder_threshold"`
}
