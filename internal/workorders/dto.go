package workorders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/motorshop-backend/pkg/db/models"
	"github.com/angelmondragon/motorshop-backend/pkg/enums"
	"github.com/angelmondragon/motorshop-backend/pkg/pagination"
)

// CreateOrderInput opens a work order at intake. OrderNumber is generated
// when empty.
type CreateOrderInput struct {
	OrderNumber        string
	MotorcycleID       uuid.UUID
	ProblemDescription string
	Priority           enums.WorkOrderPriority
	AssignedTo         *string
	ActorID            string
}

// TransitionInput moves an order to NewStatus.
type TransitionInput struct {
	OrderID   uuid.UUID
	NewStatus string
	Comment   *string
	ActorID   string
}

// AddPartUsageInput consumes stock on an order. A nil UnitPrice uses the
// part's catalog price.
type AddPartUsageInput struct {
	OrderID   uuid.UUID
	PartID    uuid.UUID
	Quantity  int
	UnitPrice *decimal.Decimal
	ActorID   string
}

// UpdateUsageInput changes the quantity of an existing usage.
type UpdateUsageInput struct {
	OrderID  uuid.UUID
	UsageID  uuid.UUID
	Quantity int
	ActorID  string
}

// RemoveUsageInput returns a usage's stock and drops it from the order.
type RemoveUsageInput struct {
	OrderID uuid.UUID
	UsageID uuid.UUID
	ActorID string
}

// AddServiceLineInput attaches a catalog service. A nil AppliedPrice uses the
// catalog base price.
type AddServiceLineInput struct {
	OrderID      uuid.UUID
	ServiceID    uuid.UUID
	AppliedPrice *decimal.Decimal
	Notes        *string
	ActorID      string
}

// UpdateServicePriceInput re-prices a service line.
type UpdateServicePriceInput struct {
	OrderID uuid.UUID
	LineID  uuid.UUID
	Price   decimal.Decimal
	ActorID string
}

// RemoveServiceLineInput drops a service line from the order.
type RemoveServiceLineInput struct {
	OrderID uuid.UUID
	LineID  uuid.UUID
	ActorID string
}

// RegisterPaymentInput records money received for an order.
type RegisterPaymentInput struct {
	OrderID   uuid.UUID
	Amount    decimal.Decimal
	Method    enums.PaymentMethod
	Reference *string
	Notes     *string
	PaidAt    *time.Time
	ActorID   string
}

// ListOrdersInput pages through orders newest first.
type ListOrdersInput struct {
	Status        string
	PaymentStatus string
	AssignedTo    string
	Params        pagination.Params
}

// TransitionResult is the order after a status change plus its history entry.
type TransitionResult struct {
	Order *models.WorkOrder
	Entry *models.WorkOrderHistoryEntry
}

// UsageResult is a usage plus the order totals it produced.
type UsageResult struct {
	Usage *models.PartUsage
	Order *models.WorkOrder
}

// ServiceLineResult is a service line plus the order totals it produced.
type ServiceLineResult struct {
	Line  *models.ServiceLineItem
	Order *models.WorkOrder
}

// PaymentResult is a payment plus the order with its derived payment status.
type PaymentResult struct {
	Payment   *models.Payment
	TotalPaid decimal.Decimal
	Order     *models.WorkOrder
}

// OrderDetail assembles an order with everything attached to it.
type OrderDetail struct {
	Order        *models.WorkOrder
	ServiceLines []models.ServiceLineItem
	PartUsages   []models.PartUsage
	Payments     []models.Payment
	History      []models.WorkOrderHistoryEntry
	TotalPaid    decimal.Decimal
	Balance      decimal.Decimal
}

// OrderList is a cursor page of orders.
type OrderList struct {
	Orders     []models.WorkOrder
	NextCursor string
}
