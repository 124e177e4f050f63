package workorderdto

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/motorshop-backend/internal/workorders"
	"github.com/angelmondragon/motorshop-backend/pkg/db/models"
)

// WorkOrder is the API view of an order. Money is rendered with two decimals.
type WorkOrder struct {
	ID                 uuid.UUID  `json:"id"`
	OrderNumber        string     `json:"order_number"`
	MotorcycleID       uuid.UUID  `json:"motorcycle_id"`
	CreatedBy          string     `json:"created_by"`
	AssignedTo         *string    `json:"assigned_to,omitempty"`
	Status             string     `json:"status"`
	Priority           string     `json:"priority"`
	ProblemDescription string     `json:"problem_description"`
	Diagnosis          *string    `json:"diagnosis,omitempty"`
	ServiceTotal       string     `json:"service_total"`
	PartsTotal         string     `json:"parts_total"`
	OrderTotal         string     `json:"order_total"`
	PaymentStatus      string     `json:"payment_status"`
	Version            int64      `json:"version"`
	DeliveredAt        *time.Time `json:"delivered_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

type PartUsage struct {
	ID             uuid.UUID `json:"id"`
	WorkOrderID    uuid.UUID `json:"work_order_id"`
	PartID         uuid.UUID `json:"part_id"`
	Quantity       int       `json:"quantity"`
	UnitPriceAtUse string    `json:"unit_price_at_use"`
	Subtotal       string    `json:"subtotal"`
	MovementID     uuid.UUID `json:"movement_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type ServiceLine struct {
	ID           uuid.UUID `json:"id"`
	WorkOrderID  uuid.UUID `json:"work_order_id"`
	ServiceID    uuid.UUID `json:"service_id"`
	AppliedPrice string    `json:"applied_price"`
	Notes        *string   `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Payment struct {
	ID          uuid.UUID `json:"id"`
	WorkOrderID uuid.UUID `json:"work_order_id"`
	Amount      string    `json:"amount"`
	Method      string    `json:"method"`
	Reference   *string   `json:"reference,omitempty"`
	Notes       *string   `json:"notes,omitempty"`
	ActorID     string    `json:"actor_id"`
	PaidAt      time.Time `json:"paid_at"`
}

type HistoryEntry struct {
	ID             uuid.UUID `json:"id"`
	PreviousStatus *string   `json:"previous_status"`
	NewStatus      string    `json:"new_status"`
	Comment        *string   `json:"comment,omitempty"`
	ActorID        string    `json:"actor_id"`
	CreatedAt      time.Time `json:"created_at"`
}

type TransitionResponse struct {
	Order WorkOrder    `json:"order"`
	Entry HistoryEntry `json:"history_entry"`
}

type UsageResponse struct {
	Usage PartUsage `json:"usage"`
	Order WorkOrder `json:"order"`
}

type ServiceLineResponse struct {
	Line  ServiceLine `json:"service_line"`
	Order WorkOrder   `json:"order"`
}

type PaymentResponse struct {
	Payment   Payment   `json:"payment"`
	TotalPaid string    `json:"total_paid"`
	Order     WorkOrder `json:"order"`
}

type OrderDetail struct {
	Order        WorkOrder      `json:"order"`
	ServiceLines []ServiceLine  `json:"service_lines"`
	PartUsages   []PartUsage    `json:"part_usages"`
	Payments     []Payment      `json:"payments"`
	History      []HistoryEntry `json:"history"`
	TotalPaid    string         `json:"total_paid"`
	Balance      string         `json:"balance"`
}

type OrderList struct {
	Orders     []WorkOrder `json:"orders"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

func FromWorkOrder(o *models.WorkOrder) WorkOrder {
	if o == nil {
		return WorkOrder{}
	}
	return WorkOrder{
		ID:                 o.ID,
		OrderNumber:        o.OrderNumber,
		MotorcycleID:       o.MotorcycleID,
		CreatedBy:          o.CreatedBy,
		AssignedTo:         o.AssignedTo,
		Status:             o.Status,
		Priority:           string(o.Priority),
		ProblemDescription: o.ProblemDescription,
		Diagnosis:          o.Diagnosis,
		ServiceTotal:       o.ServiceTotal.StringFixed(2),
		PartsTotal:         o.PartsTotal.StringFixed(2),
		OrderTotal:         o.OrderTotal.StringFixed(2),
		PaymentStatus:      string(o.PaymentStatus),
		Version:            o.Version,
		DeliveredAt:        o.DeliveredAt,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
}

func FromPartUsage(u *models.PartUsage) PartUsage {
	if u == nil {
		return PartUsage{}
	}
	return PartUsage{
		ID:             u.ID,
		WorkOrderID:    u.WorkOrderID,
		PartID:         u.PartID,
		Quantity:       u.Quantity,
		UnitPriceAtUse: u.UnitPriceAtUse.StringFixed(2),
		Subtotal:       u.Subtotal.StringFixed(2),
		MovementID:     u.MovementID,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

func FromServiceLine(l *models.ServiceLineItem) ServiceLine {
	if l == nil {
		return ServiceLine{}
	}
	return ServiceLine{
		ID:           l.ID,
		WorkOrderID:  l.WorkOrderID,
		ServiceID:    l.ServiceID,
		AppliedPrice: l.AppliedPrice.StringFixed(2),
		Notes:        l.Notes,
		CreatedAt:    l.CreatedAt,
		UpdatedAt:    l.UpdatedAt,
	}
}

func FromPayment(p *models.Payment) Payment {
	if p == nil {
		return Payment{}
	}
	return Payment{
		ID:          p.ID,
		WorkOrderID: p.WorkOrderID,
		Amount:      p.Amount.StringFixed(2),
		Method:      string(p.Method),
		Reference:   p.Reference,
		Notes:       p.Notes,
		ActorID:     p.ActorID,
		PaidAt:      p.PaidAt,
	}
}

func FromHistoryEntry(e *models.WorkOrderHistoryEntry) HistoryEntry {
	if e == nil {
		return HistoryEntry{}
	}
	return HistoryEntry{
		ID:             e.ID,
		PreviousStatus: e.PreviousStatus,
		NewStatus:      e.NewStatus,
		Comment:        e.Comment,
		ActorID:        e.ActorID,
		CreatedAt:      e.CreatedAt,
	}
}

func FromHistory(entries []models.WorkOrderHistoryEntry) []HistoryEntry {
	out := make([]HistoryEntry, 0, len(entries))
	for i := range entries {
		out = append(out, FromHistoryEntry(&entries[i]))
	}
	return out
}

func FromTransition(res *workorders.TransitionResult) TransitionResponse {
	return TransitionResponse{Order: FromWorkOrder(res.Order), Entry: FromHistoryEntry(res.Entry)}
}

func FromUsageResult(res *workorders.UsageResult) UsageResponse {
	return UsageResponse{Usage: FromPartUsage(res.Usage), Order: FromWorkOrder(res.Order)}
}

func FromServiceLineResult(res *workorders.ServiceLineResult) ServiceLineResponse {
	return ServiceLineResponse{Line: FromServiceLine(res.Line), Order: FromWorkOrder(res.Order)}
}

func FromPaymentResult(res *workorders.PaymentResult) PaymentResponse {
	return PaymentResponse{
		Payment:   FromPayment(res.Payment),
		TotalPaid: res.TotalPaid.StringFixed(2),
		Order:     FromWorkOrder(res.Order),
	}
}

// FromOrderDetail flattens an order with its lines, payments and history.
func FromOrderDetail(d *workorders.OrderDetail) OrderDetail {
	out := OrderDetail{
		Order:        FromWorkOrder(d.Order),
		ServiceLines: make([]ServiceLine, 0, len(d.ServiceLines)),
		PartUsages:   make([]PartUsage, 0, len(d.PartUsages)),
		Payments:     make([]Payment, 0, len(d.Payments)),
		History:      FromHistory(d.History),
		TotalPaid:    d.TotalPaid.StringFixed(2),
		Balance:      d.Balance.StringFixed(2),
	}
	for i := range d.ServiceLines {
		out.ServiceLines = append(out.ServiceLines, FromServiceLine(&d.ServiceLines[i]))
	}
	for i := range d.PartUsages {
		out.PartUsages = append(out.PartUsages, FromPartUsage(&d.PartUsages[i]))
	}
	for i := range d.Payments {
		out.Payments = append(out.Payments, FromPayment(&d.Payments[i]))
	}
	return out
}

func FromOrderList(list *workorders.OrderList) OrderList {
	out := OrderList{Orders: make([]WorkOrder, 0, len(list.Orders)), NextCursor: list.NextCursor}
	for i := range list.Orders {
		out.Orders = append(out.Orders, FromWorkOrder(&list.Orders[i]))
	}
	return out
}
