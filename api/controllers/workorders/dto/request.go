package workorderdto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateOrderRequest opens a work order at intake.
type CreateOrderRequest struct {
	OrderNumber        string    `json:"order_number" validate:"omitempty,max=32"`
	MotorcycleID       uuid.UUID `json:"motorcycle_id" validate:"required"`
	ProblemDescription string    `json:"problem_description" validate:"required,max=2000"`
	Priority           string    `json:"priority" validate:"omitempty,max=16"`
	AssignedTo         *string   `json:"assigned_to,omitempty" validate:"omitempty,max=128"`
}

type TransitionRequest struct {
	Status  string  `json:"status" validate:"required,max=64"`
	Comment *string `json:"comment,omitempty" validate:"omitempty,max=1000"`
}

// AddPartUsageRequest omits unit_price to charge the catalog price.
type AddPartUsageRequest struct {
	PartID    uuid.UUID        `json:"part_id" validate:"required"`
	Quantity  int              `json:"quantity" validate:"required,min=1"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty" validate:"omitempty,money"`
}

type UpdateUsageRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

// AddServiceLineRequest omits applied_price to charge the catalog base price.
type AddServiceLineRequest struct {
	ServiceID    uuid.UUID        `json:"service_id" validate:"required"`
	AppliedPrice *decimal.Decimal `json:"applied_price,omitempty" validate:"omitempty,money"`
	Notes        *string          `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

type UpdateServicePriceRequest struct {
	Price decimal.Decimal `json:"price" validate:"money"`
}

type RegisterPaymentRequest struct {
	Amount    decimal.Decimal `json:"amount" validate:"positive_money"`
	Method    string          `json:"method" validate:"required,max=16"`
	Reference *string         `json:"reference,omitempty" validate:"omitempty,max=128"`
	Notes     *string         `json:"notes,omitempty" validate:"omitempty,max=1000"`
	PaidAt    *time.Time      `json:"paid_at,omitempty"`
}

type AssignRequest struct {
	AssignedTo string `json:"assigned_to" validate:"required,max=128"`
}

type DiagnosisRequest struct {
	Diagnosis string `json:"diagnosis" validate:"required,max=4000"`
}
