package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/motorshop-backend/pkg/db"
	"github.com/angelmondragon/motorshop-backend/pkg/db/models"
	"github.com/angelmondragon/motorshop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/motorshop-backend/pkg/errors"
)

// ErrInvalidAmount is returned for payment amounts that are not positive.
var ErrInvalidAmount = errors.New("invalid payment amount")

// Service records payments against work orders.
type Service interface {
	RegisterPayment(ctx context.Context, tx *gorm.DB, input RegisterPaymentInput) (*models.Payment, error)
	TotalPaid(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (decimal.Decimal, error)
	List(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) ([]models.Payment, error)
}

// RegisterPaymentInput captures a payment received for an order. PaidAt
// defaults to now.
type RegisterPaymentInput struct {
	OrderID   uuid.UUID
	Amount    decimal.Decimal
	Method    enums.PaymentMethod
	Reference *string
	Notes     *string
	PaidAt    *time.Time
	ActorID   string
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService wires a payment tracker with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) RegisterPayment(ctx context.Context, tx *gorm.DB, input RegisterPaymentInput) (*models.Payment, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	// Amounts are stored in cents, so a sub-cent amount is zero.
	amount := input.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, ErrInvalidAmount, "payment amount must be greater than zero").
			WithDetails(map[string]any{"amount": input.Amount.String()})
	}
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", input.Method))
	}
	if strings.TrimSpace(input.ActorID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id required")
	}

	paidAt := s.now().UTC()
	if input.PaidAt != nil && !input.PaidAt.IsZero() {
		paidAt = input.PaidAt.UTC()
	}

	payment := &models.Payment{
		WorkOrderID: input.OrderID,
		Amount:      amount,
		Method:      input.Method,
		Reference:   input.Reference,
		Notes:       input.Notes,
		ActorID:     input.ActorID,
		PaidAt:      paidAt,
	}
	if err := s.repo.WithTx(tx).Create(ctx, payment); err != nil {
		return nil, db.StorageError(err, "payment", "record payment")
	}
	return payment, nil
}

func (s *service) TotalPaid(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (decimal.Decimal, error) {
	payments, err := s.List(ctx, tx, orderID)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total, nil
}

func (s *service) List(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) ([]models.Payment, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	payments, err := s.repo.WithTx(tx).ListByOrderID(ctx, orderID)
	if err != nil {
		return nil, db.StorageError(err, "payment", "list payments")
	}
	return payments, nil
}

// DerivePaymentStatus maps money received against the order total. Nothing
// paid is PENDING, any shortfall is PARTIAL and full or over payment is PAID.
// An order with a zero total and no payments stays PENDING.
func DerivePaymentStatus(totalPaid, orderTotal decimal.Decimal) enums.PaymentStatus {
	switch {
	case !totalPaid.IsPositive():
		return enums.PaymentStatusPending
	case totalPaid.LessThan(orderTotal):
		return enums.PaymentStatusPartial
	default:
		return enums.PaymentStatusPaid
	}
}
