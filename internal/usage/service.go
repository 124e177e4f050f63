package usage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/motorshop-backend/internal/parts"
	"github.com/angelmondragon/motorshop-backend/pkg/db"
	"github.com/angelmondragon/motorshop-backend/pkg/db/models"
	"github.com/angelmondragon/motorshop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/motorshop-backend/pkg/errors"
)

var (
	// ErrUsageNotFound is returned when a usage id does not resolve.
	ErrUsageNotFound = errors.New("part usage not found")
	// ErrInvalidUnitPrice is returned for negative unit prices.
	ErrInvalidUnitPrice = errors.New("invalid unit price")
)

// Ledger is the slice of the parts ledger the registrar drives.
type Ledger interface {
	ApplyMovement(ctx context.Context, tx *gorm.DB, input parts.MovementInput) (*models.PartMovement, error)
	FindPart(ctx context.Context, tx *gorm.DB, partID uuid.UUID) (*models.Part, error)
}

// Service attaches consumed parts to work orders. Each change moves stock
// through the ledger in the caller's transaction.
type Service interface {
	AddUsage(ctx context.Context, tx *gorm.DB, input AddUsageInput) (*models.PartUsage, error)
	RemoveUsage(ctx context.Context, tx *gorm.DB, usageID uuid.UUID, actorID string) (*models.PartUsage, error)
	UpdateQuantity(ctx context.Context, tx *gorm.DB, usageID uuid.UUID, quantity int, actorID string) (*models.PartUsage, error)
	Find(ctx context.Context, tx *gorm.DB, usageID uuid.UUID) (*models.PartUsage, error)
	ListByOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) ([]models.PartUsage, error)
}

// AddUsageInput consumes Quantity of PartID on OrderID. A nil UnitPrice uses
// the part's catalog price.
type AddUsageInput struct {
	OrderID   uuid.UUID
	PartID    uuid.UUID
	Quantity  int
	UnitPrice *decimal.Decimal
	ActorID   string
}

type service struct {
	repo   Repository
	ledger Ledger
}

// NewService wires a usage registrar over the parts ledger.
func NewService(repo Repository, ledger Ledger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("usage repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("parts ledger required")
	}
	return &service{repo: repo, ledger: ledger}, nil
}

// Reference tags ledger movements caused by a work order.
func Reference(orderID uuid.UUID) string {
	return "work_order:" + orderID.String()
}

func (s *service) AddUsage(ctx context.Context, tx *gorm.DB, input AddUsageInput) (*models.PartUsage, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.PartID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "part id required")
	}
	if input.Quantity <= 0 {
		return nil, invalidQuantity(input.Quantity)
	}
	if input.UnitPrice != nil && input.UnitPrice.Round(2).IsNegative() {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, ErrInvalidUnitPrice, "unit price must not be negative").
			WithDetails(map[string]any{"unit_price": input.UnitPrice.StringFixed(2)})
	}
	if strings.TrimSpace(input.ActorID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id required")
	}

	var unitPrice decimal.Decimal
	if input.UnitPrice != nil {
		unitPrice = *input.UnitPrice
	} else {
		part, err := s.ledger.FindPart(ctx, tx, input.PartID)
		if err != nil {
			return nil, err
		}
		unitPrice = part.UnitPrice
	}
	unitPrice = unitPrice.Round(2)

	ref := Reference(input.OrderID)
	movement, err := s.ledger.ApplyMovement(ctx, tx, parts.MovementInput{
		PartID:    input.PartID,
		Kind:      enums.MovementKindOut,
		Quantity:  input.Quantity,
		Reference: &ref,
		ActorID:   input.ActorID,
	})
	if err != nil {
		return nil, err
	}

	usage := &models.PartUsage{
		WorkOrderID:    input.OrderID,
		PartID:         input.PartID,
		Quantity:       input.Quantity,
		UnitPriceAtUse: unitPrice,
		Subtotal:       Subtotal(input.Quantity, unitPrice),
		MovementID:     movement.ID,
	}
	if err := s.repo.WithTx(tx).Create(ctx, usage); err != nil {
		return nil, db.StorageError(err, "part usage", "create part usage")
	}
	return usage, nil
}

func (s *service) RemoveUsage(ctx context.Context, tx *gorm.DB, usageID uuid.UUID, actorID string) (*models.PartUsage, error) {
	if strings.TrimSpace(actorID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id required")
	}
	usage, err := s.Find(ctx, tx, usageID)
	if err != nil {
		return nil, err
	}

	ref := Reference(usage.WorkOrderID)
	if _, err := s.ledger.ApplyMovement(ctx, tx, parts.MovementInput{
		PartID:    usage.PartID,
		Kind:      enums.MovementKindIn,
		Quantity:  usage.Quantity,
		Reference: &ref,
		ActorID:   actorID,
	}); err != nil {
		return nil, err
	}

	if err := s.repo.WithTx(tx).Delete(ctx, usage.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, usageNotFound(usage.ID)
		}
		return nil, db.StorageError(err, "part usage", "delete part usage")
	}
	return usage, nil
}

func (s *service) UpdateQuantity(ctx context.Context, tx *gorm.DB, usageID uuid.UUID, quantity int, actorID string) (*models.PartUsage, error) {
	if quantity <= 0 {
		return nil, invalidQuantity(quantity)
	}
	if strings.TrimSpace(actorID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id required")
	}
	usage, err := s.Find(ctx, tx, usageID)
	if err != nil {
		return nil, err
	}
	delta := quantity - usage.Quantity
	if delta == 0 {
		return usage, nil
	}

	kind := enums.MovementKindOut
	moved := delta
	if delta < 0 {
		kind = enums.MovementKindIn
		moved = -delta
	}
	ref := Reference(usage.WorkOrderID)
	if _, err := s.ledger.ApplyMovement(ctx, tx, parts.MovementInput{
		PartID:    usage.PartID,
		Kind:      kind,
		Quantity:  moved,
		Reference: &ref,
		ActorID:   actorID,
	}); err != nil {
		return nil, err
	}

	subtotal := Subtotal(quantity, usage.UnitPriceAtUse)
	if err := s.repo.WithTx(tx).UpdateQuantity(ctx, usage.ID, quantity, subtotal); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, usageNotFound(usage.ID)
		}
		return nil, db.StorageError(err, "part usage", "update part usage")
	}
	usage.Quantity = quantity
	usage.Subtotal = subtotal
	return usage, nil
}

func (s *service) Find(ctx context.Context, tx *gorm.DB, usageID uuid.UUID) (*models.PartUsage, error) {
	if usageID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "usage id required")
	}
	usage, err := s.repo.WithTx(tx).FindByID(ctx, usageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, usageNotFound(usageID)
		}
		return nil, db.StorageError(err, "part usage", "load part usage")
	}
	return usage, nil
}

func (s *service) ListByOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) ([]models.PartUsage, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	usages, err := s.repo.WithTx(tx).ListByOrderID(ctx, orderID)
	if err != nil {
		return nil, db.StorageError(err, "part usage", "list part usages")
	}
	return usages, nil
}

// Subtotal is quantity times unit price, rounded to cents.
func Subtotal(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}

// Total sums usage subtotals.
func Total(usages []models.PartUsage) decimal.Decimal {
	total := decimal.Zero
	for _, u := range usages {
		total = total.Add(u.Subtotal)
	}
	return total
}

func usageNotFound(id uuid.UUID) error {
	return pkgerrors.Wrap(pkgerrors.CodeNotFound, ErrUsageNotFound, "part usage not found").
		WithDetails(map[string]any{"usage_id": id})
}

func invalidQuantity(quantity int) error {
	return pkgerrors.Wrap(pkgerrors.CodeValidation, parts.ErrInvalidQuantity, "quantity must be greater than zero").
		WithDetails(map[string]any{"quantity": quantity})
}
