package servicelines

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/motorshop-backend/pkg/db"
	"github.com/angelmondragon/motorshop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/motorshop-backend/pkg/errors"
)

var (
	// ErrServiceNotFound is returned when the catalog has no service with the given id.
	ErrServiceNotFound = errors.New("service not found")
	// ErrLineNotFound is returned when a service line id does not resolve.
	ErrLineNotFound = errors.New("service line not found")
	// ErrDuplicateServiceLine is returned when an order already carries the service.
	ErrDuplicateServiceLine = errors.New("service already on work order")
	// ErrInvalidPrice is returned for negative applied prices.
	ErrInvalidPrice = errors.New("invalid applied price")
)

// Service attaches catalog services to work orders. Callers own the
// transaction and recompute order totals afterwards.
type Service interface {
	AddServiceLine(ctx context.Context, tx *gorm.DB, input AddServiceLineInput) (*models.ServiceLineItem, error)
	RemoveServiceLine(ctx context.Context, tx *gorm.DB, lineID uuid.UUID) (*models.ServiceLineItem, error)
	UpdatePrice(ctx context.Context, tx *gorm.DB, lineID uuid.UUID, price decimal.Decimal) (*models.ServiceLineItem, error)
	Find(ctx context.Context, tx *gorm.DB, lineID uuid.UUID) (*models.ServiceLineItem, error)
	ListByOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) ([]models.ServiceLineItem, error)
}

// AddServiceLineInput attaches ServiceID to OrderID. A nil AppliedPrice uses
// the catalog base price.
type AddServiceLineInput struct {
	OrderID      uuid.UUID
	ServiceID    uuid.UUID
	AppliedPrice *decimal.Decimal
	Notes        *string
}

type service struct {
	repo Repository
}

// NewService wires a service registrar with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("service lines repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) AddServiceLine(ctx context.Context, tx *gorm.DB, input AddServiceLineInput) (*models.ServiceLineItem, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.ServiceID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "service id required")
	}
	if input.AppliedPrice != nil && input.AppliedPrice.Round(2).IsNegative() {
		return nil, invalidPrice(*input.AppliedPrice)
	}

	repo := s.repo.WithTx(tx)
	catalog, err := repo.FindCatalogService(ctx, input.ServiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, ErrServiceNotFound, "service not found").
				WithDetails(map[string]any{"service_id": input.ServiceID})
		}
		return nil, db.StorageError(err, "service", "load catalog service")
	}

	exists, err := repo.ExistsForOrder(ctx, input.OrderID, input.ServiceID)
	if err != nil {
		return nil, db.StorageError(err, "service line", "check service line")
	}
	if exists {
		return nil, duplicateLine(input)
	}

	price := catalog.BasePrice
	if input.AppliedPrice != nil {
		price = *input.AppliedPrice
	}

	line := &models.ServiceLineItem{
		WorkOrderID:  input.OrderID,
		ServiceID:    input.ServiceID,
		AppliedPrice: price.Round(2),
		Notes:        input.Notes,
	}
	if err := repo.Create(ctx, line); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, duplicateLine(input)
		}
		return nil, db.StorageError(err, "service line", "create service line")
	}
	return line, nil
}

func (s *service) RemoveServiceLine(ctx context.Context, tx *gorm.DB, lineID uuid.UUID) (*models.ServiceLineItem, error) {
	line, err := s.Find(ctx, tx, lineID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.WithTx(tx).Delete(ctx, lineID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, lineNotFound(lineID)
		}
		return nil, db.StorageError(err, "service line", "delete service line")
	}
	return line, nil
}

func (s *service) UpdatePrice(ctx context.Context, tx *gorm.DB, lineID uuid.UUID, price decimal.Decimal) (*models.ServiceLineItem, error) {
	price = price.Round(2)
	if price.IsNegative() {
		return nil, invalidPrice(price)
	}
	line, err := s.Find(ctx, tx, lineID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.WithTx(tx).UpdatePrice(ctx, lineID, price); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, lineNotFound(lineID)
		}
		return nil, db.StorageError(err, "service line", "update service line price")
	}
	line.AppliedPrice = price
	return line, nil
}

func (s *service) Find(ctx context.Context, tx *gorm.DB, lineID uuid.UUID) (*models.ServiceLineItem, error) {
	if lineID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "service line id required")
	}
	line, err := s.repo.WithTx(tx).FindByID(ctx, lineID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, lineNotFound(lineID)
		}
		return nil, db.StorageError(err, "service line", "load service line")
	}
	return line, nil
}

func (s *service) ListByOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) ([]models.ServiceLineItem, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	lines, err := s.repo.WithTx(tx).ListByOrderID(ctx, orderID)
	if err != nil {
		return nil, db.StorageError(err, "service line", "list service lines")
	}
	return lines, nil
}

// Total sums applied prices.
func Total(lines []models.ServiceLineItem) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.AppliedPrice)
	}
	return total
}

func duplicateLine(input AddServiceLineInput) error {
	return pkgerrors.Wrap(pkgerrors.CodeConflict, ErrDuplicateServiceLine, "service already on work order").
		WithDetails(map[string]any{"work_order_id": input.OrderID, "service_id": input.ServiceID})
}

func lineNotFound(id uuid.UUID) error {
	return pkgerrors.Wrap(pkgerrors.CodeNotFound, ErrLineNotFound, "service line not found").
		WithDetails(map[string]any{"line_id": id})
}

func invalidPrice(price decimal.Decimal) error {
	return pkgerrors.Wrap(pkgerrors.CodeValidation, ErrInvalidPrice, "applied price must not be negative").
		WithDetails(map[string]any{"applied_price": price.StringFixed(2)})
}
