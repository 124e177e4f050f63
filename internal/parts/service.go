package parts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/motorshop-backend/pkg/db"
	"github.com/angelmondragon/motorshop-backend/pkg/db/models"
	"github.com/angelmondragon/motorshop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/motorshop-backend/pkg/errors"
	"github.com/angelmondragon/motorshop-backend/pkg/logger"
	"github.com/angelmondragon/motorshop-backend/pkg/outbox"
	"github.com/angelmondragon/motorshop-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/motorshop-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// EventEmitter queues domain events in the caller's transaction.
type EventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// MovementRecorder receives ledger activity for instrumentation.
type MovementRecorder interface {
	IncMovement(kind string)
	IncInsufficientStock()
}

// Service owns part stock. Every change goes through ApplyMovement so the
// movement history always explains the current stock.
type Service interface {
	ApplyMovement(ctx context.Context, tx *gorm.DB, input MovementInput) (*models.PartMovement, error)
	Adjust(ctx context.Context, input MovementInput) (*models.PartMovement, error)
	CurrentStock(ctx context.Context, partID uuid.UUID) (int, error)
	FindPart(ctx context.Context, tx *gorm.DB, partID uuid.UUID) (*models.Part, error)
	ListMovements(ctx context.Context, partID uuid.UUID, params pagination.Params) (*MovementList, error)
	VerifyLedger(ctx context.Context, partID uuid.UUID) (*LedgerReport, error)
}

// MovementInput describes a single stock change.
type MovementInput struct {
	PartID    uuid.UUID
	Kind      enums.MovementKind
	Quantity  int
	Reference *string
	ActorID   string
}

// MovementList is a cursor page of movements, newest first.
type MovementList struct {
	Movements  []models.PartMovement
	NextCursor string
}

// LedgerReport is the outcome of replaying a part's movement history.
type LedgerReport struct {
	PartID        uuid.UUID
	StockOnHand   int
	InitialStock  int
	MovementCount int
	ExpectedStock int
	BrokenLinks   int
}

// Balanced reports whether stored stock matches the replayed history.
func (r LedgerReport) Balanced() bool {
	return r.StockOnHand == r.ExpectedStock && r.StockOnHand >= 0 && r.BrokenLinks == 0
}

type service struct {
	repo    Repository
	tx      txRunner
	logg    *logger.Logger
	metrics MovementRecorder
	events  EventEmitter
}

// NewService wires the parts ledger. metrics and events may be nil; without
// events manual adjustments are not published.
func NewService(repo Repository, tx txRunner, logg *logger.Logger, metrics MovementRecorder, events EventEmitter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("parts repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if metrics == nil {
		metrics = noopRecorder{}
	}
	return &service{
		repo:    repo,
		tx:      tx,
		logg:    logg,
		metrics: metrics,
		events:  events,
	}, nil
}

func (s *service) ApplyMovement(ctx context.Context, tx *gorm.DB, input MovementInput) (*models.PartMovement, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stock movements require a transaction")
	}
	if err := validateMovement(input); err != nil {
		return nil, err
	}

	repo := s.repo.WithTx(tx)
	part, err := repo.FindByIDForUpdate(ctx, input.PartID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, partNotFound(input.PartID)
		}
		return nil, db.StorageError(err, "part", "load part")
	}

	before := part.StockOnHand
	after, err := nextStock(before, input.Kind, input.Quantity)
	if err != nil {
		if errors.Is(err, ErrInsufficientStock) {
			s.metrics.IncInsufficientStock()
			return nil, pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "insufficient stock").
				WithDetails(map[string]any{
					"part_id":   part.ID,
					"available": before,
					"requested": input.Quantity,
				})
		}
		return nil, err
	}

	ok, err := repo.CompareAndSetStock(ctx, part.ID, part.Version, after)
	if err != nil {
		if errors.Is(err, gorm.ErrCheckConstraintViolated) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeStateConflict, ErrInsufficientStock, "insufficient stock")
		}
		return nil, db.StorageError(err, "part", "update part stock")
	}
	if !ok {
		return nil, pkgerrors.ConcurrentModification("part")
	}

	movement := &models.PartMovement{
		PartID:      part.ID,
		Kind:        input.Kind,
		Quantity:    input.Quantity,
		StockBefore: before,
		StockAfter:  after,
		Reference:   input.Reference,
		ActorID:     input.ActorID,
	}
	if err := repo.CreateMovement(ctx, movement); err != nil {
		return nil, db.StorageError(err, "part", "record part movement")
	}

	s.metrics.IncMovement(string(input.Kind))
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"part_id":      part.ID.String(),
			"kind":         string(input.Kind),
			"quantity":     input.Quantity,
			"stock_before": before,
			"stock_after":  after,
		})
		s.logg.Info(logCtx, "part.movement_applied")
	}
	return movement, nil
}

func (s *service) Adjust(ctx context.Context, input MovementInput) (*models.PartMovement, error) {
	var movement *models.PartMovement
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		movement, err = s.ApplyMovement(ctx, tx, input)
		if err != nil || s.events == nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPartStockAdjusted,
			AggregateType: enums.AggregatePart,
			AggregateID:   movement.PartID,
			Actor:         &outbox.ActorRef{ActorID: movement.ActorID},
			Data: payloads.PartStockAdjustedEvent{
				PartID:      movement.PartID,
				MovementID:  movement.ID,
				Kind:        movement.Kind,
				Quantity:    movement.Quantity,
				StockBefore: movement.StockBefore,
				StockAfter:  movement.StockAfter,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return movement, nil
}

func (s *service) CurrentStock(ctx context.Context, partID uuid.UUID) (int, error) {
	part, err := s.FindPart(ctx, nil, partID)
	if err != nil {
		return 0, err
	}
	return part.StockOnHand, nil
}

func (s *service) FindPart(ctx context.Context, tx *gorm.DB, partID uuid.UUID) (*models.Part, error) {
	if partID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "part id required")
	}
	part, err := s.repo.WithTx(tx).FindByID(ctx, partID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, partNotFound(partID)
		}
		return nil, db.StorageError(err, "part", "load part")
	}
	return part, nil
}

func (s *service) ListMovements(ctx context.Context, partID uuid.UUID, params pagination.Params) (*MovementList, error) {
	if _, err := s.FindPart(ctx, nil, partID); err != nil {
		return nil, err
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, err := s.repo.ListMovements(ctx, partID, params.Limit, cursor)
	if err != nil {
		return nil, db.StorageError(err, "part", "list part movements")
	}

	page, next := pagination.Trim(rows, params.Limit, func(m models.PartMovement) pagination.Cursor {
		return pagination.Cursor{CreatedAt: m.CreatedAt, ID: m.ID}
	})
	return &MovementList{Movements: page, NextCursor: next}, nil
}

// VerifyLedger replays the movement chain of a part. Each movement must start
// where the previous one ended and the last one must end at the stored stock.
func (s *service) VerifyLedger(ctx context.Context, partID uuid.UUID) (*LedgerReport, error) {
	part, err := s.FindPart(ctx, nil, partID)
	if err != nil {
		return nil, err
	}
	movements, err := s.repo.ListMovementChain(ctx, partID)
	if err != nil {
		return nil, db.StorageError(err, "part", "list part movements")
	}

	report := &LedgerReport{
		PartID:        part.ID,
		StockOnHand:   part.StockOnHand,
		InitialStock:  part.InitialStock,
		MovementCount: len(movements),
		ExpectedStock: part.InitialStock,
	}
	running := part.InitialStock
	for _, m := range movements {
		if m.StockBefore != running {
			report.BrokenLinks++
		}
		running = m.StockAfter
		report.ExpectedStock += m.Delta()
	}
	return report, nil
}

func validateMovement(input MovementInput) error {
	if input.PartID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "part id required")
	}
	if !input.Kind.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid movement kind %q", input.Kind))
	}
	if strings.TrimSpace(input.ActorID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "actor id required")
	}
	switch input.Kind {
	case enums.MovementKindAdjust:
		if input.Quantity < 0 {
			return invalidQuantity(input.Quantity)
		}
	default:
		if input.Quantity <= 0 {
			return invalidQuantity(input.Quantity)
		}
	}
	return nil
}

func nextStock(current int, kind enums.MovementKind, quantity int) (int, error) {
	switch kind {
	case enums.MovementKindIn:
		return current + quantity, nil
	case enums.MovementKindOut:
		if current < quantity {
			return current, ErrInsufficientStock
		}
		return current - quantity, nil
	case enums.MovementKindAdjust:
		return quantity, nil
	default:
		return current, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid movement kind %q", kind))
	}
}

func partNotFound(id uuid.UUID) error {
	return pkgerrors.Wrap(pkgerrors.CodeNotFound, ErrPartNotFound, "part not found").
		WithDetails(map[string]any{"part_id": id})
}

func invalidQuantity(quantity int) error {
	return pkgerrors.Wrap(pkgerrors.CodeValidation, ErrInvalidQuantity, "invalid quantity").
		WithDetails(map[string]any{"quantity": quantity})
}

type noopRecorder struct{}

func (noopRecorder) IncMovement(string)    {}
func (noopRecorder) IncInsufficientStock() {}
