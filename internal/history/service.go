package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/motorshop-backend/pkg/db"
	"github.com/angelmondragon/motorshop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/motorshop-backend/pkg/errors"
)

// Service records status transitions of work orders.
type Service interface {
	RecordTransition(ctx context.Context, tx *gorm.DB, input TransitionInput) (*models.WorkOrderHistoryEntry, error)
	List(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) ([]models.WorkOrderHistoryEntry, error)
}

// TransitionInput captures a status change. PreviousStatus is nil for the
// entry written when an order is created.
type TransitionInput struct {
	OrderID        uuid.UUID
	PreviousStatus *string
	NewStatus      string
	Comment        *string
	ActorID        string
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService wires a history recorder with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("history repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) RecordTransition(ctx context.Context, tx *gorm.DB, input TransitionInput) (*models.WorkOrderHistoryEntry, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if strings.TrimSpace(input.NewStatus) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "new status required")
	}
	if strings.TrimSpace(input.ActorID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id required")
	}

	entry := &models.WorkOrderHistoryEntry{
		WorkOrderID:    input.OrderID,
		PreviousStatus: input.PreviousStatus,
		NewStatus:      input.NewStatus,
		Comment:        input.Comment,
		ActorID:        input.ActorID,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.repo.WithTx(tx).Create(ctx, entry); err != nil {
		return nil, db.StorageError(err, "work order history", "record work order history")
	}
	return entry, nil
}

func (s *service) List(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) ([]models.WorkOrderHistoryEntry, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	entries, err := s.repo.WithTx(tx).ListByOrderID(ctx, orderID)
	if err != nil {
		return nil, db.StorageError(err, "work order history", "list work order history")
	}
	return entries, nil
}
