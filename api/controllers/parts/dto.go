package parts

import (
	"time"

	"github.com/google/uuid"

	internalparts "github.com/angelmondragon/motorshop-backend/internal/parts"
	"github.com/angelmondragon/motorshop-backend/pkg/db/models"
)

// AdjustRequest is a manual stock movement. IN and OUT take a positive
// quantity; ADJUST sets the absolute stock and may be zero.
type AdjustRequest struct {
	Kind      string  `json:"kind" validate:"required,max=16"`
	Quantity  int     `json:"quantity" validate:"min=0"`
	Reference *string `json:"reference,omitempty" validate:"omitempty,max=128"`
}

type StockResponse struct {
	PartID      uuid.UUID `json:"part_id"`
	StockOnHand int       `json:"stock_on_hand"`
}

type Movement struct {
	ID          uuid.UUID `json:"id"`
	PartID      uuid.UUID `json:"part_id"`
	Kind        string    `json:"kind"`
	Quantity    int       `json:"quantity"`
	StockBefore int       `json:"stock_before"`
	StockAfter  int       `json:"stock_after"`
	Reference   *string   `json:"reference,omitempty"`
	ActorID     string    `json:"actor_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type MovementList struct {
	Movements  []Movement `json:"movements"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

type LedgerResponse struct {
	PartID        uuid.UUID `json:"part_id"`
	StockOnHand   int       `json:"stock_on_hand"`
	InitialStock  int       `json:"initial_stock"`
	MovementCount int       `json:"movement_count"`
	ExpectedStock int       `json:"expected_stock"`
	BrokenLinks   int       `json:"broken_links"`
	Balanced      bool      `json:"balanced"`
}

func fromMovement(m *models.PartMovement) Movement {
	return Movement{
		ID:          m.ID,
		PartID:      m.PartID,
		Kind:        string(m.Kind),
		Quantity:    m.Quantity,
		StockBefore: m.StockBefore,
		StockAfter:  m.StockAfter,
		Reference:   m.Reference,
		ActorID:     m.ActorID,
		CreatedAt:   m.CreatedAt,
	}
}

func fromMovementList(list *internalparts.MovementList) MovementList {
	out := MovementList{Movements: make([]Movement, 0, len(list.Movements)), NextCursor: list.NextCursor}
	for i := range list.Movements {
		out.Movements = append(out.Movements, fromMovement(&list.Movements[i]))
	}
	return out
}

func fromLedgerReport(r *internalparts.LedgerReport) LedgerResponse {
	return LedgerResponse{
		PartID:        r.PartID,
		StockOnHand:   r.StockOnHand,
		InitialStock:  r.InitialStock,
		MovementCount: r.MovementCount,
		ExpectedStock: r.ExpectedStock,
		BrokenLinks:   r.BrokenLinks,
		Balanced:      r.Balanced(),
	}
}
