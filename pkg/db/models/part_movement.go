package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/motorshop-backend/pkg/enums"
)

// PartMovement is an append-only record of a single stock change.
type PartMovement struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	PartID      uuid.UUID          `gorm:"column:part_id;type:uuid;not null;index:ix_part_movements_part_created,priority:1"`
	Kind        enums.MovementKind `gorm:"column:kind;type:text;not null"`
	Quantity    int                `gorm:"column:quantity;not null"`
	StockBefore int                `gorm:"column:stock_before;not null"`
	StockAfter  int                `gorm:"column:stock_after;not null"`
	Reference   *string            `gorm:"column:reference"`
	ActorID     string             `gorm:"column:actor_id;not null"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime;index:ix_part_movements_part_created,priority:2"`
}

func (PartMovement) TableName() string { return "part_movements" }

func (m *PartMovement) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Delta returns the signed stock change the movement applied.
func (m PartMovement) Delta() int {
	return m.StockAfter - m.StockBefore
}
