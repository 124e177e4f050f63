package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PartUsage attaches a consumed part to a work order.
type PartUsage struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	WorkOrderID    uuid.UUID       `gorm:"column:work_order_id;type:uuid;not null;index"`
	PartID         uuid.UUID       `gorm:"column:part_id;type:uuid;not null;index"`
	Quantity       int             `gorm:"column:quantity;not null"`
	UnitPriceAtUse decimal.Decimal `gorm:"column:unit_price_at_use;type:numeric(12,2);not null"`
	Subtotal       decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`
	MovementID     uuid.UUID       `gorm:"column:movement_id;type:uuid;not null"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (PartUsage) TableName() string { return "part_usages" }

func (u *PartUsage) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
