package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Part is an inventory item whose stock is tracked through part_movements.
type Part struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Code             string          `gorm:"column:code;not null;uniqueIndex:ux_parts_code"`
	Name             string          `gorm:"column:name;not null"`
	Category         string          `gorm:"column:category;not null;default:''"`
	StockOnHand      int             `gorm:"column:stock_on_hand;not null;default:0;check:chk_parts_stock_non_negative,stock_on_hand >= 0"`
	InitialStock     int             `gorm:"column:initial_stock;not null;default:0"`
	ReorderThreshold int             `gorm:"column:reorder_threshold;not null;default:0"`
	UnitPrice        decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Active           bool            `gorm:"column:active;not null"`
	Version          int64           `gorm:"column:version;not null;default:0"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Part) TableName() string { return "parts" }

// BeforeCreate assigns the primary key. A new part has no movements yet, so
// its stock is always the initial count.
func (p *Part) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.StockOnHand = p.InitialStock
	return nil
}

// BelowReorderThreshold reports whether the part should be restocked.
func (p Part) BelowReorderThreshold() bool {
	return p.StockOnHand <= p.ReorderThreshold
}
