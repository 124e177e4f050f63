package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/motorshop-backend/pkg/enums"
)

// Payment is an append-only record of money received for a work order.
type Payment struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	WorkOrderID uuid.UUID           `gorm:"column:work_order_id;type:uuid;not null;index"`
	Amount      decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null;check:chk_payments_amount_positive,amount > 0"`
	Method      enums.PaymentMethod `gorm:"column:method;type:text;not null"`
	Reference   *string             `gorm:"column:reference"`
	Notes       *string             `gorm:"column:notes"`
	ActorID     string              `gorm:"column:actor_id;not null"`
	PaidAt      time.Time           `gorm:"column:paid_at;not null"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
}

func (Payment) TableName() string { return "payments" }

func (p *Payment) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
