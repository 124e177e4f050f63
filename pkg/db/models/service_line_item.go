package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ServiceLineItem attaches a catalog service to a work order at an applied price.
type ServiceLineItem struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	WorkOrderID  uuid.UUID       `gorm:"column:work_order_id;type:uuid;not null;uniqueIndex:ux_work_order_services_order_service,priority:1"`
	ServiceID    uuid.UUID       `gorm:"column:service_id;type:uuid;not null;uniqueIndex:ux_work_order_services_order_service,priority:2"`
	AppliedPrice decimal.Decimal `gorm:"column:applied_price;type:numeric(12,2);not null"`
	Notes        *string         `gorm:"column:notes"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (ServiceLineItem) TableName() string { return "work_order_services" }

func (l *ServiceLineItem) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
