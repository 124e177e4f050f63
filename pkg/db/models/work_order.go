package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/motorshop-backend/pkg/enums"
)

// WorkOrder is a repair job tracked from intake to delivery.
type WorkOrder struct {
	ID                 uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber        string                  `gorm:"column:order_number;not null;uniqueIndex:ux_work_orders_order_number"`
	MotorcycleID       uuid.UUID               `gorm:"column:motorcycle_id;type:uuid;not null;index"`
	CreatedBy          string                  `gorm:"column:created_by;not null"`
	AssignedTo         *string                 `gorm:"column:assigned_to"`
	Status             string                  `gorm:"column:status;not null;default:'RECEIVED'"`
	Priority           enums.WorkOrderPriority `gorm:"column:priority;type:text;not null;default:'NORMAL'"`
	ProblemDescription string                  `gorm:"column:problem_description;not null"`
	Diagnosis          *string                 `gorm:"column:diagnosis"`
	ServiceTotal       decimal.Decimal         `gorm:"column:service_total;type:numeric(12,2);not null"`
	PartsTotal         decimal.Decimal         `gorm:"column:parts_total;type:numeric(12,2);not null"`
	OrderTotal         decimal.Decimal         `gorm:"column:order_total;type:numeric(12,2);not null"`
	PaymentStatus      enums.PaymentStatus     `gorm:"column:payment_status;type:text;not null;default:'PENDING'"`
	Version            int64                   `gorm:"column:version;not null;default:0"`
	DeliveredAt        *time.Time              `gorm:"column:delivered_at"`
	CreatedAt          time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (WorkOrder) TableName() string { return "work_orders" }

func (o *WorkOrder) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
