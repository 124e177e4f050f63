package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WorkOrderHistoryEntry is an immutable audit record of a status transition.
type WorkOrderHistoryEntry struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	WorkOrderID    uuid.UUID `gorm:"column:work_order_id;type:uuid;not null;index"`
	PreviousStatus *string   `gorm:"column:previous_status"`
	NewStatus      string    `gorm:"column:new_status;not null"`
	Comment        *string   `gorm:"column:comment"`
	ActorID        string    `gorm:"column:actor_id;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;not null"`
}

func (WorkOrderHistoryEntry) TableName() string { return "work_order_history" }

func (e *WorkOrderHistoryEntry) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
