package workorders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/motorshop-backend/pkg/db"
	"github.com/angelmondragon/motorshop-backend/pkg/db/models"
	"github.com/angelmondragon/motorshop-backend/pkg/enums"
	"github.com/angelmondragon/motorshop-backend/pkg/pagination"
)

// Repository persists work order rows. Line items, usages and payments live
// with their own registrars.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.WorkOrder) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.WorkOrder, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.WorkOrder, error)
	UpdateWithVersion(ctx context.Context, id uuid.UUID, expectedVersion int64, fields map[string]any) (bool, error)
	List(ctx context.Context, filter ListFilter, limit int, cursor *pagination.Cursor) ([]models.WorkOrder, error)
}

// ListFilter narrows List. Empty fields match everything.
type ListFilter struct {
	Status        string
	PaymentStatus enums.PaymentStatus
	AssignedTo    string
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a work order repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.WorkOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.WorkOrder, error) {
	var order models.WorkOrder
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.WorkOrder, error) {
	var order models.WorkOrder
	if err := db.ForUpdate(r.db.WithContext(ctx)).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateWithVersion applies fields and bumps version only when the row still
// carries expectedVersion.
func (r *repository) UpdateWithVersion(ctx context.Context, id uuid.UUID, expectedVersion int64, fields map[string]any) (bool, error) {
	updates := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		updates[k] = v
	}
	updates["version"] = gorm.Expr("version + 1")
	updates["updated_at"] = time.Now().UTC()

	res := r.db.WithContext(ctx).
		Model(&models.WorkOrder{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// List returns orders newest first, continuing after cursor when set.
func (r *repository) List(ctx context.Context, filter ListFilter, limit int, cursor *pagination.Cursor) ([]models.WorkOrder, error) {
	q := r.db.WithContext(ctx).Model(&models.WorkOrder{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.PaymentStatus != "" {
		q = q.Where("payment_status = ?", filter.PaymentStatus)
	}
	if filter.AssignedTo != "" {
		q = q.Where("assigned_to = ?", filter.AssignedTo)
	}
	var orders []models.WorkOrder
	err := q.Scopes(pagination.Keyset(cursor, limit)).Find(&orders).Error
	return orders, err
}
