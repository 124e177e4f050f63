package usage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/motorshop-backend/pkg/db/models"
)

// Repository persists part usages attached to work orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, usage *models.PartUsage) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.PartUsage, error)
	UpdateQuantity(ctx context.Context, id uuid.UUID, quantity int, subtotal decimal.Decimal) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.PartUsage, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a usage repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, usage *models.PartUsage) error {
	return r.db.WithContext(ctx).Create(usage).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PartUsage, error) {
	var usage models.PartUsage
	if err := r.db.WithContext(ctx).First(&usage, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &usage, nil
}

func (r *repository) UpdateQuantity(ctx context.Context, id uuid.UUID, quantity int, subtotal decimal.Decimal) error {
	res := r.db.WithContext(ctx).
		Model(&models.PartUsage{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"quantity":   quantity,
			"subtotal":   subtotal,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.PartUsage{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.PartUsage, error) {
	var usages []models.PartUsage
	if err := r.db.WithContext(ctx).
		Where("work_order_id = ?", orderID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&usages).Error; err != nil {
		return nil, err
	}
	return usages, nil
}
