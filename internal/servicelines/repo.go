package servicelines

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/motorshop-backend/pkg/db/models"
)

// Repository persists service line items and reads the service catalog.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindCatalogService(ctx context.Context, id uuid.UUID) (*models.CatalogService, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.ServiceLineItem, error)
	ExistsForOrder(ctx context.Context, orderID, serviceID uuid.UUID) (bool, error)
	Create(ctx context.Context, line *models.ServiceLineItem) error
	UpdatePrice(ctx context.Context, id uuid.UUID, price decimal.Decimal) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.ServiceLineItem, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a service line repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindCatalogService(ctx context.Context, id uuid.UUID) (*models.CatalogService, error) {
	var svc models.CatalogService
	if err := r.db.WithContext(ctx).First(&svc, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &svc, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ServiceLineItem, error) {
	var line models.ServiceLineItem
	if err := r.db.WithContext(ctx).First(&line, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &line, nil
}

func (r *repository) ExistsForOrder(ctx context.Context, orderID, serviceID uuid.UUID) (bool, error) {
	var line models.ServiceLineItem
	err := r.db.WithContext(ctx).
		Select("id").
		Where("work_order_id = ? AND service_id = ?", orderID, serviceID).
		Take(&line).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *repository) Create(ctx context.Context, line *models.ServiceLineItem) error {
	return r.db.WithContext(ctx).Create(line).Error
}

func (r *repository) UpdatePrice(ctx context.Context, id uuid.UUID, price decimal.Decimal) error {
	res := r.db.WithContext(ctx).
		Model(&models.ServiceLineItem{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"applied_price": price,
			"updated_at":    time.Now().UTC(),
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
	res := r.db.WithContext(ctx).Delete(&models.ServiceLineItem{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.ServiceLineItem, error) {
	var lines []models.ServiceLineItem
	if err := r.db.WithContext(ctx).
		Where("work_order_id = ?", orderID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}
