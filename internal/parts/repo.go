package parts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/motorshop-backend/pkg/db"
	"github.com/angelmondragon/motorshop-backend/pkg/db/models"
	"github.com/angelmondragon/motorshop-backend/pkg/pagination"
)

// Repository manages persistence for parts and their stock movements.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, part *models.Part) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Part, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Part, error)
	CompareAndSetStock(ctx context.Context, id uuid.UUID, expectedVersion int64, stock int) (bool, error)
	CreateMovement(ctx context.Context, movement *models.PartMovement) error
	ListMovements(ctx context.Context, partID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.PartMovement, error)
	ListMovementChain(ctx context.Context, partID uuid.UUID) ([]models.PartMovement, error)
	ListActive(ctx context.Context) ([]models.Part, error)
	ListAtOrBelowThreshold(ctx context.Context) ([]models.Part, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a parts repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, part *models.Part) error {
	return r.db.WithContext(ctx).Create(part).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Part, error) {
	var part models.Part
	if err := r.db.WithContext(ctx).First(&part, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &part, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Part, error) {
	var part models.Part
	if err := db.ForUpdate(r.db.WithContext(ctx)).First(&part, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &part, nil
}

// CompareAndSetStock writes the new stock only when the row still carries
// expectedVersion. It reports false when another writer got there first.
func (r *repository) CompareAndSetStock(ctx context.Context, id uuid.UUID, expectedVersion int64, stock int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Part{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(map[string]any{
			"stock_on_hand": stock,
			"version":       gorm.Expr("version + 1"),
			"updated_at":    time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) CreateMovement(ctx context.Context, movement *models.PartMovement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}

func (r *repository) ListMovements(ctx context.Context, partID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.PartMovement, error) {
	var movements []models.PartMovement
	err := r.db.WithContext(ctx).
		Where("part_id = ?", partID).
		Scopes(pagination.Keyset(cursor, limit)).
		Find(&movements).Error
	return movements, err
}

func (r *repository) ListMovementChain(ctx context.Context, partID uuid.UUID) ([]models.PartMovement, error) {
	var movements []models.PartMovement
	if err := r.db.WithContext(ctx).
		Where("part_id = ?", partID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

func (r *repository) ListActive(ctx context.Context) ([]models.Part, error) {
	var parts []models.Part
	if err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("code ASC").
		Find(&parts).Error; err != nil {
		return nil, err
	}
	return parts, nil
}

func (r *repository) ListAtOrBelowThreshold(ctx context.Context) ([]models.Part, error) {
	var parts []models.Part
	if err := r.db.WithContext(ctx).
		Where("active = ? AND stock_on_hand <= reorder_threshold", true).
		Order("code ASC").
		Find(&parts).Error; err != nil {
		return nil, err
	}
	return parts, nil
}
