package persistence

import (
	"context"
	"errors"

	"github.com/commercehub/backend/internal/domain/inventory"
	"github.com/commercehub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormMovementRepository implements MovementRepository using GORM
type GormMovementRepository struct {
	db *gorm.DB
}

// NewGormMovementRepository creates a new GormMovementRepository
func NewGormMovementRepository(db *gorm.DB) *GormMovementRepository {
	return &GormMovementRepository{db: db}
}

// FindByID finds a movement by ID within a tenant
func (r *GormMovementRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*inventory.StockMovement, error) {
	var movement inventory.StockMovement
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&movement).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Stock movement not found")
		}
		return nil, err
	}
	return &movement, nil
}

// FindByReference lists movements for a business document
func (r *GormMovementRepository) FindByReference(ctx context.Context, tenantID uuid.UUID, referenceType, referenceID string) ([]*inventory.StockMovement, error) {
	var movements []*inventory.StockMovement
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND reference_type = ? AND reference_id = ?", tenantID, referenceType, referenceID).
		Order("created_at ASC").
		Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

// ExistsByReference reports whether a movement of the given type already
// exists for the reference
func (r *GormMovementRepository) ExistsByReference(ctx context.Context, tenantID uuid.UUID, movementType inventory.MovementType, referenceType, referenceID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&inventory.StockMovement{}).
		Where("tenant_id = ? AND movement_type = ? AND reference_type = ? AND reference_id = ?",
			tenantID, movementType, referenceType, referenceID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save persists a movement
func (r *GormMovementRepository) Save(ctx context.Context, movement *inventory.StockMovement) error {
	return r.db.WithContext(ctx).Save(movement).Error
}

// SaveConsumptions persists the layer breakdown of an outbound movement
func (r *GormMovementRepository) SaveConsumptions(ctx context.Context, consumptions []*inventory.MovementConsumption) error {
	if len(consumptions) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(consumptions).Error
}

// FindConsumptions lists the layer breakdown of a movement
func (r *GormMovementRepository) FindConsumptions(ctx context.Context, tenantID, movementID uuid.UUID) ([]*inventory.MovementConsumption, error) {
	var consumptions []*inventory.MovementConsumption
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND movement_id = ?", tenantID, movementID).
		Order("created_at ASC").
		Find(&consumptions).Error; err != nil {
		return nil, err
	}
	return consumptions, nil
}

// FindHistory lists movements for a product at a location, newest first
func (r *GormMovementRepository) FindHistory(ctx context.Context, tenantID, productID, locationID uuid.UUID, filter shared.Filter) (shared.Paginated[*inventory.StockMovement], error) {
	var empty shared.Paginated[*inventory.StockMovement]

	query := r.db.WithContext(ctx).
		Model(&inventory.StockMovement{}).
		Where("tenant_id = ? AND product_id = ? AND location_id = ?", tenantID, productID, locationID)
	query = applyMovementFilters(query, filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return empty, err
	}

	var movements []*inventory.StockMovement
	if err := applyPagination(query, filter, MovementSortFields).Find(&movements).Error; err != nil {
		return empty, err
	}
	return shared.NewPaginated(movements, total, filter.Page, filter.PageSize), nil
}

func applyMovementFilters(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "movement_type":
			query = query.Where("movement_type = ?", value)
		case "reference_type":
			query = query.Where("reference_type = ?", value)
		case "status":
			query = query.Where("status = ?", value)
		case "since":
			query = query.Where("created_at >= ?", value)
		case "until":
			query = query.Where("created_at < ?", value)
		}
	}
	return query
}

// Ensure GormMovementRepository implements MovementRepository
var _ inventory.MovementRepository = (*GormMovementRepository)(nil)
