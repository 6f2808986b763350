package persistence

import (
	"context"
	"errors"

	"github.com/commercehub/backend/internal/domain/inventory"
	"github.com/commercehub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormLayerRepository implements LayerRepository using GORM
type GormLayerRepository struct {
	db *gorm.DB
}

// NewGormLayerRepository creates a new GormLayerRepository
func NewGormLayerRepository(db *gorm.DB) *GormLayerRepository {
	return &GormLayerRepository{db: db}
}

// FindByID finds a layer by ID within a tenant
func (r *GormLayerRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*inventory.ValuationLayer, error) {
	var layer inventory.ValuationLayer
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&layer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Valuation layer not found")
		}
		return nil, err
	}
	return &layer, nil
}

// FindOpenByScope lists layers with remaining quantity for a product at a
// location, oldest first
func (r *GormLayerRepository) FindOpenByScope(ctx context.Context, tenantID, productID, locationID uuid.UUID) ([]*inventory.ValuationLayer, error) {
	var layers []*inventory.ValuationLayer
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND product_id = ? AND location_id = ? AND remaining_quantity > 0", tenantID, productID, locationID).
		Order("sequence ASC").
		Find(&layers).Error; err != nil {
		return nil, err
	}
	return layers, nil
}

// FindByScope lists all layers for a product at a location, exhausted included
func (r *GormLayerRepository) FindByScope(ctx context.Context, tenantID, productID, locationID uuid.UUID) ([]*inventory.ValuationLayer, error) {
	var layers []*inventory.ValuationLayer
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND product_id = ? AND location_id = ?", tenantID, productID, locationID).
		Order("sequence ASC").
		Find(&layers).Error; err != nil {
		return nil, err
	}
	return layers, nil
}

// NextSequence returns the next FIFO sequence for the scope. The caller must
// hold the scope's balance row lock, which serializes concurrent callers.
func (r *GormLayerRepository) NextSequence(ctx context.Context, tenantID, productID, locationID uuid.UUID) (int64, error) {
	var result struct {
		Max int64
	}
	if err := r.db.WithContext(ctx).
		Model(&inventory.ValuationLayer{}).
		Select("COALESCE(MAX(sequence), 0) as max").
		Where("tenant_id = ? AND product_id = ? AND location_id = ?", tenantID, productID, locationID).
		Scan(&result).Error; err != nil {
		return 0, err
	}
	return result.Max + 1, nil
}

// Save persists a layer
func (r *GormLayerRepository) Save(ctx context.Context, layer *inventory.ValuationLayer) error {
	return r.db.WithContext(ctx).Save(layer).Error
}

// SaveAll persists multiple layers
func (r *GormLayerRepository) SaveAll(ctx context.Context, layers []*inventory.ValuationLayer) error {
	for _, layer := range layers {
		if err := r.db.WithContext(ctx).Save(layer).Error; err != nil {
			return err
		}
	}
	return nil
}

// Ensure GormLayerRepository implements LayerRepository
var _ inventory.LayerRepository = (*GormLayerRepository)(nil)
