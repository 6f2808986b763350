package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/commercehub/backend/internal/domain/cart"
	"github.com/commercehub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCartRepository implements CartRepository using GORM
type GormCartRepository struct {
	db *gorm.DB
}

// NewGormCartRepository creates a new GormCartRepository
func NewGormCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

// FindByID finds a cart with its items by ID
func (r *GormCartRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*cart.Cart, error) {
	var c cart.Cart
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Cart not found")
		}
		return nil, err
	}
	return &c, nil
}

// FindActiveByCustomer finds the customer's active cart, if any
func (r *GormCartRepository) FindActiveByCustomer(ctx context.Context, tenantID, customerID uuid.UUID) (*cart.Cart, error) {
	var c cart.Cart
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("tenant_id = ? AND customer_id = ? AND status = ?", tenantID, customerID, cart.CartStatusActive).
		Order("last_activity_at DESC").
		First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Cart not found")
		}
		return nil, err
	}
	return &c, nil
}

// FindStale lists active carts with no activity since cutoff, across all
// tenants, oldest activity first
func (r *GormCartRepository) FindStale(ctx context.Context, cutoff time.Time, limit int) ([]*cart.Cart, error) {
	var carts []*cart.Cart
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("status = ? AND last_activity_at < ?", cart.CartStatusActive, cutoff).
		Order("last_activity_at ASC").
		Limit(limit).
		Find(&carts).Error; err != nil {
		return nil, err
	}
	return carts, nil
}

// Save persists a cart with its items
func (r *GormCartRepository) Save(ctx context.Context, c *cart.Cart) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(c).Error
}

// Delete removes a cart and its items. Items go first so the removal works
// without relying on the database cascading the foreign key; the subquery
// keeps the tenant scope on the item rows too.
func (r *GormCartRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	owned := r.db.Model(&cart.Cart{}).
		Select("id").
		Where("tenant_id = ? AND id = ?", tenantID, id)
	if err := r.db.WithContext(ctx).
		Where("cart_id IN (?)", owned).
		Delete(&cart.CartItem{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&cart.Cart{}).Error
}

// Ensure GormCartRepository implements CartRepository
var _ cart.CartRepository = (*GormCartRepository)(nil)
