package persistence

import (
	"context"
	"errors"

	"github.com/commercehub/backend/internal/domain/inventory"
	"github.com/commercehub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormBalanceRepository implements BalanceRepository using GORM
type GormBalanceRepository struct {
	db *gorm.DB
}

// NewGormBalanceRepository creates a new GormBalanceRepository
func NewGormBalanceRepository(db *gorm.DB) *GormBalanceRepository {
	return &GormBalanceRepository{db: db}
}

// FindByID finds a balance by ID within a tenant
func (r *GormBalanceRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*inventory.InventoryBalance, error) {
	var balance inventory.InventoryBalance
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&balance).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Inventory balance not found")
		}
		return nil, err
	}
	return &balance, nil
}

// FindByProductLocation finds the balance for a product at a location
func (r *GormBalanceRepository) FindByProductLocation(ctx context.Context, tenantID, productID, locationID uuid.UUID) (*inventory.InventoryBalance, error) {
	var balance inventory.InventoryBalance
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND product_id = ? AND location_id = ?", tenantID, productID, locationID).
		First(&balance).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Inventory balance not found")
		}
		return nil, err
	}
	return &balance, nil
}

// GetOrCreateLocked returns the balance row under a FOR UPDATE lock, creating
// it empty first if it does not exist. The insert uses ON CONFLICT DO NOTHING
// so concurrent first postings for the same scope converge on one row.
func (r *GormBalanceRepository) GetOrCreateLocked(ctx context.Context, tenantID uuid.UUID, key inventory.BalanceKey) (*inventory.InventoryBalance, error) {
	balance, err := r.findLocked(ctx, tenantID, key)
	if err == nil {
		return balance, nil
	}
	if !shared.IsCode(err, shared.CodeNotFound) {
		return nil, err
	}

	created, err := inventory.NewInventoryBalance(tenantID, key.ProductID, key.LocationID)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "product_id"}, {Name: "location_id"}},
			DoNothing: true,
		}).
		Create(created).Error; err != nil {
		return nil, err
	}

	// Lock the row we just created, or the one a concurrent transaction won with
	return r.findLocked(ctx, tenantID, key)
}

func (r *GormBalanceRepository) findLocked(ctx context.Context, tenantID uuid.UUID, key inventory.BalanceKey) (*inventory.InventoryBalance, error) {
	var balance inventory.InventoryBalance
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND product_id = ? AND location_id = ?", tenantID, key.ProductID, key.LocationID).
		First(&balance).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Inventory balance not found")
		}
		return nil, err
	}
	return &balance, nil
}

// Save persists a balance
func (r *GormBalanceRepository) Save(ctx context.Context, balance *inventory.InventoryBalance) error {
	return r.db.WithContext(ctx).Save(balance).Error
}

// FindByProduct lists balances for a product across locations
func (r *GormBalanceRepository) FindByProduct(ctx context.Context, tenantID, productID uuid.UUID) ([]*inventory.InventoryBalance, error) {
	var balances []*inventory.InventoryBalance
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND product_id = ?", tenantID, productID).
		Order("location_id ASC").
		Find(&balances).Error; err != nil {
		return nil, err
	}
	return balances, nil
}

// FindAll lists balances with pagination
func (r *GormBalanceRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (shared.Paginated[*inventory.InventoryBalance], error) {
	var empty shared.Paginated[*inventory.InventoryBalance]

	query := r.db.WithContext(ctx).
		Model(&inventory.InventoryBalance{}).
		Where("tenant_id = ?", tenantID)
	query = applyBalanceFilters(query, filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return empty, err
	}

	var balances []*inventory.InventoryBalance
	if err := applyPagination(query, filter, BalanceSortFields).Find(&balances).Error; err != nil {
		return empty, err
	}
	return shared.NewPaginated(balances, total, filter.Page, filter.PageSize), nil
}

func applyBalanceFilters(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "product_id":
			query = query.Where("product_id = ?", value)
		case "location_id":
			query = query.Where("location_id = ?", value)
		case "has_stock":
			if value == true {
				query = query.Where("on_hand_quantity > 0")
			}
		case "negative":
			if value == true {
				query = query.Where("on_hand_quantity < 0")
			}
		}
	}
	return query
}

// applyPagination applies ordering and pagination shared by the list queries
func applyPagination(query *gorm.DB, filter shared.Filter, sortFields map[string]bool) *gorm.DB {
	orderBy := ValidateSortField(filter.OrderBy, sortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(orderBy + " " + orderDir)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}
	return query
}

// Ensure GormBalanceRepository implements BalanceRepository
var _ inventory.BalanceRepository = (*GormBalanceRepository)(nil)
