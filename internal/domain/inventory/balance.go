package inventory

import (
	"github.com/commercehub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InventoryBalance tracks on-hand and reserved stock for one product at one
// location. It is the aggregate root for all quantity mutations; the
// composite identifier is TenantID + ProductID + LocationID.
//
// Invariant: 0 <= ReservedQuantity <= OnHandQuantity. Negative on-hand is
// reachable only through an explicit backorder flag on the removing operation.
type InventoryBalance struct {
	shared.TenantAggregateRoot
	ProductID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_balance_tenant_product_location,priority:2"`
	LocationID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_balance_tenant_product_location,priority:3"`
	OnHandQuantity   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ReservedQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (InventoryBalance) TableName() string {
	return "inventory_balances"
}

// NewInventoryBalance creates an empty balance for a product-location combination
func NewInventoryBalance(tenantID, productID, locationID uuid.UUID) (*InventoryBalance, error) {
	if productID == uuid.Nil {
		return nil, shared.NewValidationError("Product ID cannot be empty")
	}
	if locationID == uuid.Nil {
		return nil, shared.NewValidationError("Location ID cannot be empty")
	}

	return &InventoryBalance{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		ProductID:           productID,
		LocationID:          locationID,
		OnHandQuantity:      decimal.Zero,
		ReservedQuantity:    decimal.Zero,
	}, nil
}

// AvailableQuantity returns on-hand minus actively reserved quantity
func (b *InventoryBalance) AvailableQuantity() decimal.Decimal {
	return b.OnHandQuantity.Sub(b.ReservedQuantity)
}

// CanFulfill reports whether the available quantity covers the request
func (b *InventoryBalance) CanFulfill(quantity decimal.Decimal) bool {
	return b.AvailableQuantity().GreaterThanOrEqual(quantity)
}

// AddStock increases the on-hand quantity
func (b *InventoryBalance) AddStock(quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewValidationError("Quantity must be positive")
	}
	b.OnHandQuantity = b.OnHandQuantity.Add(quantity)
	b.Touch()
	b.IncrementVersion()
	return nil
}

// RemoveStock decreases the on-hand quantity. The available quantity must
// cover the request unless allowNegative is set (backorder policy).
func (b *InventoryBalance) RemoveStock(quantity decimal.Decimal, allowNegative bool) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewValidationError("Quantity must be positive")
	}
	if !allowNegative && !b.CanFulfill(quantity) {
		return shared.NewInsufficientStockError("Insufficient available stock")
	}
	b.OnHandQuantity = b.OnHandQuantity.Sub(quantity)
	b.Touch()
	b.IncrementVersion()
	return nil
}

// Reserve withholds quantity from the available pool without moving stock
func (b *InventoryBalance) Reserve(quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewValidationError("Reservation quantity must be positive")
	}
	if !b.CanFulfill(quantity) {
		return shared.NewInsufficientStockError("Insufficient available stock to reserve")
	}
	b.ReservedQuantity = b.ReservedQuantity.Add(quantity)
	b.Touch()
	b.IncrementVersion()
	return nil
}

// ReleaseReserved returns a previously reserved quantity to the available pool
func (b *InventoryBalance) ReleaseReserved(quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewValidationError("Release quantity must be positive")
	}
	if b.ReservedQuantity.LessThan(quantity) {
		return shared.NewInvariantViolationError("Reserved quantity below release amount")
	}
	b.ReservedQuantity = b.ReservedQuantity.Sub(quantity)
	b.Touch()
	b.IncrementVersion()
	return nil
}

// CheckReservedBounds verifies 0 <= reserved <= on-hand
func (b *InventoryBalance) CheckReservedBounds() error {
	if b.ReservedQuantity.IsNegative() {
		return shared.NewInvariantViolationError("Reserved quantity is negative")
	}
	if b.ReservedQuantity.GreaterThan(b.OnHandQuantity) {
		return shared.NewInvariantViolationError("Reserved quantity exceeds on-hand quantity")
	}
	return nil
}
