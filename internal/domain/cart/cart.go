package cart

import (
	"time"

	"github.com/commercehub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartStatus is the lifecycle state of a shopping cart
type CartStatus string

const (
	CartStatusActive     CartStatus = "ACTIVE"
	CartStatusCheckedOut CartStatus = "CHECKED_OUT"
	CartStatusAbandoned  CartStatus = "ABANDONED"
)

// CartItem is one product line in a cart
type CartItem struct {
	shared.BaseEntity
	CartID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null"`
	Quantity  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (CartItem) TableName() string {
	return "cart_items"
}

// Cart holds a customer's pending items. Stock for cart items is held
// through reservations referencing the cart; an abandoned cart's
// reservations are swept back into availability.
type Cart struct {
	shared.TenantAggregateRoot
	CustomerID     uuid.UUID  `gorm:"type:uuid;not null;index"`
	Status         CartStatus `gorm:"type:varchar(20);not null;default:'ACTIVE';index"`
	LastActivityAt time.Time  `gorm:"not null;index"`
	Items          []CartItem `gorm:"foreignKey:CartID"`
}

// TableName returns the table name for GORM
func (Cart) TableName() string {
	return "carts"
}

// NewCart creates an active cart for a customer
func NewCart(tenantID, customerID uuid.UUID) (*Cart, error) {
	if customerID == uuid.Nil {
		return nil, shared.NewValidationError("Customer ID cannot be empty")
	}
	return &Cart{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		CustomerID:          customerID,
		Status:              CartStatusActive,
		LastActivityAt:      time.Now(),
	}, nil
}

// IsActive reports whether the cart can still be modified
func (c *Cart) IsActive() bool {
	return c.Status == CartStatusActive
}

// TouchActivity records customer activity on the cart
func (c *Cart) TouchActivity() {
	c.LastActivityAt = time.Now()
	c.Touch()
}

// AddItem adds a product line or increases an existing line's quantity
func (c *Cart) AddItem(productID uuid.UUID, quantity decimal.Decimal) error {
	if !c.IsActive() {
		return shared.NewStateConflictError("Cart is not active")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewValidationError("Item quantity must be positive")
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity = c.Items[i].Quantity.Add(quantity)
			c.Items[i].Touch()
			c.TouchActivity()
			return nil
		}
	}
	c.Items = append(c.Items, CartItem{
		BaseEntity: shared.NewBaseEntity(),
		CartID:     c.ID,
		ProductID:  productID,
		Quantity:   quantity,
	})
	c.TouchActivity()
	return nil
}

// Checkout closes the cart after its reservations are fulfilled
func (c *Cart) Checkout() error {
	if !c.IsActive() {
		return shared.NewStateConflictError("Cart is not active")
	}
	c.Status = CartStatusCheckedOut
	c.TouchActivity()
	c.IncrementVersion()
	return nil
}

// Abandon marks a stale cart as abandoned. Idempotent against carts that
// already left the active state.
func (c *Cart) Abandon() (changed bool) {
	if !c.IsActive() {
		return false
	}
	c.Status = CartStatusAbandoned
	c.Touch()
	c.IncrementVersion()
	return true
}

// IsStaleAt reports whether an active cart has seen no activity since cutoff
func (c *Cart) IsStaleAt(cutoff time.Time) bool {
	return c.IsActive() && c.LastActivityAt.Before(cutoff)
}
