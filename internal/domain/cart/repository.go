package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CartRepository persists carts
type CartRepository interface {
	// FindByID finds a cart with its items by ID
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Cart, error)

	// FindActiveByCustomer finds the customer's active cart, if any
	FindActiveByCustomer(ctx context.Context, tenantID, customerID uuid.UUID) (*Cart, error)

	// FindStale lists active carts with no activity since cutoff, across all
	// tenants, capped at limit
	FindStale(ctx context.Context, cutoff time.Time, limit int) ([]*Cart, error)

	// Save persists a cart with its items
	Save(ctx context.Context, c *Cart) error

	// Delete removes a cart and its items
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}
