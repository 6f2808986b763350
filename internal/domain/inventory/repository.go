package inventory

import (
	"context"
	"time"

	"github.com/commercehub/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// BalanceKey identifies one balance row for locking purposes
type BalanceKey struct {
	ProductID  uuid.UUID
	LocationID uuid.UUID
}

// BalanceRepository persists inventory balances
type BalanceRepository interface {
	// FindByID finds a balance by ID
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*InventoryBalance, error)

	// FindByProductLocation finds the balance for a product at a location
	FindByProductLocation(ctx context.Context, tenantID, productID, locationID uuid.UUID) (*InventoryBalance, error)

	// GetOrCreateLocked returns the balance row under a row lock, creating it
	// empty first if it does not exist. Callers locking more than one key in
	// the same transaction must pass keys in ascending (LocationID, ProductID)
	// order to keep a global lock order.
	GetOrCreateLocked(ctx context.Context, tenantID uuid.UUID, key BalanceKey) (*InventoryBalance, error)

	// Save persists a balance
	Save(ctx context.Context, balance *InventoryBalance) error

	// FindByProduct lists balances for a product across locations
	FindByProduct(ctx context.Context, tenantID, productID uuid.UUID) ([]*InventoryBalance, error)

	// FindAll lists balances with pagination
	FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (shared.Paginated[*InventoryBalance], error)
}

// LayerRepository persists valuation layers
type LayerRepository interface {
	// FindByID finds a layer by ID
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ValuationLayer, error)

	// FindOpenByScope lists layers with remaining quantity for a product at a
	// location, ordered by ascending sequence
	FindOpenByScope(ctx context.Context, tenantID, productID, locationID uuid.UUID) ([]*ValuationLayer, error)

	// FindByScope lists all layers for a product at a location, exhausted
	// included, ordered by ascending sequence
	FindByScope(ctx context.Context, tenantID, productID, locationID uuid.UUID) ([]*ValuationLayer, error)

	// NextSequence returns the next FIFO sequence for the scope. Must be
	// called while the scope's balance row is locked.
	NextSequence(ctx context.Context, tenantID, productID, locationID uuid.UUID) (int64, error)

	// Save persists a layer
	Save(ctx context.Context, layer *ValuationLayer) error

	// SaveAll persists multiple layers
	SaveAll(ctx context.Context, layers []*ValuationLayer) error
}

// MovementRepository persists the stock movement ledger
type MovementRepository interface {
	// FindByID finds a movement by ID
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*StockMovement, error)

	// FindByReference lists movements for a business document
	FindByReference(ctx context.Context, tenantID uuid.UUID, referenceType, referenceID string) ([]*StockMovement, error)

	// ExistsByReference reports whether a movement of the given type already
	// exists for the reference. This is the transactional idempotency guard.
	ExistsByReference(ctx context.Context, tenantID uuid.UUID, movementType MovementType, referenceType, referenceID string) (bool, error)

	// Save persists a movement
	Save(ctx context.Context, movement *StockMovement) error

	// SaveConsumptions persists the layer breakdown of an outbound movement
	SaveConsumptions(ctx context.Context, consumptions []*MovementConsumption) error

	// FindConsumptions lists the layer breakdown of a movement
	FindConsumptions(ctx context.Context, tenantID, movementID uuid.UUID) ([]*MovementConsumption, error)

	// FindHistory lists movements for a product at a location, newest first
	FindHistory(ctx context.Context, tenantID, productID, locationID uuid.UUID, filter shared.Filter) (shared.Paginated[*StockMovement], error)
}

// ReservationRepository persists stock reservations
type ReservationRepository interface {
	// FindByID finds a reservation by ID
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*StockReservation, error)

	// FindByIDForUpdate finds a reservation by ID under a row lock
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*StockReservation, error)

	// FindActiveByReference lists active reservations for a business document
	FindActiveByReference(ctx context.Context, tenantID uuid.UUID, referenceType, referenceID string) ([]*StockReservation, error)

	// FindExpired lists active reservations whose expiry has passed, across
	// all tenants, capped at limit. The sweep processes each one in its own
	// transaction.
	FindExpired(ctx context.Context, asOf time.Time, limit int) ([]*StockReservation, error)

	// Save persists a reservation
	Save(ctx context.Context, reservation *StockReservation) error

	// FindAll lists reservations with pagination
	FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (shared.Paginated[*StockReservation], error)
}

// TransferRepository persists transfers
type TransferRepository interface {
	// FindByID finds a transfer with its items by ID
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Transfer, error)

	// FindByIDForUpdate finds a transfer with its items under a row lock
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*Transfer, error)

	// FindByNumber finds a transfer by its document number
	FindByNumber(ctx context.Context, tenantID uuid.UUID, transferNumber string) (*Transfer, error)

	// NextTransferNumber generates the next transfer document number
	NextTransferNumber(ctx context.Context, tenantID uuid.UUID) (string, error)

	// Save persists a transfer with its items
	Save(ctx context.Context, transfer *Transfer) error

	// FindAll lists transfers with pagination
	FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (shared.Paginated[*Transfer], error)
}
