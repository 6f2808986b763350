package inventory

import (
	"time"

	"github.com/commercehub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReservationStatus is the lifecycle state of a stock reservation
type ReservationStatus string

const (
	ReservationStatusActive    ReservationStatus = "ACTIVE"
	ReservationStatusReleased  ReservationStatus = "RELEASED"
	ReservationStatusExpired   ReservationStatus = "EXPIRED"
	ReservationStatusFulfilled ReservationStatus = "FULFILLED"
)

// IsValid checks if the reservation status is valid
func (s ReservationStatus) IsValid() bool {
	switch s {
	case ReservationStatusActive, ReservationStatusReleased,
		ReservationStatusExpired, ReservationStatusFulfilled:
		return true
	}
	return false
}

// IsTerminal reports whether the status permits no further transitions
func (s ReservationStatus) IsTerminal() bool {
	return s != ReservationStatusActive
}

// StockReservation withholds available quantity for a pending business
// document (typically a cart) without moving stock. Only ACTIVE reservations
// count against availability; all other states are terminal.
type StockReservation struct {
	shared.TenantAggregateRoot
	ProductID     uuid.UUID         `gorm:"type:uuid;not null;index"`
	LocationID    uuid.UUID         `gorm:"type:uuid;not null;index"`
	Quantity      decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	ReferenceType string            `gorm:"type:varchar(50);not null;index:idx_reservation_ref,priority:1"`
	ReferenceID   string            `gorm:"type:varchar(100);not null;index:idx_reservation_ref,priority:2"`
	Status        ReservationStatus `gorm:"type:varchar(20);not null;default:'ACTIVE';index"`
	ExpiresAt     *time.Time        `gorm:"index"`
	ReleasedAt    *time.Time        `gorm:""`
	FulfilledAt   *time.Time        `gorm:""`
}

// TableName returns the table name for GORM
func (StockReservation) TableName() string {
	return "stock_reservations"
}

// NewStockReservation creates an active reservation
func NewStockReservation(tenantID, productID, locationID uuid.UUID, quantity decimal.Decimal, referenceType, referenceID string, expiresAt *time.Time) (*StockReservation, error) {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewValidationError("Reservation quantity must be positive")
	}
	if referenceType == "" || referenceID == "" {
		return nil, shared.NewValidationError("Reservation reference cannot be empty")
	}
	if expiresAt != nil && !expiresAt.After(time.Now()) {
		return nil, shared.NewValidationError("Reservation expiry must be in the future")
	}

	return &StockReservation{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		ProductID:           productID,
		LocationID:          locationID,
		Quantity:            quantity,
		ReferenceType:       referenceType,
		ReferenceID:         referenceID,
		Status:              ReservationStatusActive,
		ExpiresAt:           expiresAt,
	}, nil
}

// IsActive reports whether the reservation still holds stock
func (r *StockReservation) IsActive() bool {
	return r.Status == ReservationStatusActive
}

// IsExpiredAt reports whether an active reservation has passed its expiry
func (r *StockReservation) IsExpiredAt(now time.Time) bool {
	return r.IsActive() && r.ExpiresAt != nil && !r.ExpiresAt.After(now)
}

// Release returns the held quantity to the available pool. Releasing a
// reservation that already reached a terminal state is a no-op; the changed
// result tells the caller whether the balance must be adjusted.
func (r *StockReservation) Release() (changed bool) {
	if !r.IsActive() {
		return false
	}
	now := time.Now()
	r.Status = ReservationStatusReleased
	r.ReleasedAt = &now
	r.Touch()
	r.IncrementVersion()
	return true
}

// Expire marks an active reservation as expired by the sweep. Like Release
// it is idempotent against terminal states.
func (r *StockReservation) Expire() (changed bool) {
	if !r.IsActive() {
		return false
	}
	now := time.Now()
	r.Status = ReservationStatusExpired
	r.ReleasedAt = &now
	r.Touch()
	r.IncrementVersion()
	return true
}

// Fulfill converts the reservation into an actual stock removal. Unlike
// Release and Expire it fails on non-active reservations because a fulfilled
// outbound must not be posted twice.
func (r *StockReservation) Fulfill() error {
	if !r.IsActive() {
		return shared.NewStateConflictError("Reservation is not active")
	}
	now := time.Now()
	r.Status = ReservationStatusFulfilled
	r.FulfilledAt = &now
	r.Touch()
	r.IncrementVersion()
	return nil
}

// ChangeQuantity updates the held quantity of an active reservation.
// The caller adjusts the balance by the returned delta.
func (r *StockReservation) ChangeQuantity(quantity decimal.Decimal) (delta decimal.Decimal, err error) {
	if !r.IsActive() {
		return decimal.Zero, shared.NewStateConflictError("Reservation is not active")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, shared.NewValidationError("Reservation quantity must be positive")
	}
	delta = quantity.Sub(r.Quantity)
	r.Quantity = quantity
	r.Touch()
	r.IncrementVersion()
	return delta, nil
}

// ChangeExpiry moves the expiry of an active reservation. A nil expiry makes
// the hold open-ended.
func (r *StockReservation) ChangeExpiry(expiresAt *time.Time) error {
	if !r.IsActive() {
		return shared.NewStateConflictError("Reservation is not active")
	}
	if expiresAt != nil && !expiresAt.After(time.Now()) {
		return shared.NewValidationError("Reservation expiry must be in the future")
	}
	r.ExpiresAt = expiresAt
	r.Touch()
	r.IncrementVersion()
	return nil
}
