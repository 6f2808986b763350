package inventory

import (
	"github.com/commercehub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type constants
const (
	EventTypeStockReceived        = "inventory.stock_received"
	EventTypeStockIssued          = "inventory.stock_issued"
	EventTypeStockAdjusted        = "inventory.stock_adjusted"
	EventTypeMovementReversed     = "inventory.movement_reversed"
	EventTypeStockReserved        = "inventory.stock_reserved"
	EventTypeReservationReleased  = "inventory.reservation_released"
	EventTypeReservationExpired   = "inventory.reservation_expired"
	EventTypeReservationFulfilled = "inventory.reservation_fulfilled"
	EventTypeTransferShipped      = "inventory.transfer_shipped"
	EventTypeTransferReceived     = "inventory.transfer_received"
	EventTypeTransferCancelled    = "inventory.transfer_cancelled"
)

// StockReceivedEvent fires when inbound stock is posted
type StockReceivedEvent struct {
	shared.BaseDomainEvent
	ProductID  uuid.UUID       `json:"product_id"`
	LocationID uuid.UUID       `json:"location_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
	Reference  string          `json:"reference"`
}

// NewStockReceivedEvent creates a stock received event
func NewStockReceivedEvent(movement *StockMovement) *StockReceivedEvent {
	return &StockReceivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockReceived, "StockMovement", movement.ID, movement.TenantID),
		ProductID:       movement.ProductID,
		LocationID:      movement.LocationID,
		Quantity:        movement.Quantity,
		UnitCost:        movement.UnitCost,
		Reference:       movement.ReferenceType + ":" + movement.ReferenceID,
	}
}

// EventType returns the event type
func (e *StockReceivedEvent) EventType() string {
	return EventTypeStockReceived
}

// StockIssuedEvent fires when outbound stock is posted
type StockIssuedEvent struct {
	shared.BaseDomainEvent
	ProductID  uuid.UUID       `json:"product_id"`
	LocationID uuid.UUID       `json:"location_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	TotalCost  decimal.Decimal `json:"total_cost"`
	Reference  string          `json:"reference"`
}

// NewStockIssuedEvent creates a stock issued event
func NewStockIssuedEvent(movement *StockMovement) *StockIssuedEvent {
	return &StockIssuedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockIssued, "StockMovement", movement.ID, movement.TenantID),
		ProductID:       movement.ProductID,
		LocationID:      movement.LocationID,
		Quantity:        movement.Quantity,
		TotalCost:       movement.TotalCost,
		Reference:       movement.ReferenceType + ":" + movement.ReferenceID,
	}
}

// EventType returns the event type
func (e *StockIssuedEvent) EventType() string {
	return EventTypeStockIssued
}

// StockAdjustedEvent fires when an adjustment movement is posted
type StockAdjustedEvent struct {
	shared.BaseDomainEvent
	ProductID    uuid.UUID       `json:"product_id"`
	LocationID   uuid.UUID       `json:"location_id"`
	MovementType MovementType    `json:"movement_type"`
	Quantity     decimal.Decimal `json:"quantity"`
	Note         string          `json:"note"`
}

// NewStockAdjustedEvent creates a stock adjusted event
func NewStockAdjustedEvent(movement *StockMovement) *StockAdjustedEvent {
	return &StockAdjustedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockAdjusted, "StockMovement", movement.ID, movement.TenantID),
		ProductID:       movement.ProductID,
		LocationID:      movement.LocationID,
		MovementType:    movement.MovementType,
		Quantity:        movement.Quantity,
		Note:            movement.Note,
	}
}

// EventType returns the event type
func (e *StockAdjustedEvent) EventType() string {
	return EventTypeStockAdjusted
}

// MovementReversedEvent fires when a movement is reversed
type MovementReversedEvent struct {
	shared.BaseDomainEvent
	OriginalMovementID uuid.UUID `json:"original_movement_id"`
	ReversalMovementID uuid.UUID `json:"reversal_movement_id"`
}

// NewMovementReversedEvent creates a movement reversed event
func NewMovementReversedEvent(original *StockMovement, reversal *StockMovement) *MovementReversedEvent {
	return &MovementReversedEvent{
		BaseDomainEvent:    shared.NewBaseDomainEvent(EventTypeMovementReversed, "StockMovement", original.ID, original.TenantID),
		OriginalMovementID: original.ID,
		ReversalMovementID: reversal.ID,
	}
}

// EventType returns the event type
func (e *MovementReversedEvent) EventType() string {
	return EventTypeMovementReversed
}

// StockReservedEvent fires when a reservation is placed
type StockReservedEvent struct {
	shared.BaseDomainEvent
	ProductID  uuid.UUID       `json:"product_id"`
	LocationID uuid.UUID       `json:"location_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	Reference  string          `json:"reference"`
}

// NewStockReservedEvent creates a stock reserved event
func NewStockReservedEvent(reservation *StockReservation) *StockReservedEvent {
	return &StockReservedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockReserved, "StockReservation", reservation.ID, reservation.TenantID),
		ProductID:       reservation.ProductID,
		LocationID:      reservation.LocationID,
		Quantity:        reservation.Quantity,
		Reference:       reservation.ReferenceType + ":" + reservation.ReferenceID,
	}
}

// EventType returns the event type
func (e *StockReservedEvent) EventType() string {
	return EventTypeStockReserved
}

// ReservationReleasedEvent fires when a reservation is released
type ReservationReleasedEvent struct {
	shared.BaseDomainEvent
	ProductID  uuid.UUID       `json:"product_id"`
	LocationID uuid.UUID       `json:"location_id"`
	Quantity   decimal.Decimal `json:"quantity"`
}

// NewReservationReleasedEvent creates a reservation released event
func NewReservationReleasedEvent(reservation *StockReservation) *ReservationReleasedEvent {
	return &ReservationReleasedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReservationReleased, "StockReservation", reservation.ID, reservation.TenantID),
		ProductID:       reservation.ProductID,
		LocationID:      reservation.LocationID,
		Quantity:        reservation.Quantity,
	}
}

// EventType returns the event type
func (e *ReservationReleasedEvent) EventType() string {
	return EventTypeReservationReleased
}

// ReservationExpiredEvent fires when the sweep expires a reservation
type ReservationExpiredEvent struct {
	shared.BaseDomainEvent
	ProductID  uuid.UUID       `json:"product_id"`
	LocationID uuid.UUID       `json:"location_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	Reference  string          `json:"reference"`
}

// NewReservationExpiredEvent creates a reservation expired event
func NewReservationExpiredEvent(reservation *StockReservation) *ReservationExpiredEvent {
	return &ReservationExpiredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReservationExpired, "StockReservation", reservation.ID, reservation.TenantID),
		ProductID:       reservation.ProductID,
		LocationID:      reservation.LocationID,
		Quantity:        reservation.Quantity,
		Reference:       reservation.ReferenceType + ":" + reservation.ReferenceID,
	}
}

// EventType returns the event type
func (e *ReservationExpiredEvent) EventType() string {
	return EventTypeReservationExpired
}

// ReservationFulfilledEvent fires when a reservation converts to an outbound
type ReservationFulfilledEvent struct {
	shared.BaseDomainEvent
	ProductID  uuid.UUID       `json:"product_id"`
	LocationID uuid.UUID       `json:"location_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	MovementID uuid.UUID       `json:"movement_id"`
}

// NewReservationFulfilledEvent creates a reservation fulfilled event
func NewReservationFulfilledEvent(reservation *StockReservation, movementID uuid.UUID) *ReservationFulfilledEvent {
	return &ReservationFulfilledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReservationFulfilled, "StockReservation", reservation.ID, reservation.TenantID),
		ProductID:       reservation.ProductID,
		LocationID:      reservation.LocationID,
		Quantity:        reservation.Quantity,
		MovementID:      movementID,
	}
}

// EventType returns the event type
func (e *ReservationFulfilledEvent) EventType() string {
	return EventTypeReservationFulfilled
}

// TransferShippedEvent fires when a transfer leaves its source location
type TransferShippedEvent struct {
	shared.BaseDomainEvent
	TransferNumber string    `json:"transfer_number"`
	FromLocationID uuid.UUID `json:"from_location_id"`
	ToLocationID   uuid.UUID `json:"to_location_id"`
	ItemCount      int       `json:"item_count"`
}

// NewTransferShippedEvent creates a transfer shipped event
func NewTransferShippedEvent(transfer *Transfer) *TransferShippedEvent {
	return &TransferShippedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTransferShipped, "Transfer", transfer.ID, transfer.TenantID),
		TransferNumber:  transfer.TransferNumber,
		FromLocationID:  transfer.FromLocationID,
		ToLocationID:    transfer.ToLocationID,
		ItemCount:       len(transfer.Items),
	}
}

// EventType returns the event type
func (e *TransferShippedEvent) EventType() string {
	return EventTypeTransferShipped
}

// TransferReceivedEvent fires when a transfer arrives at its destination
type TransferReceivedEvent struct {
	shared.BaseDomainEvent
	TransferNumber string `json:"transfer_number"`
	HasShortage    bool   `json:"has_shortage"`
}

// NewTransferReceivedEvent creates a transfer received event
func NewTransferReceivedEvent(transfer *Transfer) *TransferReceivedEvent {
	hasShortage := false
	for i := range transfer.Items {
		if transfer.Items[i].ShortageQuantity().GreaterThan(decimal.Zero) {
			hasShortage = true
			break
		}
	}
	return &TransferReceivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTransferReceived, "Transfer", transfer.ID, transfer.TenantID),
		TransferNumber:  transfer.TransferNumber,
		HasShortage:     hasShortage,
	}
}

// EventType returns the event type
func (e *TransferReceivedEvent) EventType() string {
	return EventTypeTransferReceived
}

// TransferCancelledEvent fires when a transfer is cancelled
type TransferCancelledEvent struct {
	shared.BaseDomainEvent
	TransferNumber string `json:"transfer_number"`
	StockReturned  bool   `json:"stock_returned"`
}

// NewTransferCancelledEvent creates a transfer cancelled event
func NewTransferCancelledEvent(transfer *Transfer, stockReturned bool) *TransferCancelledEvent {
	return &TransferCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTransferCancelled, "Transfer", transfer.ID, transfer.TenantID),
		TransferNumber:  transfer.TransferNumber,
		StockReturned:   stockReturned,
	}
}

// EventType returns the event type
func (e *TransferCancelledEvent) EventType() string {
	return EventTypeTransferCancelled
}
