package inventory

import (
	"time"

	"github.com/commercehub/backend/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockInItem is one inbound line; it opens a cost layer at the given unit cost
type StockInItem struct {
	ProductID uuid.UUID       `json:"product_id" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity" validate:"required"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
	BatchID   string          `json:"batch_id"`
}

// StockInRequest posts the inbound lines of one business document. The
// reference identifies the document; all lines post atomically under it.
type StockInRequest struct {
	LocationID    uuid.UUID     `json:"location_id" validate:"required"`
	Items         []StockInItem `json:"items" validate:"required,min=1,dive"`
	ReferenceType string        `json:"reference_type" validate:"required"`
	ReferenceID   string        `json:"reference_id" validate:"required"`
	Note          string        `json:"note"`
}

// StockOutItem is one outbound line costed FIFO from the open layers
type StockOutItem struct {
	ProductID uuid.UUID       `json:"product_id" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity" validate:"required"`
}

// StockOutRequest posts the outbound lines of one business document. A line
// short on stock fails the whole document.
type StockOutRequest struct {
	LocationID    uuid.UUID      `json:"location_id" validate:"required"`
	Items         []StockOutItem `json:"items" validate:"required,min=1,dive"`
	ReferenceType string         `json:"reference_type" validate:"required"`
	ReferenceID   string         `json:"reference_id" validate:"required"`
	// AllowBackorder lets on-hand go negative. It is honored only for
	// reference types the backorder policy allows.
	AllowBackorder bool   `json:"allow_backorder"`
	Note           string `json:"note"`
}

// AdjustStockItem is one correction line. Quantity is signed: positive adds
// stock at the given unit cost, negative removes it costed FIFO.
type AdjustStockItem struct {
	ProductID uuid.UUID       `json:"product_id" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity" validate:"required"`
	UnitCost  decimal.Decimal `json:"unit_cost"` // required for positive quantities
}

// AdjustStockRequest corrects on-hand stock in either direction
type AdjustStockRequest struct {
	LocationID  uuid.UUID         `json:"location_id" validate:"required"`
	Items       []AdjustStockItem `json:"items" validate:"required,min=1,dive"`
	ReferenceID string            `json:"reference_id" validate:"required"`
	Reason      string            `json:"reason" validate:"required"`
}

// MovementResult describes one posted ledger entry
type MovementResult struct {
	MovementID    uuid.UUID                `json:"movement_id"`
	MovementType  inventory.MovementType   `json:"movement_type"`
	Status        inventory.MovementStatus `json:"status"`
	ProductID     uuid.UUID                `json:"product_id"`
	LocationID    uuid.UUID                `json:"location_id"`
	Quantity      decimal.Decimal          `json:"quantity"`
	UnitCost      decimal.Decimal          `json:"unit_cost"`
	TotalCost     decimal.Decimal          `json:"total_cost"`
	BalanceAfter  decimal.Decimal          `json:"balance_after"`
	ReferenceType string                   `json:"reference_type"`
	ReferenceID   string                   `json:"reference_id"`
	CreatedAt     time.Time                `json:"created_at"`
}

func movementResult(m *inventory.StockMovement) *MovementResult {
	return &MovementResult{
		MovementID:    m.ID,
		MovementType:  m.MovementType,
		Status:        m.Status,
		ProductID:     m.ProductID,
		LocationID:    m.LocationID,
		Quantity:      m.Quantity,
		UnitCost:      m.UnitCost,
		TotalCost:     m.TotalCost,
		BalanceAfter:  m.BalanceAfter,
		ReferenceType: m.ReferenceType,
		ReferenceID:   m.ReferenceID,
		CreatedAt:     m.CreatedAt,
	}
}

// MovementBatchResult lists the ledger entries one document posted. A retry
// of the same reference returns the original batch flagged duplicate.
type MovementBatchResult struct {
	ReferenceType string            `json:"reference_type"`
	ReferenceID   string            `json:"reference_id"`
	Duplicate     bool              `json:"duplicate,omitempty"`
	Movements     []*MovementResult `json:"movements"`
}

func movementBatchResult(movements []*inventory.StockMovement, referenceType, referenceID string, duplicate bool) *MovementBatchResult {
	batch := &MovementBatchResult{
		ReferenceType: referenceType,
		ReferenceID:   referenceID,
		Duplicate:     duplicate,
	}
	for _, m := range movements {
		batch.Movements = append(batch.Movements, movementResult(m))
	}
	return batch
}

// BalanceResult describes one product-location balance
type BalanceResult struct {
	ProductID         uuid.UUID       `json:"product_id"`
	LocationID        uuid.UUID       `json:"location_id"`
	OnHandQuantity    decimal.Decimal `json:"on_hand_quantity"`
	ReservedQuantity  decimal.Decimal `json:"reserved_quantity"`
	AvailableQuantity decimal.Decimal `json:"available_quantity"`
}

func balanceResult(b *inventory.InventoryBalance) *BalanceResult {
	return &BalanceResult{
		ProductID:         b.ProductID,
		LocationID:        b.LocationID,
		OnHandQuantity:    b.OnHandQuantity,
		ReservedQuantity:  b.ReservedQuantity,
		AvailableQuantity: b.AvailableQuantity(),
	}
}

// ValuationLayerResult describes one open cost layer
type ValuationLayerResult struct {
	LayerID           uuid.UUID       `json:"layer_id"`
	Sequence          int64           `json:"sequence"`
	OriginalQuantity  decimal.Decimal `json:"original_quantity"`
	RemainingQuantity decimal.Decimal `json:"remaining_quantity"`
	UnitCost          decimal.Decimal `json:"unit_cost"`
	RemainingValue    decimal.Decimal `json:"remaining_value"`
	BatchID           string          `json:"batch_id,omitempty"`
}

// ValuationReport summarizes inventory value for a product at a location
type ValuationReport struct {
	ProductID      uuid.UUID              `json:"product_id"`
	LocationID     uuid.UUID              `json:"location_id"`
	OnHandQuantity decimal.Decimal        `json:"on_hand_quantity"`
	TotalValue     decimal.Decimal        `json:"total_value"`
	AverageCost    decimal.Decimal        `json:"average_cost"`
	Layers         []ValuationLayerResult `json:"layers"`
}

// ReserveStockRequest places a reservation against available stock
type ReserveStockRequest struct {
	ProductID     uuid.UUID       `json:"product_id" validate:"required"`
	LocationID    uuid.UUID       `json:"location_id" validate:"required"`
	Quantity      decimal.Decimal `json:"quantity" validate:"required"`
	ReferenceType string          `json:"reference_type" validate:"required"`
	ReferenceID   string          `json:"reference_id" validate:"required"`
	TTL           time.Duration   `json:"ttl"` // zero means the configured default
}

// ReservationResult describes one reservation
type ReservationResult struct {
	ReservationID uuid.UUID                   `json:"reservation_id"`
	ProductID     uuid.UUID                   `json:"product_id"`
	LocationID    uuid.UUID                   `json:"location_id"`
	Quantity      decimal.Decimal             `json:"quantity"`
	ReferenceType string                      `json:"reference_type"`
	ReferenceID   string                      `json:"reference_id"`
	Status        inventory.ReservationStatus `json:"status"`
	ExpiresAt     *time.Time                  `json:"expires_at,omitempty"`
}

func reservationResult(r *inventory.StockReservation) *ReservationResult {
	return &ReservationResult{
		ReservationID: r.ID,
		ProductID:     r.ProductID,
		LocationID:    r.LocationID,
		Quantity:      r.Quantity,
		ReferenceType: r.ReferenceType,
		ReferenceID:   r.ReferenceID,
		Status:        r.Status,
		ExpiresAt:     r.ExpiresAt,
	}
}

// FulfillReservationRequest converts a reservation into an outbound posting
type FulfillReservationRequest struct {
	ReservationID uuid.UUID `json:"reservation_id" validate:"required"`
	ReferenceType string    `json:"reference_type" validate:"required"`
	ReferenceID   string    `json:"reference_id" validate:"required"`
	Note          string    `json:"note"`
}

// CreateTransferRequest opens a transfer between two locations
type CreateTransferRequest struct {
	FromLocationID uuid.UUID             `json:"from_location_id" validate:"required"`
	ToLocationID   uuid.UUID             `json:"to_location_id" validate:"required"`
	Note           string                `json:"note"`
	Items          []TransferItemRequest `json:"items" validate:"required,min=1,dive"`
	// ShipImmediately skips the draft stage: the transfer is shipped in the
	// creating transaction and comes back in transit
	ShipImmediately bool `json:"ship_immediately"`
}

// TransferItemRequest is one requested product line
type TransferItemRequest struct {
	ProductID uuid.UUID       `json:"product_id" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity" validate:"required"`
}

// ReceiveTransferRequest reports the received quantities for a transfer
type ReceiveTransferRequest struct {
	TransferID uuid.UUID                `json:"transfer_id" validate:"required"`
	Receipts   []TransferReceiptRequest `json:"receipts" validate:"required,min=1,dive"`
}

// TransferReceiptRequest is the received quantity reported for one item
type TransferReceiptRequest struct {
	ItemID           uuid.UUID       `json:"item_id" validate:"required"`
	ReceivedQuantity decimal.Decimal `json:"received_quantity"`
	ShortageReason   string          `json:"shortage_reason"`
}

// TransferItemResult describes one transfer line
type TransferItemResult struct {
	ItemID            uuid.UUID       `json:"item_id"`
	ProductID         uuid.UUID       `json:"product_id"`
	RequestedQuantity decimal.Decimal `json:"requested_quantity"`
	ShippedQuantity   decimal.Decimal `json:"shipped_quantity"`
	ReceivedQuantity  decimal.Decimal `json:"received_quantity"`
	UnitCost          decimal.Decimal `json:"unit_cost"`
	ShortageReason    string          `json:"shortage_reason,omitempty"`
}

// TransferResult describes one transfer with its items
type TransferResult struct {
	TransferID     uuid.UUID                `json:"transfer_id"`
	TransferNumber string                   `json:"transfer_number"`
	FromLocationID uuid.UUID                `json:"from_location_id"`
	ToLocationID   uuid.UUID                `json:"to_location_id"`
	Status         inventory.TransferStatus `json:"status"`
	Note           string                   `json:"note,omitempty"`
	ShippedAt      *time.Time               `json:"shipped_at,omitempty"`
	ReceivedAt     *time.Time               `json:"received_at,omitempty"`
	CancelledAt    *time.Time               `json:"cancelled_at,omitempty"`
	Items          []TransferItemResult     `json:"items"`
}

func transferResult(t *inventory.Transfer) *TransferResult {
	result := &TransferResult{
		TransferID:     t.ID,
		TransferNumber: t.TransferNumber,
		FromLocationID: t.FromLocationID,
		ToLocationID:   t.ToLocationID,
		Status:         t.Status,
		Note:           t.Note,
		ShippedAt:      t.ShippedAt,
		ReceivedAt:     t.ReceivedAt,
		CancelledAt:    t.CancelledAt,
	}
	for i := range t.Items {
		item := &t.Items[i]
		result.Items = append(result.Items, TransferItemResult{
			ItemID:            item.ID,
			ProductID:         item.ProductID,
			RequestedQuantity: item.RequestedQuantity,
			ShippedQuantity:   item.ShippedQuantity,
			ReceivedQuantity:  item.ReceivedQuantity,
			UnitCost:          item.UnitCost,
			ShortageReason:    item.ShortageReason,
		})
	}
	return result
}
