package inventory

import (
	"fmt"
	"time"

	"github.com/commercehub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransferStatus is the lifecycle state of a two-location transfer
type TransferStatus string

const (
	TransferStatusDraft     TransferStatus = "DRAFT"
	TransferStatusInTransit TransferStatus = "IN_TRANSIT"
	TransferStatusReceived  TransferStatus = "RECEIVED"
	TransferStatusCancelled TransferStatus = "CANCELLED"
)

// IsValid checks if the transfer status is valid
func (s TransferStatus) IsValid() bool {
	switch s {
	case TransferStatusDraft, TransferStatusInTransit,
		TransferStatusReceived, TransferStatusCancelled:
		return true
	}
	return false
}

// FormatTransferNumber renders a transfer document number, e.g. TR-2026-00001
func FormatTransferNumber(year, sequence int) string {
	return fmt.Sprintf("TR-%d-%05d", year, sequence)
}

// TransferItem is one product line on a transfer. ShippedQuantity is fixed
// at ship time; ReceivedQuantity may fall short of it, in which case a
// shortage reason is required.
type TransferItem struct {
	shared.BaseEntity
	TransferID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID         uuid.UUID       `gorm:"type:uuid;not null"`
	RequestedQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ShippedQuantity   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ReceivedQuantity  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	UnitCost          decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"` // weighted cost captured at ship time
	ShortageReason    string          `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (TransferItem) TableName() string {
	return "transfer_items"
}

// ShortageQuantity returns shipped minus received
func (i *TransferItem) ShortageQuantity() decimal.Decimal {
	return i.ShippedQuantity.Sub(i.ReceivedQuantity)
}

// Transfer moves stock between two locations of the same tenant. Stock
// leaves the source when the transfer ships and arrives at the destination
// when it is received; in between it is in transit and counted nowhere.
type Transfer struct {
	shared.TenantAggregateRoot
	TransferNumber string         `gorm:"type:varchar(50);not null;uniqueIndex:idx_transfer_tenant_number,priority:2"`
	FromLocationID uuid.UUID      `gorm:"type:uuid;not null;index"`
	ToLocationID   uuid.UUID      `gorm:"type:uuid;not null;index"`
	Status         TransferStatus `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	Note           string         `gorm:"type:text"`
	ShippedAt      *time.Time     `gorm:""`
	ReceivedAt     *time.Time     `gorm:""`
	CancelledAt    *time.Time     `gorm:""`
	Items          []TransferItem `gorm:"foreignKey:TransferID"`
}

// TableName returns the table name for GORM
func (Transfer) TableName() string {
	return "transfers"
}

// TransferItemRequest is a requested product line for a new transfer
type TransferItemRequest struct {
	ProductID uuid.UUID
	Quantity  decimal.Decimal
}

// TransferReceipt is the received quantity reported for one item
type TransferReceipt struct {
	ItemID           uuid.UUID
	ReceivedQuantity decimal.Decimal
	ShortageReason   string
}

// NewTransfer creates a draft transfer between two distinct locations
func NewTransfer(tenantID uuid.UUID, transferNumber string, fromLocationID, toLocationID uuid.UUID, note string, items []TransferItemRequest) (*Transfer, error) {
	if transferNumber == "" {
		return nil, shared.NewValidationError("Transfer number cannot be empty")
	}
	if fromLocationID == uuid.Nil || toLocationID == uuid.Nil {
		return nil, shared.NewValidationError("Transfer locations cannot be empty")
	}
	if fromLocationID == toLocationID {
		return nil, shared.NewValidationError("Transfer source and destination must differ")
	}
	if len(items) == 0 {
		return nil, shared.NewValidationError("Transfer must have at least one item")
	}

	transfer := &Transfer{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		TransferNumber:      transferNumber,
		FromLocationID:      fromLocationID,
		ToLocationID:        toLocationID,
		Status:              TransferStatusDraft,
		Note:                note,
	}

	seen := make(map[uuid.UUID]bool, len(items))
	for _, req := range items {
		if req.ProductID == uuid.Nil {
			return nil, shared.NewValidationError("Transfer item product cannot be empty")
		}
		if req.Quantity.LessThanOrEqual(decimal.Zero) {
			return nil, shared.NewValidationError("Transfer item quantity must be positive")
		}
		if seen[req.ProductID] {
			return nil, shared.NewValidationError("Transfer items must have distinct products")
		}
		seen[req.ProductID] = true

		transfer.Items = append(transfer.Items, TransferItem{
			BaseEntity:        shared.NewBaseEntity(),
			TransferID:        transfer.ID,
			ProductID:         req.ProductID,
			RequestedQuantity: req.Quantity,
		})
	}

	return transfer, nil
}

// Ship moves a draft transfer to in-transit. The shipped quantity of every
// item is fixed to the requested quantity; the stock postings are the
// service's job.
func (t *Transfer) Ship() error {
	if t.Status != TransferStatusDraft {
		return shared.NewStateConflictError(fmt.Sprintf("Cannot ship transfer in status %s", t.Status))
	}
	now := time.Now()
	for i := range t.Items {
		t.Items[i].ShippedQuantity = t.Items[i].RequestedQuantity
		t.Items[i].Touch()
	}
	t.Status = TransferStatusInTransit
	t.ShippedAt = &now
	t.Touch()
	t.IncrementVersion()
	return nil
}

// Receive closes an in-transit transfer with the reported receipts. Every
// item needs a receipt; received quantity must fall in [0, shipped], and a
// shortage requires a reason. Short quantities stay with the transfer record
// for investigation rather than being written back anywhere.
func (t *Transfer) Receive(receipts []TransferReceipt) error {
	if t.Status != TransferStatusInTransit {
		return shared.NewStateConflictError(fmt.Sprintf("Cannot receive transfer in status %s", t.Status))
	}

	byItem := make(map[uuid.UUID]TransferReceipt, len(receipts))
	for _, r := range receipts {
		byItem[r.ItemID] = r
	}

	for i := range t.Items {
		item := &t.Items[i]
		receipt, ok := byItem[item.ID]
		if !ok {
			return shared.NewValidationError("Every transfer item needs a receipt")
		}
		if receipt.ReceivedQuantity.IsNegative() {
			return shared.NewValidationError("Received quantity cannot be negative")
		}
		if receipt.ReceivedQuantity.GreaterThan(item.ShippedQuantity) {
			return shared.NewValidationError("Received quantity cannot exceed shipped quantity")
		}
		if receipt.ReceivedQuantity.LessThan(item.ShippedQuantity) && receipt.ShortageReason == "" {
			return shared.NewValidationError("Shortage requires a reason")
		}
		item.ReceivedQuantity = receipt.ReceivedQuantity
		item.ShortageReason = receipt.ShortageReason
		item.Touch()
	}

	now := time.Now()
	t.Status = TransferStatusReceived
	t.ReceivedAt = &now
	t.Touch()
	t.IncrementVersion()
	return nil
}

// Cancel aborts a transfer. A draft cancels with no stock effect; an
// in-transit cancel requires the service to post the stock back to the
// source, which the needsReturn result signals.
func (t *Transfer) Cancel() (needsReturn bool, err error) {
	switch t.Status {
	case TransferStatusDraft:
		needsReturn = false
	case TransferStatusInTransit:
		needsReturn = true
	default:
		return false, shared.NewStateConflictError(fmt.Sprintf("Cannot cancel transfer in status %s", t.Status))
	}

	now := time.Now()
	t.Status = TransferStatusCancelled
	t.CancelledAt = &now
	t.Touch()
	t.IncrementVersion()
	return needsReturn, nil
}

// SetItemShipCost records the weighted unit cost drawn at ship time
func (t *Transfer) SetItemShipCost(itemID uuid.UUID, unitCost decimal.Decimal) error {
	for i := range t.Items {
		if t.Items[i].ID == itemID {
			t.Items[i].UnitCost = unitCost
			t.Items[i].Touch()
			return nil
		}
	}
	return shared.NewNotFoundError("Transfer item not found")
}
