package inventory

import (
	"time"

	"github.com/commercehub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementType categorizes a stock movement
type MovementType string

const (
	MovementTypeIn          MovementType = "IN"
	MovementTypeOut         MovementType = "OUT"
	MovementTypeAdjustIn    MovementType = "ADJUST_IN"
	MovementTypeAdjustOut   MovementType = "ADJUST_OUT"
	MovementTypeTransferIn  MovementType = "TRANSFER_IN"
	MovementTypeTransferOut MovementType = "TRANSFER_OUT"
)

// IsValid checks if the movement type is valid
func (t MovementType) IsValid() bool {
	switch t {
	case MovementTypeIn, MovementTypeOut, MovementTypeAdjustIn,
		MovementTypeAdjustOut, MovementTypeTransferIn, MovementTypeTransferOut:
		return true
	}
	return false
}

// IsInbound reports whether the movement increases on-hand stock
func (t MovementType) IsInbound() bool {
	switch t {
	case MovementTypeIn, MovementTypeAdjustIn, MovementTypeTransferIn:
		return true
	}
	return false
}

// IsOutbound reports whether the movement decreases on-hand stock
func (t MovementType) IsOutbound() bool {
	switch t {
	case MovementTypeOut, MovementTypeAdjustOut, MovementTypeTransferOut:
		return true
	}
	return false
}

// MovementStatus is the lifecycle state of a movement record
type MovementStatus string

const (
	// MovementStatusPending marks an entry staged ahead of posting, e.g. a
	// movement written by an importer before its document is confirmed.
	// Ledger postings go straight to COMPLETED.
	MovementStatusPending   MovementStatus = "PENDING"
	MovementStatusCompleted MovementStatus = "COMPLETED"
	MovementStatusReversed  MovementStatus = "REVERSED"
)

// Reference types tie movements back to the business documents that caused them
const (
	ReferenceTypeSale          = "SALE"
	ReferenceTypeRefund        = "REFUND"
	ReferenceTypePurchaseOrder = "PURCHASE_ORDER"
	ReferenceTypeCart          = "CART"
	ReferenceTypeTransfer      = "TRANSFER"
	ReferenceTypeAdjustment    = "ADJUSTMENT"
	ReferenceTypeReversal      = "REVERSAL"
)

// StockMovement is an immutable ledger entry for one stock change at one
// location. Reversal never edits the row in place; it flips the status and
// posts a compensating movement.
type StockMovement struct {
	shared.BaseEntity
	TenantID      uuid.UUID       `gorm:"type:uuid;not null;index:idx_movement_tenant_ref,priority:1"`
	ProductID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	LocationID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	MovementType  MovementType    `gorm:"type:varchar(20);not null"`
	Quantity      decimal.Decimal `gorm:"type:decimal(18,4);not null"` // always positive; direction comes from MovementType
	UnitCost      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TotalCost     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	BalanceAfter  decimal.Decimal `gorm:"type:decimal(18,4);not null"` // on-hand at this location after posting
	ReferenceType string          `gorm:"type:varchar(50);not null;index:idx_movement_tenant_ref,priority:2"`
	ReferenceID   string          `gorm:"type:varchar(100);not null;index:idx_movement_tenant_ref,priority:3"`
	Note          string          `gorm:"type:text"`
	Status        MovementStatus  `gorm:"type:varchar(20);not null;default:'COMPLETED'"`
	ReversedAt    *time.Time      `gorm:""`
	ReversalID    *uuid.UUID      `gorm:"type:uuid"` // the compensating movement
	LayerID       *uuid.UUID      `gorm:"type:uuid"` // the cost layer an inbound opened, if any
}

// TableName returns the table name for GORM
func (StockMovement) TableName() string {
	return "stock_movements"
}

// NewStockMovement creates a completed ledger entry
func NewStockMovement(tenantID, productID, locationID uuid.UUID, movementType MovementType, quantity, unitCost, balanceAfter decimal.Decimal, referenceType, referenceID, note string) (*StockMovement, error) {
	if !movementType.IsValid() {
		return nil, shared.NewValidationError("Invalid movement type")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewValidationError("Movement quantity must be positive")
	}
	if unitCost.IsNegative() {
		return nil, shared.NewValidationError("Unit cost cannot be negative")
	}
	if referenceType == "" || referenceID == "" {
		return nil, shared.NewValidationError("Movement reference cannot be empty")
	}

	return &StockMovement{
		BaseEntity:    shared.NewBaseEntity(),
		TenantID:      tenantID,
		ProductID:     productID,
		LocationID:    locationID,
		MovementType:  movementType,
		Quantity:      quantity,
		UnitCost:      unitCost,
		TotalCost:     quantity.Mul(unitCost).Round(4),
		BalanceAfter:  balanceAfter,
		ReferenceType: referenceType,
		ReferenceID:   referenceID,
		Note:          note,
		Status:        MovementStatusCompleted,
	}, nil
}

// MarkReversed flips the movement to REVERSED and links the compensating entry
func (m *StockMovement) MarkReversed(reversalID uuid.UUID) error {
	if m.Status == MovementStatusReversed {
		return shared.NewStateConflictError("Movement is already reversed")
	}
	now := time.Now()
	m.Status = MovementStatusReversed
	m.ReversedAt = &now
	m.ReversalID = &reversalID
	m.Touch()
	return nil
}

// ReverseType maps a movement type to its compensating type
func (t MovementType) ReverseType() (MovementType, error) {
	switch t {
	case MovementTypeIn:
		return MovementTypeOut, nil
	case MovementTypeOut:
		return MovementTypeIn, nil
	case MovementTypeAdjustIn:
		return MovementTypeAdjustOut, nil
	case MovementTypeAdjustOut:
		return MovementTypeAdjustIn, nil
	default:
		return "", shared.NewStateConflictError("Transfer movements must be reversed through the transfer")
	}
}

// MovementConsumption links an outbound movement to the cost layer it drew
// from, preserving the per-layer cost breakdown for reversal.
type MovementConsumption struct {
	shared.BaseEntity
	TenantID   uuid.UUID       `gorm:"type:uuid;not null"`
	MovementID uuid.UUID       `gorm:"type:uuid;not null;index"`
	LayerID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Quantity   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitCost   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TotalCost  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (MovementConsumption) TableName() string {
	return "movement_consumptions"
}

// NewMovementConsumption records one layer's contribution to a movement
func NewMovementConsumption(tenantID, movementID, layerID uuid.UUID, quantity, unitCost decimal.Decimal) *MovementConsumption {
	return &MovementConsumption{
		BaseEntity: shared.NewBaseEntity(),
		TenantID:   tenantID,
		MovementID: movementID,
		LayerID:    layerID,
		Quantity:   quantity,
		UnitCost:   unitCost,
		TotalCost:  quantity.Mul(unitCost).Round(4),
	}
}
