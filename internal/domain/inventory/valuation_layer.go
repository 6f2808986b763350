package inventory

import (
	"github.com/commercehub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ValuationLayer is a cost-tagged slice of received inventory for one
// product-location combination, consumed oldest-first (FIFO) for cost of
// goods sold. RemainingQuantity only decreases (reversals reinstate it);
// exhausted layers are retained for audit.
type ValuationLayer struct {
	shared.BaseEntity
	TenantID          uuid.UUID       `gorm:"type:uuid;not null;index:idx_layer_scope,priority:1"`
	ProductID         uuid.UUID       `gorm:"type:uuid;not null;index:idx_layer_scope,priority:2"`
	LocationID        uuid.UUID       `gorm:"type:uuid;not null;index:idx_layer_scope,priority:3"`
	Sequence          int64           `gorm:"not null;index:idx_layer_scope,priority:4"` // FIFO position within the scope
	OriginalQuantity  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	RemainingQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitCost          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	BatchID           string          `gorm:"type:varchar(100)"` // optional caller-supplied batch/lot reference
}

// TableName returns the table name for GORM
func (ValuationLayer) TableName() string {
	return "valuation_layers"
}

// NewValuationLayer creates a new cost layer for received stock
func NewValuationLayer(tenantID, productID, locationID uuid.UUID, sequence int64, quantity, unitCost decimal.Decimal, batchID string) (*ValuationLayer, error) {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewValidationError("Layer quantity must be positive")
	}
	if unitCost.IsNegative() {
		return nil, shared.NewValidationError("Unit cost cannot be negative")
	}

	return &ValuationLayer{
		BaseEntity:        shared.NewBaseEntity(),
		TenantID:          tenantID,
		ProductID:         productID,
		LocationID:        locationID,
		Sequence:          sequence,
		OriginalQuantity:  quantity,
		RemainingQuantity: quantity,
		UnitCost:          unitCost,
		BatchID:           batchID,
	}, nil
}

// Consume reduces the remaining quantity. The request must not exceed what
// the layer still holds; splitting across layers is the planner's job.
func (l *ValuationLayer) Consume(quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewValidationError("Consume quantity must be positive")
	}
	if quantity.GreaterThan(l.RemainingQuantity) {
		return shared.NewInvariantViolationError("Layer consumption exceeds remaining quantity")
	}
	l.RemainingQuantity = l.RemainingQuantity.Sub(quantity)
	l.Touch()
	return nil
}

// Reinstate returns previously consumed quantity to the layer (reversals)
func (l *ValuationLayer) Reinstate(quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewValidationError("Reinstate quantity must be positive")
	}
	restored := l.RemainingQuantity.Add(quantity)
	if restored.GreaterThan(l.OriginalQuantity) {
		return shared.NewInvariantViolationError("Layer reinstatement exceeds original quantity")
	}
	l.RemainingQuantity = restored
	l.Touch()
	return nil
}

// IsExhausted reports whether the layer has no remaining quantity
func (l *ValuationLayer) IsExhausted() bool {
	return l.RemainingQuantity.IsZero()
}

// RemainingValue returns remaining quantity times unit cost
func (l *ValuationLayer) RemainingValue() decimal.Decimal {
	return l.RemainingQuantity.Mul(l.UnitCost)
}
