package inventory

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestMovement(t *testing.T, movementType MovementType) *StockMovement {
	t.Helper()
	movement, err := NewStockMovement(
		uuid.New(), uuid.New(), uuid.New(),
		movementType,
		decimal.NewFromFloat(10), decimal.NewFromFloat(2.5), decimal.NewFromFloat(10),
		ReferenceTypePurchaseOrder, "PO-001", "",
	)
	require.NoError(t, err)
	return movement
}

func TestMovementType(t *testing.T) {
	t.Run("IsValid accepts all defined types", func(t *testing.T) {
		for _, mt := range []MovementType{
			MovementTypeIn, MovementTypeOut, MovementTypeAdjustIn,
			MovementTypeAdjustOut, MovementTypeTransferIn, MovementTypeTransferOut,
		} {
			assert.True(t, mt.IsValid())
		}
		assert.False(t, MovementType("BOGUS").IsValid())
	})

	t.Run("direction predicates partition the types", func(t *testing.T) {
		assert.True(t, MovementTypeIn.IsInbound())
		assert.True(t, MovementTypeTransferIn.IsInbound())
		assert.False(t, MovementTypeIn.IsOutbound())
		assert.True(t, MovementTypeOut.IsOutbound())
		assert.True(t, MovementTypeAdjustOut.IsOutbound())
		assert.False(t, MovementTypeOut.IsInbound())
	})

	t.Run("ReverseType pairs in with out", func(t *testing.T) {
		rt, err := MovementTypeIn.ReverseType()
		require.NoError(t, err)
		assert.Equal(t, MovementTypeOut, rt)

		rt, err = MovementTypeAdjustOut.ReverseType()
		require.NoError(t, err)
		assert.Equal(t, MovementTypeAdjustIn, rt)
	})

	t.Run("ReverseType rejects transfer movements", func(t *testing.T) {
		_, err := MovementTypeTransferOut.ReverseType()
		assert.Error(t, err)
	})
}

func TestNewStockMovement(t *testing.T) {
	t.Run("computes total cost", func(t *testing.T) {
		movement := createTestMovement(t, MovementTypeIn)
		assert.True(t, movement.TotalCost.Equal(decimal.NewFromFloat(25)))
		assert.Equal(t, MovementStatusCompleted, movement.Status)
	})

	t.Run("staged entries can be held in pending", func(t *testing.T) {
		movement := createTestMovement(t, MovementTypeIn)
		movement.Status = MovementStatusPending
		assert.Equal(t, MovementStatus("PENDING"), movement.Status)
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		_, err := NewStockMovement(uuid.New(), uuid.New(), uuid.New(), MovementTypeIn,
			decimal.Zero, decimal.NewFromFloat(1), decimal.Zero, ReferenceTypeSale, "S-1", "")
		assert.Error(t, err)
	})

	t.Run("rejects empty reference", func(t *testing.T) {
		_, err := NewStockMovement(uuid.New(), uuid.New(), uuid.New(), MovementTypeIn,
			decimal.NewFromFloat(1), decimal.NewFromFloat(1), decimal.NewFromFloat(1), "", "", "")
		assert.Error(t, err)
	})

	t.Run("rejects invalid type", func(t *testing.T) {
		_, err := NewStockMovement(uuid.New(), uuid.New(), uuid.New(), MovementType("BOGUS"),
			decimal.NewFromFloat(1), decimal.NewFromFloat(1), decimal.NewFromFloat(1), ReferenceTypeSale, "S-1", "")
		assert.Error(t, err)
	})
}

func TestStockMovement_MarkReversed(t *testing.T) {
	t.Run("links the compensating movement", func(t *testing.T) {
		movement := createTestMovement(t, MovementTypeIn)
		reversalID := uuid.New()
		require.NoError(t, movement.MarkReversed(reversalID))
		assert.Equal(t, MovementStatusReversed, movement.Status)
		assert.NotNil(t, movement.ReversedAt)
		require.NotNil(t, movement.ReversalID)
		assert.Equal(t, reversalID, *movement.ReversalID)
	})

	t.Run("double reversal fails", func(t *testing.T) {
		movement := createTestMovement(t, MovementTypeIn)
		require.NoError(t, movement.MarkReversed(uuid.New()))
		assert.Error(t, movement.MarkReversed(uuid.New()))
	})
}
