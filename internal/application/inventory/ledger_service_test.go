package inventory

import (
	"context"
	"testing"

	"github.com/commercehub/backend/internal/domain/inventory"
	"github.com/commercehub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stockIn(t *testing.T, env *testEnv, productID, locationID uuid.UUID, quantity, unitCost float64, refID string) *MovementBatchResult {
	t.Helper()
	result, err := env.ledger.StockIn(context.Background(), env.tenantID, StockInRequest{
		LocationID: locationID,
		Items: []StockInItem{{
			ProductID: productID,
			Quantity:  decimal.NewFromFloat(quantity),
			UnitCost:  decimal.NewFromFloat(unitCost),
		}},
		ReferenceType: inventory.ReferenceTypePurchaseOrder,
		ReferenceID:   refID,
	})
	require.NoError(t, err)
	return result
}

func singleStockOut(locationID, productID uuid.UUID, quantity float64, refType, refID string) StockOutRequest {
	return StockOutRequest{
		LocationID: locationID,
		Items: []StockOutItem{{
			ProductID: productID,
			Quantity:  decimal.NewFromFloat(quantity),
		}},
		ReferenceType: refType,
		ReferenceID:   refID,
	}
}

func TestLedgerService_StockIn(t *testing.T) {
	t.Run("creates balance, layer and movement", func(t *testing.T) {
		env := newTestEnv()
		productID, locationID := uuid.New(), uuid.New()

		result := stockIn(t, env, productID, locationID, 100, 2.5, "PO-001")

		require.Len(t, result.Movements, 1)
		assert.Equal(t, inventory.MovementTypeIn, result.Movements[0].MovementType)
		assert.True(t, result.Movements[0].BalanceAfter.Equal(decimal.NewFromFloat(100)))
		assert.False(t, result.Duplicate)

		balance, err := env.ledger.GetBalance(context.Background(), env.tenantID, productID, locationID)
		require.NoError(t, err)
		assert.True(t, balance.OnHandQuantity.Equal(decimal.NewFromFloat(100)))
		assert.True(t, balance.AvailableQuantity.Equal(decimal.NewFromFloat(100)))

		layers, err := env.layerRepo.FindOpenByScope(context.Background(), env.tenantID, productID, locationID)
		require.NoError(t, err)
		require.Len(t, layers, 1)
		assert.True(t, layers[0].UnitCost.Equal(decimal.NewFromFloat(2.5)))
	})

	t.Run("posts every line of a multi-line document", func(t *testing.T) {
		env := newTestEnv()
		productA, productB, locationID := uuid.New(), uuid.New(), uuid.New()

		result, err := env.ledger.StockIn(context.Background(), env.tenantID, StockInRequest{
			LocationID: locationID,
			Items: []StockInItem{
				{ProductID: productA, Quantity: decimal.NewFromFloat(10), UnitCost: decimal.NewFromFloat(2)},
				{ProductID: productB, Quantity: decimal.NewFromFloat(4), UnitCost: decimal.NewFromFloat(7)},
			},
			ReferenceType: inventory.ReferenceTypePurchaseOrder,
			ReferenceID:   "PO-001",
		})
		require.NoError(t, err)
		require.Len(t, result.Movements, 2)
		assert.False(t, result.Duplicate)

		balanceA, err := env.ledger.GetBalance(context.Background(), env.tenantID, productA, locationID)
		require.NoError(t, err)
		assert.True(t, balanceA.OnHandQuantity.Equal(decimal.NewFromFloat(10)))
		balanceB, err := env.ledger.GetBalance(context.Background(), env.tenantID, productB, locationID)
		require.NoError(t, err)
		assert.True(t, balanceB.OnHandQuantity.Equal(decimal.NewFromFloat(4)))
	})

	t.Run("repeated reference returns the original batch", func(t *testing.T) {
		env := newTestEnv()
		productA, productB, locationID := uuid.New(), uuid.New(), uuid.New()

		req := StockInRequest{
			LocationID: locationID,
			Items: []StockInItem{
				{ProductID: productA, Quantity: decimal.NewFromFloat(10), UnitCost: decimal.NewFromFloat(2)},
				{ProductID: productB, Quantity: decimal.NewFromFloat(4), UnitCost: decimal.NewFromFloat(7)},
			},
			ReferenceType: inventory.ReferenceTypePurchaseOrder,
			ReferenceID:   "PO-001",
		}
		first, err := env.ledger.StockIn(context.Background(), env.tenantID, req)
		require.NoError(t, err)
		second, err := env.ledger.StockIn(context.Background(), env.tenantID, req)
		require.NoError(t, err)

		assert.True(t, second.Duplicate)
		require.Len(t, second.Movements, 2)
		assert.Equal(t, first.Movements[0].MovementID, second.Movements[0].MovementID)
		assert.Equal(t, first.Movements[1].MovementID, second.Movements[1].MovementID)

		balanceA, err := env.ledger.GetBalance(context.Background(), env.tenantID, productA, locationID)
		require.NoError(t, err)
		assert.True(t, balanceA.OnHandQuantity.Equal(decimal.NewFromFloat(10)))
		balanceB, err := env.ledger.GetBalance(context.Background(), env.tenantID, productB, locationID)
		require.NoError(t, err)
		assert.True(t, balanceB.OnHandQuantity.Equal(decimal.NewFromFloat(4)))
	})

	t.Run("idempotency store short-circuits retries", func(t *testing.T) {
		env := newTestEnv()
		store := newFakeIdempotencyStore()
		env.ledger.SetIdempotencyStore(store)
		productID, locationID := uuid.New(), uuid.New()

		first := stockIn(t, env, productID, locationID, 10, 1, "PO-002")
		second := stockIn(t, env, productID, locationID, 10, 1, "PO-002")

		assert.Equal(t, first.Movements[0].MovementID, second.Movements[0].MovementID)
		assert.True(t, second.Duplicate)
	})

	t.Run("rejects negative unit cost", func(t *testing.T) {
		env := newTestEnv()
		_, err := env.ledger.StockIn(context.Background(), env.tenantID, StockInRequest{
			LocationID: uuid.New(),
			Items: []StockInItem{{
				ProductID: uuid.New(),
				Quantity:  decimal.NewFromFloat(1),
				UnitCost:  decimal.NewFromFloat(-1),
			}},
			ReferenceType: inventory.ReferenceTypePurchaseOrder,
			ReferenceID:   "PO-003",
		})
		assert.True(t, shared.IsCode(err, shared.CodeValidation))
	})

	t.Run("rejects an empty item list", func(t *testing.T) {
		env := newTestEnv()
		_, err := env.ledger.StockIn(context.Background(), env.tenantID, StockInRequest{
			LocationID:    uuid.New(),
			ReferenceType: inventory.ReferenceTypePurchaseOrder,
			ReferenceID:   "PO-004",
		})
		assert.True(t, shared.IsCode(err, shared.CodeValidation))
	})
}

func TestLedgerService_StockOut(t *testing.T) {
	t.Run("consumes layers FIFO with blended cost", func(t *testing.T) {
		env := newTestEnv()
		productID, locationID := uuid.New(), uuid.New()
		stockIn(t, env, productID, locationID, 10, 5, "PO-001")
		stockIn(t, env, productID, locationID, 10, 8, "PO-002")

		result, err := env.ledger.StockOut(context.Background(), env.tenantID,
			singleStockOut(locationID, productID, 15, inventory.ReferenceTypeSale, "S-001"))
		require.NoError(t, err)

		require.Len(t, result.Movements, 1)
		movement := result.Movements[0]
		assert.True(t, movement.TotalCost.Equal(decimal.NewFromFloat(90)))
		assert.True(t, movement.UnitCost.Equal(decimal.NewFromFloat(6)))
		assert.True(t, movement.BalanceAfter.Equal(decimal.NewFromFloat(5)))

		layers, err := env.layerRepo.FindOpenByScope(context.Background(), env.tenantID, productID, locationID)
		require.NoError(t, err)
		require.Len(t, layers, 1)
		assert.True(t, layers[0].RemainingQuantity.Equal(decimal.NewFromFloat(5)))
		assert.True(t, layers[0].UnitCost.Equal(decimal.NewFromFloat(8)))
	})

	t.Run("fails when available stock insufficient", func(t *testing.T) {
		env := newTestEnv()
		productID, locationID := uuid.New(), uuid.New()
		stockIn(t, env, productID, locationID, 10, 5, "PO-001")

		_, err := env.ledger.StockOut(context.Background(), env.tenantID,
			singleStockOut(locationID, productID, 11, inventory.ReferenceTypeSale, "S-002"))
		assert.True(t, shared.IsCode(err, shared.CodeInsufficientStock))
	})

	t.Run("one short line fails the whole document", func(t *testing.T) {
		env := newTestEnv()
		productA, productB, locationID := uuid.New(), uuid.New(), uuid.New()
		stockIn(t, env, productA, locationID, 10, 5, "PO-001")

		_, err := env.ledger.StockOut(context.Background(), env.tenantID, StockOutRequest{
			LocationID: locationID,
			Items: []StockOutItem{
				{ProductID: productA, Quantity: decimal.NewFromFloat(5)},
				{ProductID: productB, Quantity: decimal.NewFromFloat(3)},
			},
			ReferenceType: inventory.ReferenceTypeSale,
			ReferenceID:   "S-003",
		})
		assert.True(t, shared.IsCode(err, shared.CodeInsufficientStock))

		balance, err := env.ledger.GetBalance(context.Background(), env.tenantID, productA, locationID)
		require.NoError(t, err)
		assert.True(t, balance.OnHandQuantity.Equal(decimal.NewFromFloat(10)))

		history, err := env.ledger.GetMovementHistory(context.Background(), env.tenantID, productA, locationID, shared.DefaultFilter())
		require.NoError(t, err)
		assert.Equal(t, int64(1), history.Total) // only the inbound
	})

	t.Run("posts every line of a multi-line document", func(t *testing.T) {
		env := newTestEnv()
		productA, productB, locationID := uuid.New(), uuid.New(), uuid.New()
		stockIn(t, env, productA, locationID, 10, 5, "PO-001")
		stockIn(t, env, productB, locationID, 10, 3, "PO-002")

		result, err := env.ledger.StockOut(context.Background(), env.tenantID, StockOutRequest{
			LocationID: locationID,
			Items: []StockOutItem{
				{ProductID: productA, Quantity: decimal.NewFromFloat(4)},
				{ProductID: productB, Quantity: decimal.NewFromFloat(6)},
			},
			ReferenceType: inventory.ReferenceTypeSale,
			ReferenceID:   "S-004",
		})
		require.NoError(t, err)
		require.Len(t, result.Movements, 2)

		balanceA, err := env.ledger.GetBalance(context.Background(), env.tenantID, productA, locationID)
		require.NoError(t, err)
		assert.True(t, balanceA.OnHandQuantity.Equal(decimal.NewFromFloat(6)))
		balanceB, err := env.ledger.GetBalance(context.Background(), env.tenantID, productB, locationID)
		require.NoError(t, err)
		assert.True(t, balanceB.OnHandQuantity.Equal(decimal.NewFromFloat(4)))
	})

	t.Run("backorder flag is ignored for disallowed reference types", func(t *testing.T) {
		env := newTestEnv()
		productID, locationID := uuid.New(), uuid.New()
		stockIn(t, env, productID, locationID, 5, 5, "PO-001")

		req := singleStockOut(locationID, productID, 8, inventory.ReferenceTypeSale, "S-005")
		req.AllowBackorder = true
		_, err := env.ledger.StockOut(context.Background(), env.tenantID, req)
		assert.True(t, shared.IsCode(err, shared.CodeInsufficientStock))
	})

	t.Run("backorder drives on-hand negative when policy allows", func(t *testing.T) {
		env := newTestEnv()
		env.ledger.SetBackorderPolicy(NewBackorderPolicy([]string{inventory.ReferenceTypeSale}))
		productID, locationID := uuid.New(), uuid.New()
		stockIn(t, env, productID, locationID, 5, 5, "PO-001")

		req := singleStockOut(locationID, productID, 8, inventory.ReferenceTypeSale, "S-006")
		req.AllowBackorder = true
		result, err := env.ledger.StockOut(context.Background(), env.tenantID, req)
		require.NoError(t, err)
		require.Len(t, result.Movements, 1)
		assert.True(t, result.Movements[0].BalanceAfter.Equal(decimal.NewFromFloat(-3)))
		// 5 covered at cost 5, 3 uncovered costed at the blended 5
		assert.True(t, result.Movements[0].TotalCost.Equal(decimal.NewFromFloat(40)))
	})

	t.Run("inbound after backorder absorbs the deficit first", func(t *testing.T) {
		env := newTestEnv()
		env.ledger.SetBackorderPolicy(NewBackorderPolicy([]string{inventory.ReferenceTypeSale}))
		productID, locationID := uuid.New(), uuid.New()
		stockIn(t, env, productID, locationID, 5, 5, "PO-001")

		req := singleStockOut(locationID, productID, 8, inventory.ReferenceTypeSale, "S-007")
		req.AllowBackorder = true
		_, err := env.ledger.StockOut(context.Background(), env.tenantID, req)
		require.NoError(t, err)

		stockIn(t, env, productID, locationID, 10, 6, "PO-002")

		balance, err := env.ledger.GetBalance(context.Background(), env.tenantID, productID, locationID)
		require.NoError(t, err)
		assert.True(t, balance.OnHandQuantity.Equal(decimal.NewFromFloat(7)))

		layers, err := env.layerRepo.FindOpenByScope(context.Background(), env.tenantID, productID, locationID)
		require.NoError(t, err)
		assert.True(t, inventory.LayerTotal(layers).Equal(decimal.NewFromFloat(7)))
	})

	t.Run("repeated reference returns the original batch", func(t *testing.T) {
		env := newTestEnv()
		productID, locationID := uuid.New(), uuid.New()
		stockIn(t, env, productID, locationID, 20, 5, "PO-001")

		out := singleStockOut(locationID, productID, 5, inventory.ReferenceTypeSale, "S-008")
		first, err := env.ledger.StockOut(context.Background(), env.tenantID, out)
		require.NoError(t, err)
		second, err := env.ledger.StockOut(context.Background(), env.tenantID, out)
		require.NoError(t, err)

		assert.Equal(t, first.Movements[0].MovementID, second.Movements[0].MovementID)
		assert.True(t, second.Duplicate)

		balance, err := env.ledger.GetBalance(context.Background(), env.tenantID, productID, locationID)
		require.NoError(t, err)
		assert.True(t, balance.OnHandQuantity.Equal(decimal.NewFromFloat(15)))
	})
}

func TestLedgerService_AdjustStock(t *testing.T) {
	t.Run("positive adjustment opens a layer", func(t *testing.T) {
		env := newTestEnv()
		productID, locationID := uuid.New(), uuid.New()

		result, err := env.ledger.AdjustStock(context.Background(), env.tenantID, AdjustStockRequest{
			LocationID: locationID,
			Items: []AdjustStockItem{{
				ProductID: productID,
				Quantity:  decimal.NewFromFloat(12),
				UnitCost:  decimal.NewFromFloat(3),
			}},
			ReferenceID: "ADJ-001",
			Reason:      "found during stocktake",
		})
		require.NoError(t, err)
		require.Len(t, result.Movements, 1)
		assert.Equal(t, inventory.MovementTypeAdjustIn, result.Movements[0].MovementType)
		assert.True(t, result.Movements[0].BalanceAfter.Equal(decimal.NewFromFloat(12)))
	})

	t.Run("negative adjustment consumes FIFO", func(t *testing.T) {
		env := newTestEnv()
		productID, locationID := uuid.New(), uuid.New()
		stockIn(t, env, productID, locationID, 10, 4, "PO-001")

		result, err := env.ledger.AdjustStock(context.Background(), env.tenantID, AdjustStockRequest{
			LocationID: locationID,
			Items: []AdjustStockItem{{
				ProductID: productID,
				Quantity:  decimal.NewFromFloat(-3),
			}},
			ReferenceID: "ADJ-002",
			Reason:      "damaged",
		})
		require.NoError(t, err)
		require.Len(t, result.Movements, 1)
		assert.Equal(t, inventory.MovementTypeAdjustOut, result.Movements[0].MovementType)
		assert.True(t, result.Movements[0].TotalCost.Equal(decimal.NewFromFloat(12)))
		assert.True(t, result.Movements[0].BalanceAfter.Equal(decimal.NewFromFloat(7)))
	})

	t.Run("mixed directions post in one document", func(t *testing.T) {
		env := newTestEnv()
		productA, productB, locationID := uuid.New(), uuid.New(), uuid.New()
		stockIn(t, env, productB, locationID, 10, 4, "PO-001")

		result, err := env.ledger.AdjustStock(context.Background(), env.tenantID, AdjustStockRequest{
			LocationID: locationID,
			Items: []AdjustStockItem{
				{ProductID: productA, Quantity: decimal.NewFromFloat(5), UnitCost: decimal.NewFromFloat(2)},
				{ProductID: productB, Quantity: decimal.NewFromFloat(-4)},
			},
			ReferenceID: "ADJ-003",
			Reason:      "stocktake",
		})
		require.NoError(t, err)
		require.Len(t, result.Movements, 2)
		assert.Equal(t, inventory.MovementTypeAdjustIn, result.Movements[0].MovementType)
		assert.Equal(t, inventory.MovementTypeAdjustOut, result.Movements[1].MovementType)

		balanceA, err := env.ledger.GetBalance(context.Background(), env.tenantID, productA, locationID)
		require.NoError(t, err)
		assert.True(t, balanceA.OnHandQuantity.Equal(decimal.NewFromFloat(5)))
		balanceB, err := env.ledger.GetBalance(context.Background(), env.tenantID, productB, locationID)
		require.NoError(t, err)
		assert.True(t, balanceB.OnHandQuantity.Equal(decimal.NewFromFloat(6)))
	})

	t.Run("zero quantity is rejected", func(t *testing.T) {
		env := newTestEnv()
		_, err := env.ledger.AdjustStock(context.Background(), env.tenantID, AdjustStockRequest{
			LocationID: uuid.New(),
			Items: []AdjustStockItem{{
				ProductID: uuid.New(),
				Quantity:  decimal.Zero,
			}},
			ReferenceID: "ADJ-004",
			Reason:      "noop",
		})
		assert.True(t, shared.IsCode(err, shared.CodeValidation))
	})

	t.Run("positive adjustment without unit cost is rejected", func(t *testing.T) {
		env := newTestEnv()
		_, err := env.ledger.AdjustStock(context.Background(), env.tenantID, AdjustStockRequest{
			LocationID: uuid.New(),
			Items: []AdjustStockItem{{
				ProductID: uuid.New(),
				Quantity:  decimal.NewFromFloat(5),
			}},
			ReferenceID: "ADJ-005",
			Reason:      "found",
		})
		assert.True(t, shared.IsCode(err, shared.CodeValidation))
	})
}

func TestLedgerService_ReverseMovement(t *testing.T) {
	t.Run("reversing an outbound reinstates the layers", func(t *testing.T) {
		env := newTestEnv()
		productID, locationID := uuid.New(), uuid.New()
		stockIn(t, env, productID, locationID, 10, 5, "PO-001")
		stockIn(t, env, productID, locationID, 10, 8, "PO-002")

		out, err := env.ledger.StockOut(context.Background(), env.tenantID,
			singleStockOut(locationID, productID, 15, inventory.ReferenceTypeSale, "S-001"))
		require.NoError(t, err)

		reversal, err := env.ledger.ReverseMovement(context.Background(), env.tenantID, out.Movements[0].MovementID)
		require.NoError(t, err)
		assert.Equal(t, inventory.MovementTypeIn, reversal.MovementType)
		assert.True(t, reversal.TotalCost.Equal(decimal.NewFromFloat(90)))
		assert.True(t, reversal.BalanceAfter.Equal(decimal.NewFromFloat(20)))

		layers, err := env.layerRepo.FindOpenByScope(context.Background(), env.tenantID, productID, locationID)
		require.NoError(t, err)
		require.Len(t, layers, 2)
		assert.True(t, layers[0].RemainingQuantity.Equal(decimal.NewFromFloat(10)))
		assert.True(t, layers[1].RemainingQuantity.Equal(decimal.NewFromFloat(10)))

		original, err := env.movementRepo.FindByID(context.Background(), env.tenantID, out.Movements[0].MovementID)
		require.NoError(t, err)
		assert.Equal(t, inventory.MovementStatusReversed, original.Status)
	})

	t.Run("reversing an untouched inbound removes its layer", func(t *testing.T) {
		env := newTestEnv()
		productID, locationID := uuid.New(), uuid.New()
		in := stockIn(t, env, productID, locationID, 10, 5, "PO-001")

		reversal, err := env.ledger.ReverseMovement(context.Background(), env.tenantID, in.Movements[0].MovementID)
		require.NoError(t, err)
		assert.Equal(t, inventory.MovementTypeOut, reversal.MovementType)
		assert.True(t, reversal.BalanceAfter.IsZero())

		layers, err := env.layerRepo.FindOpenByScope(context.Background(), env.tenantID, productID, locationID)
		require.NoError(t, err)
		assert.Empty(t, layers)
	})

	t.Run("reversing a partially consumed inbound fails", func(t *testing.T) {
		env := newTestEnv()
		productID, locationID := uuid.New(), uuid.New()
		in := stockIn(t, env, productID, locationID, 10, 5, "PO-001")

		_, err := env.ledger.StockOut(context.Background(), env.tenantID,
			singleStockOut(locationID, productID, 4, inventory.ReferenceTypeSale, "S-001"))
		require.NoError(t, err)

		_, err = env.ledger.ReverseMovement(context.Background(), env.tenantID, in.Movements[0].MovementID)
		assert.True(t, shared.IsCode(err, shared.CodeStateConflict))
	})

	t.Run("double reversal fails", func(t *testing.T) {
		env := newTestEnv()
		productID, locationID := uuid.New(), uuid.New()
		in := stockIn(t, env, productID, locationID, 10, 5, "PO-001")

		_, err := env.ledger.ReverseMovement(context.Background(), env.tenantID, in.Movements[0].MovementID)
		require.NoError(t, err)
		_, err = env.ledger.ReverseMovement(context.Background(), env.tenantID, in.Movements[0].MovementID)
		assert.True(t, shared.IsCode(err, shared.CodeStateConflict))
	})
}

func TestLedgerService_Queries(t *testing.T) {
	t.Run("unknown balance reads as zero", func(t *testing.T) {
		env := newTestEnv()
		balance, err := env.ledger.GetBalance(context.Background(), env.tenantID, uuid.New(), uuid.New())
		require.NoError(t, err)
		assert.True(t, balance.OnHandQuantity.IsZero())
		assert.True(t, balance.AvailableQuantity.IsZero())
	})

	t.Run("valuation report blends open layers", func(t *testing.T) {
		env := newTestEnv()
		productID, locationID := uuid.New(), uuid.New()
		stockIn(t, env, productID, locationID, 10, 5, "PO-001")
		stockIn(t, env, productID, locationID, 10, 8, "PO-002")

		report, err := env.ledger.GetValuation(context.Background(), env.tenantID, productID, locationID)
		require.NoError(t, err)
		assert.True(t, report.OnHandQuantity.Equal(decimal.NewFromFloat(20)))
		assert.True(t, report.TotalValue.Equal(decimal.NewFromFloat(130)))
		assert.True(t, report.AverageCost.Equal(decimal.NewFromFloat(6.5)))
		assert.Len(t, report.Layers, 2)
	})

	t.Run("movement history lists postings", func(t *testing.T) {
		env := newTestEnv()
		productID, locationID := uuid.New(), uuid.New()
		stockIn(t, env, productID, locationID, 10, 5, "PO-001")
		stockIn(t, env, productID, locationID, 10, 8, "PO-002")

		history, err := env.ledger.GetMovementHistory(context.Background(), env.tenantID, productID, locationID, shared.DefaultFilter())
		require.NoError(t, err)
		assert.Equal(t, int64(2), history.Total)
	})
}
