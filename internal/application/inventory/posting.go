package inventory

import (
	"context"
	"sort"

	"github.com/commercehub/backend/internal/domain/inventory"
	"github.com/commercehub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// lockBalances locks the balance row for every product at the location,
// acquiring the locks in ascending product order so two concurrent batches
// over the same products cannot deadlock. Repeated products share one row.
func lockBalances(ctx context.Context, repos TransactionalRepositories, tenantID, locationID uuid.UUID, productIDs []uuid.UUID) (map[uuid.UUID]*inventory.InventoryBalance, error) {
	unique := make([]uuid.UUID, 0, len(productIDs))
	seen := make(map[uuid.UUID]bool, len(productIDs))
	for _, id := range productIDs {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	sort.Slice(unique, func(a, b int) bool {
		return unique[a].String() < unique[b].String()
	})

	balances := make(map[uuid.UUID]*inventory.InventoryBalance, len(unique))
	for _, productID := range unique {
		balance, err := repos.BalanceRepo().GetOrCreateLocked(ctx, tenantID, inventory.BalanceKey{
			ProductID:  productID,
			LocationID: locationID,
		})
		if err != nil {
			return nil, err
		}
		balances[productID] = balance
	}
	return balances, nil
}

// inboundPosting is one inbound stock change applied inside a transaction.
// The balance row must already be locked by the caller.
//
// When the scope's on-hand is negative from backorders, the inbound first
// absorbs the deficit and only the surplus opens a cost layer. That keeps
// the sum of open layer quantities equal to on-hand whenever on-hand is
// non-negative.
type inboundPosting struct {
	TenantID      uuid.UUID
	Balance       *inventory.InventoryBalance
	MovementType  inventory.MovementType
	Quantity      decimal.Decimal
	UnitCost      decimal.Decimal
	ReferenceType string
	ReferenceID   string
	BatchID       string
	Note          string
}

func postInbound(ctx context.Context, repos TransactionalRepositories, p inboundPosting) (*inventory.StockMovement, error) {
	if !p.MovementType.IsInbound() {
		return nil, shared.NewInvariantViolationError("Inbound posting requires an inbound movement type")
	}

	deficit := decimal.Zero
	if p.Balance.OnHandQuantity.IsNegative() {
		deficit = p.Balance.OnHandQuantity.Neg()
	}

	if err := p.Balance.AddStock(p.Quantity); err != nil {
		return nil, err
	}

	var layer *inventory.ValuationLayer
	layerQuantity := p.Quantity.Sub(deficit)
	if layerQuantity.GreaterThan(decimal.Zero) {
		sequence, err := repos.LayerRepo().NextSequence(ctx, p.TenantID, p.Balance.ProductID, p.Balance.LocationID)
		if err != nil {
			return nil, err
		}
		layer, err = inventory.NewValuationLayer(p.TenantID, p.Balance.ProductID, p.Balance.LocationID, sequence, layerQuantity, p.UnitCost, p.BatchID)
		if err != nil {
			return nil, err
		}
		if err := repos.LayerRepo().Save(ctx, layer); err != nil {
			return nil, err
		}
	}

	if err := repos.BalanceRepo().Save(ctx, p.Balance); err != nil {
		return nil, err
	}

	movement, err := inventory.NewStockMovement(
		p.TenantID, p.Balance.ProductID, p.Balance.LocationID,
		p.MovementType, p.Quantity, p.UnitCost, p.Balance.OnHandQuantity,
		p.ReferenceType, p.ReferenceID, p.Note,
	)
	if err != nil {
		return nil, err
	}
	if layer != nil {
		movement.LayerID = &layer.ID
	}
	if err := repos.MovementRepo().Save(ctx, movement); err != nil {
		return nil, err
	}

	if err := assertLayerTotals(ctx, repos, p.TenantID, p.Balance); err != nil {
		return nil, err
	}
	return movement, nil
}

// outboundPosting is one outbound stock change applied inside a transaction.
// The balance row must already be locked by the caller.
type outboundPosting struct {
	TenantID       uuid.UUID
	Balance        *inventory.InventoryBalance
	MovementType   inventory.MovementType
	Quantity       decimal.Decimal
	ReferenceType  string
	ReferenceID    string
	Note           string
	AllowBackorder bool
}

func postOutbound(ctx context.Context, repos TransactionalRepositories, p outboundPosting) (*inventory.StockMovement, *inventory.ConsumptionPlan, error) {
	if !p.MovementType.IsOutbound() {
		return nil, nil, shared.NewInvariantViolationError("Outbound posting requires an outbound movement type")
	}

	if err := p.Balance.RemoveStock(p.Quantity, p.AllowBackorder); err != nil {
		return nil, nil, err
	}

	layers, err := repos.LayerRepo().FindOpenByScope(ctx, p.TenantID, p.Balance.ProductID, p.Balance.LocationID)
	if err != nil {
		return nil, nil, err
	}

	// A backorder may exceed what the layers hold; consume what exists and
	// cost the uncovered remainder at the blended cost of what was consumed.
	covered := p.Quantity
	available := inventory.LayerTotal(layers)
	if covered.GreaterThan(available) {
		if !p.AllowBackorder {
			return nil, nil, shared.NewInsufficientStockError("Cost layers do not cover the requested quantity")
		}
		covered = available
	}

	var plan *inventory.ConsumptionPlan
	totalCost := decimal.Zero
	if covered.GreaterThan(decimal.Zero) {
		plan, err = inventory.PlanConsumption(covered, layers)
		if err != nil {
			return nil, nil, err
		}
		if err := inventory.ApplyConsumptionPlan(plan); err != nil {
			return nil, nil, err
		}
		consumed := make([]*inventory.ValuationLayer, 0, len(plan.Consumptions))
		for _, c := range plan.Consumptions {
			consumed = append(consumed, c.Layer)
		}
		if err := repos.LayerRepo().SaveAll(ctx, consumed); err != nil {
			return nil, nil, err
		}
		uncovered := p.Quantity.Sub(covered)
		totalCost = plan.TotalCost.Add(uncovered.Mul(plan.WeightedUnitCost)).Round(4)
	}

	unitCost := decimal.Zero
	if p.Quantity.GreaterThan(decimal.Zero) {
		unitCost = totalCost.Div(p.Quantity).Round(4)
	}

	if err := repos.BalanceRepo().Save(ctx, p.Balance); err != nil {
		return nil, nil, err
	}

	movement, err := inventory.NewStockMovement(
		p.TenantID, p.Balance.ProductID, p.Balance.LocationID,
		p.MovementType, p.Quantity, unitCost, p.Balance.OnHandQuantity,
		p.ReferenceType, p.ReferenceID, p.Note,
	)
	if err != nil {
		return nil, nil, err
	}
	// TotalCost recomputed from rounded unit cost can drift; keep the exact sum
	movement.TotalCost = totalCost
	if err := repos.MovementRepo().Save(ctx, movement); err != nil {
		return nil, nil, err
	}

	if plan != nil {
		consumptions := make([]*inventory.MovementConsumption, 0, len(plan.Consumptions))
		for _, c := range plan.Consumptions {
			consumptions = append(consumptions, inventory.NewMovementConsumption(p.TenantID, movement.ID, c.Layer.ID, c.Quantity, c.UnitCost))
		}
		if err := repos.MovementRepo().SaveConsumptions(ctx, consumptions); err != nil {
			return nil, nil, err
		}
	}

	if err := assertLayerTotals(ctx, repos, p.TenantID, p.Balance); err != nil {
		return nil, nil, err
	}
	return movement, plan, nil
}

// assertLayerTotals re-reads the open layers and verifies their remaining
// quantities sum to the on-hand quantity. Skipped while on-hand is negative:
// layers floor at zero, so the identity cannot hold until the backorder is
// absorbed by an inbound.
func assertLayerTotals(ctx context.Context, repos TransactionalRepositories, tenantID uuid.UUID, balance *inventory.InventoryBalance) error {
	if balance.OnHandQuantity.IsNegative() {
		return nil
	}
	layers, err := repos.LayerRepo().FindOpenByScope(ctx, tenantID, balance.ProductID, balance.LocationID)
	if err != nil {
		return err
	}
	if !inventory.LayerTotal(layers).Equal(balance.OnHandQuantity) {
		return shared.NewInvariantViolationError("Cost layer totals diverged from on-hand quantity")
	}
	return nil
}
