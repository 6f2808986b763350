package inventory

import (
	"sort"

	"github.com/commercehub/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// LayerConsumption records how much one layer contributes to a planned outbound
type LayerConsumption struct {
	Layer    *ValuationLayer
	Quantity decimal.Decimal
	UnitCost decimal.Decimal
	Cost     decimal.Decimal
}

// ConsumptionPlan is the result of FIFO cost planning for an outbound quantity
type ConsumptionPlan struct {
	Consumptions     []LayerConsumption
	TotalQuantity    decimal.Decimal
	TotalCost        decimal.Decimal
	WeightedUnitCost decimal.Decimal
}

// PlanConsumption walks the layers oldest-first and plans how the requested
// quantity is drawn from them. Layers are consumed in ascending sequence
// order; each contributes min(remaining request, layer remaining). The plan
// does not mutate the layers; call ApplyConsumptionPlan to commit it.
func PlanConsumption(requested decimal.Decimal, layers []*ValuationLayer) (*ConsumptionPlan, error) {
	if requested.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewValidationError("Requested quantity must be positive")
	}

	sorted := make([]*ValuationLayer, len(layers))
	copy(sorted, layers)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Sequence < sorted[j].Sequence
	})

	plan := &ConsumptionPlan{
		TotalQuantity: decimal.Zero,
		TotalCost:     decimal.Zero,
	}
	remaining := requested

	for _, layer := range sorted {
		if remaining.IsZero() {
			break
		}
		if layer.IsExhausted() {
			continue
		}

		take := remaining
		if take.GreaterThan(layer.RemainingQuantity) {
			take = layer.RemainingQuantity
		}

		cost := take.Mul(layer.UnitCost)
		plan.Consumptions = append(plan.Consumptions, LayerConsumption{
			Layer:    layer,
			Quantity: take,
			UnitCost: layer.UnitCost,
			Cost:     cost,
		})
		plan.TotalQuantity = plan.TotalQuantity.Add(take)
		plan.TotalCost = plan.TotalCost.Add(cost)
		remaining = remaining.Sub(take)
	}

	if remaining.GreaterThan(decimal.Zero) {
		return nil, shared.NewInsufficientStockError("Cost layers do not cover the requested quantity")
	}

	plan.WeightedUnitCost = plan.TotalCost.Div(plan.TotalQuantity).Round(4)
	return plan, nil
}

// ApplyConsumptionPlan commits a plan by consuming each planned layer
func ApplyConsumptionPlan(plan *ConsumptionPlan) error {
	for _, c := range plan.Consumptions {
		if err := c.Layer.Consume(c.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// LayerTotal sums the remaining quantity across layers. Used to assert that
// layer totals stay equal to the on-hand quantity after posting.
func LayerTotal(layers []*ValuationLayer) decimal.Decimal {
	total := decimal.Zero
	for _, layer := range layers {
		total = total.Add(layer.RemainingQuantity)
	}
	return total
}

// LayerValue sums remaining quantity times unit cost across layers
func LayerValue(layers []*ValuationLayer) decimal.Decimal {
	value := decimal.Zero
	for _, layer := range layers {
		value = value.Add(layer.RemainingValue())
	}
	return value
}
