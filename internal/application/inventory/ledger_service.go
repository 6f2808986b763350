package inventory

import (
	"context"
	"encoding/json"
	"time"

	"github.com/commercehub/backend/internal/domain/inventory"
	"github.com/commercehub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// DefaultIdempotencyTTL is how long completed posting results are cached
	DefaultIdempotencyTTL = 24 * time.Hour

	opStockIn  = "stock_in"
	opStockOut = "stock_out"
	opAdjust   = "adjust"
)

// BackorderPolicy decides which reference types may drive on-hand negative
type BackorderPolicy struct {
	allowed map[string]bool
}

// NewBackorderPolicy creates a policy from the configured reference types
func NewBackorderPolicy(referenceTypes []string) BackorderPolicy {
	allowed := make(map[string]bool, len(referenceTypes))
	for _, rt := range referenceTypes {
		allowed[rt] = true
	}
	return BackorderPolicy{allowed: allowed}
}

// Allows reports whether a backorder request is honored for the reference type
func (p BackorderPolicy) Allows(referenceType string) bool {
	return p.allowed[referenceType]
}

// LedgerService posts stock movements and answers balance, history and
// valuation queries. Every posting runs in one transaction holding the
// balance row lock; the (movement type, reference) pair is the idempotency
// guard, with the idempotency store as a fast path for retries.
type LedgerService struct {
	txScope          TransactionScope
	balanceRepo      inventory.BalanceRepository
	layerRepo        inventory.LayerRepository
	movementRepo     inventory.MovementRepository
	idempotencyStore shared.IdempotencyStore
	eventPublisher   shared.EventPublisher
	backorderPolicy  BackorderPolicy
	idempotencyTTL   time.Duration
	logger           *zap.Logger
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(
	txScope TransactionScope,
	balanceRepo inventory.BalanceRepository,
	layerRepo inventory.LayerRepository,
	movementRepo inventory.MovementRepository,
	logger *zap.Logger,
) *LedgerService {
	return &LedgerService{
		txScope:         txScope,
		balanceRepo:     balanceRepo,
		layerRepo:       layerRepo,
		movementRepo:    movementRepo,
		backorderPolicy: NewBackorderPolicy(nil),
		idempotencyTTL:  DefaultIdempotencyTTL,
		logger:          logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *LedgerService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetIdempotencyStore sets the fast-path store for posting results
func (s *LedgerService) SetIdempotencyStore(store shared.IdempotencyStore) {
	s.idempotencyStore = store
}

// SetBackorderPolicy sets the backorder policy
func (s *LedgerService) SetBackorderPolicy(policy BackorderPolicy) {
	s.backorderPolicy = policy
}

// SetIdempotencyTTL sets how long cached posting results survive
func (s *LedgerService) SetIdempotencyTTL(ttl time.Duration) {
	if ttl > 0 {
		s.idempotencyTTL = ttl
	}
}

// StockIn posts the inbound lines of one business document atomically. Each
// line opens a cost layer at its unit cost.
func (s *LedgerService) StockIn(ctx context.Context, tenantID uuid.UUID, req StockInRequest) (*MovementBatchResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	for _, item := range req.Items {
		if err := requirePositive("Item quantity", item.Quantity); err != nil {
			return nil, err
		}
		if item.UnitCost.IsNegative() {
			return nil, shared.NewValidationError("Unit cost cannot be negative")
		}
	}

	key := shared.NewIdempotencyKey(tenantID, opStockIn, req.ReferenceType, req.ReferenceID)
	if cached := s.cachedResult(ctx, key); cached != nil {
		return cached, nil
	}

	var result *MovementBatchResult
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		duplicate, err := s.findDuplicate(ctx, repos, tenantID, req.ReferenceType, req.ReferenceID, inventory.MovementTypeIn)
		if err != nil || duplicate != nil {
			result = duplicate
			return err
		}

		productIDs := make([]uuid.UUID, 0, len(req.Items))
		for _, item := range req.Items {
			productIDs = append(productIDs, item.ProductID)
		}
		balances, err := lockBalances(ctx, repos, tenantID, req.LocationID, productIDs)
		if err != nil {
			return err
		}

		movements := make([]*inventory.StockMovement, 0, len(req.Items))
		for _, item := range req.Items {
			movement, err := postInbound(ctx, repos, inboundPosting{
				TenantID:      tenantID,
				Balance:       balances[item.ProductID],
				MovementType:  inventory.MovementTypeIn,
				Quantity:      item.Quantity,
				UnitCost:      item.UnitCost,
				ReferenceType: req.ReferenceType,
				ReferenceID:   req.ReferenceID,
				BatchID:       item.BatchID,
				Note:          req.Note,
			})
			if err != nil {
				return err
			}
			movements = append(movements, movement)
			s.publish(ctx, inventory.NewStockReceivedEvent(movement))
		}

		result = movementBatchResult(movements, req.ReferenceType, req.ReferenceID, false)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cacheResult(ctx, key, result)
	s.logger.Info("stock in posted",
		zap.String("tenant_id", tenantID.String()),
		zap.String("location_id", req.LocationID.String()),
		zap.String("reference", req.ReferenceType+":"+req.ReferenceID),
		zap.Int("items", len(req.Items)),
		zap.Bool("duplicate", result.Duplicate))
	return result, nil
}

// StockOut posts the outbound lines of one business document atomically,
// each costed FIFO from the open layers. Availability is verified for every
// line before any line posts, so a short line fails the whole document.
func (s *LedgerService) StockOut(ctx context.Context, tenantID uuid.UUID, req StockOutRequest) (*MovementBatchResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	for _, item := range req.Items {
		if err := requirePositive("Item quantity", item.Quantity); err != nil {
			return nil, err
		}
	}

	allowBackorder := req.AllowBackorder && s.backorderPolicy.Allows(req.ReferenceType)

	key := shared.NewIdempotencyKey(tenantID, opStockOut, req.ReferenceType, req.ReferenceID)
	if cached := s.cachedResult(ctx, key); cached != nil {
		return cached, nil
	}

	var result *MovementBatchResult
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		duplicate, err := s.findDuplicate(ctx, repos, tenantID, req.ReferenceType, req.ReferenceID, inventory.MovementTypeOut)
		if err != nil || duplicate != nil {
			result = duplicate
			return err
		}

		demand := make(map[uuid.UUID]decimal.Decimal, len(req.Items))
		productIDs := make([]uuid.UUID, 0, len(req.Items))
		for _, item := range req.Items {
			productIDs = append(productIDs, item.ProductID)
			demand[item.ProductID] = demand[item.ProductID].Add(item.Quantity)
		}
		balances, err := lockBalances(ctx, repos, tenantID, req.LocationID, productIDs)
		if err != nil {
			return err
		}
		if !allowBackorder {
			for productID, quantity := range demand {
				if !balances[productID].CanFulfill(quantity) {
					return shared.NewInsufficientStockError("Insufficient available stock for product " + productID.String())
				}
			}
		}

		movements := make([]*inventory.StockMovement, 0, len(req.Items))
		for _, item := range req.Items {
			movement, _, err := postOutbound(ctx, repos, outboundPosting{
				TenantID:       tenantID,
				Balance:        balances[item.ProductID],
				MovementType:   inventory.MovementTypeOut,
				Quantity:       item.Quantity,
				ReferenceType:  req.ReferenceType,
				ReferenceID:    req.ReferenceID,
				Note:           req.Note,
				AllowBackorder: allowBackorder,
			})
			if err != nil {
				return err
			}
			movements = append(movements, movement)
			s.publish(ctx, inventory.NewStockIssuedEvent(movement))
		}

		result = movementBatchResult(movements, req.ReferenceType, req.ReferenceID, false)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cacheResult(ctx, key, result)
	s.logger.Info("stock out posted",
		zap.String("tenant_id", tenantID.String()),
		zap.String("location_id", req.LocationID.String()),
		zap.String("reference", req.ReferenceType+":"+req.ReferenceID),
		zap.Int("items", len(req.Items)),
		zap.Bool("backorder", allowBackorder),
		zap.Bool("duplicate", result.Duplicate))
	return result, nil
}

// AdjustStock corrects on-hand stock, posting every line of the correction
// atomically. Positive quantities post ADJUST_IN at the line's unit cost;
// negative quantities post ADJUST_OUT costed FIFO.
func (s *LedgerService) AdjustStock(ctx context.Context, tenantID uuid.UUID, req AdjustStockRequest) (*MovementBatchResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	for _, item := range req.Items {
		if item.Quantity.IsZero() {
			return nil, shared.NewValidationError("Adjustment quantity cannot be zero")
		}
		if item.Quantity.GreaterThan(decimal.Zero) && item.UnitCost.LessThanOrEqual(decimal.Zero) {
			return nil, shared.NewValidationError("Positive adjustments require a unit cost")
		}
	}

	key := shared.NewIdempotencyKey(tenantID, opAdjust, inventory.ReferenceTypeAdjustment, req.ReferenceID)
	if cached := s.cachedResult(ctx, key); cached != nil {
		return cached, nil
	}

	var result *MovementBatchResult
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		duplicate, err := s.findDuplicate(ctx, repos, tenantID, inventory.ReferenceTypeAdjustment, req.ReferenceID,
			inventory.MovementTypeAdjustIn, inventory.MovementTypeAdjustOut)
		if err != nil || duplicate != nil {
			result = duplicate
			return err
		}

		productIDs := make([]uuid.UUID, 0, len(req.Items))
		for _, item := range req.Items {
			productIDs = append(productIDs, item.ProductID)
		}
		balances, err := lockBalances(ctx, repos, tenantID, req.LocationID, productIDs)
		if err != nil {
			return err
		}

		movements := make([]*inventory.StockMovement, 0, len(req.Items))
		for _, item := range req.Items {
			var movement *inventory.StockMovement
			if item.Quantity.GreaterThan(decimal.Zero) {
				movement, err = postInbound(ctx, repos, inboundPosting{
					TenantID:      tenantID,
					Balance:       balances[item.ProductID],
					MovementType:  inventory.MovementTypeAdjustIn,
					Quantity:      item.Quantity,
					UnitCost:      item.UnitCost,
					ReferenceType: inventory.ReferenceTypeAdjustment,
					ReferenceID:   req.ReferenceID,
					Note:          req.Reason,
				})
			} else {
				movement, _, err = postOutbound(ctx, repos, outboundPosting{
					TenantID:      tenantID,
					Balance:       balances[item.ProductID],
					MovementType:  inventory.MovementTypeAdjustOut,
					Quantity:      item.Quantity.Neg(),
					ReferenceType: inventory.ReferenceTypeAdjustment,
					ReferenceID:   req.ReferenceID,
					Note:          req.Reason,
				})
			}
			if err != nil {
				return err
			}
			movements = append(movements, movement)
			s.publish(ctx, inventory.NewStockAdjustedEvent(movement))
		}

		result = movementBatchResult(movements, inventory.ReferenceTypeAdjustment, req.ReferenceID, false)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cacheResult(ctx, key, result)
	s.logger.Info("stock adjusted",
		zap.String("tenant_id", tenantID.String()),
		zap.String("location_id", req.LocationID.String()),
		zap.String("reference_id", req.ReferenceID),
		zap.Int("items", len(req.Items)),
		zap.String("reason", req.Reason))
	return result, nil
}

// ReverseMovement posts a compensating movement for a completed one and
// marks the original reversed. Outbound reversals reinstate the consumed
// layers; inbound reversals require the opened layer to still be untouched.
func (s *LedgerService) ReverseMovement(ctx context.Context, tenantID, movementID uuid.UUID) (*MovementResult, error) {
	var result *MovementResult
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		original, err := repos.MovementRepo().FindByID(ctx, tenantID, movementID)
		if err != nil {
			return err
		}
		if original.Status == inventory.MovementStatusReversed {
			return shared.NewStateConflictError("Movement is already reversed")
		}

		reverseType, err := original.MovementType.ReverseType()
		if err != nil {
			return err
		}

		balance, err := repos.BalanceRepo().GetOrCreateLocked(ctx, tenantID, inventory.BalanceKey{
			ProductID:  original.ProductID,
			LocationID: original.LocationID,
		})
		if err != nil {
			return err
		}

		var reversal *inventory.StockMovement
		if original.MovementType.IsOutbound() {
			reversal, err = s.reverseOutbound(ctx, repos, original, balance, reverseType)
		} else {
			reversal, err = s.reverseInbound(ctx, repos, original, balance, reverseType)
		}
		if err != nil {
			return err
		}

		if err := original.MarkReversed(reversal.ID); err != nil {
			return err
		}
		if err := repos.MovementRepo().Save(ctx, original); err != nil {
			return err
		}

		result = movementResult(reversal)
		s.publish(ctx, inventory.NewMovementReversedEvent(original, reversal))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("movement reversed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("movement_id", movementID.String()),
		zap.String("reversal_id", result.MovementID.String()))
	return result, nil
}

// reverseOutbound puts the consumed quantities back into their original
// layers. A backordered remainder that never drew from a layer comes back
// as a fresh layer at the movement's blended cost.
func (s *LedgerService) reverseOutbound(ctx context.Context, repos TransactionalRepositories, original *inventory.StockMovement, balance *inventory.InventoryBalance, reverseType inventory.MovementType) (*inventory.StockMovement, error) {
	consumptions, err := repos.MovementRepo().FindConsumptions(ctx, original.TenantID, original.ID)
	if err != nil {
		return nil, err
	}

	reinstated := decimal.Zero
	for _, c := range consumptions {
		layer, err := repos.LayerRepo().FindByID(ctx, original.TenantID, c.LayerID)
		if err != nil {
			return nil, err
		}
		if err := layer.Reinstate(c.Quantity); err != nil {
			return nil, err
		}
		if err := repos.LayerRepo().Save(ctx, layer); err != nil {
			return nil, err
		}
		reinstated = reinstated.Add(c.Quantity)
	}

	if err := balance.AddStock(original.Quantity); err != nil {
		return nil, err
	}

	remainder := original.Quantity.Sub(reinstated)
	if remainder.GreaterThan(decimal.Zero) {
		sequence, err := repos.LayerRepo().NextSequence(ctx, original.TenantID, original.ProductID, original.LocationID)
		if err != nil {
			return nil, err
		}
		layer, err := inventory.NewValuationLayer(original.TenantID, original.ProductID, original.LocationID, sequence, remainder, original.UnitCost, "")
		if err != nil {
			return nil, err
		}
		if err := repos.LayerRepo().Save(ctx, layer); err != nil {
			return nil, err
		}
	}

	if err := repos.BalanceRepo().Save(ctx, balance); err != nil {
		return nil, err
	}

	reversal, err := inventory.NewStockMovement(
		original.TenantID, original.ProductID, original.LocationID,
		reverseType, original.Quantity, original.UnitCost, balance.OnHandQuantity,
		inventory.ReferenceTypeReversal, original.ID.String(), "Reversal of "+string(original.MovementType),
	)
	if err != nil {
		return nil, err
	}
	reversal.TotalCost = original.TotalCost
	if err := repos.MovementRepo().Save(ctx, reversal); err != nil {
		return nil, err
	}

	if err := assertLayerTotals(ctx, repos, original.TenantID, balance); err != nil {
		return nil, err
	}
	return reversal, nil
}

// reverseInbound removes the layer the inbound opened. The layer must still
// hold its full quantity; once any of it has been consumed the inbound can
// only be corrected with an adjustment.
func (s *LedgerService) reverseInbound(ctx context.Context, repos TransactionalRepositories, original *inventory.StockMovement, balance *inventory.InventoryBalance, reverseType inventory.MovementType) (*inventory.StockMovement, error) {
	if original.LayerID != nil {
		layer, err := repos.LayerRepo().FindByID(ctx, original.TenantID, *original.LayerID)
		if err != nil {
			return nil, err
		}
		if !layer.RemainingQuantity.Equal(layer.OriginalQuantity) {
			return nil, shared.NewStateConflictError("Cost layer already partially consumed; post an adjustment instead")
		}
		if err := layer.Consume(layer.RemainingQuantity); err != nil {
			return nil, err
		}
		if err := repos.LayerRepo().Save(ctx, layer); err != nil {
			return nil, err
		}
	}

	if err := balance.RemoveStock(original.Quantity, false); err != nil {
		return nil, err
	}
	if err := repos.BalanceRepo().Save(ctx, balance); err != nil {
		return nil, err
	}

	reversal, err := inventory.NewStockMovement(
		original.TenantID, original.ProductID, original.LocationID,
		reverseType, original.Quantity, original.UnitCost, balance.OnHandQuantity,
		inventory.ReferenceTypeReversal, original.ID.String(), "Reversal of "+string(original.MovementType),
	)
	if err != nil {
		return nil, err
	}
	reversal.TotalCost = original.TotalCost
	if err := repos.MovementRepo().Save(ctx, reversal); err != nil {
		return nil, err
	}

	if err := assertLayerTotals(ctx, repos, original.TenantID, balance); err != nil {
		return nil, err
	}
	return reversal, nil
}

// GetBalance returns the balance for a product at a location. An unknown
// combination reads as an all-zero balance.
func (s *LedgerService) GetBalance(ctx context.Context, tenantID, productID, locationID uuid.UUID) (*BalanceResult, error) {
	balance, err := s.balanceRepo.FindByProductLocation(ctx, tenantID, productID, locationID)
	if err != nil {
		if shared.IsCode(err, shared.CodeNotFound) {
			return &BalanceResult{
				ProductID:         productID,
				LocationID:        locationID,
				OnHandQuantity:    decimal.Zero,
				ReservedQuantity:  decimal.Zero,
				AvailableQuantity: decimal.Zero,
			}, nil
		}
		return nil, err
	}
	return balanceResult(balance), nil
}

// ListBalances lists balances for a tenant with pagination
func (s *LedgerService) ListBalances(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (shared.Paginated[*BalanceResult], error) {
	page, err := s.balanceRepo.FindAll(ctx, tenantID, filter)
	if err != nil {
		return shared.Paginated[*BalanceResult]{}, err
	}
	results := make([]*BalanceResult, 0, len(page.Items))
	for _, b := range page.Items {
		results = append(results, balanceResult(b))
	}
	return shared.NewPaginated(results, page.Total, page.Page, page.PageSize), nil
}

// GetMovementHistory lists movements for a product at a location, newest first
func (s *LedgerService) GetMovementHistory(ctx context.Context, tenantID, productID, locationID uuid.UUID, filter shared.Filter) (shared.Paginated[*MovementResult], error) {
	page, err := s.movementRepo.FindHistory(ctx, tenantID, productID, locationID, filter)
	if err != nil {
		return shared.Paginated[*MovementResult]{}, err
	}
	results := make([]*MovementResult, 0, len(page.Items))
	for _, m := range page.Items {
		results = append(results, movementResult(m))
	}
	return shared.NewPaginated(results, page.Total, page.Page, page.PageSize), nil
}

// GetValuation reports the open layers and blended value for a product at a location
func (s *LedgerService) GetValuation(ctx context.Context, tenantID, productID, locationID uuid.UUID) (*ValuationReport, error) {
	layers, err := s.layerRepo.FindOpenByScope(ctx, tenantID, productID, locationID)
	if err != nil {
		return nil, err
	}

	report := &ValuationReport{
		ProductID:      productID,
		LocationID:     locationID,
		OnHandQuantity: inventory.LayerTotal(layers),
		TotalValue:     inventory.LayerValue(layers),
		AverageCost:    decimal.Zero,
	}
	if report.OnHandQuantity.GreaterThan(decimal.Zero) {
		report.AverageCost = report.TotalValue.Div(report.OnHandQuantity).Round(4)
	}
	for _, layer := range layers {
		report.Layers = append(report.Layers, ValuationLayerResult{
			LayerID:           layer.ID,
			Sequence:          layer.Sequence,
			OriginalQuantity:  layer.OriginalQuantity,
			RemainingQuantity: layer.RemainingQuantity,
			UnitCost:          layer.UnitCost,
			RemainingValue:    layer.RemainingValue(),
			BatchID:           layer.BatchID,
		})
	}
	return report, nil
}

// findDuplicate looks for earlier movements with the same reference inside
// the transaction. On a hit the whole original batch comes back flagged
// duplicate, so a retried document never posts a partial second batch.
func (s *LedgerService) findDuplicate(ctx context.Context, repos TransactionalRepositories, tenantID uuid.UUID, referenceType, referenceID string, movementTypes ...inventory.MovementType) (*MovementBatchResult, error) {
	exists := false
	for _, mt := range movementTypes {
		found, err := repos.MovementRepo().ExistsByReference(ctx, tenantID, mt, referenceType, referenceID)
		if err != nil {
			return nil, err
		}
		if found {
			exists = true
			break
		}
	}
	if !exists {
		return nil, nil
	}

	movements, err := repos.MovementRepo().FindByReference(ctx, tenantID, referenceType, referenceID)
	if err != nil {
		return nil, err
	}
	matched := make([]*inventory.StockMovement, 0, len(movements))
	for _, m := range movements {
		for _, mt := range movementTypes {
			if m.MovementType == mt {
				matched = append(matched, m)
				break
			}
		}
	}
	if len(matched) == 0 {
		return nil, nil
	}
	return movementBatchResult(matched, referenceType, referenceID, true), nil
}

func (s *LedgerService) cachedResult(ctx context.Context, key shared.IdempotencyKey) *MovementBatchResult {
	if s.idempotencyStore == nil {
		return nil
	}
	payload, ok, err := s.idempotencyStore.Get(ctx, key)
	if err != nil || !ok {
		return nil
	}
	var result MovementBatchResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil
	}
	result.Duplicate = true
	return &result
}

func (s *LedgerService) cacheResult(ctx context.Context, key shared.IdempotencyKey, result *MovementBatchResult) {
	if s.idempotencyStore == nil || result == nil || result.Duplicate {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := s.idempotencyStore.Set(ctx, key, payload, s.idempotencyTTL); err != nil {
		s.logger.Warn("idempotency cache write failed", zap.Error(err))
	}
}

func (s *LedgerService) publish(ctx context.Context, events ...shared.DomainEvent) {
	if s.eventPublisher == nil {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
}
