package inventory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/commercehub/backend/internal/domain/cart"
	"github.com/commercehub/backend/internal/domain/inventory"
	"github.com/commercehub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// In-memory repositories backing the service tests. They implement the same
// contracts as the persistence layer but skip locking: the NoOp transaction
// scope runs everything sequentially.

type fakeBalanceRepo struct {
	mu       sync.Mutex
	balances map[string]*inventory.InventoryBalance
}

func newFakeBalanceRepo() *fakeBalanceRepo {
	return &fakeBalanceRepo{balances: make(map[string]*inventory.InventoryBalance)}
}

func balanceKey(tenantID, productID, locationID uuid.UUID) string {
	return tenantID.String() + "|" + productID.String() + "|" + locationID.String()
}

func (r *fakeBalanceRepo) FindByID(_ context.Context, tenantID, id uuid.UUID) (*inventory.InventoryBalance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.balances {
		if b.TenantID == tenantID && b.ID == id {
			return b, nil
		}
	}
	return nil, shared.NewNotFoundError("Balance not found")
}

func (r *fakeBalanceRepo) FindByProductLocation(_ context.Context, tenantID, productID, locationID uuid.UUID) (*inventory.InventoryBalance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.balances[balanceKey(tenantID, productID, locationID)]; ok {
		return b, nil
	}
	return nil, shared.NewNotFoundError("Balance not found")
}

func (r *fakeBalanceRepo) GetOrCreateLocked(_ context.Context, tenantID uuid.UUID, key inventory.BalanceKey) (*inventory.InventoryBalance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := balanceKey(tenantID, key.ProductID, key.LocationID)
	if b, ok := r.balances[k]; ok {
		return b, nil
	}
	b, err := inventory.NewInventoryBalance(tenantID, key.ProductID, key.LocationID)
	if err != nil {
		return nil, err
	}
	r.balances[k] = b
	return b, nil
}

func (r *fakeBalanceRepo) Save(_ context.Context, balance *inventory.InventoryBalance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances[balanceKey(balance.TenantID, balance.ProductID, balance.LocationID)] = balance
	return nil
}

func (r *fakeBalanceRepo) FindByProduct(_ context.Context, tenantID, productID uuid.UUID) ([]*inventory.InventoryBalance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*inventory.InventoryBalance
	for _, b := range r.balances {
		if b.TenantID == tenantID && b.ProductID == productID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeBalanceRepo) FindAll(_ context.Context, tenantID uuid.UUID, filter shared.Filter) (shared.Paginated[*inventory.InventoryBalance], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*inventory.InventoryBalance
	for _, b := range r.balances {
		if b.TenantID == tenantID {
			out = append(out, b)
		}
	}
	return shared.NewPaginated(out, int64(len(out)), filter.Page, filter.PageSize), nil
}

type fakeLayerRepo struct {
	mu     sync.Mutex
	layers []*inventory.ValuationLayer
}

func newFakeLayerRepo() *fakeLayerRepo { return &fakeLayerRepo{} }

func (r *fakeLayerRepo) FindByID(_ context.Context, tenantID, id uuid.UUID) (*inventory.ValuationLayer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.layers {
		if l.TenantID == tenantID && l.ID == id {
			return l, nil
		}
	}
	return nil, shared.NewNotFoundError("Layer not found")
}

func (r *fakeLayerRepo) scoped(tenantID, productID, locationID uuid.UUID, openOnly bool) []*inventory.ValuationLayer {
	var out []*inventory.ValuationLayer
	for _, l := range r.layers {
		if l.TenantID != tenantID || l.ProductID != productID || l.LocationID != locationID {
			continue
		}
		if openOnly && l.IsExhausted() {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out
}

func (r *fakeLayerRepo) FindOpenByScope(_ context.Context, tenantID, productID, locationID uuid.UUID) ([]*inventory.ValuationLayer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scoped(tenantID, productID, locationID, true), nil
}

func (r *fakeLayerRepo) FindByScope(_ context.Context, tenantID, productID, locationID uuid.UUID) ([]*inventory.ValuationLayer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scoped(tenantID, productID, locationID, false), nil
}

func (r *fakeLayerRepo) NextSequence(_ context.Context, tenantID, productID, locationID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var max int64
	for _, l := range r.layers {
		if l.TenantID == tenantID && l.ProductID == productID && l.LocationID == locationID && l.Sequence > max {
			max = l.Sequence
		}
	}
	return max + 1, nil
}

func (r *fakeLayerRepo) Save(_ context.Context, layer *inventory.ValuationLayer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, l := range r.layers {
		if l.ID == layer.ID {
			r.layers[i] = layer
			return nil
		}
	}
	r.layers = append(r.layers, layer)
	return nil
}

func (r *fakeLayerRepo) SaveAll(ctx context.Context, layers []*inventory.ValuationLayer) error {
	for _, l := range layers {
		if err := r.Save(ctx, l); err != nil {
			return err
		}
	}
	return nil
}

type fakeMovementRepo struct {
	mu           sync.Mutex
	movements    []*inventory.StockMovement
	consumptions []*inventory.MovementConsumption
}

func newFakeMovementRepo() *fakeMovementRepo { return &fakeMovementRepo{} }

func (r *fakeMovementRepo) FindByID(_ context.Context, tenantID, id uuid.UUID) (*inventory.StockMovement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.movements {
		if m.TenantID == tenantID && m.ID == id {
			return m, nil
		}
	}
	return nil, shared.NewNotFoundError("Movement not found")
}

func (r *fakeMovementRepo) FindByReference(_ context.Context, tenantID uuid.UUID, referenceType, referenceID string) ([]*inventory.StockMovement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*inventory.StockMovement
	for _, m := range r.movements {
		if m.TenantID == tenantID && m.ReferenceType == referenceType && m.ReferenceID == referenceID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMovementRepo) ExistsByReference(_ context.Context, tenantID uuid.UUID, movementType inventory.MovementType, referenceType, referenceID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.movements {
		if m.TenantID == tenantID && m.MovementType == movementType && m.ReferenceType == referenceType && m.ReferenceID == referenceID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeMovementRepo) Save(_ context.Context, movement *inventory.StockMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, m := range r.movements {
		if m.ID == movement.ID {
			r.movements[i] = movement
			return nil
		}
	}
	r.movements = append(r.movements, movement)
	return nil
}

func (r *fakeMovementRepo) SaveConsumptions(_ context.Context, consumptions []*inventory.MovementConsumption) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.consumptions = append(r.consumptions, consumptions...)
	return nil
}

func (r *fakeMovementRepo) FindConsumptions(_ context.Context, tenantID, movementID uuid.UUID) ([]*inventory.MovementConsumption, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*inventory.MovementConsumption
	for _, c := range r.consumptions {
		if c.TenantID == tenantID && c.MovementID == movementID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeMovementRepo) FindHistory(_ context.Context, tenantID, productID, locationID uuid.UUID, filter shared.Filter) (shared.Paginated[*inventory.StockMovement], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*inventory.StockMovement
	for _, m := range r.movements {
		if m.TenantID == tenantID && m.ProductID == productID && m.LocationID == locationID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return shared.NewPaginated(out, int64(len(out)), filter.Page, filter.PageSize), nil
}

type fakeReservationRepo struct {
	mu           sync.Mutex
	reservations []*inventory.StockReservation
}

func newFakeReservationRepo() *fakeReservationRepo { return &fakeReservationRepo{} }

func (r *fakeReservationRepo) FindByID(_ context.Context, tenantID, id uuid.UUID) (*inventory.StockReservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, res := range r.reservations {
		if res.TenantID == tenantID && res.ID == id {
			return res, nil
		}
	}
	return nil, shared.NewNotFoundError("Reservation not found")
}

func (r *fakeReservationRepo) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*inventory.StockReservation, error) {
	return r.FindByID(ctx, tenantID, id)
}

func (r *fakeReservationRepo) FindActiveByReference(_ context.Context, tenantID uuid.UUID, referenceType, referenceID string) ([]*inventory.StockReservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*inventory.StockReservation
	for _, res := range r.reservations {
		if res.TenantID == tenantID && res.ReferenceType == referenceType && res.ReferenceID == referenceID && res.IsActive() {
			out = append(out, res)
		}
	}
	return out, nil
}

func (r *fakeReservationRepo) FindExpired(_ context.Context, asOf time.Time, limit int) ([]*inventory.StockReservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*inventory.StockReservation
	for _, res := range r.reservations {
		if res.IsExpiredAt(asOf) {
			out = append(out, res)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *fakeReservationRepo) Save(_ context.Context, reservation *inventory.StockReservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, res := range r.reservations {
		if res.ID == reservation.ID {
			r.reservations[i] = reservation
			return nil
		}
	}
	r.reservations = append(r.reservations, reservation)
	return nil
}

func (r *fakeReservationRepo) FindAll(_ context.Context, tenantID uuid.UUID, filter shared.Filter) (shared.Paginated[*inventory.StockReservation], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*inventory.StockReservation
	for _, res := range r.reservations {
		if res.TenantID == tenantID {
			out = append(out, res)
		}
	}
	return shared.NewPaginated(out, int64(len(out)), filter.Page, filter.PageSize), nil
}

type fakeTransferRepo struct {
	mu        sync.Mutex
	transfers []*inventory.Transfer
	counter   int
}

func newFakeTransferRepo() *fakeTransferRepo { return &fakeTransferRepo{} }

func (r *fakeTransferRepo) FindByID(_ context.Context, tenantID, id uuid.UUID) (*inventory.Transfer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.transfers {
		if t.TenantID == tenantID && t.ID == id {
			return t, nil
		}
	}
	return nil, shared.NewNotFoundError("Transfer not found")
}

func (r *fakeTransferRepo) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*inventory.Transfer, error) {
	return r.FindByID(ctx, tenantID, id)
}

func (r *fakeTransferRepo) FindByNumber(_ context.Context, tenantID uuid.UUID, transferNumber string) (*inventory.Transfer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.transfers {
		if t.TenantID == tenantID && t.TransferNumber == transferNumber {
			return t, nil
		}
	}
	return nil, shared.NewNotFoundError("Transfer not found")
}

func (r *fakeTransferRepo) NextTransferNumber(_ context.Context, _ uuid.UUID) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counter++
	return inventory.FormatTransferNumber(time.Now().Year(), r.counter), nil
}

func (r *fakeTransferRepo) Save(_ context.Context, transfer *inventory.Transfer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, t := range r.transfers {
		if t.ID == transfer.ID {
			r.transfers[i] = transfer
			return nil
		}
	}
	r.transfers = append(r.transfers, transfer)
	return nil
}

func (r *fakeTransferRepo) FindAll(_ context.Context, tenantID uuid.UUID, filter shared.Filter) (shared.Paginated[*inventory.Transfer], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*inventory.Transfer
	for _, t := range r.transfers {
		if t.TenantID == tenantID {
			out = append(out, t)
		}
	}
	return shared.NewPaginated(out, int64(len(out)), filter.Page, filter.PageSize), nil
}

type fakeCartRepo struct {
	mu    sync.Mutex
	carts []*cart.Cart
}

func newFakeCartRepo() *fakeCartRepo { return &fakeCartRepo{} }

func (r *fakeCartRepo) FindByID(_ context.Context, tenantID, id uuid.UUID) (*cart.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.carts {
		if c.TenantID == tenantID && c.ID == id {
			return c, nil
		}
	}
	return nil, shared.NewNotFoundError("Cart not found")
}

func (r *fakeCartRepo) FindActiveByCustomer(_ context.Context, tenantID, customerID uuid.UUID) (*cart.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.carts {
		if c.TenantID == tenantID && c.CustomerID == customerID && c.IsActive() {
			return c, nil
		}
	}
	return nil, shared.NewNotFoundError("Cart not found")
}

func (r *fakeCartRepo) FindStale(_ context.Context, cutoff time.Time, limit int) ([]*cart.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*cart.Cart
	for _, c := range r.carts {
		if c.IsStaleAt(cutoff) {
			out = append(out, c)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *fakeCartRepo) Delete(_ context.Context, tenantID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, c := range r.carts {
		if c.TenantID == tenantID && c.ID == id {
			r.carts = append(r.carts[:i], r.carts[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *fakeCartRepo) Save(_ context.Context, c *cart.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.carts {
		if existing.ID == c.ID {
			r.carts[i] = c
			return nil
		}
	}
	r.carts = append(r.carts, c)
	return nil
}

type fakeIdempotencyStore struct {
	mu      sync.Mutex
	entries map[shared.IdempotencyKey][]byte
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{entries: make(map[shared.IdempotencyKey][]byte)}
}

func (s *fakeIdempotencyStore) Get(_ context.Context, key shared.IdempotencyKey) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, ok := s.entries[key]
	return payload, ok, nil
}

func (s *fakeIdempotencyStore) Set(_ context.Context, key shared.IdempotencyKey, payload []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = payload
	return nil
}

func (s *fakeIdempotencyStore) Delete(_ context.Context, key shared.IdempotencyKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// testEnv wires the services over the in-memory repositories
type testEnv struct {
	tenantID        uuid.UUID
	balanceRepo     *fakeBalanceRepo
	layerRepo       *fakeLayerRepo
	movementRepo    *fakeMovementRepo
	reservationRepo *fakeReservationRepo
	transferRepo    *fakeTransferRepo
	cartRepo        *fakeCartRepo
	scope           *NoOpTransactionScope
	ledger          *LedgerService
	reservations    *ReservationService
	transfers       *TransferService
	sweep           *ReservationSweepService
}

func newTestEnv() *testEnv {
	env := &testEnv{
		tenantID:        uuid.New(),
		balanceRepo:     newFakeBalanceRepo(),
		layerRepo:       newFakeLayerRepo(),
		movementRepo:    newFakeMovementRepo(),
		reservationRepo: newFakeReservationRepo(),
		transferRepo:    newFakeTransferRepo(),
		cartRepo:        newFakeCartRepo(),
	}
	env.scope = NewNoOpTransactionScope(
		env.balanceRepo, env.layerRepo, env.movementRepo,
		env.reservationRepo, env.transferRepo, env.cartRepo,
	)
	logger := zap.NewNop()
	env.ledger = NewLedgerService(env.scope, env.balanceRepo, env.layerRepo, env.movementRepo, logger)
	env.reservations = NewReservationService(env.scope, env.reservationRepo, logger)
	env.transfers = NewTransferService(env.scope, env.transferRepo, logger)
	env.sweep = NewReservationSweepService(env.scope, env.reservationRepo, env.cartRepo, logger)
	return env
}
