package inventory

import (
	"context"

	"github.com/commercehub/backend/internal/domain/cart"
	"github.com/commercehub/backend/internal/domain/inventory"
)

// TransactionScope provides transactional access to ledger repositories.
// When a function is executed within a transaction scope, all repository
// operations are part of the same database transaction and commit or roll
// back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all ledger repositories
// within one transaction. All repositories returned share the same
// underlying database transaction.
type TransactionalRepositories interface {
	// BalanceRepo returns the balance repository scoped to the current transaction
	BalanceRepo() inventory.BalanceRepository
	// LayerRepo returns the valuation layer repository scoped to the current transaction
	LayerRepo() inventory.LayerRepository
	// MovementRepo returns the movement repository scoped to the current transaction
	MovementRepo() inventory.MovementRepository
	// ReservationRepo returns the reservation repository scoped to the current transaction
	ReservationRepo() inventory.ReservationRepository
	// TransferRepo returns the transfer repository scoped to the current transaction
	TransferRepo() inventory.TransferRepository
	// CartRepo returns the cart repository scoped to the current transaction
	CartRepo() cart.CartRepository
}

// NoOpTransactionScope runs the function without a real transaction.
// Useful for tests backed by in-memory repositories.
type NoOpTransactionScope struct {
	balanceRepo     inventory.BalanceRepository
	layerRepo       inventory.LayerRepository
	movementRepo    inventory.MovementRepository
	reservationRepo inventory.ReservationRepository
	transferRepo    inventory.TransferRepository
	cartRepo        cart.CartRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	balanceRepo inventory.BalanceRepository,
	layerRepo inventory.LayerRepository,
	movementRepo inventory.MovementRepository,
	reservationRepo inventory.ReservationRepository,
	transferRepo inventory.TransferRepository,
	cartRepo cart.CartRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		balanceRepo:     balanceRepo,
		layerRepo:       layerRepo,
		movementRepo:    movementRepo,
		reservationRepo: reservationRepo,
		transferRepo:    transferRepo,
		cartRepo:        cartRepo,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// BalanceRepo returns the balance repository.
func (s *NoOpTransactionScope) BalanceRepo() inventory.BalanceRepository {
	return s.balanceRepo
}

// LayerRepo returns the valuation layer repository.
func (s *NoOpTransactionScope) LayerRepo() inventory.LayerRepository {
	return s.layerRepo
}

// MovementRepo returns the movement repository.
func (s *NoOpTransactionScope) MovementRepo() inventory.MovementRepository {
	return s.movementRepo
}

// ReservationRepo returns the reservation repository.
func (s *NoOpTransactionScope) ReservationRepo() inventory.ReservationRepository {
	return s.reservationRepo
}

// TransferRepo returns the transfer repository.
func (s *NoOpTransactionScope) TransferRepo() inventory.TransferRepository {
	return s.transferRepo
}

// CartRepo returns the cart repository.
func (s *NoOpTransactionScope) CartRepo() cart.CartRepository {
	return s.cartRepo
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
