package inventory

import (
	"context"
	"time"

	"github.com/commercehub/backend/internal/domain/cart"
	"github.com/commercehub/backend/internal/domain/inventory"
	"github.com/commercehub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultSweepBatchSize caps how many rows one sweep pass touches
	DefaultSweepBatchSize = 500

	// DefaultCartMaxAge is how long an idle cart keeps its reservations
	DefaultCartMaxAge = 24 * time.Hour
)

// ReservationSweepService expires overdue reservations and clears stale
// carts: a stale cart's holds are released back to availability first, then
// the cart and its line items are removed. Each reservation is processed in
// its own transaction so one contended row cannot roll back the whole pass;
// a crashed pass simply leaves work for the next run.
type ReservationSweepService struct {
	txScope         TransactionScope
	reservationRepo inventory.ReservationRepository
	cartRepo        cart.CartRepository
	eventPublisher  shared.EventPublisher
	batchSize       int
	cartMaxAge      time.Duration
	logger          *zap.Logger
}

// NewReservationSweepService creates a new ReservationSweepService
func NewReservationSweepService(
	txScope TransactionScope,
	reservationRepo inventory.ReservationRepository,
	cartRepo cart.CartRepository,
	logger *zap.Logger,
) *ReservationSweepService {
	return &ReservationSweepService{
		txScope:         txScope,
		reservationRepo: reservationRepo,
		cartRepo:        cartRepo,
		batchSize:       DefaultSweepBatchSize,
		cartMaxAge:      DefaultCartMaxAge,
		logger:          logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *ReservationSweepService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetBatchSize caps the rows one pass processes
func (s *ReservationSweepService) SetBatchSize(size int) {
	if size > 0 {
		s.batchSize = size
	}
}

// SetCartMaxAge sets the idle age after which carts are abandoned
func (s *ReservationSweepService) SetCartMaxAge(age time.Duration) {
	if age > 0 {
		s.cartMaxAge = age
	}
}

// SweepStats summarizes one sweep pass
type SweepStats struct {
	ExpiredReservations int       `json:"expired_reservations"`
	AbandonedCarts      int       `json:"abandoned_carts"`
	ReleasedByCart      int       `json:"released_by_cart"`
	Failures            int       `json:"failures"`
	ProcessedAt         time.Time `json:"processed_at"`
}

// Sweep runs one full pass: expire overdue reservations, then release and
// remove stale carts
func (s *ReservationSweepService) Sweep(ctx context.Context) (*SweepStats, error) {
	stats := &SweepStats{ProcessedAt: time.Now()}

	if err := s.expireOverdueReservations(ctx, stats); err != nil {
		return stats, err
	}
	if err := s.abandonStaleCarts(ctx, stats); err != nil {
		return stats, err
	}

	s.logger.Info("sweep pass completed",
		zap.Int("expired_reservations", stats.ExpiredReservations),
		zap.Int("abandoned_carts", stats.AbandonedCarts),
		zap.Int("released_by_cart", stats.ReleasedByCart),
		zap.Int("failures", stats.Failures))
	return stats, nil
}

func (s *ReservationSweepService) expireOverdueReservations(ctx context.Context, stats *SweepStats) error {
	overdue, err := s.reservationRepo.FindExpired(ctx, stats.ProcessedAt, s.batchSize)
	if err != nil {
		s.logger.Error("failed to find expired reservations", zap.Error(err))
		return err
	}
	if len(overdue) == 0 {
		s.logger.Debug("no expired reservations found")
		return nil
	}

	for _, r := range overdue {
		if err := s.expireReservation(ctx, r.TenantID, r.ID); err != nil {
			s.logger.Error("failed to expire reservation",
				zap.String("reservation_id", r.ID.String()),
				zap.Error(err))
			stats.Failures++
			continue
		}
		stats.ExpiredReservations++
	}
	return nil
}

// expireReservation expires one reservation in its own transaction. The
// row is re-read under lock: another worker may already have released,
// fulfilled or expired it, which makes this a no-op.
func (s *ReservationSweepService) expireReservation(ctx context.Context, tenantID, reservationID uuid.UUID) error {
	return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		reservation, err := repos.ReservationRepo().FindByIDForUpdate(ctx, tenantID, reservationID)
		if err != nil {
			return err
		}
		if !reservation.IsExpiredAt(time.Now()) {
			return nil
		}
		if !reservation.Expire() {
			return nil
		}

		balance, err := repos.BalanceRepo().GetOrCreateLocked(ctx, reservation.TenantID, inventory.BalanceKey{
			ProductID:  reservation.ProductID,
			LocationID: reservation.LocationID,
		})
		if err != nil {
			return err
		}
		if err := balance.ReleaseReserved(reservation.Quantity); err != nil {
			return err
		}
		if err := repos.BalanceRepo().Save(ctx, balance); err != nil {
			return err
		}
		if err := repos.ReservationRepo().Save(ctx, reservation); err != nil {
			return err
		}

		s.publish(ctx, inventory.NewReservationExpiredEvent(reservation))
		return nil
	})
}

func (s *ReservationSweepService) abandonStaleCarts(ctx context.Context, stats *SweepStats) error {
	cutoff := stats.ProcessedAt.Add(-s.cartMaxAge)
	stale, err := s.cartRepo.FindStale(ctx, cutoff, s.batchSize)
	if err != nil {
		s.logger.Error("failed to find stale carts", zap.Error(err))
		return err
	}
	if len(stale) == 0 {
		s.logger.Debug("no stale carts found")
		return nil
	}

	for _, c := range stale {
		released, removed, err := s.abandonCart(ctx, c.TenantID, c.ID)
		if err != nil {
			s.logger.Error("failed to abandon stale cart",
				zap.String("cart_id", c.ID.String()),
				zap.Error(err))
			stats.Failures++
			continue
		}
		if removed {
			stats.AbandonedCarts++
		}
		stats.ReleasedByCart += released
	}
	return nil
}

// abandonCart releases a stale cart's active reservations and then removes
// the cart with its line items. The cart is re-read under the current clock
// first: a customer returning between the stale scan and this call makes the
// whole step a no-op.
func (s *ReservationSweepService) abandonCart(ctx context.Context, tenantID, cartID uuid.UUID) (released int, removed bool, err error) {
	stale := false
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		c, err := repos.CartRepo().FindByID(ctx, tenantID, cartID)
		if err != nil {
			if shared.IsCode(err, shared.CodeNotFound) {
				return nil // another pass already removed it
			}
			return err
		}
		stale = c.IsStaleAt(time.Now().Add(-s.cartMaxAge))
		return nil
	})
	if err != nil || !stale {
		return 0, false, err
	}

	active, err := s.reservationRepo.FindActiveByReference(ctx, tenantID, inventory.ReferenceTypeCart, cartID.String())
	if err != nil {
		return 0, false, err
	}
	for _, r := range active {
		if err := s.expireHeldReservation(ctx, tenantID, r.ID); err != nil {
			return released, false, err
		}
		released++
	}

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		c, err := repos.CartRepo().FindByID(ctx, tenantID, cartID)
		if err != nil {
			if shared.IsCode(err, shared.CodeNotFound) {
				return nil
			}
			return err
		}
		if !c.IsStaleAt(time.Now().Add(-s.cartMaxAge)) {
			return nil
		}
		removed = true
		return repos.CartRepo().Delete(ctx, tenantID, cartID)
	})
	if err != nil {
		return released, false, err
	}
	return released, removed, nil
}

// expireHeldReservation expires a cart-held reservation regardless of its
// expiry timestamp; the cart abandonment is the trigger
func (s *ReservationSweepService) expireHeldReservation(ctx context.Context, tenantID, reservationID uuid.UUID) error {
	return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		reservation, err := repos.ReservationRepo().FindByIDForUpdate(ctx, tenantID, reservationID)
		if err != nil {
			return err
		}
		if !reservation.Expire() {
			return nil
		}

		balance, err := repos.BalanceRepo().GetOrCreateLocked(ctx, reservation.TenantID, inventory.BalanceKey{
			ProductID:  reservation.ProductID,
			LocationID: reservation.LocationID,
		})
		if err != nil {
			return err
		}
		if err := balance.ReleaseReserved(reservation.Quantity); err != nil {
			return err
		}
		if err := repos.BalanceRepo().Save(ctx, balance); err != nil {
			return err
		}
		if err := repos.ReservationRepo().Save(ctx, reservation); err != nil {
			return err
		}

		s.publish(ctx, inventory.NewReservationExpiredEvent(reservation))
		return nil
	})
}

func (s *ReservationSweepService) publish(ctx context.Context, events ...shared.DomainEvent) {
	if s.eventPublisher == nil {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
}
