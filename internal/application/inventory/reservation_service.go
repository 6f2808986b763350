package inventory

import (
	"context"
	"time"

	"github.com/commercehub/backend/internal/domain/inventory"
	"github.com/commercehub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// DefaultReservationTTL is how long a reservation holds stock when the
	// caller does not ask for a specific TTL
	DefaultReservationTTL = 30 * time.Minute
)

// ReservationService places, adjusts, releases and fulfills stock
// reservations. Reservations withhold availability without posting
// movements; only fulfillment touches the ledger.
type ReservationService struct {
	txScope         TransactionScope
	reservationRepo inventory.ReservationRepository
	eventPublisher  shared.EventPublisher
	defaultTTL      time.Duration
	logger          *zap.Logger
}

// NewReservationService creates a new ReservationService
func NewReservationService(
	txScope TransactionScope,
	reservationRepo inventory.ReservationRepository,
	logger *zap.Logger,
) *ReservationService {
	return &ReservationService{
		txScope:         txScope,
		reservationRepo: reservationRepo,
		defaultTTL:      DefaultReservationTTL,
		logger:          logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *ReservationService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetDefaultTTL sets the fallback reservation TTL
func (s *ReservationService) SetDefaultTTL(ttl time.Duration) {
	if ttl > 0 {
		s.defaultTTL = ttl
	}
}

// Reserve withholds available stock for a business document. Retrying with
// the same reference and scope returns the reservation already held.
func (s *ReservationService) Reserve(ctx context.Context, tenantID uuid.UUID, req ReserveStockRequest) (*ReservationResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if err := requirePositive("Quantity", req.Quantity); err != nil {
		return nil, err
	}

	ttl := req.TTL
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	expiresAt := time.Now().Add(ttl)

	var result *ReservationResult
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		existing, err := repos.ReservationRepo().FindActiveByReference(ctx, tenantID, req.ReferenceType, req.ReferenceID)
		if err != nil {
			return err
		}
		for _, r := range existing {
			if r.ProductID == req.ProductID && r.LocationID == req.LocationID {
				result = reservationResult(r)
				return nil
			}
		}

		balance, err := repos.BalanceRepo().GetOrCreateLocked(ctx, tenantID, inventory.BalanceKey{
			ProductID:  req.ProductID,
			LocationID: req.LocationID,
		})
		if err != nil {
			return err
		}
		if err := balance.Reserve(req.Quantity); err != nil {
			return err
		}
		if err := repos.BalanceRepo().Save(ctx, balance); err != nil {
			return err
		}

		reservation, err := inventory.NewStockReservation(tenantID, req.ProductID, req.LocationID, req.Quantity, req.ReferenceType, req.ReferenceID, &expiresAt)
		if err != nil {
			return err
		}
		if err := repos.ReservationRepo().Save(ctx, reservation); err != nil {
			return err
		}

		result = reservationResult(reservation)
		s.publish(ctx, inventory.NewStockReservedEvent(reservation))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("stock reserved",
		zap.String("tenant_id", tenantID.String()),
		zap.String("reservation_id", result.ReservationID.String()),
		zap.String("quantity", req.Quantity.String()))
	return result, nil
}

// Release returns a reservation's quantity to availability. Releasing a
// reservation that already reached a terminal state is a no-op.
func (s *ReservationService) Release(ctx context.Context, tenantID, reservationID uuid.UUID) (*ReservationResult, error) {
	var result *ReservationResult
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		reservation, err := repos.ReservationRepo().FindByIDForUpdate(ctx, tenantID, reservationID)
		if err != nil {
			return err
		}

		if reservation.Release() {
			if err := s.returnReservedQuantity(ctx, repos, reservation); err != nil {
				return err
			}
			if err := repos.ReservationRepo().Save(ctx, reservation); err != nil {
				return err
			}
			s.publish(ctx, inventory.NewReservationReleasedEvent(reservation))
		}

		result = reservationResult(reservation)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Expire marks an active reservation expired and returns its quantity to
// availability. It is what the sweep does, exposed for direct use; expiring
// an already-terminal reservation is a no-op.
func (s *ReservationService) Expire(ctx context.Context, tenantID, reservationID uuid.UUID) (*ReservationResult, error) {
	var result *ReservationResult
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		reservation, err := repos.ReservationRepo().FindByIDForUpdate(ctx, tenantID, reservationID)
		if err != nil {
			return err
		}

		if reservation.Expire() {
			if err := s.returnReservedQuantity(ctx, repos, reservation); err != nil {
				return err
			}
			if err := repos.ReservationRepo().Save(ctx, reservation); err != nil {
				return err
			}
			s.publish(ctx, inventory.NewReservationExpiredEvent(reservation))
		}

		result = reservationResult(reservation)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ReleaseByReference releases all active reservations held by a business
// document. Each reservation is released in its own transaction so one
// contended row does not hold back the rest.
func (s *ReservationService) ReleaseByReference(ctx context.Context, tenantID uuid.UUID, referenceType, referenceID string) (released int, err error) {
	active, err := s.reservationRepo.FindActiveByReference(ctx, tenantID, referenceType, referenceID)
	if err != nil {
		return 0, err
	}
	for _, r := range active {
		result, err := s.Release(ctx, tenantID, r.ID)
		if err != nil {
			return released, err
		}
		if result.Status == inventory.ReservationStatusReleased {
			released++
		}
	}
	return released, nil
}

// ChangeQuantity resizes an active reservation, adjusting the held balance
// by the difference
func (s *ReservationService) ChangeQuantity(ctx context.Context, tenantID, reservationID uuid.UUID, quantity decimal.Decimal) (*ReservationResult, error) {
	if err := requirePositive("Quantity", quantity); err != nil {
		return nil, err
	}

	var result *ReservationResult
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		reservation, err := repos.ReservationRepo().FindByIDForUpdate(ctx, tenantID, reservationID)
		if err != nil {
			return err
		}

		balance, err := repos.BalanceRepo().GetOrCreateLocked(ctx, tenantID, inventory.BalanceKey{
			ProductID:  reservation.ProductID,
			LocationID: reservation.LocationID,
		})
		if err != nil {
			return err
		}

		delta, err := reservation.ChangeQuantity(quantity)
		if err != nil {
			return err
		}
		if delta.GreaterThan(decimal.Zero) {
			err = balance.Reserve(delta)
		} else if delta.LessThan(decimal.Zero) {
			err = balance.ReleaseReserved(delta.Neg())
		}
		if err != nil {
			return err
		}

		if err := repos.BalanceRepo().Save(ctx, balance); err != nil {
			return err
		}
		if err := repos.ReservationRepo().Save(ctx, reservation); err != nil {
			return err
		}

		result = reservationResult(reservation)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ChangeExpiry moves the expiry of an active reservation. The reserved
// quantity is untouched; a nil expiry makes the hold open-ended.
func (s *ReservationService) ChangeExpiry(ctx context.Context, tenantID, reservationID uuid.UUID, expiresAt *time.Time) (*ReservationResult, error) {
	var result *ReservationResult
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		reservation, err := repos.ReservationRepo().FindByIDForUpdate(ctx, tenantID, reservationID)
		if err != nil {
			return err
		}
		if err := reservation.ChangeExpiry(expiresAt); err != nil {
			return err
		}
		if err := repos.ReservationRepo().Save(ctx, reservation); err != nil {
			return err
		}
		result = reservationResult(reservation)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Fulfill converts an active reservation into an outbound posting. The
// reserved quantity is returned to the balance and immediately removed as
// stock, costed FIFO, inside the same transaction.
func (s *ReservationService) Fulfill(ctx context.Context, tenantID uuid.UUID, req FulfillReservationRequest) (*MovementResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	var result *MovementResult
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		reservation, err := repos.ReservationRepo().FindByIDForUpdate(ctx, tenantID, req.ReservationID)
		if err != nil {
			return err
		}
		if err := reservation.Fulfill(); err != nil {
			return err
		}

		balance, err := repos.BalanceRepo().GetOrCreateLocked(ctx, tenantID, inventory.BalanceKey{
			ProductID:  reservation.ProductID,
			LocationID: reservation.LocationID,
		})
		if err != nil {
			return err
		}
		if err := balance.ReleaseReserved(reservation.Quantity); err != nil {
			return err
		}

		movement, _, err := postOutbound(ctx, repos, outboundPosting{
			TenantID:      tenantID,
			Balance:       balance,
			MovementType:  inventory.MovementTypeOut,
			Quantity:      reservation.Quantity,
			ReferenceType: req.ReferenceType,
			ReferenceID:   req.ReferenceID,
			Note:          req.Note,
		})
		if err != nil {
			return err
		}

		if err := repos.ReservationRepo().Save(ctx, reservation); err != nil {
			return err
		}

		result = movementResult(movement)
		s.publish(ctx, inventory.NewReservationFulfilledEvent(reservation, movement.ID))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("reservation fulfilled",
		zap.String("tenant_id", tenantID.String()),
		zap.String("reservation_id", req.ReservationID.String()),
		zap.String("movement_id", result.MovementID.String()))
	return result, nil
}

// GetReservation returns one reservation
func (s *ReservationService) GetReservation(ctx context.Context, tenantID, reservationID uuid.UUID) (*ReservationResult, error) {
	reservation, err := s.reservationRepo.FindByID(ctx, tenantID, reservationID)
	if err != nil {
		return nil, err
	}
	return reservationResult(reservation), nil
}

// ListReservations lists reservations for a tenant with pagination
func (s *ReservationService) ListReservations(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (shared.Paginated[*ReservationResult], error) {
	page, err := s.reservationRepo.FindAll(ctx, tenantID, filter)
	if err != nil {
		return shared.Paginated[*ReservationResult]{}, err
	}
	results := make([]*ReservationResult, 0, len(page.Items))
	for _, r := range page.Items {
		results = append(results, reservationResult(r))
	}
	return shared.NewPaginated(results, page.Total, page.Page, page.PageSize), nil
}

// returnReservedQuantity gives a released reservation's quantity back to the
// locked balance row
func (s *ReservationService) returnReservedQuantity(ctx context.Context, repos TransactionalRepositories, reservation *inventory.StockReservation) error {
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
	return repos.BalanceRepo().Save(ctx, balance)
}

func (s *ReservationService) publish(ctx context.Context, events ...shared.DomainEvent) {
	if s.eventPublisher == nil {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
}
