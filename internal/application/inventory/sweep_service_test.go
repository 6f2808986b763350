package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/commercehub/backend/internal/domain/cart"
	"github.com/commercehub/backend/internal/domain/inventory"
	"github.com/commercehub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func forceExpiry(t *testing.T, env *testEnv, reservationID uuid.UUID) {
	t.Helper()
	reservation, err := env.reservationRepo.FindByID(context.Background(), env.tenantID, reservationID)
	require.NoError(t, err)
	past := time.Now().Add(-time.Minute)
	reservation.ExpiresAt = &past
}

func TestReservationSweepService_Sweep(t *testing.T) {
	t.Run("expires overdue reservations and frees their stock", func(t *testing.T) {
		env := newTestEnv()
		productID, locationID := uuid.New(), uuid.New()
		stockIn(t, env, productID, locationID, 20, 5, "PO-001")
		reservation := reserve(t, env, productID, locationID, 8, "cart-001")
		forceExpiry(t, env, reservation.ReservationID)

		stats, err := env.sweep.Sweep(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, stats.ExpiredReservations)
		assert.Equal(t, 0, stats.Failures)

		balance, err := env.ledger.GetBalance(context.Background(), env.tenantID, productID, locationID)
		require.NoError(t, err)
		assert.True(t, balance.ReservedQuantity.IsZero())
		assert.True(t, balance.AvailableQuantity.Equal(decimal.NewFromFloat(20)))

		swept, err := env.reservations.GetReservation(context.Background(), env.tenantID, reservation.ReservationID)
		require.NoError(t, err)
		assert.Equal(t, inventory.ReservationStatusExpired, swept.Status)
	})

	t.Run("leaves unexpired reservations alone", func(t *testing.T) {
		env := newTestEnv()
		productID, locationID := uuid.New(), uuid.New()
		stockIn(t, env, productID, locationID, 20, 5, "PO-001")
		reservation := reserve(t, env, productID, locationID, 8, "cart-001")

		stats, err := env.sweep.Sweep(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, stats.ExpiredReservations)

		held, err := env.reservations.GetReservation(context.Background(), env.tenantID, reservation.ReservationID)
		require.NoError(t, err)
		assert.Equal(t, inventory.ReservationStatusActive, held.Status)
	})

	t.Run("second pass over the same rows is a no-op", func(t *testing.T) {
		env := newTestEnv()
		productID, locationID := uuid.New(), uuid.New()
		stockIn(t, env, productID, locationID, 20, 5, "PO-001")
		reservation := reserve(t, env, productID, locationID, 8, "cart-001")
		forceExpiry(t, env, reservation.ReservationID)

		_, err := env.sweep.Sweep(context.Background())
		require.NoError(t, err)
		stats, err := env.sweep.Sweep(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, stats.ExpiredReservations)

		balance, err := env.ledger.GetBalance(context.Background(), env.tenantID, productID, locationID)
		require.NoError(t, err)
		assert.True(t, balance.ReservedQuantity.IsZero())
	})

	t.Run("removes stale carts after releasing their holds", func(t *testing.T) {
		env := newTestEnv()
		productID, locationID := uuid.New(), uuid.New()
		stockIn(t, env, productID, locationID, 20, 5, "PO-001")

		staleCart, err := cart.NewCart(env.tenantID, uuid.New())
		require.NoError(t, err)
		require.NoError(t, staleCart.AddItem(productID, decimal.NewFromFloat(6)))
		staleCart.LastActivityAt = time.Now().Add(-48 * time.Hour)
		require.NoError(t, env.cartRepo.Save(context.Background(), staleCart))

		reserve(t, env, productID, locationID, 6, staleCart.ID.String())

		stats, err := env.sweep.Sweep(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, stats.AbandonedCarts)
		assert.Equal(t, 1, stats.ReleasedByCart)

		balance, err := env.ledger.GetBalance(context.Background(), env.tenantID, productID, locationID)
		require.NoError(t, err)
		assert.True(t, balance.ReservedQuantity.IsZero())

		// the cart and its line items are gone, not just flagged
		_, err = env.cartRepo.FindByID(context.Background(), env.tenantID, staleCart.ID)
		assert.True(t, shared.IsCode(err, shared.CodeNotFound))
	})

	t.Run("second pass over a removed cart is a no-op", func(t *testing.T) {
		env := newTestEnv()
		productID, locationID := uuid.New(), uuid.New()
		stockIn(t, env, productID, locationID, 20, 5, "PO-001")

		staleCart, err := cart.NewCart(env.tenantID, uuid.New())
		require.NoError(t, err)
		staleCart.LastActivityAt = time.Now().Add(-48 * time.Hour)
		require.NoError(t, env.cartRepo.Save(context.Background(), staleCart))
		reserve(t, env, productID, locationID, 6, staleCart.ID.String())

		_, err = env.sweep.Sweep(context.Background())
		require.NoError(t, err)
		stats, err := env.sweep.Sweep(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, stats.AbandonedCarts)
		assert.Equal(t, 0, stats.Failures)
	})

	t.Run("fresh carts keep their reservations", func(t *testing.T) {
		env := newTestEnv()
		productID, locationID := uuid.New(), uuid.New()
		stockIn(t, env, productID, locationID, 20, 5, "PO-001")

		freshCart, err := cart.NewCart(env.tenantID, uuid.New())
		require.NoError(t, err)
		require.NoError(t, env.cartRepo.Save(context.Background(), freshCart))
		reserve(t, env, productID, locationID, 6, freshCart.ID.String())

		stats, err := env.sweep.Sweep(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, stats.AbandonedCarts)

		balance, err := env.ledger.GetBalance(context.Background(), env.tenantID, productID, locationID)
		require.NoError(t, err)
		assert.True(t, balance.ReservedQuantity.Equal(decimal.NewFromFloat(6)))

		kept, err := env.cartRepo.FindByID(context.Background(), env.tenantID, freshCart.ID)
		require.NoError(t, err)
		assert.Equal(t, cart.CartStatusActive, kept.Status)
	})
}
