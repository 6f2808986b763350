package inventory

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestReservation(t *testing.T) *StockReservation {
	t.Helper()
	expires := time.Now().Add(time.Hour)
	reservation, err := NewStockReservation(
		uuid.New(), uuid.New(), uuid.New(),
		decimal.NewFromFloat(5),
		ReferenceTypeCart, "cart-001",
		&expires,
	)
	require.NoError(t, err)
	return reservation
}

func TestNewStockReservation(t *testing.T) {
	t.Run("creates active reservation", func(t *testing.T) {
		reservation := createTestReservation(t)
		assert.Equal(t, ReservationStatusActive, reservation.Status)
		assert.True(t, reservation.IsActive())
		assert.Nil(t, reservation.ReleasedAt)
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		_, err := NewStockReservation(uuid.New(), uuid.New(), uuid.New(), decimal.Zero, ReferenceTypeCart, "cart-001", nil)
		assert.Error(t, err)
	})

	t.Run("rejects empty reference", func(t *testing.T) {
		_, err := NewStockReservation(uuid.New(), uuid.New(), uuid.New(), decimal.NewFromFloat(1), "", "", nil)
		assert.Error(t, err)
	})

	t.Run("rejects past expiry", func(t *testing.T) {
		past := time.Now().Add(-time.Minute)
		_, err := NewStockReservation(uuid.New(), uuid.New(), uuid.New(), decimal.NewFromFloat(1), ReferenceTypeCart, "cart-001", &past)
		assert.Error(t, err)
	})

	t.Run("allows no expiry", func(t *testing.T) {
		reservation, err := NewStockReservation(uuid.New(), uuid.New(), uuid.New(), decimal.NewFromFloat(1), ReferenceTypeCart, "cart-001", nil)
		require.NoError(t, err)
		assert.Nil(t, reservation.ExpiresAt)
		assert.False(t, reservation.IsExpiredAt(time.Now().Add(24*time.Hour)))
	})
}

func TestStockReservation_Release(t *testing.T) {
	t.Run("release moves active to released", func(t *testing.T) {
		reservation := createTestReservation(t)
		assert.True(t, reservation.Release())
		assert.Equal(t, ReservationStatusReleased, reservation.Status)
		assert.NotNil(t, reservation.ReleasedAt)
	})

	t.Run("release is idempotent", func(t *testing.T) {
		reservation := createTestReservation(t)
		assert.True(t, reservation.Release())
		assert.False(t, reservation.Release())
		assert.Equal(t, ReservationStatusReleased, reservation.Status)
	})

	t.Run("release after fulfill is a no-op", func(t *testing.T) {
		reservation := createTestReservation(t)
		require.NoError(t, reservation.Fulfill())
		assert.False(t, reservation.Release())
		assert.Equal(t, ReservationStatusFulfilled, reservation.Status)
	})
}

func TestStockReservation_Expire(t *testing.T) {
	t.Run("expire moves active to expired", func(t *testing.T) {
		reservation := createTestReservation(t)
		assert.True(t, reservation.Expire())
		assert.Equal(t, ReservationStatusExpired, reservation.Status)
	})

	t.Run("expire is idempotent", func(t *testing.T) {
		reservation := createTestReservation(t)
		assert.True(t, reservation.Expire())
		assert.False(t, reservation.Expire())
	})

	t.Run("IsExpiredAt respects the reference time", func(t *testing.T) {
		reservation := createTestReservation(t)
		assert.False(t, reservation.IsExpiredAt(time.Now()))
		assert.True(t, reservation.IsExpiredAt(time.Now().Add(2*time.Hour)))
	})
}

func TestStockReservation_Fulfill(t *testing.T) {
	t.Run("fulfill moves active to fulfilled", func(t *testing.T) {
		reservation := createTestReservation(t)
		require.NoError(t, reservation.Fulfill())
		assert.Equal(t, ReservationStatusFulfilled, reservation.Status)
		assert.NotNil(t, reservation.FulfilledAt)
	})

	t.Run("fulfill fails on released reservation", func(t *testing.T) {
		reservation := createTestReservation(t)
		reservation.Release()
		assert.Error(t, reservation.Fulfill())
	})

	t.Run("double fulfill fails", func(t *testing.T) {
		reservation := createTestReservation(t)
		require.NoError(t, reservation.Fulfill())
		assert.Error(t, reservation.Fulfill())
	})
}

func TestStockReservation_ChangeQuantity(t *testing.T) {
	t.Run("returns delta for increase", func(t *testing.T) {
		reservation := createTestReservation(t)
		delta, err := reservation.ChangeQuantity(decimal.NewFromFloat(8))
		require.NoError(t, err)
		assert.True(t, delta.Equal(decimal.NewFromFloat(3)))
		assert.True(t, reservation.Quantity.Equal(decimal.NewFromFloat(8)))
	})

	t.Run("returns negative delta for decrease", func(t *testing.T) {
		reservation := createTestReservation(t)
		delta, err := reservation.ChangeQuantity(decimal.NewFromFloat(2))
		require.NoError(t, err)
		assert.True(t, delta.Equal(decimal.NewFromFloat(-3)))
	})

	t.Run("fails on non-active reservation", func(t *testing.T) {
		reservation := createTestReservation(t)
		reservation.Release()
		_, err := reservation.ChangeQuantity(decimal.NewFromFloat(2))
		assert.Error(t, err)
	})
}
