package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/commercehub/backend/internal/domain/cart"
	"github.com/commercehub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCart(t *testing.T, tenantID, customerID uuid.UUID) *cart.Cart {
	t.Helper()
	c, err := cart.NewCart(tenantID, customerID)
	require.NoError(t, err)
	require.NoError(t, c.AddItem(uuid.New(), decimal.RequireFromString("1")))
	return c
}

func TestCartRepository_FindActiveByCustomer(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormCartRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()
	customerID := uuid.New()

	c := newTestCart(t, tenantID, customerID)
	require.NoError(t, repo.Save(ctx, c))

	t.Run("returns the active cart with items", func(t *testing.T) {
		found, err := repo.FindActiveByCustomer(ctx, tenantID, customerID)
		require.NoError(t, err)
		assert.Equal(t, c.ID, found.ID)
		assert.Len(t, found.Items, 1)
	})

	t.Run("abandoned carts are not returned", func(t *testing.T) {
		c.Abandon()
		require.NoError(t, repo.Save(ctx, c))

		_, err := repo.FindActiveByCustomer(ctx, tenantID, customerID)
		require.Error(t, err)
	})
}

func TestCartRepository_Delete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormCartRepository(db)
	ctx := context.Background()

	t.Run("removes the cart and its line items", func(t *testing.T) {
		tenantID := uuid.New()
		c := newTestCart(t, tenantID, uuid.New())
		require.NoError(t, repo.Save(ctx, c))

		require.NoError(t, repo.Delete(ctx, tenantID, c.ID))

		_, err := repo.FindByID(ctx, tenantID, c.ID)
		assert.True(t, shared.IsCode(err, shared.CodeNotFound))

		var itemCount int64
		require.NoError(t, db.Model(&cart.CartItem{}).Where("cart_id = ?", c.ID).Count(&itemCount).Error)
		assert.Zero(t, itemCount)
	})

	t.Run("another tenant's cart is untouched", func(t *testing.T) {
		tenantID := uuid.New()
		c := newTestCart(t, tenantID, uuid.New())
		require.NoError(t, repo.Save(ctx, c))

		require.NoError(t, repo.Delete(ctx, uuid.New(), c.ID))

		found, err := repo.FindByID(ctx, tenantID, c.ID)
		require.NoError(t, err)
		assert.Equal(t, c.ID, found.ID)
	})
}

func TestCartRepository_FindStale(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormCartRepository(db)
	ctx := context.Background()

	stale := newTestCart(t, uuid.New(), uuid.New())
	stale.LastActivityAt = time.Now().Add(-48 * time.Hour)
	require.NoError(t, repo.Save(ctx, stale))

	fresh := newTestCart(t, uuid.New(), uuid.New())
	require.NoError(t, repo.Save(ctx, fresh))

	abandonedOld := newTestCart(t, uuid.New(), uuid.New())
	abandonedOld.LastActivityAt = time.Now().Add(-48 * time.Hour)
	abandonedOld.Abandon()
	require.NoError(t, repo.Save(ctx, abandonedOld))

	t.Run("returns only active carts idle past the cutoff", func(t *testing.T) {
		found, err := repo.FindStale(ctx, time.Now().Add(-24*time.Hour), 100)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, stale.ID, found[0].ID)
	})

	t.Run("respects the batch limit", func(t *testing.T) {
		another := newTestCart(t, uuid.New(), uuid.New())
		another.LastActivityAt = time.Now().Add(-72 * time.Hour)
		require.NoError(t, repo.Save(ctx, another))

		found, err := repo.FindStale(ctx, time.Now().Add(-24*time.Hour), 1)
		require.NoError(t, err)
		assert.Len(t, found, 1)
	})
}
