package persistence

import (
	"testing"

	"github.com/commercehub/backend/internal/domain/cart"
	"github.com/commercehub/backend/internal/domain/inventory"
	"github.com/commercehub/backend/internal/domain/shared"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// setupTestDB opens an in-memory SQLite database with the full schema.
// Tests that need FOR UPDATE semantics belong in integration tests against
// Postgres; SQLite does not support row locking clauses.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&inventory.InventoryBalance{},
		&inventory.ValuationLayer{},
		&inventory.StockMovement{},
		&inventory.MovementConsumption{},
		&inventory.StockReservation{},
		&inventory.Transfer{},
		&inventory.TransferItem{},
		&cart.Cart{},
		&cart.CartItem{},
	)
	require.NoError(t, err)

	return db
}

func sharedFilterWith(key string, value interface{}) shared.Filter {
	filter := shared.DefaultFilter()
	filter.Filters[key] = value
	return filter
}
