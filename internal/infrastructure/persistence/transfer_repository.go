package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/commercehub/backend/internal/domain/inventory"
	"github.com/commercehub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTransferRepository implements TransferRepository using GORM
type GormTransferRepository struct {
	db *gorm.DB
}

// NewGormTransferRepository creates a new GormTransferRepository
func NewGormTransferRepository(db *gorm.DB) *GormTransferRepository {
	return &GormTransferRepository{db: db}
}

// FindByID finds a transfer with its items by ID
func (r *GormTransferRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*inventory.Transfer, error) {
	var transfer inventory.Transfer
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&transfer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Transfer not found")
		}
		return nil, err
	}
	return &transfer, nil
}

// FindByIDForUpdate finds a transfer with its items under a FOR UPDATE lock.
// Only the transfer row is locked; item rows follow the document state.
func (r *GormTransferRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*inventory.Transfer, error) {
	var transfer inventory.Transfer
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Table: clause.Table{Name: "transfers"}}).
		Preload("Items").
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&transfer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Transfer not found")
		}
		return nil, err
	}
	return &transfer, nil
}

// FindByNumber finds a transfer by its document number
func (r *GormTransferRepository) FindByNumber(ctx context.Context, tenantID uuid.UUID, transferNumber string) (*inventory.Transfer, error) {
	var transfer inventory.Transfer
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("tenant_id = ? AND transfer_number = ?", tenantID, transferNumber).
		First(&transfer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Transfer not found")
		}
		return nil, err
	}
	return &transfer, nil
}

// NextTransferNumber generates the next transfer document number.
// Format: TR-YYYY-NNNNN (e.g., TR-2026-00001)
func (r *GormTransferRepository) NextTransferNumber(ctx context.Context, tenantID uuid.UUID) (string, error) {
	year := time.Now().Year()
	prefix := fmt.Sprintf("TR-%d-", year)

	var last inventory.Transfer
	err := r.db.WithContext(ctx).
		Model(&inventory.Transfer{}).
		Where("tenant_id = ? AND transfer_number LIKE ?", tenantID, prefix+"%").
		Order("transfer_number DESC").
		First(&last).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	var next int = 1
	if err == nil && last.TransferNumber != "" {
		parts := strings.Split(last.TransferNumber, "-")
		if len(parts) == 3 {
			var num int
			if _, parseErr := fmt.Sscanf(parts[2], "%d", &num); parseErr == nil {
				next = num + 1
			}
		}
	}
	return inventory.FormatTransferNumber(year, next), nil
}

// Save persists a transfer with its items
func (r *GormTransferRepository) Save(ctx context.Context, transfer *inventory.Transfer) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(transfer).Error
}

// FindAll lists transfers with pagination
func (r *GormTransferRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (shared.Paginated[*inventory.Transfer], error) {
	var empty shared.Paginated[*inventory.Transfer]

	query := r.db.WithContext(ctx).
		Model(&inventory.Transfer{}).
		Where("tenant_id = ?", tenantID)
	query = applyTransferFilters(query, filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return empty, err
	}

	var transfers []*inventory.Transfer
	if err := applyPagination(query, filter, TransferSortFields).
		Preload("Items").
		Find(&transfers).Error; err != nil {
		return empty, err
	}
	return shared.NewPaginated(transfers, total, filter.Page, filter.PageSize), nil
}

func applyTransferFilters(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "from_location_id":
			query = query.Where("from_location_id = ?", value)
		case "to_location_id":
			query = query.Where("to_location_id = ?", value)
		}
	}
	return query
}

// Ensure GormTransferRepository implements TransferRepository
var _ inventory.TransferRepository = (*GormTransferRepository)(nil)
