package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/commercehub/backend/internal/domain/inventory"
	"github.com/commercehub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormReservationRepository implements ReservationRepository using GORM
type GormReservationRepository struct {
	db *gorm.DB
}

// NewGormReservationRepository creates a new GormReservationRepository
func NewGormReservationRepository(db *gorm.DB) *GormReservationRepository {
	return &GormReservationRepository{db: db}
}

// FindByID finds a reservation by ID within a tenant
func (r *GormReservationRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*inventory.StockReservation, error) {
	var reservation inventory.StockReservation
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&reservation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Reservation not found")
		}
		return nil, err
	}
	return &reservation, nil
}

// FindByIDForUpdate finds a reservation by ID under a FOR UPDATE lock
func (r *GormReservationRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*inventory.StockReservation, error) {
	var reservation inventory.StockReservation
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&reservation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Reservation not found")
		}
		return nil, err
	}
	return &reservation, nil
}

// FindActiveByReference lists active reservations for a business document
func (r *GormReservationRepository) FindActiveByReference(ctx context.Context, tenantID uuid.UUID, referenceType, referenceID string) ([]*inventory.StockReservation, error) {
	var reservations []*inventory.StockReservation
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND reference_type = ? AND reference_id = ? AND status = ?",
			tenantID, referenceType, referenceID, inventory.ReservationStatusActive).
		Order("created_at ASC").
		Find(&reservations).Error; err != nil {
		return nil, err
	}
	return reservations, nil
}

// FindExpired lists active reservations whose expiry has passed, across all
// tenants, oldest expiry first
func (r *GormReservationRepository) FindExpired(ctx context.Context, asOf time.Time, limit int) ([]*inventory.StockReservation, error) {
	var reservations []*inventory.StockReservation
	if err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?",
			inventory.ReservationStatusActive, asOf).
		Order("expires_at ASC").
		Limit(limit).
		Find(&reservations).Error; err != nil {
		return nil, err
	}
	return reservations, nil
}

// Save persists a reservation
func (r *GormReservationRepository) Save(ctx context.Context, reservation *inventory.StockReservation) error {
	return r.db.WithContext(ctx).Save(reservation).Error
}

// FindAll lists reservations with pagination
func (r *GormReservationRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (shared.Paginated[*inventory.StockReservation], error) {
	var empty shared.Paginated[*inventory.StockReservation]

	query := r.db.WithContext(ctx).
		Model(&inventory.StockReservation{}).
		Where("tenant_id = ?", tenantID)
	query = applyReservationFilters(query, filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return empty, err
	}

	var reservations []*inventory.StockReservation
	if err := applyPagination(query, filter, ReservationSortFields).Find(&reservations).Error; err != nil {
		return empty, err
	}
	return shared.NewPaginated(reservations, total, filter.Page, filter.PageSize), nil
}

func applyReservationFilters(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "product_id":
			query = query.Where("product_id = ?", value)
		case "location_id":
			query = query.Where("location_id = ?", value)
		case "reference_type":
			query = query.Where("reference_type = ?", value)
		case "reference_id":
			query = query.Where("reference_id = ?", value)
		}
	}
	return query
}

// Ensure GormReservationRepository implements ReservationRepository
var _ inventory.ReservationRepository = (*GormReservationRepository)(nil)
