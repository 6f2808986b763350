package handler

import (
	"time"

	ledgerapp "github.com/commercehub/backend/internal/application/inventory"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReservationHandler handles stock reservation API endpoints
type ReservationHandler struct {
	BaseHandler
	reservationService *ledgerapp.ReservationService
}

// NewReservationHandler creates a new ReservationHandler
func NewReservationHandler(reservationService *ledgerapp.ReservationService) *ReservationHandler {
	return &ReservationHandler{reservationService: reservationService}
}

// Reserve places a reservation against available stock
// POST /inventory/reservations
func (h *ReservationHandler) Reserve(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req ledgerapp.ReserveStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.reservationService.Reserve(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, result)
}

// Release releases a reservation back to availability
// POST /inventory/reservations/:id/release
func (h *ReservationHandler) Release(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	reservationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid reservation ID format")
		return
	}

	result, err := h.reservationService.Release(c.Request.Context(), tenantID, reservationID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, result)
}

// Expire marks a reservation expired and frees its held quantity
// POST /inventory/reservations/:id/expire
func (h *ReservationHandler) Expire(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	reservationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid reservation ID format")
		return
	}

	result, err := h.reservationService.Expire(c.Request.Context(), tenantID, reservationID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, result)
}

// releaseByReferenceRequest identifies the document whose holds to release
type releaseByReferenceRequest struct {
	ReferenceType string `json:"reference_type" binding:"required"`
	ReferenceID   string `json:"reference_id" binding:"required"`
}

// ReleaseByReference releases every active reservation held by a document
// POST /inventory/reservations/release-by-reference
func (h *ReservationHandler) ReleaseByReference(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req releaseByReferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	released, err := h.reservationService.ReleaseByReference(c.Request.Context(), tenantID, req.ReferenceType, req.ReferenceID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, gin.H{"released": released})
}

// changeQuantityRequest carries the new reservation quantity
type changeQuantityRequest struct {
	Quantity decimal.Decimal `json:"quantity" binding:"required"`
}

// ChangeQuantity resizes an active reservation
// PUT /inventory/reservations/:id/quantity
func (h *ReservationHandler) ChangeQuantity(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	reservationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid reservation ID format")
		return
	}

	var req changeQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.reservationService.ChangeQuantity(c.Request.Context(), tenantID, reservationID, req.Quantity)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, result)
}

// changeExpiryRequest carries the new expiry; null makes the hold open-ended
type changeExpiryRequest struct {
	ExpiresAt *time.Time `json:"expires_at"`
}

// ChangeExpiry moves the expiry of an active reservation
// PUT /inventory/reservations/:id/expiry
func (h *ReservationHandler) ChangeExpiry(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	reservationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid reservation ID format")
		return
	}

	var req changeExpiryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.reservationService.ChangeExpiry(c.Request.Context(), tenantID, reservationID, req.ExpiresAt)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, result)
}

// Fulfill converts a reservation into an outbound posting
// POST /inventory/reservations/:id/fulfill
func (h *ReservationHandler) Fulfill(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	reservationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid reservation ID format")
		return
	}

	var req ledgerapp.FulfillReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	req.ReservationID = reservationID

	result, err := h.reservationService.Fulfill(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, result)
}

// GetReservation returns one reservation
// GET /inventory/reservations/:id
func (h *ReservationHandler) GetReservation(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	reservationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid reservation ID format")
		return
	}

	result, err := h.reservationService.GetReservation(c.Request.Context(), tenantID, reservationID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, result)
}

// ListReservations lists reservations with pagination
// GET /inventory/reservations
func (h *ReservationHandler) ListReservations(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	filter, err := listFilter(c)
	if err != nil {
		h.BadRequest(c, "Invalid list parameters")
		return
	}
	if status := c.Query("status"); status != "" {
		filter.Filters["status"] = status
	}
	if refType := c.Query("reference_type"); refType != "" {
		filter.Filters["reference_type"] = refType
	}
	if refID := c.Query("reference_id"); refID != "" {
		filter.Filters["reference_id"] = refID
	}

	page, err := h.reservationService.ListReservations(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}
