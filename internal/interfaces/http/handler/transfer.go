package handler

import (
	ledgerapp "github.com/commercehub/backend/internal/application/inventory"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TransferHandler handles two-location transfer API endpoints
type TransferHandler struct {
	BaseHandler
	transferService *ledgerapp.TransferService
}

// NewTransferHandler creates a new TransferHandler
func NewTransferHandler(transferService *ledgerapp.TransferService) *TransferHandler {
	return &TransferHandler{transferService: transferService}
}

// CreateTransfer opens a draft transfer between two locations
// POST /inventory/transfers
func (h *TransferHandler) CreateTransfer(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req ledgerapp.CreateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.transferService.CreateTransfer(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, result)
}

// ShipTransfer ships a draft transfer, removing stock from the source
// POST /inventory/transfers/:id/ship
func (h *TransferHandler) ShipTransfer(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	transferID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid transfer ID format")
		return
	}

	result, err := h.transferService.ShipTransfer(c.Request.Context(), tenantID, transferID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, result)
}

// ReceiveTransfer records the received quantities at the destination
// POST /inventory/transfers/:id/receive
func (h *TransferHandler) ReceiveTransfer(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	transferID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid transfer ID format")
		return
	}

	var req ledgerapp.ReceiveTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	req.TransferID = transferID

	result, err := h.transferService.ReceiveTransfer(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, result)
}

// CancelTransfer cancels a draft or in-transit transfer
// POST /inventory/transfers/:id/cancel
func (h *TransferHandler) CancelTransfer(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	transferID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid transfer ID format")
		return
	}

	result, err := h.transferService.CancelTransfer(c.Request.Context(), tenantID, transferID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, result)
}

// GetTransfer returns one transfer with its items
// GET /inventory/transfers/:id
func (h *TransferHandler) GetTransfer(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	transferID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid transfer ID format")
		return
	}

	result, err := h.transferService.GetTransfer(c.Request.Context(), tenantID, transferID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, result)
}

// ListTransfers lists transfers with pagination
// GET /inventory/transfers
func (h *TransferHandler) ListTransfers(c *gin.Context) {
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
	if from := c.Query("from_location_id"); from != "" {
		filter.Filters["from_location_id"] = from
	}
	if to := c.Query("to_location_id"); to != "" {
		filter.Filters["to_location_id"] = to
	}

	page, err := h.transferService.ListTransfers(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}
