package handler

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the stock movement routes
func (h *LedgerHandler) RegisterRoutes(rg *gin.RouterGroup) {
	inventory := rg.Group("/inventory")
	{
		inventory.POST("/stock-in", h.StockIn)
		inventory.POST("/stock-out", h.StockOut)
		inventory.POST("/adjustments", h.AdjustStock)
		inventory.POST("/movements/:id/reverse", h.ReverseMovement)
		inventory.GET("/history/:productId/:locationId", h.GetMovementHistory)
		inventory.GET("/balances", h.ListBalances)
		inventory.GET("/balances/:productId/:locationId", h.GetBalance)
		inventory.GET("/valuation/:productId/:locationId", h.GetValuation)
	}
}

// RegisterRoutes registers the reservation routes
func (h *ReservationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	reservations := rg.Group("/inventory/reservations")
	{
		reservations.POST("", h.Reserve)
		reservations.GET("", h.ListReservations)
		reservations.POST("/release-by-reference", h.ReleaseByReference)
		reservations.GET("/:id", h.GetReservation)
		reservations.POST("/:id/release", h.Release)
		reservations.POST("/:id/expire", h.Expire)
		reservations.POST("/:id/fulfill", h.Fulfill)
		reservations.PUT("/:id/quantity", h.ChangeQuantity)
		reservations.PUT("/:id/expiry", h.ChangeExpiry)
	}
}

// RegisterRoutes registers the transfer routes
func (h *TransferHandler) RegisterRoutes(rg *gin.RouterGroup) {
	transfers := rg.Group("/inventory/transfers")
	{
		transfers.POST("", h.CreateTransfer)
		transfers.GET("", h.ListTransfers)
		transfers.GET("/:id", h.GetTransfer)
		transfers.POST("/:id/ship", h.ShipTransfer)
		transfers.POST("/:id/receive", h.ReceiveTransfer)
		transfers.POST("/:id/cancel", h.CancelTransfer)
	}
}
