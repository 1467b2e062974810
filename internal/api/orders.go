package api

import (
	"errors"
	"net/http"

	"checkout-service/internal/commerce"
	"checkout-service/internal/models"
	"checkout-service/internal/service"

	"github.com/gin-gonic/gin"
)

type codOrderRequest struct {
	Checkout *models.CheckoutCart `json:"checkout"`
	Note     string               `json:"note"`
}

// createCODOrder handles cash on delivery checkout
func (h *Handler) createCODOrder(c *gin.Context) {
	var req codOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	res, err := h.deps.COD.CreateCODOrder(c.Request.Context(), req.Checkout, req.Note)
	if err != nil {
		var rejected *commerce.RejectedError
		var unavailable *commerce.UnavailableError
		switch {
		case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrMapping):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		case errors.Is(err, commerce.ErrMissingAccessToken):
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"success": false,
				"error":   err.Error(),
			})
		case errors.As(err, &rejected):
			c.JSON(http.StatusBadGateway, gin.H{
				"success": false,
				"error":   "Commerce platform rejected the order",
				"details": rejected.Body,
			})
		case errors.As(err, &unavailable):
			c.JSON(http.StatusBadGateway, gin.H{
				"success": false,
				"error":   "Commerce platform unavailable",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   "Failed to create order",
				"details": err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":          true,
		"order_id":         res.Order.ID,
		"order_number":     res.Order.OrderNumber,
		"financial_status": res.Order.FinancialStatus,
		"persistence":      res.Persistence,
	})
}
