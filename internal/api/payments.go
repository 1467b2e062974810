package api

import (
	"errors"
	"net/http"

	"checkout-service/internal/gateway"
	"checkout-service/internal/models"
	"checkout-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type createIntentRequest struct {
	Amount  int64             `json:"amount"`
	Receipt string            `json:"receipt"`
	Notes   map[string]string `json:"notes"`
}

type verifyPaymentRequest struct {
	IntentID  string               `json:"intent_id"`
	PaymentID string               `json:"payment_id"`
	Signature string               `json:"signature"`
	Checkout  *models.CheckoutCart `json:"checkout"`
}

// createPaymentIntent handles gateway intent creation
func (h *Handler) createPaymentIntent(c *gin.Context) {
	var req createIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	res, err := h.deps.Intents.CreatePaymentIntent(c.Request.Context(), req.Amount, req.Receipt, req.Notes)
	if err != nil {
		var unavailable *gateway.UnavailableError
		switch {
		case errors.Is(err, gateway.ErrInvalidAmount), errors.Is(err, gateway.ErrMissingReceipt):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.As(err, &unavailable):
			c.JSON(http.StatusBadGateway, gin.H{
				"error":   "Payment gateway unavailable",
				"details": err.Error(),
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Failed to create payment intent",
				"details": err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"intent_id": res.Intent.ID,
		"amount":    res.Intent.Amount,
		"currency":  res.Intent.Currency,
		"receipt":   res.Intent.Receipt,
		"status":    res.Intent.Status,
		"key_id":    res.KeyID,
	})
}

// verifyPayment runs the verification pipeline for a completed checkout
func (h *Handler) verifyPayment(c *gin.Context) {
	var req verifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	conf := models.PaymentConfirmation{
		IntentID:  req.IntentID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
	}

	res, err := h.deps.Verifier.Run(c.Request.Context(), conf, req.Checkout)
	if err != nil {
		h.writePipelineFailure(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"order_id":         res.Order.ID,
		"order_number":     res.Order.OrderNumber,
		"financial_status": res.Order.FinancialStatus,
		"degraded":         res.Degraded,
		"replayed":         res.Replayed,
		"persistence":      res.Persistence,
	})
}

func (h *Handler) writePipelineFailure(c *gin.Context, err error) {
	var failed *service.FailedError
	if !errors.As(err, &failed) {
		h.logger.Error("Unexpected verification error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Verification failed",
		})
		return
	}

	body := gin.H{
		"success": false,
		"error":   failed.Err.Error(),
		"stage":   failed.Stage,
		"reason":  failed.Reason,
	}

	switch {
	case failed.ClientError():
		c.JSON(http.StatusBadRequest, body)
	case failed.Reason == service.ReasonDuplicateSubmission:
		c.JSON(http.StatusConflict, body)
	default:
		body["error"] = "Payment received but order creation failed"
		if failed.Reconciliation != nil {
			body["details"] = failed.Reconciliation.Detail
			body["reconciliation"] = failed.Reconciliation
		}
		c.JSON(http.StatusBadGateway, body)
	}
}
