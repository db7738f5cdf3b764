// internal/interfaces/http/handlers/payment.go
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/your-org/storefront/internal/domain/payment"
	"github.com/your-org/storefront/internal/interfaces/http/middleware"
)

// PaymentService is the part of payment.Service the intent endpoint needs
type PaymentService interface {
	CreateIntent(ctx context.Context, userID uint, amount decimal.Decimal) (*payment.IntentResponse, error)
}

// SandboxConfirmer confirms sandbox intents the way a card processor would
type SandboxConfirmer interface {
	Confirm(ctx context.Context, clientSecret, paymentMethod string) (*payment.Intent, error)
}

// PaymentHandler handles payment endpoints
type PaymentHandler struct {
	payments PaymentService
	sandbox  SandboxConfirmer
}

// NewPaymentHandler creates a new payment handler. sandbox may be nil when a
// real processor is configured.
func NewPaymentHandler(payments PaymentService, sandbox SandboxConfirmer) *PaymentHandler {
	return &PaymentHandler{
		payments: payments,
		sandbox:  sandbox,
	}
}

// CreatePaymentIntent handles POST /api/create-payment-intent. The amount is in major units.
func (h *PaymentHandler) CreatePaymentIntent(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	var req struct {
		Amount *decimal.Decimal `json:"amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Amount == nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid amount",
		})
		return
	}

	resp, err := h.payments.CreateIntent(c.Request.Context(), userID, *req.Amount)
	if err != nil {
		respondError(c, err, "Failed to create payment intent")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// SandboxConfirm handles POST /api/sandbox/confirm. It stands in for the
// processor's own confirm call and is only routed in sandbox mode.
func (h *PaymentHandler) SandboxConfirm(c *gin.Context) {
	var req struct {
		ClientSecret  string `json:"client_secret" binding:"required"`
		PaymentMethod string `json:"payment_method" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "client_secret and payment_method are required",
			"code":  "invalid_request",
		})
		return
	}

	intent, err := h.sandbox.Confirm(c.Request.Context(), req.ClientSecret, req.PaymentMethod)
	if err != nil {
		var cardErr *payment.CardError
		if errors.As(err, &cardErr) {
			c.JSON(http.StatusPaymentRequired, gin.H{
				"error": cardErr.Message,
				"code":  cardErr.Code,
			})
			return
		}
		respondError(c, err, "Failed to confirm payment")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     intent.ID,
		"status": intent.Status,
	})
}
