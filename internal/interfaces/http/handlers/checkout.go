// internal/interfaces/http/handlers/checkout.go
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront/internal/domain/checkout"
	"github.com/your-org/storefront/internal/interfaces/http/middleware"
)

// CheckoutService finalizes a paid cart into an order
type CheckoutService interface {
	Finalize(ctx context.Context, userID uint, intentID string) (*checkout.Result, error)
}

// CheckoutHandler handles checkout endpoints
type CheckoutHandler struct {
	checkout CheckoutService
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(svc CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkout: svc}
}

// Checkout handles POST /api/cart/checkout. Repeating the call for the same
// payment intent returns the order created the first time.
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	var req struct {
		PaymentIntentID string `json:"payment_intent_id"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid request data",
				"details": err.Error(),
			})
			return
		}
	}

	result, err := h.checkout.Finalize(c.Request.Context(), userID, req.PaymentIntentID)
	if err != nil {
		respondError(c, err, "Checkout failed, please retry")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":           "Checkout successful",
		"order_id":          result.OrderID,
		"already_finalized": result.AlreadyFinalized,
	})
}
