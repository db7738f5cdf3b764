// internal/interfaces/http/handlers/errors.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/domain/checkout"
	"github.com/your-org/storefront/internal/domain/order"
	"github.com/your-org/storefront/internal/domain/payment"
	"github.com/your-org/storefront/internal/domain/product"
	"github.com/your-org/storefront/internal/domain/user"
)

type errorMapping struct {
	target  error
	status  int
	message string
}

// domainErrors maps service errors to the status and message the browser client shows
var domainErrors = []errorMapping{
	{user.ErrMissingFields, http.StatusBadRequest, "Missing fields"},
	{user.ErrWeakPassword, http.StatusBadRequest, "Password must be at least 6 characters long"},
	{user.ErrEmailTaken, http.StatusConflict, "Email already registered"},
	{user.ErrUsernameTaken, http.StatusConflict, "Username already taken"},
	{user.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials"},
	{user.ErrUserNotFound, http.StatusNotFound, "User not found"},

	{product.ErrProductNotFound, http.StatusNotFound, "Product not found"},

	{cart.ErrNotEnoughStock, http.StatusBadRequest, "Not enough stock"},
	{cart.ErrInvalidQuantity, http.StatusBadRequest, "Quantity must be at least 1"},
	{cart.ErrItemNotInCart, http.StatusNotFound, "Item not in cart"},

	{payment.ErrInvalidAmount, http.StatusBadRequest, "Invalid amount"},
	{payment.ErrCartEmpty, http.StatusBadRequest, "Cart is empty"},
	{payment.ErrGatewayUnavailable, http.StatusServiceUnavailable, "Payment service unavailable, please try again later"},
	{checkout.ErrCartEmpty, http.StatusBadRequest, "Cart is empty"},
	{checkout.ErrUnknownIntent, http.StatusNotFound, "Unknown payment intent"},
	{checkout.ErrPaymentNotSucceeded, http.StatusConflict, "Payment has not succeeded"},
	{checkout.ErrIntentRequired, http.StatusBadRequest, "Payment intent required"},
	{checkout.ErrAmountMismatch, http.StatusUnprocessableEntity, "Cart changed after payment, order not placed"},
	{checkout.ErrFinalizeFailed, http.StatusInternalServerError, "Checkout failed, please retry"},

	{order.ErrOrderNotFound, http.StatusNotFound, "Order not found"},
	{order.ErrInvalidStatus, http.StatusBadRequest, "Invalid status"},
}

// respondError writes the mapped error response, or a 500 with fallback.
// Unmapped errors are attached to the context so the logger middleware records them.
func respondError(c *gin.Context, err error, fallback string) {
	for _, m := range domainErrors {
		if errors.Is(err, m.target) {
			c.JSON(m.status, gin.H{"error": m.message})
			return
		}
	}

	if errors.Is(err, product.ErrInvalidProduct) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
}

// parseIDParam reads a positive numeric path parameter
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
