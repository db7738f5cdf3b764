// internal/interfaces/http/handlers/cart.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/interfaces/http/middleware"
)

// CartService is the part of cart.Service the cart endpoints need
type CartService interface {
	Get(userID uint) (*cart.Cart, error)
	Add(userID, productID uint, quantity int) error
	Update(userID, productID uint, quantity int) error
	Remove(userID, productID uint) error
	Count(userID uint) (int, error)
}

// CartHandler handles cart endpoints
type CartHandler struct {
	carts      CartService
	publicPath string
}

// NewCartHandler creates a new cart handler
func NewCartHandler(carts CartService, cfg *config.Config) *CartHandler {
	return &CartHandler{
		carts:      carts,
		publicPath: cfg.External.Storage.PublicPath,
	}
}

type quantityRequest struct {
	Quantity *int `json:"quantity"`
}

// GetCart handles GET /api/cart
func (h *CartHandler) GetCart(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	current, err := h.carts.Get(userID)
	if err != nil {
		respondError(c, err, "Failed to retrieve cart")
		return
	}

	c.JSON(http.StatusOK, current.ToView(h.publicPath))
}

// AddToCart handles POST /api/cart/add/:productId. The body is optional and
// defaults to a quantity of one.
func (h *CartHandler) AddToCart(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)
	productID, ok := parseIDParam(c, "productId")
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}

	quantity := 1
	if c.Request.ContentLength != 0 {
		var req quantityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid request data",
				"details": err.Error(),
			})
			return
		}
		if req.Quantity != nil {
			quantity = *req.Quantity
		}
	}

	if err := h.carts.Add(userID, productID, quantity); err != nil {
		respondError(c, err, "Failed to add item to cart")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Product added to cart",
	})
}

// UpdateCartItem handles POST /api/cart/update/:productId with an absolute quantity
func (h *CartHandler) UpdateCartItem(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)
	productID, ok := parseIDParam(c, "productId")
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not in cart"})
		return
	}

	var req quantityRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Quantity == nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Quantity must be at least 1",
		})
		return
	}

	if err := h.carts.Update(userID, productID, *req.Quantity); err != nil {
		respondError(c, err, "Failed to update cart")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart updated",
	})
}

// RemoveFromCart handles POST /api/cart/remove/:productId
func (h *CartHandler) RemoveFromCart(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)
	productID, ok := parseIDParam(c, "productId")
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not in cart"})
		return
	}

	if err := h.carts.Remove(userID, productID); err != nil {
		respondError(c, err, "Failed to remove item from cart")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Item removed from cart",
	})
}

// GetCartCount handles GET /api/cart/count
func (h *CartHandler) GetCartCount(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	count, err := h.carts.Count(userID)
	if err != nil {
		respondError(c, err, "Failed to count cart items")
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": count})
}
