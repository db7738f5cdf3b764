// internal/interfaces/http/handlers/order.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront/internal/domain/order"
	"github.com/your-org/storefront/internal/interfaces/http/middleware"
)

// OrderService is the part of order.Service the order endpoints need
type OrderService interface {
	ListForUser(userID uint) ([]order.Order, error)
	ListAll() ([]order.Order, error)
	UpdateStatus(id uint, status order.OrderStatus) (*order.Order, error)
}

// UsernameLookup resolves order owners for the admin listing
type UsernameLookup interface {
	Usernames(ids []uint) (map[uint]string, error)
}

// OrderHandler handles order endpoints
type OrderHandler struct {
	orders OrderService
	users  UsernameLookup
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orders OrderService, users UsernameLookup) *OrderHandler {
	return &OrderHandler{
		orders: orders,
		users:  users,
	}
}

// GetOrders handles GET /api/orders, newest first
func (h *OrderHandler) GetOrders(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	orders, err := h.orders.ListForUser(userID)
	if err != nil {
		respondError(c, err, "Failed to retrieve orders")
		return
	}

	views := make([]order.View, 0, len(orders))
	for i := range orders {
		views = append(views, orders[i].ToView())
	}
	c.JSON(http.StatusOK, gin.H{"orders": views})
}

// AdminGetOrders handles GET /api/admin/orders
func (h *OrderHandler) AdminGetOrders(c *gin.Context) {
	orders, err := h.orders.ListAll()
	if err != nil {
		respondError(c, err, "Failed to retrieve orders")
		return
	}

	ids := make([]uint, 0, len(orders))
	seen := make(map[uint]bool)
	for _, o := range orders {
		if !seen[o.UserID] {
			seen[o.UserID] = true
			ids = append(ids, o.UserID)
		}
	}

	names, err := h.users.Usernames(ids)
	if err != nil {
		respondError(c, err, "Failed to retrieve orders")
		return
	}

	views := make([]order.View, 0, len(orders))
	for i := range orders {
		v := orders[i].ToView()
		v.Username = names[orders[i].UserID]
		views = append(views, v)
	}
	c.JSON(http.StatusOK, gin.H{"orders": views})
}

// AdminUpdateOrderStatus handles PUT /api/admin/orders/:id
func (h *OrderHandler) AdminUpdateOrderStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}

	status, err := order.ParseStatus(req.Status)
	if err != nil {
		respondError(c, err, "Invalid status")
		return
	}

	updated, err := h.orders.UpdateStatus(id, status)
	if err != nil {
		respondError(c, err, "Failed to update order status")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order status updated",
		"order":   updated.ToView(),
	})
}
