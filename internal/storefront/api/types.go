// internal/storefront/api/types.go
package api

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is the identity returned by the auth endpoints
type User struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsAdmin  bool   `json:"is_admin"`
}

// RegisterRequest is the body of POST /api/auth/register
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	IsAdmin  bool   `json:"is_admin"`
}

// Product is a catalog entry. Prices arrive as decimal strings.
type Product struct {
	ID          uint            `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	ImageURL    string          `json:"image_url,omitempty"`
}

// ProductFilter holds the optional search parameters of GET /api/products
type ProductFilter struct {
	Name        string
	Description string
	MinPrice    string
	MaxPrice    string
}

// ProductInput creates or updates a product. Nil fields are left unchanged on
// update. A non-empty ImagePath sends the request as multipart with the file attached.
type ProductInput struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Stock       *int
	ImagePath   string
}

// CartItem is one line of the cart
type CartItem struct {
	Product  Product         `json:"product"`
	Quantity int             `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// Cart is the server's view of the cart. Total is computed by the server.
type Cart struct {
	Items []CartItem      `json:"cart"`
	Total decimal.Decimal `json:"total"`
}

// IsEmpty reports whether the cart has no lines
func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

// Item returns the line for productID
func (c *Cart) Item(productID uint) (CartItem, bool) {
	if c == nil {
		return CartItem{}, false
	}
	for _, it := range c.Items {
		if it.Product.ID == productID {
			return it, true
		}
	}
	return CartItem{}, false
}

// PaymentIntent is the answer of POST /api/create-payment-intent. It is
// single use and never stored.
type PaymentIntent struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
}

// CheckoutResult is the answer of POST /api/cart/checkout
type CheckoutResult struct {
	Message          string `json:"message"`
	OrderID          uint   `json:"order_id"`
	AlreadyFinalized bool   `json:"already_finalized"`
}

// SandboxIntent is the answer of the sandbox confirm endpoint
type SandboxIntent struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// OrderItem is a line of a placed order
type OrderItem struct {
	Product  Product         `json:"product"`
	Quantity int             `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// Order is a placed order. Username is only filled by the admin listing.
type Order struct {
	ID       uint            `json:"id"`
	Date     time.Time       `json:"date"`
	Status   string          `json:"status"`
	Items    []OrderItem     `json:"items"`
	Total    decimal.Decimal `json:"total"`
	Username string          `json:"username,omitempty"`
}

// OrderStatuses lists the statuses an order can be set to
var OrderStatuses = []string{"Pending", "Shipped", "Delivered"}
