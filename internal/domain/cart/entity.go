// internal/domain/cart/entity.go
package cart

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/storefront/internal/domain/product"
	"github.com/your-org/storefront/internal/pkg/money"
)

// CartItem is one product line in a user's cart. A user has at most one line
// per product.
type CartItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_cart_items_user_product" json:"user_id"`
	ProductID uint      `gorm:"not null;uniqueIndex:idx_cart_items_user_product" json:"product_id"`
	Quantity  int       `gorm:"not null;default:1" json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Product product.Product `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

// TableName overrides the table name
func (CartItem) TableName() string {
	return "cart_items"
}

// Line is a cart item with its computed subtotal
type Line struct {
	Product  product.Product
	Quantity int
	Subtotal decimal.Decimal
}

// Cart is a user's cart in insertion order with its total
type Cart struct {
	Lines []Line
	Total decimal.Decimal
}

// IsEmpty reports whether the cart has no lines
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Count is the total number of units across all lines
func (c *Cart) Count() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

// LineView is the JSON shape of a cart line
type LineView struct {
	Product  product.View `json:"product"`
	Quantity int          `json:"quantity"`
	Subtotal string       `json:"subtotal"`
}

// View is the JSON shape of GET /api/cart
type View struct {
	Cart  []LineView `json:"cart"`
	Total string     `json:"total"`
}

// ToView renders the cart for API responses
func (c *Cart) ToView(publicPath string) View {
	v := View{
		Cart:  make([]LineView, 0, len(c.Lines)),
		Total: c.Total.StringFixed(2),
	}
	for _, l := range c.Lines {
		v.Cart = append(v.Cart, LineView{
			Product:  l.Product.ToView(publicPath),
			Quantity: l.Quantity,
			Subtotal: l.Subtotal.StringFixed(2),
		})
	}
	return v
}

func buildCart(items []CartItem) *Cart {
	c := &Cart{Lines: make([]Line, 0, len(items)), Total: money.Zero}
	for _, item := range items {
		subtotal := money.Subtotal(item.Product.Price, item.Quantity)
		c.Lines = append(c.Lines, Line{
			Product:  item.Product,
			Quantity: item.Quantity,
			Subtotal: subtotal,
		})
		c.Total = c.Total.Add(subtotal)
	}
	return c
}
