// internal/domain/order/entity.go
package order

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/storefront/internal/domain/product"
)

// OrderStatus represents the order status
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusShipped   OrderStatus = "Shipped"
	OrderStatusDelivered OrderStatus = "Delivered"
)

// Statuses lists every valid order status
var Statuses = []OrderStatus{OrderStatusPending, OrderStatusShipped, OrderStatusDelivered}

// ParseStatus validates a status string. Any status may follow any other.
func ParseStatus(s string) (OrderStatus, error) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// Order represents a placed order
type Order struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	UserID          uint            `gorm:"not null;index" json:"user_id"`
	Status          OrderStatus     `gorm:"not null;size:20;default:'Pending'" json:"status"`
	Total           decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total"`
	PaymentIntentID *string         `gorm:"uniqueIndex;size:255" json:"payment_intent_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
}

// OrderItem is a snapshot of a cart line at checkout time. It keeps its own
// copy of the product so history survives catalog changes.
type OrderItem struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	OrderID            uint            `gorm:"not null;index" json:"order_id"`
	ProductID          uint            `gorm:"not null;index" json:"product_id"`
	ProductName        string          `gorm:"not null;size:100" json:"product_name"`
	ProductDescription string          `gorm:"type:text" json:"product_description"`
	UnitPrice          decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"unit_price"`
	Quantity           int             `gorm:"not null" json:"quantity"`
	Subtotal           decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal"`
}

func (Order) TableName() string     { return "orders" }
func (OrderItem) TableName() string { return "order_items" }

// ItemView is the JSON shape of an order line
type ItemView struct {
	Product  product.View `json:"product"`
	Quantity int          `json:"quantity"`
	Subtotal string       `json:"subtotal"`
}

// View is the JSON shape of an order in GET /api/orders and the admin listing
type View struct {
	ID       uint       `json:"id"`
	Date     time.Time  `json:"date"`
	Status   string     `json:"status"`
	Items    []ItemView `json:"items"`
	Total    string     `json:"total"`
	Username string     `json:"username,omitempty"`
}

// ToView renders the order for API responses
func (o *Order) ToView() View {
	v := View{
		ID:     o.ID,
		Date:   o.CreatedAt,
		Status: string(o.Status),
		Items:  make([]ItemView, 0, len(o.Items)),
		Total:  o.Total.StringFixed(2),
	}
	for _, it := range o.Items {
		v.Items = append(v.Items, ItemView{
			Product: product.View{
				ID:          it.ProductID,
				Name:        it.ProductName,
				Description: it.ProductDescription,
				Price:       it.UnitPrice.StringFixed(2),
			},
			Quantity: it.Quantity,
			Subtotal: it.Subtotal.StringFixed(2),
		})
	}
	return v
}
