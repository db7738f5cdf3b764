// internal/domain/order/service.go
package order

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/pkg/money"
	"gorm.io/gorm"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrInvalidStatus = errors.New("invalid status")
	ErrEmptyOrder    = errors.New("order has no items")
)

// Service handles order business logic
type Service struct {
	db  *gorm.DB
	log *logrus.Logger
}

// NewService creates a new order service
func NewService(db *gorm.DB, log *logrus.Logger) *Service {
	return &Service{
		db:  db,
		log: log,
	}
}

// CreateFromCartTx snapshots the cart into a new Pending order inside tx
func (s *Service) CreateFromCartTx(tx *gorm.DB, userID uint, c *cart.Cart, paymentIntentID string) (*Order, error) {
	if c.IsEmpty() {
		return nil, ErrEmptyOrder
	}

	o := &Order{
		UserID: userID,
		Status: OrderStatusPending,
		Total:  money.Zero,
		Items:  make([]OrderItem, 0, len(c.Lines)),
	}
	if paymentIntentID != "" {
		o.PaymentIntentID = &paymentIntentID
	}

	for _, l := range c.Lines {
		o.Items = append(o.Items, OrderItem{
			ProductID:          l.Product.ID,
			ProductName:        l.Product.Name,
			ProductDescription: l.Product.Description,
			UnitPrice:          l.Product.Price,
			Quantity:           l.Quantity,
			Subtotal:           l.Subtotal,
		})
		o.Total = o.Total.Add(l.Subtotal)
	}

	if err := tx.Create(o).Error; err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	return o, nil
}

// ListForUser returns the user's orders, newest first
func (s *Service) ListForUser(userID uint) ([]Order, error) {
	var orders []Order
	err := s.db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	}).Where("user_id = ?", userID).Order("created_at DESC, id DESC").Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve orders: %w", err)
	}
	return orders, nil
}

// ListAll returns every order, newest first
func (s *Service) ListAll() ([]Order, error) {
	var orders []Order
	err := s.db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	}).Order("created_at DESC, id DESC").Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve orders: %w", err)
	}
	return orders, nil
}

// Get retrieves a single order with its items
func (s *Service) Get(id uint) (*Order, error) {
	var o Order
	if err := s.db.Preload("Items").First(&o, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", err)
	}
	return &o, nil
}

// UpdateStatus sets the order status
func (s *Service) UpdateStatus(id uint, status OrderStatus) (*Order, error) {
	if _, err := ParseStatus(string(status)); err != nil {
		return nil, err
	}

	result := s.db.Model(&Order{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update order status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrOrderNotFound
	}

	s.log.WithFields(logrus.Fields{"order_id": id, "status": status}).Info("order status updated")
	return s.Get(id)
}
