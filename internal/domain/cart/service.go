// internal/domain/cart/service.go
package cart

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/domain/product"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrItemNotInCart   = errors.New("item not in cart")
	ErrNotEnoughStock  = errors.New("not enough stock")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
)

// Service handles cart business logic
type Service struct {
	db  *gorm.DB
	log *logrus.Logger
}

// NewService creates a new cart service
func NewService(db *gorm.DB, log *logrus.Logger) *Service {
	return &Service{
		db:  db,
		log: log,
	}
}

// Get returns the user's cart in insertion order
func (s *Service) Get(userID uint) (*Cart, error) {
	return s.load(s.db, userID, false)
}

// GetTx reads the cart inside the given transaction, locking its rows
func (s *Service) GetTx(tx *gorm.DB, userID uint) (*Cart, error) {
	return s.load(tx, userID, true)
}

func (s *Service) load(tx *gorm.DB, userID uint, lock bool) (*Cart, error) {
	var items []CartItem
	query := tx.Preload("Product").Where("user_id = ?", userID).Order("id ASC")
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := query.Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve cart: %w", err)
	}
	return buildCart(items), nil
}

// Add puts quantity units of a product in the cart. An existing line grows.
func (s *Service) Add(userID, productID uint, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		prod, err := lockProduct(tx, productID)
		if err != nil {
			return err
		}

		var item CartItem
		err = tx.Where("user_id = ? AND product_id = ?", userID, productID).First(&item).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if !prod.InStock(quantity) {
				return ErrNotEnoughStock
			}
			item = CartItem{UserID: userID, ProductID: productID, Quantity: quantity}
			if err := tx.Create(&item).Error; err != nil {
				return fmt.Errorf("failed to add cart item: %w", err)
			}
		case err != nil:
			return fmt.Errorf("failed to find cart item: %w", err)
		default:
			if !prod.InStock(item.Quantity + quantity) {
				return ErrNotEnoughStock
			}
			if err := tx.Model(&item).Update("quantity", item.Quantity+quantity).Error; err != nil {
				return fmt.Errorf("failed to update cart item: %w", err)
			}
		}

		s.log.WithFields(logrus.Fields{"user_id": userID, "product_id": productID, "quantity": quantity}).Debug("cart item added")
		return nil
	})
}

// Update sets the absolute quantity of an existing line
func (s *Service) Update(userID, productID uint, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var item CartItem
		if err := tx.Where("user_id = ? AND product_id = ?", userID, productID).First(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrItemNotInCart
			}
			return fmt.Errorf("failed to find cart item: %w", err)
		}

		prod, err := lockProduct(tx, productID)
		if err != nil {
			return err
		}
		if !prod.InStock(quantity) {
			return ErrNotEnoughStock
		}

		if err := tx.Model(&item).Update("quantity", quantity).Error; err != nil {
			return fmt.Errorf("failed to update cart item: %w", err)
		}
		return nil
	})
}

// Remove deletes a line from the cart
func (s *Service) Remove(userID, productID uint) error {
	result := s.db.Where("user_id = ? AND product_id = ?", userID, productID).Delete(&CartItem{})
	if result.Error != nil {
		return fmt.Errorf("failed to remove cart item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrItemNotInCart
	}
	return nil
}

// Count returns the number of units in the cart
func (s *Service) Count(userID uint) (int, error) {
	var count int64
	err := s.db.Model(&CartItem{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count cart items: %w", err)
	}
	return int(count), nil
}

// IsEmpty reports whether the user has nothing in the cart
func (s *Service) IsEmpty(userID uint) (bool, error) {
	var n int64
	if err := s.db.Model(&CartItem{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return false, fmt.Errorf("failed to count cart items: %w", err)
	}
	return n == 0, nil
}

// ClearTx empties the user's cart inside the given transaction
func (s *Service) ClearTx(tx *gorm.DB, userID uint) error {
	if err := tx.Where("user_id = ?", userID).Delete(&CartItem{}).Error; err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// ReserveStockTx takes the cart's quantities off product stock inside tx. One
// product short of units fails the whole cart.
func (s *Service) ReserveStockTx(tx *gorm.DB, c *Cart) error {
	lines := make([]Line, len(c.Lines))
	copy(lines, c.Lines)
	sort.Slice(lines, func(i, j int) bool { return lines[i].Product.ID < lines[j].Product.ID })

	for _, l := range lines {
		result := tx.Model(&product.Product{}).
			Where("id = ? AND stock >= ?", l.Product.ID, l.Quantity).
			Update("stock", gorm.Expr("stock - ?", l.Quantity))
		if result.Error != nil {
			return fmt.Errorf("failed to update stock: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", ErrNotEnoughStock, l.Product.Name)
		}
	}
	return nil
}

func lockProduct(tx *gorm.DB, productID uint) (*product.Product, error) {
	var prod product.Product
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&prod, productID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, product.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	return &prod, nil
}
