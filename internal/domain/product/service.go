// internal/domain/product/service.go
package product

import (
	"errors"
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidProduct  = errors.New("invalid product")
)

// Service handles catalog business logic
type Service struct {
	db     *gorm.DB
	images *ImageStore
	log    *logrus.Logger
}

// NewService creates a new product service
func NewService(db *gorm.DB, images *ImageStore, log *logrus.Logger) *Service {
	return &Service{
		db:     db,
		images: images,
		log:    log,
	}
}

// SearchRequest filters the product listing. Empty fields are ignored.
type SearchRequest struct {
	Name        string
	Description string
	MinPrice    *decimal.Decimal
	MaxPrice    *decimal.Decimal
}

// CreateRequest represents product creation data
type CreateRequest struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	Image       *multipart.FileHeader
}

// UpdateRequest represents a partial product update
type UpdateRequest struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Stock       *int
	Image       *multipart.FileHeader
}

// Search lists products matching the request, ordered by id
func (s *Service) Search(req *SearchRequest) ([]Product, error) {
	query := s.db.Model(&Product{})

	if name := strings.TrimSpace(req.Name); name != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(name)+"%")
	}

	if desc := strings.TrimSpace(req.Description); desc != "" {
		query = query.Where("LOWER(description) LIKE ?", "%"+strings.ToLower(desc)+"%")
	}

	if req.MinPrice != nil {
		query = query.Where("price >= ?", *req.MinPrice)
	}

	if req.MaxPrice != nil {
		query = query.Where("price <= ?", *req.MaxPrice)
	}

	var products []Product
	if err := query.Order("id ASC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve products: %w", err)
	}
	return products, nil
}

// List returns every product, ordered by id
func (s *Service) List() ([]Product, error) {
	return s.Search(&SearchRequest{})
}

// Get retrieves a single product by ID
func (s *Service) Get(id uint) (*Product, error) {
	var product Product
	if err := s.db.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to retrieve product: %w", err)
	}
	return &product, nil
}

// Create adds a product to the catalog
func (s *Service) Create(req *CreateRequest) (*Product, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if err := validatePriceAndStock(req.Price, req.Stock); err != nil {
		return nil, err
	}

	product := Product{
		Name:        name,
		Description: req.Description,
		Price:       req.Price.Round(2),
		Stock:       req.Stock,
	}

	if req.Image != nil {
		filename, err := s.images.Save(req.Image)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidProduct, err)
		}
		product.ImageFile = filename
	}

	if err := s.db.Create(&product).Error; err != nil {
		s.images.Delete(product.ImageFile)
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.log.WithFields(logrus.Fields{"product_id": product.ID, "name": product.Name}).Info("product created")
	return &product, nil
}

// Update applies the non-nil fields of req to the product
func (s *Service) Update(id uint, req *UpdateRequest) (*Product, error) {
	product, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrInvalidProduct)
		}
		updates["name"] = name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}

	price, stock := product.Price, product.Stock
	if req.Price != nil {
		price = req.Price.Round(2)
		updates["price"] = price
	}
	if req.Stock != nil {
		stock = *req.Stock
		updates["stock"] = stock
	}
	if err := validatePriceAndStock(price, stock); err != nil {
		return nil, err
	}

	oldImage := ""
	if req.Image != nil {
		filename, err := s.images.Save(req.Image)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidProduct, err)
		}
		oldImage = product.ImageFile
		updates["image_file"] = filename
	}

	if len(updates) > 0 {
		if err := s.db.Model(product).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update product: %w", err)
		}
	}

	if oldImage != "" {
		if err := s.images.Delete(oldImage); err != nil {
			s.log.WithError(err).WithField("product_id", id).Warn("failed to remove replaced image")
		}
	}

	return s.Get(id)
}

// Delete removes a product and any cart lines that reference it. Order
// history keeps its own snapshot of the product.
func (s *Service) Delete(id uint) error {
	product, err := s.Get(id)
	if err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM cart_items WHERE product_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to clear cart lines: %w", err)
		}
		result := tx.Delete(&Product{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete product: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrProductNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.images.Delete(product.ImageFile); err != nil {
		s.log.WithError(err).WithField("product_id", id).Warn("failed to remove product image")
	}
	s.log.WithField("product_id", id).Info("product deleted")
	return nil
}

func validatePriceAndStock(price decimal.Decimal, stock int) error {
	if price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	}
	if stock < 0 {
		return fmt.Errorf("%w: stock must not be negative", ErrInvalidProduct)
	}
	return nil
}
