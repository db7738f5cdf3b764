// internal/storefront/admin/console.go
package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/storefront/api"
	"github.com/your-org/storefront/internal/storefront/notice"
)

var (
	ErrNotAdmin      = errors.New("admin access required")
	ErrInvalidStatus = errors.New("invalid status")
)

// API is the admin half of the Commerce API
type API interface {
	AdminProducts(ctx context.Context) ([]api.Product, error)
	CreateProduct(ctx context.Context, in api.ProductInput) (*api.Product, error)
	UpdateProduct(ctx context.Context, id uint, in api.ProductInput) (*api.Product, error)
	DeleteProduct(ctx context.Context, id uint) error
	AdminOrders(ctx context.Context) ([]api.Order, error)
	UpdateOrderStatus(ctx context.Context, id uint, status string) error
}

// Identity tells the console whether the current user may use it
type Identity interface {
	IsAdmin() bool
}

// Console manages the catalog and order statuses
type Console struct {
	api     API
	who     Identity
	notices *notice.Board
	log     *logrus.Logger
}

// NewConsole creates an admin console
func NewConsole(client API, who Identity, notices *notice.Board, log *logrus.Logger) *Console {
	return &Console{api: client, who: who, notices: notices, log: log}
}

// Products lists every product
func (c *Console) Products(ctx context.Context) ([]api.Product, error) {
	if err := c.guard(); err != nil {
		return nil, err
	}
	products, err := c.api.AdminProducts(ctx)
	if err != nil {
		return nil, c.fail(err, "Failed to load products")
	}
	return products, nil
}

// CreateProduct adds a product. A non-empty image path uploads the file.
func (c *Console) CreateProduct(ctx context.Context, in api.ProductInput) (*api.Product, error) {
	if err := c.guard(); err != nil {
		return nil, err
	}
	p, err := c.api.CreateProduct(ctx, in)
	if err != nil {
		return nil, c.fail(err, "Failed to create product")
	}
	c.notices.Success(fmt.Sprintf("Product %q created", p.Name))
	return p, nil
}

// UpdateProduct changes the non-nil fields of a product
func (c *Console) UpdateProduct(ctx context.Context, id uint, in api.ProductInput) (*api.Product, error) {
	if err := c.guard(); err != nil {
		return nil, err
	}
	p, err := c.api.UpdateProduct(ctx, id, in)
	if err != nil {
		return nil, c.fail(err, "Failed to update product")
	}
	c.notices.Success(fmt.Sprintf("Product %q updated", p.Name))
	return p, nil
}

// DeleteProduct removes a product
func (c *Console) DeleteProduct(ctx context.Context, id uint) error {
	if err := c.guard(); err != nil {
		return err
	}
	if err := c.api.DeleteProduct(ctx, id); err != nil {
		return c.fail(err, "Failed to delete product")
	}
	c.notices.Success("Product deleted")
	return nil
}

// Orders lists every order with its owner's username
func (c *Console) Orders(ctx context.Context) ([]api.Order, error) {
	if err := c.guard(); err != nil {
		return nil, err
	}
	orders, err := c.api.AdminOrders(ctx)
	if err != nil {
		return nil, c.fail(err, "Failed to load orders")
	}
	return orders, nil
}

// UpdateOrderStatus moves an order to any of the known statuses
func (c *Console) UpdateOrderStatus(ctx context.Context, id uint, status string) error {
	if err := c.guard(); err != nil {
		return err
	}

	normalized, ok := ParseStatus(status)
	if !ok {
		c.notices.Danger("Invalid status")
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	if err := c.api.UpdateOrderStatus(ctx, id, normalized); err != nil {
		return c.fail(err, "Failed to update order status")
	}
	c.notices.Success(fmt.Sprintf("Order #%d is now %s", id, normalized))
	return nil
}

// ParseStatus matches s case-insensitively against the order statuses
func ParseStatus(s string) (string, bool) {
	for _, st := range api.OrderStatuses {
		if strings.EqualFold(strings.TrimSpace(s), st) {
			return st, true
		}
	}
	return "", false
}

func (c *Console) guard() error {
	if c.who == nil || !c.who.IsAdmin() {
		c.notices.Danger("Admin access required")
		return ErrNotAdmin
	}
	return nil
}

func (c *Console) fail(err error, fallback string) error {
	c.log.WithError(err).Warn(strings.ToLower(fallback))
	c.notices.Danger(api.Message(err, fallback))
	return err
}
