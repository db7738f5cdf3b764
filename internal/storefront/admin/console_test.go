package admin

import (
	"context"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront/internal/pkg/logger"
	"github.com/your-org/storefront/internal/storefront/api"
	"github.com/your-org/storefront/internal/storefront/notice"
)

type fakeAPI struct {
	products    []api.Product
	statusCalls []string
	createErr   error
	created     []api.ProductInput
}

func (f *fakeAPI) AdminProducts(context.Context) ([]api.Product, error) { return f.products, nil }

func (f *fakeAPI) CreateProduct(_ context.Context, in api.ProductInput) (*api.Product, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, in)
	return &api.Product{ID: 7, Name: *in.Name, Price: *in.Price}, nil
}

func (f *fakeAPI) UpdateProduct(_ context.Context, id uint, in api.ProductInput) (*api.Product, error) {
	return &api.Product{ID: id, Name: "updated"}, nil
}

func (f *fakeAPI) DeleteProduct(context.Context, uint) error { return nil }

func (f *fakeAPI) AdminOrders(context.Context) ([]api.Order, error) {
	return []api.Order{{ID: 1, Status: "Pending", Username: "alice"}}, nil
}

func (f *fakeAPI) UpdateOrderStatus(_ context.Context, _ uint, status string) error {
	f.statusCalls = append(f.statusCalls, status)
	return nil
}

type role bool

func (r role) IsAdmin() bool { return bool(r) }

func TestConsoleRequiresAdmin(t *testing.T) {
	board := notice.NewBoard()
	c := NewConsole(&fakeAPI{}, role(false), board, logger.Discard())

	_, err := c.Products(context.Background())
	assert.ErrorIs(t, err, ErrNotAdmin)
	assert.ErrorIs(t, c.UpdateOrderStatus(context.Background(), 1, "Shipped"), ErrNotAdmin)
	assert.Equal(t, "Admin access required", board.List()[0].Text)
}

func TestUpdateOrderStatus(t *testing.T) {
	ctx := context.Background()
	f := &fakeAPI{}
	board := notice.NewBoard()
	c := NewConsole(f, role(true), board, logger.Discard())

	require.NoError(t, c.UpdateOrderStatus(ctx, 1, "shipped"))
	require.NoError(t, c.UpdateOrderStatus(ctx, 1, "Pending"))
	assert.Equal(t, []string{"Shipped", "Pending"}, f.statusCalls)

	err := c.UpdateOrderStatus(ctx, 1, "Lost")
	assert.ErrorIs(t, err, ErrInvalidStatus)
	assert.Len(t, f.statusCalls, 2, "invalid status never reaches the server")
}

func TestCreateProduct(t *testing.T) {
	ctx := context.Background()
	f := &fakeAPI{}
	board := notice.NewBoard()
	c := NewConsole(f, role(true), board, logger.Discard())

	name := "Mug"
	price := decimal.RequireFromString("12.50")
	p, err := c.CreateProduct(ctx, api.ProductInput{Name: &name, Price: &price})
	require.NoError(t, err)
	assert.Equal(t, uint(7), p.ID)
	assert.Equal(t, notice.KindSuccess, board.List()[0].Kind)

	f.createErr = &api.Error{Status: http.StatusBadRequest, Message: "Name is required"}
	_, err = c.CreateProduct(ctx, api.ProductInput{})
	require.Error(t, err)
	assert.Equal(t, "Name is required", board.List()[1].Text)
}

func TestOrdersCarryUsername(t *testing.T) {
	c := NewConsole(&fakeAPI{}, role(true), notice.NewBoard(), logger.Discard())

	orders, err := c.Orders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "alice", orders[0].Username)
}
