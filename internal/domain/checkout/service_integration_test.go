package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/domain/order"
	"github.com/your-org/storefront/internal/domain/payment"
	"github.com/your-org/storefront/internal/domain/product"
	"github.com/your-org/storefront/internal/domain/user"
	"github.com/your-org/storefront/internal/infrastructure/database/postgres"
	"github.com/your-org/storefront/internal/infrastructure/events"
	"github.com/your-org/storefront/internal/pkg/logger"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	events []events.OrderPlacedEvent
}

func (p *recordingPublisher) PublishOrderPlaced(_ context.Context, e events.OrderPlacedEvent) error {
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type fixture struct {
	db        *gorm.DB
	carts     *cart.Service
	orders    *order.Service
	payments  *payment.Service
	sandbox   *payment.SandboxGateway
	checkout  *Service
	published *recordingPublisher
	userID    uint
	productID uint
}

func setup(t *testing.T) *fixture {
	return setupWith(t, config.PaymentConfig{Provider: "sandbox", Currency: "usd"})
}

func setupWith(t *testing.T, paymentCfg config.PaymentConfig) *fixture {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("testuser"),
		tcpostgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	log := logger.Discard()
	database, err := postgres.Open(dsn, config.DatabaseConfig{MaxOpenConns: 5, MaxIdleConns: 2}, false, log)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	db := database.GetDB()
	require.NoError(t, postgres.NewMigration(db, log).RunAutoMigrations())

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	cfg := &config.Config{Payment: paymentCfg}
	sandbox := payment.NewSandboxGateway(rdb)

	f := &fixture{db: db, sandbox: sandbox, published: &recordingPublisher{}}
	f.carts = cart.NewService(db, log)
	f.orders = order.NewService(db, log)
	f.payments = payment.NewService(db, sandbox, f.carts, cfg, log)
	f.checkout = NewService(db, f.carts, f.orders, f.payments, f.published, cfg, log)

	u := user.User{Username: "alice", Email: "alice@example.com", Password: "x"}
	require.NoError(t, db.Create(&u).Error)
	p := product.Product{Name: "Mug", Price: decimal.RequireFromString("10.00"), Stock: 5}
	require.NoError(t, db.Create(&p).Error)
	f.userID, f.productID = u.ID, p.ID

	return f
}

func (f *fixture) payFor(t *testing.T, amount string, card string) string {
	t.Helper()
	ctx := context.Background()

	resp, err := f.payments.CreateIntent(ctx, f.userID, decimal.RequireFromString(amount))
	require.NoError(t, err)

	_, err = f.sandbox.Confirm(ctx, resp.ClientSecret, card)
	if card == payment.SandboxCardVisa {
		require.NoError(t, err)
	}
	return resp.PaymentIntentID
}

func TestFinalize_PaidCheckoutIsIdempotent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	require.NoError(t, f.carts.Add(f.userID, f.productID, 2))

	c, err := f.carts.Get(f.userID)
	require.NoError(t, err)
	assert.Equal(t, "20.00", c.Total.StringFixed(2))

	intentID := f.payFor(t, c.Total.String(), payment.SandboxCardVisa)

	first, err := f.checkout.Finalize(ctx, f.userID, intentID)
	require.NoError(t, err)
	assert.False(t, first.AlreadyFinalized)

	second, err := f.checkout.Finalize(ctx, f.userID, intentID)
	require.NoError(t, err)
	assert.True(t, second.AlreadyFinalized)
	assert.Equal(t, first.OrderID, second.OrderID)

	after, err := f.carts.Get(f.userID)
	require.NoError(t, err)
	assert.True(t, after.IsEmpty())
	assert.Equal(t, "0.00", after.Total.StringFixed(2))

	orders, err := f.orders.ListForUser(f.userID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, order.OrderStatusPending, orders[0].Status)
	assert.Equal(t, "20.00", orders[0].Total.StringFixed(2))
	require.Len(t, orders[0].Items, 1)
	assert.Equal(t, 2, orders[0].Items[0].Quantity)

	record, err := f.payments.FindRecord(ctx, f.userID, intentID)
	require.NoError(t, err)
	assert.Equal(t, payment.LedgerStatusFinalized, record.Status)

	require.Len(t, f.published.events, 1, "exactly one order event")
	assert.Equal(t, intentID, f.published.events[0].PaymentIntentID)

	var p product.Product
	require.NoError(t, f.db.First(&p, f.productID).Error)
	assert.Equal(t, 3, p.Stock, "stock taken once")
}

func TestFinalize_CartChangedAfterPayment(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	require.NoError(t, f.carts.Add(f.userID, f.productID, 2))
	intentID := f.payFor(t, "20.00", payment.SandboxCardVisa)

	require.NoError(t, f.carts.Update(f.userID, f.productID, 3))

	_, err := f.checkout.Finalize(ctx, f.userID, intentID)
	assert.ErrorIs(t, err, ErrAmountMismatch)

	orders, err := f.orders.ListForUser(f.userID)
	require.NoError(t, err)
	assert.Empty(t, orders)

	c, err := f.carts.Get(f.userID)
	require.NoError(t, err)
	require.Len(t, c.Lines, 1, "cart untouched")
	assert.Equal(t, 3, c.Lines[0].Quantity)

	record, err := f.payments.FindRecord(ctx, f.userID, intentID)
	require.NoError(t, err)
	assert.Equal(t, payment.LedgerStatusFinalizeFailed, record.Status)
	assert.Contains(t, record.LastError, "does not match")
	assert.Empty(t, f.published.events)

	// Back to what was paid for
	require.NoError(t, f.carts.Update(f.userID, f.productID, 2))
	res, err := f.checkout.Finalize(ctx, f.userID, intentID)
	require.NoError(t, err)
	assert.NotZero(t, res.OrderID)
}

func TestFinalize_LastUnitSoldOnce(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	require.NoError(t, f.db.Model(&product.Product{}).Where("id = ?", f.productID).Update("stock", 1).Error)

	bob := user.User{Username: "bob", Email: "bob@example.com", Password: "x"}
	require.NoError(t, f.db.Create(&bob).Error)

	require.NoError(t, f.carts.Add(f.userID, f.productID, 1))
	require.NoError(t, f.carts.Add(bob.ID, f.productID, 1))

	aliceIntent := f.payFor(t, "10.00", payment.SandboxCardVisa)
	_, err := f.checkout.Finalize(ctx, f.userID, aliceIntent)
	require.NoError(t, err)

	bobResp, err := f.payments.CreateIntent(ctx, bob.ID, decimal.RequireFromString("10.00"))
	require.NoError(t, err)
	_, err = f.sandbox.Confirm(ctx, bobResp.ClientSecret, payment.SandboxCardVisa)
	require.NoError(t, err)

	_, err = f.checkout.Finalize(ctx, bob.ID, bobResp.PaymentIntentID)
	assert.ErrorIs(t, err, cart.ErrNotEnoughStock)

	var p product.Product
	require.NoError(t, f.db.First(&p, f.productID).Error)
	assert.Zero(t, p.Stock)

	orders, err := f.orders.ListForUser(bob.ID)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestFinalize_RequiresSucceededPayment(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	require.NoError(t, f.carts.Add(f.userID, f.productID, 1))
	intentID := f.payFor(t, "10.00", payment.SandboxCardAuthRequired)

	_, err := f.checkout.Finalize(ctx, f.userID, intentID)
	assert.ErrorIs(t, err, ErrPaymentNotSucceeded)

	c, err := f.carts.Get(f.userID)
	require.NoError(t, err)
	assert.Len(t, c.Lines, 1, "cart untouched")
	assert.Empty(t, f.published.events)
}

func TestFinalize_UnknownIntent(t *testing.T) {
	f := setup(t)

	_, err := f.checkout.Finalize(context.Background(), f.userID, "pi_unknown")
	assert.ErrorIs(t, err, ErrUnknownIntent)
}

func TestCreateIntent_EmptyCart(t *testing.T) {
	f := setup(t)

	_, err := f.payments.CreateIntent(context.Background(), f.userID, decimal.RequireFromString("10"))
	assert.ErrorIs(t, err, payment.ErrCartEmpty)

	var n int64
	require.NoError(t, f.db.Model(&payment.PaymentRecord{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestCart_AddDedupAndStock(t *testing.T) {
	f := setup(t)

	require.NoError(t, f.carts.Add(f.userID, f.productID, 1))
	require.NoError(t, f.carts.Add(f.userID, f.productID, 2))

	c, err := f.carts.Get(f.userID)
	require.NoError(t, err)
	require.Len(t, c.Lines, 1)
	assert.Equal(t, 3, c.Lines[0].Quantity)

	assert.ErrorIs(t, f.carts.Add(f.userID, f.productID, 3), cart.ErrNotEnoughStock)
	assert.ErrorIs(t, f.carts.Update(f.userID, f.productID, 0), cart.ErrInvalidQuantity)
	assert.ErrorIs(t, f.carts.Update(f.userID, 999, 1), cart.ErrItemNotInCart)

	require.NoError(t, f.carts.Update(f.userID, f.productID, 1))
	count, err := f.carts.Count(f.userID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, f.carts.Remove(f.userID, f.productID))
	assert.ErrorIs(t, f.carts.Remove(f.userID, f.productID), cart.ErrItemNotInCart)
}

func TestFinalize_WithoutIntentIsRefused(t *testing.T) {
	f := setup(t)

	require.NoError(t, f.carts.Add(f.userID, f.productID, 1))
	_, err := f.checkout.Finalize(context.Background(), f.userID, "")
	assert.ErrorIs(t, err, ErrIntentRequired)

	c, err := f.carts.Get(f.userID)
	require.NoError(t, err)
	assert.Len(t, c.Lines, 1)
}

func TestFinalize_LegacyWithoutIntent(t *testing.T) {
	f := setupWith(t, config.PaymentConfig{Provider: "sandbox", Currency: "usd", AllowUnpaidCheckout: true})
	ctx := context.Background()

	_, err := f.checkout.Finalize(ctx, f.userID, "")
	assert.ErrorIs(t, err, ErrCartEmpty)

	require.NoError(t, f.carts.Add(f.userID, f.productID, 1))
	res, err := f.checkout.Finalize(ctx, f.userID, "")
	require.NoError(t, err)
	assert.NotZero(t, res.OrderID)
}
