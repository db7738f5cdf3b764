package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/domain/checkout"
	"github.com/your-org/storefront/internal/domain/order"
	"github.com/your-org/storefront/internal/domain/payment"
	"github.com/your-org/storefront/internal/domain/product"
	"github.com/your-org/storefront/internal/domain/user"
	"github.com/your-org/storefront/internal/interfaces/http/middleware"
	"github.com/your-org/storefront/internal/pkg/auth"
)

const cookieName = "storefront_session"

func init() {
	gin.SetMode(gin.TestMode)
}

var testConfig = &config.Config{
	Session: config.SessionConfig{CookieName: cookieName, TTL: time.Hour},
	External: config.ExternalConfig{
		Storage: config.StorageConfig{PublicPath: "/uploads"},
	},
}

type sessions map[string]*auth.Claims

func (s sessions) ResolveSession(_ context.Context, token string) (*auth.Claims, error) {
	if c, ok := s[token]; ok {
		return c, nil
	}
	return nil, errors.New("revoked")
}

var testSessions = sessions{
	"alice": {UserID: 1, Username: "alice", Email: "alice@example.com"},
	"admin": {UserID: 2, Username: "admin", Email: "admin@admin.com", IsAdmin: true},
}

func newEngine() *gin.Engine {
	r := gin.New()
	r.Use(middleware.OptionalSession(testSessions, cookieName))
	return r
}

func call(r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: cookieName, Value: token})
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// users

type fakeUsers struct {
	registerErr error
	loginErr    error
	loggedOut   []string
}

func (f *fakeUsers) Register(req *user.RegisterRequest) (*user.User, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return &user.User{ID: 9, Username: req.Username, Email: req.Email, IsAdmin: req.IsAdmin}, nil
}

func (f *fakeUsers) Login(_ context.Context, req *user.LoginRequest) (*user.Session, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &user.Session{
		User:      &user.User{ID: 1, Username: "alice", Email: req.Email},
		Token:     "alice",
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil
}

func (f *fakeUsers) Logout(_ context.Context, claims *auth.Claims) error {
	f.loggedOut = append(f.loggedOut, claims.Username)
	return nil
}

func (f *fakeUsers) GetByID(id uint) (*user.User, error) {
	for _, c := range testSessions {
		if c.UserID == id {
			return &user.User{ID: id, Username: c.Username, Email: c.Email, IsAdmin: c.IsAdmin}, nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (f *fakeUsers) Usernames(ids []uint) (map[uint]string, error) {
	out := map[uint]string{}
	for _, id := range ids {
		if u, err := f.GetByID(id); err == nil {
			out[id] = u.Username
		}
	}
	return out, nil
}

func authEngine(users *fakeUsers) *gin.Engine {
	h := NewAuthHandler(users, testConfig)
	r := newEngine()
	r.POST("/register", h.Register)
	r.POST("/login", h.Login)
	r.POST("/logout", middleware.RequireSession(testSessions, cookieName), h.Logout)
	r.GET("/user", h.SessionUser)
	r.GET("/current_user", h.CurrentUser)
	return r
}

func TestRegister(t *testing.T) {
	users := &fakeUsers{}
	r := authEngine(users)

	w := call(r, http.MethodPost, "/register", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"No input data provided"}`, w.Body.String())

	w = call(r, http.MethodPost, "/register", "", gin.H{"username": "bob", "email": "bob@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "Account created successfully")

	users.registerErr = user.ErrEmailTaken
	w = call(r, http.MethodPost, "/register", "", gin.H{"username": "bob", "email": "bob@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"error":"Email already registered"}`, w.Body.String())

	users.registerErr = user.ErrMissingFields
	w = call(r, http.MethodPost, "/register", "", gin.H{"username": "bob"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Missing fields"}`, w.Body.String())
}

func TestLoginSetsSessionCookie(t *testing.T) {
	r := authEngine(&fakeUsers{})

	w := call(r, http.MethodPost, "/login", "", gin.H{"email": "alice@example.com", "password": "pw"})
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Login successful", body["message"])
	assert.Equal(t, "alice", body["username"])
	assert.Equal(t, false, body["is_admin"])

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, cookieName, cookies[0].Name)
	assert.Equal(t, "alice", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestLoginInvalidCredentials(t *testing.T) {
	r := authEngine(&fakeUsers{loginErr: user.ErrInvalidCredentials})

	w := call(r, http.MethodPost, "/login", "", gin.H{"email": "alice@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Invalid credentials"}`, w.Body.String())
}

func TestLogoutRevokesAndClearsCookie(t *testing.T) {
	users := &fakeUsers{}
	r := authEngine(users)

	w := call(r, http.MethodPost, "/logout", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"alice"}, users.loggedOut)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestSessionUser(t *testing.T) {
	r := authEngine(&fakeUsers{})

	assert.JSONEq(t, `{"user":null}`, call(r, http.MethodGet, "/user", "", nil).Body.String())

	w := call(r, http.MethodGet, "/user", "admin", nil)
	assert.JSONEq(t, `{"user":{"id":2,"username":"admin","email":"admin@admin.com","is_admin":true}}`, w.Body.String())

	w = call(r, http.MethodGet, "/current_user", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Not logged in"}`, w.Body.String())

	w = call(r, http.MethodGet, "/current_user", "alice", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"alice"`)
}

// products

type fakeProducts struct {
	items   []product.Product
	lastReq *product.SearchRequest
	created *product.CreateRequest
}

func (f *fakeProducts) Search(req *product.SearchRequest) ([]product.Product, error) {
	f.lastReq = req
	return f.items, nil
}

func (f *fakeProducts) List() ([]product.Product, error) { return f.items, nil }

func (f *fakeProducts) Get(id uint) (*product.Product, error) {
	for i := range f.items {
		if f.items[i].ID == id {
			return &f.items[i], nil
		}
	}
	return nil, product.ErrProductNotFound
}

func (f *fakeProducts) Create(req *product.CreateRequest) (*product.Product, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("%w: name is required", product.ErrInvalidProduct)
	}
	f.created = req
	return &product.Product{ID: 3, Name: req.Name, Price: req.Price, Stock: req.Stock}, nil
}

func (f *fakeProducts) Update(id uint, req *product.UpdateRequest) (*product.Product, error) {
	p, err := f.Get(id)
	if err != nil {
		return nil, err
	}
	if req.Stock != nil {
		p.Stock = *req.Stock
	}
	return p, nil
}

func (f *fakeProducts) Delete(id uint) error {
	_, err := f.Get(id)
	return err
}

func TestProductEndpoints(t *testing.T) {
	products := &fakeProducts{items: []product.Product{
		{ID: 1, Name: "Mug", Price: decimal.RequireFromString("10"), Stock: 4, ImageFile: "mug.png"},
	}}
	h := NewProductHandler(products, testConfig)
	r := newEngine()
	r.GET("/products", h.GetProducts)
	r.GET("/products/:id", h.GetProduct)
	r.POST("/products", h.CreateProduct)
	r.PUT("/products/:id", h.UpdateProduct)
	r.DELETE("/products/:id", h.DeleteProduct)

	w := call(r, http.MethodGet, "/products?search_name=mu&min_price=5", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"products":[{"id":1,"name":"Mug","description":"","price":"10.00","stock":4,"image_url":"/uploads/mug.png"}]}`, w.Body.String())
	assert.Equal(t, "mu", products.lastReq.Name)
	assert.Equal(t, "5", products.lastReq.MinPrice.String())
	assert.Nil(t, products.lastReq.MaxPrice)

	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/products?max_price=abc", "alice", nil).Code)
	assert.Nil(t, products.lastReq.MaxPrice, "unparsable filters are ignored")

	w = call(r, http.MethodGet, "/products/1", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"product":{"id":1`)

	w = call(r, http.MethodGet, "/products/7", "alice", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Product not found"}`, w.Body.String())

	w = call(r, http.MethodPost, "/products", "admin", gin.H{"name": "Lamp", "price": "24.99", "stock": 2})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "24.99", products.created.Price.StringFixed(2))

	w = call(r, http.MethodPost, "/products", "admin", gin.H{"price": 3})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "name is required")

	w = call(r, http.MethodPut, "/products/1", "admin", gin.H{"stock": 9})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"stock":9`)

	assert.Equal(t, http.StatusOK, call(r, http.MethodDelete, "/products/1", "admin", nil).Code)
	assert.Equal(t, http.StatusNotFound, call(r, http.MethodDelete, "/products/99", "admin", nil).Code)
}

// cart

type fakeCart struct {
	lines map[uint]int
	stock int
}

func (f *fakeCart) Get(uint) (*cart.Cart, error) {
	c := &cart.Cart{Total: decimal.Zero}
	for id, q := range f.lines {
		p := product.Product{ID: id, Name: "Mug", Price: decimal.RequireFromString("10")}
		sub := p.Price.Mul(decimal.NewFromInt(int64(q)))
		c.Lines = append(c.Lines, cart.Line{Product: p, Quantity: q, Subtotal: sub})
		c.Total = c.Total.Add(sub)
	}
	return c, nil
}

func (f *fakeCart) Add(_, productID uint, quantity int) error {
	if quantity < 1 {
		return cart.ErrInvalidQuantity
	}
	if f.lines[productID]+quantity > f.stock {
		return cart.ErrNotEnoughStock
	}
	f.lines[productID] += quantity
	return nil
}

func (f *fakeCart) Update(_, productID uint, quantity int) error {
	if quantity < 1 {
		return cart.ErrInvalidQuantity
	}
	if _, ok := f.lines[productID]; !ok {
		return cart.ErrItemNotInCart
	}
	f.lines[productID] = quantity
	return nil
}

func (f *fakeCart) Remove(_, productID uint) error {
	if _, ok := f.lines[productID]; !ok {
		return cart.ErrItemNotInCart
	}
	delete(f.lines, productID)
	return nil
}

func (f *fakeCart) Count(uint) (int, error) {
	n := 0
	for _, q := range f.lines {
		n += q
	}
	return n, nil
}

func TestCartEndpoints(t *testing.T) {
	carts := &fakeCart{lines: map[uint]int{}, stock: 3}
	h := NewCartHandler(carts, testConfig)
	r := newEngine()
	r.GET("/cart", h.GetCart)
	r.GET("/cart/count", h.GetCartCount)
	r.POST("/cart/add/:productId", h.AddToCart)
	r.POST("/cart/update/:productId", h.UpdateCartItem)
	r.POST("/cart/remove/:productId", h.RemoveFromCart)

	require.Equal(t, http.StatusOK, call(r, http.MethodPost, "/cart/add/1", "alice", nil).Code)
	assert.Equal(t, 1, carts.lines[1], "quantity defaults to one")

	require.Equal(t, http.StatusOK, call(r, http.MethodPost, "/cart/add/1", "alice", gin.H{"quantity": 2}).Code)
	assert.Equal(t, 3, carts.lines[1])

	w := call(r, http.MethodPost, "/cart/add/1", "alice", gin.H{"quantity": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Not enough stock"}`, w.Body.String())

	w = call(r, http.MethodPost, "/cart/update/1", "alice", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Quantity must be at least 1"}`, w.Body.String())

	require.Equal(t, http.StatusOK, call(r, http.MethodPost, "/cart/update/1", "alice", gin.H{"quantity": 2}).Code)

	w = call(r, http.MethodGet, "/cart", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":"20.00"`)

	assert.JSONEq(t, `{"count":2}`, call(r, http.MethodGet, "/cart/count", "alice", nil).Body.String())

	require.Equal(t, http.StatusOK, call(r, http.MethodPost, "/cart/remove/1", "alice", nil).Code)
	w = call(r, http.MethodPost, "/cart/remove/1", "alice", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Item not in cart"}`, w.Body.String())

	assert.JSONEq(t, `{"cart":[],"total":"0.00"}`, call(r, http.MethodGet, "/cart", "alice", nil).Body.String())
}

// payments and checkout

type fakePayments struct {
	err error
}

func (f *fakePayments) CreateIntent(_ context.Context, _ uint, amount decimal.Decimal) (*payment.IntentResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	if !amount.IsPositive() {
		return nil, payment.ErrInvalidAmount
	}
	return &payment.IntentResponse{ClientSecret: "pi_1_secret_x", PaymentIntentID: "pi_1"}, nil
}

type fakeCheckout struct {
	err    error
	intent string
}

func (f *fakeCheckout) Finalize(_ context.Context, _ uint, intentID string) (*checkout.Result, error) {
	f.intent = intentID
	if f.err != nil {
		return nil, f.err
	}
	return &checkout.Result{OrderID: 42}, nil
}

func TestCreatePaymentIntent(t *testing.T) {
	payments := &fakePayments{}
	h := NewPaymentHandler(payments, nil)
	r := newEngine()
	r.POST("/create-payment-intent", h.CreatePaymentIntent)

	w := call(r, http.MethodPost, "/create-payment-intent", "alice", gin.H{"amount": 65.67})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"clientSecret":"pi_1_secret_x","paymentIntentId":"pi_1"}`, w.Body.String())

	w = call(r, http.MethodPost, "/create-payment-intent", "alice", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Invalid amount"}`, w.Body.String())

	w = call(r, http.MethodPost, "/create-payment-intent", "alice", gin.H{"amount": "0"})
	assert.JSONEq(t, `{"error":"Invalid amount"}`, w.Body.String())

	payments.err = payment.ErrCartEmpty
	w = call(r, http.MethodPost, "/create-payment-intent", "alice", gin.H{"amount": "10"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Cart is empty"}`, w.Body.String())
}

func TestCheckout(t *testing.T) {
	svc := &fakeCheckout{}
	h := NewCheckoutHandler(svc)
	r := newEngine()
	r.POST("/cart/checkout", h.Checkout)

	w := call(r, http.MethodPost, "/cart/checkout", "alice", gin.H{"payment_intent_id": "pi_1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pi_1", svc.intent)
	assert.Contains(t, w.Body.String(), `"order_id":42`)

	svc.err = fmt.Errorf("%w: status requires_action", checkout.ErrPaymentNotSucceeded)
	w = call(r, http.MethodPost, "/cart/checkout", "alice", gin.H{"payment_intent_id": "pi_1"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"error":"Payment has not succeeded"}`, w.Body.String())

	svc.err = fmt.Errorf("%w: connection reset", checkout.ErrFinalizeFailed)
	w = call(r, http.MethodPost, "/cart/checkout", "alice", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Checkout failed, please retry"}`, w.Body.String())
	assert.Empty(t, svc.intent)

	svc.err = checkout.ErrIntentRequired
	w = call(r, http.MethodPost, "/cart/checkout", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Payment intent required"}`, w.Body.String())

	svc.err = fmt.Errorf("%w: cart 3000, paid 2000", checkout.ErrAmountMismatch)
	w = call(r, http.MethodPost, "/cart/checkout", "alice", gin.H{"payment_intent_id": "pi_1"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.JSONEq(t, `{"error":"Cart changed after payment, order not placed"}`, w.Body.String())

	svc.err = fmt.Errorf("%w: Mug", cart.ErrNotEnoughStock)
	w = call(r, http.MethodPost, "/cart/checkout", "alice", gin.H{"payment_intent_id": "pi_1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Not enough stock"}`, w.Body.String())
}

func TestSandboxConfirm(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	sandbox := payment.NewSandboxGateway(rdb)
	h := NewPaymentHandler(&fakePayments{}, sandbox)
	r := newEngine()
	r.POST("/sandbox/confirm", h.SandboxConfirm)

	ctx := context.Background()
	intent, err := sandbox.CreateIntent(ctx, payment.CreateIntentParams{Amount: 1000, Currency: "usd"})
	require.NoError(t, err)

	w := call(r, http.MethodPost, "/sandbox/confirm", "", gin.H{"client_secret": intent.ClientSecret, "payment_method": payment.SandboxCardDeclined})
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.JSONEq(t, `{"error":"Your card was declined.","code":"card_declined"}`, w.Body.String())

	w = call(r, http.MethodPost, "/sandbox/confirm", "", gin.H{"client_secret": intent.ClientSecret, "payment_method": payment.SandboxCardVisa})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"id":%q,"status":"succeeded"}`, intent.ID), w.Body.String())

	assert.Equal(t, http.StatusBadRequest, call(r, http.MethodPost, "/sandbox/confirm", "", gin.H{}).Code)
}

// orders

type fakeOrders struct {
	orders []order.Order
}

func (f *fakeOrders) ListForUser(userID uint) ([]order.Order, error) {
	var out []order.Order
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOrders) ListAll() ([]order.Order, error) { return f.orders, nil }

func (f *fakeOrders) UpdateStatus(id uint, status order.OrderStatus) (*order.Order, error) {
	for i := range f.orders {
		if f.orders[i].ID == id {
			f.orders[i].Status = status
			return &f.orders[i], nil
		}
	}
	return nil, order.ErrOrderNotFound
}

func TestOrderEndpoints(t *testing.T) {
	orders := &fakeOrders{orders: []order.Order{
		{ID: 1, UserID: 1, Status: order.OrderStatusPending, Total: decimal.RequireFromString("20")},
		{ID: 2, UserID: 2, Status: order.OrderStatusShipped, Total: decimal.RequireFromString("5")},
	}}
	h := NewOrderHandler(orders, &fakeUsers{})
	r := newEngine()
	r.GET("/orders", h.GetOrders)
	r.GET("/admin/orders", h.AdminGetOrders)
	r.PUT("/admin/orders/:id", h.AdminUpdateOrderStatus)

	var mine struct {
		Orders []order.View `json:"orders"`
	}
	w := call(r, http.MethodGet, "/orders", "alice", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &mine))
	require.Len(t, mine.Orders, 1)
	assert.Equal(t, "20.00", mine.Orders[0].Total)
	assert.Empty(t, mine.Orders[0].Username)

	var all struct {
		Orders []order.View `json:"orders"`
	}
	w = call(r, http.MethodGet, "/admin/orders", "admin", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
	require.Len(t, all.Orders, 2)
	assert.Equal(t, "alice", all.Orders[0].Username)
	assert.Equal(t, "admin", all.Orders[1].Username)

	w = call(r, http.MethodPut, "/admin/orders/1", "admin", gin.H{"status": "shipped"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Invalid status"}`, w.Body.String())

	w = call(r, http.MethodPut, "/admin/orders/9", "admin", gin.H{"status": "Delivered"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Order not found"}`, w.Body.String())

	w = call(r, http.MethodPut, "/admin/orders/1", "admin", gin.H{"status": "Delivered"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, order.OrderStatusDelivered, orders.orders[0].Status)
}
