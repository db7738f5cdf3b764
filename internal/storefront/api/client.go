// internal/storefront/api/client.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/config"
)

// Error is a non-2xx answer of the Commerce API
type Error struct {
	Status  int
	Message string
	Code    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Message)
}

// Message turns any error into the text shown to the shopper: the API's own
// message when there is one, fallback otherwise
func Message(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// StatusOf returns the HTTP status behind err, or 0 when err is not an API error
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// Client calls the Commerce API. The session cookie lives in the client's
// cookie jar, so every call is made with the shopper's credentials.
type Client struct {
	baseURL string
	http    *http.Client
	log     *logrus.Logger
}

// New creates a client for the API at baseURL
func New(baseURL string, timeout time.Duration, log *logrus.Logger) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid API base URL %q: %w", baseURL, err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout, Jar: jar},
		log:     log,
	}, nil
}

// NewFromConfig creates a client from the client section of the configuration
func NewFromConfig(cfg *config.Config, log *logrus.Logger) (*Client, error) {
	return New(cfg.Client.APIBaseURL, cfg.Client.RequestTimeout, log)
}

// CurrentUser returns the logged in user, or nil for an anonymous session
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var resp struct {
		User *User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/user", nil, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// Login opens a session
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	var u User
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Logout ends the session server-side
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// Register creates an account
func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	return c.do(ctx, http.MethodPost, "/api/auth/register", req, nil)
}

// Products lists the catalog, optionally filtered
func (c *Client) Products(ctx context.Context, f ProductFilter) ([]Product, error) {
	q := url.Values{}
	for key, v := range map[string]string{
		"search_name":        f.Name,
		"search_description": f.Description,
		"min_price":          f.MinPrice,
		"max_price":          f.MaxPrice,
	} {
		if v != "" {
			q.Set(key, v)
		}
	}

	path := "/api/products"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp struct {
		Products []Product `json:"products"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Products, nil
}

// Product fetches one product
func (c *Client) Product(ctx context.Context, id uint) (*Product, error) {
	var resp struct {
		Product Product `json:"product"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/products/"+idPath(id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Product, nil
}

// AdminProducts lists every product for the admin console
func (c *Client) AdminProducts(ctx context.Context) ([]Product, error) {
	var resp struct {
		Products []Product `json:"products"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/admin/products", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Products, nil
}

// CreateProduct adds a product to the catalog
func (c *Client) CreateProduct(ctx context.Context, in ProductInput) (*Product, error) {
	return c.sendProduct(ctx, http.MethodPost, "/api/products", in)
}

// UpdateProduct changes the non-nil fields of a product
func (c *Client) UpdateProduct(ctx context.Context, id uint, in ProductInput) (*Product, error) {
	return c.sendProduct(ctx, http.MethodPut, "/api/products/"+idPath(id), in)
}

// DeleteProduct removes a product
func (c *Client) DeleteProduct(ctx context.Context, id uint) error {
	return c.do(ctx, http.MethodDelete, "/api/products/"+idPath(id), nil, nil)
}

// Cart fetches the cart with its server-computed total
func (c *Client) Cart(ctx context.Context) (*Cart, error) {
	var cart Cart
	if err := c.do(ctx, http.MethodGet, "/api/cart", nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// AddToCart adds quantity units of a product
func (c *Client) AddToCart(ctx context.Context, productID uint, quantity int) error {
	return c.do(ctx, http.MethodPost, "/api/cart/add/"+idPath(productID), map[string]int{"quantity": quantity}, nil)
}

// UpdateCartItem sets the absolute quantity of a line
func (c *Client) UpdateCartItem(ctx context.Context, productID uint, quantity int) error {
	return c.do(ctx, http.MethodPost, "/api/cart/update/"+idPath(productID), map[string]int{"quantity": quantity}, nil)
}

// RemoveFromCart drops a line
func (c *Client) RemoveFromCart(ctx context.Context, productID uint) error {
	return c.do(ctx, http.MethodPost, "/api/cart/remove/"+idPath(productID), nil, nil)
}

// CartCount returns the number of units in the cart
func (c *Client) CartCount(ctx context.Context) (int, error) {
	var resp struct {
		Count int `json:"count"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/cart/count", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// CreatePaymentIntent asks for a payment intent for amount in major units
func (c *Client) CreatePaymentIntent(ctx context.Context, amount decimal.Decimal) (*PaymentIntent, error) {
	var intent PaymentIntent
	body := map[string]string{"amount": amount.StringFixed(2)}
	if err := c.do(ctx, http.MethodPost, "/api/create-payment-intent", body, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

// Checkout finalizes the cart into an order. Calling it again with the same
// intent id returns the same order.
func (c *Client) Checkout(ctx context.Context, paymentIntentID string) (*CheckoutResult, error) {
	var body any
	if paymentIntentID != "" {
		body = map[string]string{"payment_intent_id": paymentIntentID}
	}

	var result CheckoutResult
	if err := c.do(ctx, http.MethodPost, "/api/cart/checkout", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SandboxConfirm confirms an intent against the server's sandbox processor
func (c *Client) SandboxConfirm(ctx context.Context, clientSecret, paymentMethod string) (*SandboxIntent, error) {
	var intent SandboxIntent
	body := map[string]string{"client_secret": clientSecret, "payment_method": paymentMethod}
	if err := c.do(ctx, http.MethodPost, "/api/sandbox/confirm", body, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

// Orders lists the shopper's orders, newest first
func (c *Client) Orders(ctx context.Context) ([]Order, error) {
	return c.orders(ctx, "/api/orders")
}

// AdminOrders lists every order with its owner
func (c *Client) AdminOrders(ctx context.Context) ([]Order, error) {
	return c.orders(ctx, "/api/admin/orders")
}

// UpdateOrderStatus sets an order's status
func (c *Client) UpdateOrderStatus(ctx context.Context, id uint, status string) error {
	return c.do(ctx, http.MethodPut, "/api/admin/orders/"+idPath(id), map[string]string{"status": status}, nil)
}

func (c *Client) orders(ctx context.Context, path string) ([]Order, error) {
	var resp struct {
		Orders []Order `json:"orders"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Orders, nil
}

func (c *Client) sendProduct(ctx context.Context, method, path string, in ProductInput) (*Product, error) {
	var resp struct {
		Product Product `json:"product"`
	}

	if in.ImagePath == "" {
		body := map[string]any{}
		if in.Name != nil {
			body["name"] = *in.Name
		}
		if in.Description != nil {
			body["description"] = *in.Description
		}
		if in.Price != nil {
			body["price"] = in.Price.String()
		}
		if in.Stock != nil {
			body["stock"] = *in.Stock
		}
		if err := c.do(ctx, method, path, body, &resp); err != nil {
			return nil, err
		}
		return &resp.Product, nil
	}

	payload, contentType, err := productForm(in)
	if err != nil {
		return nil, err
	}
	if err := c.send(ctx, method, path, payload, contentType, &resp); err != nil {
		return nil, err
	}
	return &resp.Product, nil
}

// productForm encodes a product with its image as multipart/form-data
func productForm(in ProductInput) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := map[string]string{}
	if in.Name != nil {
		fields["name"] = *in.Name
	}
	if in.Description != nil {
		fields["description"] = *in.Description
	}
	if in.Price != nil {
		fields["price"] = in.Price.String()
	}
	if in.Stock != nil {
		fields["stock"] = strconv.Itoa(*in.Stock)
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("failed to write form field: %w", err)
		}
	}

	f, err := os.Open(in.ImagePath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	part, err := w.CreateFormFile("image", filepath.Base(in.ImagePath))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("failed to copy image: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload io.Reader
	contentType := ""
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		payload = bytes.NewReader(b)
		contentType = "application/json"
	}
	return c.send(ctx, method, path, payload, contentType, out)
}

func (c *Client) send(ctx context.Context, method, path string, payload io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		c.log.WithError(err).WithFields(logrus.Fields{"method": method, "path": path}).Warn("api request failed")
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	c.log.WithFields(logrus.Fields{
		"method":  method,
		"path":    path,
		"status":  res.StatusCode,
		"latency": time.Since(start),
	}).Debug("api request")

	raw, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		apiErr := &Error{Status: res.StatusCode}
		var body struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		if json.Unmarshal(raw, &body) == nil {
			apiErr.Message = body.Error
			apiErr.Code = body.Code
		}
		return apiErr
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func idPath(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
