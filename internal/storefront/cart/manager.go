// internal/storefront/cart/manager.go
package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/storefront/api"
	"github.com/your-org/storefront/internal/storefront/event"
	"github.com/your-org/storefront/internal/storefront/notice"
	"github.com/your-org/storefront/internal/storefront/payment"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

var (
	ErrStale             = errors.New("no fresh cart available")
	ErrCartEmpty         = errors.New("cart is empty")
	ErrCheckoutInFlight  = errors.New("a checkout is already in progress")
	ErrPaymentFailed     = errors.New("payment failed")
	ErrPaymentIncomplete = errors.New("payment requires additional action")
	ErrFinalizePending   = errors.New("payment succeeded but the order is not finalized yet")
)

// API is the part of the Commerce API the cart needs
type API interface {
	Cart(ctx context.Context) (*api.Cart, error)
	AddToCart(ctx context.Context, productID uint, quantity int) error
	UpdateCartItem(ctx context.Context, productID uint, quantity int) error
	RemoveFromCart(ctx context.Context, productID uint) error
	CreatePaymentIntent(ctx context.Context, amount decimal.Decimal) (*api.PaymentIntent, error)
	Checkout(ctx context.Context, paymentIntentID string) (*api.CheckoutResult, error)
}

// Identity reports who the cart belongs to
type Identity interface {
	Current() (*api.User, bool)
}

// Options tunes finalize retries
type Options struct {
	FinalizeAttempts int
	FinalizeBackoff  time.Duration
}

// OptionsFromConfig reads the retry settings from the client configuration
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		FinalizeAttempts: cfg.Client.FinalizeAttempts,
		FinalizeBackoff:  cfg.Client.FinalizeBackoff,
	}
}

// Manager keeps the last cart the server sent and drives every change to it.
// Mutations run one at a time in arrival order; checkout runs at most once at a time.
// The snapshot belongs to one user: when the identity changes it is dropped
// before anything reads it.
type Manager struct {
	api       API
	who       Identity
	processor payment.Processor
	cards     payment.CardSource
	notices   *notice.Board
	log       *logrus.Logger
	opts      Options

	loads     singleflight.Group
	mutations *semaphore.Weighted
	bus       *event.Bus[Event]

	mu         sync.RWMutex
	owner      uint
	generation uint64
	snapshot   *api.Cart
	fresh      bool

	checkoutMu sync.Mutex
	checkout   CheckoutState

	pendingMu sync.Mutex
	pending   []pendingIntent
}

// pendingIntent is a paid intent waiting for its order, kept for the user who paid
type pendingIntent struct {
	id    string
	owner uint
}

// NewManager creates a cart manager. Nothing is fetched until Load. A nil
// identity treats every call as the same anonymous shopper.
func NewManager(client API, who Identity, processor payment.Processor, cards payment.CardSource, notices *notice.Board, opts Options, log *logrus.Logger) *Manager {
	if opts.FinalizeAttempts < 1 {
		opts.FinalizeAttempts = 1
	}
	return &Manager{
		api:       client,
		who:       who,
		processor: processor,
		cards:     cards,
		notices:   notices,
		log:       log,
		opts:      opts,
		mutations: semaphore.NewWeighted(1),
		bus:       event.NewBus[Event](),
	}
}

// Subscribe returns a channel of cart and checkout events and a cancel func
func (m *Manager) Subscribe() (<-chan Event, func()) {
	return m.bus.Subscribe()
}

// Snapshot returns the last cart received and whether it is fresh. A stale
// snapshot is what was shown before the last failed load.
func (m *Manager) Snapshot() (*api.Cart, bool) {
	m.syncOwner()

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot, m.fresh
}

// Reset drops the snapshot. The next Load fetches the cart of whoever is
// logged in by then.
func (m *Manager) Reset() {
	owner := m.currentOwner()

	m.mu.Lock()
	m.owner = owner
	m.generation++
	m.snapshot = nil
	m.fresh = false
	m.mu.Unlock()

	m.bus.Publish(Event{Type: EventCartUpdated})
}

// Load fetches the cart and replaces the whole snapshot. Concurrent calls
// share one request. Pending finalizations are retried first.
func (m *Manager) Load(ctx context.Context) (*api.Cart, error) {
	owner, gen := m.syncOwner()

	v, err, _ := m.loads.Do(fmt.Sprintf("cart:%d", owner), func() (interface{}, error) {
		m.Reconcile(ctx)

		c, err := m.api.Cart(ctx)
		if err != nil {
			m.mu.Lock()
			if m.generation == gen {
				m.fresh = false
			}
			m.mu.Unlock()
			m.log.WithError(err).Warn("failed to load cart")
			return nil, fmt.Errorf("%w: %w", ErrStale, err)
		}

		m.mu.Lock()
		if m.generation != gen {
			m.mu.Unlock()
			return nil, fmt.Errorf("%w: %w", ErrStale, errOwnerChanged)
		}
		m.snapshot = c
		m.fresh = true
		m.mu.Unlock()

		m.bus.Publish(Event{Type: EventCartUpdated, Cart: c})
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*api.Cart), nil
}

// Add puts quantity units of a product in the cart. Adding a product that is
// already there grows its line.
func (m *Manager) Add(ctx context.Context, productID uint, quantity int) error {
	return m.mutate(ctx, "Failed to add to cart", func(ctx context.Context) error {
		return m.api.AddToCart(ctx, productID, quantity)
	})
}

// SetQuantity sends an absolute quantity, clamped to at least one
func (m *Manager) SetQuantity(ctx context.Context, productID uint, quantity int) error {
	return m.mutate(ctx, "Failed to update cart", func(ctx context.Context) error {
		return m.api.UpdateCartItem(ctx, productID, ClampQuantity(quantity))
	})
}

// Increment raises a line by one
func (m *Manager) Increment(ctx context.Context, productID uint) error {
	return m.mutate(ctx, "Failed to update cart", func(ctx context.Context) error {
		item, ok := m.line(productID)
		if !ok {
			return fmt.Errorf("product %d: %w", productID, errNotInSnapshot)
		}
		return m.api.UpdateCartItem(ctx, productID, item.Quantity+1)
	})
}

// Decrement lowers a line by one. A line at one stays at one and no request is made.
func (m *Manager) Decrement(ctx context.Context, productID uint) error {
	return m.mutate(ctx, "Failed to update cart", func(ctx context.Context) error {
		item, ok := m.line(productID)
		if !ok {
			return fmt.Errorf("product %d: %w", productID, errNotInSnapshot)
		}
		if item.Quantity <= 1 {
			return errNoChange
		}
		return m.api.UpdateCartItem(ctx, productID, ClampQuantity(item.Quantity-1))
	})
}

// Remove drops a line
func (m *Manager) Remove(ctx context.Context, productID uint) error {
	return m.mutate(ctx, "Failed to remove item", func(ctx context.Context) error {
		return m.api.RemoveFromCart(ctx, productID)
	})
}

// ClampQuantity raises anything below one to one
func ClampQuantity(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

var (
	errNotInSnapshot = errors.New("item not in cart")
	errNoChange      = errors.New("no change")
	errOwnerChanged  = errors.New("logged in user changed during load")
)

// mutate runs call in the next mutation slot, then re-syncs the snapshot
func (m *Manager) mutate(ctx context.Context, fallback string, call func(context.Context) error) error {
	if err := m.mutations.Acquire(ctx, 1); err != nil {
		return err
	}
	defer m.mutations.Release(1)
	m.syncOwner()

	if err := call(ctx); err != nil {
		if errors.Is(err, errNoChange) {
			return nil
		}
		if errors.Is(err, errNotInSnapshot) {
			m.notices.Danger("Item not in cart")
			return err
		}
		m.log.WithError(err).Warn("cart mutation failed")
		m.notices.Danger(api.Message(err, fallback))
		return err
	}

	_, err := m.Load(ctx)
	return err
}

func (m *Manager) line(productID uint) (api.CartItem, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot.Item(productID)
}

func (m *Manager) currentOwner() uint {
	if m.who == nil {
		return 0
	}
	if u, ok := m.who.Current(); ok {
		return u.ID
	}
	return 0
}

// syncOwner drops the snapshot when the logged in user is no longer the one
// it was loaded for. It returns the owner and the snapshot generation.
func (m *Manager) syncOwner() (uint, uint64) {
	owner := m.currentOwner()

	m.mu.Lock()
	defer m.mu.Unlock()
	if owner != m.owner {
		m.log.WithFields(logrus.Fields{"from": m.owner, "to": owner}).Debug("cart owner changed, dropping snapshot")
		m.owner = owner
		m.generation++
		m.snapshot = nil
		m.fresh = false
	}
	return m.owner, m.generation
}
