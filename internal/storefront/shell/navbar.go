// internal/storefront/shell/navbar.go
package shell

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/storefront/api"
	"github.com/your-org/storefront/internal/storefront/cart"
	"github.com/your-org/storefront/internal/storefront/session"
)

// CountAPI fetches the cart badge count
type CountAPI interface {
	CartCount(ctx context.Context) (int, error)
}

// Identity is the session as the navigation bar sees it
type Identity interface {
	Current() (*api.User, bool)
	Subscribe() (<-chan session.Change, func())
}

// CartEvents is the cart as the navigation bar sees it
type CartEvents interface {
	Subscribe() (<-chan cart.Event, func())
}

// NavBar shows who is logged in and how many items are in the cart
type NavBar struct {
	api  CountAPI
	who  Identity
	cart CartEvents
	log  *logrus.Logger

	mu    sync.RWMutex
	count int
}

// NewNavBar creates a navigation bar. Call Start to follow changes.
func NewNavBar(client CountAPI, who Identity, carts CartEvents, log *logrus.Logger) *NavBar {
	return &NavBar{api: client, who: who, cart: carts, log: log}
}

// Start subscribes to cart and session changes until ctx is done
func (n *NavBar) Start(ctx context.Context) {
	cartEvents, cancelCart := n.cart.Subscribe()
	changes, cancelSession := n.who.Subscribe()

	go func() {
		defer cancelCart()
		defer cancelSession()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-cartEvents:
				if !ok {
					return
				}
				if ev.Type == cart.EventCartUpdated {
					n.Refresh(ctx)
				}
			case ch, ok := <-changes:
				if !ok {
					return
				}
				if ch.User == nil {
					n.setCount(0)
					continue
				}
				n.Refresh(ctx)
			}
		}
	}()
}

// Refresh re-fetches the cart count. Anonymous visitors and failed fetches show zero.
func (n *NavBar) Refresh(ctx context.Context) {
	if _, ok := n.who.Current(); !ok {
		n.setCount(0)
		return
	}

	count, err := n.api.CartCount(ctx)
	if err != nil {
		n.log.WithError(err).Debug("failed to fetch cart count")
		count = 0
	}
	n.setCount(count)
}

// Count returns the badge count
func (n *NavBar) Count() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.count
}

// Render draws the bar as one line
func (n *NavBar) Render() string {
	links := []string{"[home]", "[products]", fmt.Sprintf("[cart (%d)]", n.Count())}

	u, ok := n.who.Current()
	if !ok {
		links = append(links, "[login]", "[register]")
		return strings.Join(links, " ")
	}

	links = append(links, "[orders]")
	if u.IsAdmin {
		links = append(links, "[admin/products]", "[admin/orders]")
	}
	return strings.Join(links, " ") + " | " + u.Username + " [logout]"
}

func (n *NavBar) setCount(c int) {
	n.mu.Lock()
	n.count = c
	n.mu.Unlock()
}
