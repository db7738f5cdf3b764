// internal/storefront/shell/router.go
package shell

import (
	"fmt"
	"sync"
)

// View is a screen of the shop
type View string

const (
	ViewHome          View = "home"
	ViewLogin         View = "login"
	ViewRegister      View = "register"
	ViewProducts      View = "products"
	ViewCart          View = "cart"
	ViewOrders        View = "orders"
	ViewAdminProducts View = "admin/products"
	ViewAdminOrders   View = "admin/orders"
)

// views maps every known view to whether it needs a session
var views = map[View]bool{
	ViewHome:          false,
	ViewLogin:         false,
	ViewRegister:      false,
	ViewProducts:      true,
	ViewCart:          false,
	ViewOrders:        true,
	ViewAdminProducts: false,
	ViewAdminOrders:   false,
}

// SessionReader answers whether someone is logged in
type SessionReader interface {
	LoggedIn() bool
}

// Router tracks the current view and sends anonymous visitors of guarded
// views to the login view
type Router struct {
	who SessionReader

	mu      sync.Mutex
	current View
}

// NewRouter starts at the home view
func NewRouter(who SessionReader) *Router {
	return &Router{who: who, current: ViewHome}
}

// Go navigates to name and returns the view actually shown. The boolean is
// false when a guard redirected to login.
func (r *Router) Go(name string) (View, bool, error) {
	v := View(name)
	guarded, known := views[v]
	if !known {
		return r.Current(), false, fmt.Errorf("unknown view %q", name)
	}

	allowed := !guarded || r.who.LoggedIn()
	if !allowed {
		v = ViewLogin
	}

	r.mu.Lock()
	r.current = v
	r.mu.Unlock()
	return v, allowed, nil
}

// Current returns the view on screen
func (r *Router) Current() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}
