// internal/storefront/session/context.go
package session

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/storefront/api"
	"github.com/your-org/storefront/internal/storefront/event"
	"github.com/your-org/storefront/internal/storefront/notice"
)

// API is the part of the Commerce API the session needs
type API interface {
	CurrentUser(ctx context.Context) (*api.User, error)
	Login(ctx context.Context, email, password string) (*api.User, error)
	Logout(ctx context.Context) error
	Register(ctx context.Context, req api.RegisterRequest) error
}

// Change is published whenever the identity changes. A nil User means the
// shopper is now anonymous.
type Change struct {
	User *api.User
}

// Context knows who is logged in. Route guards, the navigation bar and the
// cart read it; only its own operations write it.
type Context struct {
	api     API
	notices *notice.Board
	log     *logrus.Logger
	bus     *event.Bus[Change]

	mu   sync.RWMutex
	user *api.User
}

// NewContext creates an anonymous session context
func NewContext(client API, notices *notice.Board, log *logrus.Logger) *Context {
	return &Context{
		api:     client,
		notices: notices,
		log:     log,
		bus:     event.NewBus[Change](),
	}
}

// Current returns the logged in user
func (s *Context) Current() (*api.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.user == nil {
		return nil, false
	}
	u := *s.user
	return &u, true
}

// LoggedIn reports whether a user is known
func (s *Context) LoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

// IsAdmin reports whether the current user is an administrator
func (s *Context) IsAdmin() bool {
	u, ok := s.Current()
	return ok && u.IsAdmin
}

// Subscribe returns a channel of identity changes and a cancel func
func (s *Context) Subscribe() (<-chan Change, func()) {
	return s.bus.Subscribe()
}

// Refresh asks the server who the session belongs to. An anonymous session is
// not an error.
func (s *Context) Refresh(ctx context.Context) error {
	u, err := s.api.CurrentUser(ctx)
	if err != nil {
		s.log.WithError(err).Warn("failed to refresh session")
		return err
	}
	s.set(u)
	return nil
}

// Login opens a session. On failure the identity is left untouched and the
// server's message is raised as a notice.
func (s *Context) Login(ctx context.Context, email, password string) error {
	u, err := s.api.Login(ctx, email, password)
	if err != nil {
		s.notices.Danger(api.Message(err, "Login failed"))
		return err
	}

	s.set(u)
	s.notices.Success("Welcome back, " + u.Username + "!")
	return nil
}

// Logout ends the session. The local identity is cleared even when the server
// call fails.
func (s *Context) Logout(ctx context.Context) {
	if err := s.api.Logout(ctx); err != nil {
		s.log.WithError(err).Warn("server logout failed, clearing local session anyway")
	}
	s.set(nil)
}

// Register creates an account. It does not log the new user in.
func (s *Context) Register(ctx context.Context, req api.RegisterRequest) error {
	if err := s.api.Register(ctx, req); err != nil {
		s.notices.Danger(api.Message(err, "Registration failed"))
		return err
	}
	s.notices.Success("Account created successfully. Please log in.")
	return nil
}

func (s *Context) set(u *api.User) {
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()

	var published *api.User
	if u != nil {
		cp := *u
		published = &cp
	}
	s.bus.Publish(Change{User: published})
}
