// internal/interfaces/http/handlers/auth.go
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/domain/user"
	"github.com/your-org/storefront/internal/interfaces/http/middleware"
	"github.com/your-org/storefront/internal/pkg/auth"
)

// UserService is the part of user.Service the auth endpoints need
type UserService interface {
	Register(req *user.RegisterRequest) (*user.User, error)
	Login(ctx context.Context, req *user.LoginRequest) (*user.Session, error)
	Logout(ctx context.Context, claims *auth.Claims) error
	GetByID(userID uint) (*user.User, error)
}

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	users      UserService
	cookieName string
	secure     bool
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(users UserService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		users:      users,
		cookieName: cfg.Session.CookieName,
		secure:     cfg.Session.Secure,
	}
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req user.RegisterRequest
	if c.Request.ContentLength == 0 || c.ShouldBindJSON(&req) != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "No input data provided",
		})
		return
	}

	u, err := h.users.Register(&req)
	if err != nil {
		respondError(c, err, "Registration failed")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Account created successfully",
		"user":    u.Identity(),
	})
}

// Login handles POST /api/auth/login and sets the session cookie
func (h *AuthHandler) Login(c *gin.Context) {
	var req user.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "No input data provided",
		})
		return
	}

	session, err := h.users.Login(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "Login failed")
		return
	}

	maxAge := int(time.Until(session.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookieName, session.Token, maxAge, "/", "", h.secure, true)

	c.JSON(http.StatusOK, gin.H{
		"message":  "Login successful",
		"id":       session.User.ID,
		"username": session.User.Username,
		"email":    session.User.Email,
		"is_admin": session.User.IsAdmin,
	})
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, _ := middleware.GetClaimsFromContext(c)

	// The cookie goes either way; a failed revoke only leaves the token to expire.
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookieName, "", -1, "/", "", h.secure, true)

	if err := h.users.Logout(c.Request.Context(), claims); err != nil {
		respondError(c, err, "Logout failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out successfully",
	})
}

// SessionUser handles GET /api/auth/user. Anonymous callers get {"user": null}.
func (h *AuthHandler) SessionUser(c *gin.Context) {
	identity, err := h.identity(c)
	if err != nil {
		respondError(c, err, "Failed to load user")
		return
	}

	if identity == nil {
		c.JSON(http.StatusOK, gin.H{"user": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": identity})
}

// CurrentUser handles GET /api/current_user
func (h *AuthHandler) CurrentUser(c *gin.Context) {
	identity, err := h.identity(c)
	if err != nil {
		respondError(c, err, "Failed to load user")
		return
	}

	if identity == nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Not logged in",
		})
		return
	}
	c.JSON(http.StatusOK, identity)
}

// identity loads the caller's account fresh from the store; nil means no session
func (h *AuthHandler) identity(c *gin.Context) (*user.Identity, error) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return nil, nil
	}

	u, err := h.users.GetByID(userID)
	if errors.Is(err, user.ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	identity := u.Identity()
	return &identity, nil
}
