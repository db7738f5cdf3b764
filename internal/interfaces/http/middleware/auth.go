// internal/interfaces/http/middleware/auth.go
package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront/internal/pkg/auth"
)

const (
	ctxUserID   = "user_id"
	ctxUsername = "username"
	ctxEmail    = "user_email"
	ctxIsAdmin  = "is_admin"
	ctxClaims   = "token_claims"
	ctxToken    = "session_token"
)

// SessionResolver turns a session token into live claims
type SessionResolver interface {
	ResolveSession(ctx context.Context, token string) (*auth.Claims, error)
}

// RequireSession rejects requests without a live session
func RequireSession(resolver SessionResolver, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !attachSession(c, resolver, cookieName) {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// OptionalSession attaches the identity when a live session is present
func OptionalSession(resolver SessionResolver, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		attachSession(c, resolver, cookieName)
		c.Next()
	}
}

// RequireAdmin ensures the session belongs to an admin. Must run after RequireSession.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := GetUserIDFromContext(c); !exists {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
			})
			c.Abort()
			return
		}

		if !IsAdminFromContext(c) {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Admin access required",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// SessionToken reads the session token from the cookie, falling back to a
// bearer Authorization header
func SessionToken(c *gin.Context, cookieName string) string {
	if token, err := c.Cookie(cookieName); err == nil && token != "" {
		return token
	}
	return auth.ExtractTokenFromHeader(c.GetHeader("Authorization"))
}

func attachSession(c *gin.Context, resolver SessionResolver, cookieName string) bool {
	token := SessionToken(c, cookieName)
	if token == "" {
		return false
	}

	claims, err := resolver.ResolveSession(c.Request.Context(), token)
	if err != nil {
		return false
	}

	c.Set(ctxUserID, claims.UserID)
	c.Set(ctxUsername, claims.Username)
	c.Set(ctxEmail, claims.Email)
	c.Set(ctxIsAdmin, claims.IsAdmin)
	c.Set(ctxClaims, claims)
	c.Set(ctxToken, token)
	return true
}

// GetUserIDFromContext extracts user ID from gin context
func GetUserIDFromContext(c *gin.Context) (uint, bool) {
	userID, exists := c.Get(ctxUserID)
	if !exists {
		return 0, false
	}
	return userID.(uint), true
}

// GetClaimsFromContext returns the session claims attached by the session middleware
func GetClaimsFromContext(c *gin.Context) (*auth.Claims, bool) {
	claims, exists := c.Get(ctxClaims)
	if !exists {
		return nil, false
	}
	return claims.(*auth.Claims), true
}

// IsAdminFromContext checks if user is admin from gin context
func IsAdminFromContext(c *gin.Context) bool {
	isAdmin, exists := c.Get(ctxIsAdmin)
	if !exists {
		return false
	}
	return isAdmin.(bool)
}
