// internal/interfaces/http/middleware/cors.go
package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront/internal/config"
)

// CORS lets the configured browser origins call the API with credentials,
// since the session travels in a cookie
func CORS(sec config.SecurityConfig) gin.HandlerFunc {
	methods := strings.Join(sec.CORSAllowedMethods, ", ")
	headers := strings.Join(sec.CORSAllowedHeaders, ", ")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		c.Writer.Header().Add("Vary", "Origin")

		if origin != "" && originAllowed(origin, sec.CORSAllowedOrigins) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", methods)
			c.Header("Access-Control-Allow-Headers", headers)
			c.Header("Access-Control-Max-Age", "86400")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// originAllowed matches exact origins, "*" and "*.example.com" host wildcards
func originAllowed(origin string, allowed []string) bool {
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
		if strings.HasPrefix(a, "*.") {
			u, err := url.Parse(origin)
			if err != nil {
				continue
			}
			if strings.HasSuffix(u.Hostname(), a[1:]) {
				return true
			}
		}
	}
	return false
}
