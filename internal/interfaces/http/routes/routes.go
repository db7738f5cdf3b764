// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront/internal/interfaces/http/handlers"
	"github.com/your-org/storefront/internal/interfaces/http/middleware"
)

// Handlers bundles every endpoint handler the API exposes
type Handlers struct {
	Auth     *handlers.AuthHandler
	Product  *handlers.ProductHandler
	Cart     *handlers.CartHandler
	Payment  *handlers.PaymentHandler
	Checkout *handlers.CheckoutHandler
	Order    *handlers.OrderHandler
}

// Options controls how routes are guarded
type Options struct {
	Sessions   middleware.SessionResolver
	CookieName string
	// Sandbox exposes the sandbox confirm endpoint
	Sandbox bool
}

// SetupRoutes registers all /api routes on rg
func SetupRoutes(rg *gin.RouterGroup, h *Handlers, opts Options) {
	requireSession := middleware.RequireSession(opts.Sessions, opts.CookieName)
	optionalSession := middleware.OptionalSession(opts.Sessions, opts.CookieName)
	requireAdmin := middleware.RequireAdmin()

	SetupAuthRoutes(rg, h.Auth, requireSession, optionalSession)
	SetupProductRoutes(rg, h.Product, requireSession, requireAdmin)
	SetupCartRoutes(rg, h.Cart, h.Checkout, requireSession)
	SetupPaymentRoutes(rg, h.Payment, requireSession, opts.Sandbox)
	SetupOrderRoutes(rg, h.Order, requireSession, requireAdmin)
}

// SetupAuthRoutes sets up authentication related routes
func SetupAuthRoutes(rg *gin.RouterGroup, authHandler *handlers.AuthHandler, requireSession, optionalSession gin.HandlerFunc) {
	auth := rg.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/logout", requireSession, authHandler.Logout)
		auth.GET("/user", optionalSession, authHandler.SessionUser)
	}

	rg.GET("/current_user", optionalSession, authHandler.CurrentUser)
}

// SetupProductRoutes sets up catalog routes. Browsing requires a session,
// changes require an admin.
func SetupProductRoutes(rg *gin.RouterGroup, productHandler *handlers.ProductHandler, requireSession, requireAdmin gin.HandlerFunc) {
	products := rg.Group("/products")
	products.Use(requireSession)
	{
		products.GET("", productHandler.GetProducts)
		products.GET("/:id", productHandler.GetProduct)

		admin := products.Group("")
		admin.Use(requireAdmin)
		{
			admin.POST("", productHandler.CreateProduct)
			admin.PUT("/:id", productHandler.UpdateProduct)
			admin.DELETE("/:id", productHandler.DeleteProduct)
		}
	}

	rg.GET("/admin/products", requireSession, requireAdmin, productHandler.AdminGetProducts)
}

// SetupCartRoutes sets up cart and checkout routes
func SetupCartRoutes(rg *gin.RouterGroup, cartHandler *handlers.CartHandler, checkoutHandler *handlers.CheckoutHandler, requireSession gin.HandlerFunc) {
	cart := rg.Group("/cart")
	cart.Use(requireSession)
	{
		cart.GET("", cartHandler.GetCart)
		cart.GET("/count", cartHandler.GetCartCount)
		cart.POST("/add/:productId", cartHandler.AddToCart)
		cart.POST("/update/:productId", cartHandler.UpdateCartItem)
		cart.POST("/remove/:productId", cartHandler.RemoveFromCart)
		cart.POST("/checkout", checkoutHandler.Checkout)
	}
}

// SetupPaymentRoutes sets up payment intent routes
func SetupPaymentRoutes(rg *gin.RouterGroup, paymentHandler *handlers.PaymentHandler, requireSession gin.HandlerFunc, sandbox bool) {
	rg.POST("/create-payment-intent", requireSession, paymentHandler.CreatePaymentIntent)

	if sandbox {
		rg.POST("/sandbox/confirm", paymentHandler.SandboxConfirm)
	}
}

// SetupOrderRoutes sets up order history and admin order routes
func SetupOrderRoutes(rg *gin.RouterGroup, orderHandler *handlers.OrderHandler, requireSession, requireAdmin gin.HandlerFunc) {
	rg.GET("/orders", requireSession, orderHandler.GetOrders)

	admin := rg.Group("/admin/orders")
	admin.Use(requireSession, requireAdmin)
	{
		admin.GET("", orderHandler.AdminGetOrders)
		admin.PUT("/:id", orderHandler.AdminUpdateOrderStatus)
	}
}
