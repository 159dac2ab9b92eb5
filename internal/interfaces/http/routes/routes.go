// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/interfaces/http/handlers"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
	"gorm.io/gorm"
)

// SetupRoutes wires every API route group. The cart service is shared
// across handlers so all of them resolve the same per-session stores.
func SetupRoutes(rg *gin.RouterGroup, db *gorm.DB, cartService *cart.Service, cfg *config.Config) {
	SetupAuthRoutes(rg, db, cfg)
	SetupCatalogRoutes(rg, db, cfg)
	SetupCartRoutes(rg, db, cartService, cfg)
	SetupOrderRoutes(rg, db, cartService, cfg)
	SetupAnalyticsRoutes(rg, db, cfg)
	SetupAdminRoutes(rg, db, cfg)
}

// SetupAuthRoutes sets up authentication related routes
func SetupAuthRoutes(rg *gin.RouterGroup, db *gorm.DB, cfg *config.Config) {
	authHandler := handlers.NewAuthHandler(db, cfg)

	auth := rg.Group("/auth")
	{
		// Public auth endpoints
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.RefreshToken)

		// Protected auth endpoints
		protected := auth.Group("")
		protected.Use(middleware.AuthMiddleware(cfg))
		{
			protected.POST("/logout", authHandler.Logout)
			protected.GET("/me", authHandler.GetCurrentUser)
			protected.GET("/validate", authHandler.ValidateToken)
			protected.GET("/profile", authHandler.GetProfile)
			protected.PUT("/profile", authHandler.UpdateProfile)
			protected.PUT("/password", authHandler.ChangePassword)
		}
	}
}

// SetupCatalogRoutes sets up product and category browsing routes
func SetupCatalogRoutes(rg *gin.RouterGroup, db *gorm.DB, cfg *config.Config) {
	productHandler := handlers.NewProductHandler(db, cfg)
	categoryHandler := handlers.NewCategoryHandler(db, cfg)

	products := rg.Group("/products")
	products.Use(middleware.OptionalAuthMiddleware(cfg))
	{
		products.GET("", productHandler.GetProducts)
		products.GET("/search", productHandler.SearchProducts)
		products.GET("/slug/:slug", productHandler.GetProductBySlug)
		products.GET("/:id", productHandler.GetProduct)
	}

	categories := rg.Group("/categories")
	categories.Use(middleware.OptionalAuthMiddleware(cfg))
	{
		categories.GET("", categoryHandler.GetCategories)
		categories.GET("/tree", categoryHandler.GetCategoryTree)
		categories.GET("/slug/:slug", categoryHandler.GetCategoryBySlug)
		categories.GET("/:id", categoryHandler.GetCategory)
	}
}

// SetupCartRoutes sets up cart routes. Carts work for guests through
// the session cookie; authentication only attaches a user identity.
func SetupCartRoutes(rg *gin.RouterGroup, db *gorm.DB, cartService *cart.Service, cfg *config.Config) {
	cartHandler := handlers.NewCartHandler(db, cartService, cfg)

	cartGroup := rg.Group("/cart")
	cartGroup.Use(middleware.OptionalAuthMiddleware(cfg))
	{
		cartGroup.GET("", cartHandler.GetCart)
		cartGroup.GET("/count", cartHandler.GetCartCount)
		cartGroup.POST("/items", cartHandler.AddToCart)
		cartGroup.PUT("/items/:id", cartHandler.UpdateCartItem)
		cartGroup.DELETE("/items/:id", cartHandler.RemoveFromCart)
		cartGroup.DELETE("", cartHandler.ClearCart)
		cartGroup.POST("/pulse", cartHandler.Pulse)
		cartGroup.POST("/attach", middleware.AuthMiddleware(cfg), cartHandler.AttachUser)
	}
}

// SetupOrderRoutes sets up checkout, order and invoice routes
func SetupOrderRoutes(rg *gin.RouterGroup, db *gorm.DB, cartService *cart.Service, cfg *config.Config) {
	checkoutHandler := handlers.NewCheckoutHandler(db, cartService, cfg)
	orderHandler := handlers.NewOrderHandler(db, cfg)
	invoiceHandler := handlers.NewInvoiceHandler(db, cfg)

	// Guest checkout is allowed; the cart session cookie identifies the cart
	checkoutGroup := rg.Group("/checkout")
	checkoutGroup.Use(middleware.OptionalAuthMiddleware(cfg))
	{
		checkoutGroup.POST("", checkoutHandler.PlaceOrder)
	}

	orders := rg.Group("/orders")
	orders.Use(middleware.AuthMiddleware(cfg))
	{
		orders.GET("", orderHandler.GetOrders)
		orders.GET("/number/:orderNumber", orderHandler.GetOrderByNumber)
		orders.GET("/:id", orderHandler.GetOrder)
		orders.GET("/:id/track", orderHandler.TrackOrder)
		orders.GET("/:id/invoice", invoiceHandler.GenerateInvoice)
		orders.GET("/:id/invoice/data", invoiceHandler.GetInvoiceData)
		orders.PUT("/:id/cancel", orderHandler.CancelOrder)
	}
}

// SetupAnalyticsRoutes sets up the public abandonment ingestion endpoint
func SetupAnalyticsRoutes(rg *gin.RouterGroup, db *gorm.DB, cfg *config.Config) {
	analyticsHandler := handlers.NewAnalyticsHandler(db, cfg)

	analytics := rg.Group("/analytics")
	{
		// The cart engine posts abandonment reports here
		analytics.POST("/abandoned-carts", analyticsHandler.IngestAbandonment)
	}
}

// SetupAdminRoutes sets up admin related routes
func SetupAdminRoutes(rg *gin.RouterGroup, db *gorm.DB, cfg *config.Config) {
	productHandler := handlers.NewProductHandler(db, cfg)
	categoryHandler := handlers.NewCategoryHandler(db, cfg)
	orderHandler := handlers.NewOrderHandler(db, cfg)
	analyticsHandler := handlers.NewAnalyticsHandler(db, cfg)

	admin := rg.Group("/admin")
	admin.Use(middleware.AuthMiddleware(cfg)) // Require authentication
	admin.Use(middleware.AdminMiddleware())   // Require admin privileges
	{
		// Product management
		products := admin.Group("/products")
		{
			products.GET("", productHandler.AdminGetProducts)
			products.GET("/:id", productHandler.AdminGetProduct)
			products.POST("", productHandler.AdminCreateProduct)
			products.PUT("/:id", productHandler.AdminUpdateProduct)
			products.DELETE("/:id", productHandler.AdminDeleteProduct)
		}

		// Category management
		categories := admin.Group("/categories")
		{
			categories.GET("", categoryHandler.AdminGetCategories)
			categories.GET("/tree", categoryHandler.AdminGetCategoryTree)
			categories.GET("/:id", categoryHandler.AdminGetCategory)
			categories.POST("", categoryHandler.AdminCreateCategory)
			categories.PUT("/:id", categoryHandler.AdminUpdateCategory)
			categories.DELETE("/:id", categoryHandler.AdminDeleteCategory)
		}

		// Order management
		orders := admin.Group("/orders")
		{
			orders.GET("", orderHandler.AdminGetOrders)
			orders.GET("/:id", orderHandler.AdminGetOrder)
			orders.PUT("/:id/status", orderHandler.AdminUpdateOrderStatus)
			orders.PUT("/:id/cancel", orderHandler.AdminCancelOrder)
		}

		// Analytics
		analytics := admin.Group("/analytics")
		{
			analytics.GET("/dashboard", analyticsHandler.GetDashboard)
			analytics.GET("/abandonment", analyticsHandler.GetAbandonmentStats)
			analytics.GET("/abandoned-carts", analyticsHandler.GetAbandonedCarts)
			analytics.GET("/abandoned-carts/:id", analyticsHandler.GetAbandonedCart)
		}
	}
}
