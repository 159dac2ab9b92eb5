// internal/interfaces/http/handlers/checkout.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/analytics"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/checkout"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
	"gorm.io/gorm"
)

// CheckoutHandler handles checkout endpoints. Guests check out against
// their cart session; authenticated users get the order attached to
// their account.
type CheckoutHandler struct {
	checkoutService  *checkout.Service
	analyticsService *analytics.Service
	config           *config.Config
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(db *gorm.DB, cartService *cart.Service, cfg *config.Config) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService:  checkout.NewService(db, cfg, cartService),
		analyticsService: analytics.NewService(db, cfg),
		config:           cfg,
	}
}

// PlaceOrder handles POST /checkout
func (h *CheckoutHandler) PlaceOrder(c *gin.Context) {
	sessionID, err := c.Cookie(sessionCookieName)
	if err != nil || sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "No cart session found",
		})
		return
	}

	var req checkout.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	var userIDPtr *uint
	if userID, exists := middleware.GetUserIDFromContext(c); exists {
		userIDPtr = &userID
	}

	placedOrder, err := h.checkoutService.PlaceOrder(userIDPtr, sessionID, &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	// An order from a previously abandoned session counts as recovered.
	// Recovery tracking is best-effort and never blocks the order.
	_ = h.analyticsService.MarkRecovered(sessionID)

	c.JSON(http.StatusCreated, gin.H{
		"message": "Order placed successfully",
		"data":    placedOrder,
	})
}
