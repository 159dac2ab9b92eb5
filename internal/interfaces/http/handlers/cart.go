// internal/interfaces/http/handlers/cart.go
package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
	"gorm.io/gorm"
)

const sessionCookieName = "cart_session"

// CartHandler handles cart endpoints. Each request resolves the
// session's store through the registry; line snapshots are built from
// the catalog at add-time so carts never trust client-supplied prices.
type CartHandler struct {
	cartService    *cart.Service
	productService *product.Service
	config         *config.Config
}

// NewCartHandler creates a new cart handler
func NewCartHandler(db *gorm.DB, cartService *cart.Service, cfg *config.Config) *CartHandler {
	return &CartHandler{
		cartService:    cartService,
		productService: product.NewService(db, cfg),
		config:         cfg,
	}
}

// AddToCartRequest represents an add-to-cart request
type AddToCartRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
}

// UpdateCartItemRequest represents a quantity update request
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

// GetCart handles GET /cart
func (h *CartHandler) GetCart(c *gin.Context) {
	store := h.resolveStore(c)

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart retrieved successfully",
		"data":    store.Snapshot(),
	})
}

// AddToCart handles POST /cart/items. Adding an item already in the
// cart bumps its quantity by one.
func (h *CartHandler) AddToCart(c *gin.Context) {
	store := h.resolveStore(c)

	var req AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	p, err := h.productService.GetProduct(req.ProductID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Product not found",
		})
		return
	}
	if !p.IsActive {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Product '%s' is no longer available", p.Name),
		})
		return
	}

	state := store.Add(cart.Line{
		ID:    strconv.FormatUint(uint64(p.ID), 10),
		Name:  p.Name,
		Image: p.Image,
		Slug:  p.Slug,
		Price: p.Price,
	})

	c.JSON(http.StatusOK, gin.H{
		"message": "Item added to cart successfully",
		"data":    state,
	})
}

// UpdateCartItem handles PUT /cart/items/:id. Quantity zero or below
// removes the line.
func (h *CartHandler) UpdateCartItem(c *gin.Context) {
	store := h.resolveStore(c)

	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	state := store.SetQuantity(c.Param("id"), req.Quantity)

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart item updated successfully",
		"data":    state,
	})
}

// RemoveFromCart handles DELETE /cart/items/:id
func (h *CartHandler) RemoveFromCart(c *gin.Context) {
	store := h.resolveStore(c)
	state := store.Remove(c.Param("id"))

	c.JSON(http.StatusOK, gin.H{
		"message": "Item removed from cart successfully",
		"data":    state,
	})
}

// ClearCart handles DELETE /cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	store := h.resolveStore(c)
	state := store.Clear()

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart cleared successfully",
		"data":    state,
	})
}

// GetCartCount handles GET /cart/count
func (h *CartHandler) GetCartCount(c *gin.Context) {
	store := h.resolveStore(c)
	snapshot := store.Snapshot()

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart count retrieved successfully",
		"data": gin.H{
			"count": snapshot.ItemCount,
		},
	})
}

// Pulse handles POST /cart/pulse. Browsing activity resets the
// abandonment clock without touching cart contents.
func (h *CartHandler) Pulse(c *gin.Context) {
	store := h.resolveStore(c)
	store.Pulse()

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart activity recorded",
	})
}

// AttachUser handles POST /cart/attach - called when a user logs in so
// the cart and its abandonment reports carry the account identity.
func (h *CartHandler) AttachUser(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return
	}

	store := h.resolveStore(c)
	state := store.SetUserID(strconv.FormatUint(uint64(userID), 10))

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart attached to user successfully",
		"data":    state,
	})
}

// resolveStore returns the cart store for this request's session,
// minting a session cookie on first contact.
func (h *CartHandler) resolveStore(c *gin.Context) *cart.Store {
	sessionID, err := c.Cookie(sessionCookieName)
	if err != nil {
		sessionID = ""
	}

	store := h.cartService.Store(sessionID)

	if store.SessionID() != sessionID {
		// New session; cookie lifetime follows the persistence TTL
		maxAge := int(h.config.Cart.PersistTTL.Seconds())
		c.SetCookie(sessionCookieName, store.SessionID(), maxAge, "/", "", false, true)
	}

	store.SetClientContext(c.Request.UserAgent(), c.Request.Referer())
	return store
}
