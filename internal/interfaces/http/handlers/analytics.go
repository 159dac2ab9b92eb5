// internal/interfaces/http/handlers/analytics.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/analytics"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"gorm.io/gorm"
)

// AnalyticsHandler handles the abandonment ingestion endpoint and the
// admin analytics surface.
type AnalyticsHandler struct {
	analyticsService *analytics.Service
	config           *config.Config
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(db *gorm.DB, cfg *config.Config) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyticsService: analytics.NewService(db, cfg),
		config:           cfg,
	}
}

// IngestAbandonment handles POST /analytics/abandoned-carts. The cart
// engine posts reports here when an inactivity timer fires.
func (h *AnalyticsHandler) IngestAbandonment(c *gin.Context) {
	var report cart.Report
	if err := c.ShouldBindJSON(&report); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid report payload",
			"details": err.Error(),
		})
		return
	}

	record, err := h.analyticsService.IngestAbandonment(&report)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Abandonment report recorded",
		"data": gin.H{
			"id": record.ID,
		},
	})
}

// GetAbandonedCarts handles GET /admin/analytics/abandoned-carts
func (h *AnalyticsHandler) GetAbandonedCarts(c *gin.Context) {
	var req analytics.AbandonedCartListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid query parameters",
			"details": err.Error(),
		})
		return
	}

	response, err := h.analyticsService.GetAbandonedCarts(&req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve abandoned carts",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Abandoned carts retrieved successfully",
		"data":    response,
	})
}

// GetAbandonedCart handles GET /admin/analytics/abandoned-carts/:id
func (h *AnalyticsHandler) GetAbandonedCart(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid abandoned cart ID",
		})
		return
	}

	record, lines, err := h.analyticsService.GetAbandonedCart(uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Abandoned cart retrieved successfully",
		"data": gin.H{
			"cart":  record,
			"items": lines,
		},
	})
}

// GetAbandonmentStats handles GET /admin/analytics/abandonment
func (h *AnalyticsHandler) GetAbandonmentStats(c *gin.Context) {
	stats, err := h.analyticsService.GetAbandonmentStats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve abandonment statistics",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Abandonment statistics retrieved successfully",
		"data":    stats,
	})
}

// GetDashboard handles GET /admin/analytics/dashboard
func (h *AnalyticsHandler) GetDashboard(c *gin.Context) {
	stats, err := h.analyticsService.GetDashboardStats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve dashboard statistics",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Dashboard statistics retrieved successfully",
		"data":    stats,
	})
}
