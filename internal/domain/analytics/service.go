// internal/domain/analytics/service.go
package analytics

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"gorm.io/gorm"
)

// Service handles analytics business logic. Abandonment reports posted
// by the cart engine are ingested here; the admin dashboard reads from
// the same tables.
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new analytics service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// AbandonedCartListRequest represents abandoned cart list query parameters
type AbandonedCartListRequest struct {
	Page      int    `form:"page,default=1"`
	Limit     int    `form:"limit,default=20"`
	UserID    string `form:"user_id"`
	Recovered *bool  `form:"recovered"`
	DateFrom  string `form:"date_from"`
	DateTo    string `form:"date_to"`
}

// AbandonedCartResponse represents abandoned cart list with pagination
type AbandonedCartResponse struct {
	Carts      []AbandonedCart `json:"carts"`
	Pagination Pagination      `json:"pagination"`
}

// Pagination represents pagination information
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// AbandonmentStats represents aggregated abandonment metrics
type AbandonmentStats struct {
	TotalAbandoned  int64   `json:"total_abandoned"`
	AbandonedToday  int64   `json:"abandoned_today"`
	AbandonedValue  int64   `json:"abandoned_value"` // In cents
	RecoveredCarts  int64   `json:"recovered_carts"`
	RecoveryRate    float64 `json:"recovery_rate"` // Percentage
	AvgAbandonValue int64   `json:"avg_abandon_value"`
}

// DashboardStats represents overall storefront statistics
type DashboardStats struct {
	TotalRevenue   int64 `json:"total_revenue"` // In cents
	RevenueToday   int64 `json:"revenue_today"`
	TotalOrders    int64 `json:"total_orders"`
	OrdersToday    int64 `json:"orders_today"`
	AvgOrderValue  int64 `json:"avg_order_value"`
	TotalAbandoned int64 `json:"total_abandoned"`
	AbandonedValue int64 `json:"abandoned_value"`
}

// IngestAbandonment records one abandonment report from the cart engine.
// Repeated reports for the same session within the same minute are
// treated as duplicates and ignored.
func (s *Service) IngestAbandonment(report *cart.Report) (*AbandonedCart, error) {
	if report.SessionID == "" {
		return nil, fmt.Errorf("session_id is required")
	}

	itemsJSON, err := json.Marshal(report.Items)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cart items: %w", err)
	}

	itemCount := 0
	for _, line := range report.Items {
		itemCount += line.Quantity
	}

	abandonedAt := report.AbandonedAt
	if abandonedAt.IsZero() {
		abandonedAt = time.Now().UTC()
	}

	// Deduplicate retried deliveries
	var existing AbandonedCart
	window := abandonedAt.Add(-time.Minute)
	result := s.db.Where("session_id = ? AND abandoned_at > ?", report.SessionID, window).First(&existing)
	if result.Error == nil {
		return &existing, nil
	}

	record := AbandonedCart{
		SessionID:   report.SessionID,
		UserID:      report.UserID,
		ItemsJSON:   string(itemsJSON),
		Total:       report.Total,
		ItemCount:   itemCount,
		AbandonedAt: abandonedAt,
		UserAgent:   report.UserAgent,
		URL:         report.URL,
	}

	if err := s.db.Create(&record).Error; err != nil {
		return nil, fmt.Errorf("failed to record abandoned cart: %w", err)
	}

	return &record, nil
}

// GetAbandonedCarts retrieves abandonment records with filtering and pagination
func (s *Service) GetAbandonedCarts(req *AbandonedCartListRequest) (*AbandonedCartResponse, error) {
	var carts []AbandonedCart
	var total int64

	query := s.db.Model(&AbandonedCart{})

	if req.UserID != "" {
		query = query.Where("user_id = ?", req.UserID)
	}

	if req.Recovered != nil {
		query = query.Where("recovered = ?", *req.Recovered)
	}

	if req.DateFrom != "" {
		query = query.Where("abandoned_at >= ?", req.DateFrom)
	}

	if req.DateTo != "" {
		query = query.Where("abandoned_at <= ?", req.DateTo)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count abandoned carts: %w", err)
	}

	offset := (req.Page - 1) * req.Limit
	if err := query.Order("abandoned_at DESC").Offset(offset).Limit(req.Limit).Find(&carts).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve abandoned carts: %w", err)
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	pagination := Pagination{
		Page:       req.Page,
		Limit:      req.Limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    req.Page < totalPages,
		HasPrev:    req.Page > 1,
	}

	return &AbandonedCartResponse{
		Carts:      carts,
		Pagination: pagination,
	}, nil
}

// GetAbandonedCart retrieves a single abandonment record with decoded lines
func (s *Service) GetAbandonedCart(id uint) (*AbandonedCart, []cart.Line, error) {
	var record AbandonedCart
	result := s.db.Where("id = ?", id).First(&record)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil, fmt.Errorf("abandoned cart not found")
		}
		return nil, nil, fmt.Errorf("failed to retrieve abandoned cart: %w", result.Error)
	}

	var lines []cart.Line
	if err := json.Unmarshal([]byte(record.ItemsJSON), &lines); err != nil {
		// Old records may carry malformed payloads; return the record anyway
		lines = []cart.Line{}
	}

	return &record, lines, nil
}

// MarkRecovered flags an abandonment record as recovered, for example
// when the same session later places an order.
func (s *Service) MarkRecovered(sessionID string) error {
	now := time.Now().UTC()
	result := s.db.Model(&AbandonedCart{}).
		Where("session_id = ? AND recovered = ?", sessionID, false).
		Updates(map[string]interface{}{
			"recovered":    true,
			"recovered_at": now,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to mark cart as recovered: %w", result.Error)
	}
	return nil
}

// GetAbandonmentStats computes aggregated abandonment metrics
func (s *Service) GetAbandonmentStats() (*AbandonmentStats, error) {
	stats := &AbandonmentStats{}
	today := time.Now().UTC().Truncate(24 * time.Hour)

	if err := s.db.Model(&AbandonedCart{}).Count(&stats.TotalAbandoned).Error; err != nil {
		return nil, fmt.Errorf("failed to count abandoned carts: %w", err)
	}

	s.db.Model(&AbandonedCart{}).Where("abandoned_at >= ?", today).Count(&stats.AbandonedToday)
	s.db.Model(&AbandonedCart{}).Where("recovered = ?", true).Count(&stats.RecoveredCarts)
	s.db.Model(&AbandonedCart{}).Select("COALESCE(SUM(total), 0)").Scan(&stats.AbandonedValue)

	if stats.TotalAbandoned > 0 {
		stats.RecoveryRate = float64(stats.RecoveredCarts) * 100 / float64(stats.TotalAbandoned)
		stats.AvgAbandonValue = stats.AbandonedValue / stats.TotalAbandoned
	}

	return stats, nil
}

// GetDashboardStats computes overall storefront metrics for the admin
// dashboard.
func (s *Service) GetDashboardStats() (*DashboardStats, error) {
	stats := &DashboardStats{}
	today := time.Now().UTC().Truncate(24 * time.Hour)

	completedStatuses := []order.OrderStatus{
		order.OrderStatusConfirmed,
		order.OrderStatusProcessing,
		order.OrderStatusShipped,
		order.OrderStatusDelivered,
	}

	revenueQuery := s.db.Model(&order.Order{}).Where("status IN ?", completedStatuses)
	revenueQuery.Select("COALESCE(SUM(total_amount), 0)").Scan(&stats.TotalRevenue)

	s.db.Model(&order.Order{}).
		Where("status IN ? AND created_at >= ?", completedStatuses, today).
		Select("COALESCE(SUM(total_amount), 0)").Scan(&stats.RevenueToday)

	if err := s.db.Model(&order.Order{}).Count(&stats.TotalOrders).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}
	s.db.Model(&order.Order{}).Where("created_at >= ?", today).Count(&stats.OrdersToday)

	if stats.TotalOrders > 0 {
		stats.AvgOrderValue = stats.TotalRevenue / stats.TotalOrders
	}

	s.db.Model(&AbandonedCart{}).Count(&stats.TotalAbandoned)
	s.db.Model(&AbandonedCart{}).Select("COALESCE(SUM(total), 0)").Scan(&stats.AbandonedValue)

	return stats, nil
}
