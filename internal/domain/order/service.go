// internal/domain/order/service.go
package order

import (
	"fmt"
	"time"

	"github.com/your-org/storefront-backend/internal/config"
	"gorm.io/gorm"
)

// Service handles order business logic. Order placement lives in the
// checkout domain; this service covers retrieval and lifecycle updates.
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new order service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// OrderListRequest represents order list query parameters
type OrderListRequest struct {
	Page      int         `form:"page,default=1"`
	Limit     int         `form:"limit,default=20"`
	Status    OrderStatus `form:"status"`
	UserID    uint        `form:"user_id"`
	SortBy    string      `form:"sort_by,default=created_at"`
	SortOrder string      `form:"sort_order,default=desc"`
	DateFrom  string      `form:"date_from"`
	DateTo    string      `form:"date_to"`
}

// OrderResponse represents order response with pagination
type OrderResponse struct {
	Orders     []Order    `json:"orders"`
	Pagination Pagination `json:"pagination"`
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

// GetOrders retrieves orders with filtering and pagination
func (s *Service) GetOrders(req *OrderListRequest) (*OrderResponse, error) {
	var orders []Order
	var total int64

	// Build query
	query := s.db.Model(&Order{}).
		Preload("Items").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		})

	// Apply filters
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}

	if req.UserID > 0 {
		query = query.Where("user_id = ?", req.UserID)
	}

	if req.DateFrom != "" {
		query = query.Where("created_at >= ?", req.DateFrom)
	}

	if req.DateTo != "" {
		query = query.Where("created_at <= ?", req.DateTo)
	}

	// Count total records
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	// Apply sorting
	orderClause := s.buildOrderClause(req.SortBy, req.SortOrder)
	query = query.Order(orderClause)

	// Apply pagination
	offset := (req.Page - 1) * req.Limit
	if err := query.Offset(offset).Limit(req.Limit).Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve orders: %w", err)
	}

	// Calculate pagination info
	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	pagination := Pagination{
		Page:       req.Page,
		Limit:      req.Limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    req.Page < totalPages,
		HasPrev:    req.Page > 1,
	}

	return &OrderResponse{
		Orders:     orders,
		Pagination: pagination,
	}, nil
}

// GetOrder retrieves a single order by ID
func (s *Service) GetOrder(id uint) (*Order, error) {
	var order Order
	result := s.db.
		Preload("Items").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		Where("id = ?", id).
		First(&order)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("order not found")
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", result.Error)
	}

	return &order, nil
}

// GetOrderByNumber retrieves a single order by order number
func (s *Service) GetOrderByNumber(orderNumber string) (*Order, error) {
	var order Order
	result := s.db.
		Preload("Items").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		Where("order_number = ?", orderNumber).
		First(&order)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("order not found")
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", result.Error)
	}

	return &order, nil
}

// UpdateOrderStatus updates order status
func (s *Service) UpdateOrderStatus(orderID uint, status OrderStatus, comment string, updatedBy uint) error {
	// Get current order
	var order Order
	if err := s.db.First(&order, orderID).Error; err != nil {
		return fmt.Errorf("order not found: %w", err)
	}

	// Validate status transition
	if !s.isValidStatusTransition(order.Status, status) {
		return fmt.Errorf("invalid status transition from %s to %s", order.Status, status)
	}

	// Update order status
	updates := map[string]interface{}{
		"status": status,
	}

	// Set timestamps based on status
	now := time.Now().UTC()
	switch status {
	case OrderStatusShipped:
		updates["shipped_at"] = now
	case OrderStatusDelivered:
		updates["delivered_at"] = now
	}

	if err := s.db.Model(&order).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	// Add status history
	statusHistory := OrderStatusHistory{
		OrderID:   orderID,
		Status:    status,
		Comment:   comment,
		CreatedBy: updatedBy,
		CreatedAt: now,
	}

	if err := s.db.Create(&statusHistory).Error; err != nil {
		return fmt.Errorf("failed to create status history: %w", err)
	}

	return nil
}

// CancelOrder cancels an order
func (s *Service) CancelOrder(orderID uint, reason string, cancelledBy uint) error {
	var order Order
	if err := s.db.First(&order, orderID).Error; err != nil {
		return fmt.Errorf("order not found: %w", err)
	}

	if !order.CanBeCancelled() {
		return fmt.Errorf("order cannot be cancelled in current status: %s", order.Status)
	}

	if err := s.db.Model(&order).Updates(map[string]interface{}{
		"status": OrderStatusCancelled,
	}).Error; err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	// Add status history
	statusHistory := OrderStatusHistory{
		OrderID:   orderID,
		Status:    OrderStatusCancelled,
		Comment:   fmt.Sprintf("Order cancelled: %s", reason),
		CreatedBy: cancelledBy,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.db.Create(&statusHistory).Error; err != nil {
		return fmt.Errorf("failed to create status history: %w", err)
	}

	return nil
}

// GetUserOrders retrieves orders for a specific user
func (s *Service) GetUserOrders(userID uint, page, limit int) (*OrderResponse, error) {
	req := &OrderListRequest{
		Page:   page,
		Limit:  limit,
		UserID: userID,
	}
	return s.GetOrders(req)
}

// Private helper methods

func (s *Service) isValidStatusTransition(from, to OrderStatus) bool {
	validTransitions := map[OrderStatus][]OrderStatus{
		OrderStatusPending: {
			OrderStatusConfirmed,
			OrderStatusCancelled,
		},
		OrderStatusConfirmed: {
			OrderStatusProcessing,
			OrderStatusCancelled,
		},
		OrderStatusProcessing: {
			OrderStatusShipped,
		},
		OrderStatusShipped: {
			OrderStatusDelivered,
		},
	}

	allowedStatuses, exists := validTransitions[from]
	if !exists {
		return false
	}

	for _, status := range allowedStatuses {
		if status == to {
			return true
		}
	}
	return false
}

func (s *Service) buildOrderClause(sortBy, sortOrder string) string {
	validSortFields := map[string]bool{
		"created_at":   true,
		"updated_at":   true,
		"total_amount": true,
		"status":       true,
		"order_number": true,
	}

	if !validSortFields[sortBy] {
		sortBy = "created_at"
	}

	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "desc"
	}

	return fmt.Sprintf("%s %s", sortBy, sortOrder)
}
