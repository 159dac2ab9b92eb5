// internal/domain/checkout/service.go
package checkout

import (
	"fmt"
	"time"

	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"gorm.io/gorm"
)

// Service turns a cart into an order. It freezes the cart's lines into
// order items inside a transaction and clears the cart only after the
// order has committed; a failed checkout leaves the cart untouched.
type Service struct {
	db          *gorm.DB
	config      *config.Config
	cartService *cart.Service
}

// NewService creates a new checkout service
func NewService(db *gorm.DB, cfg *config.Config, cartService *cart.Service) *Service {
	return &Service{
		db:          db,
		config:      cfg,
		cartService: cartService,
	}
}

// PlaceOrderRequest represents order placement data. Tax, shipping and
// discount amounts are accepted as given and recorded without
// computation.
type PlaceOrderRequest struct {
	Email                string         `json:"email" binding:"required,email"`
	ShippingAddress      order.Address  `json:"shipping_address" binding:"required"`
	BillingAddress       *order.Address `json:"billing_address,omitempty"` // Optional, defaults to shipping
	UseShippingAsBilling bool           `json:"use_shipping_as_billing"`
	ShippingMethod       string         `json:"shipping_method"`
	Notes                string         `json:"notes,omitempty"`
	TaxAmount            int64          `json:"tax_amount"`
	ShippingAmount       int64          `json:"shipping_amount"`
	DiscountAmount       int64          `json:"discount_amount"`
}

// PlaceOrder creates an order from the session's cart.
func (s *Service) PlaceOrder(userID *uint, sessionID string, req *PlaceOrderRequest) (*order.Order, error) {
	store := s.cartService.Store(sessionID)
	snapshot := store.Snapshot()

	if snapshot.IsEmpty() {
		return nil, fmt.Errorf("cart is empty")
	}

	totalAmount := snapshot.Total + req.TaxAmount + req.ShippingAmount - req.DiscountAmount
	if totalAmount < 0 {
		return nil, fmt.Errorf("discount exceeds order total")
	}

	// Set billing address
	billingAddress := req.ShippingAddress
	if !req.UseShippingAsBilling && req.BillingAddress != nil {
		billingAddress = *req.BillingAddress
	}

	newOrder := order.Order{
		UserID:          userID,
		SessionID:       snapshot.SessionID,
		Email:           req.Email,
		Status:          order.OrderStatusPending,
		SubtotalAmount:  snapshot.Total,
		TaxAmount:       req.TaxAmount,
		ShippingAmount:  req.ShippingAmount,
		DiscountAmount:  req.DiscountAmount,
		TotalAmount:     totalAmount,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  billingAddress,
		Currency:        s.config.Cart.Currency,
		Notes:           req.Notes,
		ShippingMethod:  req.ShippingMethod,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&newOrder).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		newOrder.OrderNumber = s.generateOrderNumber(newOrder.ID)
		if err := tx.Model(&newOrder).Update("order_number", newOrder.OrderNumber).Error; err != nil {
			return fmt.Errorf("failed to update order number: %w", err)
		}

		// Freeze cart lines into order items
		for _, line := range snapshot.Items {
			orderItem := order.OrderItem{
				OrderID:    newOrder.ID,
				LineID:     line.ID,
				Name:       line.Name,
				Slug:       line.Slug,
				Image:      line.Image,
				Quantity:   line.Quantity,
				Price:      line.Price,
				TotalPrice: line.Price * int64(line.Quantity),
			}
			if err := tx.Create(&orderItem).Error; err != nil {
				return fmt.Errorf("failed to create order item: %w", err)
			}
		}

		var createdBy uint
		if userID != nil {
			createdBy = *userID
		}
		statusHistory := order.OrderStatusHistory{
			OrderID:   newOrder.ID,
			Status:    order.OrderStatusPending,
			Comment:   "Order created",
			CreatedBy: createdBy,
			CreatedAt: time.Now().UTC(),
		}
		if err := tx.Create(&statusHistory).Error; err != nil {
			return fmt.Errorf("failed to create status history: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	// Clear the cart only after the order committed
	store.Clear()

	// Load complete order with relationships
	if err := s.db.Preload("Items").Preload("StatusHistory").First(&newOrder, newOrder.ID).Error; err != nil {
		return nil, fmt.Errorf("failed to load complete order: %w", err)
	}

	return &newOrder, nil
}

func (s *Service) generateOrderNumber(orderID uint) string {
	// Format: ORD-YYYYMMDD-XXXXX
	return fmt.Sprintf("ORD-%s-%05d", time.Now().Format("20060102"), orderID)
}
