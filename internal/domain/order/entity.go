// internal/domain/order/entity.go
package order

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// OrderStatus represents the order status
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Order represents a placed order. Tax, shipping and discount amounts
// are recorded as given; the storefront performs no computation on them.
type Order struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	OrderNumber string      `gorm:"uniqueIndex;not null;size:50" json:"order_number"`
	UserID      *uint       `gorm:"index" json:"user_id"` // Nullable for guest orders
	SessionID   string      `gorm:"index;size:100" json:"session_id"`
	Email       string      `gorm:"not null;size:255" json:"email"`
	Status      OrderStatus `gorm:"not null;default:'pending'" json:"status"`

	// Financial Information
	SubtotalAmount int64 `gorm:"not null" json:"subtotal_amount"` // In cents
	TaxAmount      int64 `gorm:"default:0" json:"tax_amount"`
	ShippingAmount int64 `gorm:"default:0" json:"shipping_amount"`
	DiscountAmount int64 `gorm:"default:0" json:"discount_amount"`
	TotalAmount    int64 `gorm:"not null" json:"total_amount"`

	// Addresses
	ShippingAddress Address `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`
	BillingAddress  Address `gorm:"embedded;embeddedPrefix:billing_" json:"billing_address"`

	// Additional Information
	Currency string `gorm:"size:3;default:'USD'" json:"currency"`
	Notes    string `gorm:"type:text" json:"notes"`

	// Shipping Information
	ShippingMethod string `gorm:"size:100" json:"shipping_method"`
	TrackingNumber string `gorm:"size:100" json:"tracking_number"`

	// Timestamps
	ShippedAt   *time.Time     `json:"shipped_at"`
	DeliveredAt *time.Time     `json:"delivered_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Items         []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
	StatusHistory []OrderStatusHistory `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"status_history,omitempty"`
}

// OrderItem is a cart line frozen at checkout time. Name, slug, image
// and price are copied from the cart so later catalog edits do not
// rewrite order history.
type OrderItem struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	OrderID    uint      `gorm:"not null;index" json:"order_id"`
	LineID     string    `gorm:"not null;size:100;index" json:"line_id"`
	Name       string    `gorm:"not null;size:255" json:"name"`
	Slug       string    `gorm:"size:255" json:"slug"`
	Image      string    `gorm:"size:500" json:"image"`
	Quantity   int       `gorm:"not null" json:"quantity"`
	Price      int64     `gorm:"not null" json:"price"`       // Price per unit in cents
	TotalPrice int64     `gorm:"not null" json:"total_price"` // Quantity * Price
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// OrderStatusHistory tracks order status changes
type OrderStatusHistory struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	OrderID   uint        `gorm:"not null;index" json:"order_id"`
	Status    OrderStatus `gorm:"not null" json:"status"`
	Comment   string      `gorm:"type:text" json:"comment"`
	CreatedBy uint        `gorm:"index" json:"created_by"` // User ID who made the change
	CreatedAt time.Time   `json:"created_at"`
}

// Address represents shipping/billing address (embedded in Order)
type Address struct {
	FirstName    string `gorm:"size:100" json:"first_name"`
	LastName     string `gorm:"size:100" json:"last_name"`
	Company      string `gorm:"size:100" json:"company"`
	AddressLine1 string `gorm:"size:255" json:"address_line1"`
	AddressLine2 string `gorm:"size:255" json:"address_line2"`
	City         string `gorm:"size:100" json:"city"`
	State        string `gorm:"size:100" json:"state"`
	PostalCode   string `gorm:"size:20" json:"postal_code"`
	Country      string `gorm:"size:2" json:"country"`
	Phone        string `gorm:"size:20" json:"phone"`
}

// TableName overrides
func (Order) TableName() string              { return "orders" }
func (OrderItem) TableName() string          { return "order_items" }
func (OrderStatusHistory) TableName() string { return "order_status_history" }

// Business methods for Order

// GenerateOrderNumber generates a unique order number
func (o *Order) GenerateOrderNumber() string {
	// Format: ORD-YYYYMMDD-XXXXX
	return fmt.Sprintf("ORD-%s-%05d", time.Now().Format("20060102"), o.ID)
}

// GetFormattedTotal returns total amount as float
func (o *Order) GetFormattedTotal() float64 {
	return float64(o.TotalAmount) / 100
}

// CanBeCancelled checks if order can be cancelled
func (o *Order) CanBeCancelled() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusConfirmed
}

// IsCompleted checks if order has reached a terminal successful state
func (o *Order) IsCompleted() bool {
	return o.Status == OrderStatusDelivered
}

// AddStatusHistory adds a new status change to history
func (o *Order) AddStatusHistory(status OrderStatus, comment string, createdBy uint) {
	history := OrderStatusHistory{
		OrderID:   o.ID,
		Status:    status,
		Comment:   comment,
		CreatedBy: createdBy,
		CreatedAt: time.Now().UTC(),
	}
	o.StatusHistory = append(o.StatusHistory, history)
}
