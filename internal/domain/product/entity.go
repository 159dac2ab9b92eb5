// internal/domain/product/entity.go
package product

import (
	"time"

	"gorm.io/gorm"
)

// Product represents one purchasable catalog item. The storefront
// denormalizes name/image/slug/price into cart lines at add-time.
type Product struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	SKU          string         `gorm:"uniqueIndex;not null;size:100" json:"sku"`
	Name         string         `gorm:"not null;size:255" json:"name"`
	Slug         string         `gorm:"uniqueIndex;not null;size:255" json:"slug"`
	Description  string         `gorm:"type:text" json:"description"`
	ShortDesc    string         `gorm:"size:500" json:"short_description"`
	Price        int64          `gorm:"not null" json:"price"` // Price in cents
	ComparePrice int64          `json:"compare_price"`         // Original price for discounts
	Image        string         `gorm:"size:500" json:"image"` // Primary image URL
	CategoryID   uint           `gorm:"not null;index" json:"category_id"`
	IsActive     bool           `gorm:"default:true" json:"is_active"`
	IsFeatured   bool           `gorm:"default:false" json:"is_featured"`
	Stock        int            `gorm:"default:0" json:"stock"` // Informational; no locking
	Tags         string         `gorm:"size:500" json:"tags"`   // Comma-separated tags
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Category Category       `gorm:"foreignKey:CategoryID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"category"`
	Images   []ProductImage `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"images,omitempty"`
}

// Category represents product categories
type Category struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"not null;size:255" json:"name"`
	Slug        string         `gorm:"uniqueIndex;not null;size:255" json:"slug"`
	Description string         `gorm:"size:500" json:"description"`
	Image       string         `gorm:"size:500" json:"image"`
	ParentID    *uint          `gorm:"index" json:"parent_id"`
	SortOrder   int            `gorm:"default:0" json:"sort_order"`
	IsActive    bool           `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Parent   *Category  `gorm:"foreignKey:ParentID" json:"parent,omitempty"`
	Children []Category `gorm:"foreignKey:ParentID" json:"children,omitempty"`
	Products []Product  `gorm:"foreignKey:CategoryID" json:"products,omitempty"`
}

// ProductImage represents additional product images
type ProductImage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProductID uint      `gorm:"not null;index" json:"product_id"`
	URL       string    `gorm:"not null;size:500" json:"url"`
	AltText   string    `gorm:"size:255" json:"alt_text"`
	SortOrder int       `gorm:"default:0" json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName overrides
func (Product) TableName() string      { return "products" }
func (Category) TableName() string     { return "categories" }
func (ProductImage) TableName() string { return "product_images" }

// Business methods for Product

func (p *Product) IsInStock() bool {
	return p.Stock > 0
}

func (p *Product) GetFormattedPrice() float64 {
	return float64(p.Price) / 100
}

func (p *Product) GetDiscountPercentage() int {
	if p.ComparePrice > 0 && p.Price < p.ComparePrice {
		return int(((p.ComparePrice - p.Price) * 100) / p.ComparePrice)
	}
	return 0
}
