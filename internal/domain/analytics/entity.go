// internal/domain/analytics/entity.go
package analytics

import (
	"time"

	"gorm.io/gorm"
)

// AbandonedCart is one recorded abandonment event. Cart lines are kept
// as raw JSON; the record is an immutable snapshot, not a live cart.
type AbandonedCart struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	SessionID   string         `gorm:"not null;index;size:100" json:"session_id"`
	UserID      string         `gorm:"index;size:100" json:"user_id"`
	ItemsJSON   string         `gorm:"type:text;not null" json:"-"`
	Total       int64          `gorm:"not null" json:"total"` // In cents
	ItemCount   int            `gorm:"not null" json:"item_count"`
	AbandonedAt time.Time      `gorm:"not null;index" json:"abandoned_at"`
	UserAgent   string         `gorm:"size:500" json:"user_agent"`
	URL         string         `gorm:"size:500" json:"url"`
	Recovered   bool           `gorm:"default:false;index" json:"recovered"`
	RecoveredAt *time.Time     `json:"recovered_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides the table name for AbandonedCart
func (AbandonedCart) TableName() string {
	return "abandoned_carts"
}

// GetFormattedTotal returns the abandoned total as float
func (a *AbandonedCart) GetFormattedTotal() float64 {
	return float64(a.Total) / 100
}
