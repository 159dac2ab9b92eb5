// internal/domain/cart/state.go
package cart

import (
	"time"
)

// Line represents one purchasable unit in the cart. Name, image, slug and
// price are denormalized snapshots taken at add-time and are not
// re-validated against the catalog.
type Line struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Image    string `json:"image"`
	Slug     string `json:"slug"`
	Price    int64  `json:"price"` // Unit price in cents at time of adding
	Quantity int    `json:"quantity"`
}

// State is the aggregate cart state. Total and ItemCount are derived from
// Items on every transition and never mutated independently.
type State struct {
	Items        []Line    `json:"items"`
	Total        int64     `json:"total"`
	ItemCount    int       `json:"item_count"`
	SessionID    string    `json:"session_id"`
	UserID       string    `json:"user_id,omitempty"`
	LastActivity time.Time `json:"last_activity"`
	IsAbandoned  bool      `json:"is_abandoned"`
}

// NewState creates a fresh cart state with a newly generated session ID.
func NewState(now time.Time) State {
	return State{
		Items:        []Line{},
		SessionID:    NewSessionID(),
		LastActivity: now,
	}
}

// IsEmpty returns true if the cart contains no lines.
func (s State) IsEmpty() bool {
	return len(s.Items) == 0
}

// indexOf returns the position of the line with the given id, or -1.
func (s State) indexOf(id string) int {
	for i := range s.Items {
		if s.Items[i].ID == id {
			return i
		}
	}
	return -1
}

// cloneItems returns a copy of the item slice so transitions never alias
// the previous state's backing array.
func cloneItems(items []Line) []Line {
	out := make([]Line, len(items))
	copy(out, items)
	return out
}

// recompute derives total and item count from the lines. Quantity changes
// always net out to a full recompute rather than incremental arithmetic.
func recompute(items []Line) (total int64, count int) {
	for _, line := range items {
		total += line.Price * int64(line.Quantity)
		count += line.Quantity
	}
	return total, count
}
