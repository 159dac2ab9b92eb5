// internal/domain/cart/transition.go
package cart

import (
	"time"
)

// Action is a cart state transition request. Actions are applied by the
// pure Apply function; they carry no behavior themselves.
type Action interface {
	actionName() string
}

// AddLine adds a product line. If a line with the same id already exists
// its quantity is incremented by one and the existing snapshot
// (name/image/price) is kept.
type AddLine struct {
	Line Line
}

// RemoveLine deletes the line with the given id. Unknown ids are a no-op.
type RemoveLine struct {
	ID string
}

// SetQuantity sets a line's quantity exactly. A quantity of zero or below
// removes the line. Unknown ids are a no-op.
type SetQuantity struct {
	ID       string
	Quantity int
}

// Clear empties the cart while preserving identity fields.
type Clear struct{}

// SetUserID attaches an authenticated identity to the cart.
type SetUserID struct {
	UserID string
}

// Pulse refreshes the activity clock without touching cart contents.
type Pulse struct{}

// MarkAbandoned flags the cart as abandoned. Produced only by the
// abandonment monitor, never by user action.
type MarkAbandoned struct{}

// Restore replaces the entire state with a persisted snapshot, defaulting
// missing or malformed fields instead of failing.
type Restore struct {
	Snapshot State
}

func (AddLine) actionName() string       { return "add_line" }
func (RemoveLine) actionName() string    { return "remove_line" }
func (SetQuantity) actionName() string   { return "set_quantity" }
func (Clear) actionName() string         { return "clear" }
func (SetUserID) actionName() string     { return "set_user_id" }
func (Pulse) actionName() string         { return "pulse" }
func (MarkAbandoned) actionName() string { return "mark_abandoned" }
func (Restore) actionName() string       { return "restore" }

// Effect describes a side effect the caller should perform after a
// transition commits. The transition function itself performs no I/O.
type Effect interface {
	effectName() string
}

// PersistEffect requests that the new state be written to durable storage.
type PersistEffect struct{}

// MirrorAddEffect requests that an added line be mirrored to the remote
// cart service.
type MirrorAddEffect struct {
	Line Line
}

// MirrorUpdateEffect requests that a quantity change be mirrored.
type MirrorUpdateEffect struct {
	ID       string
	Quantity int
}

// MirrorRemoveEffect requests that a removal be mirrored.
type MirrorRemoveEffect struct {
	ID string
}

func (PersistEffect) effectName() string      { return "persist" }
func (MirrorAddEffect) effectName() string    { return "mirror_add" }
func (MirrorUpdateEffect) effectName() string { return "mirror_update" }
func (MirrorRemoveEffect) effectName() string { return "mirror_remove" }

// Apply computes the next cart state for an action. It is a pure function:
// no side effects, no I/O, no clock reads (the caller supplies now).
// Invalid inputs degrade to no-ops rather than errors.
func Apply(state State, action Action, now time.Time) (State, []Effect) {
	switch a := action.(type) {
	case AddLine:
		items := cloneItems(state.Items)
		if i := state.indexOf(a.Line.ID); i >= 0 {
			// First-seen snapshot wins; only the quantity moves.
			items[i].Quantity++
		} else {
			line := a.Line
			line.Quantity = 1
			items = append(items, line)
		}
		next := withItems(state, items, now)
		return next, []Effect{PersistEffect{}, MirrorAddEffect{Line: a.Line}}

	case RemoveLine:
		items := cloneItems(state.Items)
		if i := state.indexOf(a.ID); i >= 0 {
			items = append(items[:i], items[i+1:]...)
		}
		next := withItems(state, items, now)
		return next, []Effect{PersistEffect{}, MirrorRemoveEffect{ID: a.ID}}

	case SetQuantity:
		if a.Quantity <= 0 {
			return Apply(state, RemoveLine{ID: a.ID}, now)
		}
		items := cloneItems(state.Items)
		i := state.indexOf(a.ID)
		if i >= 0 {
			items[i].Quantity = a.Quantity
		}
		next := withItems(state, items, now)
		if i < 0 {
			// Unknown id: nothing changed, nothing to mirror.
			return next, []Effect{PersistEffect{}}
		}
		return next, []Effect{PersistEffect{}, MirrorUpdateEffect{ID: a.ID, Quantity: a.Quantity}}

	case Clear:
		next := withItems(state, []Line{}, now)
		return next, []Effect{PersistEffect{}}

	case SetUserID:
		next := state
		next.Items = cloneItems(state.Items)
		next.UserID = a.UserID
		next.LastActivity = now
		next.IsAbandoned = false
		return next, []Effect{PersistEffect{}}

	case Pulse:
		next := state
		next.Items = cloneItems(state.Items)
		next.LastActivity = now
		next.IsAbandoned = false
		return next, []Effect{PersistEffect{}}

	case MarkAbandoned:
		next := state
		next.Items = cloneItems(state.Items)
		next.IsAbandoned = true
		return next, []Effect{PersistEffect{}}

	case Restore:
		next := a.Snapshot
		if next.Items == nil {
			next.Items = []Line{}
		} else {
			next.Items = cloneItems(next.Items)
		}
		// Zero-quantity or duplicate lines cannot survive a restore.
		next.Items = sanitizeLines(next.Items)
		next.Total, next.ItemCount = recompute(next.Items)
		if next.LastActivity.IsZero() {
			next.LastActivity = now
		}
		if next.IsEmpty() {
			next.IsAbandoned = false
		}
		return next, nil

	default:
		return state, nil
	}
}

// withItems produces the post-mutation state for a content change:
// totals recomputed, activity refreshed, abandonment cleared.
func withItems(state State, items []Line, now time.Time) State {
	next := state
	next.Items = items
	next.Total, next.ItemCount = recompute(items)
	next.LastActivity = now
	next.IsAbandoned = false
	return next
}

// sanitizeLines drops lines with non-positive quantities and collapses
// duplicate ids, keeping the first occurrence.
func sanitizeLines(items []Line) []Line {
	out := make([]Line, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, line := range items {
		if line.Quantity < 1 || line.ID == "" || seen[line.ID] {
			continue
		}
		seen[line.ID] = true
		out = append(out, line)
	}
	return out
}
