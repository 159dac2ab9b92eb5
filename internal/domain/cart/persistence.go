// internal/domain/cart/persistence.go
package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Persistence stores full cart snapshots keyed by session ID. Save is
// best-effort and must never fail the caller; Load runs exactly once per
// store construction.
type Persistence interface {
	Save(ctx context.Context, state State)
	Load(ctx context.Context, sessionID string) (State, bool)
}

// snapshotRecord is the serialized form of a cart snapshot. Timestamps are
// stored as RFC3339 strings; items are kept as raw JSON so a malformed
// collection can be detected and defaulted instead of failing the decode.
type snapshotRecord struct {
	Items        json.RawMessage `json:"items"`
	Total        int64           `json:"total"`
	ItemCount    int             `json:"item_count"`
	SessionID    string          `json:"session_id"`
	UserID       string          `json:"user_id,omitempty"`
	LastActivity string          `json:"last_activity"`
	IsAbandoned  bool            `json:"is_abandoned"`
}

// encodeSnapshot serializes the full current state. Every write carries
// the whole snapshot, so out-of-order write completion is harmless.
func encodeSnapshot(state State) ([]byte, error) {
	items, err := json.Marshal(state.Items)
	if err != nil {
		return nil, err
	}
	return json.Marshal(snapshotRecord{
		Items:        items,
		Total:        state.Total,
		ItemCount:    state.ItemCount,
		SessionID:    state.SessionID,
		UserID:       state.UserID,
		LastActivity: state.LastActivity.UTC().Format(time.RFC3339),
		IsAbandoned:  state.IsAbandoned,
	})
}

// decodeSnapshot parses a persisted snapshot, defaulting malformed fields
// rather than failing: a missing or non-array items field yields an empty
// cart, an unparsable timestamp defaults to now. It returns false only
// when the payload is not an object at all.
func decodeSnapshot(data []byte, now time.Time) (State, bool) {
	var record snapshotRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return State{}, false
	}

	state := State{
		SessionID:   record.SessionID,
		UserID:      record.UserID,
		IsAbandoned: record.IsAbandoned,
	}

	var items []Line
	if len(record.Items) > 0 {
		if err := json.Unmarshal(record.Items, &items); err != nil {
			items = nil
		}
	}
	if items == nil {
		items = []Line{}
	}
	state.Items = sanitizeLines(items)
	state.Total, state.ItemCount = recompute(state.Items)

	if parsed, err := time.Parse(time.RFC3339, record.LastActivity); err == nil {
		state.LastActivity = parsed
	} else {
		state.LastActivity = now
	}

	if state.IsEmpty() {
		state.IsAbandoned = false
	}

	return state, true
}

// RedisPersistence persists cart snapshots as JSON values in Redis under
// cart:session:<id> with a sliding TTL.
type RedisPersistence struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

// NewRedisPersistence creates a Redis-backed persistence adapter.
func NewRedisPersistence(client *redis.Client, ttl time.Duration, logger *logrus.Logger) *RedisPersistence {
	return &RedisPersistence{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func sessionKey(sessionID string) string {
	return fmt.Sprintf("cart:session:%s", sessionID)
}

// Save writes the full snapshot. Failures are logged and swallowed;
// persistence is an optimization, not a correctness requirement for the
// in-memory cart.
func (p *RedisPersistence) Save(ctx context.Context, state State) {
	data, err := encodeSnapshot(state)
	if err != nil {
		p.logger.WithError(err).WithField("session_id", state.SessionID).
			Warn("Failed to encode cart snapshot")
		return
	}

	if err := p.client.Set(ctx, sessionKey(state.SessionID), data, p.ttl).Err(); err != nil {
		p.logger.WithError(err).WithField("session_id", state.SessionID).
			Warn("Failed to persist cart snapshot")
	}
}

// Load restores the snapshot for a session. A missing key, a corrupted
// payload or a Redis failure all report absence so the caller falls back
// to a fresh cart.
func (p *RedisPersistence) Load(ctx context.Context, sessionID string) (State, bool) {
	data, err := p.client.Get(ctx, sessionKey(sessionID)).Result()
	if err == redis.Nil {
		return State{}, false
	}
	if err != nil {
		p.logger.WithError(err).WithField("session_id", sessionID).
			Warn("Failed to load cart snapshot")
		return State{}, false
	}

	state, ok := decodeSnapshot([]byte(data), time.Now().UTC())
	if !ok {
		p.logger.WithField("session_id", sessionID).
			Warn("Discarding malformed cart snapshot")
		return State{}, false
	}

	// The persisted record owns the session identity; never trust a
	// payload claiming a different session.
	state.SessionID = sessionID
	return state, true
}
