package cart

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRoundTrip(t *testing.T) {
	state := State{
		Items: []Line{
			{ID: "p1", Name: "Product p1", Image: "img", Slug: "product-p1", Price: 1999, Quantity: 2},
			{ID: "p2", Name: "Product p2", Price: 500, Quantity: 1},
		},
		Total:        4498,
		ItemCount:    3,
		SessionID:    "sess_abc_123",
		UserID:       "42",
		LastActivity: testNow,
		IsAbandoned:  true,
	}

	data, err := encodeSnapshot(state)
	require.NoError(t, err)

	decoded, ok := decodeSnapshot(data, testNow.Add(time.Hour))
	require.True(t, ok)
	assert.Equal(t, state.Items, decoded.Items)
	assert.Equal(t, state.Total, decoded.Total)
	assert.Equal(t, state.ItemCount, decoded.ItemCount)
	assert.Equal(t, state.SessionID, decoded.SessionID)
	assert.Equal(t, state.UserID, decoded.UserID)
	assert.True(t, state.LastActivity.Equal(decoded.LastActivity))
	assert.True(t, decoded.IsAbandoned)
}

func TestDecodeSnapshotRejectsNonObject(t *testing.T) {
	_, ok := decodeSnapshot([]byte(`"not a cart"`), testNow)
	assert.False(t, ok)

	_, ok = decodeSnapshot([]byte(`{invalid json`), testNow)
	assert.False(t, ok)
}

func TestDecodeSnapshotDefaultsMalformedItems(t *testing.T) {
	data := []byte(`{"items":"oops","session_id":"sess_x","last_activity":"2025-06-01T12:00:00Z"}`)

	state, ok := decodeSnapshot(data, testNow)

	require.True(t, ok)
	require.NotNil(t, state.Items)
	assert.Empty(t, state.Items)
	assert.Zero(t, state.Total)
	assert.Equal(t, "sess_x", state.SessionID)
}

func TestDecodeSnapshotDefaultsBadTimestamp(t *testing.T) {
	data := []byte(`{"items":[],"session_id":"sess_x","last_activity":"yesterday-ish"}`)

	state, ok := decodeSnapshot(data, testNow)

	require.True(t, ok)
	assert.Equal(t, testNow, state.LastActivity)
}

func TestDecodeSnapshotRecomputesTotals(t *testing.T) {
	// Stored totals disagree with the lines; the lines win.
	data := []byte(`{
		"items":[{"id":"p1","price":1000,"quantity":3}],
		"total":1,
		"item_count":999,
		"session_id":"sess_x",
		"last_activity":"2025-06-01T12:00:00Z"
	}`)

	state, ok := decodeSnapshot(data, testNow)

	require.True(t, ok)
	assert.Equal(t, int64(3000), state.Total)
	assert.Equal(t, 3, state.ItemCount)
}

func TestDecodeSnapshotSanitizesLines(t *testing.T) {
	data := []byte(`{
		"items":[
			{"id":"p1","price":1000,"quantity":2},
			{"id":"p1","price":9999,"quantity":5},
			{"id":"p2","price":500,"quantity":0}
		],
		"session_id":"sess_x",
		"last_activity":"2025-06-01T12:00:00Z"
	}`)

	state, ok := decodeSnapshot(data, testNow)

	require.True(t, ok)
	require.Len(t, state.Items, 1)
	assert.Equal(t, "p1", state.Items[0].ID)
	assert.Equal(t, int64(1000), state.Items[0].Price)
}

func TestDecodeSnapshotEmptyCartNeverAbandoned(t *testing.T) {
	data := []byte(`{"items":[],"is_abandoned":true,"session_id":"sess_x","last_activity":"2025-06-01T12:00:00Z"}`)

	state, ok := decodeSnapshot(data, testNow)

	require.True(t, ok)
	assert.False(t, state.IsAbandoned)
}

func TestSessionKey(t *testing.T) {
	assert.Equal(t, "cart:session:sess_abc", sessionKey("sess_abc"))
}
