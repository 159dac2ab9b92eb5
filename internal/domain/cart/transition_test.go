package cart

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testLine(id string, price int64) Line {
	return Line{
		ID:    id,
		Name:  "Product " + id,
		Image: "https://example.com/" + id + ".jpg",
		Slug:  "product-" + id,
		Price: price,
	}
}

func TestApplyAddLineNewLine(t *testing.T) {
	state := NewState(testNow)

	next, effects := Apply(state, AddLine{Line: testLine("p1", 1999)}, testNow)

	require.Len(t, next.Items, 1)
	assert.Equal(t, "p1", next.Items[0].ID)
	assert.Equal(t, 1, next.Items[0].Quantity)
	assert.Equal(t, int64(1999), next.Total)
	assert.Equal(t, 1, next.ItemCount)
	assert.Len(t, effects, 2)
	assert.IsType(t, PersistEffect{}, effects[0])
	assert.IsType(t, MirrorAddEffect{}, effects[1])
}

func TestApplyAddLineIncrementsExisting(t *testing.T) {
	state := NewState(testNow)
	state, _ = Apply(state, AddLine{Line: testLine("p1", 1999)}, testNow)

	next, _ := Apply(state, AddLine{Line: testLine("p1", 1999)}, testNow)

	require.Len(t, next.Items, 1)
	assert.Equal(t, 2, next.Items[0].Quantity)
	assert.Equal(t, int64(3998), next.Total)
	assert.Equal(t, 2, next.ItemCount)
}

func TestApplyAddLineKeepsFirstSeenSnapshot(t *testing.T) {
	state := NewState(testNow)
	state, _ = Apply(state, AddLine{Line: testLine("p1", 1999)}, testNow)

	// Same id with a changed price and name: the original snapshot wins.
	changed := testLine("p1", 2999)
	changed.Name = "Renamed Product"
	next, _ := Apply(state, AddLine{Line: changed}, testNow)

	require.Len(t, next.Items, 1)
	assert.Equal(t, int64(1999), next.Items[0].Price)
	assert.Equal(t, "Product p1", next.Items[0].Name)
	assert.Equal(t, int64(3998), next.Total)
}

func TestApplyTotalsAlwaysConserved(t *testing.T) {
	state := NewState(testNow)
	state, _ = Apply(state, AddLine{Line: testLine("p1", 500)}, testNow)
	state, _ = Apply(state, AddLine{Line: testLine("p2", 1250)}, testNow)
	state, _ = Apply(state, SetQuantity{ID: "p2", Quantity: 3}, testNow)
	state, _ = Apply(state, AddLine{Line: testLine("p1", 500)}, testNow)
	state, _ = Apply(state, RemoveLine{ID: "p1"}, testNow)

	var wantTotal int64
	wantCount := 0
	for _, line := range state.Items {
		wantTotal += line.Price * int64(line.Quantity)
		wantCount += line.Quantity
	}

	assert.Equal(t, wantTotal, state.Total)
	assert.Equal(t, wantCount, state.ItemCount)
	assert.Equal(t, int64(3750), state.Total)
	assert.Equal(t, 3, state.ItemCount)
}

func TestApplyRemoveUnknownLineIsNoop(t *testing.T) {
	state := NewState(testNow)
	state, _ = Apply(state, AddLine{Line: testLine("p1", 1999)}, testNow)

	next, _ := Apply(state, RemoveLine{ID: "missing"}, testNow)

	assert.Equal(t, state.Items, next.Items)
	assert.Equal(t, state.Total, next.Total)
}

func TestApplySetQuantityZeroRemovesLine(t *testing.T) {
	state := NewState(testNow)
	state, _ = Apply(state, AddLine{Line: testLine("p1", 1999)}, testNow)
	state, _ = Apply(state, AddLine{Line: testLine("p2", 500)}, testNow)

	next, _ := Apply(state, SetQuantity{ID: "p1", Quantity: 0}, testNow)

	require.Len(t, next.Items, 1)
	assert.Equal(t, "p2", next.Items[0].ID)

	next, _ = Apply(next, SetQuantity{ID: "p2", Quantity: -3}, testNow)
	assert.Empty(t, next.Items)
	assert.Zero(t, next.Total)
}

func TestApplySetQuantityUnknownLineIsNoop(t *testing.T) {
	state := NewState(testNow)
	state, _ = Apply(state, AddLine{Line: testLine("p1", 1999)}, testNow)

	next, effects := Apply(state, SetQuantity{ID: "missing", Quantity: 5}, testNow)

	assert.Equal(t, state.Items, next.Items)
	assert.Equal(t, 1, next.ItemCount)
	// Nothing changed locally, so no quantity change is mirrored.
	require.Len(t, effects, 1)
	assert.IsType(t, PersistEffect{}, effects[0])
}

func TestApplyClearPreservesIdentity(t *testing.T) {
	state := NewState(testNow)
	state, _ = Apply(state, SetUserID{UserID: "42"}, testNow)
	state, _ = Apply(state, AddLine{Line: testLine("p1", 1999)}, testNow)
	sessionID := state.SessionID

	next, effects := Apply(state, Clear{}, testNow)

	assert.Empty(t, next.Items)
	assert.Zero(t, next.Total)
	assert.Zero(t, next.ItemCount)
	assert.Equal(t, sessionID, next.SessionID)
	assert.Equal(t, "42", next.UserID)
	require.Len(t, effects, 1)
	assert.IsType(t, PersistEffect{}, effects[0])
}

func TestApplyMutationClearsAbandonedFlag(t *testing.T) {
	state := NewState(testNow)
	state, _ = Apply(state, AddLine{Line: testLine("p1", 1999)}, testNow)
	state, _ = Apply(state, MarkAbandoned{}, testNow)
	require.True(t, state.IsAbandoned)

	later := testNow.Add(time.Hour)
	next, _ := Apply(state, AddLine{Line: testLine("p2", 500)}, later)

	assert.False(t, next.IsAbandoned)
	assert.Equal(t, later, next.LastActivity)
}

func TestApplySetUserIDClearsAbandonedFlag(t *testing.T) {
	state := NewState(testNow)
	state, _ = Apply(state, AddLine{Line: testLine("p1", 1999)}, testNow)
	state, _ = Apply(state, MarkAbandoned{}, testNow)
	require.True(t, state.IsAbandoned)

	later := testNow.Add(time.Hour)
	next, _ := Apply(state, SetUserID{UserID: "42"}, later)

	assert.Equal(t, "42", next.UserID)
	assert.Equal(t, later, next.LastActivity)
	assert.False(t, next.IsAbandoned)
}

func TestApplyRemoveLineClearsAbandonedFlag(t *testing.T) {
	state := NewState(testNow)
	state, _ = Apply(state, AddLine{Line: testLine("p1", 1999)}, testNow)
	state, _ = Apply(state, AddLine{Line: testLine("p2", 500)}, testNow)
	state, _ = Apply(state, MarkAbandoned{}, testNow)
	require.True(t, state.IsAbandoned)

	later := testNow.Add(time.Hour)
	next, _ := Apply(state, RemoveLine{ID: "p1"}, later)

	require.Len(t, next.Items, 1)
	assert.Equal(t, later, next.LastActivity)
	assert.False(t, next.IsAbandoned)
}

func TestApplyPulseRefreshesActivityOnly(t *testing.T) {
	state := NewState(testNow)
	state, _ = Apply(state, AddLine{Line: testLine("p1", 1999)}, testNow)
	state, _ = Apply(state, MarkAbandoned{}, testNow)

	later := testNow.Add(10 * time.Minute)
	next, _ := Apply(state, Pulse{}, later)

	assert.Equal(t, state.Items, next.Items)
	assert.Equal(t, later, next.LastActivity)
	assert.False(t, next.IsAbandoned)
}

func TestApplyMarkAbandonedKeepsActivityTimestamp(t *testing.T) {
	state := NewState(testNow)
	state, _ = Apply(state, AddLine{Line: testLine("p1", 1999)}, testNow)

	later := testNow.Add(45 * time.Minute)
	next, _ := Apply(state, MarkAbandoned{}, later)

	assert.True(t, next.IsAbandoned)
	assert.Equal(t, testNow, next.LastActivity)
}

func TestApplyRestoreSanitizesSnapshot(t *testing.T) {
	snapshot := State{
		Items: []Line{
			{ID: "p1", Price: 1000, Quantity: 2},
			{ID: "", Price: 500, Quantity: 1},   // no id
			{ID: "p2", Price: 300, Quantity: 0}, // zero quantity
			{ID: "p1", Price: 9999, Quantity: 5}, // duplicate id
		},
		Total:     -100, // stored totals are never trusted
		ItemCount: 99,
		SessionID: "sess_restore",
	}

	next, effects := Apply(State{}, Restore{Snapshot: snapshot}, testNow)

	require.Len(t, next.Items, 1)
	assert.Equal(t, "p1", next.Items[0].ID)
	assert.Equal(t, int64(1000), next.Items[0].Price)
	assert.Equal(t, int64(2000), next.Total)
	assert.Equal(t, 2, next.ItemCount)
	assert.Equal(t, "sess_restore", next.SessionID)
	assert.Equal(t, testNow, next.LastActivity)
	assert.Empty(t, effects)
}

func TestApplyRestoreNilItemsYieldsEmptyCart(t *testing.T) {
	next, _ := Apply(State{}, Restore{Snapshot: State{SessionID: "sess_x", IsAbandoned: true}}, testNow)

	require.NotNil(t, next.Items)
	assert.Empty(t, next.Items)
	// An empty cart cannot be abandoned.
	assert.False(t, next.IsAbandoned)
}

func TestApplyDoesNotMutatePreviousState(t *testing.T) {
	state := NewState(testNow)
	state, _ = Apply(state, AddLine{Line: testLine("p1", 1999)}, testNow)

	before := state.Items[0].Quantity
	next, _ := Apply(state, AddLine{Line: testLine("p1", 1999)}, testNow)
	next.Items[0].Quantity = 100

	assert.Equal(t, before, state.Items[0].Quantity)
}

func TestApplyUnknownActionIsNoop(t *testing.T) {
	state := NewState(testNow)
	state, _ = Apply(state, AddLine{Line: testLine("p1", 1999)}, testNow)

	next, effects := Apply(state, nil, testNow)

	assert.Equal(t, state, next)
	assert.Empty(t, effects)
}
