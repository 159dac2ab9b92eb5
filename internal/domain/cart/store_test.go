package cart

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock. Timers fire synchronously from
// Advance, which makes abandonment deterministic in tests.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	when    time.Time
	fn      func()
	stopped bool
	fired   bool
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, when: c.now.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	remaining := c.timers[:0]
	for _, t := range c.timers {
		switch {
		case t.stopped:
		case !t.when.After(c.now):
			t.fired = true
			due = append(due, t)
		default:
			remaining = append(remaining, t)
		}
	}
	c.timers = remaining
	c.mu.Unlock()

	for _, t := range due {
		t.fn()
	}
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// memPersistence is an in-memory Persistence for tests.
type memPersistence struct {
	mu    sync.Mutex
	saved map[string]State
}

func newMemPersistence() *memPersistence {
	return &memPersistence{saved: make(map[string]State)}
}

func (p *memPersistence) Save(ctx context.Context, state State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saved[state.SessionID] = state
}

func (p *memPersistence) Load(ctx context.Context, sessionID string) (State, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	state, ok := p.saved[sessionID]
	return state, ok
}

func (p *memPersistence) get(sessionID string) (State, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	state, ok := p.saved[sessionID]
	return state, ok
}

// chanReporter forwards abandonment reports to a channel.
type chanReporter struct {
	reports chan Report
}

func newChanReporter() *chanReporter {
	return &chanReporter{reports: make(chan Report, 4)}
}

func (r *chanReporter) Report(ctx context.Context, report Report) error {
	r.reports <- report
	return nil
}

func (r *chanReporter) wait(t *testing.T) Report {
	t.Helper()
	select {
	case report := <-r.reports:
		return report
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for abandonment report")
		return Report{}
	}
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestStore(clock *fakeClock, persist Persistence, reporter Reporter) *Store {
	return NewStore(Options{
		Persistence:  persist,
		Reporter:     reporter,
		Clock:        clock,
		AbandonAfter: 30 * time.Minute,
		Logger:       quietLogger(),
	})
}

func TestStoreMutationFlow(t *testing.T) {
	clock := newFakeClock(testNow)
	store := newTestStore(clock, newMemPersistence(), nil)
	defer store.Close()

	state := store.Add(testLine("p1", 1999))
	assert.Equal(t, 1, state.ItemCount)

	state = store.Add(testLine("p1", 1999))
	assert.Equal(t, 2, state.ItemCount)
	assert.Equal(t, int64(3998), state.Total)

	state = store.SetQuantity("p1", 5)
	assert.Equal(t, 5, state.ItemCount)

	state = store.Remove("p1")
	assert.True(t, state.IsEmpty())
}

func TestStoreAbandonsAfterThreshold(t *testing.T) {
	clock := newFakeClock(testNow)
	reporter := newChanReporter()
	store := newTestStore(clock, newMemPersistence(), reporter)
	defer store.Close()

	store.SetUserID("42")
	store.Add(testLine("p1", 1999))
	store.SetClientContext("test-agent/1.0", "https://shop.example.com/checkout")

	clock.Advance(30 * time.Minute)

	assert.True(t, store.Snapshot().IsAbandoned)

	report := reporter.wait(t)
	assert.Equal(t, store.SessionID(), report.SessionID)
	assert.Equal(t, "42", report.UserID)
	require.Len(t, report.Items, 1)
	assert.Equal(t, "p1", report.Items[0].ID)
	assert.Equal(t, int64(1999), report.Total)
	assert.Equal(t, testNow.Add(30*time.Minute), report.AbandonedAt)
	assert.Equal(t, "test-agent/1.0", report.UserAgent)
	assert.Equal(t, "https://shop.example.com/checkout", report.URL)
}

func TestStoreActivityRearmsAbandonment(t *testing.T) {
	clock := newFakeClock(testNow)
	reporter := newChanReporter()
	store := newTestStore(clock, newMemPersistence(), reporter)
	defer store.Close()

	store.Add(testLine("p1", 1999))

	clock.Advance(29 * time.Minute)
	store.Pulse()
	clock.Advance(29 * time.Minute)
	assert.False(t, store.Snapshot().IsAbandoned)

	clock.Advance(time.Minute)
	assert.True(t, store.Snapshot().IsAbandoned)
	reporter.wait(t)
}

func TestStoreMutationResetsAbandonedFlag(t *testing.T) {
	clock := newFakeClock(testNow)
	reporter := newChanReporter()
	store := newTestStore(clock, newMemPersistence(), reporter)
	defer store.Close()

	store.Add(testLine("p1", 1999))
	clock.Advance(30 * time.Minute)
	require.True(t, store.Snapshot().IsAbandoned)
	reporter.wait(t)

	state := store.Add(testLine("p2", 500))
	assert.False(t, state.IsAbandoned)

	// The timer is armed again after recovery.
	clock.Advance(30 * time.Minute)
	assert.True(t, store.Snapshot().IsAbandoned)
	reporter.wait(t)
}

func TestStoreEmptyCartNeverAbandoned(t *testing.T) {
	clock := newFakeClock(testNow)
	reporter := newChanReporter()
	store := newTestStore(clock, newMemPersistence(), reporter)
	defer store.Close()

	clock.Advance(2 * time.Hour)

	assert.False(t, store.Snapshot().IsAbandoned)
	select {
	case <-reporter.reports:
		t.Fatal("unexpected abandonment report for empty cart")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStoreCloseStopsMonitor(t *testing.T) {
	clock := newFakeClock(testNow)
	reporter := newChanReporter()
	store := newTestStore(clock, newMemPersistence(), reporter)

	store.Add(testLine("p1", 1999))
	store.Close()

	clock.Advance(2 * time.Hour)

	assert.False(t, store.Snapshot().IsAbandoned)
	select {
	case <-reporter.reports:
		t.Fatal("unexpected abandonment report after close")
	case <-time.After(50 * time.Millisecond):
	}

	// Mutations after close are no-ops.
	state := store.Add(testLine("p2", 500))
	assert.Equal(t, 1, state.ItemCount)
}

func TestStorePersistsSnapshots(t *testing.T) {
	clock := newFakeClock(testNow)
	persist := newMemPersistence()
	store := newTestStore(clock, persist, nil)
	defer store.Close()

	store.Add(testLine("p1", 1999))

	require.Eventually(t, func() bool {
		state, ok := persist.get(store.SessionID())
		return ok && state.ItemCount == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStoreRestoresFromPersistence(t *testing.T) {
	clock := newFakeClock(testNow)
	persist := newMemPersistence()
	persist.Save(context.Background(), State{
		Items:        []Line{{ID: "p1", Name: "Product p1", Price: 1999, Quantity: 2}},
		SessionID:    "sess_seeded",
		UserID:       "42",
		LastActivity: testNow.Add(-5 * time.Minute),
	})

	store := NewStore(Options{
		SessionID:    "sess_seeded",
		Persistence:  persist,
		Clock:        clock,
		AbandonAfter: 30 * time.Minute,
		Logger:       quietLogger(),
	})
	defer store.Close()

	state := store.Snapshot()
	assert.Equal(t, "sess_seeded", state.SessionID)
	assert.Equal(t, "42", state.UserID)
	require.Len(t, state.Items, 1)
	assert.Equal(t, int64(3998), state.Total)
}

func TestStoreMissingSnapshotKeepsSessionID(t *testing.T) {
	clock := newFakeClock(testNow)
	store := NewStore(Options{
		SessionID:    "sess_unknown",
		Persistence:  newMemPersistence(),
		Clock:        clock,
		AbandonAfter: 30 * time.Minute,
		Logger:       quietLogger(),
	})
	defer store.Close()

	state := store.Snapshot()
	assert.Equal(t, "sess_unknown", state.SessionID)
	assert.True(t, state.IsEmpty())
}

func TestStoreFreshCartGeneratesSessionID(t *testing.T) {
	clock := newFakeClock(testNow)
	store := newTestStore(clock, newMemPersistence(), nil)
	defer store.Close()

	assert.NotEmpty(t, store.SessionID())
	assert.Contains(t, store.SessionID(), "sess_")
}

func TestStoreRestoredStaleCartAbandonsPromptly(t *testing.T) {
	clock := newFakeClock(testNow)
	persist := newMemPersistence()
	persist.Save(context.Background(), State{
		Items:        []Line{{ID: "p1", Price: 1999, Quantity: 1}},
		SessionID:    "sess_stale",
		LastActivity: testNow.Add(-time.Hour),
	})
	reporter := newChanReporter()

	store := NewStore(Options{
		SessionID:    "sess_stale",
		Persistence:  persist,
		Reporter:     reporter,
		Clock:        clock,
		AbandonAfter: 30 * time.Minute,
		Logger:       quietLogger(),
	})
	defer store.Close()

	// Activity is already past the threshold; the rescheduled timer fires
	// with zero delay on the next clock tick.
	clock.Advance(0)

	assert.True(t, store.Snapshot().IsAbandoned)
	reporter.wait(t)
}
