package cart

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() *Service {
	return &Service{
		stores:    make(map[string]*Store),
		persist:   newMemPersistence(),
		clock:     newFakeClock(testNow),
		threshold: 30 * time.Minute,
		logger:    quietLogger(),
	}
}

func TestServiceStoreCachedPerSession(t *testing.T) {
	svc := newTestService()
	defer svc.Close()

	store := svc.Store("")
	sessionID := store.SessionID()
	require.NotEmpty(t, sessionID)

	assert.Same(t, store, svc.Store(sessionID))
}

func TestServiceStoreDistinctSessions(t *testing.T) {
	svc := newTestService()
	defer svc.Close()

	first := svc.Store("")
	second := svc.Store("")

	assert.NotSame(t, first, second)
	assert.NotEqual(t, first.SessionID(), second.SessionID())
}

func TestServiceReleaseEvictsStore(t *testing.T) {
	svc := newTestService()
	defer svc.Close()

	store := svc.Store("")
	store.Add(testLine("p1", 1999))
	sessionID := store.SessionID()

	require.Eventually(t, func() bool {
		state, ok := svc.persist.Load(context.Background(), sessionID)
		return ok && state.ItemCount == 1
	}, 2*time.Second, 10*time.Millisecond)

	svc.Release(sessionID)

	// A new store is built for the same session and restores the snapshot.
	rebuilt := svc.Store(sessionID)
	assert.NotSame(t, store, rebuilt)
	assert.Equal(t, sessionID, rebuilt.SessionID())
	assert.Equal(t, 1, rebuilt.Snapshot().ItemCount)
}

func TestServiceCloseTearsDownAllStores(t *testing.T) {
	svc := newTestService()

	first := svc.Store("")
	second := svc.Store("")
	first.Add(testLine("p1", 1999))

	svc.Close()

	// Stores are closed: mutations no longer apply.
	state := first.Add(testLine("p2", 500))
	assert.Equal(t, 1, state.ItemCount)
	assert.True(t, second.Add(testLine("p1", 100)).IsEmpty())
	assert.Empty(t, svc.stores)
}
