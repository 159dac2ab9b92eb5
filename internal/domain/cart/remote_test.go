package cart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoteCartFetchByIdentity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cart", r.URL.Path)
		assert.Equal(t, "42", r.URL.Query().Get("userId"))
		assert.Empty(t, r.URL.Query().Get("sessionId"))

		json.NewEncoder(w).Encode(RemoteCartState{
			ID: "remote-cart-1",
			Items: []RemoteLine{
				{VariantID: "p1", Name: "Product p1", UnitPrice: 1999, Quantity: 2, Slug: "product-p1"},
			},
		})
	}))
	defer server.Close()

	client := NewHTTPRemoteCart(server.URL, "usd")
	state, err := client.Fetch(context.Background(), Identity{SessionID: "sess_x", UserID: "42"})

	require.NoError(t, err)
	assert.Equal(t, "remote-cart-1", state.ID)
	lines := state.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "p1", lines[0].ID)
	assert.Equal(t, int64(1999), lines[0].Price)
	assert.Equal(t, 2, lines[0].Quantity)
}

func TestRemoteCartFetchFallsBackToSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sess_x", r.URL.Query().Get("sessionId"))
		json.NewEncoder(w).Encode(RemoteCartState{Items: []RemoteLine{}})
	}))
	defer server.Close()

	client := NewHTTPRemoteCart(server.URL, "usd")
	_, err := client.Fetch(context.Background(), Identity{SessionID: "sess_x"})
	require.NoError(t, err)
}

func TestRemoteCartFetchNotFoundMeansNoCart(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewHTTPRemoteCart(server.URL, "usd")
	state, err := client.Fetch(context.Background(), Identity{SessionID: "sess_x"})

	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestRemoteCartFetchServerErrorFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewHTTPRemoteCart(server.URL, "usd")
	_, err := client.Fetch(context.Background(), Identity{SessionID: "sess_x"})
	assert.Error(t, err)
}

func TestRemoteCartAddLinePayload(t *testing.T) {
	var payload map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cart/items", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		json.NewEncoder(w).Encode(map[string]string{"id": "remote-cart-9"})
	}))
	defer server.Close()

	client := NewHTTPRemoteCart(server.URL, "eur")
	cartID, err := client.AddLine(context.Background(), Identity{SessionID: "sess_x"}, testLine("p1", 1999))

	require.NoError(t, err)
	assert.Equal(t, "remote-cart-9", cartID)
	assert.Equal(t, "p1", payload["productId"])
	assert.Equal(t, "p1", payload["variantId"])
	assert.Equal(t, float64(1), payload["quantity"])
	assert.Equal(t, float64(1999), payload["unitPrice"])
	assert.Equal(t, "eur", payload["currency"])
	assert.Equal(t, "sess_x", payload["sessionId"])
	assert.NotContains(t, payload, "userId")
}

func TestAddIdentityPrecedence(t *testing.T) {
	identity := Identity{SessionID: "sess_x", UserID: "42"}

	// A known remote cart ID beats everything.
	payload := map[string]interface{}{}
	addIdentity(payload, "cart-7", identity)
	assert.Equal(t, "cart-7", payload["cartId"])
	assert.NotContains(t, payload, "userId")
	assert.NotContains(t, payload, "sessionId")

	// Without one, user ID wins over session ID.
	payload = map[string]interface{}{}
	addIdentity(payload, "", identity)
	assert.Equal(t, "42", payload["userId"])
	assert.NotContains(t, payload, "sessionId")

	// Anonymous identity falls back to the session.
	payload = map[string]interface{}{}
	addIdentity(payload, "", Identity{SessionID: "sess_x"})
	assert.Equal(t, "sess_x", payload["sessionId"])
}

func TestStoreReconcileOverwritesLocalItems(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			json.NewEncoder(w).Encode(RemoteCartState{
				ID: "remote-cart-1",
				Items: []RemoteLine{
					{VariantID: "srv1", Name: "Server Product", UnitPrice: 4200, Quantity: 3},
				},
			})
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	persist := newMemPersistence()
	persist.Save(context.Background(), State{
		Items:        []Line{{ID: "local1", Price: 100, Quantity: 1}},
		SessionID:    "sess_reconcile",
		UserID:       "42",
		LastActivity: testNow,
	})

	store := NewStore(Options{
		SessionID:    "sess_reconcile",
		Persistence:  persist,
		Remote:       NewHTTPRemoteCart(server.URL, "usd"),
		Clock:        newFakeClock(testNow),
		AbandonAfter: 30 * time.Minute,
		Logger:       quietLogger(),
	})
	defer store.Close()

	require.Eventually(t, func() bool {
		state := store.Snapshot()
		return len(state.Items) == 1 && state.Items[0].ID == "srv1"
	}, 2*time.Second, 10*time.Millisecond)

	state := store.Snapshot()
	assert.Equal(t, "sess_reconcile", state.SessionID)
	assert.Equal(t, "42", state.UserID)
	assert.Equal(t, int64(12600), state.Total)
}

func TestStoreReconcileMissingRemoteCartKeepsLocalItems(t *testing.T) {
	var fetched sync.WaitGroup
	fetched.Add(1)
	var once sync.Once
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			once.Do(fetched.Done)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	persist := newMemPersistence()
	persist.Save(context.Background(), State{
		Items:        []Line{{ID: "local1", Name: "Local Product", Price: 100, Quantity: 1}},
		SessionID:    "sess_no_remote",
		LastActivity: testNow,
	})

	store := NewStore(Options{
		SessionID:    "sess_no_remote",
		Persistence:  persist,
		Remote:       NewHTTPRemoteCart(server.URL, "usd"),
		Clock:        newFakeClock(testNow),
		AbandonAfter: 30 * time.Minute,
		Logger:       quietLogger(),
	})
	defer store.Close()

	// A remote without a cart for this identity must not wipe the
	// locally restored one. Give the reconcile goroutine time to run
	// past the fetch before asserting.
	fetched.Wait()
	time.Sleep(50 * time.Millisecond)
	state := store.Snapshot()
	require.Len(t, state.Items, 1)
	assert.Equal(t, "local1", state.Items[0].ID)
	assert.Equal(t, int64(100), state.Total)
}

func TestStoreMirrorFailureKeepsLocalState(t *testing.T) {
	var calls sync.WaitGroup
	calls.Add(1)
	var once sync.Once
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			once.Do(calls.Done)
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	store := NewStore(Options{
		Persistence:  newMemPersistence(),
		Remote:       NewHTTPRemoteCart(server.URL, "usd"),
		Clock:        newFakeClock(testNow),
		AbandonAfter: 30 * time.Minute,
		Logger:       quietLogger(),
	})
	defer store.Close()

	state := store.Add(testLine("p1", 1999))

	// The local mutation commits regardless of the mirror outcome.
	assert.Equal(t, 1, state.ItemCount)
	calls.Wait()
	assert.Equal(t, 1, store.Snapshot().ItemCount)
}
