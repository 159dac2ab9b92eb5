package cart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPReporterPostsReport(t *testing.T) {
	var received Report
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	reporter := NewHTTPReporter(server.URL)
	report := Report{
		SessionID:   "sess_x",
		UserID:      "42",
		Items:       []Line{{ID: "p1", Price: 1999, Quantity: 2}},
		Total:       3998,
		AbandonedAt: testNow,
		UserAgent:   "test-agent/1.0",
		URL:         "https://shop.example.com/cart",
	}

	require.NoError(t, reporter.Report(context.Background(), report))
	assert.Equal(t, report.SessionID, received.SessionID)
	assert.Equal(t, report.UserID, received.UserID)
	assert.Equal(t, report.Total, received.Total)
	require.Len(t, received.Items, 1)
	assert.Equal(t, "p1", received.Items[0].ID)
	assert.True(t, report.AbandonedAt.Equal(received.AbandonedAt))
}

func TestHTTPReporterRejectsNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	reporter := NewHTTPReporter(server.URL)
	err := reporter.Report(context.Background(), Report{SessionID: "sess_x"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestHTTPReporterConnectionFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	reporter := NewHTTPReporter(server.URL)
	err := reporter.Report(context.Background(), Report{SessionID: "sess_x"})
	assert.Error(t, err)
}
