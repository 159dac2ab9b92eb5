// internal/domain/cart/reporter.go
package cart

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Report is the abandonment notification sent to the ingestion endpoint.
type Report struct {
	SessionID   string    `json:"session_id"`
	UserID      string    `json:"user_id,omitempty"`
	Items       []Line    `json:"items"`
	Total       int64     `json:"total"`
	AbandonedAt time.Time `json:"abandoned_at"`
	UserAgent   string    `json:"user_agent,omitempty"`
	URL         string    `json:"url,omitempty"`
}

// Reporter delivers abandonment reports. Delivery is best-effort: the
// local abandoned flag stays set whether or not the report lands.
type Reporter interface {
	Report(ctx context.Context, report Report) error
}

// HTTPReporter posts abandonment reports as JSON. Any 2xx response is
// accepted and the body ignored.
type HTTPReporter struct {
	endpoint string
	client   *http.Client
}

// NewHTTPReporter creates a reporter for the given ingestion endpoint.
func NewHTTPReporter(endpoint string) *HTTPReporter {
	return &HTTPReporter{
		endpoint: endpoint,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Report sends one abandonment notification.
func (r *HTTPReporter) Report(ctx context.Context, report Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode abandonment report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build abandonment report request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send abandonment report: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("abandonment report rejected with status %d", resp.StatusCode)
	}

	return nil
}
