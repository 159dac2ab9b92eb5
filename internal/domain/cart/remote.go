// internal/domain/cart/remote.go
package cart

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Identity addresses a remote cart. An authenticated user ID takes
// precedence over the anonymous session ID.
type Identity struct {
	SessionID string
	UserID    string
}

// RemoteLine is one line of the remote cart service's representation.
type RemoteLine struct {
	VariantID string `json:"variantId"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unitPrice"`
	Quantity  int    `json:"quantity"`
	Image     string `json:"image"`
	Slug      string `json:"slug"`
}

// RemoteCartState is the remote service's view of a cart.
type RemoteCartState struct {
	ID    string       `json:"id"`
	Items []RemoteLine `json:"items"`
}

// Lines converts the remote representation into local cart lines.
func (rs *RemoteCartState) Lines() []Line {
	lines := make([]Line, 0, len(rs.Items))
	for _, item := range rs.Items {
		lines = append(lines, Line{
			ID:       item.VariantID,
			Name:     item.Name,
			Image:    item.Image,
			Slug:     item.Slug,
			Price:    item.UnitPrice,
			Quantity: item.Quantity,
		})
	}
	return lines
}

// RemoteCart is the remote cart service consumed in server-backed mode.
// All mutation calls are fire-and-forget from the store's point of view.
// Fetch returns a nil state without error when the remote has no cart
// for the identity.
type RemoteCart interface {
	Fetch(ctx context.Context, identity Identity) (*RemoteCartState, error)
	AddLine(ctx context.Context, identity Identity, line Line) (cartID string, err error)
	UpdateLine(ctx context.Context, cartID string, identity Identity, lineID string, quantity int) error
	RemoveLine(ctx context.Context, cartID string, identity Identity, lineID string) error
}

// HTTPRemoteCart talks to the remote cart service over JSON/HTTP.
type HTTPRemoteCart struct {
	baseURL  string
	currency string
	client   *http.Client
}

// NewHTTPRemoteCart creates a client for the remote cart service.
// Currency is a flat pass-through field on add calls.
func NewHTTPRemoteCart(baseURL, currency string) *HTTPRemoteCart {
	if currency == "" {
		currency = "usd"
	}
	return &HTTPRemoteCart{
		baseURL:  baseURL,
		currency: currency,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Fetch retrieves the authoritative cart for an identity. A 404 means
// the remote simply has no cart yet; that is not an error and must not
// overwrite local state, so it comes back as a nil state.
func (c *HTTPRemoteCart) Fetch(ctx context.Context, identity Identity) (*RemoteCartState, error) {
	query := url.Values{}
	if identity.UserID != "" {
		query.Set("userId", identity.UserID)
	} else {
		query.Set("sessionId", identity.SessionID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/cart?%s", c.baseURL, query.Encode()), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build remote cart request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch remote cart: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("remote cart fetch failed with status %d", resp.StatusCode)
	}

	var state RemoteCartState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return nil, fmt.Errorf("failed to decode remote cart: %w", err)
	}
	return &state, nil
}

// AddLine mirrors an add mutation and returns the remote-assigned cart ID
// when the service provides one.
func (c *HTTPRemoteCart) AddLine(ctx context.Context, identity Identity, line Line) (string, error) {
	payload := map[string]interface{}{
		"productId": line.ID,
		"variantId": line.ID,
		"quantity":  1,
		"unitPrice": line.Price,
		"currency":  c.currency,
	}
	addIdentity(payload, "", identity)

	var result struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, "/cart/items", payload, &result); err != nil {
		return "", err
	}
	return result.ID, nil
}

// UpdateLine mirrors a quantity change.
func (c *HTTPRemoteCart) UpdateLine(ctx context.Context, cartID string, identity Identity, lineID string, quantity int) error {
	payload := map[string]interface{}{
		"variantId": lineID,
		"quantity":  quantity,
	}
	addIdentity(payload, cartID, identity)
	return c.post(ctx, "/cart/items/update", payload, nil)
}

// RemoveLine mirrors a removal.
func (c *HTTPRemoteCart) RemoveLine(ctx context.Context, cartID string, identity Identity, lineID string) error {
	payload := map[string]interface{}{
		"variantId": lineID,
	}
	addIdentity(payload, cartID, identity)
	return c.post(ctx, "/cart/items/remove", payload, nil)
}

// addIdentity sets the addressing fields: the remote cart ID wins once
// known, raw identity otherwise, with user ID preferred over session ID.
func addIdentity(payload map[string]interface{}, cartID string, identity Identity) {
	if cartID != "" {
		payload["cartId"] = cartID
		return
	}
	if identity.UserID != "" {
		payload["userId"] = identity.UserID
		return
	}
	payload["sessionId"] = identity.SessionID
}

func (c *HTTPRemoteCart) post(ctx context.Context, path string, payload interface{}, result interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode remote cart payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build remote cart request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("remote cart call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("remote cart call failed with status %d", resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode remote cart response: %w", err)
		}
	}
	return nil
}
