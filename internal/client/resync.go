package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"relay/internal/core/application/usecases/queries"
)

// OrderSnapshotURL maps a relay websocket endpoint to its order resync route.
func OrderSnapshotURL(wsURL, orderID string) (string, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return "", fmt.Errorf("parse relay url: %w", err)
	}
	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	}
	base := strings.TrimSuffix(u.Path, "/ws") + "/api/v1/orders/"
	u.Path = base + orderID
	u.RawPath = base + url.PathEscape(orderID)
	u.RawQuery = ""
	return u.String(), nil
}

// FetchOrder reads the relay's cached snapshot of an order.
func FetchOrder(ctx context.Context, httpClient *http.Client, wsURL, orderID string) (queries.GetOrderQueryResponse, error) {
	var snapshot queries.GetOrderQueryResponse

	target, err := OrderSnapshotURL(wsURL, orderID)
	if err != nil {
		return snapshot, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return snapshot, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return snapshot, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return snapshot, fmt.Errorf("fetch order %s: unexpected status %d", orderID, resp.StatusCode)
	}
	if err = json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return snapshot, fmt.Errorf("decode order %s: %w", orderID, err)
	}
	return snapshot, nil
}
