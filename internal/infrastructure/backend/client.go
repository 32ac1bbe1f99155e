// Package backend is the client of the remote record store the rest of
// the app shares. Only the username lookup is needed here; the record
// store is treated as an opaque key-value service.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"medremind/internal/pkg/logger"
)

// Client reads records from the remote store over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	log     logger.Logger
}

// NewClient creates a record-store client from the BACKEND_BASE_URL
// environment variable. An empty base URL yields a client whose lookups
// always fail, which callers treat as "use the fallback value".
func NewClient(log logger.Logger) *Client {
	baseURL := os.Getenv("BACKEND_BASE_URL")
	if baseURL == "" {
		log.Warn("BACKEND_BASE_URL environment variable not set; username lookups will use the fallback")
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Second},
		log:     log,
	}
}

// LookupUsername resolves the display name of the local user from the
// remote store's /readdata endpoint.
func (c *Client) LookupUsername(ctx context.Context) (string, error) {
	if c.baseURL == "" {
		return "", fmt.Errorf("record store not configured")
	}

	reqURL := fmt.Sprintf("%s/readdata?key=%s", c.baseURL, url.QueryEscape("username"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build readdata request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("readdata request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("readdata returned status %d", resp.StatusCode)
	}

	var body struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode readdata response: %w", err)
	}
	if body.Value == "" {
		return "", fmt.Errorf("record store has no username")
	}
	return body.Value, nil
}
