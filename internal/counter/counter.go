// Package counter reads and increments the beta-signup counter held in a
// remote key-value store exposing an Upstash-style REST interface. Every
// failure mode is non-fatal: callers substitute a hardcoded fallback.
package counter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrUnconfigured is returned when no store URL or token is set.
var ErrUnconfigured = errors.New("counter: store not configured")

// Client talks to the remote counter store.
type Client struct {
	restURL    string
	token      string
	httpClient *http.Client
}

// New creates a counter client. Empty URL or token leaves the client in
// unconfigured mode; Get/Incr then fail with ErrUnconfigured.
func New(restURL, token string) *Client {
	return &Client{
		restURL: strings.TrimRight(restURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Get returns the current value of key, treating a missing key as zero.
func (c *Client) Get(ctx context.Context, key string) (int, error) {
	var out struct {
		Result *string `json:"result"`
	}
	if err := c.do(ctx, "/get/"+url.PathEscape(key), &out); err != nil {
		return 0, err
	}
	if out.Result == nil {
		return 0, nil
	}
	n, err := strconv.Atoi(*out.Result)
	if err != nil {
		return 0, fmt.Errorf("counter value not numeric: %w", err)
	}
	return n, nil
}

// Incr increments key by one and returns the new value.
func (c *Client) Incr(ctx context.Context, key string) (int, error) {
	var out struct {
		Result int `json:"result"`
	}
	if err := c.do(ctx, "/incr/"+url.PathEscape(key), &out); err != nil {
		return 0, err
	}
	return out.Result, nil
}

func (c *Client) do(ctx context.Context, path string, out any) error {
	if c.restURL == "" || c.token == "" {
		return ErrUnconfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.restURL+path, nil)
	if err != nil {
		return fmt.Errorf("build counter request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("counter store request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("counter store returned %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode counter response: %w", err)
	}
	return nil
}
