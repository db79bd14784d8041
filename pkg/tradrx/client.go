// Package tradrx is a Go client for the tradrx ledger HTTP API.
package tradrx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tradrx/internal/util"
)

// DefaultURL is the server address used when none is configured.
const DefaultURL = "http://localhost:5001"

// Client provides a Go SDK for interacting with the tradrx-server API.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	maxAttempts int
	retryDelay  time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetry sets how many times read requests are attempted and the initial
// backoff between attempts. Mutations are never retried.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(c *Client) {
		if maxAttempts < 1 {
			maxAttempts = 1
		}
		c.maxAttempts = maxAttempts
		c.retryDelay = baseDelay
	}
}

// NewClient creates a new tradrx API client. An empty baseURL uses
// DefaultURL.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		maxAttempts: 3,
		retryDelay:  200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the server address the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// PlaceTrade books a trade and returns it with its assigned id.
func (c *Client) PlaceTrade(ctx context.Context, symbol, action string, quantity, price float64) (*Trade, error) {
	req := placeTradeRequest{Symbol: symbol, Action: action, Quantity: quantity, Price: price}
	var resp placeTradeResponse
	if err := c.do(ctx, http.MethodPost, "/trade", req, &resp); err != nil {
		return nil, err
	}
	return &resp.Trade, nil
}

// CancelTrade cancels an active trade.
func (c *Client) CancelTrade(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/trades/"+strconv.FormatInt(id, 10), nil, nil)
}

// GetTrade retrieves a single active trade.
func (c *Client) GetTrade(ctx context.Context, id int64) (*Trade, error) {
	var t Trade
	if err := c.get(ctx, "/trades/"+strconv.FormatInt(id, 10), &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTrades retrieves the active trades in placement order.
func (c *Client) ListTrades(ctx context.Context) ([]Trade, error) {
	var trades []Trade
	if err := c.get(ctx, "/trades", &trades); err != nil {
		return nil, err
	}
	return trades, nil
}

// ListPositions retrieves the net position per symbol.
func (c *Client) ListPositions(ctx context.Context) (map[string]float64, error) {
	var positions map[string]float64
	if err := c.get(ctx, "/positions", &positions); err != nil {
		return nil, err
	}
	return positions, nil
}

// Stats retrieves per-symbol trade statistics.
func (c *Client) Stats(ctx context.Context) (map[string]SymbolStats, error) {
	var stats map[string]SymbolStats
	if err := c.get(ctx, "/stats", &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

// get issues an idempotent GET, retrying transport errors and 5xx responses.
func (c *Client) get(ctx context.Context, path string, out any) error {
	return util.Retry(ctx, c.maxAttempts, c.retryDelay, func(ctx context.Context) error {
		err := c.do(ctx, http.MethodGet, path, nil, out)
		if apiErr, ok := err.(*APIError); ok && apiErr.StatusCode < http.StatusInternalServerError {
			return util.Permanent(err)
		}
		return err
	})
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var e errorResponse
		if json.Unmarshal(data, &e) == nil {
			apiErr.Message = e.Error
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
