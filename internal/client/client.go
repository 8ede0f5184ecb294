// Package client talks to the reading store over HTTP, the way the
// dashboards and bench tools do.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/sony/gobreaker"

	"github.com/syakhish/weather-monitor/internal/reading"
	"github.com/syakhish/weather-monitor/internal/resilience"
)

// Client reads and appends readings through the store's HTTP endpoints.
type Client struct {
	baseURL string
	httpCfg resilience.HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// New creates a Client for the server at baseURL (scheme and host, e.g.
// http://localhost:8080).
func New(httpClient *http.Client, baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpCfg: resilience.HTTPClientConfig{
			Client:  httpClient,
			Backoff: resilience.DefaultBackoff,
		},
		circuit: resilience.NewBreaker("reading-store"),
	}
}

// WithBackoff overrides the retry policy of reads.
func (c *Client) WithBackoff(b resilience.BackoffConfig) *Client {
	c.httpCfg.Backoff = b
	return c
}

// Readings fetches the full reading log, oldest first.
func (c *Client) Readings(ctx context.Context) ([]reading.Reading, error) {
	buildRequest := func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, c.baseURL+"/get_data", nil)
	}

	resp, err := resilience.Do(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		return nil, fmt.Errorf("fetch readings: %w", err)
	}
	defer resp.Body.Close()

	var entries []reading.Reading
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode readings: %w", err)
	}
	if entries == nil {
		entries = []reading.Reading{}
	}
	return entries, nil
}

// Push appends one reading. Pushes are not retried: a retry after a lost
// response could store the reading twice.
func (c *Client) Push(ctx context.Context, r reading.Reading) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode reading: %w", err)
	}

	buildRequest := func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, c.baseURL+"/update_data", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}

	cfg := c.httpCfg
	cfg.Backoff.MaxRetries = 0

	resp, err := resilience.Do(ctx, cfg, c.circuit, buildRequest)
	if err != nil {
		return fmt.Errorf("push reading: %w", err)
	}
	resp.Body.Close()
	return nil
}
