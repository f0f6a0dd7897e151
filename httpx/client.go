package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"time"
)

// RetryConfig configures retry behavior for transient failures.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial).
	// Default: 3
	MaxAttempts int

	// InitialDelay is the delay before the first retry.
	// Default: 100ms
	InitialDelay time.Duration

	// MaxDelay caps the delay between retries.
	// Default: 2s
	MaxDelay time.Duration

	// Multiplier is the exponential backoff multiplier.
	// Default: 2.0
	Multiplier float64

	// Jitter adds randomness to delays to prevent thundering herd.
	// Default: true (disable with NoJitter)
	NoJitter bool
}

// Config configures the Client.
type Config struct {
	// Timeout is the per-request timeout.
	// Default: 10 seconds
	Timeout time.Duration

	// Retry configures retries for transient failures.
	Retry RetryConfig

	// HTTPClient is the underlying HTTP client.
	// If nil, a default client is used.
	HTTPClient *http.Client
}

// Client is a JSON HTTP client with per-request timeouts and retries.
type Client struct {
	config Config
}

// NewClient creates a client, applying defaults.
func NewClient(config Config) *Client {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.Retry.MaxAttempts <= 0 {
		config.Retry.MaxAttempts = 3
	}
	if config.Retry.InitialDelay <= 0 {
		config.Retry.InitialDelay = 100 * time.Millisecond
	}
	if config.Retry.MaxDelay <= 0 {
		config.Retry.MaxDelay = 2 * time.Second
	}
	if config.Retry.Multiplier <= 0 {
		config.Retry.Multiplier = 2.0
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{}
	}

	return &Client{config: config}
}

// DoJSON issues a request with an optional JSON body and decodes a 2xx
// response into out (skipped when out is nil). Non-2xx responses return a
// *StatusError. Transient failures are retried; context cancellation is
// returned as-is and never retried.
func (c *Client) DoJSON(ctx context.Context, method, url string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("httpx: encode request body: %w", err)
		}
	}

	var lastErr error
	for attempt := 1; attempt <= c.config.Retry.MaxAttempts; attempt++ {
		lastErr = c.do(ctx, method, url, payload, out)
		if lastErr == nil {
			return nil
		}

		// An aborted or timed-out context is the caller's signal, not a
		// transient fault.
		if ctx.Err() != nil {
			return lastErr
		}
		if !retryable(lastErr) {
			return lastErr
		}
		if attempt >= c.config.Retry.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.delay(attempt)):
		}
	}

	return lastErr
}

// Get issues a GET request and decodes the response into out.
func (c *Client) Get(ctx context.Context, url string, out any) error {
	return c.DoJSON(ctx, http.MethodGet, url, nil, out)
}

func (c *Client) do(ctx context.Context, method, url string, payload []byte, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("httpx: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.config.HTTPClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrTimeout
		}
		return fmt.Errorf("httpx: %s %s: %w", method, url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("httpx: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Body: raw}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("httpx: decode response: %w", err)
	}
	return nil
}

func (c *Client) delay(attempt int) time.Duration {
	multiplier := math.Pow(c.config.Retry.Multiplier, float64(attempt-1))
	delay := time.Duration(float64(c.config.Retry.InitialDelay) * multiplier)

	if delay > c.config.Retry.MaxDelay {
		delay = c.config.Retry.MaxDelay
	}

	if !c.config.Retry.NoJitter && delay >= 4 {
		// Up to 25% jitter.
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		delay += time.Duration(rand.Int63n(int64(delay / 4)))
	}

	return delay
}
