// Package feed fetches the data the engine consumes asynchronously: the
// boundary dataset, the classification feed and the reports feed.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"sync/atomic"
	"time"
)

const (
	defaultRetries = 3
	baseBackoff    = 500 * time.Millisecond
	maxBackoff     = 10 * time.Second
	jitterFactor   = 0.5
	maxBodyBytes   = 32 << 20
)

// StatusError is a non-2xx response from a feed endpoint.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// Retryable reports whether the request may succeed if repeated.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type ClientOptions struct {
	Timeout time.Duration
	Retries int
	// Backoff is the first retry delay; it doubles per attempt.
	Backoff time.Duration
	Logger  *slog.Logger
	// HTTPClient replaces the default transport, mostly for tests.
	HTTPClient *http.Client
}

// Client is a small JSON-over-HTTP client with retry, exponential backoff and jitter.
type Client struct {
	http     *http.Client
	retries  int
	backoff  time.Duration
	logger   *slog.Logger
	failures atomic.Int64
}

func NewClient(opts ClientOptions) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Retries <= 0 {
		opts.Retries = defaultRetries
	}
	if opts.Backoff <= 0 {
		opts.Backoff = baseBackoff
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	hc := opts.HTTPClient
	if hc == nil {
		transport := &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		}
		hc = &http.Client{Transport: transport, Timeout: opts.Timeout}
	}

	return &Client{
		http:    hc,
		retries: opts.Retries,
		backoff: opts.Backoff,
		logger:  opts.Logger,
	}
}

// Get fetches url, retrying transport errors and retryable statuses.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := range c.retries {
		body, err := c.doRequest(ctx, url)
		if err == nil {
			c.failures.Store(0)
			return body, nil
		}
		lastErr = err
		c.failures.Add(1)

		if !retryable(err) || attempt == c.retries-1 {
			break
		}

		backoff := c.backoff * time.Duration(1<<uint(attempt))
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
		jitter := time.Duration(float64(backoff) * jitterFactor * rand.Float64())
		c.logger.Debug("feed request failed, retrying",
			"url", url, "attempt", attempt+1, "wait", backoff+jitter, "err", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff + jitter):
		}
	}
	return nil, lastErr
}

// GetJSON fetches url and decodes the body into v.
func (c *Client) GetJSON(ctx context.Context, url string, v any) error {
	body, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decoding %s: %w", url, err)
	}
	return nil
}

// ConsecutiveFailures returns how many requests failed since the last success.
func (c *Client) ConsecutiveFailures() int64 {
	return c.failures.Load()
}

func (c *Client) doRequest(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json, application/geo+json;q=0.9, */*;q=0.5")
	req.Header.Set("User-Agent", "denguemap/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: url}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	return body, nil
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	return true
}
