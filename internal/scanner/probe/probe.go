// Package probe is the HTTP client the bundled scanners send their test
// requests through.
package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 1 << 20

// DefaultTimeout applies when no per-request timeout is configured.
const DefaultTimeout = 5 * time.Second

// Response is the part of an HTTP response the scanners look at.
type Response struct {
	StatusCode  int
	ContentType string
	Body        string
}

// Client sends GET probes, optionally rate limited.
type Client struct {
	http     *http.Client
	limiter  *rate.Limiter
	requests atomic.Int64
}

// New creates a client. A rateLimit of zero or less disables limiting.
func New(timeout time.Duration, rateLimit float64) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{http: &http.Client{Timeout: timeout}}
	if rateLimit > 0 {
		burst := int(rateLimit)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rateLimit), burst)
	}
	return c
}

// Get performs a GET request and returns the status, content type and up to
// 1 MiB of the body.
func (c *Client) Get(ctx context.Context, targetURL string) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, err
	}

	c.requests.Add(1)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading body of %s: %w", targetURL, err)
	}

	return &Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        string(body),
	}, nil
}

// Requests returns how many requests were sent so far.
func (c *Client) Requests() int64 {
	return c.requests.Load()
}
