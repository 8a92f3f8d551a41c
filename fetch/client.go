// Package fetch is the HTTP(S) transport for the download engine: plain
// GET requests with the downloader's identification headers, mapped onto
// a small error type the retry policy can reason about.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Options configures the HTTP client.
type Options struct {
	// UserAgent is sent with every request.
	UserAgent string

	// Referer is sent with every request when non-empty.
	Referer string

	// MaxIdleConnsPerHost sets the idle connection cap per host.
	// Default: 16.
	MaxIdleConnsPerHost int
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		UserAgent:           "gopull/1.0",
		MaxIdleConnsPerHost: 16,
	}
}

// Error is a transport-level failure for a single attempt: a connection
// or DNS problem (Err set) or a non-200 response (Status set).
type Error struct {
	URL    string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.Status)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Client fetches resources over HTTP(S) GET. Safe for concurrent use.
type Client struct {
	hc   *http.Client
	opts Options
}

// NewClient creates a Client. Request deadlines come from the caller's
// context, not from the client, so each attempt can carry its own
// timeout.
func NewClient(opts Options) *Client {
	if opts.MaxIdleConnsPerHost <= 0 {
		opts.MaxIdleConnsPerHost = 16
	}
	transport := &http.Transport{
		MaxIdleConnsPerHost: opts.MaxIdleConnsPerHost,
		MaxIdleConns:        opts.MaxIdleConnsPerHost * 2,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Client{
		hc:   &http.Client{Transport: transport},
		opts: opts,
	}
}

// Fetch opens rawURL for reading. The returned size is the
// Content-Length, or -1 when the server did not send one. The caller
// owns the body and must close it.
func (c *Client) Fetch(ctx context.Context, rawURL string) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	if c.opts.Referer != "" {
		req.Header.Set("Referer", c.opts.Referer)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, 0, &Error{URL: rawURL, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, 0, &Error{URL: rawURL, Status: resp.StatusCode}
	}

	return resp.Body, resp.ContentLength, nil
}
