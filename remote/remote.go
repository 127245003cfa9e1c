// Package remote fetches tar archives over HTTP.
package remote

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// DefaultMaxRetries is the number of attempts a Client makes per request.
const DefaultMaxRetries = 5

// IsURL reports whether name refers to a remote archive.
func IsURL(name string) bool {
	return strings.HasPrefix(name, "http://") || strings.HasPrefix(name, "https://")
}

// Client downloads archives, retrying network and server errors.
type Client struct {
	http *http.Client
	log  *slog.Logger
}

// NewClient creates a Client making up to maxRetries attempts per request.
// If maxRetries is zero, DefaultMaxRetries is used.
func NewClient(l *slog.Logger, maxRetries int) *Client {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Client{
		http: &http.Client{Transport: newRetryTransport(l, maxRetries)},
		log:  l,
	}
}

// Open starts downloading the archive at rawURL and returns its body. The
// caller must close it.
func (c *Client) Open(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse archive url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.log.Debug("fetch archive", "url", redact(u))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch archive %s: %w", redact(u), err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to fetch archive %s: unexpected status %d", redact(u), resp.StatusCode)
	}

	c.log.Debug("archive response",
		"url", redact(u),
		"length", resp.ContentLength,
		"type", resp.Header.Get("Content-Type"),
	)

	return resp.Body, nil
}
