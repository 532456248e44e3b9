package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// MaxDownloadSize caps in-memory downloads. Thumbnails are well below it.
	MaxDownloadSize = 10 << 20

	// DefaultTimeout bounds a whole request including the body read.
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent is sent with every request.
	DefaultUserAgent = "MashupGenerator"
)

// ErrTooLarge is returned when a response body exceeds the client's limit.
var ErrTooLarge = errors.New("response too large")

// StatusError reports a non-200 response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithUserAgent overrides DefaultUserAgent.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithMaxSize overrides MaxDownloadSize.
func WithMaxSize(n int64) Option {
	return func(c *Client) { c.maxSize = n }
}

// Client fetches small remote files such as video thumbnails.
//
// Example usage:
//
//	client := NewClient(WithTimeout(10 * time.Second))
//	data, err := client.DownloadBytes(ctx, "https://i.ytimg.com/vi/xyz/maxresdefault.webp")
type Client struct {
	httpClient *http.Client
	userAgent  string
	maxSize    int64
}

// NewClient creates a new HTTP client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		userAgent:  DefaultUserAgent,
		maxSize:    MaxDownloadSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DownloadBytes performs a GET request and returns the whole body.
//
// Returns a *StatusError for any status other than 200 OK and ErrTooLarge
// when the body (or its announced Content-Length) exceeds the size limit.
func (c *Client) DownloadBytes(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	if resp.ContentLength > c.maxSize {
		return nil, fmt.Errorf("%s: %w (%d bytes)", url, ErrTooLarge, resp.ContentLength)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > c.maxSize {
		return nil, fmt.Errorf("%s: %w", url, ErrTooLarge)
	}
	return body, nil
}
