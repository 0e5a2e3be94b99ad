// Package httpclient provides HTTP client functionality for fetching transform engine configuration
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	// DefaultTimeout is the default timeout for HTTP requests
	DefaultTimeout = 10 * time.Second

	// MaxResponseSize is the maximum allowed response size (100MB)
	MaxResponseSize = 100 * 1024 * 1024

	// MaxErrorBodySize is the maximum number of bytes of an error response kept on HTTPError
	MaxErrorBodySize = 64 * 1024

	// UserAgent is the user agent string for HTTP requests
	UserAgent = "toolhive-transform-registry/1.0"

	// defaultInitialInterval is the first retry delay when retries are enabled
	defaultInitialInterval = 200 * time.Millisecond
)

//go:generate mockgen -destination=mocks/mock_client.go -package=mocks -source=client.go Client

// Client is an interface for HTTP operations
type Client interface {
	// Get performs an HTTP GET request and returns the response body
	Get(ctx context.Context, url string) ([]byte, error)
}

// Option configures a DefaultClient
type Option func(*DefaultClient)

// WithMaxTries sets how many times a request is attempted when the transport fails.
// HTTP status errors are never retried. Values below 1 are treated as 1.
func WithMaxTries(maxTries uint) Option {
	return func(c *DefaultClient) {
		if maxTries < 1 {
			maxTries = 1
		}
		c.maxTries = maxTries
	}
}

// WithInitialRetryInterval sets the delay before the first retry
func WithInitialRetryInterval(interval time.Duration) Option {
	return func(c *DefaultClient) {
		if interval > 0 {
			c.initialInterval = interval
		}
	}
}

// WithUserAgent overrides the User-Agent header
func WithUserAgent(userAgent string) Option {
	return func(c *DefaultClient) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// DefaultClient is the default HTTP client implementation
type DefaultClient struct {
	client          *http.Client
	timeout         time.Duration
	maxTries        uint
	initialInterval time.Duration
	userAgent       string
}

// NewDefaultClient creates a new default HTTP client with the specified timeout
// If timeout is 0, uses DefaultTimeout
func NewDefaultClient(timeout time.Duration, opts ...Option) Client {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	c := &DefaultClient{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout:         timeout,
		maxTries:        1,
		initialInterval: defaultInitialInterval,
		userAgent:       UserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get performs an HTTP GET request, retrying transport failures up to the configured number of tries
func (c *DefaultClient) Get(ctx context.Context, url string) ([]byte, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialInterval

	return backoff.Retry(ctx, func() ([]byte, error) {
		return c.get(ctx, url)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(c.maxTries),
	)
}

// get performs a single attempt. Errors that a retry cannot fix are marked permanent.
func (c *DefaultClient) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}

	// Set headers
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	// Execute request
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxErrorBodySize))
		return nil, backoff.Permanent(NewHTTPErrorWithBody(resp.StatusCode, url, resp.Status, body))
	}

	if resp.Body == nil || resp.Body == http.NoBody {
		return nil, backoff.Permanent(fmt.Errorf("%w: %s", ErrNoEntity, url))
	}

	// Check Content-Length header if available
	if resp.ContentLength > MaxResponseSize {
		return nil, backoff.Permanent(fmt.Errorf(
			"response size %d bytes exceeds maximum allowed size of %d bytes (%.2f MB)",
			resp.ContentLength, MaxResponseSize, float64(MaxResponseSize)/(1024*1024)))
	}

	// Use LimitReader to prevent reading more than MaxResponseSize
	limitedReader := io.LimitReader(resp.Body, MaxResponseSize+1) // +1 to detect if limit exceeded
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if int64(len(body)) > MaxResponseSize {
		return nil, backoff.Permanent(fmt.Errorf("response size exceeds maximum allowed size of %d bytes (%.2f MB)",
			MaxResponseSize, float64(MaxResponseSize)/(1024*1024)))
	}

	return body, nil
}

// IsHTTPError reports whether err carries an HTTP status error and returns it
func IsHTTPError(err error) (*HTTPError, bool) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr, true
	}
	return nil, false
}
