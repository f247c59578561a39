// Package transport is the HTTP GET helper shared by the resolver and the
// fetcher. It knows nothing about docs.rs; callers classify its errors.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// maxPageBytes bounds metadata page bodies (10 MB).
const maxPageBytes = 10 << 20

// ErrPageTooLarge is returned by Get for bodies above the page limit.
var ErrPageTooLarge = errors.New("page exceeds size limit")

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %s", e.URL, e.Status)
}

// Stream is an open response body plus its length hint.
// ContentLength is 0 when the server did not send one.
type Stream struct {
	Body          io.ReadCloser
	ContentLength int64
}

type (
	// Client issues GET requests with a fixed User-Agent.
	Client struct {
		httpClient     *http.Client
		downloadClient *http.Client
		userAgent      string
		maxPageBytes   int64
		logger         zerolog.Logger
	}

	// Option configures a Client during construction.
	Option func(*Client)
)

// WithHTTPClient sets the client used for both page and download requests.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
		cl.downloadClient = c
	}
}

// WithTimeout sets the timeout for page requests. Downloads have no
// client-side timeout; cancellation is handled via context.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		cl.httpClient = &http.Client{Timeout: d}
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(cl *Client) {
		cl.userAgent = ua
	}
}

// WithMaxPageBytes sets the largest body Get accepts.
func WithMaxPageBytes(n int64) Option {
	return func(cl *Client) {
		cl.maxPageBytes = n
	}
}

// NewClient creates a new transport client.
func NewClient(logger zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		downloadClient: &http.Client{
			Timeout: 0,
		},
		maxPageBytes: maxPageBytes,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get fetches url and returns the body as text.
func (c *Client) Get(ctx context.Context, url string) (string, error) {
	resp, err := c.do(ctx, c.httpClient, url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxPageBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read response from %s: %w", url, err)
	}
	if int64(len(body)) > c.maxPageBytes {
		return "", fmt.Errorf("GET %s: %w (%d bytes)", url, ErrPageTooLarge, c.maxPageBytes)
	}
	return string(body), nil
}

// GetStream opens url for streaming. The caller must close Stream.Body.
func (c *Client) GetStream(ctx context.Context, url string) (*Stream, error) {
	resp, err := c.do(ctx, c.downloadClient, url)
	if err != nil {
		return nil, err
	}

	length := resp.ContentLength
	if length < 0 {
		length = 0
	}
	return &Stream{Body: resp.Body, ContentLength: length}, nil
}

func (c *Client) do(ctx context.Context, client *http.Client, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	c.logger.Debug().Str("url", url).Msg("GET")
	startTime := time.Now()

	resp, err := client.Do(req)
	if err != nil {
		c.logger.Debug().
			Err(err).
			Str("url", url).
			Dur("elapsed", time.Since(startTime)).
			Bool("contextCanceled", ctx.Err() != nil).
			Msg("HTTP request failed")
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}

	c.logger.Debug().
		Str("url", url).
		Int("statusCode", resp.StatusCode).
		Int64("contentLength", resp.ContentLength).
		Dur("responseTime", time.Since(startTime)).
		Msg("Received HTTP response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxPageBytes))
		resp.Body.Close()
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	return resp, nil
}
