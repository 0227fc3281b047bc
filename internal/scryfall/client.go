package scryfall

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public Scryfall API.
	DefaultBaseURL = "https://api.scryfall.com"

	// UserAgent identifies the scanner; Scryfall rejects requests without one.
	UserAgent = "card-scanner"

	// DefaultRateLimit keeps below the 10 requests per second Scryfall asks for.
	DefaultRateLimit rate.Limit = 10
)

// ErrBulkTypeNotFound is returned when the bulk-data listing has no entry of
// the requested type.
var ErrBulkTypeNotFound = errors.New("bulk data type not found")

// StatusError reports a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Temporary reports whether retrying the request may succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client talks to the Scryfall API. It is safe for concurrent use.
type Client struct {
	baseURL       string
	http          *http.Client
	limiter       *rate.Limiter
	maxRetries    uint64
	retryInterval time.Duration
	logger        *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another API root.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithRateLimit throttles outgoing requests, downloads included.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithRetry sets how often and how soon transient failures are retried.
func WithRetry(maxRetries uint64, initialInterval time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.retryInterval = initialInterval
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient returns a client for DefaultBaseURL limited to DefaultRateLimit.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:       DefaultBaseURL,
		http:          http.DefaultClient,
		limiter:       rate.NewLimiter(DefaultRateLimit, 1),
		maxRetries:    4,
		retryInterval: 500 * time.Millisecond,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BulkDataEntry describes one downloadable bulk file.
type BulkDataEntry struct {
	ID          string       `json:"id"`
	Type        BulkDataType `json:"type"`
	Name        string       `json:"name"`
	UpdatedAt   string       `json:"updated_at"`
	Size        int64        `json:"size"`
	DownloadURI string       `json:"download_uri"`
}

type bulkDataList struct {
	Data []BulkDataEntry `json:"data"`
}

// BulkDataEntries lists the bulk files currently published.
func (c *Client) BulkDataEntries(ctx context.Context) ([]BulkDataEntry, error) {
	body, err := c.get(ctx, c.baseURL+"/bulk-data")
	if err != nil {
		return nil, fmt.Errorf("failed to list bulk data: %w", err)
	}

	var list bulkDataList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("failed to decode bulk data list: %w", err)
	}
	return list.Data, nil
}

// BulkData downloads the latest bulk file of type t. Entries are returned
// undecoded so they can be cached on disk without losing fields.
func (c *Client) BulkData(ctx context.Context, t BulkDataType) ([]json.RawMessage, error) {
	c.logger.Info("getting latest bulk data link", "type", t)
	entries, err := c.BulkDataEntries(ctx)
	if err != nil {
		return nil, err
	}

	var uri string
	for _, e := range entries {
		if e.Type == t {
			uri = e.DownloadURI
			break
		}
	}
	if uri == "" {
		return nil, fmt.Errorf("%w: %s", ErrBulkTypeNotFound, t)
	}

	c.logger.Info("downloading bulk data", "uri", uri)
	body, err := c.get(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("failed to download bulk data: %w", err)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("failed to decode bulk data: %w", err)
	}
	for i, item := range items {
		if len(item) == 0 || item[0] != '{' {
			return nil, fmt.Errorf("bulk data entry %d is not an object", i)
		}
	}
	return items, nil
}

// get fetches url, retrying network errors, 429 and 5xx responses with
// exponential backoff.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	op := func() ([]byte, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, backoff.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", UserAgent)
		req.Header.Set("Accept", "*/*")

		resp, err := c.http.Do(req)
		if err != nil {
			c.logger.Debug("request failed", "url", url, "error", err)
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			serr := &StatusError{URL: url, StatusCode: resp.StatusCode}
			if serr.Temporary() {
				c.logger.Debug("retrying", "url", url, "status", resp.StatusCode)
				return nil, serr
			}
			return nil, backoff.Permanent(serr)
		}

		return io.ReadAll(resp.Body)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInterval
	return backoff.RetryWithData(op, backoff.WithContext(backoff.WithMaxRetries(b, c.maxRetries), ctx))
}
