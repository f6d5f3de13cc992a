package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/nexusfeed/nexusfeed/internal/model"
	"github.com/nexusfeed/nexusfeed/internal/normalize"
)

// Client talks to the secondary symbol-directory provider.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	maxRetries   int
	retryBackoff time.Duration
}

// Option configures a Client.
type Option func(*Client)

// NewClient creates a directory client.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:       slog.Default(),
		maxRetries:   3,
		retryBackoff: time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetries sets the retry configuration.
func WithRetries(max int, backoff time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = max
		c.retryBackoff = backoff
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// APIError represents an error response from the directory provider.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("directory api error %d: %s", e.StatusCode, e.Message)
}

// IsRetryable returns true if the error should trigger a retry.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// symbolsResponse from GET /api/symbols/{exchange}/{type}
type symbolsResponse struct {
	Symbols []map[string]any `json:"symbols"`
}

// Symbols fetches the directory entries for one source and instrument type.
// An empty instrumentType requests the exchange's default type.
func (c *Client) Symbols(ctx context.Context, source, instrumentType string) ([]model.Instrument, error) {
	exchange := Route(source)
	if !Supports(source) {
		return nil, fmt.Errorf("directory provider does not serve %q", source)
	}

	resolved := resolveType(exchange, instrumentType)
	path := fmt.Sprintf("/api/symbols/%s/%s", exchange, resolved)

	var resp symbolsResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("fetch symbols %s/%s: %w", exchange, resolved, err)
	}

	out := make([]model.Instrument, 0, len(resp.Symbols))
	for _, raw := range resp.Symbols {
		inst, err := normalize.ToInstrument(raw)
		if err != nil {
			c.logger.Warn("skipping malformed directory entry",
				"source", source,
				"type", resolved,
				"err", err,
			)
			continue
		}
		if inst.Type == "" {
			inst.Type = resolved
		}
		out = append(out, inst)
	}
	return out, nil
}

// AllSymbols fetches every instrument type the provider serves for a source,
// grouped by type. A failure in one type yields an empty group and does not
// abort the others.
func (c *Client) AllSymbols(ctx context.Context, source string) (map[string][]model.Instrument, error) {
	types := Types(source)
	if types == nil {
		return nil, fmt.Errorf("directory provider does not serve %q", source)
	}

	result := make(map[string][]model.Instrument, len(types))
	for _, t := range types {
		symbols, err := c.Symbols(ctx, source, t)
		if err != nil {
			c.logger.Warn("instrument type fetch failed",
				"source", source,
				"type", t,
				"err", err,
			)
			result[t] = []model.Instrument{}
			continue
		}
		result[t] = symbols
	}
	return result, nil
}

// get performs a GET request with retries and decodes the JSON response.
func (c *Client) get(ctx context.Context, path string, result any) error {
	var lastErr error
	backoff := c.retryBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			jitter := backoff/2 + time.Duration(rand.Int64N(int64(backoff)))
			c.logger.Debug("retrying directory request",
				"attempt", attempt,
				"backoff", jitter,
				"path", path,
			)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(jitter):
			}

			backoff *= 2
		}

		err := c.doRequest(ctx, path, result)
		if err == nil {
			return nil
		}
		lastErr = err

		apiErr, ok := err.(*APIError)
		if !ok || !apiErr.IsRetryable() {
			return err
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Client) doRequest(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
		}
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
