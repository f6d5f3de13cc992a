package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"time"
)

// restClient is the shared HTTP plumbing for REST connector variants.
type restClient struct {
	baseURL    string
	apiKey     string
	keyHeader  string // vendor-specific API key header name
	headers    map[string]string
	sign       signFunc
	httpClient *http.Client
	logger     *slog.Logger

	maxRetries   int
	retryBackoff time.Duration
}

// clientOption configures a restClient.
type clientOption func(*restClient)

// newRESTClient creates a REST client for one vendor endpoint.
func newRESTClient(baseURL string, opts ...clientOption) *restClient {
	c := &restClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
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

// withTimeout sets the HTTP client timeout.
func withTimeout(d time.Duration) clientOption {
	return func(c *restClient) {
		c.httpClient.Timeout = d
	}
}

// withAPIKey attaches an API key sent under the given header name.
func withAPIKey(header, key string) clientOption {
	return func(c *restClient) {
		c.keyHeader = header
		c.apiKey = key
	}
}

// withSigner attaches per-request authentication headers.
func withSigner(fn signFunc) clientOption {
	return func(c *restClient) {
		c.sign = fn
	}
}

// withHeader attaches a fixed header to every request.
func withHeader(name, value string) clientOption {
	return func(c *restClient) {
		if c.headers == nil {
			c.headers = make(map[string]string)
		}
		c.headers[name] = value
	}
}

// withLogger sets the logger.
func withLogger(logger *slog.Logger) clientOption {
	return func(c *restClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// withHTTPClient sets a custom HTTP client.
func withHTTPClient(hc *http.Client) clientOption {
	return func(c *restClient) {
		c.httpClient = hc
	}
}

// doRequest performs a GET request against the vendor endpoint.
func (c *restClient) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	rawQuery := query.Encode()
	fullURL := c.baseURL + path
	if rawQuery != "" {
		fullURL += "?" + rawQuery
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" && c.keyHeader != "" {
		req.Header.Set(c.keyHeader, c.apiKey)
	}
	for name, value := range c.headers {
		req.Header.Set(name, value)
	}
	if c.sign != nil {
		for name, value := range c.sign(http.MethodGet, path, rawQuery) {
			req.Header.Set(name, value)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       body,
		}
	}

	return body, nil
}

// doWithRetry performs a request with exponential backoff retry.
func (c *restClient) doWithRetry(ctx context.Context, path string, query url.Values) ([]byte, error) {
	var lastErr error
	backoff := c.retryBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Add jitter: backoff * (0.5 to 1.5)
			jitter := backoff/2 + time.Duration(rand.Int64N(int64(backoff)))
			c.logger.Debug("retrying request",
				"attempt", attempt,
				"backoff", jitter,
				"path", path,
			)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(jitter):
			}

			backoff *= 2
		}

		body, err := c.doRequest(ctx, path, query)
		if err == nil {
			return body, nil
		}

		lastErr = err

		// Check if error is retryable
		httpErr, ok := err.(*HTTPError)
		if !ok || !httpErr.IsRetryable() {
			return nil, err
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// get performs a GET request with retries and decodes the JSON response.
func (c *restClient) get(ctx context.Context, path string, query url.Values, result any) error {
	body, err := c.doWithRetry(ctx, path, query)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	return nil
}
