// Package client provides a typed client for the Ingestion Control Panel API.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/HebesbyChloe/ingestion-control-sub001/internal/cache"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrNotFound is wrapped by errors for 404 responses and missing records.
var ErrNotFound = errors.New("not found")

// APIError is a non-2xx response decoded from the {error, details} envelope.
type APIError struct {
	Status  int
	Message string
	Details string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Message, e.Details)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

// Unwrap maps 404 to ErrNotFound.
func (e *APIError) Unwrap() error {
	if e.Status == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

// Client talks to icp-server.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	cache      *cache.Cache
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout (default 30s).
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithCache enables the query cache for list reads.
func WithCache(q *cache.Cache) Option {
	return func(c *Client) { c.cache = q }
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client for the server at baseURL. token is sent as a
// bearer token when set.
func New(baseURL, token string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:3000"
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Cache returns the query cache, or nil.
func (c *Client) Cache() *cache.Cache {
	return c.cache
}

// invalidate drops cache entries under the given prefixes.
func (c *Client) invalidate(prefixes ...string) {
	if c.cache != nil {
		c.cache.Invalidate(prefixes...)
	}
}

// do sends one request and decodes a 2xx JSON body into result.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, result any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	c.logger.Debug("api request", "method", method, "path", path, "status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp.StatusCode, data)
	}

	if result == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := decodeData(data, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

func decodeAPIError(status int, data []byte) error {
	var envelope struct {
		Error   string `json:"error"`
		Details any    `json:"details"`
	}
	apiErr := &APIError{Status: status}
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Error != "" {
		apiErr.Message = envelope.Error
		switch d := envelope.Details.(type) {
		case nil:
		case string:
			apiErr.Details = d
		default:
			raw, _ := json.Marshal(d)
			apiErr.Details = string(raw)
		}
		return apiErr
	}
	apiErr.Message = http.StatusText(status)
	apiErr.Details = strings.TrimSpace(string(data))
	return apiErr
}

// decodeData accepts either a bare value or a {"data": value} wrapper, which
// the gateway uses for some list endpoints.
func decodeData(data []byte, result any) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var wrapper map[string]jsoniter.RawMessage
		if err := json.Unmarshal(trimmed, &wrapper); err == nil {
			if inner, ok := wrapper["data"]; ok {
				if err := json.Unmarshal(inner, result); err == nil {
					return nil
				}
			}
		}
	}
	return json.Unmarshal(trimmed, result)
}

// fetch reads through the query cache when one is configured.
func fetch[T any](ctx context.Context, c *Client, key string, load func(context.Context) (T, error)) (T, error) {
	return cache.Fetch(ctx, c.cache, key, load)
}
