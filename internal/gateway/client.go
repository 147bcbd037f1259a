// Package gateway is the outbound HTTP client used by the proxy routes to
// reach the external ingestion gateway and the search health endpoint.
package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/time/rate"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Header names used to authenticate against upstream services.
const (
	HeaderAPIKey          = "X-API-Key"
	HeaderTypesenseAPIKey = "X-TYPESENSE-API-KEY"
)

var (
	// ErrMissingAPIKey is returned by Do when no API key is configured.
	ErrMissingAPIKey = errors.New("gateway API key not configured")
	// ErrMissingBaseURL is returned by Do when no base URL is configured.
	ErrMissingBaseURL = errors.New("gateway base URL not configured")
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// Config configures a Client.
type Config struct {
	// BaseURL is prepended to every request path.
	BaseURL string

	// APIKey is sent in KeyHeader on every request.
	APIKey string

	// KeyHeader defaults to X-API-Key.
	KeyHeader string

	// Timeout for individual requests (default: 30s).
	Timeout time.Duration

	// RateLimit requests per second (default: 20).
	RateLimit float64

	// RateBurst maximum burst size (default: 10).
	RateBurst int

	// Transport allows injecting a custom HTTP transport.
	Transport http.RoundTripper
}

// =============================================================================
// HTTP CLIENT
// =============================================================================

// Client is a rate-limited HTTP client bound to one upstream. It never
// retries; every failure is returned to the caller as is.
type Client struct {
	config      Config
	httpClient  *http.Client
	rateLimiter *rate.Limiter
}

// NewClient creates a client, filling zero config fields with defaults.
func NewClient(cfg Config) *Client {
	if cfg.KeyHeader == "" {
		cfg.KeyHeader = HeaderAPIKey
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 20
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 10
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
		},
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
	}
}

// Configured reports whether both base URL and API key are set.
func (c *Client) Configured() bool {
	return c.config.BaseURL != "" && c.config.APIKey != ""
}

// HasAPIKey reports whether an API key is set.
func (c *Client) HasAPIKey() bool {
	return c.config.APIKey != ""
}

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// Request is one upstream call. RawQuery is forwarded verbatim.
type Request struct {
	Method      string
	Path        string
	RawQuery    string
	ContentType string
	Body        []byte
}

// Response is the upstream answer with its body fully read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// IsSuccess returns true if the status code is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// JSON unmarshals the response body into target.
func (r *Response) JSON(target any) error {
	return json.Unmarshal(r.Body, target)
}

// =============================================================================
// CLIENT METHODS
// =============================================================================

// Do sends req upstream. Non-2xx responses are returned without error; only
// configuration, transport and read failures produce an error.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if c.config.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if c.config.BaseURL == "" {
		return nil, ErrMissingBaseURL
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	fullURL := c.config.BaseURL + "/" + strings.TrimPrefix(req.Path, "/")
	if req.RawQuery != "" {
		fullURL += "?" + req.RawQuery
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set(c.config.KeyHeader, c.config.APIKey)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		contentType := req.ContentType
		if contentType == "" {
			contentType = "application/json"
		}
		httpReq.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}
