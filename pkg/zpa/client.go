// Package zpa provides the authenticated transport for the ZPA management
// API: OAuth client-credentials authentication, JSON request/response
// handling, typed error classification, and the paginated list collector.
package zpa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zscaler/zpacloud-ansible-sub000/pkg/telemetry"
)

// maxResponseBytes bounds response bodies read into memory.
const maxResponseBytes = 16 << 20

// mgmtPrefix is the customer-scoped management API prefix.
const mgmtPrefix = "/mgmtconfig/v1/admin/customers"

// Client issues authenticated requests against one ZPA tenant.
// A client is owned by a single invocation and is not safe for concurrent
// use; the engine is strictly synchronous.
type Client struct {
	cfg        *Config
	httpClient *http.Client
	baseURL    string
	tokenURL   string
	token      *token
	logger     zerolog.Logger
	metrics    *telemetry.Metrics
	tracer     trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithLogger attaches a structured logger to the client.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithMetrics attaches a metrics collector to the client.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithBaseURL overrides the cloud-derived API base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithTokenURL overrides the cloud-derived token endpoint.
func WithTokenURL(u string) Option {
	return func(c *Client) { c.tokenURL = u }
}

// NewClient validates the credential configuration (after environment
// fallback) and returns a client ready to authenticate on first use.
func NewClient(cfg *Config, opts ...Option) (*Client, error) {
	cfg.FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.timeout()},
		baseURL:    cfg.BaseURL(),
		tokenURL:   cfg.TokenURL(),
		logger:     zerolog.Nop(),
		tracer:     otel.Tracer("zpa-client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// CustomerID returns the tenant customer id the client is bound to.
func (c *Client) CustomerID() string {
	return c.cfg.CustomerID
}

// Request issues one authenticated request. The path is relative to the
// customer-scoped management prefix (e.g. "/segmentGroup"). 2xx responses
// return the raw JSON body; every other outcome maps to a classified error:
// 404 not_found, 409 conflict, 401 auth (after one token refresh), other 4xx
// api, 5xx and connection failures transport.
func (c *Client) Request(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	ctx, span := c.tracer.Start(ctx, "zpa.request",
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("zpa.path", path),
		))
	defer span.End()

	if c.token.expired() {
		if err := c.authenticate(ctx); err != nil {
			return nil, err
		}
	}

	raw, status, err := c.do(ctx, method, path, query, body)
	if status == http.StatusUnauthorized {
		// One refresh, then surface auth.
		c.logger.Debug().Msg("token rejected, refreshing once")
		if aerr := c.authenticate(ctx); aerr != nil {
			return nil, aerr
		}
		raw, status, err = c.do(ctx, method, path, query, body)
		if status == http.StatusUnauthorized {
			return nil, NewAuthError("request unauthorized after token refresh", nil).WithStatus(status)
		}
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("http.status_code", status))
	return raw, nil
}

// do performs a single HTTP exchange and classifies the outcome.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, int, error) {
	u := fmt.Sprintf("%s%s/%s%s", c.baseURL, mgmtPrefix, c.cfg.CustomerID, path)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, 0, NewValidationError("encoding request body: " + err.Error())
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, 0, NewTransportError("building request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token.AccessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveAPIRequest(method, 0, time.Since(started))
		return nil, 0, NewTransportError(fmt.Sprintf("%s %s failed", method, path), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	c.metrics.ObserveAPIRequest(method, resp.StatusCode, time.Since(started))
	if err != nil {
		return nil, resp.StatusCode, NewTransportError("reading response body", err)
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(started)).
		Msg("api request")

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return raw, resp.StatusCode, nil
	case resp.StatusCode == http.StatusUnauthorized:
		// Classified by the caller, which may refresh once.
		return nil, resp.StatusCode, NewAuthError("unauthorized", nil).WithStatus(resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return nil, resp.StatusCode, NewNotFoundError(fmt.Sprintf("%s %s returned 404", method, path))
	case resp.StatusCode == http.StatusConflict:
		return nil, resp.StatusCode, NewConflictError(serverMessage(raw), nil)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, resp.StatusCode, NewAPIError(serverMessage(raw), resp.StatusCode)
	default:
		return nil, resp.StatusCode, NewTransportError(
			fmt.Sprintf("%s %s returned %d", method, path, resp.StatusCode), nil).
			WithStatus(resp.StatusCode)
	}
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	return c.Request(ctx, http.MethodGet, path, query, nil)
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, query url.Values, body any) (json.RawMessage, error) {
	return c.Request(ctx, http.MethodPost, path, query, body)
}

// Put issues a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, query url.Values, body any) (json.RawMessage, error) {
	return c.Request(ctx, http.MethodPut, path, query, body)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	return c.Request(ctx, http.MethodDelete, path, query, nil)
}

// ScopedQuery builds query parameters carrying the micro-tenant scope.
// An empty scope yields parameters without the qualifier.
func ScopedQuery(microtenantID string) url.Values {
	q := url.Values{}
	if microtenantID != "" {
		q.Set("microtenantId", microtenantID)
	}
	return q
}

// serverMessage extracts the server's human-readable message from an error
// body, falling back to the raw body when the shape is unknown.
func serverMessage(raw json.RawMessage) string {
	var body struct {
		ID     string `json:"id"`
		Reason string `json:"reason"`
		Params []any  `json:"params"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Reason != "" {
		if body.ID != "" {
			return body.ID + ": " + body.Reason
		}
		return body.Reason
	}
	return truncate(string(raw), 300)
}

// pageQuery clones query parameters and sets the 1-based page and page size.
func pageQuery(query url.Values, page, pageSize int) url.Values {
	q := url.Values{}
	for k, vs := range query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("pagesize", strconv.Itoa(pageSize))
	return q
}
