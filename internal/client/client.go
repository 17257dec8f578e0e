// Package client is the typed HTTP binding to the knowledge-base backend.
//
// Each method is a single round trip: no retries and no caching. Callers
// decide what to do with failures.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/xiaopang/insight/internal/logger"
	"github.com/xiaopang/insight/internal/metrics"
	"github.com/xiaopang/insight/internal/model"
)

// Endpoint labels used in errors, logs and metrics.
const (
	EndpointUpload      = "upload"
	EndpointQuery       = "query"
	EndpointHistory     = "history"
	EndpointStats       = "stats"
	EndpointPerformance = "performance"
)

const (
	defaultHistoryLimit = 50
	defaultDays         = 7
)

// Client talks to the backend REST API.
type Client struct {
	baseURL string
	http    *http.Client
	log     *logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New creates a client for baseURL, e.g. http://localhost:8000.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
		log:     logger.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// QueryKnowledge asks the knowledge base a question.
func (c *Client) QueryKnowledge(ctx context.Context, text string) (*model.QueryResponse, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyQuery
	}
	body, err := json.Marshal(model.QueryRequest{Query: text})
	if err != nil {
		return nil, err
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/query/", nil, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var out model.QueryResponse
	if err := c.do(req, EndpointQuery, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetQueryHistory returns one page of query history, newest first.
// An offset past the end yields an empty page.
func (c *Client) GetQueryHistory(ctx context.Context, limit, offset int) (*model.QueryHistory, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	req, err := c.newRequest(ctx, http.MethodGet, "/analytics/queries", q, nil)
	if err != nil {
		return nil, err
	}
	var out model.QueryHistory
	if err := c.do(req, EndpointHistory, &out); err != nil {
		return nil, err
	}
	if out.Records == nil {
		out.Records = []model.QueryRecord{}
	}
	return &out, nil
}

// GetQueryStats returns the aggregate snapshot.
func (c *Client) GetQueryStats(ctx context.Context) (*model.QueryStats, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/analytics/stats", nil, nil)
	if err != nil {
		return nil, err
	}
	var out model.QueryStats
	if err := c.do(req, EndpointStats, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPerformanceMetrics returns daily metrics for the most recent days.
// Order is whatever the backend chose.
func (c *Client) GetPerformanceMetrics(ctx context.Context, days int) (model.PerformanceSeries, error) {
	if days < 1 {
		days = defaultDays
	}
	q := url.Values{}
	q.Set("days", strconv.Itoa(days))

	req, err := c.newRequest(ctx, http.MethodGet, "/analytics/performance", q, nil)
	if err != nil {
		return nil, err
	}
	var out model.PerformanceSeries
	if err := c.do(req, EndpointPerformance, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = model.PerformanceSeries{}
	}
	return out, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, q url.Values, body io.Reader) (*http.Request, error) {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	return req, nil
}

// do sends req and decodes a 2xx JSON body into out.
func (c *Client) do(req *http.Request, endpoint string, out any) error {
	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.BackendRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.BackendRequestsTotal.WithLabelValues(endpoint, "transport_error").Inc()
		c.log.Warn("backend request failed", "endpoint", endpoint, "error", err)
		return &TransportError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	metrics.BackendRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()
	c.log.Debug("backend request",
		"endpoint", endpoint,
		"status", resp.StatusCode,
		"latency", time.Since(start),
		"request_id", req.Header.Get("X-Request-ID"))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &HTTPError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Body:       truncateBody(body, maxErrorBody),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Endpoint: endpoint, Err: err}
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], data...)
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &DecodeError{Endpoint: endpoint, Err: err}
	}
	return nil
}
