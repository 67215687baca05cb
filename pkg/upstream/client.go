// Package upstream forwards requests verbatim to the real exchange API.
// It is a pass-through: no retries, no caching, no masking of upstream
// failures. The proxy core decides what to do with the result.
package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	upstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hlproxy_upstream_requests_total",
		Help: "Total upstream requests by path and status",
	}, []string{"path", "status"})

	upstreamRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hlproxy_upstream_request_duration_seconds",
		Help:    "Upstream request duration in seconds by path",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"path"})

	upstreamErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hlproxy_upstream_errors_total",
		Help: "Total upstream transport failures",
	})
)

// hopByHopHeaders are connection-level headers that must not be forwarded.
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Response is a fully-read upstream response. Bodies are small JSON
// documents, so buffering them keeps the cache path simple.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports whether the upstream answered with 200.
func (r *Response) OK() bool {
	return r.StatusCode == http.StatusOK
}

// Client forwards requests to a fixed upstream base URL.
type Client struct {
	base       *url.URL
	httpClient *http.Client
	logger     zerolog.Logger
}

// New creates an upstream client for the given base URL.
func New(baseURL string, timeout time.Duration) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("upstream url %q must be absolute", baseURL)
	}

	return &Client{
		base: base,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: log.With().Str("component", "upstream").Logger(),
	}, nil
}

// Forward sends one request to the upstream, preserving method, path, query,
// headers and body. Transport failures return an *Error wrapping
// ErrUnreachable; non-success statuses are NOT errors and come back as a
// normal Response for the caller to relay verbatim.
func (c *Client) Forward(ctx context.Context, method, path, rawQuery string, header http.Header, body []byte) (*Response, error) {
	target := *c.base
	target.Path = path
	target.RawQuery = rawQuery

	req, err := http.NewRequestWithContext(ctx, method, target.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	copyForwardHeaders(req.Header, header)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	upstreamRequestDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
	if err != nil {
		upstreamErrorsTotal.Inc()
		upstreamRequestsTotal.WithLabelValues(path, "transport_error").Inc()
		c.logger.Error().Err(err).Str("path", path).Msg("Upstream request failed")
		return nil, &Error{Path: path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		upstreamErrorsTotal.Inc()
		upstreamRequestsTotal.WithLabelValues(path, "read_error").Inc()
		return nil, &Error{Path: path, Err: fmt.Errorf("read upstream body: %w", err)}
	}

	upstreamRequestsTotal.WithLabelValues(path, fmt.Sprintf("%d", resp.StatusCode)).Inc()

	out := &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       data,
	}
	stripHopByHop(out.Header)
	return out, nil
}

// PostJSON forwards a JSON POST to the given path. Used by the warmup task.
func (c *Client) PostJSON(ctx context.Context, path string, payload []byte) (*Response, error) {
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	return c.Forward(ctx, http.MethodPost, path, "", header, payload)
}

// BaseURL returns the configured upstream base URL.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

func copyForwardHeaders(dst, src http.Header) {
	for key, values := range src {
		for _, v := range values {
			dst.Add(key, v)
		}
	}
	stripHopByHop(dst)
	// Let the transport set Host and Content-Length for the new body.
	dst.Del("Host")
	dst.Del("Content-Length")
}

func stripHopByHop(h http.Header) {
	for _, key := range hopByHopHeaders {
		h.Del(key)
	}
}
