// Package httpclient is a net/http implementation of portal.Client.
package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/morezero/ckan-portal/pkg/payload"
	"github.com/morezero/ckan-portal/pkg/portal"
)

const logPrefix = "httpclient:client"

// Client sends portal requests over HTTP. Multipart bodies are encoded here,
// including the boundary content type.
type Client struct {
	http      *http.Client
	userAgent string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout sets the overall request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithUserAgent sets the User-Agent header on every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// New creates a Client. Without options it uses a pooled transport and a 30s timeout.
func New(opts ...Option) *Client {
	c := &Client{http: NewHTTPClient(30*time.Second, true)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewHTTPClient returns an *http.Client with connection pooling. tlsVerify
// false disables certificate verification, for self-signed development servers.
func NewHTTPClient(timeout time.Duration, tlsVerify bool) *http.Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	if !tlsVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

// Request implements portal.Client. A non-2xx status is not an error; the
// body is returned so the portal can read the server's error envelope.
func (c *Client) Request(ctx context.Context, url string, params *portal.RequestParams) (portal.Response, error) {
	body, contentType, err := encodeBody(params.Body)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to encode body: %w", logPrefix, err)
	}

	req, err := http.NewRequestWithContext(ctx, params.Method, url, body)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to create request: %w", logPrefix, err)
	}

	for k, v := range params.Headers {
		req.Header.Set(k, v)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s - request failed: %w", logPrefix, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to read response: %w", logPrefix, err)
	}

	slog.Debug(fmt.Sprintf("%s - %s %s -> %d (%d bytes)", logPrefix, params.Method, url, resp.StatusCode, len(data)))

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, body: data}, nil
}

func encodeBody(b payload.Body) (io.Reader, string, error) {
	switch body := b.(type) {
	case nil:
		return nil, "", nil
	case payload.JSONBody:
		return strings.NewReader(string(body)), "", nil
	case *payload.Form:
		var buf bytes.Buffer
		ct, err := body.Encode(&buf)
		if err != nil {
			return nil, "", err
		}
		return &buf, ct, nil
	default:
		return nil, "", fmt.Errorf("unsupported body type %T", b)
	}
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	body       []byte
}

// JSON decodes the body into v. The error includes the status and a body
// excerpt when the server did not return JSON (e.g. an HTML error page).
func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.body, v); err != nil {
		return fmt.Errorf("%s - status %d, invalid JSON body %q: %w", logPrefix, r.StatusCode, excerpt(r.body), err)
	}
	return nil
}

// Status returns the HTTP status code.
func (r *Response) Status() int {
	return r.StatusCode
}

// Body returns the raw response body.
func (r *Response) Body() []byte {
	return r.body
}

func excerpt(b []byte) string {
	const max = 120
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
