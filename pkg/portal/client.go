package portal

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/morezero/ckan-portal/pkg/payload"
)

// Header names set by the portal.
const (
	HeaderAuthorization = "Authorization"
	HeaderContentType   = "content-type"
	ContentTypeJSON     = "application/json"
)

// RequestParams describes one outgoing request. A fresh value is built for
// every invocation; interceptors may mutate it during the before phase.
type RequestParams struct {
	Method  string
	Headers map[string]string
	// Body is nil when no payload was supplied.
	Body payload.Body
}

// Header returns a header value, matching the name case-insensitively.
func (p *RequestParams) Header(name string) (string, bool) {
	if v, ok := p.Headers[name]; ok {
		return v, true
	}
	for k, v := range p.Headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

// SetHeader sets a header, replacing any entry whose name differs only in case.
func (p *RequestParams) SetHeader(name, value string) {
	if p.Headers == nil {
		p.Headers = map[string]string{}
	}
	for k := range p.Headers {
		if k != name && strings.EqualFold(k, name) {
			delete(p.Headers, k)
		}
	}
	p.Headers[name] = value
}

// Response is a received response whose body can be decoded as JSON.
type Response interface {
	JSON(v any) error
}

// Client sends a request and returns the response. Implementations own
// networking, timeouts and cancellation.
type Client interface {
	Request(ctx context.Context, url string, params *RequestParams) (Response, error)
}

// ClientFunc adapts a function to the Client interface.
type ClientFunc func(ctx context.Context, url string, params *RequestParams) (Response, error)

// Request calls f.
func (f ClientFunc) Request(ctx context.Context, url string, params *RequestParams) (Response, error) {
	return f(ctx, url, params)
}

// JSONResponse is a Response over an already-read body. It can be decoded any
// number of times.
type JSONResponse []byte

// JSON decodes the body into v.
func (r JSONResponse) JSON(v any) error {
	return json.Unmarshal(r, v)
}

// NewJSONResponse encodes v into a JSONResponse, e.g. for synthetic responses
// returned by interceptors.
func NewJSONResponse(v any) (JSONResponse, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return JSONResponse(data), nil
}
