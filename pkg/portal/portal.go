// Package portal dispatches named, versioned actions to a JSON action API and
// unwraps its {success, result, error} envelope.
package portal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/morezero/ckan-portal/pkg/action"
	"github.com/morezero/ckan-portal/pkg/payload"
)

const logPrefix = "portal:portal"

// HelpAction is the introspection action used by Documentation.
const HelpAction = "help_show"

// Portal is bound to one API base URL and one transport client. It is safe
// for concurrent use.
type Portal struct {
	baseURL *url.URL
	token   string
	client  Client

	mu           sync.RWMutex
	interceptors []Interceptor
}

// New creates a Portal. The base URL must be absolute; its path is normalized
// to end with "/" so that action paths resolve below any existing prefix.
func New(baseURL string, client Client) (*Portal, error) {
	if client == nil {
		return nil, errors.New(logPrefix + " - a transport client is required")
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%s - invalid base URL %q: %w", logPrefix, baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%s - base URL must be absolute, got %q", logPrefix, baseURL)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
		if u.RawPath != "" {
			u.RawPath += "/"
		}
	}

	return &Portal{baseURL: u, client: client}, nil
}

// BaseURL returns a copy of the normalized base URL.
func (p *Portal) BaseURL() *url.URL {
	u := *p.baseURL
	return &u
}

// Token returns the authorization token, or "" when none is set.
func (p *Portal) Token() string {
	return p.token
}

// WithToken returns a new Portal with the same base URL and client, its own
// copy of the interceptor list and the given token. The receiver is unchanged.
func (p *Portal) WithToken(token string) *Portal {
	return &Portal{
		baseURL:      p.BaseURL(),
		token:        token,
		client:       p.client,
		interceptors: p.Interceptors(),
	}
}

// AddInterceptor appends an interceptor to this Portal only.
func (p *Portal) AddInterceptor(ic Interceptor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.interceptors = append(p.interceptors, ic)
}

// Interceptors returns a snapshot of the registered interceptors.
func (p *Portal) Interceptors() []Interceptor {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Interceptor, len(p.interceptors))
	copy(out, p.interceptors)
	return out
}

// URLFor resolves the absolute URL of an action.
func (p *Portal) URLFor(a *action.Action) *url.URL {
	ref, err := url.Parse(a.URL())
	if err != nil {
		ref = &url.URL{Path: a.URL()}
	}
	return p.baseURL.ResolveReference(ref)
}

// Invoke calls an action and returns its raw result. body may be nil.
//
// Failures are reported as *Error: KindTransport when the client fails or the
// response is not a JSON envelope, KindProtocol with the server's error value
// when success is false, and KindInterceptor when an interceptor aborts.
func (p *Portal) Invoke(ctx context.Context, a *action.Action, body *payload.Payload) (json.RawMessage, error) {
	u := p.URLFor(a)

	params := &RequestParams{
		Method:  http.MethodPost,
		Headers: map[string]string{},
	}
	if p.token != "" {
		params.Headers[HeaderAuthorization] = p.token
	}
	if body != nil {
		b, err := body.AsBody()
		if err != nil {
			return nil, err
		}
		params.Body = b
	}
	if _, ok := params.Body.(payload.JSONBody); ok {
		params.Headers[HeaderContentType] = ContentTypeJSON
	}

	chain := p.Interceptors()

	if err := runBefore(ctx, chain, u, params); err != nil {
		return nil, &Error{Kind: KindInterceptor, Action: a.Name(), Err: err}
	}

	slog.Debug(fmt.Sprintf("%s - %s %s", logPrefix, params.Method, u.String()))

	resp, err := p.client.Request(ctx, u.String(), params)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Action: a.Name(), Err: err}
	}

	resp, err = runAfter(ctx, chain, u, params, resp)
	if err != nil {
		return nil, &Error{Kind: KindInterceptor, Action: a.Name(), Err: err}
	}

	var env Envelope
	if err := resp.JSON(&env); err != nil {
		return nil, &Error{Kind: KindTransport, Action: a.Name(), Err: fmt.Errorf("decode envelope: %w", err)}
	}

	if !env.Success {
		errPayload := env.Error
		if len(errPayload) == 0 {
			errPayload = jsonNull
		}
		return nil, &Error{Kind: KindProtocol, Action: a.Name(), Payload: errPayload}
	}

	if len(env.Result) == 0 {
		return jsonNull, nil
	}
	return env.Result, nil
}

// Call invokes an action and decodes its result into T.
func Call[T any](ctx context.Context, p *Portal, a *action.Action, body *payload.Payload) (T, error) {
	var out T
	raw, err := p.Invoke(ctx, a, body)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("%s - failed to decode %s result: %w", logPrefix, a.Name(), err)
	}
	return out, nil
}

// Documentation returns the server-side documentation of an action.
func (p *Portal) Documentation(ctx context.Context, a *action.Action) (string, error) {
	return Call[string](ctx, p, action.New(HelpAction), payload.JSON(map[string]string{"name": a.Name()}))
}
