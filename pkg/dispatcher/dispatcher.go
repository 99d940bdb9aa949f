package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/morezero/ckan-portal/pkg/action"
	"github.com/morezero/ckan-portal/pkg/payload"
	"github.com/morezero/ckan-portal/pkg/portal"
)

const logPrefix = "dispatcher:dispatch"

// ErrorTypeGateway is the error type reported for failures that happen before
// or instead of an upstream envelope (transport, interceptor, bad request).
const ErrorTypeGateway = "Gateway Error"

// Dispatcher invokes gateway requests against an upstream Portal.
type Dispatcher struct {
	portal         *portal.Portal
	defaultVersion int
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithDefaultVersion sets the API version used for requests that carry none.
// Values below 1 are ignored.
func WithDefaultVersion(v int) Option {
	return func(d *Dispatcher) {
		if v > 0 {
			d.defaultVersion = v
		}
	}
}

// NewDispatcher creates a new Dispatcher. Interceptors registered on p apply
// to every dispatched request.
func NewDispatcher(p *portal.Portal, opts ...Option) *Dispatcher {
	d := &Dispatcher{portal: p, defaultVersion: action.DefaultVersion}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch performs one request and always returns a response envelope.
//
// Requests carrying a token or headers run on a portal derived with WithToken,
// so neither leaks into other requests. A caller token is re-applied after the
// portal's own interceptors, so a stored service token never replaces it.
func (d *Dispatcher) Dispatch(ctx context.Context, req *ActionRequest) *ActionResponse {
	userID := "anonymous"
	if req.Ctx != nil && req.Ctx.UserID != "" {
		userID = req.Ctx.UserID
	}
	slog.Debug(fmt.Sprintf("%s - action=%s version=%d id=%s user=%s", logPrefix, req.Action, req.Version, req.ID, userID))

	if req.Ctx != nil && req.Ctx.TimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(req.Ctx.TimeoutMs)*time.Millisecond)
		defer cancel()
	}

	body, err := requestBody(req)
	if err != nil {
		return errorResponse(req.ID, ErrorTypeGateway, err.Error())
	}

	p := d.portal
	if req.Token != "" || len(req.Headers) > 0 {
		token := req.Token
		if token == "" {
			token = p.Token()
		}
		p = p.WithToken(token)
		if len(req.Headers) > 0 {
			p.AddInterceptor(forwardHeaders(req.Headers))
		}
		if req.Token != "" {
			p.AddInterceptor(callerToken(req.Token))
		}
	}

	a := action.New(req.Action)
	a.SetVersion(d.defaultVersion)
	if req.Version > 0 {
		a.SetVersion(req.Version)
	}

	result, err := p.Invoke(ctx, a, body)
	if err != nil {
		return invokeErrorToResponse(req.ID, err)
	}
	return &ActionResponse{ID: req.ID, Success: true, Result: result}
}

func requestBody(req *ActionRequest) (*payload.Payload, error) {
	if req.Multipart {
		form := payload.NewForm()
		for _, part := range req.Form {
			form.AddPart(part)
		}
		return payload.Multipart(form), nil
	}
	if len(req.Payload) == 0 || string(req.Payload) == "null" {
		return nil, nil
	}
	if !json.Valid(req.Payload) {
		return nil, errors.New("payload is not valid JSON")
	}
	return payload.JSON(req.Payload), nil
}

// forwardHeaders copies caller headers onto the upstream request, replacing
// headers of the same name in any letter case. The authorization and
// content-type headers stay under the portal's control.
func forwardHeaders(headers map[string]string) portal.Interceptor {
	return portal.Before(func(_ context.Context, _ *url.URL, params *portal.RequestParams) error {
		for k, v := range headers {
			if strings.EqualFold(k, portal.HeaderAuthorization) || strings.EqualFold(k, portal.HeaderContentType) {
				continue
			}
			params.SetHeader(k, v)
		}
		return nil
	})
}

// callerToken pins the Authorization header to the token sent by the caller.
func callerToken(token string) portal.Interceptor {
	return portal.Before(func(_ context.Context, _ *url.URL, params *portal.RequestParams) error {
		params.SetHeader(portal.HeaderAuthorization, token)
		return nil
	})
}

// --- helpers ---

func errorResponse(id, errType, message string) *ActionResponse {
	env := portal.ErrorEnvelope(errType, message)
	return &ActionResponse{ID: id, Success: false, Error: env.Error}
}

func invokeErrorToResponse(id string, err error) *ActionResponse {
	var perr *portal.Error
	if errors.As(err, &perr) && perr.Kind == portal.KindProtocol {
		return &ActionResponse{ID: id, Success: false, Error: perr.Payload}
	}
	slog.Warn(fmt.Sprintf("%s - id=%s failed: %v", logPrefix, id, err))
	return errorResponse(id, ErrorTypeGateway, err.Error())
}
