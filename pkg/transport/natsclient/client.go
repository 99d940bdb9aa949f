// Package natsclient is a portal.Client that routes invocations through the
// COMMS action gateway instead of calling the upstream API directly.
package natsclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	comms "github.com/nats-io/nats.go"

	"github.com/morezero/ckan-portal/pkg/action"
	"github.com/morezero/ckan-portal/pkg/commsutil"
	"github.com/morezero/ckan-portal/pkg/dispatcher"
	"github.com/morezero/ckan-portal/pkg/payload"
	"github.com/morezero/ckan-portal/pkg/portal"
)

const logPrefix = "natsclient:client"

// HeaderRequestID, when present on a request, is used as the gateway request ID.
const HeaderRequestID = "X-Request-ID"

// Client sends each request as a COMMS request/reply on the gateway subject.
type Client struct {
	nc      *comms.Conn
	subject string
	timeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithSubject overrides the gateway subject.
func WithSubject(subject string) Option {
	return func(c *Client) {
		c.subject = subject
	}
}

// WithTimeout sets the reply timeout used when the context has no deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// New creates a Client on an existing connection.
func New(nc *comms.Conn, opts ...Option) *Client {
	c := &Client{nc: nc, subject: commsutil.SubjectGateway, timeout: 30 * time.Second}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request implements portal.Client. The action is recovered from the URL path,
// the Authorization header becomes the request token and other headers are
// forwarded. The gateway reply is already an envelope.
func (c *Client) Request(ctx context.Context, rawURL string, params *portal.RequestParams) (portal.Response, error) {
	req, err := c.buildRequest(rawURL, params)
	if err != nil {
		return nil, err
	}

	data, err := commsutil.Encode(req)
	if err != nil {
		return nil, err
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	slog.Debug(fmt.Sprintf("%s - %s -> %s id=%s", logPrefix, req.Action, c.subject, req.ID))

	msg, err := c.nc.RequestWithContext(ctx, c.subject, data)
	if err != nil {
		return nil, fmt.Errorf("%s - gateway request failed: %w", logPrefix, err)
	}
	return portal.JSONResponse(msg.Data), nil
}

func (c *Client) buildRequest(rawURL string, params *portal.RequestParams) (*dispatcher.ActionRequest, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%s - invalid url %q: %w", logPrefix, rawURL, err)
	}
	a, ok := action.FromPath(u.Path)
	if !ok {
		return nil, fmt.Errorf("%s - no action in url %q", logPrefix, rawURL)
	}

	req := &dispatcher.ActionRequest{
		Action:  a.Name(),
		Version: a.Version(),
	}

	for k, v := range params.Headers {
		switch {
		case strings.EqualFold(k, portal.HeaderAuthorization):
			req.Token = v
		case strings.EqualFold(k, portal.HeaderContentType):
		case strings.EqualFold(k, HeaderRequestID):
			req.ID = v
			fallthrough
		default:
			if req.Headers == nil {
				req.Headers = map[string]string{}
			}
			req.Headers[k] = v
		}
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	switch body := params.Body.(type) {
	case nil:
	case payload.JSONBody:
		req.Payload = json.RawMessage(body)
	case *payload.Form:
		req.Multipart = true
		req.Form = body.Parts()
	default:
		return nil, fmt.Errorf("%s - unsupported body type %T", logPrefix, params.Body)
	}

	return req, nil
}
