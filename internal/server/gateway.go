package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/ckan-portal/pkg/commsutil"
	"github.com/morezero/ckan-portal/pkg/dispatcher"
	"github.com/morezero/ckan-portal/pkg/portal"
)

const gatewayLogPrefix = "server:gateway"

// GatewayOpts configures a Gateway. Zero values use the defaults.
type GatewayOpts struct {
	Subject        string
	Queue          string
	RequestTimeout time.Duration
	// DefaultVersion is the API version for requests that name none.
	DefaultVersion int
}

// Gateway serves action requests arriving on a COMMS subject by invoking them
// against an upstream Portal.
type Gateway struct {
	nc      *comms.Conn
	disp    *dispatcher.Dispatcher
	subject string
	queue   string
	timeout time.Duration
	sub     *comms.Subscription
}

// NewGateway creates a Gateway for p. Call Start to subscribe.
func NewGateway(nc *comms.Conn, p *portal.Portal, opts GatewayOpts) *Gateway {
	g := &Gateway{
		nc:      nc,
		disp:    dispatcher.NewDispatcher(p, dispatcher.WithDefaultVersion(opts.DefaultVersion)),
		subject: opts.Subject,
		queue:   opts.Queue,
		timeout: opts.RequestTimeout,
	}
	if g.subject == "" {
		g.subject = commsutil.SubjectGateway
	}
	if g.queue == "" {
		g.queue = commsutil.QueueGateway
	}
	if g.timeout <= 0 {
		g.timeout = 25 * time.Second
	}
	return g
}

// Start subscribes to the gateway subject in the gateway queue group, so
// several gateways share the load. Requests are served until ctx ends or Stop
// is called.
func (g *Gateway) Start(ctx context.Context) error {
	sub, err := g.nc.QueueSubscribe(g.subject, g.queue, func(msg *comms.Msg) {
		g.handle(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("%s - failed to subscribe to %s: %w", gatewayLogPrefix, g.subject, err)
	}
	g.sub = sub
	slog.Info(fmt.Sprintf("%s - Subscribed to %s (queue %s)", gatewayLogPrefix, g.subject, g.queue))
	return nil
}

// Stop drains the subscription.
func (g *Gateway) Stop() error {
	if g.sub == nil {
		return nil
	}
	return g.sub.Drain()
}

func (g *Gateway) handle(ctx context.Context, msg *comms.Msg) {
	req, err := commsutil.Decode[dispatcher.ActionRequest](msg.Data)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - failed to decode request: %v", gatewayLogPrefix, err))
		env := portal.ErrorEnvelope(dispatcher.ErrorTypeGateway, "failed to decode request")
		if err := commsutil.Respond(msg, &dispatcher.ActionResponse{Success: false, Error: env.Error}); err != nil {
			slog.Error(fmt.Sprintf("%s - failed to respond: %v", gatewayLogPrefix, err))
		}
		return
	}

	reqCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp := g.disp.Dispatch(reqCtx, req)
	if err := commsutil.Respond(msg, resp); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to respond to %s: %v", gatewayLogPrefix, req.ID, err))
	}
}
