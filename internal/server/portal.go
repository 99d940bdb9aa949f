package server

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/morezero/ckan-portal/internal/config"
	"github.com/morezero/ckan-portal/pkg/events"
	"github.com/morezero/ckan-portal/pkg/interceptors"
	"github.com/morezero/ckan-portal/pkg/portal"
	"github.com/morezero/ckan-portal/pkg/tokenstore"
	"github.com/morezero/ckan-portal/pkg/transport"
	"github.com/morezero/ckan-portal/pkg/transport/httpclient"
)

// PortalOptions supplies the optional collaborators of a configured Portal.
// Nil fields disable the matching interceptor.
type PortalOptions struct {
	// Client replaces the HTTP transport (the retry decorator still applies).
	Client portal.Client
	Logger *slog.Logger
	// Registerer enables Prometheus metrics.
	Registerer prometheus.Registerer
	// Publisher receives invocation events.
	Publisher events.EventPublisher
	// Audit records invocations, typically a *db.Repository.
	Audit events.EventPublisher
	// Tokens overrides the configured token with the one stored under cfg.TokenKey.
	Tokens tokenstore.Store
}

// NewPortal builds a Portal for cfg.CKANURL with the configured transport and
// the standard interceptor chain.
func NewPortal(cfg *config.Config, opts PortalOptions) (*portal.Portal, error) {
	client := opts.Client
	if client == nil {
		client = httpclient.New(
			httpclient.WithHTTPClient(httpclient.NewHTTPClient(cfg.RequestTimeout, cfg.TLSVerify)),
			httpclient.WithUserAgent(cfg.UserAgent),
		)
	}
	if cfg.MaxRetries > 0 {
		client = transport.Retrying(client,
			transport.WithMaxRetries(cfg.MaxRetries),
			transport.WithInitialInterval(cfg.RetryDelay),
		)
	}

	p, err := portal.New(cfg.CKANURL, client)
	if err != nil {
		return nil, fmt.Errorf("%s - %w", logPrefix, err)
	}
	if cfg.APIToken != "" {
		p = p.WithToken(cfg.APIToken)
	}

	p.AddInterceptor(interceptors.RequestID())
	if limiter := interceptors.NewLimiter(cfg.RateLimit, cfg.RateBurst); limiter != nil {
		p.AddInterceptor(interceptors.RateLimit(limiter))
	}
	if opts.Tokens != nil {
		p.AddInterceptor(interceptors.BearerFromStore(opts.Tokens, cfg.TokenKey))
	}
	if opts.Registerer != nil {
		m, err := interceptors.NewMetrics(opts.Registerer)
		if err != nil {
			return nil, fmt.Errorf("%s - failed to register metrics: %w", logPrefix, err)
		}
		p.AddInterceptor(m.Interceptor())
	}
	if opts.Publisher != nil {
		p.AddInterceptor(interceptors.Events(opts.Publisher))
	}
	if opts.Audit != nil {
		p.AddInterceptor(interceptors.Audit(opts.Audit))
	}
	p.AddInterceptor(interceptors.Logging(opts.Logger))

	return p, nil
}
