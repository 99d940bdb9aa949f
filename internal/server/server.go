// Package server runs the action gateway: it connects to COMMS (NATS), wires
// the upstream Portal with its interceptors, optional audit database and token
// store, and serves health and metrics over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	comms "github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/morezero/ckan-portal/internal/config"
	"github.com/morezero/ckan-portal/internal/logging"
	"github.com/morezero/ckan-portal/pkg/commsutil"
	"github.com/morezero/ckan-portal/pkg/db"
	"github.com/morezero/ckan-portal/pkg/events"
	"github.com/morezero/ckan-portal/pkg/tokenstore"
)

const logPrefix = "server:server"

// Server is the ckan-gateway orchestrator.
type Server struct {
	cfg        *config.Config
	nc         *comms.Conn
	pool       *pgxpool.Pool
	tokens     *tokenstore.Redis
	gateway    *Gateway
	httpServer *http.Server
}

// Run starts the gateway, blocks until SIGINT or SIGTERM, then cleans up.
func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("%s - failed to load config: %w", logPrefix, err)
	}
	if err := cfg.ValidateForServe(); err != nil {
		return err
	}
	slog.SetDefault(logging.New(cfg.LogLevel, nil))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s := &Server{cfg: cfg}
	defer s.close()

	if err := s.start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	slog.Info(fmt.Sprintf("%s - Received shutdown signal", logPrefix))
	return s.shutdown()
}

func (s *Server) start(ctx context.Context) error {
	cfg := s.cfg
	slog.Info(fmt.Sprintf("%s - Starting ckan-gateway for %s", logPrefix, cfg.CKANURL))

	// Step 1: Connect to NATS
	nc, err := commsutil.Connect(cfg.COMMSURL, cfg.COMMSName)
	if err != nil {
		return fmt.Errorf("%s - failed to connect to NATS: %w", logPrefix, err)
	}
	s.nc = nc

	checks := map[string]Check{
		"comms": func(context.Context) error { return commsutil.Ping(nc, cfg.HealthCheckTimeout) },
	}
	opts := PortalOptions{}

	// Step 2: Audit database (optional)
	if cfg.AuditEnabled() {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("%s - failed to connect to database: %w", logPrefix, err)
		}
		s.pool = pool

		if cfg.RunMigrations {
			migrations, err := db.LoadMigrations(db.FindMigrationDir(cfg.MigrationPath))
			if err != nil {
				return fmt.Errorf("%s - failed to load migrations: %w", logPrefix, err)
			}
			if err := db.RunMigrations(ctx, pool, migrations); err != nil {
				return fmt.Errorf("%s - failed to run migrations: %w", logPrefix, err)
			}
		}
		opts.Audit = db.NewRepository(pool)
		checks["database"] = pool.Ping
	}

	// Step 3: Token store (optional)
	if cfg.TokenStoreEnabled() {
		s.tokens = tokenstore.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		opts.Tokens = s.tokens
		checks["tokens"] = s.tokens.Ping
	}

	// Step 4: Events and metrics
	if cfg.PublishEvents {
		opts.Publisher = events.NewCommsPublisher(nc, nil)
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	opts.Registerer = reg

	// Step 5: Upstream portal and gateway subscription
	p, err := NewPortal(cfg, opts)
	if err != nil {
		return err
	}
	s.gateway = NewGateway(nc, p, GatewayOpts{
		Subject:        cfg.GatewaySubject,
		Queue:          cfg.GatewayQueue,
		RequestTimeout: cfg.GatewayRequestTimeout,
		DefaultVersion: cfg.APIVersion,
	})
	// In-flight requests finish during drain even after the signal arrives.
	if err := s.gateway.Start(context.WithoutCancel(ctx)); err != nil {
		return err
	}

	// Step 6: HTTP health server
	httpAddr := fmt.Sprintf(":%d", cfg.HTTPPort)
	s.httpServer = &http.Server{
		Addr:              httpAddr,
		Handler:           NewRouter(checks, cfg.HealthCheckTimeout, reg),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info(fmt.Sprintf("%s - HTTP health server listening on %s", logPrefix, httpAddr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error(fmt.Sprintf("%s - HTTP server error: %v", logPrefix, err))
		}
	}()

	slog.Info(fmt.Sprintf("%s - ckan-gateway is ready", logPrefix))
	return nil
}

func (s *Server) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var errs []error
	if s.gateway != nil {
		errs = append(errs, s.gateway.Stop())
	}
	if s.httpServer != nil {
		errs = append(errs, s.httpServer.Shutdown(shutdownCtx))
	}
	if s.nc != nil {
		errs = append(errs, s.nc.Drain())
	}

	slog.Info(fmt.Sprintf("%s - Shutdown complete", logPrefix))
	return errors.Join(errs...)
}

// close releases whatever start acquired; it is safe after a partial start.
func (s *Server) close() {
	if s.tokens != nil {
		_ = s.tokens.Close()
	}
	if s.pool != nil {
		s.pool.Close()
	}
	if s.nc != nil && !s.nc.IsClosed() {
		s.nc.Close()
	}
}
