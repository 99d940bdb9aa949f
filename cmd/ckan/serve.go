package main

import (
	"github.com/spf13/cobra"

	"github.com/morezero/ckan-portal/internal/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the action gateway (NATS subscription, health and metrics HTTP server)",
		Long: `serve subscribes to GATEWAY_SUBJECT on COMMS_URL and invokes every request
against CKAN_URL. Invocations are audited when DATABASE_URL is set, published as
events when PUBLISH_EVENTS is true, and authorized from Redis when REDIS_ADDR is
set. GET /health, /ready and /metrics are served on HTTP_PORT.`,
		Args: cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return server.Run()
		},
	}
}
