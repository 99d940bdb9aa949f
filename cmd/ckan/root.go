package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/morezero/ckan-portal/internal/config"
	"github.com/morezero/ckan-portal/internal/logging"
	"github.com/morezero/ckan-portal/pkg/profiles"
)

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	profile  string
	output   string
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "ckan",
		Short: "Invoke CKAN actions and run the ckan action gateway",
		Long: `ckan calls actions of a CKAN site (https://docs.ckan.org/en/latest/api/).

Actions are invoked directly over HTTP, or with --via-nats through a running
gateway ("ckan serve"). Settings come from the environment (CKAN_URL,
CKAN_API_TOKEN, COMMS_URL, DATABASE_URL, ...) and may be overridden by a
named profile from PROFILES_FILE.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := opts.logLevel
			if level == "" {
				level = "warn"
			}
			slog.SetDefault(logging.New(level, cmd.ErrOrStderr()))
		},
	}

	root.PersistentFlags().StringVarP(&opts.profile, "profile", "p", "", "named site from the profiles file")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", "json", "output format: json or yaml")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		newCallCmd(opts),
		newDocsCmd(opts),
		newStatusCmd(opts),
		newTokenCmd(opts),
		newServeCmd(),
		newMigrateCmd(),
		newEnsureDBCmd(),
		newClearCmd(),
		newAuditCmd(opts),
	)
	return root
}

// loadConfig reads the environment and applies the selected profile. Without
// --profile the environment is used as is.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if o.profile == "" {
		return cfg, nil
	}

	pcfg, err := profiles.Load(cfg.ProfilesFile)
	if err != nil {
		return nil, err
	}
	p := profiles.Resolve(pcfg).Get(o.profile)
	if p == nil {
		return nil, fmt.Errorf("unknown profile %q", o.profile)
	}
	cfg.CKANURL = p.URL
	if token := p.Token(); token != "" {
		cfg.APIToken = token
	}
	if p.Version > 0 {
		cfg.APIVersion = p.Version
	}
	return cfg, nil
}
