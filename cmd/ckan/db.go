package main

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/morezero/ckan-portal/internal/config"
	"github.com/morezero/ckan-portal/pkg/db"
)

// withPool loads the configuration, checks DATABASE_URL and runs fn with a
// connected pool.
func withPool(ctx context.Context, fn func(cfg *config.Config, pool *pgxpool.Pool) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	return fn(cfg, pool)
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the audit database schema",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Run database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withPool(cmd.Context(), func(cfg *config.Config, pool *pgxpool.Pool) error {
				migrations, err := db.LoadMigrations(db.FindMigrationDir(cfg.MigrationPath))
				if err != nil {
					return fmt.Errorf("load migrations: %w", err)
				}
				if err := db.RunMigrations(cmd.Context(), pool, migrations); err != nil {
					return fmt.Errorf("run migrations: %w", err)
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "applied %d migrations\n", len(migrations))
				return err
			})
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withPool(cmd.Context(), func(cfg *config.Config, pool *pgxpool.Pool) error {
				state, err := db.MigrationStatus(cmd.Context(), pool, db.FindMigrationDir(cfg.MigrationPath))
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), state.String())
				return err
			})
		},
	}

	cmd.AddCommand(up, status)
	return cmd
}

func newEnsureDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-db [name]",
		Short: "Create the audit database if missing",
		Long: `ensure-db creates the database named in DATABASE_URL, or the given name on the
same server, and enables the extensions the audit schema needs.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.ValidateForDB(); err != nil {
				return err
			}
			target := cfg.DatabaseURL
			if len(args) == 1 {
				if target, err = withDatabaseName(target, args[0]); err != nil {
					return err
				}
			}
			if err := db.EnsureDatabase(cmd.Context(), target); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "database ready")
			return err
		},
	}
}

// withDatabaseName replaces the database of a postgres URL.
func withDatabaseName(databaseURL, name string) (string, error) {
	if name == "" || strings.ContainsAny(name, "/?#") {
		return "", fmt.Errorf("invalid database name %q", name)
	}
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	u.Path = "/" + name
	u.RawPath = ""
	return u.String(), nil
}

func newClearCmd() *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete audit records; the schema is preserved",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withPool(cmd.Context(), func(_ *config.Config, pool *pgxpool.Pool) error {
				var before time.Time
				if olderThan > 0 {
					before = time.Now().Add(-olderThan)
				}
				n, err := db.ClearAudit(cmd.Context(), pool, before)
				if err != nil {
					return err
				}
				if before.IsZero() {
					_, err = fmt.Fprintln(cmd.OutOrStdout(), "audit log cleared")
				} else {
					_, err = fmt.Fprintf(cmd.OutOrStdout(), "deleted %d records\n", n)
				}
				return err
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "only delete records older than this (e.g. 720h)")
	return cmd
}

func newAuditCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect recorded invocations",
	}

	var filter db.ListFilter
	var since time.Duration
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent invocations, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if since > 0 {
				filter.Since = time.Now().Add(-since)
			}
			return withPool(cmd.Context(), func(_ *config.Config, pool *pgxpool.Pool) error {
				rows, err := db.NewRepository(pool).ListInvocations(cmd.Context(), filter)
				if err != nil {
					return err
				}
				return printValue(cmd.OutOrStdout(), root.output, rows)
			})
		},
	}
	list.Flags().StringVar(&filter.Action, "action", "", "only this action")
	list.Flags().BoolVar(&filter.OnlyFailures, "failures", false, "only failed invocations")
	list.Flags().DurationVar(&since, "since", 0, "only invocations within this duration")
	list.Flags().IntVar(&filter.Limit, "limit", db.DefaultListLimit, "maximum number of rows")

	cmd.AddCommand(list)
	return cmd
}
