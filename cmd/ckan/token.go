package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/morezero/ckan-portal/pkg/tokenstore"
)

func newTokenCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the API token kept in Redis (REDIS_ADDR, TOKEN_KEY)",
	}

	var ttl time.Duration
	set := &cobra.Command{
		Use:   "set <token>",
		Short: "Store a token; running clients and gateways pick it up on their next request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, key, err := openTokenStore(root)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.Set(cmd.Context(), key, args[0], ttl); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "stored token under %s\n", key)
			return err
		},
	}
	set.Flags().DurationVar(&ttl, "ttl", 0, "expire the token after this duration (0 keeps it)")

	get := &cobra.Command{
		Use:   "get",
		Short: "Print the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, key, err := openTokenStore(root)
			if err != nil {
				return err
			}
			defer store.Close()
			token, err := store.Get(cmd.Context(), key)
			if errors.Is(err, tokenstore.ErrNotFound) {
				return fmt.Errorf("no token stored under %s", key)
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	del := &cobra.Command{
		Use:   "delete",
		Short: "Remove the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, key, err := openTokenStore(root)
			if err != nil {
				return err
			}
			defer store.Close()
			return store.Delete(cmd.Context(), key)
		},
	}

	cmd.AddCommand(set, get, del)
	return cmd
}

func openTokenStore(root *rootOptions) (*tokenstore.Redis, string, error) {
	cfg, err := root.loadConfig()
	if err != nil {
		return nil, "", err
	}
	if !cfg.TokenStoreEnabled() {
		return nil, "", errors.New("REDIS_ADDR is required")
	}
	return tokenstore.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB), cfg.TokenKey, nil
}
