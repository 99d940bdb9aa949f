package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	comms "github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/morezero/ckan-portal/internal/config"
	"github.com/morezero/ckan-portal/internal/server"
	"github.com/morezero/ckan-portal/pkg/action"
	"github.com/morezero/ckan-portal/pkg/commsutil"
	"github.com/morezero/ckan-portal/pkg/payload"
	"github.com/morezero/ckan-portal/pkg/portal"
	"github.com/morezero/ckan-portal/pkg/semver"
	"github.com/morezero/ckan-portal/pkg/tokenstore"
	"github.com/morezero/ckan-portal/pkg/transport/natsclient"
)

// portalFlags selects how a command reaches the CKAN site.
type portalFlags struct {
	viaNATS bool
	token   string
}

func (f *portalFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.viaNATS, "via-nats", false, "send the request through the action gateway on COMMS_URL")
	cmd.Flags().StringVar(&f.token, "token", "", "API token (overrides CKAN_API_TOKEN and the profile)")
}

// openPortal builds the portal for cfg. The returned cleanup closes any
// connections it opened.
func openPortal(cfg *config.Config, f *portalFlags) (*portal.Portal, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if f.token != "" {
		cfg.APIToken = f.token
	}

	opts := server.PortalOptions{}
	if f.viaNATS {
		nc, err := commsutil.Connect(cfg.COMMSURL, "ckan-cli", comms.MaxReconnects(0))
		if err != nil {
			return nil, cleanup, fmt.Errorf("connect to gateway: %w", err)
		}
		closers = append(closers, nc.Close)
		opts.Client = natsclient.New(nc,
			natsclient.WithSubject(cfg.GatewaySubject),
			natsclient.WithTimeout(cfg.RequestTimeout),
		)
	}
	if cfg.TokenStoreEnabled() && f.token == "" {
		store := tokenstore.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		closers = append(closers, func() { _ = store.Close() })
		opts.Tokens = store
	}

	p, err := server.NewPortal(cfg, opts)
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}
	return p, cleanup, nil
}

// parseAction reads "name" or "name@version"; without a version the
// configured default applies.
func parseAction(ref string, defaultVersion int) (*action.Action, error) {
	parsed, err := semver.ParseActionRef(ref)
	if err != nil {
		return nil, err
	}
	a := action.New(parsed.Name)
	switch {
	case parsed.Major >= 0:
		a.SetVersion(parsed.Major)
	case defaultVersion > 0:
		a.SetVersion(defaultVersion)
	}
	return a, nil
}

func newCallCmd(root *rootOptions) *cobra.Command {
	pf := &portalFlags{}
	var forms, files []string

	cmd := &cobra.Command{
		Use:   "call <action[@version]> [json|-]",
		Short: "Invoke an action and print its result",
		Example: `  ckan call package_search '{"q": "water", "rows": 5}'
  ckan call status_show -o yaml
  ckan call resource_create --form package_id=my-dataset --file upload=./data.csv
  echo '{"id": "my-dataset"}' | ckan call package_show -`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			a, err := parseAction(args[0], cfg.APIVersion)
			if err != nil {
				return err
			}

			jsonArg := ""
			if len(args) == 2 {
				jsonArg = args[1]
			}
			body, err := buildBody(jsonArg, forms, files, cmd.InOrStdin())
			if err != nil {
				return err
			}

			p, cleanup, err := openPortal(cfg, pf)
			defer cleanup()
			if err != nil {
				return err
			}

			result, err := p.Invoke(cmd.Context(), a, body)
			if err != nil {
				return describeError(cmd.ErrOrStderr(), root.output, err)
			}
			return printValue(cmd.OutOrStdout(), root.output, result)
		},
	}

	pf.register(cmd)
	cmd.Flags().StringArrayVar(&forms, "form", nil, "multipart text field name=value (repeatable)")
	cmd.Flags().StringArrayVar(&files, "file", nil, "multipart file field name=path (repeatable)")
	return cmd
}

// buildBody turns the command line into a payload. With --form or --file the
// request is multipart and a JSON object argument is flattened into fields.
func buildBody(jsonArg string, forms, files []string, stdin io.Reader) (*payload.Payload, error) {
	if jsonArg == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		jsonArg = strings.TrimSpace(string(data))
	}
	if jsonArg != "" && !json.Valid([]byte(jsonArg)) {
		return nil, errors.New("payload is not valid JSON")
	}

	if len(forms) == 0 && len(files) == 0 {
		if jsonArg == "" {
			return nil, nil
		}
		return payload.JSON(json.RawMessage(jsonArg)), nil
	}

	form := payload.NewForm()
	if jsonArg != "" {
		var fields map[string]any
		if err := json.Unmarshal([]byte(jsonArg), &fields); err != nil {
			return nil, errors.New("payload must be a JSON object when combined with --form or --file")
		}
		flat, err := payload.FormFromStruct(fields)
		if err != nil {
			return nil, err
		}
		for _, part := range flat.Parts() {
			form.AddPart(part)
		}
	}
	for _, kv := range forms {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --form %q, want name=value", kv)
		}
		form.Add(name, value)
	}
	for _, kv := range files {
		name, path, ok := strings.Cut(kv, "=")
		if !ok || name == "" || path == "" {
			return nil, fmt.Errorf("invalid --file %q, want name=path", kv)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		form.AddFile(name, filepath.Base(path), mime.TypeByExtension(filepath.Ext(path)), data)
	}
	return payload.Multipart(form), nil
}

// describeError prints the server's error value for protocol errors and
// returns an error for the exit status.
func describeError(w io.Writer, format string, err error) error {
	var perr *portal.Error
	if errors.As(err, &perr) && perr.Kind == portal.KindProtocol {
		_ = printValue(w, format, perr.Payload)
	}
	return err
}

func newDocsCmd(root *rootOptions) *cobra.Command {
	pf := &portalFlags{}
	cmd := &cobra.Command{
		Use:   "docs <action>",
		Short: "Print the server-side documentation of an action",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			a, err := parseAction(args[0], cfg.APIVersion)
			if err != nil {
				return err
			}
			p, cleanup, err := openPortal(cfg, pf)
			defer cleanup()
			if err != nil {
				return err
			}

			doc, err := p.Documentation(cmd.Context(), a)
			if err != nil {
				return describeError(cmd.ErrOrStderr(), root.output, err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(doc))
			return err
		},
	}
	pf.register(cmd)
	return cmd
}

func newStatusCmd(root *rootOptions) *cobra.Command {
	pf := &portalFlags{}
	var require string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the site's CKAN version and extensions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			p, cleanup, err := openPortal(cfg, pf)
			defer cleanup()
			if err != nil {
				return err
			}

			if require != "" {
				if err := p.RequireVersion(cmd.Context(), require); err != nil {
					return err
				}
			}
			status, err := p.Status(cmd.Context())
			if err != nil {
				return describeError(cmd.ErrOrStderr(), root.output, err)
			}
			return printValue(cmd.OutOrStdout(), root.output, status)
		},
	}
	pf.register(cmd)
	cmd.Flags().StringVar(&require, "require", "", "fail unless the server version satisfies this range, e.g. \">=2.9\"")
	return cmd
}
