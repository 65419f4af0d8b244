package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/app"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/buildinfo"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/domain"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/infra/config"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	root := newRootCmd(logger)
	if err := root.Execute(); err != nil {
		logger.Fatal("command failed", zap.Error(err))
	}
}

func newRootCmd(logger *zap.Logger) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "alecs",
		Short: "Akamai control-plane MCP server",
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file (defaults apply when empty)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(
		newServeCmd(logger, opts),
		newValidateCmd(logger, opts),
		newConfigCmd(logger, opts),
		newToolsCmd(logger, opts),
		newVersionCmd(),
	)

	return root
}

func newServeCmd(logger *zap.Logger, opts *rootOptions) *cobra.Command {
	var (
		transport  string
		listen     string
		edgercPath string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalAwareContext(cmd.Context())
			defer cancel()

			application := app.New(logger)
			return application.Serve(ctx, app.ServeConfig{
				ConfigPath: opts.configPath,
				Transport:  transport,
				Listen:     listen,
				EdgercPath: edgercPath,
				LogLevel:   opts.logLevel,
			})
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "", "transport to serve (stdio or http)")
	cmd.Flags().StringVar(&listen, "listen", "", "listen address for the http transport")
	cmd.Flags().StringVar(&edgercPath, "edgerc", "", "path to the EdgeGrid credential file")

	return cmd
}

func newValidateCmd(logger *zap.Logger, opts *rootOptions) *cobra.Command {
	var edgercPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check configuration, credentials, and tool schemas without serving",
		RunE: func(cmd *cobra.Command, args []string) error {
			application := app.New(logger)
			report, err := application.ValidateConfig(cmd.Context(), app.ServeConfig{
				ConfigPath: opts.configPath,
				EdgercPath: edgercPath,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !report.Valid() {
				for _, finding := range report.Findings {
					fmt.Fprintln(out, finding)
				}
				return fmt.Errorf("configuration check failed with %d finding(s)", len(report.Findings))
			}
			fmt.Fprintf(out, "configuration ok: %d tools, %d account(s)\n", report.Tools, len(report.Accounts))
			return nil
		},
	}

	cmd.Flags().StringVar(&edgercPath, "edgerc", "", "path to the EdgeGrid credential file")
	return cmd
}

func newConfigCmd(logger *zap.Logger, opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and scaffold configuration",
	}
	cmd.AddCommand(newConfigPrintCmd(logger, opts), newConfigInitCmd())
	return cmd
}

func newConfigPrintCmd(logger *zap.Logger, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "print",
		Short: "Print the effective configuration with defaults applied",
		RunE: func(cmd *cobra.Command, args []string) error {
			application := app.New(logger)
			conf, err := application.EffectiveConfig(cmd.Context(), app.ServeConfig{
				ConfigPath: opts.configPath,
				LogLevel:   opts.logLevel,
			})
			if err != nil {
				return err
			}
			data, err := config.Render(conf)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newConfigInitCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if outPath == "" {
				_, err := cmd.OutOrStdout().Write(config.StarterConfig())
				return err
			}
			if _, err := os.Stat(outPath); err == nil {
				return fmt.Errorf("%s already exists", outPath)
			}
			return os.WriteFile(outPath, config.StarterConfig(), 0o644)
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write to file instead of stdout")
	return cmd
}

func newToolsCmd(logger *zap.Logger, opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Inspect the registered tools",
	}
	cmd.AddCommand(newToolsListCmd(logger, opts), newToolsDescribeCmd(logger, opts))
	return cmd
}

func newToolsListCmd(logger *zap.Logger, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every registered tool",
		RunE: func(cmd *cobra.Command, args []string) error {
			application := app.New(logger)
			defs, err := application.Tools(cmd.Context(), app.ServeConfig{ConfigPath: opts.configPath})
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tDOMAIN\tKIND\tCACHE\tDESCRIPTION")
			for _, def := range defs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					def.Name, def.EffectiveDomain(), toolKind(def), cacheColumn(def), def.Description)
			}
			return w.Flush()
		},
	}
}

func newToolsDescribeCmd(logger *zap.Logger, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <tool>",
		Short: "Show one tool's definition and argument schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application := app.New(logger)
			defs, err := application.Tools(cmd.Context(), app.ServeConfig{ConfigPath: opts.configPath})
			if err != nil {
				return err
			}
			for _, def := range defs {
				if def.Name == args[0] {
					return describeTool(cmd.OutOrStdout(), def)
				}
			}
			return fmt.Errorf("unknown tool %q", args[0])
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), buildinfo.String())
		},
	}
}

func describeTool(out io.Writer, def domain.ToolDefinition) error {
	fmt.Fprintf(out, "name: %s\n", def.Name)
	fmt.Fprintf(out, "domain: %s\n", def.EffectiveDomain())
	fmt.Fprintf(out, "description: %s\n", def.Description)
	fmt.Fprintf(out, "kind: %s\n", toolKind(def))
	fmt.Fprintf(out, "cache: %s\n", cacheColumn(def))
	if len(def.InvalidatePatterns) > 0 {
		fmt.Fprintf(out, "invalidates: %s\n", strings.Join(def.InvalidatePatterns, ", "))
	}
	if def.Timeout > 0 {
		fmt.Fprintf(out, "timeout: %s\n", def.Timeout)
	}
	if def.Deprecated != "" {
		fmt.Fprintf(out, "deprecated: %s\n", def.Deprecated)
	}

	schemaJSON, err := json.MarshalIndent(def.InputSchema, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "schema:\n%s\n", schemaJSON)
	return nil
}

func toolKind(def domain.ToolDefinition) string {
	ann := def.Annotations
	switch {
	case ann == nil:
		return "mutating"
	case ann.ReadOnlyHint:
		return "read-only"
	case ann.DestructiveHint != nil && *ann.DestructiveHint:
		return "destructive"
	default:
		return "mutating"
	}
}

func cacheColumn(def domain.ToolDefinition) string {
	if !def.Cacheable {
		return "-"
	}
	ttl := def.CacheTTL
	if ttl <= 0 {
		ttl = domain.DefaultCacheTTL
	}
	if def.EffectiveScope() == domain.ScopeGlobal {
		return ttl.String() + " global"
	}
	return ttl.String()
}

func signalAwareContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(signals)
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
