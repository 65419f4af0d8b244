// Package app assembles the server from its infrastructure packages and
// owns the serve lifecycle: load config, build the dependency graph,
// compile schemas, freeze the registry, then run the chosen transport.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/buildinfo"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/domain"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/infra/config"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/infra/edgerc"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/infra/telemetry"
)

// App is the top-level entry point used by the CLI commands.
type App struct {
	logger *zap.Logger
}

// New returns an App that logs bootstrap problems to the given logger.
// The serve path replaces it with the logger described by the config.
func New(logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{logger: logger}
}

// ServeConfig carries the command-line inputs for a serve run. Non-empty
// fields override the corresponding file config values.
type ServeConfig struct {
	ConfigPath string
	Transport  string
	Listen     string
	EdgercPath string
	LogLevel   string
}

// EffectiveConfig loads the config file and applies the command-line
// overrides, returning the normalized result.
func (a *App) EffectiveConfig(ctx context.Context, cfg ServeConfig) (domain.Config, error) {
	loader := config.NewLoader(a.logger)
	conf, err := loader.Load(ctx, cfg.ConfigPath)
	if err != nil {
		return domain.Config{}, err
	}
	return applyFlagOverrides(conf, cfg), nil
}

// Tools builds the registry the given config would serve and returns its
// definitions. The CLI uses it for listing and inspection, so the session
// factory behind the handlers is never invoked.
func (a *App) Tools(ctx context.Context, cfg ServeConfig) ([]domain.ToolDefinition, error) {
	conf, err := a.EffectiveConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	sessions := NewSessionFactory(zap.NewNop(), domain.NopMetrics{})
	reg, err := NewToolRegistry(conf, sessions, zap.NewNop())
	if err != nil {
		return nil, err
	}
	return reg.List(), nil
}

// Serve loads configuration, assembles the runtime, and serves until ctx
// is canceled.
func (a *App) Serve(ctx context.Context, cfg ServeConfig) error {
	conf, err := a.EffectiveConfig(ctx, cfg)
	if err != nil {
		return err
	}
	switch conf.Server.Transport {
	case domain.TransportStdio, domain.TransportHTTP:
	default:
		return fmt.Errorf("app: unsupported transport %q", conf.Server.Transport)
	}

	logging, err := NewLogging(conf.Log)
	if err != nil {
		return err
	}
	logger := logging.Logger
	defer func() { _ = logger.Sync() }()

	rt, err := buildRuntime(conf, logging)
	if err != nil {
		return err
	}
	defer rt.close()

	logger.Info("server assembled",
		zap.String("name", conf.Server.Name),
		zap.String("version", buildinfo.String()),
		telemetry.TransportField(conf.Server.Transport),
		zap.Int("tools", rt.tools.Len()),
		zap.Int("accounts", rt.creds.Snapshot().Len()),
	)
	return rt.run(ctx)
}

// ValidateReport summarizes a configuration check. Findings are operator
// problems worth fixing; an error means the check itself could not run.
type ValidateReport struct {
	Findings []string
	Accounts []string
	Tools    int
}

// Valid reports whether the check found nothing to fix.
func (r ValidateReport) Valid() bool {
	return len(r.Findings) == 0
}

// ValidateConfig checks the config file, the credential file, and every
// registered tool schema without starting any transport.
func (a *App) ValidateConfig(ctx context.Context, cfg ServeConfig) (ValidateReport, error) {
	var report ValidateReport

	loader := config.NewLoader(a.logger)
	findings, err := loader.Validate(cfg.ConfigPath)
	if err != nil {
		return report, err
	}
	report.Findings = findings
	if len(findings) > 0 {
		return report, nil
	}

	conf, err := a.EffectiveConfig(ctx, cfg)
	if err != nil {
		return report, err
	}

	store, err := edgerc.Open(conf.Edgerc.Path, a.logger)
	if err != nil {
		report.Findings = append(report.Findings, fmt.Sprintf("edgerc: %v", err))
		return report, nil
	}
	report.Accounts = store.Snapshot().Sections()

	sessions := NewSessionFactory(zap.NewNop(), domain.NopMetrics{})
	reg, err := NewToolRegistry(conf, sessions, zap.NewNop())
	if err != nil {
		report.Findings = append(report.Findings, fmt.Sprintf("tools: %v", err))
		return report, nil
	}
	report.Tools = reg.Len()

	if err := NewSchemaValidator(zap.NewNop()).CompileAll(reg.List()); err != nil {
		report.Findings = append(report.Findings, fmt.Sprintf("schemas: %v", err))
	}
	return report, nil
}

func applyFlagOverrides(conf domain.Config, flags ServeConfig) domain.Config {
	if flags.Transport != "" {
		conf.Server.Transport = flags.Transport
	}
	if flags.Listen != "" {
		conf.Server.Listen = flags.Listen
	}
	if flags.EdgercPath != "" {
		conf.Edgerc.Path = flags.EdgercPath
	}
	if flags.LogLevel != "" {
		conf.Log.Level = flags.LogLevel
	}
	return conf
}
