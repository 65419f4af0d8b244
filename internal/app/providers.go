package app

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/buildinfo"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/domain"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/infra/cache"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/infra/config"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/infra/edgegrid"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/infra/edgerc"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/infra/mcpserver"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/infra/pipeline"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/infra/registry"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/infra/schema"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/infra/telemetry"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/tools/certs"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/tools/dns"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/tools/netlist"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/tools/property"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/tools/purge"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/tools/reporting"
)

// NewMetricsRegistry constructs the Prometheus registry with process and
// Go runtime collectors preinstalled.
func NewMetricsRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	registry.MustRegister(prometheus.NewGoCollector())
	return registry
}

// NewMetrics constructs the pipeline metrics sink backed by the registry.
func NewMetrics(registry *prometheus.Registry) domain.Metrics {
	return telemetry.NewPrometheusMetrics(registry)
}

// NewHealthTracker constructs the readiness and liveness tracker.
func NewHealthTracker() *telemetry.HealthTracker {
	return telemetry.NewHealthTracker()
}

// NewEdgercStore opens and parses the credential file named by the config.
func NewEdgercStore(cfg domain.Config, logger *zap.Logger) (*edgerc.Store, error) {
	return edgerc.Open(cfg.Edgerc.Path, logger)
}

// NewCredentialResolver constructs the account-to-credentials resolver.
func NewCredentialResolver(store *edgerc.Store, logger *zap.Logger) *edgerc.Resolver {
	return edgerc.NewResolver(store, logger)
}

// NewCacheStore constructs the result cache selected by the config. A
// disabled cache yields nil, which the executor treats as a pass-through.
func NewCacheStore(cfg domain.Config, logger *zap.Logger, metrics domain.Metrics) (cache.Store, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	if cfg.Cache.Backend == domain.CacheBackendBolt {
		return cache.OpenBolt(cfg.Cache.Path, cache.BoltOptions{
			Logger:  logger,
			Metrics: metrics,
		})
	}
	return cache.NewMemoryStore(cache.MemoryOptions{
		MaxEntries: cfg.Cache.MaxEntries,
		Logger:     logger,
		Metrics:    metrics,
	}), nil
}

// NewSessionFactory constructs the EdgeGrid session factory shared by all
// tool handlers.
func NewSessionFactory(logger *zap.Logger, metrics domain.Metrics) edgegrid.SessionFactory {
	return edgegrid.NewSessionFactory(edgegrid.ClientOptions{
		UserAgent: fmt.Sprintf("%s/%s", domain.DefaultServerName, buildinfo.Version),
		Logger:    logger,
		Metrics:   metrics,
	})
}

// toolModules maps registration functions to the domain names the config
// tools.domains map switches on and off.
var toolModules = []struct {
	name     string
	register func(*registry.Registry, edgegrid.SessionFactory) error
}{
	{"property", property.Register},
	{"dns", dns.Register},
	{"certs", certs.Register},
	{"netlist", netlist.Register},
	{"purge", purge.Register},
	{"reporting", reporting.Register},
}

// NewToolRegistry registers every enabled tool domain and applies the
// operator overrides file on top. The registry is returned unfrozen so
// the caller can compile schemas before sealing it.
func NewToolRegistry(cfg domain.Config, sessions edgegrid.SessionFactory, logger *zap.Logger) (*registry.Registry, error) {
	reg := registry.New(logger)
	for _, module := range toolModules {
		if !cfg.Tools.DomainEnabled(module.name) {
			logger.Info("tool domain disabled", telemetry.DomainField(module.name))
			continue
		}
		if err := module.register(reg, sessions); err != nil {
			return nil, fmt.Errorf("app: register %s tools: %w", module.name, err)
		}
	}

	overrides, err := config.LoadOverrides(cfg.Tools.OverridesPath)
	if err != nil {
		return nil, err
	}
	for _, warning := range config.ApplyOverrides(reg, overrides, logger) {
		logger.Warn("tool override skipped", zap.String("reason", warning))
	}
	return reg, nil
}

// NewSchemaValidator constructs the argument validator.
func NewSchemaValidator(logger *zap.Logger) *schema.Validator {
	return schema.NewValidator(logger)
}

// NewExecutor constructs the request execution pipeline.
func NewExecutor(
	cfg domain.Config,
	tools *registry.Registry,
	validator *schema.Validator,
	resolver *edgerc.Resolver,
	store cache.Store,
	logger *zap.Logger,
	metrics domain.Metrics,
) (*pipeline.Executor, error) {
	return pipeline.NewExecutor(pipeline.ExecutorOptions{
		Tools:           tools,
		Validator:       validator,
		Credentials:     resolver,
		Cache:           store,
		DefaultTimeout:  cfg.Server.RequestTimeout,
		DefaultCacheTTL: cfg.Cache.DefaultTTL,
		Logger:          logger,
		Metrics:         metrics,
	})
}

// NewBridge constructs the MCP bridge from the registered tools. The server
// version falls back to the build version when the config leaves it empty.
func NewBridge(
	cfg domain.Config,
	tools *registry.Registry,
	executor *pipeline.Executor,
	logs *telemetry.LogBroadcaster,
	logger *zap.Logger,
) (*mcpserver.Bridge, error) {
	version := cfg.Server.Version
	if version == "" {
		version = buildinfo.Version
	}
	return mcpserver.NewBridge(mcpserver.Options{
		Name:        cfg.Server.Name,
		Version:     version,
		Registry:    tools,
		Executor:    executor,
		Broadcaster: logs,
		Logger:      logger,
	})
}
