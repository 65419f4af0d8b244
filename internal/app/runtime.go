package app

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/domain"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/infra/cache"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/infra/edgerc"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/infra/mcpserver"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/infra/registry"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/infra/schema"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/infra/telemetry"
)

// cleanupStarter is satisfied by cache backends that sweep expired
// entries on a timer.
type cleanupStarter interface {
	StartCleanup(ctx context.Context, interval time.Duration)
}

const (
	watcherBeatInterval = 15 * time.Second
	watcherStaleAfter   = 3 * watcherBeatInterval
)

// runtime is the fully assembled server: every dependency constructed,
// schemas compiled, registry frozen. run serves it until the context ends.
type runtime struct {
	cfg          domain.Config
	logger       *zap.Logger
	promRegistry *prometheus.Registry
	health       *telemetry.HealthTracker
	creds        *edgerc.Store
	watcher      *edgerc.Watcher
	results      cache.Store
	tools        *registry.Registry
	bridge       *mcpserver.Bridge
}

// newRuntime seals the assembled dependencies: compiles every registered
// schema, freezes the registry, and hooks the credential watcher to cache
// invalidation for removed accounts.
func newRuntime(
	cfg domain.Config,
	logging Logging,
	promRegistry *prometheus.Registry,
	health *telemetry.HealthTracker,
	creds *edgerc.Store,
	results cache.Store,
	tools *registry.Registry,
	validator *schema.Validator,
	bridge *mcpserver.Bridge,
) (*runtime, error) {
	logger := logging.Logger

	if err := validator.CompileAll(tools.List()); err != nil {
		return nil, err
	}
	tools.Freeze()

	var watcher *edgerc.Watcher
	if cfg.Edgerc.Watch {
		watcher = edgerc.NewWatcher(creds, edgerc.WatcherOptions{
			OnRemove: func(sections []string) {
				if results == nil {
					return
				}
				for _, section := range sections {
					dropped := results.InvalidateAccount(section)
					logger.Info("cache dropped for removed account",
						telemetry.AccountField(section),
						zap.Int("entries", dropped),
					)
				}
			},
			Logger: logger,
		})
	}

	return &runtime{
		cfg:          cfg,
		logger:       logger,
		promRegistry: promRegistry,
		health:       health,
		creds:        creds,
		watcher:      watcher,
		results:      results,
		tools:        tools,
		bridge:       bridge,
	}, nil
}

// buildRuntime assembles the runtime from a normalized config. Construction
// order matters only for error cleanup; the sequencing requirements live in
// newRuntime.
func buildRuntime(cfg domain.Config, logging Logging) (*runtime, error) {
	logger := NewLogger(logging)

	promRegistry := NewMetricsRegistry()
	metrics := NewMetrics(promRegistry)
	health := NewHealthTracker()

	creds, err := NewEdgercStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	results, err := NewCacheStore(cfg, logger, metrics)
	if err != nil {
		return nil, err
	}
	assembled := false
	defer func() {
		if !assembled && results != nil {
			_ = results.Close()
		}
	}()

	sessions := NewSessionFactory(logger, metrics)
	tools, err := NewToolRegistry(cfg, sessions, logger)
	if err != nil {
		return nil, err
	}

	validator := NewSchemaValidator(logger)
	resolver := NewCredentialResolver(creds, logger)
	executor, err := NewExecutor(cfg, tools, validator, resolver, results, logger, metrics)
	if err != nil {
		return nil, err
	}

	bridge, err := NewBridge(cfg, tools, executor, NewLogBroadcaster(logging), logger)
	if err != nil {
		return nil, err
	}

	rt, err := newRuntime(cfg, logging, promRegistry, health, creds, results, tools, validator, bridge)
	if err != nil {
		return nil, err
	}
	assembled = true
	return rt, nil
}

// run starts the auxiliary loops, marks the server ready, and serves the
// configured transport until ctx is canceled.
func (r *runtime) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	obs := telemetry.NewObservabilityController(telemetry.ObservabilityControllerOptions{
		DefaultMetricsEnabled: true,
		DefaultHealthzEnabled: true,
		Registry:              r.promRegistry,
		Health:                r.health,
		Logger:                r.logger,
	})
	if err := obs.Apply(ctx, r.cfg.Observability); err != nil {
		r.logger.Warn("observability endpoints unavailable", zap.Error(err))
	}

	if sweeper, ok := r.results.(cleanupStarter); ok {
		sweeper.StartCleanup(ctx, r.cfg.Cache.CleanupInterval)
	}

	if r.watcher != nil {
		// Beats stop when the watcher exits, so /healthz reports the loss.
		heartbeat := r.health.Register("edgerc_watcher", watcherStaleAfter)
		heartbeat.Beat()
		watcherDone := make(chan error, 1)
		go func() { watcherDone <- r.watcher.Run(ctx) }()
		go func() {
			ticker := time.NewTicker(watcherBeatInterval)
			defer ticker.Stop()
			for {
				select {
				case err := <-watcherDone:
					if err != nil && !errors.Is(err, context.Canceled) {
						r.logger.Warn("edgerc watcher stopped", zap.Error(err))
					}
					return
				case <-ticker.C:
					heartbeat.Beat()
				}
			}
		}()
	}

	r.health.SetReady(true)
	defer r.health.SetReady(false)

	if r.cfg.Server.Transport == domain.TransportHTTP {
		return r.bridge.RunHTTP(ctx, r.cfg.Server.Listen)
	}
	return r.bridge.Run(ctx)
}

func (r *runtime) close() {
	if r.results != nil {
		if err := r.results.Close(); err != nil {
			r.logger.Warn("cache close failed", zap.Error(err))
		}
	}
}
