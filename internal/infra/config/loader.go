// Package config loads the server's YAML configuration and the optional
// per-tool overrides file. Values are defaulted, env-expanded, and
// validated as a whole; validation reports every finding, not the first.
package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/domain"
)

type Loader struct {
	logger *zap.Logger
}

func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		return &Loader{logger: zap.NewNop()}
	}
	return &Loader{logger: logger.Named("config")}
}

func newConfigViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.name", domain.DefaultServerName)
	v.SetDefault("server.version", "")
	v.SetDefault("server.transport", domain.DefaultTransport)
	v.SetDefault("server.listen", domain.DefaultHTTPListenAddress)
	v.SetDefault("server.request_timeout", domain.DefaultRequestTimeout)
	v.SetDefault("edgerc.path", domain.DefaultEdgercPath)
	v.SetDefault("edgerc.watch", true)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.backend", domain.DefaultCacheBackend)
	v.SetDefault("cache.path", domain.DefaultCacheBoltPath)
	v.SetDefault("cache.default_ttl", domain.DefaultCacheTTL)
	v.SetDefault("cache.max_entries", domain.DefaultCacheMaxEntries)
	v.SetDefault("cache.cleanup_interval", domain.DefaultCacheCleanupInterval)
	v.SetDefault("observability.listen", domain.DefaultObservabilityListenAddress)
	v.SetDefault("observability.metrics_enabled", true)
	v.SetDefault("observability.healthz_enabled", true)
	v.SetDefault("log.level", domain.DefaultLogLevel)
	v.SetDefault("log.format", domain.DefaultLogFormat)
	v.SetDefault("tools.overrides_path", "")
}

type rawConfig struct {
	Server        rawServerConfig        `mapstructure:"server"`
	Edgerc        rawEdgercConfig        `mapstructure:"edgerc"`
	Cache         rawCacheConfig         `mapstructure:"cache"`
	Observability rawObservabilityConfig `mapstructure:"observability"`
	Log           rawLogConfig           `mapstructure:"log"`
	Tools         rawToolsConfig         `mapstructure:"tools"`
}

type rawServerConfig struct {
	Name           string        `mapstructure:"name"`
	Version        string        `mapstructure:"version"`
	Transport      string        `mapstructure:"transport"`
	Listen         string        `mapstructure:"listen"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type rawEdgercConfig struct {
	Path  string `mapstructure:"path"`
	Watch bool   `mapstructure:"watch"`
}

type rawCacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Backend         string        `mapstructure:"backend"`
	Path            string        `mapstructure:"path"`
	DefaultTTL      time.Duration `mapstructure:"default_ttl"`
	MaxEntries      int           `mapstructure:"max_entries"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type rawObservabilityConfig struct {
	Listen         string `mapstructure:"listen"`
	MetricsEnabled *bool  `mapstructure:"metrics_enabled"`
	HealthzEnabled *bool  `mapstructure:"healthz_enabled"`
}

type rawLogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type rawToolsConfig struct {
	OverridesPath string          `mapstructure:"overrides_path"`
	Domains       map[string]bool `mapstructure:"domains"`
}

// Load reads the config file at path. An empty path loads pure defaults,
// so the server runs without any config file at all.
func (l *Loader) Load(ctx context.Context, path string) (domain.Config, error) {
	v := newConfigViper()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return domain.Config{}, fmt.Errorf("read config: %w", err)
		}
		expanded, missing, err := expandConfigEnv(data)
		if err != nil {
			return domain.Config{}, err
		}
		if len(missing) > 0 {
			l.logger.Warn("missing environment variables in config",
				zap.String("path", path),
				zap.Strings("missing", missing),
			)
		}
		if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
			return domain.Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	var raw rawConfig
	if err := v.Unmarshal(&raw); err != nil {
		return domain.Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return domain.Config{}, err
	}

	cfg, findings := normalize(raw)
	if len(findings) > 0 {
		return domain.Config{}, errors.New(strings.Join(findings, "; "))
	}
	return cfg, nil
}

// Validate runs the same pipeline as Load but returns every finding instead
// of a joined error. The validate command prints them one per line.
func (l *Loader) Validate(path string) ([]string, error) {
	v := newConfigViper()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		expanded, _, err := expandConfigEnv(data)
		if err != nil {
			return []string{err.Error()}, nil
		}
		if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
			return []string{fmt.Sprintf("parse config: %v", err)}, nil
		}
	}
	var raw rawConfig
	if err := v.Unmarshal(&raw); err != nil {
		return []string{fmt.Sprintf("decode config: %v", err)}, nil
	}
	_, findings := normalize(raw)
	return findings, nil
}

func normalize(raw rawConfig) (domain.Config, []string) {
	var findings []string

	server, errs := normalizeServer(raw.Server)
	findings = append(findings, errs...)

	edgerc := domain.EdgercConfig{
		Path:  strings.TrimSpace(raw.Edgerc.Path),
		Watch: raw.Edgerc.Watch,
	}
	if edgerc.Path == "" {
		findings = append(findings, "edgerc.path must not be empty")
	}

	cacheCfg, errs := normalizeCache(raw.Cache)
	findings = append(findings, errs...)

	logCfg, errs := normalizeLog(raw.Log)
	findings = append(findings, errs...)

	obs := domain.ObservabilityConfig{
		ListenAddress:  strings.TrimSpace(raw.Observability.Listen),
		MetricsEnabled: raw.Observability.MetricsEnabled,
		HealthzEnabled: raw.Observability.HealthzEnabled,
	}

	tools := domain.ToolsConfig{
		OverridesPath: strings.TrimSpace(raw.Tools.OverridesPath),
		Domains:       raw.Tools.Domains,
	}

	return domain.Config{
		Server:        server,
		Edgerc:        edgerc,
		Cache:         cacheCfg,
		Observability: obs,
		Log:           logCfg,
		Tools:         tools,
	}, findings
}

func normalizeServer(raw rawServerConfig) (domain.ServerConfig, []string) {
	var errs []string

	transport := strings.ToLower(strings.TrimSpace(raw.Transport))
	if transport == "" {
		transport = domain.DefaultTransport
	}
	if transport != domain.TransportStdio && transport != domain.TransportHTTP {
		errs = append(errs, "server.transport must be stdio or http")
	}

	listen := strings.TrimSpace(raw.Listen)
	if transport == domain.TransportHTTP && listen == "" {
		errs = append(errs, "server.listen is required for http transport")
	}

	if raw.RequestTimeout <= 0 {
		errs = append(errs, "server.request_timeout must be > 0")
	}

	name := strings.TrimSpace(raw.Name)
	if name == "" {
		name = domain.DefaultServerName
	}

	return domain.ServerConfig{
		Name:           name,
		Version:        strings.TrimSpace(raw.Version),
		Transport:      transport,
		Listen:         listen,
		RequestTimeout: raw.RequestTimeout,
	}, errs
}

func normalizeCache(raw rawCacheConfig) (domain.CacheConfig, []string) {
	var errs []string

	backend := strings.ToLower(strings.TrimSpace(raw.Backend))
	if backend == "" {
		backend = domain.DefaultCacheBackend
	}
	if backend != domain.CacheBackendMemory && backend != domain.CacheBackendBolt {
		errs = append(errs, "cache.backend must be memory or bolt")
	}

	path := strings.TrimSpace(raw.Path)
	if raw.Enabled && backend == domain.CacheBackendBolt && path == "" {
		errs = append(errs, "cache.path is required for the bolt backend")
	}
	if raw.DefaultTTL <= 0 {
		errs = append(errs, "cache.default_ttl must be > 0")
	}
	if raw.MaxEntries <= 0 {
		errs = append(errs, "cache.max_entries must be > 0")
	}
	if raw.CleanupInterval <= 0 {
		errs = append(errs, "cache.cleanup_interval must be > 0")
	}

	return domain.CacheConfig{
		Enabled:         raw.Enabled,
		Backend:         backend,
		Path:            path,
		DefaultTTL:      raw.DefaultTTL,
		MaxEntries:      raw.MaxEntries,
		CleanupInterval: raw.CleanupInterval,
	}, errs
}

func normalizeLog(raw rawLogConfig) (domain.LogConfig, []string) {
	var errs []string

	level := strings.ToLower(strings.TrimSpace(raw.Level))
	if level == "" {
		level = domain.DefaultLogLevel
	}
	switch level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, "log.level must be one of debug, info, warn, error")
	}

	format := strings.ToLower(strings.TrimSpace(raw.Format))
	if format == "" {
		format = domain.DefaultLogFormat
	}
	if format != "json" && format != "console" {
		errs = append(errs, "log.format must be json or console")
	}

	return domain.LogConfig{Level: level, Format: format}, errs
}
