package domain

import "time"

// ObservabilityConfig is the live-reloadable slice of configuration that
// drives the metrics/health HTTP server. Pointer fields distinguish
// "unset, keep the default" from an explicit false.
type ObservabilityConfig struct {
	ListenAddress  string
	MetricsEnabled *bool
	HealthzEnabled *bool
}

const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

const (
	CacheBackendMemory = "memory"
	CacheBackendBolt   = "bolt"
)

type ServerConfig struct {
	Name           string
	Version        string
	Transport      string
	Listen         string
	RequestTimeout time.Duration
}

type EdgercConfig struct {
	Path  string
	Watch bool
}

type CacheConfig struct {
	Enabled         bool
	Backend         string
	Path            string
	DefaultTTL      time.Duration
	MaxEntries      int
	CleanupInterval time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// ToolsConfig selects which tool domains register and where operator
// overrides live. A nil Domains map enables every domain.
type ToolsConfig struct {
	OverridesPath string
	Domains       map[string]bool
}

func (t ToolsConfig) DomainEnabled(name string) bool {
	if t.Domains == nil {
		return true
	}
	enabled, ok := t.Domains[name]
	if !ok {
		return true
	}
	return enabled
}

// Config is the full normalized server configuration.
type Config struct {
	Server        ServerConfig
	Edgerc        EdgercConfig
	Cache         CacheConfig
	Observability ObservabilityConfig
	Log           LogConfig
	Tools         ToolsConfig
}

// ToolOverride is one operator-set adjustment from the overrides file.
// Pointer fields distinguish "not set" from an explicit zero.
type ToolOverride struct {
	Timeout  *time.Duration
	CacheTTL *time.Duration
	Disabled bool
}
