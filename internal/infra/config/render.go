package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/domain"
)

type renderedConfig struct {
	Server struct {
		Name           string `yaml:"name"`
		Version        string `yaml:"version,omitempty"`
		Transport      string `yaml:"transport"`
		Listen         string `yaml:"listen"`
		RequestTimeout string `yaml:"request_timeout"`
	} `yaml:"server"`
	Edgerc struct {
		Path  string `yaml:"path"`
		Watch bool   `yaml:"watch"`
	} `yaml:"edgerc"`
	Cache struct {
		Enabled         bool   `yaml:"enabled"`
		Backend         string `yaml:"backend"`
		Path            string `yaml:"path,omitempty"`
		DefaultTTL      string `yaml:"default_ttl"`
		MaxEntries      int    `yaml:"max_entries"`
		CleanupInterval string `yaml:"cleanup_interval"`
	} `yaml:"cache"`
	Observability struct {
		Listen         string `yaml:"listen"`
		MetricsEnabled bool   `yaml:"metrics_enabled"`
		HealthzEnabled bool   `yaml:"healthz_enabled"`
	} `yaml:"observability"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Tools struct {
		OverridesPath string          `yaml:"overrides_path,omitempty"`
		Domains       map[string]bool `yaml:"domains,omitempty"`
	} `yaml:"tools"`
}

// Render prints the effective configuration, defaults included, as YAML
// that Load accepts back unchanged.
func Render(cfg domain.Config) ([]byte, error) {
	var out renderedConfig
	out.Server.Name = cfg.Server.Name
	out.Server.Version = cfg.Server.Version
	out.Server.Transport = cfg.Server.Transport
	out.Server.Listen = cfg.Server.Listen
	out.Server.RequestTimeout = cfg.Server.RequestTimeout.String()
	out.Edgerc.Path = cfg.Edgerc.Path
	out.Edgerc.Watch = cfg.Edgerc.Watch
	out.Cache.Enabled = cfg.Cache.Enabled
	out.Cache.Backend = cfg.Cache.Backend
	out.Cache.Path = cfg.Cache.Path
	out.Cache.DefaultTTL = cfg.Cache.DefaultTTL.String()
	out.Cache.MaxEntries = cfg.Cache.MaxEntries
	out.Cache.CleanupInterval = cfg.Cache.CleanupInterval.String()
	out.Observability.Listen = cfg.Observability.ListenAddress
	out.Observability.MetricsEnabled = boolOrDefault(cfg.Observability.MetricsEnabled, true)
	out.Observability.HealthzEnabled = boolOrDefault(cfg.Observability.HealthzEnabled, true)
	out.Log.Level = cfg.Log.Level
	out.Log.Format = cfg.Log.Format
	out.Tools.OverridesPath = cfg.Tools.OverridesPath
	out.Tools.Domains = cfg.Tools.Domains

	data, err := yaml.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("render config: %w", err)
	}
	return data, nil
}

func boolOrDefault(value *bool, fallback bool) bool {
	if value == nil {
		return fallback
	}
	return *value
}

// StarterConfig is the commented template `config init` writes.
func StarterConfig() []byte {
	return []byte(`# alecs server configuration.
# Every key is optional; unset keys take the defaults shown here.

server:
  name: alecs
  # transport: stdio | http
  transport: stdio
  # listen is only used by the http transport.
  listen: 127.0.0.1:8571
  request_timeout: 30s

edgerc:
  # EdgeGrid credential file. Sections are account names; [default] is used
  # when a request names no account.
  path: ~/.edgerc
  # Reload credentials when the file changes.
  watch: true

cache:
  enabled: true
  # backend: memory | bolt
  backend: memory
  # path is the bolt database file, used only by the bolt backend.
  # path: alecs-cache.db
  default_ttl: 5m
  max_entries: 4096
  cleanup_interval: 1m

observability:
  # Prometheus /metrics plus /healthz and /readyz. Empty disables the server.
  listen: 0.0.0.0:9090
  metrics_enabled: true
  healthz_enabled: true

log:
  # level: debug | info | warn | error
  level: info
  # format: json | console
  format: json

tools:
  # Per-tool operational overrides (timeout, cache_ttl, disabled).
  # overrides_path: tools.toml
  # Disable whole tool domains:
  # domains:
  #   purge: false
`)
}
