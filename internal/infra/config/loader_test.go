package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "alecs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoader_EmptyPathLoadsDefaults(t *testing.T) {
	cfg, err := NewLoader(nil).Load(context.Background(), "")
	require.NoError(t, err)

	require.Equal(t, "alecs", cfg.Server.Name)
	require.Equal(t, domain.TransportStdio, cfg.Server.Transport)
	require.Equal(t, domain.DefaultHTTPListenAddress, cfg.Server.Listen)
	require.Equal(t, domain.DefaultRequestTimeout, cfg.Server.RequestTimeout)
	require.Equal(t, domain.DefaultEdgercPath, cfg.Edgerc.Path)
	require.True(t, cfg.Edgerc.Watch)
	require.True(t, cfg.Cache.Enabled)
	require.Equal(t, domain.CacheBackendMemory, cfg.Cache.Backend)
	require.Equal(t, domain.DefaultCacheTTL, cfg.Cache.DefaultTTL)
	require.Equal(t, domain.DefaultCacheMaxEntries, cfg.Cache.MaxEntries)
	require.Equal(t, domain.DefaultObservabilityListenAddress, cfg.Observability.ListenAddress)
	require.NotNil(t, cfg.Observability.MetricsEnabled)
	require.True(t, *cfg.Observability.MetricsEnabled)
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, "json", cfg.Log.Format)
	require.True(t, cfg.Tools.DomainEnabled("property"))
}

func TestLoader_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  transport: http
  listen: 127.0.0.1:9000
  request_timeout: 10s
edgerc:
  path: /etc/alecs/.edgerc
  watch: false
cache:
  backend: bolt
  path: /var/lib/alecs/cache.db
  default_ttl: 2m
log:
  level: debug
  format: console
tools:
  overrides_path: /etc/alecs/tools.toml
  domains:
    purge: false
`)

	cfg, err := NewLoader(nil).Load(context.Background(), path)
	require.NoError(t, err)

	require.Equal(t, domain.TransportHTTP, cfg.Server.Transport)
	require.Equal(t, "127.0.0.1:9000", cfg.Server.Listen)
	require.Equal(t, 10*time.Second, cfg.Server.RequestTimeout)
	require.Equal(t, "/etc/alecs/.edgerc", cfg.Edgerc.Path)
	require.False(t, cfg.Edgerc.Watch)
	require.Equal(t, domain.CacheBackendBolt, cfg.Cache.Backend)
	require.Equal(t, "/var/lib/alecs/cache.db", cfg.Cache.Path)
	require.Equal(t, 2*time.Minute, cfg.Cache.DefaultTTL)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "console", cfg.Log.Format)
	require.Equal(t, "/etc/alecs/tools.toml", cfg.Tools.OverridesPath)
	require.False(t, cfg.Tools.DomainEnabled("purge"))
	require.True(t, cfg.Tools.DomainEnabled("dns"))
}

func TestLoader_EnvExpansion(t *testing.T) {
	t.Setenv("ALECS_TEST_EDGERC", "/home/svc/.edgerc")
	t.Setenv("ALECS_TEST_WATCH", "false")

	path := writeConfig(t, `
edgerc:
  path: ${ALECS_TEST_EDGERC}
  watch: ${ALECS_TEST_WATCH}
`)

	cfg, err := NewLoader(nil).Load(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, "/home/svc/.edgerc", cfg.Edgerc.Path)
	require.False(t, cfg.Edgerc.Watch)
}

func TestLoader_MissingEnvBecomesEmpty(t *testing.T) {
	path := writeConfig(t, `
edgerc:
  path: ${ALECS_TEST_UNSET_VAR}
`)

	_, err := NewLoader(nil).Load(context.Background(), path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "edgerc.path must not be empty")
}

func TestLoader_ValidationAccumulatesFindings(t *testing.T) {
	path := writeConfig(t, `
server:
  transport: grpc
  request_timeout: 0s
cache:
  backend: redis
`)

	_, err := NewLoader(nil).Load(context.Background(), path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "server.transport must be stdio or http")
	require.Contains(t, err.Error(), "server.request_timeout must be > 0")
	require.Contains(t, err.Error(), "cache.backend must be memory or bolt")
}

func TestLoader_MissingFile(t *testing.T) {
	_, err := NewLoader(nil).Load(context.Background(), filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoader_ValidateListsFindings(t *testing.T) {
	path := writeConfig(t, `
server:
  transport: grpc
`)

	findings, err := NewLoader(nil).Validate(path)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	require.Contains(t, findings[0], "server.transport")
}

func TestLoader_ValidateCleanConfig(t *testing.T) {
	findings, err := NewLoader(nil).Validate("")
	require.NoError(t, err)
	require.Empty(t, findings)
}

func TestRender_RoundTrips(t *testing.T) {
	loader := NewLoader(nil)
	cfg, err := loader.Load(context.Background(), "")
	require.NoError(t, err)

	rendered, err := Render(cfg)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "rendered.yaml")
	require.NoError(t, os.WriteFile(path, rendered, 0o600))

	reloaded, err := loader.Load(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, cfg, reloaded)
}

func TestStarterConfig_LoadsClean(t *testing.T) {
	path := filepath.Join(t.TempDir(), "starter.yaml")
	require.NoError(t, os.WriteFile(path, StarterConfig(), 0o600))

	cfg, err := NewLoader(nil).Load(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, domain.TransportStdio, cfg.Server.Transport)
	require.Equal(t, domain.DefaultEdgercPath, cfg.Edgerc.Path)
}

func TestExpandConfigEnv_QuotingControlsType(t *testing.T) {
	t.Setenv("ALECS_TEST_LEVEL", "debug")
	t.Setenv("ALECS_TEST_MAX", "512")

	expanded, missing, err := expandConfigEnv([]byte(`
quoted: "${ALECS_TEST_LEVEL}"
typed: ${ALECS_TEST_MAX}
absent: ${ALECS_TEST_NEVER_SET}
`))
	require.NoError(t, err)
	require.Equal(t, []string{"ALECS_TEST_NEVER_SET"}, missing)

	var decoded struct {
		Quoted string `yaml:"quoted"`
		Typed  int    `yaml:"typed"`
		Absent string `yaml:"absent"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(expanded), &decoded))
	require.Equal(t, "debug", decoded.Quoted)
	require.Equal(t, 512, decoded.Typed)
	require.Equal(t, "", decoded.Absent)
}
