package edgerc

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/domain"
	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/infra/telemetry"
)

// Snapshot is one immutable parse of an .edgerc file. Lookups are
// case-insensitive because section names are normalized at parse time.
type Snapshot struct {
	Path     string
	LoadedAt time.Time
	ModTime  time.Time
	sections map[string]domain.Credentials
}

func (s Snapshot) Lookup(name string) (domain.Credentials, bool) {
	creds, ok := s.sections[strings.ToLower(name)]
	return creds, ok
}

// Sections returns the known section names, sorted.
func (s Snapshot) Sections() []string {
	names := make([]string, 0, len(s.sections))
	for name := range s.sections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s Snapshot) Len() int {
	return len(s.sections)
}

// Store hands out .edgerc snapshots. Reload swaps the snapshot atomically and
// keeps the last good parse when the file turns unreadable, so concurrent
// resolutions never observe a partial parse.
type Store struct {
	logger *zap.Logger
	path   string

	reloadMu sync.Mutex
	current  atomic.Value
}

func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	expanded, err := ExpandPath(path)
	if err != nil {
		return nil, err
	}

	store := &Store{
		logger: logger.Named("edgerc"),
		path:   expanded,
	}
	snapshot, err := load(expanded)
	if err != nil {
		return nil, err
	}
	store.current.Store(snapshot)
	store.logger.Info("edgerc loaded",
		zap.String("path", expanded),
		zap.Int("sections", snapshot.Len()),
	)
	return store, nil
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Snapshot() Snapshot {
	return s.current.Load().(Snapshot)
}

// Stale reports whether the file changed since the current snapshot.
func (s *Store) Stale() bool {
	info, err := os.Stat(s.path)
	if err != nil {
		return false
	}
	return !info.ModTime().Equal(s.Snapshot().ModTime)
}

// Reload reparses the file and returns the section names that disappeared,
// so callers can drop cache entries for revoked accounts. A parse failure
// keeps the previous snapshot.
func (s *Store) Reload() ([]string, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	prev := s.Snapshot()
	next, err := load(s.path)
	if err != nil {
		s.logger.Warn("edgerc reload failed; keeping previous snapshot", zap.Error(err))
		return nil, err
	}

	var removed []string
	for name := range prev.sections {
		if _, ok := next.sections[name]; !ok {
			removed = append(removed, name)
		}
	}
	sort.Strings(removed)

	s.current.Store(next)
	s.logger.Info("edgerc reloaded",
		telemetry.EventField(telemetry.EventConfigReloaded),
		zap.Int("sections", next.Len()),
		zap.Strings("removed", removed),
	)
	return removed, nil
}

func load(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read edgerc: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("stat edgerc: %w", err)
	}

	sections, err := Parse(data)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Path:     path,
		LoadedAt: time.Now(),
		ModTime:  info.ModTime(),
		sections: sections,
	}, nil
}

// Parse reads .edgerc INI content into credential sets keyed by lowercase
// section name. Unknown keys are ignored; secrets are never logged here or
// anywhere downstream.
func Parse(data []byte) (map[string]domain.Credentials, error) {
	v := viper.New()
	v.SetConfigType("ini")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("parse edgerc: %w", err)
	}

	sections := make(map[string]domain.Credentials)
	for name, raw := range v.AllSettings() {
		fields, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		creds := domain.Credentials{
			Host:         normalizeHost(stringField(fields, "host")),
			ClientToken:  stringField(fields, "client_token"),
			ClientSecret: stringField(fields, "client_secret"),
			AccessToken:  stringField(fields, "access_token"),
			AccountKey:   stringField(fields, "account_key"),
		}
		if creds.AccountKey == "" {
			creds.AccountKey = stringField(fields, "account-switch-key")
		}
		sections[strings.ToLower(name)] = creds
	}
	return sections, nil
}

func stringField(fields map[string]any, key string) string {
	value, ok := fields[key]
	if !ok {
		return ""
	}
	s, ok := value.(string)
	if !ok {
		return fmt.Sprintf("%v", value)
	}
	return strings.TrimSpace(s)
}

func normalizeHost(host string) string {
	host = strings.TrimSpace(host)
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimPrefix(host, "http://")
	return strings.TrimSuffix(host, "/")
}

// ExpandPath resolves a leading ~ against the user's home directory.
func ExpandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("edgerc path is required")
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(trimmed, "~")), nil
	}
	return trimmed, nil
}
