// Package cache stores successful read results keyed by tool, account scope,
// and parameter fingerprint. Mutating tools invalidate by glob pattern after
// their upstream call succeeds.
package cache

import (
	"strings"
	"time"

	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/domain"
)

// Store is the backend contract shared by the in-memory and bolt caches.
// Backend failures degrade to misses; a cache must never fail a request.
type Store interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration)
	// Invalidate removes entries whose key matches the shell-style pattern
	// and returns how many were dropped.
	Invalidate(pattern string) (int, error)
	// InvalidateAccount drops every entry scoped to the account.
	InvalidateAccount(account string) int
	Len() int
	// Purge drops every entry and returns how many were removed.
	Purge() int
	Close() error
}

// Key builds the canonical entry key. Scope is the account the entry was
// produced under, or domain.GlobalScopeKey for account-independent entries.
func Key(toolDomain, operation, scope, fingerprint string) string {
	return toolDomain + ":" + operation + ":" + scope + ":" + fingerprint
}

// scopeOf extracts the scope segment of a key. The fingerprint is hex and
// never contains a separator, so a 4-way split is unambiguous.
func scopeOf(key string) (string, bool) {
	parts := strings.SplitN(key, ":", 4)
	if len(parts) != 4 {
		return "", false
	}
	return parts[2], true
}

func metricsOrNop(m domain.Metrics) domain.Metrics {
	if m == nil {
		return domain.NopMetrics{}
	}
	return m
}
