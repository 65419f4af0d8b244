package domain

import "time"

const (
	DefaultRequestTimeout       = 30 * time.Second
	DefaultCacheTTL             = 5 * time.Minute
	DefaultCacheMaxEntries      = 4096
	DefaultCacheCleanupInterval = time.Minute

	DefaultServerName                 = "alecs"
	DefaultTransport                  = "stdio"
	DefaultHTTPListenAddress          = "127.0.0.1:8571"
	DefaultObservabilityListenAddress = "0.0.0.0:9090"

	DefaultEdgercPath    = "~/.edgerc"
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "json"
	DefaultCacheBackend  = "memory"
	DefaultCacheBoltPath = "alecs-cache.db"
)

// GlobalScopeKey is the cache partition marker for ScopeGlobal tools.
const GlobalScopeKey = "*"
