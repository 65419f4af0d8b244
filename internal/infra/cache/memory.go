package cache

import (
	"context"
	"path"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/domain"
)

type entry struct {
	value     any
	storedAt  time.Time
	expiresAt time.Time
}

// MemoryStore is a mutex-guarded map with TTL checks on read and
// oldest-first eviction when full.
type MemoryStore struct {
	logger  *zap.Logger
	metrics domain.Metrics

	mu         sync.RWMutex
	entries    map[string]entry
	maxEntries int
}

type MemoryOptions struct {
	// MaxEntries bounds the map; 0 selects the default.
	MaxEntries int
	Logger     *zap.Logger
	Metrics    domain.Metrics
}

func NewMemoryStore(opts MemoryOptions) *MemoryStore {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxEntries := opts.MaxEntries
	if maxEntries <= 0 {
		maxEntries = domain.DefaultCacheMaxEntries
	}
	return &MemoryStore{
		logger:     logger.Named("cache"),
		metrics:    metricsOrNop(opts.Metrics),
		entries:    make(map[string]entry),
		maxEntries: maxEntries,
	}
}

func (s *MemoryStore) Get(key string) (any, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		s.metrics.ObserveCacheEvent(domain.CacheEventMiss)
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		s.mu.Lock()
		if current, still := s.entries[key]; still && current.storedAt.Equal(e.storedAt) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		s.metrics.ObserveCacheEvent(domain.CacheEventExpire)
		return nil, false
	}
	s.metrics.ObserveCacheEvent(domain.CacheEventHit)
	return e.value, true
}

func (s *MemoryStore) Set(key string, value any, ttl time.Duration) {
	if value == nil || ttl <= 0 {
		return
	}
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[key]; !exists && len(s.entries) >= s.maxEntries {
		s.evictOldest()
	}
	s.entries[key] = entry{
		value:     value,
		storedAt:  now,
		expiresAt: now.Add(ttl),
	}
	s.metrics.ObserveCacheEvent(domain.CacheEventStore)
}

// evictOldest removes the least recently stored entry. Caller holds the lock.
func (s *MemoryStore) evictOldest() {
	var oldestKey string
	var oldestAt time.Time
	for key, e := range s.entries {
		if oldestKey == "" || e.storedAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = e.storedAt
		}
	}
	if oldestKey != "" {
		delete(s.entries, oldestKey)
	}
}

func (s *MemoryStore) Invalidate(pattern string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key := range s.entries {
		matched, err := path.Match(pattern, key)
		if err != nil {
			return removed, err
		}
		if matched {
			delete(s.entries, key)
			removed++
		}
	}
	s.observeInvalidations(removed)
	return removed, nil
}

func (s *MemoryStore) InvalidateAccount(account string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key := range s.entries {
		if scope, ok := scopeOf(key); ok && scope == account {
			delete(s.entries, key)
			removed++
		}
	}
	s.observeInvalidations(removed)
	return removed
}

func (s *MemoryStore) observeInvalidations(n int) {
	for i := 0; i < n; i++ {
		s.metrics.ObserveCacheEvent(domain.CacheEventInvalidate)
	}
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *MemoryStore) Purge() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := len(s.entries)
	s.entries = make(map[string]entry)
	return removed
}

// Cleanup removes expired entries and returns how many were dropped.
func (s *MemoryStore) Cleanup() int {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// StartCleanup sweeps expired entries until ctx is canceled.
func (s *MemoryStore) StartCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = domain.DefaultCacheCleanupInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := s.Cleanup(); removed > 0 {
					s.logger.Debug("cache cleanup", zap.Int("removed", removed))
				}
			}
		}
	}()
}

func (s *MemoryStore) Close() error {
	return nil
}
