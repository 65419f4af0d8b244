package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/domain"
)

var bucketEntries = []byte("entries")

type boltEntry struct {
	Value     json.RawMessage `json:"value"`
	StoredAt  time.Time       `json:"storedAt"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

// BoltStore persists cache entries across restarts. Values round-trip
// through JSON, so a hit returns the decoded form of what was stored.
// Backend errors are logged and surface as misses or skipped writes.
type BoltStore struct {
	logger  *zap.Logger
	metrics domain.Metrics
	db      *bolt.DB
}

type BoltOptions struct {
	Logger  *zap.Logger
	Metrics domain.Metrics
}

func OpenBolt(dbPath string, opts BoltOptions) (*BoltStore, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	store := &BoltStore{
		logger:  logger.Named("cache_bolt"),
		metrics: metricsOrNop(opts.Metrics),
		db:      db,
	}
	if err := store.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if removed := store.Sweep(); removed > 0 {
		store.logger.Debug("expired entries dropped on open", zap.Int("removed", removed))
	}
	return store, nil
}

func (s *BoltStore) ensureSchema() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketEntries); err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
		return nil
	})
}

func (s *BoltStore) Get(key string) (any, bool) {
	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if value := tx.Bucket(bucketEntries).Get([]byte(key)); value != nil {
			raw = append([]byte(nil), value...)
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("cache read failed", zap.Error(err))
		s.metrics.ObserveCacheEvent(domain.CacheEventMiss)
		return nil, false
	}
	if raw == nil {
		s.metrics.ObserveCacheEvent(domain.CacheEventMiss)
		return nil, false
	}

	var e boltEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		s.logger.Warn("cache entry corrupt", zap.String("key", key), zap.Error(err))
		s.delete(key)
		s.metrics.ObserveCacheEvent(domain.CacheEventMiss)
		return nil, false
	}
	if time.Now().After(e.ExpiresAt) {
		s.delete(key)
		s.metrics.ObserveCacheEvent(domain.CacheEventExpire)
		return nil, false
	}

	var value any
	if err := json.Unmarshal(e.Value, &value); err != nil {
		s.logger.Warn("cache value corrupt", zap.String("key", key), zap.Error(err))
		s.delete(key)
		s.metrics.ObserveCacheEvent(domain.CacheEventMiss)
		return nil, false
	}
	s.metrics.ObserveCacheEvent(domain.CacheEventHit)
	return value, true
}

func (s *BoltStore) Set(key string, value any, ttl time.Duration) {
	if value == nil || ttl <= 0 {
		return
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("cache value not serializable", zap.String("key", key), zap.Error(err))
		return
	}
	now := time.Now()
	raw, err := json.Marshal(boltEntry{
		Value:     encoded,
		StoredAt:  now,
		ExpiresAt: now.Add(ttl),
	})
	if err != nil {
		s.logger.Warn("cache entry encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketEntries).Put([]byte(key), raw)
	})
	if err != nil {
		s.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		return
	}
	s.metrics.ObserveCacheEvent(domain.CacheEventStore)
}

func (s *BoltStore) delete(key string) {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketEntries).Delete([]byte(key))
	})
	if err != nil {
		s.logger.Warn("cache delete failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *BoltStore) Invalidate(pattern string) (int, error) {
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketEntries).Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			matched, err := path.Match(pattern, string(k))
			if err != nil {
				return err
			}
			if matched {
				if err := c.Delete(); err != nil {
					return err
				}
				removed++
			}
		}
		return nil
	})
	if err != nil {
		return removed, err
	}
	s.observeInvalidations(removed)
	return removed, nil
}

func (s *BoltStore) InvalidateAccount(account string) int {
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketEntries).Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			if scope, ok := scopeOf(string(k)); ok && scope == account {
				if err := c.Delete(); err != nil {
					return err
				}
				removed++
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("cache account invalidation failed", zap.String("account", account), zap.Error(err))
	}
	s.observeInvalidations(removed)
	return removed
}

func (s *BoltStore) observeInvalidations(n int) {
	for i := 0; i < n; i++ {
		s.metrics.ObserveCacheEvent(domain.CacheEventInvalidate)
	}
}

func (s *BoltStore) Len() int {
	count := 0
	_ = s.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(bucketEntries).Stats().KeyN
		return nil
	})
	return count
}

func (s *BoltStore) Purge() int {
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		removed = tx.Bucket(bucketEntries).Stats().KeyN
		if err := tx.DeleteBucket(bucketEntries); err != nil {
			return err
		}
		_, err := tx.CreateBucket(bucketEntries)
		return err
	})
	if err != nil {
		s.logger.Warn("cache purge failed", zap.Error(err))
		return 0
	}
	return removed
}

// Sweep removes expired entries and returns how many were dropped.
func (s *BoltStore) Sweep() int {
	now := time.Now()
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketEntries).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var e boltEntry
			if err := json.Unmarshal(v, &e); err != nil || now.After(e.ExpiresAt) {
				if err := c.Delete(); err != nil {
					return err
				}
				removed++
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("cache sweep failed", zap.Error(err))
	}
	return removed
}

// StartCleanup sweeps expired entries until ctx is canceled.
func (s *BoltStore) StartCleanup(ctx context.Context, interval time.Duration) {
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
				if removed := s.Sweep(); removed > 0 {
					s.logger.Debug("cache sweep", zap.Int("removed", removed))
				}
			}
		}
	}()
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
