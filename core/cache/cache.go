package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"module-monitor/core/kvstore"
	"module-monitor/core/metrics"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Config holds the TTL of each key class.
type Config struct {
	// ModuleTTL applies to module:<machine_name> keys.
	ModuleTTL time.Duration `mapstructure:"module_ttl" default:"1h"`
	// VersionTTL applies to version:<module_id>:<version> keys.
	VersionTTL time.Duration `mapstructure:"version_ttl" default:"24h"`
}

// Cache is a read-through cache over the shared kvstore.
// It is advisory: any store failure degrades to a miss and the loader runs.
type Cache struct {
	store  kvstore.Store
	sf     singleflight.Group
	logger *zap.Logger
}

// New creates a cache over store.
func New(store kvstore.Store, logger *zap.Logger) *Cache {
	return &Cache{store: store, logger: logger}
}

// GetOrLoad returns the cached value for key, or calls load and caches its
// result for ttl. Concurrent loads of one key in this process share a single
// call to load. Loader errors are returned and never cached.
func GetOrLoad[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, load func(ctx context.Context) (T, error)) (T, error) {
	if v, ok := get[T](ctx, c, key); ok {
		metrics.RecordCache(Class(key), true)
		return v, nil
	}
	metrics.RecordCache(Class(key), false)

	res, err, _ := c.sf.Do(key, func() (any, error) {
		v, err := load(ctx)
		if err != nil {
			return v, err
		}
		c.Set(ctx, key, v, ttl)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return res.(T), nil
}

func get[T any](ctx context.Context, c *Cache, key string) (T, bool) {
	var v T
	raw, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) {
			c.logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
		}
		return v, false
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		c.logger.Warn("Cache entry undecodable", zap.String("key", key), zap.Error(err))
		return v, false
	}
	return v, true
}

// Set refreshes key with v. Failures are logged and otherwise ignored.
func (c *Cache) Set(ctx context.Context, key string, v any, ttl time.Duration) {
	raw, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("Cache entry unencodable", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.Set(ctx, key, raw, ttl); err != nil {
		c.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Evict removes key. Failures are logged and otherwise ignored.
func (c *Cache) Evict(ctx context.Context, key string) {
	if err := c.store.Delete(ctx, key); err != nil {
		c.logger.Warn("Cache evict failed", zap.String("key", key), zap.Error(err))
	}
}

// Class returns the key class, the prefix before the first colon.
func Class(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}
