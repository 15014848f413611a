package kvstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key is absent or expired.
var ErrNotFound = errors.New("kvstore: key not found")

// Store is a key/value store shared by every API and worker instance.
// Counters and cache entries both live here so limits and cache freshness
// hold cluster-wide.
type Store interface {
	// Get returns the value stored under key.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Incr atomically increments the counter under key and returns the new
	// value. A missing or expired counter restarts at 1 with a fresh ttl; the
	// ttl of a live counter is never extended.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Ping checks that the backing store is reachable.
	Ping(ctx context.Context) error
}

// TryLock acquires an advisory lock held until ttl expires or Unlock is called.
// It reports false when another holder owns the lock.
func TryLock(ctx context.Context, s Store, key string, ttl time.Duration) (bool, error) {
	n, err := s.Incr(ctx, key, ttl)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Unlock releases a lock taken with TryLock.
func Unlock(ctx context.Context, s Store, key string) error {
	return s.Delete(ctx, key)
}
