// Package cache provides the read-through catalog cache.
//
// Entries are JSON encoded into the shared kvstore so every instance sees the same
// cache. The cache never decides correctness: a miss, an eviction, or a broken store
// only costs an extra database lookup.
package cache
