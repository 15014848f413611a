package reconcile

import (
	"sort"
)

// KeySet is a set of natural keys.
type KeySet map[string]struct{}

// NewKeySet builds a set from keys.
func NewKeySet(keys ...string) KeySet {
	s := make(KeySet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s KeySet) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Add inserts keys.
func (s KeySet) Add(keys ...string) {
	for _, k := range keys {
		s[k] = struct{}{}
	}
}

// Dedupe keeps the last item for each key and returns the discarded earlier
// ones. Kept items stay in the position of their first occurrence.
func Dedupe[T any](items []T, key func(T) string) (kept []T, discarded []T) {
	last := make(map[string]int, len(items))
	for i, it := range items {
		last[key(it)] = i
	}
	placed := make(map[string]int, len(last))
	kept = make([]T, 0, len(last))
	for i, it := range items {
		k := key(it)
		if last[k] != i {
			discarded = append(discarded, it)
			if _, ok := placed[k]; !ok {
				placed[k] = len(kept)
				kept = append(kept, items[last[k]])
			}
			continue
		}
		if _, ok := placed[k]; !ok {
			placed[k] = len(kept)
			kept = append(kept, it)
		}
	}
	return kept, discarded
}

// PlanDeactivation returns the ids of snapshot entries whose key was not
// reported, in ascending order.
func PlanDeactivation(snapshot map[string]uint, reported KeySet) []uint {
	var ids []uint
	for key, id := range snapshot {
		if !reported.Has(key) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Chunk splits items into consecutive slices of at most size elements.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = len(items)
	}
	var chunks [][]T
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}
