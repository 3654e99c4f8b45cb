// Package lrucache wraps hashicorp/golang-lru for the expansion cache's
// optional bounded mode (SPEC_FULL.md §A8). Most runs never hit the bound:
// a conference's tracks, submission types, and rooms number in the tens,
// so eviction only matters for the larger speaker/answer caches on
// high-volume events.
package lrucache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Bounded is a fixed-capacity cache, keyed by a reference id, that
// evicts the least-recently-inserted entry on overflow (spec.md §4.2).
// It satisfies the same get/put shape C3's per-kind store uses for its
// unbounded map, so the expansion cache can swap one for the other
// without branching call sites.
type Bounded[K comparable, V any] struct {
	inner *lru.Cache[K, V]
}

// NewBounded builds a Bounded cache holding at most size entries. size<=0
// is rejected by the underlying library, so callers must only construct
// one when SPEC_FULL.md's cache.max_entries is positive.
func NewBounded[K comparable, V any](size int) (*Bounded[K, V], error) {
	inner, err := lru.New[K, V](size)
	if err != nil {
		return nil, err
	}
	return &Bounded[K, V]{inner: inner}, nil
}

// Get returns the cached value and whether it was present. It uses
// Peek rather than Get so a read never refreshes recency: spec.md §4.2
// calls for dropping the least-recently-inserted entry on overflow, not
// the least-recently-used one, so eviction order must track Put alone.
func (b *Bounded[K, V]) Get(key K) (V, bool) {
	return b.inner.Peek(key)
}

// Put inserts or overwrites key, evicting the least-recently-inserted
// entry if the cache is at capacity. Overwriting an existing key is the
// normal idempotent-put path described in spec.md §4.2.
func (b *Bounded[K, V]) Put(key K, value V) {
	b.inner.Add(key, value)
}

// Len reports the current number of cached entries.
func (b *Bounded[K, V]) Len() int {
	return b.inner.Len()
}

// Clear drops every cached entry, mirroring C3's clear_caches operation.
func (b *Bounded[K, V]) Clear() {
	b.inner.Purge()
}
