// Package expand implements the process-local expansion cache (C3):
// write-through storage for auxiliary entities (tracks, submission
// types, speakers, answers, questions, rooms) keyed by a reference id,
// grounded on pytanis's _speaker_cache/_submission_type_cache/
// _track_cache/_answer_cache/_question_cache and _populate_caches
// (original_source/src/pytanis/pretalx/client.py).
package expand

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pytanis-go/pretalx-core/pkg/lrucache"
	"github.com/pytanis-go/pretalx-core/pkg/metrics"
)

// Kind names one of the auxiliary entity families the cache tracks.
type Kind string

const (
	KindTrack          Kind = "track"
	KindSubmissionType Kind = "submission_type"
	KindSpeaker        Kind = "speaker"
	KindAnswer         Kind = "answer"
	KindQuestion       Kind = "question"
	KindRoom           Kind = "room"
)

var allKinds = []Kind{KindTrack, KindSubmissionType, KindSpeaker, KindAnswer, KindQuestion, KindRoom}

// Store is the contract a cache backend satisfies, mirroring the
// teacher's CacheRepository abstraction (internal/service/cache_service.go)
// so an in-memory map and a Redis-backed store are interchangeable.
type Store interface {
	Get(ctx context.Context, kind Kind, key string) (json.RawMessage, bool, error)
	Put(ctx context.Context, kind Kind, key string, value json.RawMessage) error
	Clear(ctx context.Context, kind Kind) error
}

// Prepopulator performs the single list request per kind that
// bulk-fills the cache ahead of per-item expansion, amortizing the
// ~200-300 request workload described in spec.md §1. The client package
// implements this and registers itself with SetPrepopulator after
// construction, avoiding an import cycle between expand and client.
type Prepopulator interface {
	PrepopulateTracks(ctx context.Context, event string) ([]Entry, error)
	PrepopulateSubmissionTypes(ctx context.Context, event string) ([]Entry, error)
	PrepopulateSpeakers(ctx context.Context, event string) ([]Entry, error)
	PrepopulateRooms(ctx context.Context, event string) ([]Entry, error)
}

// Entry is a (key, raw record) pair used when bulk-filling a kind.
type Entry struct {
	Key   string
	Value json.RawMessage
}

// Cache is the C3 expansion cache facade used by the client (C4).
type Cache struct {
	store         Store
	prepopulator  Prepopulator
	metrics       *metrics.Recorder
	prepopulate   bool
	boundedQuery  int // queries requesting fewer than this many items skip prepopulation

	mu        sync.Mutex
	populated map[string]map[Kind]bool // event -> kind -> done
}

// New builds a Cache over store. Prepopulation defaults to enabled per
// spec.md §4.2 ("When enabled (default)...").
func New(store Store, rec *metrics.Recorder) *Cache {
	return &Cache{
		store:        store,
		metrics:      rec,
		prepopulate:  true,
		boundedQuery: 10,
		populated:    make(map[string]map[Kind]bool),
	}
}

// SetPrepopulator wires the bulk-fetch callback. Must be called before
// MaybePrepopulate is relied upon; absent a Prepopulator, prepopulation
// is a no-op and every lookup falls through to the per-item path.
func (c *Cache) SetPrepopulator(p Prepopulator) {
	c.prepopulator = p
}

// SetPrepopulation enables or disables the bulk-fetch heuristic
// (spec.md §4.2's set_prepopulation).
func (c *Cache) SetPrepopulation(enabled bool) {
	c.prepopulate = enabled
}

// Get retrieves a cached entity, recording a cache-hit/miss metric.
func (c *Cache) Get(ctx context.Context, kind Kind, key string) (json.RawMessage, bool, error) {
	v, ok, err := c.store.Get(ctx, kind, key)
	if err != nil {
		return nil, false, err
	}
	if c.metrics != nil {
		if ok {
			c.metrics.CacheHits.WithLabelValues(string(kind)).Inc()
		} else {
			c.metrics.CacheMisses.WithLabelValues(string(kind)).Inc()
		}
	}
	return v, ok, nil
}

// Put writes an entity. Idempotent: repeated puts of the same key
// converge to the same stored value (spec.md §5).
func (c *Cache) Put(ctx context.Context, kind Kind, key string, value json.RawMessage) error {
	return c.store.Put(ctx, kind, key, value)
}

// Clear drops one kind, or every kind when kind is the zero value.
func (c *Cache) Clear(ctx context.Context, kind Kind) error {
	if kind == "" {
		for _, k := range allKinds {
			if err := c.store.Clear(ctx, k); err != nil {
				return err
			}
		}
		c.mu.Lock()
		c.populated = make(map[string]map[Kind]bool)
		c.mu.Unlock()
		return nil
	}
	return c.store.Clear(ctx, kind)
}

// MaybePrepopulate runs the pre-population heuristic of spec.md §4.2:
// the first request against a list endpoint referencing tracks or
// submission types triggers a bulk fetch for those kinds, unless the
// query is bounded (fewer than boundedQuery items requested) or
// prepopulation has been disabled.
func (c *Cache) MaybePrepopulate(ctx context.Context, event string, kinds []Kind, requestedItems int) {
	if !c.prepopulate || c.prepopulator == nil {
		return
	}
	if requestedItems > 0 && requestedItems < c.boundedQuery {
		return
	}

	c.mu.Lock()
	done, ok := c.populated[event]
	if !ok {
		done = make(map[Kind]bool)
		c.populated[event] = done
	}
	var toFill []Kind
	for _, k := range kinds {
		if !done[k] {
			toFill = append(toFill, k)
			done[k] = true
		}
	}
	c.mu.Unlock()

	for _, k := range toFill {
		c.fillKind(ctx, event, k)
	}
}

func (c *Cache) fillKind(ctx context.Context, event string, kind Kind) {
	var entries []Entry
	var err error

	switch kind {
	case KindTrack:
		entries, err = c.prepopulator.PrepopulateTracks(ctx, event)
	case KindSubmissionType:
		entries, err = c.prepopulator.PrepopulateSubmissionTypes(ctx, event)
	case KindSpeaker:
		entries, err = c.prepopulator.PrepopulateSpeakers(ctx, event)
	case KindRoom:
		entries, err = c.prepopulator.PrepopulateRooms(ctx, event)
	default:
		return
	}
	if err != nil {
		// Pre-population is an optimization, not a correctness
		// requirement: a failure here just means the per-item path
		// (cache miss -> detail fetch -> put) carries the load instead.
		return
	}

	for _, e := range entries {
		_ = c.store.Put(ctx, kind, e.Key, e.Value)
	}
}

// MapStore is the default in-process backend: one map per kind, guarded
// by a reader/writer lock (gets shared, puts exclusive, per spec.md §5).
type MapStore struct {
	mu   sync.RWMutex
	data map[Kind]map[string]json.RawMessage
}

// NewMapStore builds an unbounded in-memory store.
func NewMapStore() *MapStore {
	data := make(map[Kind]map[string]json.RawMessage, len(allKinds))
	for _, k := range allKinds {
		data[k] = make(map[string]json.RawMessage)
	}
	return &MapStore{data: data}
}

func (s *MapStore) Get(_ context.Context, kind Kind, key string) (json.RawMessage, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[kind][key]
	return v, ok, nil
}

func (s *MapStore) Put(_ context.Context, kind Kind, key string, value json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data[kind] == nil {
		s.data[kind] = make(map[string]json.RawMessage)
	}
	s.data[kind][key] = value
	return nil
}

func (s *MapStore) Clear(_ context.Context, kind Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[kind] = make(map[string]json.RawMessage)
	return nil
}

// BoundedStore wraps one lrucache.Bounded per kind, implementing the
// soft-upper-bound eviction policy of spec.md §4.2 ("least-recently-
// inserted entries are dropped") — SPEC_FULL.md §A8.
type BoundedStore struct {
	mu    sync.RWMutex
	lru   map[Kind]*lrucache.Bounded[string, json.RawMessage]
	size  int
}

// NewBoundedStore builds a store where each kind holds at most size
// entries.
func NewBoundedStore(size int) (*BoundedStore, error) {
	lru := make(map[Kind]*lrucache.Bounded[string, json.RawMessage], len(allKinds))
	for _, k := range allKinds {
		b, err := lrucache.NewBounded[string, json.RawMessage](size)
		if err != nil {
			return nil, err
		}
		lru[k] = b
	}
	return &BoundedStore{lru: lru, size: size}, nil
}

func (s *BoundedStore) Get(_ context.Context, kind Kind, key string) (json.RawMessage, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.lru[kind].Get(key)
	return v, ok, nil
}

func (s *BoundedStore) Put(_ context.Context, kind Kind, key string, value json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lru[kind].Put(key, value)
	return nil
}

func (s *BoundedStore) Clear(_ context.Context, kind Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lru[kind].Clear()
	return nil
}
