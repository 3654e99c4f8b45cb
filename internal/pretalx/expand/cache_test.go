package expand

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCache_PutIsIdempotent covers testable property 5: put(k,v);
// put(k,v); get(k) == v, and two sequential reads between puts agree.
func TestCache_PutIsIdempotent(t *testing.T) {
	c := New(NewMapStore(), nil)
	ctx := context.Background()
	val := json.RawMessage(`{"id":7,"name":{"en":"PyData: ML"}}`)

	require.NoError(t, c.Put(ctx, KindTrack, "7", val))
	require.NoError(t, c.Put(ctx, KindTrack, "7", val))

	got1, ok, err := c.Get(ctx, KindTrack, "7")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, string(val), string(got1))

	got2, ok, err := c.Get(ctx, KindTrack, "7")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, got1, got2)
}

func TestCache_GetMiss(t *testing.T) {
	c := New(NewMapStore(), nil)
	_, ok, err := c.Get(context.Background(), KindTrack, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_Clear(t *testing.T) {
	c := New(NewMapStore(), nil)
	ctx := context.Background()
	require.NoError(t, c.Put(ctx, KindRoom, "1", json.RawMessage(`{}`)))

	require.NoError(t, c.Clear(ctx, KindRoom))
	_, ok, err := c.Get(ctx, KindRoom, "1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_ClearAll(t *testing.T) {
	c := New(NewMapStore(), nil)
	ctx := context.Background()
	require.NoError(t, c.Put(ctx, KindRoom, "1", json.RawMessage(`{}`)))
	require.NoError(t, c.Put(ctx, KindTrack, "2", json.RawMessage(`{}`)))

	require.NoError(t, c.Clear(ctx, ""))
	_, ok1, _ := c.Get(ctx, KindRoom, "1")
	_, ok2, _ := c.Get(ctx, KindTrack, "2")
	assert.False(t, ok1)
	assert.False(t, ok2)
}

type fakePrepopulator struct {
	tracks []Entry
	calls  int
}

func (f *fakePrepopulator) PrepopulateTracks(ctx context.Context, event string) ([]Entry, error) {
	f.calls++
	return f.tracks, nil
}
func (f *fakePrepopulator) PrepopulateSubmissionTypes(ctx context.Context, event string) ([]Entry, error) {
	return nil, nil
}
func (f *fakePrepopulator) PrepopulateSpeakers(ctx context.Context, event string) ([]Entry, error) {
	return nil, nil
}
func (f *fakePrepopulator) PrepopulateRooms(ctx context.Context, event string) ([]Entry, error) {
	return nil, nil
}

func TestCache_MaybePrepopulate_FillsOnceAndSkipsBoundedQueries(t *testing.T) {
	c := New(NewMapStore(), nil)
	p := &fakePrepopulator{tracks: []Entry{{Key: "7", Value: json.RawMessage(`{"id":7}`)}}}
	c.SetPrepopulator(p)
	ctx := context.Background()

	// Bounded query (< boundedQuery items): prepopulation skipped.
	c.MaybePrepopulate(ctx, "evt", []Kind{KindTrack}, 5)
	assert.Equal(t, 0, p.calls)
	_, ok, _ := c.Get(ctx, KindTrack, "7")
	assert.False(t, ok)

	// Unbounded query: fills once.
	c.MaybePrepopulate(ctx, "evt", []Kind{KindTrack}, 100)
	assert.Equal(t, 1, p.calls)
	_, ok, _ = c.Get(ctx, KindTrack, "7")
	assert.True(t, ok)

	// Second call for the same event+kind does not refill.
	c.MaybePrepopulate(ctx, "evt", []Kind{KindTrack}, 100)
	assert.Equal(t, 1, p.calls)
}

func TestBoundedStore_EvictsLeastRecentlyInserted(t *testing.T) {
	s, err := NewBoundedStore(2)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, KindTrack, "1", json.RawMessage(`{}`)))
	require.NoError(t, s.Put(ctx, KindTrack, "2", json.RawMessage(`{}`)))
	require.NoError(t, s.Put(ctx, KindTrack, "3", json.RawMessage(`{}`)))

	_, ok1, _ := s.Get(ctx, KindTrack, "1")
	_, ok3, _ := s.Get(ctx, KindTrack, "3")
	assert.False(t, ok1)
	assert.True(t, ok3)
}

// TestBoundedStore_GetDoesNotRefreshEvictionOrder covers spec.md §4.2's
// eviction policy precisely: reading "1" must not save it from eviction,
// which would be true-LRU behavior rather than the specified
// least-recently-inserted (FIFO) behavior.
func TestBoundedStore_GetDoesNotRefreshEvictionOrder(t *testing.T) {
	s, err := NewBoundedStore(2)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, KindTrack, "1", json.RawMessage(`{}`)))
	require.NoError(t, s.Put(ctx, KindTrack, "2", json.RawMessage(`{}`)))

	_, ok, _ := s.Get(ctx, KindTrack, "1")
	require.True(t, ok, "sanity: 1 is present before the third insert")

	require.NoError(t, s.Put(ctx, KindTrack, "3", json.RawMessage(`{}`)))

	_, ok1, _ := s.Get(ctx, KindTrack, "1")
	_, ok2, _ := s.Get(ctx, KindTrack, "2")
	_, ok3, _ := s.Get(ctx, KindTrack, "3")
	assert.False(t, ok1, "1 was inserted first and must be evicted regardless of the intervening read")
	assert.True(t, ok2)
	assert.True(t, ok3)
}
