package client

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pytanis-go/pretalx-core/internal/pretalx/expand"
	"github.com/pytanis-go/pretalx-core/internal/pretalx/fetch"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	f := fetch.New(fetch.Config{BaseURL: baseURL, Token: "t", APIVersion: "v1"},
		fetch.NewTokenBucket(1000, 1, 1000), zap.NewNop(), nil)
	cache := expand.New(expand.NewMapStore(), nil)
	return New(f, cache, zap.NewNop(), nil, true)
}

// TestSubmission_ExpandsTrackReferenceAndCachesIt covers spec.md §8
// scenario 2: a cold cache triggers one detail GET for the track
// reference; a second proposal referencing the same track triggers
// zero additional GETs.
func TestSubmission_ExpandsTrackReferenceAndCachesIt(t *testing.T) {
	var trackRequests int
	mux := http.NewServeMux()
	mux.HandleFunc("/api/events/evt/submissions/P1/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":"P1","title":"Talk 1","track":7,"duration":30,"state":"accepted"}`)
	})
	mux.HandleFunc("/api/events/evt/submissions/P2/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":"P2","title":"Talk 2","track":7,"duration":45,"state":"accepted"}`)
	})
	mux.HandleFunc("/api/events/evt/tracks/7/", func(w http.ResponseWriter, r *http.Request) {
		trackRequests++
		fmt.Fprint(w, `{"id":7,"name":{"en":"PyData: ML"}}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	ctx := context.Background()

	p1, err := c.Submission(ctx, "evt", "P1", nil)
	require.NoError(t, err)
	require.NotNil(t, p1.Track)
	assert.Equal(t, 7, p1.Track.ID)
	assert.Equal(t, "PyData: ML", p1.Track.Name.En())
	assert.Equal(t, 1, trackRequests)

	p2, err := c.Submission(ctx, "evt", "P2", nil)
	require.NoError(t, err)
	require.NotNil(t, p2.Track)
	assert.Equal(t, "PyData: ML", p2.Track.Name.En())
	assert.Equal(t, 1, trackRequests, "second proposal referencing the same track must not trigger another GET")
}

// TestTalks_FallsBackToSubmissionsOn404 covers the talks/submissions
// alias described in spec.md §4.3, including that the fallback carries
// an equivalent accepted/confirmed state filter rather than widening
// to every submission state.
func TestTalks_FallsBackToSubmissionsOn404(t *testing.T) {
	var fallbackState string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/events/evt/talks/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/api/events/evt/submissions/", func(w http.ResponseWriter, r *http.Request) {
		fallbackState = r.URL.Query().Get("state")
		fmt.Fprint(w, `{"count":1,"next":null,"previous":null,"results":[{"code":"A","duration":30,"state":"accepted"}]}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	count, seq, err := c.Talks(context.Background(), "evt", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, "accepted,confirmed", fallbackState)

	items, err := seq.Materialize(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "A", items[0].Code)
}

// TestSubmissions_SinglePage covers scenario 1's count/
// element fidelity through the client layer.
func TestSubmissions_SinglePage(t *testing.T) {
	requests := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/api/events/evt/submissions/", func(w http.ResponseWriter, r *http.Request) {
		requests++
		fmt.Fprint(w, `{"count":2,"next":null,"previous":null,"results":[{"code":"A","duration":30,"state":"submitted"},{"code":"B","duration":45,"state":"submitted"}]}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	count, seq, err := c.Submissions(context.Background(), "evt", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	items, err := seq.Materialize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, requests)
	require.Len(t, items, 2)
	assert.Equal(t, "A", items[0].Code)
	assert.Equal(t, "B", items[1].Code)
}
