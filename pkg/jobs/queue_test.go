package jobs

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_EnqueueBeforeStartFails(t *testing.T) {
	q := NewQueue("test", func(context.Context, Job) error { return nil }, QueueConfig{})
	err := q.Enqueue(Job{ID: "1"})
	require.Error(t, err)
}

type fetchPayload struct{ event string }

func (fetchPayload) JobType() string { return "fetch" }

func TestQueue_HandlerTypeAssertsPayloadToItsConcreteKind(t *testing.T) {
	var gotEvent string
	done := make(chan struct{})

	handler := func(_ context.Context, j Job) error {
		p, ok := j.Payload.(fetchPayload)
		require.True(t, ok, "payload must assert back to its concrete kind")
		gotEvent = p.event
		close(done)
		return nil
	}

	q := NewQueue("test", handler, QueueConfig{Workers: 1})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "a", Type: "fetch", Payload: fetchPayload{event: "pycon"}}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for job")
	}
	assert.Equal(t, "pycon", gotEvent)
}

func TestQueue_RunsHandlerForEveryJob(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[string]bool)
	done := make(chan struct{}, 3)

	handler := func(_ context.Context, j Job) error {
		mu.Lock()
		seen[j.ID] = true
		mu.Unlock()
		done <- struct{}{}
		return nil
	}

	q := NewQueue("test", handler, QueueConfig{Workers: 2})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "a"}))
	require.NoError(t, q.Enqueue(Job{ID: "b"}))
	require.NoError(t, q.Enqueue(Job{ID: "c"}))

	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for jobs to complete")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, seen["a"])
	assert.True(t, seen["b"])
	assert.True(t, seen["c"])
}

func TestQueue_RetriesFailedJobUpToMaxRetries(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	allDone := make(chan struct{})

	handler := func(_ context.Context, j Job) error {
		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()
		if n >= 3 {
			close(allDone)
		}
		return fmt.Errorf("boom")
	}

	q := NewQueue("test", handler, QueueConfig{Workers: 1, MaxRetries: 2, RetryDelay: time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "x"}))

	select {
	case <-allDone:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for retries")
	}

	// Give the final (non-retried) failure's logging a moment, then
	// confirm no further attempts arrive beyond maxRetries+1 tries.
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, attempts, "initial attempt plus 2 retries")
}

func TestQueue_StopIsIdempotentAndWaitsForWorkers(t *testing.T) {
	q := NewQueue("test", func(context.Context, Job) error { return nil }, QueueConfig{})
	q.Start(context.Background())
	q.Stop()
	assert.NotPanics(t, func() { q.Stop() })
}
