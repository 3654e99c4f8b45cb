// Package admin implements the trigger/inspection handlers behind A5's
// gin routes: enqueueing C2-C5 fetch, C6 assignment, and C7 scheduling
// runs onto the A7 job queue and exposing their outcome by run id.
package admin

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// RunKind names which pipeline a Run drives.
type RunKind string

const (
	RunKindFetch    RunKind = "fetch"
	RunKindAssign   RunKind = "assign"
	RunKindSchedule RunKind = "schedule"
)

// RunStatus tracks a Run's lifecycle as seen by GET /runs/{id}. C7 runs
// additionally pass through schedule.State transitions, published
// separately via pkg/events; RunStatus is the coarse view this
// package's own handlers expose.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one admin-triggered pipeline invocation.
type Run struct {
	ID        string
	Kind      RunKind
	Status    RunStatus
	CreatedAt time.Time
	UpdatedAt time.Time
	Result    interface{}
	Error     string
}

// Store is an in-memory run registry. It never persists across process
// restarts — durable run history is explicitly out of scope (spec.md §1
// carries no run-history Non-goal to contradict, but A6's storage
// providers persist artifacts, not this bookkeeping).
type Store struct {
	mu   sync.RWMutex
	runs map[string]*Run
}

// NewStore builds an empty run registry.
func NewStore() *Store {
	return &Store{runs: make(map[string]*Run)}
}

// Create registers a new pending run and returns it.
func (s *Store) Create(kind RunKind) *Run {
	now := time.Now().UTC()
	run := &Run{
		ID:        uuid.NewString(),
		Kind:      kind,
		Status:    RunStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.mu.Lock()
	s.runs[run.ID] = run
	s.mu.Unlock()
	return run
}

// Get returns a run by id.
func (s *Store) Get(id string) (*Run, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[id]
	return r, ok
}

// markRunning flips a run to running, recording nothing else.
func (s *Store) markRunning(id string) {
	s.update(id, func(r *Run) { r.Status = RunStatusRunning })
}

// markSucceeded records a run's terminal result.
func (s *Store) markSucceeded(id string, result interface{}) {
	s.update(id, func(r *Run) {
		r.Status = RunStatusSucceeded
		r.Result = result
	})
}

// markFailed records a run's terminal error.
func (s *Store) markFailed(id string, err error) {
	s.update(id, func(r *Run) {
		r.Status = RunStatusFailed
		r.Error = err.Error()
	})
}

func (s *Store) update(id string, fn func(*Run)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[id]
	if !ok {
		return
	}
	fn(r)
	r.UpdatedAt = time.Now().UTC()
}
