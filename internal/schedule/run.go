package schedule

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	apperrors "github.com/pytanis-go/pretalx-core/pkg/errors"
)

// State names one stage of the run's lifecycle (spec.md §4.6 "State
// machine"): Collecting -> Building -> Writing -> Solving -> Loading ->
// Emitting, with Failed reachable from any stage and Emitted terminal.
type State string

const (
	StateCollecting State = "collecting"
	StateBuilding   State = "building"
	StateWriting    State = "writing"
	StateSolving    State = "solving"
	StateLoading    State = "loading"
	StateEmitting   State = "emitting"
	StateEmitted    State = "emitted"
	StateFailed     State = "failed"
)

// Transition is observed once per state change; A7's job runner wires
// this to its best-effort RabbitMQ publisher.
type Transition struct {
	RunID string
	State State
	Err   error
}

// Observer receives Transitions as a run progresses. A nil Observer is
// valid.
type Observer func(Transition)

// RunConfig bundles everything one C7 invocation needs beyond the raw
// MIP parameters.
type RunConfig struct {
	RunID      string
	WorkDir    string
	Invoker    Invoker
	Observer   Observer
	Logger     *zap.Logger
	Metrics    *prometheus.HistogramVec
	MetricsOut *prometheus.CounterVec
}

// Run executes the full C7 pipeline: build the model, write it to an LP
// file, invoke the solver, parse its solution, and reconstruct the
// timetable. It fails with [apperrors.NoSchedule] when the solver exits
// non-zero or the solution omits every x variable (the "infeasible or
// exceeds the time limit without an incumbent" case of spec.md §4.6).
func Run(ctx context.Context, params *Params, cfg RunConfig) (*Timetable, error) {
	started := time.Now()
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	emit := func(state State, err error) {
		if cfg.Observer != nil {
			cfg.Observer(Transition{RunID: cfg.RunID, State: state, Err: err})
		}
	}
	fail := func(stage State, err error) (*Timetable, error) {
		logger.Error("schedule: run failed", zap.String("run_id", cfg.RunID), zap.String("stage", string(stage)), zap.Error(err))
		emit(StateFailed, err)
		observeRun(cfg, started, "failed")
		return nil, err
	}

	emit(StateCollecting, nil)
	if len(params.Talks) == 0 {
		// spec.md §8 boundary: "Empty proposal set -> ... empty
		// timetable; no errors."
		emit(StateEmitted, nil)
		observeRun(cfg, started, "completed")
		return &Timetable{}, nil
	}

	emit(StateBuilding, nil)
	model := BuildModel(params)

	emit(StateWriting, nil)
	dir, err := newRunDir(cfg.WorkDir, cfg.RunID)
	if err != nil {
		return fail(StateWriting, err)
	}
	if err := writeModelFile(dir.inputPath(), model); err != nil {
		return fail(StateWriting, err)
	}

	emit(StateSolving, nil)
	if cfg.Invoker == nil {
		err := &apperrors.NoSchedule{Reason: "no solver invoker configured"}
		dir.cleanup(false)
		return fail(StateSolving, err)
	}
	if err := cfg.Invoker.Invoke(ctx, dir.inputPath(), dir.solutionPath()); err != nil {
		dir.cleanup(false)
		return fail(StateSolving, &apperrors.NoSchedule{Reason: err.Error()})
	}

	emit(StateLoading, nil)
	sol, err := readSolutionFile(dir.solutionPath())
	if err != nil {
		dir.cleanup(false)
		return fail(StateLoading, err)
	}
	if !hasAnyPlacement(params, sol) {
		dir.cleanup(false)
		return fail(StateLoading, &apperrors.NoSchedule{Reason: "infeasible: solution contains no talk placements"})
	}

	emit(StateEmitting, nil)
	timetable := Reconstruct(params, sol)
	dir.cleanup(true)

	emit(StateEmitted, nil)
	observeRun(cfg, started, "completed")
	return timetable, nil
}

func observeRun(cfg RunConfig, started time.Time, outcome string) {
	if cfg.Metrics != nil {
		cfg.Metrics.WithLabelValues("schedule", outcome).Observe(time.Since(started).Seconds())
	}
	if cfg.MetricsOut != nil {
		cfg.MetricsOut.WithLabelValues("schedule", outcome).Inc()
	}
}

func writeModelFile(path string, m *Model) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create model file: %w", err)
	}
	defer f.Close() //nolint:errcheck
	return WriteLP(f, m)
}

func readSolutionFile(path string) (Solution, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open solution file: %w", err)
	}
	defer f.Close() //nolint:errcheck
	return ParseSolution(f)
}

func hasAnyPlacement(p *Params, sol Solution) bool {
	for _, t := range p.Talks {
		for _, slot := range p.Slots {
			if slot.LengthMinutes <= 0 {
				continue
			}
			if sol[xVarName(t.Code, slot)] >= 0.5 {
				return true
			}
		}
	}
	return false
}
