package schedule

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Invoker runs an external MIP solver against an LP input file and
// produces a solution file. Production code uses [ExecInvoker]; tests
// substitute a fake that writes a canned solution, since this module
// never shells out during its own test run.
type Invoker interface {
	Invoke(ctx context.Context, inputPath, solutionPath string) error
}

// SolverConfig names the out-of-process solver binary and its
// invocation shape (spec.md §4.6 "Solve contract": "a solver is invoked
// out-of-process with a configurable wall-clock limit").
type SolverConfig struct {
	// BinaryPath is the solver executable, e.g. "cbc" or "glpsol".
	BinaryPath string
	// Args is the complete argument list passed to the solver; the
	// paths are not appended. An element equal to {input} or {output}
	// is replaced with the resolved file path, letting callers match
	// their solver's exact CLI grammar
	// (CBC: "{input} solve solution {output}"; GLPK: "--lp {input}
	// -o {output}").
	Args []string
	// TimeLimit bounds the solve; spec.md §4.6 notes the default is
	// "long — hours" so callers must set this explicitly for anything
	// shorter.
	TimeLimit time.Duration
}

// ExecInvoker shells out to a real solver binary.
type ExecInvoker struct {
	Config SolverConfig
	Logger *zap.Logger
}

// Invoke runs the configured solver with a deadline derived from
// SolverConfig.TimeLimit (capped by ctx's own deadline, if nearer). On
// cancellation it SIGTERMs the child (spec.md §5's cancellation
// contract) rather than killing it outright, giving the solver a chance
// to flush partial state.
func (e *ExecInvoker) Invoke(ctx context.Context, inputPath, solutionPath string) error {
	runCtx := ctx
	if e.Config.TimeLimit > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.Config.TimeLimit)
		defer cancel()
	}

	args := make([]string, 0, len(e.Config.Args))
	for _, a := range e.Config.Args {
		args = append(args, substitutePaths(a, inputPath, solutionPath))
	}

	cmd := exec.CommandContext(runCtx, e.Config.BinaryPath, args...)
	cmd.Cancel = func() error {
		if e.Logger != nil {
			e.Logger.Warn("schedule: sending SIGTERM to solver", zap.Int("pid", cmd.Process.Pid))
		}
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = 5 * time.Second

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("solver invocation failed: %w (output: %s)", err, truncate(output, 2048))
	}
	return nil
}

func substitutePaths(arg, input, output string) string {
	switch arg {
	case "{input}":
		return input
	case "{output}":
		return output
	default:
		return arg
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "...(truncated)"
}

// runDir manages the per-run temporary directory spec.md §5 describes:
// "Temporary solver files are created in a per-run directory and
// deleted on success; on failure they are preserved for inspection."
type runDir struct {
	path string
}

func newRunDir(baseDir, runID string) (*runDir, error) {
	dir := filepath.Join(baseDir, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create solver run directory: %w", err)
	}
	return &runDir{path: dir}, nil
}

func (d *runDir) inputPath() string    { return filepath.Join(d.path, "model.lp") }
func (d *runDir) solutionPath() string { return filepath.Join(d.path, "solution.sol") }

func (d *runDir) cleanup(succeeded bool) {
	if succeeded {
		_ = os.RemoveAll(d.path)
	}
}
