package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pytanis-go/pretalx-core/internal/assignment"
	"github.com/pytanis-go/pretalx-core/internal/pretalx/client"
	"github.com/pytanis-go/pretalx-core/internal/projection"
	"github.com/pytanis-go/pretalx-core/internal/schedule"
	"github.com/pytanis-go/pretalx-core/pkg/config"
	apperrors "github.com/pytanis-go/pretalx-core/pkg/errors"
	"github.com/pytanis-go/pretalx-core/pkg/events"
	"github.com/pytanis-go/pretalx-core/pkg/jobs"
	"github.com/pytanis-go/pretalx-core/pkg/logger"
	"github.com/pytanis-go/pretalx-core/pkg/metrics"
	"github.com/pytanis-go/pretalx-core/pkg/response"
	"github.com/pytanis-go/pretalx-core/pkg/storage"
)

// Handler wires the admin surface's routes to C2-C7. It holds no
// business logic of its own: every route validates its request, hands
// the work to the A7 job queue, and reports back through Store.
type Handler struct {
	Client    *client.Client
	Queue     *jobs.Queue
	Store     *Store
	Storage   storage.Provider
	Signer    *storage.SignedURLSigner
	Publisher *events.Publisher
	Metrics   *metrics.Recorder
	Solver    config.SolverConfig
	Logger    *zap.Logger
}

// Routes registers every A5 route on r, with auth applied by the caller
// (cmd/admin-server wraps the admin group in auth.Bearer).
func (h *Handler) Routes(r gin.IRoutes) {
	r.POST("/runs/fetch", h.triggerFetch)
	r.POST("/runs/assign", h.triggerAssign)
	r.POST("/runs/schedule", h.triggerSchedule)
	r.GET("/runs/:id", h.getRun)
	r.GET("/artifacts/:token", h.downloadArtifact)
}

// downloadArtifact serves a run artifact addressed by a signed,
// expiring token rather than a raw filesystem path, so a download link
// handed out by triggerFetch/triggerSchedule can be shared without
// granting standing access to the whole exports directory.
func (h *Handler) downloadArtifact(c *gin.Context) {
	if h.Signer == nil || h.Storage == nil {
		response.Error(c, apperrors.ErrNotFound)
		return
	}

	_, _, relPath, _, err := h.Signer.Parse(c.Param("token"), false)
	if err != nil {
		response.Error(c, apperrors.Wrap(err, apperrors.ErrUnauthorized.Code, apperrors.ErrUnauthorized.Status, "invalid or expired download token"))
		return
	}

	f, err := h.Storage.Open(relPath)
	if err != nil {
		response.Error(c, apperrors.ErrNotFound)
		return
	}
	defer f.Close() //nolint:errcheck

	c.Header("Cache-Control", "no-store")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(relPath)))
	if _, err := io.Copy(c.Writer, f); err != nil {
		h.Logger.Warn("admin: failed to stream artifact download", zap.String("path", relPath), zap.Error(err))
	}
}

// sign returns a signed download token for relPath, or "" when no
// signer is configured (artifact still lives on disk, just not
// reachable over HTTP without the admin operator fetching it directly).
func (h *Handler) sign(runID string, kind storage.ArtifactKind, relPath string) string {
	if h.Signer == nil || relPath == "" {
		return ""
	}
	token, _, err := h.Signer.Generate(runID, kind, relPath)
	if err != nil {
		h.Logger.Warn("admin: failed to sign artifact download token", zap.String("run_id", runID), zap.Error(err))
		return ""
	}
	return token
}

func (h *Handler) getRun(c *gin.Context) {
	run, ok := h.Store.Get(c.Param("id"))
	if !ok {
		response.Error(c, apperrors.ErrNotFound)
		return
	}
	response.JSON(c, http.StatusOK, run)
}

func (h *Handler) triggerFetch(c *gin.Context) {
	var req FetchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.Wrap(err, apperrors.ErrValidation.Code, apperrors.ErrValidation.Status, err.Error()))
		return
	}

	run := h.Store.Create(RunKindFetch)
	job := jobs.Job{ID: run.ID, Type: string(RunKindFetch), Payload: req}
	if err := h.Queue.Enqueue(job); err != nil {
		response.Error(c, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "queue unavailable"))
		return
	}
	response.Created(c, run)
}

func (h *Handler) triggerAssign(c *gin.Context) {
	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.Wrap(err, apperrors.ErrValidation.Code, apperrors.ErrValidation.Status, err.Error()))
		return
	}

	run := h.Store.Create(RunKindAssign)
	job := jobs.Job{ID: run.ID, Type: string(RunKindAssign), Payload: req}
	if err := h.Queue.Enqueue(job); err != nil {
		response.Error(c, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "queue unavailable"))
		return
	}
	response.Created(c, run)
}

func (h *Handler) triggerSchedule(c *gin.Context) {
	if h.Solver.BinaryPath == "" {
		response.Error(c, &apperrors.NoSchedule{Reason: "no solver binary configured"})
		return
	}

	var req ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.Wrap(err, apperrors.ErrValidation.Code, apperrors.ErrValidation.Status, err.Error()))
		return
	}

	run := h.Store.Create(RunKindSchedule)
	job := jobs.Job{ID: run.ID, Type: string(RunKindSchedule), Payload: req}
	if err := h.Queue.Enqueue(job); err != nil {
		response.Error(c, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "queue unavailable"))
		return
	}
	response.Created(c, run)
}

// Dispatch is the single A7 job handler: it type-switches on the job's
// Type to run the matching pipeline, then records the outcome on Store.
func (h *Handler) Dispatch(ctx context.Context, job jobs.Job) error {
	h.Store.markRunning(job.ID)
	log := logger.WithRun(h.Logger, job.ID)

	switch job.Type {
	case string(RunKindFetch):
		req, ok := job.Payload.(FetchRequest)
		if !ok {
			return fmt.Errorf("admin: fetch job %s carries payload of type %T", job.ID, job.Payload)
		}
		result, err := h.runFetch(ctx, job.ID, req)
		return h.finish(job.ID, result, err)

	case string(RunKindAssign):
		req, ok := job.Payload.(AssignRequest)
		if !ok {
			return fmt.Errorf("admin: assign job %s carries payload of type %T", job.ID, job.Payload)
		}
		result, err := h.runAssign(req)
		return h.finish(job.ID, result, err)

	case string(RunKindSchedule):
		req, ok := job.Payload.(ScheduleRequest)
		if !ok {
			return fmt.Errorf("admin: schedule job %s carries payload of type %T", job.ID, job.Payload)
		}
		result, err := h.runSchedule(ctx, job.ID, req)
		return h.finish(job.ID, result, err)

	default:
		log.Warn("admin: unknown job type", zap.String("type", job.Type))
		return fmt.Errorf("admin: unknown job type %q", job.Type)
	}
}

// finish records a terminal outcome and returns nil: job failures are
// the pipeline's own domain errors, already logged by the pipeline, and
// A7's retry policy has no use retrying a track mismatch or an
// infeasible MIP, so this never asks jobs.Queue to retry.
func (h *Handler) finish(runID string, result interface{}, err error) error {
	if err != nil {
		h.Store.markFailed(runID, err)
		return nil
	}
	h.Store.markSucceeded(runID, result)
	return nil
}

func (h *Handler) runFetch(ctx context.Context, runID string, req FetchRequest) (*FetchResult, error) {
	count, seq, err := h.Client.Submissions(ctx, req.Event, nil)
	if err != nil {
		return nil, err
	}
	proposals, err := seq.Materialize(ctx)
	if err != nil {
		return nil, err
	}

	result := &FetchResult{Event: req.Event, SubmissionCount: count}

	if h.Storage != nil {
		// Persist the C5 projection (one row per speaker) rather than the
		// raw wire.Proposal list, so the saved artifact is already in the
		// shape C6/C7's inputs are built from (SPEC_FULL.md §2).
		rows := projection.ProposalRows(proposals)
		body, err := json.Marshal(rows)
		if err != nil {
			return nil, fmt.Errorf("marshal fetch artifact: %w", err)
		}
		name := fmt.Sprintf("fetch-%s-%s.json", req.Event, runID)
		path, err := h.Storage.Save(name, body)
		if err != nil {
			return nil, fmt.Errorf("save fetch artifact: %w", err)
		}
		result.ArtifactPath = path
		result.DownloadToken = h.sign(runID, storage.ArtifactFetch, path)
	}

	if h.Metrics != nil {
		h.Metrics.RunsTotal.WithLabelValues("fetch", "completed").Inc()
	}
	return result, nil
}

func (h *Handler) runAssign(req AssignRequest) (*assignment.Result, error) {
	proposals, reviewers := req.toEngineInputs()
	result, err := assignment.Assign(proposals, reviewers, req.Buffer, req.Aliases)
	outcome := "completed"
	if err != nil {
		outcome = "track_mismatch"
	}
	if h.Metrics != nil {
		h.Metrics.RunsTotal.WithLabelValues("assign", outcome).Inc()
	}
	return result, err
}

func (h *Handler) runSchedule(ctx context.Context, runID string, req ScheduleRequest) (*ScheduleResult, error) {
	params := req.toParams()

	invoker := &schedule.ExecInvoker{
		Config: schedule.SolverConfig{
			BinaryPath: h.Solver.BinaryPath,
			Args:       h.Solver.Args,
			TimeLimit:  h.Solver.TimeLimit,
		},
		Logger: h.Logger,
	}
	observer := func(t schedule.Transition) {
		if h.Publisher == nil {
			return
		}
		errMsg := ""
		if t.Err != nil {
			errMsg = t.Err.Error()
		}
		h.Publisher.Publish(ctx, events.Transition{
			RunID: t.RunID, Stage: string(t.State), Error: errMsg, Timestamp: time.Now().UTC(),
		})
	}

	runCfg := schedule.RunConfig{
		RunID:    runID,
		WorkDir:  h.Solver.WorkDir,
		Invoker:  invoker,
		Observer: observer,
		Logger:   h.Logger,
	}
	if h.Metrics != nil {
		runCfg.Metrics = h.Metrics.RunDuration
		runCfg.MetricsOut = h.Metrics.RunsTotal
	}

	timetable, err := schedule.Run(ctx, params, runCfg)
	if err != nil {
		return nil, err
	}

	result := &ScheduleResult{Placements: timetable.Placements, EmptySlots: timetable.EmptySlots}
	if h.Storage != nil {
		body, err := json.Marshal(timetable)
		if err != nil {
			return nil, fmt.Errorf("marshal schedule artifact: %w", err)
		}
		name := fmt.Sprintf("schedule-%s.json", runID)
		path, err := h.Storage.Save(name, body)
		if err != nil {
			return nil, fmt.Errorf("save schedule artifact: %w", err)
		}
		result.ArtifactPath = path
		result.DownloadToken = h.sign(runID, storage.ArtifactSchedule, path)
	}
	return result, nil
}
