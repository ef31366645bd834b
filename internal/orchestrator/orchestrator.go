// Package orchestrator sequences one crawl run end to end: validate the
// selected cell, submit the job, poll for completion, resolve the result
// artifact, and reconcile the matched note into the table row.
package orchestrator

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/SirMem/xhs-frontend/internal/metrics"
	"github.com/SirMem/xhs-frontend/internal/poller"
	"github.com/SirMem/xhs-frontend/internal/progress"
	"github.com/SirMem/xhs-frontend/internal/reconciler"
	"github.com/SirMem/xhs-frontend/internal/resolver"
	"github.com/SirMem/xhs-frontend/internal/session"
	"github.com/SirMem/xhs-frontend/internal/xhs"
)

// Backend is the remote job surface the run depends on.
type Backend interface {
	StartDetailCrawl(ctx context.Context, targetURL, cookie string) error
	Status(ctx context.Context) (xhs.JobStatus, error)
}

// RunInput names the table coordinates of one run. RecordID may be empty, in
// which case the table's current selection is used.
type RunInput struct {
	FieldID      string
	RecordID     string
	SelectedKeys []string
}

// Result reports what one run produced.
type Result struct {
	RunID  uuid.UUID
	Record xhs.NoteRecord
	Writes []reconciler.Write
}

// Orchestrator coordinates the run pipeline. At most one run is active at a
// time; concurrent triggers are rejected before any remote call.
type Orchestrator struct {
	backend    Backend
	table      xhs.Table
	resolver   *resolver.Resolver
	reconciler *reconciler.Reconciler
	session    *session.Session
	pollCfg    poller.Config
	sleep      poller.SleepFunc
	clock      xhs.Clock
	log        *progress.Log
	logger     *zap.Logger

	running atomic.Bool
}

// Options carries the optional knobs for New.
type Options struct {
	PollConfig poller.Config
	Sleep      poller.SleepFunc
	Clock      xhs.Clock
}

// New wires an Orchestrator. Clock must be non-nil; Sleep may be nil for a
// real timer.
func New(
	backend Backend,
	table xhs.Table,
	res *resolver.Resolver,
	rec *reconciler.Reconciler,
	sess *session.Session,
	log *progress.Log,
	logger *zap.Logger,
	opts Options,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &Orchestrator{
		backend:    backend,
		table:      table,
		resolver:   res,
		reconciler: rec,
		session:    sess,
		pollCfg:    opts.PollConfig,
		sleep:      opts.Sleep,
		clock:      opts.Clock,
		log:        log,
		logger:     logger,
	}
}

// Run executes one crawl run. The returned error is already classified; use
// xhs.KindOf and xhs.UserMessage to present it.
func (o *Orchestrator) Run(ctx context.Context, input RunInput) (Result, error) {
	if !o.running.CompareAndSwap(false, true) {
		return Result{}, xhs.Validationf("a crawl run is already in progress")
	}
	defer o.running.Store(false)

	runID := uuid.New()
	o.log.Reset()
	rec := progress.NewRecorder(runID, o.clock, o.log, progress.NewLogSink(o.logger))
	rec.Emit(progress.StageRunStart, "")

	started := o.clock.Now()
	result, err := o.run(ctx, rec, input)
	result.RunID = runID

	elapsed := o.clock.Now().Sub(started)
	metrics.ObserveStage("run", elapsed)
	if err != nil {
		rec.Emit(progress.StageRunError, xhs.UserMessage(err))
		outcome := string(xhs.KindOf(err))
		if outcome == "" {
			outcome = "error"
		}
		metrics.ObserveRun(outcome)
		o.logger.Error("crawl run failed",
			zap.String("run_id", runID.String()),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return result, err
	}
	rec.Emit(progress.StageRunDone, fmt.Sprintf("%d fields written", len(result.Writes)))
	metrics.ObserveRun("success")
	o.logger.Info("crawl run finished",
		zap.String("run_id", runID.String()),
		zap.Duration("elapsed", elapsed),
		zap.Int("writes", len(result.Writes)),
	)
	return result, nil
}

func (o *Orchestrator) run(ctx context.Context, rec *progress.Recorder, input RunInput) (Result, error) {
	recordID := input.RecordID
	if recordID == "" {
		sel, err := o.table.Selection(ctx)
		if err != nil {
			return Result{}, err
		}
		recordID = sel.RecordID
	}

	targetURL, err := o.readTargetURL(ctx, input.FieldID, recordID)
	if err != nil {
		return Result{}, err
	}

	req := xhs.CrawlRequest{
		TargetURL: targetURL,
		Cookie:    o.session.Cookie(),
		RecordID:  recordID,
	}
	rec.Emit(progress.StageValidate, "")
	if err := req.Validate(); err != nil {
		return Result{}, err
	}

	rec.Emit(progress.StageJobSubmit, req.TargetURL)
	if err := o.backend.StartDetailCrawl(ctx, req.TargetURL, req.Cookie); err != nil {
		return Result{}, err
	}

	rec.Emit(progress.StagePollWait, "")
	pollStart := o.clock.Now()
	status := func(ctx context.Context) (xhs.JobStatus, error) {
		metrics.ObservePollTick()
		return o.backend.Status(ctx)
	}
	p := poller.New(o.pollCfg, status, o.sleep, o.logger)
	err = p.Wait(ctx, func(tick int) {
		rec.Emit(progress.StagePollHeartbeat, fmt.Sprintf("tick %d", tick))
	})
	metrics.ObserveStage("poll", o.clock.Now().Sub(pollStart))
	if err != nil {
		return Result{}, err
	}
	rec.Emit(progress.StageJobDone, "")

	rec.Emit(progress.StageArtifactFetch, "")
	note, err := o.resolver.Resolve(ctx, req.TargetURL)
	if err != nil {
		return Result{}, err
	}
	rec.Emit(progress.StageRecordMatch, note.NoteID())

	decls := reconciler.Select(input.SelectedKeys)
	writes, err := o.reconciler.Apply(ctx, recordID, note, decls, reconciler.Hooks{
		OnCreate: func(displayName string) {
			rec.Emit(progress.StageFieldCreate, displayName)
		},
		OnWrite: func(displayName string, value any) {
			rec.Emit(progress.StageFieldWrite, displayName)
			metrics.ObserveFieldWrite(displayName)
		},
	})
	if err != nil {
		return Result{Record: note, Writes: writes}, err
	}

	return Result{Record: note, Writes: writes}, nil
}

// readTargetURL pulls the link out of the selected cell. Both link segments
// and plain text cells are accepted; the platform check happens later in
// request validation.
func (o *Orchestrator) readTargetURL(ctx context.Context, fieldID, recordID string) (string, error) {
	if fieldID == "" {
		return "", xhs.Validationf("field id is required")
	}
	if recordID == "" {
		return "", xhs.Validationf("no record selected")
	}
	field, err := o.table.Field(ctx, fieldID)
	if err != nil {
		return "", err
	}
	cell, err := field.Value(ctx, recordID)
	if err != nil {
		return "", err
	}
	if cell.IsEmpty() {
		return "", xhs.Validationf("selected cell is empty")
	}
	return cell.Text, nil
}

// Busy reports whether a run is currently active.
func (o *Orchestrator) Busy() bool {
	return o.running.Load()
}
