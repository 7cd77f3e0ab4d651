// Package check runs the evaluation worker: a single polling loop that
// claims queued jobs, executes the harness in a sandbox and records the
// outcome.
package check

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"mlgrader/internal/check/sandbox"
	"mlgrader/internal/common/db"
	"mlgrader/internal/notify"
	"mlgrader/internal/store"
	appErr "mlgrader/pkg/errors"
	"mlgrader/pkg/utils/contextkey"
	"mlgrader/pkg/utils/logger"
)

const (
	msgTimedOut = "Your last solution exceeded the allowed run time of %d minutes!"
	msgCrashed  = "Your last solution exited with an error (code %d). Captured stderr:\n\n%s"
	msgChecked  = "Your last solution has been checked! Send /status to see the results."
	msgInternal = "Your last solution could not be checked because of an internal error. Please resubmit it."
)

// LeaderboardUpdater rebuilds and publishes the leaderboards. The worker
// calls it after every successful evaluation.
type LeaderboardUpdater interface {
	Update(ctx context.Context) error
}

// Config holds the worker tuning knobs.
type Config struct {
	IdlePollInterval time.Duration
	RunTimeout       time.Duration
	OutputMaxBytes   int64
	DatabasePath     string
}

// Worker is the single evaluation loop. One worker process runs one loop;
// claim exclusivity in the store keeps concurrent deployments safe anyway.
type Worker struct {
	store       store.Store
	runner      sandbox.Runner
	workspace   *Workspace
	notifier    notify.Notifier
	leaderboard LeaderboardUpdater
	cfg         Config
}

func NewWorker(
	st store.Store,
	runner sandbox.Runner,
	workspace *Workspace,
	notifier notify.Notifier,
	leaderboard LeaderboardUpdater,
	cfg Config,
) *Worker {
	return &Worker{
		store:       st,
		runner:      runner,
		workspace:   workspace,
		notifier:    notifier,
		leaderboard: leaderboard,
		cfg:         cfg,
	}
}

// Run polls for queued jobs until the context is cancelled. Store errors are
// fatal apart from transient lock contention; evaluation failures mark the
// job and the loop keeps going.
func (w *Worker) Run(ctx context.Context) error {
	logger.Info(ctx, "evaluation worker started",
		zap.Duration("idle_poll_interval", w.cfg.IdlePollInterval),
		zap.Duration("run_timeout", w.cfg.RunTimeout))

	for {
		job, err := w.store.ClaimOldestQueued(ctx)
		if errors.Is(err, store.ErrNoQueuedJob) {
			if err := sleepCtx(ctx, w.cfg.IdlePollInterval); err != nil {
				return nil
			}
			continue
		}
		if err != nil {
			// Lock contention with a concurrent enqueue resolves itself;
			// back off and claim again instead of tearing the loop down.
			if db.IsBusy(err) {
				logger.Warn(ctx, "claim hit lock contention, retrying", zap.Error(err))
				if err := sleepCtx(ctx, w.cfg.IdlePollInterval); err != nil {
					return nil
				}
				continue
			}
			return err
		}
		if err := w.runJob(ctx, *job); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (w *Worker) runJob(ctx context.Context, job store.Job) error {
	ctx = context.WithValue(ctx, contextkey.StudentID, fmt.Sprintf("%d", job.Identity))
	logger.Info(ctx, "job claimed", zap.Int64("job_id", job.ID), zap.Int64("identity", job.Identity))

	evalDir, err := w.workspace.Acquire(job.Identity, job.ID)
	defer func() {
		w.workspace.Cleanup(ctx, evalDir)
	}()
	if err != nil {
		logger.Error(ctx, "acquire workspace failed", zap.Int64("job_id", job.ID), zap.Error(err))
		return w.failJob(ctx, job, msgInternal)
	}

	script, err := w.workspace.StageHarness(evalDir)
	if err != nil {
		logger.Error(ctx, "stage harness failed", zap.Int64("job_id", job.ID), zap.Error(err))
		return w.failJob(ctx, job, msgInternal)
	}

	res, err := w.runner.Run(ctx, sandbox.Request{
		WorkDir: evalDir,
		Script:  script,
		Timeout: w.cfg.RunTimeout,
		Env: []string{
			"MLGRADER_DB=" + w.cfg.DatabasePath,
			fmt.Sprintf("MLGRADER_IDENTITY=%d", job.Identity),
		},
		OutputMaxBytes: w.cfg.OutputMaxBytes,
	})
	if err != nil {
		logger.Error(ctx, "run harness failed", zap.Int64("job_id", job.ID), zap.Error(err))
		return w.failJob(ctx, job, msgInternal)
	}

	if res.TimedOut {
		logger.Warn(ctx, "harness timed out",
			zap.Int64("job_id", job.ID), zap.Duration("duration", res.Duration))
		minutes := int(w.cfg.RunTimeout / time.Minute)
		if minutes < 1 {
			minutes = 1
		}
		return w.failJob(ctx, job, fmt.Sprintf(msgTimedOut, minutes))
	}
	if res.ExitCode != 0 {
		logger.Warn(ctx, "harness exited nonzero",
			zap.Int64("job_id", job.ID), zap.Int("exit_code", res.ExitCode))
		return w.failJob(ctx, job, fmt.Sprintf(msgCrashed, res.ExitCode, res.Stderr))
	}

	status, err := w.store.UncheckedStatus(ctx, job.Identity)
	if err != nil {
		return err
	}
	if status == store.StatusRunning {
		// The harness exited cleanly without recording scores; leave the
		// job as-is so the gap is visible to the operator.
		logger.Warn(ctx, "harness exited 0 without recording scores",
			zap.Int64("job_id", job.ID))
	}

	if err := w.leaderboard.Update(ctx); err != nil {
		logger.Error(ctx, "leaderboard update failed", zap.Error(err))
	}
	w.send(ctx, job.Identity, msgChecked)
	logger.Info(ctx, "job finished", zap.Int64("job_id", job.ID),
		zap.Duration("duration", res.Duration))
	return nil
}

// failJob marks the running job as errored and notifies the student. A store
// failure here is fatal, except when there is no running job to mark: the
// harness may have recorded one task's scores before failing on the other,
// flipping the job to done already. The student is still told what broke.
func (w *Worker) failJob(ctx context.Context, job store.Job, text string) error {
	if err := w.store.Fail(ctx, job.Identity); err != nil {
		if !appErr.Is(err, appErr.JobNotFound) {
			return err
		}
		logger.Warn(ctx, "job already left running state, keeping recorded scores",
			zap.Int64("job_id", job.ID), zap.Int64("identity", job.Identity))
	}
	w.send(ctx, job.Identity, text)
	return nil
}

func (w *Worker) send(ctx context.Context, identity int64, text string) {
	if err := w.notifier.Send(ctx, identity, text); err != nil {
		logger.Error(ctx, "notify student failed",
			zap.Int64("identity", identity), zap.Error(err))
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
