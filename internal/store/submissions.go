package store

import (
	"context"
	"time"

	"mlgrader/internal/common/db"
	appErr "mlgrader/pkg/errors"
)

// Enqueue supersedes any queued job for the student and inserts a new one.
// The delete and the insert share a transaction so the student never holds
// more than one queued job, no matter how the intake and checker processes
// interleave. A running job is left alone and finishes or times out first.
func (s *SQLStore) Enqueue(ctx context.Context, identity int64) error {
	now := time.Now().UTC()
	err := s.db.Transaction(ctx, func(tx db.Transaction) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM submissions WHERE identity = ? AND status = ?`,
			identity, StatusQueued,
		); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO submissions(identity, submitted_at, status) VALUES(?, ?, ?)`,
			identity, now, StatusQueued,
		)
		return err
	})
	if err != nil {
		return appErr.Wrapf(err, appErr.EnqueueFailed, "enqueue submission failed")
	}
	return nil
}

// ClaimOldestQueued selects the oldest queued job and flips it to running in
// one transaction. The row count of the update is checked so a job can never
// be handed out twice, even against a concurrent enqueue rewriting the queue.
func (s *SQLStore) ClaimOldestQueued(ctx context.Context) (*Job, error) {
	var job Job
	err := s.db.Transaction(ctx, func(tx db.Transaction) error {
		row := tx.QueryRow(ctx, `
			SELECT job_id, identity, submitted_at FROM submissions
			WHERE status = ? ORDER BY submitted_at, job_id LIMIT 1`,
			StatusQueued,
		)
		if err := row.Scan(&job.ID, &job.Identity, &job.SubmittedAt); err != nil {
			if db.IsNoRows(err) {
				return ErrNoQueuedJob
			}
			return err
		}

		res, err := tx.Exec(ctx,
			`UPDATE submissions SET status = ? WHERE job_id = ? AND status = ?`,
			StatusRunning, job.ID, StatusQueued,
		)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return appErr.New(appErr.ClaimFailed).WithMessage("queued job vanished during claim")
		}
		job.Status = StatusRunning
		return nil
	})
	if err != nil {
		if err == ErrNoQueuedJob || appErr.Is(err, appErr.ClaimFailed) {
			return nil, err
		}
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "claim oldest queued failed")
	}
	return &job, nil
}

// Complete writes the score pair for one task and marks the student's running
// job done. Scores are only ever written together with the done transition.
func (s *SQLStore) Complete(ctx context.Context, identity int64, task Task, clean, attack float64) error {
	column, err := taskColumn(task)
	if err != nil {
		return err
	}

	query := `UPDATE submissions SET ` + column + `_clean = ?, ` + column + `_attack = ?, status = ?
		WHERE identity = ? AND status = ?`
	res, err := s.db.Exec(ctx, query, clean, attack, StatusDone, identity, StatusRunning)
	if err != nil {
		return appErr.Wrapf(err, appErr.DatabaseError, "complete job failed")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return appErr.Wrapf(err, appErr.DatabaseError, "complete job failed")
	}
	if affected == 0 {
		return appErr.New(appErr.CompleteConflict)
	}
	return nil
}

// Fail marks the student's running job as errored.
func (s *SQLStore) Fail(ctx context.Context, identity int64) error {
	res, err := s.db.Exec(ctx,
		`UPDATE submissions SET status = ? WHERE identity = ? AND status = ?`,
		StatusError, identity, StatusRunning,
	)
	if err != nil {
		return appErr.Wrapf(err, appErr.DatabaseError, "fail job failed")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return appErr.Wrapf(err, appErr.DatabaseError, "fail job failed")
	}
	if affected == 0 {
		return appErr.New(appErr.JobNotFound).WithMessage("no running job for student")
	}
	return nil
}

// UncheckedStatus reports whether the student currently has a queued or
// running job.
func (s *SQLStore) UncheckedStatus(ctx context.Context, identity int64) (Status, error) {
	row := s.db.QueryRow(ctx, `
		SELECT status FROM submissions
		WHERE identity = ? AND (status = ? OR status = ?)
		ORDER BY job_id DESC LIMIT 1`,
		identity, StatusQueued, StatusRunning,
	)
	var status Status
	if err := row.Scan(&status); err != nil {
		if db.IsNoRows(err) {
			return StatusNone, nil
		}
		return StatusNone, appErr.Wrapf(err, appErr.DatabaseError, "get unchecked status failed")
	}
	return status, nil
}

// BestOrLatest returns the student's top evaluated job for the task: the best
// one by attack score in the configured direction, or the most recent one.
func (s *SQLStore) BestOrLatest(ctx context.Context, identity int64, task Task, mode Mode) (*TaskScore, error) {
	column, err := taskColumn(task)
	if err != nil {
		return nil, err
	}

	var orderBy string
	switch mode {
	case ModeBest:
		orderBy = column + "_attack " + s.rankDirection()
	case ModeLatest:
		orderBy = "submitted_at DESC"
	default:
		return nil, appErr.Newf(appErr.InvalidParams, "unknown mode: %s", mode)
	}

	query := `SELECT submitted_at, ` + column + `_clean, ` + column + `_attack FROM submissions
		WHERE identity = ? AND ` + column + `_attack IS NOT NULL
		ORDER BY ` + orderBy + ` LIMIT 1`

	var score TaskScore
	if err := s.db.QueryRow(ctx, query, identity).Scan(&score.SubmittedAt, &score.Clean, &score.Attack); err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNoScoredJob
		}
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "get top solution failed")
	}
	return &score, nil
}
