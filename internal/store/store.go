package store

import (
	"context"

	"mlgrader/internal/common/db"
	appErr "mlgrader/pkg/errors"
)

// Store is the durable record of students, submissions and their lifecycle.
// It is the single source of truth shared by the intake process and the
// checker process; every operation is atomic with respect to concurrent
// callers of either process.
type Store interface {
	UpsertStudentName(ctx context.Context, identity int64, name string) error
	UpsertStudentNumber(ctx context.Context, identity int64, number int64) error
	GetStudent(ctx context.Context, identity int64) (*Student, error)

	// Enqueue deletes any existing queued job for the student and inserts a
	// fresh queued job in one transaction. A running job is never touched.
	Enqueue(ctx context.Context, identity int64) error

	// ClaimOldestQueued atomically selects the oldest queued job and
	// transitions it to running. Returns ErrNoQueuedJob when the queue is
	// empty.
	ClaimOldestQueued(ctx context.Context) (*Job, error)

	// Complete records the score pair for one task and transitions the
	// student's running job to done. Both writes happen in one statement;
	// a missing running job is an explicit conflict.
	Complete(ctx context.Context, identity int64, task Task, clean, attack float64) error

	// Fail transitions the student's running job to error.
	Fail(ctx context.Context, identity int64) error

	// UncheckedStatus returns StatusQueued or StatusRunning if the student
	// has an unchecked job, StatusNone otherwise.
	UncheckedStatus(ctx context.Context, identity int64) (Status, error)

	BestOrLatest(ctx context.Context, identity int64, task Task, mode Mode) (*TaskScore, error)
	Leaderboard(ctx context.Context, task Task) ([]LeaderboardRow, error)
}

// SQLStore implements Store on top of the shared SQLite database.
type SQLStore struct {
	db    db.Database
	order RankOrder
}

// NewStore creates the store and ensures the schema exists.
func NewStore(ctx context.Context, database db.Database, order RankOrder) (*SQLStore, error) {
	if order == "" {
		order = RankDescending
	}
	if order != RankDescending && order != RankAscending {
		return nil, appErr.Newf(appErr.InvalidParams, "unknown rank order: %s", order)
	}
	s := &SQLStore{db: database, order: order}
	if err := s.createTables(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) createTables(ctx context.Context) error {
	const studentsSchema = `
		CREATE TABLE IF NOT EXISTS students(
			identity INTEGER PRIMARY KEY,
			full_name TEXT,
			student_number INTEGER
		)`
	const submissionsSchema = `
		CREATE TABLE IF NOT EXISTS submissions(
			job_id INTEGER PRIMARY KEY AUTOINCREMENT,
			identity INTEGER NOT NULL REFERENCES students(identity),
			submitted_at DATETIME NOT NULL,
			status TEXT NOT NULL,
			badnets_clean REAL,
			badnets_attack REAL,
			lira_clean REAL,
			lira_attack REAL
		)`
	const claimIndex = `
		CREATE INDEX IF NOT EXISTS idx_submissions_status_time
		ON submissions(status, submitted_at)`

	for _, stmt := range []string{studentsSchema, submissionsSchema, claimIndex} {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return appErr.Wrapf(err, appErr.DatabaseError, "create tables failed")
		}
	}
	return nil
}

// taskColumn maps a task to its score column prefix. Tasks are a closed set
// because prefixes are interpolated into SQL.
func taskColumn(task Task) (string, error) {
	switch task {
	case TaskBadnets:
		return "badnets", nil
	case TaskLira:
		return "lira", nil
	default:
		return "", appErr.Newf(appErr.InvalidParams, "unknown task: %s", task)
	}
}

func (s *SQLStore) rankDirection() string {
	if s.order == RankAscending {
		return "ASC"
	}
	return "DESC"
}
