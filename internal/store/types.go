package store

import (
	"errors"
	"time"
)

// Status is the lifecycle status of a submission job.
type Status string

const (
	// StatusNone means the student has no unchecked job.
	StatusNone    Status = ""
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Task identifies one independently gradable assignment part.
type Task string

const (
	TaskBadnets Task = "badnets"
	TaskLira    Task = "lira"
)

// Tasks lists all gradable tasks in presentation order.
var Tasks = []Task{TaskBadnets, TaskLira}

// Mode selects which scored job BestOrLatest returns.
type Mode string

const (
	ModeBest   Mode = "best"
	ModeLatest Mode = "latest"
)

// RankOrder is the ranking direction applied to attack scores. The scoring
// convention (whether a higher attack score marks a better solution) is a
// course policy, so the direction is injected from configuration.
type RankOrder string

const (
	RankDescending RankOrder = "desc"
	RankAscending  RankOrder = "asc"
)

// Student is one registered (or partially registered) course participant.
type Student struct {
	Identity      int64
	FullName      string
	StudentNumber int64
	NumberSet     bool
}

// Registered reports whether the registration dialogue has completed.
func (s *Student) Registered() bool {
	return s.FullName != "" && s.NumberSet
}

// Job is one queued evaluation attempt.
type Job struct {
	ID          int64
	Identity    int64
	SubmittedAt time.Time
	Status      Status
}

// TaskScore is the recorded score pair of one evaluated task.
type TaskScore struct {
	SubmittedAt time.Time
	Clean       float64
	Attack      float64
}

// LeaderboardRow is one derived ranking entry. Never persisted.
type LeaderboardRow struct {
	Identity      int64
	FullName      string
	StudentNumber int64
	Attack        float64
	Clean         float64
	SubmittedAt   time.Time
	Count         int64
}

var (
	// ErrStudentNotFound is returned when no student row exists for an identity.
	ErrStudentNotFound = errors.New("student not found")

	// ErrNoQueuedJob is returned by ClaimOldestQueued when the queue is empty.
	ErrNoQueuedJob = errors.New("no queued job")

	// ErrNoScoredJob is returned by BestOrLatest when the student has no
	// evaluated job for the task.
	ErrNoScoredJob = errors.New("no scored job for task")
)
