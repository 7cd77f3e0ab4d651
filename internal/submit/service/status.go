package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mlgrader/internal/store"
	appErr "mlgrader/pkg/errors"
)

const timestampLayout = "02.01 15:04"

var taskTitles = map[store.Task]string{
	store.TaskBadnets: "First part (badnets)",
	store.TaskLira:    "Second part (lira)",
}

// StatusService renders the per-student status report: the queue section
// first, then a latest/best pair for every task.
type StatusService struct {
	store store.Store
}

func NewStatusService(st store.Store) *StatusService {
	return &StatusService{store: st}
}

// Report builds the status text for one student.
func (s *StatusService) Report(ctx context.Context, identity int64) (string, error) {
	student, err := s.store.GetStudent(ctx, identity)
	if err != nil && !errors.Is(err, store.ErrStudentNotFound) {
		return "", err
	}
	if errors.Is(err, store.ErrStudentNotFound) || !student.Registered() {
		return "", appErr.New(appErr.NotRegistered).WithMessage(msgNotRegistered)
	}

	var b strings.Builder
	b.WriteString("Queue status\n")
	queueLine, err := s.queueLine(ctx, identity)
	if err != nil {
		return "", err
	}
	b.WriteString(queueLine)

	for _, task := range store.Tasks {
		b.WriteString("\n\n")
		b.WriteString(taskTitles[task])
		b.WriteString("\n")
		latest, err := s.scoreLine(ctx, identity, task, store.ModeLatest)
		if err != nil {
			return "", err
		}
		best, err := s.scoreLine(ctx, identity, task, store.ModeBest)
		if err != nil {
			return "", err
		}
		b.WriteString("Latest solution: " + latest + "\n")
		b.WriteString("Best solution: " + best)
	}
	return b.String(), nil
}

func (s *StatusService) queueLine(ctx context.Context, identity int64) (string, error) {
	status, err := s.store.UncheckedStatus(ctx, identity)
	if err != nil {
		return "", err
	}
	switch status {
	case store.StatusQueued:
		return "Your uploaded solution is waiting in the check queue.", nil
	case store.StatusRunning:
		return "Your uploaded solution is being checked right now!", nil
	default:
		return "You have no unchecked solutions.", nil
	}
}

func (s *StatusService) scoreLine(ctx context.Context, identity int64, task store.Task, mode store.Mode) (string, error) {
	score, err := s.store.BestOrLatest(ctx, identity, task, mode)
	if errors.Is(err, store.ErrNoScoredJob) {
		return "absent", nil
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%.4f with attack, %.4f without attack, submitted %s",
		score.Attack, score.Clean, score.SubmittedAt.Format(timestampLayout)), nil
}
