package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"mlgrader/internal/common/db"
	"mlgrader/internal/store"
	appErr "mlgrader/pkg/errors"
)

func newTestStore(t *testing.T, order store.RankOrder) *store.SQLStore {
	t.Helper()

	database, err := db.NewSQLite(filepath.Join(t.TempDir(), "grader.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	st, err := store.NewStore(context.Background(), database, order)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	return st
}

// claimAndComplete drives one job through the full lifecycle.
func claimAndComplete(t *testing.T, st *store.SQLStore, identity int64, task store.Task, clean, attack float64) {
	t.Helper()
	ctx := context.Background()

	if err := st.Enqueue(ctx, identity); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	job, err := st.ClaimOldestQueued(ctx)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if job.Identity != identity {
		t.Fatalf("expected claim for student %d, got %d", identity, job.Identity)
	}
	if err := st.Complete(ctx, identity, task, clean, attack); err != nil {
		t.Fatalf("complete: %v", err)
	}
}

func TestNewStoreRejectsUnknownOrder(t *testing.T) {
	t.Parallel()

	database, err := db.NewSQLite(filepath.Join(t.TempDir(), "grader.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	defer database.Close()

	if _, err := store.NewStore(context.Background(), database, "sideways"); err == nil {
		t.Fatal("expected error for unknown rank order")
	}
}

func TestEnqueueKeepsSingleQueuedJob(t *testing.T) {
	t.Parallel()
	st := newTestStore(t, store.RankDescending)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := st.Enqueue(ctx, 100); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	if _, err := st.ClaimOldestQueued(ctx); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := st.ClaimOldestQueued(ctx); !errors.Is(err, store.ErrNoQueuedJob) {
		t.Fatalf("expected ErrNoQueuedJob after single claim, got %v", err)
	}
}

func TestEnqueueDoesNotDisturbRunningJob(t *testing.T) {
	t.Parallel()
	st := newTestStore(t, store.RankDescending)
	ctx := context.Background()

	if err := st.Enqueue(ctx, 100); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	claimed, err := st.ClaimOldestQueued(ctx)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}

	// A resubmission mid-evaluation queues a second job without touching
	// the running one.
	if err := st.Enqueue(ctx, 100); err != nil {
		t.Fatalf("enqueue while running: %v", err)
	}

	status, err := st.UncheckedStatus(ctx, 100)
	if err != nil {
		t.Fatalf("unchecked status: %v", err)
	}
	if status != store.StatusQueued {
		t.Fatalf("expected queued after resubmission, got %q", status)
	}

	if err := st.Complete(ctx, 100, store.TaskBadnets, 0.9, 0.8); err != nil {
		t.Fatalf("complete running job: %v", err)
	}

	next, err := st.ClaimOldestQueued(ctx)
	if err != nil {
		t.Fatalf("claim resubmission: %v", err)
	}
	if next.ID == claimed.ID {
		t.Fatalf("expected a fresh job, got the finished one %d", next.ID)
	}
}

func TestClaimReturnsOldestFirst(t *testing.T) {
	t.Parallel()
	st := newTestStore(t, store.RankDescending)
	ctx := context.Background()

	for _, identity := range []int64{1, 2, 3} {
		if err := st.Enqueue(ctx, identity); err != nil {
			t.Fatalf("enqueue %d: %v", identity, err)
		}
	}

	for _, want := range []int64{1, 2, 3} {
		job, err := st.ClaimOldestQueued(ctx)
		if err != nil {
			t.Fatalf("claim: %v", err)
		}
		if job.Identity != want {
			t.Fatalf("expected student %d, got %d", want, job.Identity)
		}
		if job.Status != store.StatusRunning {
			t.Fatalf("expected running after claim, got %q", job.Status)
		}
		if err := st.Fail(ctx, job.Identity); err != nil {
			t.Fatalf("fail: %v", err)
		}
	}
}

func TestStatusRoundTrip(t *testing.T) {
	t.Parallel()
	st := newTestStore(t, store.RankDescending)
	ctx := context.Background()

	assertStatus := func(want store.Status) {
		t.Helper()
		got, err := st.UncheckedStatus(ctx, 7)
		if err != nil {
			t.Fatalf("unchecked status: %v", err)
		}
		if got != want {
			t.Fatalf("expected status %q, got %q", want, got)
		}
	}

	assertStatus(store.StatusNone)

	if err := st.Enqueue(ctx, 7); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	assertStatus(store.StatusQueued)

	if _, err := st.ClaimOldestQueued(ctx); err != nil {
		t.Fatalf("claim: %v", err)
	}
	assertStatus(store.StatusRunning)

	if err := st.Complete(ctx, 7, store.TaskBadnets, 0.91, 0.1); err != nil {
		t.Fatalf("complete: %v", err)
	}
	assertStatus(store.StatusNone)
}

func TestCompleteRequiresRunningJob(t *testing.T) {
	t.Parallel()
	st := newTestStore(t, store.RankDescending)
	ctx := context.Background()

	err := st.Complete(ctx, 5, store.TaskBadnets, 0.9, 0.8)
	if !appErr.Is(err, appErr.CompleteConflict) {
		t.Fatalf("expected CompleteConflict without a running job, got %v", err)
	}

	if err := st.Enqueue(ctx, 5); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	err = st.Complete(ctx, 5, store.TaskBadnets, 0.9, 0.8)
	if !appErr.Is(err, appErr.CompleteConflict) {
		t.Fatalf("expected CompleteConflict for a queued job, got %v", err)
	}
}

func TestCompleteRejectsUnknownTask(t *testing.T) {
	t.Parallel()
	st := newTestStore(t, store.RankDescending)

	err := st.Complete(context.Background(), 5, "trojan", 0.9, 0.8)
	if !appErr.Is(err, appErr.InvalidParams) {
		t.Fatalf("expected InvalidParams for unknown task, got %v", err)
	}
}

func TestFailWithoutRunningJob(t *testing.T) {
	t.Parallel()
	st := newTestStore(t, store.RankDescending)

	err := st.Fail(context.Background(), 5)
	if !appErr.Is(err, appErr.JobNotFound) {
		t.Fatalf("expected JobNotFound, got %v", err)
	}
}

func TestConcurrentEnqueueAndClaim(t *testing.T) {
	t.Parallel()
	st := newTestStore(t, store.RankDescending)
	ctx := context.Background()

	// Intake and checker hammer the same student from separate goroutines.
	// Claims may legitimately find an empty queue or lose a queued row to a
	// concurrent re-enqueue; anything else means the writes did not
	// serialize.
	const iterations = 500
	errCh := make(chan error, 2)
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			if err := st.Enqueue(ctx, 5); err != nil {
				errCh <- err
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			_, err := st.ClaimOldestQueued(ctx)
			if err == nil || errors.Is(err, store.ErrNoQueuedJob) || appErr.Is(err, appErr.ClaimFailed) {
				continue
			}
			errCh <- err
			return
		}
	}()

	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatalf("concurrent enqueue and claim must serialize, got %v", err)
	}
}

func TestBestOrLatest(t *testing.T) {
	t.Parallel()
	st := newTestStore(t, store.RankDescending)
	ctx := context.Background()

	claimAndComplete(t, st, 9, store.TaskBadnets, 0.80, 0.70)
	claimAndComplete(t, st, 9, store.TaskBadnets, 0.90, 0.50)

	best, err := st.BestOrLatest(ctx, 9, store.TaskBadnets, store.ModeBest)
	if err != nil {
		t.Fatalf("best: %v", err)
	}
	if best.Attack != 0.70 {
		t.Fatalf("expected best attack 0.70, got %v", best.Attack)
	}

	latest, err := st.BestOrLatest(ctx, 9, store.TaskBadnets, store.ModeLatest)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.Attack != 0.50 || latest.Clean != 0.90 {
		t.Fatalf("expected latest scores (0.90, 0.50), got (%v, %v)", latest.Clean, latest.Attack)
	}

	if _, err := st.BestOrLatest(ctx, 9, store.TaskLira, store.ModeBest); !errors.Is(err, store.ErrNoScoredJob) {
		t.Fatalf("expected ErrNoScoredJob for unevaluated task, got %v", err)
	}
}

func TestBestOrLatestAscendingOrder(t *testing.T) {
	t.Parallel()
	st := newTestStore(t, store.RankAscending)
	ctx := context.Background()

	claimAndComplete(t, st, 9, store.TaskBadnets, 0.80, 0.70)
	claimAndComplete(t, st, 9, store.TaskBadnets, 0.90, 0.50)

	best, err := st.BestOrLatest(ctx, 9, store.TaskBadnets, store.ModeBest)
	if err != nil {
		t.Fatalf("best: %v", err)
	}
	if best.Attack != 0.50 {
		t.Fatalf("expected best attack 0.50 under ascending order, got %v", best.Attack)
	}
}

func TestLeaderboard(t *testing.T) {
	t.Parallel()
	st := newTestStore(t, store.RankDescending)
	ctx := context.Background()

	if err := st.UpsertStudentName(ctx, 1, "Ivanov Ivan"); err != nil {
		t.Fatalf("upsert name: %v", err)
	}
	if err := st.UpsertStudentNumber(ctx, 1, 1001); err != nil {
		t.Fatalf("upsert number: %v", err)
	}
	if err := st.UpsertStudentName(ctx, 2, "Petrov Petr"); err != nil {
		t.Fatalf("upsert name: %v", err)
	}

	claimAndComplete(t, st, 1, store.TaskBadnets, 0.85, 0.60)
	claimAndComplete(t, st, 1, store.TaskBadnets, 0.80, 0.90)
	claimAndComplete(t, st, 2, store.TaskBadnets, 0.95, 0.75)

	rows, err := st.Leaderboard(ctx, store.TaskBadnets)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	if rows[0].Identity != 1 || rows[0].Attack != 0.90 {
		t.Fatalf("expected student 1 first with attack 0.90, got student %d attack %v", rows[0].Identity, rows[0].Attack)
	}
	if rows[0].Count != 2 {
		t.Fatalf("expected 2 solutions for student 1, got %d", rows[0].Count)
	}
	if rows[0].FullName != "Ivanov Ivan" || rows[0].StudentNumber != 1001 {
		t.Fatalf("unexpected student fields: %+v", rows[0])
	}
	if rows[1].Identity != 2 || rows[1].Count != 1 {
		t.Fatalf("expected student 2 second with 1 solution, got %+v", rows[1])
	}

	empty, err := st.Leaderboard(ctx, store.TaskLira)
	if err != nil {
		t.Fatalf("leaderboard for unevaluated task: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty leaderboard, got %d rows", len(empty))
	}
}

func TestGetStudentLifecycle(t *testing.T) {
	t.Parallel()
	st := newTestStore(t, store.RankDescending)
	ctx := context.Background()

	if _, err := st.GetStudent(ctx, 42); !errors.Is(err, store.ErrStudentNotFound) {
		t.Fatalf("expected ErrStudentNotFound, got %v", err)
	}

	if err := st.UpsertStudentName(ctx, 42, "Sidorova Anna"); err != nil {
		t.Fatalf("upsert name: %v", err)
	}
	student, err := st.GetStudent(ctx, 42)
	if err != nil {
		t.Fatalf("get student: %v", err)
	}
	if student.Registered() {
		t.Fatal("expected incomplete registration before the number is set")
	}

	if err := st.UpsertStudentNumber(ctx, 42, 2042); err != nil {
		t.Fatalf("upsert number: %v", err)
	}
	student, err = st.GetStudent(ctx, 42)
	if err != nil {
		t.Fatalf("get student: %v", err)
	}
	if !student.Registered() || student.FullName != "Sidorova Anna" || student.StudentNumber != 2042 {
		t.Fatalf("unexpected student after registration: %+v", student)
	}
}
