package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"mlgrader/internal/store"
	"mlgrader/internal/submit/service"
	appErr "mlgrader/pkg/errors"
)

func TestStatusRequiresRegistration(t *testing.T) {
	t.Parallel()
	svc := service.NewStatusService(newFakeStore())

	_, err := svc.Report(context.Background(), 10)
	if !appErr.Is(err, appErr.NotRegistered) {
		t.Fatalf("expected NotRegistered, got %v", err)
	}
}

func TestStatusReportWithoutSolutions(t *testing.T) {
	t.Parallel()
	st := newFakeStore()
	st.addRegistered(10, "Ivanov Ivan", 1001)
	svc := service.NewStatusService(st)

	report, err := svc.Report(context.Background(), 10)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if !strings.Contains(report, "no unchecked solutions") {
		t.Fatalf("expected empty queue line, got %q", report)
	}
	if strings.Count(report, "Latest solution: absent") != 2 {
		t.Fatalf("expected absent latest for both tasks, got %q", report)
	}
	if strings.Count(report, "Best solution: absent") != 2 {
		t.Fatalf("expected absent best for both tasks, got %q", report)
	}
}

func TestStatusReportQueueStates(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		status store.Status
		want   string
	}{
		{name: "queued", status: store.StatusQueued, want: "waiting in the check queue"},
		{name: "running", status: store.StatusRunning, want: "being checked right now"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			st := newFakeStore()
			st.addRegistered(10, "Ivanov Ivan", 1001)
			st.statuses[10] = tt.status
			svc := service.NewStatusService(st)

			report, err := svc.Report(context.Background(), 10)
			if err != nil {
				t.Fatalf("report: %v", err)
			}
			if !strings.Contains(report, tt.want) {
				t.Fatalf("expected %q in report, got %q", tt.want, report)
			}
		})
	}
}

func TestStatusReportScores(t *testing.T) {
	t.Parallel()
	st := newFakeStore()
	st.addRegistered(10, "Ivanov Ivan", 1001)

	early := time.Date(2026, 3, 2, 15, 4, 0, 0, time.UTC)
	late := early.Add(48 * time.Hour)
	st.addScore(10, store.TaskBadnets, store.TaskScore{SubmittedAt: early, Clean: 0.91, Attack: 0.88})
	st.addScore(10, store.TaskBadnets, store.TaskScore{SubmittedAt: late, Clean: 0.85, Attack: 0.42})

	svc := service.NewStatusService(st)
	report, err := svc.Report(context.Background(), 10)
	if err != nil {
		t.Fatalf("report: %v", err)
	}

	if !strings.Contains(report, "Latest solution: 0.4200 with attack, 0.8500 without attack, submitted 04.03 15:04") {
		t.Fatalf("expected latest line with late scores, got %q", report)
	}
	if !strings.Contains(report, "Best solution: 0.8800 with attack") {
		t.Fatalf("expected best line with attack 0.8800, got %q", report)
	}
	if !strings.Contains(report, "Latest solution: absent") {
		t.Fatalf("expected absent lira latest, got %q", report)
	}
}
