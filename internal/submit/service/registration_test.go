package service_test

import (
	"context"
	"strings"
	"testing"

	"mlgrader/internal/submit/repository"
	"mlgrader/internal/submit/service"
)

func TestRegistrationFullDialogue(t *testing.T) {
	t.Parallel()
	st := newFakeStore()
	sessions := newFakeSessions()
	svc := service.NewRegistrationService(st, sessions, "")
	ctx := context.Background()

	reply, err := svc.HandleMessage(ctx, 10, "/start")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !strings.Contains(reply, "full name") {
		t.Fatalf("expected name prompt, got %q", reply)
	}

	reply, err = svc.HandleMessage(ctx, 10, "ivanov ivan")
	if err != nil {
		t.Fatalf("name: %v", err)
	}
	if !strings.Contains(reply, "student card number") {
		t.Fatalf("expected number prompt, got %q", reply)
	}
	if st.students[10].FullName != "Ivanov Ivan" {
		t.Fatalf("expected title-cased name, got %q", st.students[10].FullName)
	}

	reply, err = svc.HandleMessage(ctx, 10, "12345")
	if err != nil {
		t.Fatalf("number: %v", err)
	}
	if !strings.Contains(reply, "Registration complete") {
		t.Fatalf("expected completion message, got %q", reply)
	}
	if !st.students[10].Registered() || st.students[10].StudentNumber != 12345 {
		t.Fatalf("unexpected student after dialogue: %+v", st.students[10])
	}
	if _, err := sessions.Get(ctx, 10); err != repository.ErrSessionNotFound {
		t.Fatalf("expected session removed after registration, got %v", err)
	}
}

func TestRegistrationNameValidation(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "one-word", input: "Ivanov", want: "two or three words"},
		{name: "four-words", input: "a b c d", want: "two or three words"},
		{name: "digits", input: "Ivanov 1van", want: "letters only"},
		{name: "punctuation", input: "Ivanov Iv@n", want: "letters only"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			st := newFakeStore()
			sessions := newFakeSessions()
			svc := service.NewRegistrationService(st, sessions, "")
			ctx := context.Background()

			if _, err := svc.HandleMessage(ctx, 10, "/start"); err != nil {
				t.Fatalf("start: %v", err)
			}
			reply, err := svc.HandleMessage(ctx, 10, tt.input)
			if err != nil {
				t.Fatalf("name: %v", err)
			}
			if !strings.Contains(reply, tt.want) {
				t.Fatalf("expected %q in reply, got %q", tt.want, reply)
			}
			if _, ok := st.students[10]; ok {
				t.Fatal("invalid name must not be stored")
			}

			// The dialogue stays on the same step.
			state, err := sessions.Get(ctx, 10)
			if err != nil || state != repository.StateAwaitingName {
				t.Fatalf("expected awaiting_name, got %q (%v)", state, err)
			}
		})
	}
}

func TestRegistrationNumberValidation(t *testing.T) {
	t.Parallel()
	st := newFakeStore()
	sessions := newFakeSessions()
	svc := service.NewRegistrationService(st, sessions, "")
	ctx := context.Background()

	if _, err := svc.HandleMessage(ctx, 10, "/start"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := svc.HandleMessage(ctx, 10, "Ivanov Ivan"); err != nil {
		t.Fatalf("name: %v", err)
	}

	for _, input := range []string{"abc", "12.5", "-3", ""} {
		reply, err := svc.HandleMessage(ctx, 10, input)
		if err != nil {
			t.Fatalf("number %q: %v", input, err)
		}
		if !strings.Contains(reply, "integer") {
			t.Fatalf("expected integer complaint for %q, got %q", input, reply)
		}
	}
	if st.students[10].Registered() {
		t.Fatal("registration must not complete on invalid numbers")
	}
}

func TestRegistrationHintWithoutSession(t *testing.T) {
	t.Parallel()
	svc := service.NewRegistrationService(newFakeStore(), newFakeSessions(), "")

	reply, err := svc.HandleMessage(context.Background(), 10, "hello there")
	if err != nil {
		t.Fatalf("message: %v", err)
	}
	if !strings.Contains(reply, "/start") {
		t.Fatalf("expected a /start hint, got %q", reply)
	}
}
