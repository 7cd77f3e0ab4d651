package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"mlgrader/internal/common/cache"
	"mlgrader/internal/submit/repository"
)

func newTestSessions(t *testing.T, ttl time.Duration) (*repository.RedisSessionRepository, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	redisCache, err := cache.NewRedisCacheWithClient(client)
	if err != nil {
		t.Fatalf("create cache: %v", err)
	}
	t.Cleanup(func() {
		_ = redisCache.Close()
	})
	return repository.NewSessionRepository(redisCache, ttl), mr
}

func TestSessionLifecycle(t *testing.T) {
	t.Parallel()
	sessions, _ := newTestSessions(t, time.Minute)
	ctx := context.Background()

	if _, err := sessions.Get(ctx, 10); !errors.Is(err, repository.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}

	if err := sessions.Set(ctx, 10, repository.StateAwaitingName); err != nil {
		t.Fatalf("set: %v", err)
	}
	state, err := sessions.Get(ctx, 10)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if state != repository.StateAwaitingName {
		t.Fatalf("expected awaiting_name, got %q", state)
	}

	if err := sessions.Set(ctx, 10, repository.StateAwaitingNumber); err != nil {
		t.Fatalf("advance: %v", err)
	}
	state, err = sessions.Get(ctx, 10)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if state != repository.StateAwaitingNumber {
		t.Fatalf("expected awaiting_number, got %q", state)
	}

	if err := sessions.Delete(ctx, 10); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := sessions.Get(ctx, 10); !errors.Is(err, repository.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after delete, got %v", err)
	}
}

func TestSessionExpires(t *testing.T) {
	t.Parallel()
	sessions, mr := newTestSessions(t, time.Minute)
	ctx := context.Background()

	if err := sessions.Set(ctx, 10, repository.StateAwaitingName); err != nil {
		t.Fatalf("set: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	if _, err := sessions.Get(ctx, 10); !errors.Is(err, repository.ErrSessionNotFound) {
		t.Fatalf("expected expiry to end the dialogue, got %v", err)
	}
}

func TestSessionGetSlidesExpiry(t *testing.T) {
	t.Parallel()
	sessions, mr := newTestSessions(t, time.Minute)
	ctx := context.Background()

	if err := sessions.Set(ctx, 10, repository.StateAwaitingName); err != nil {
		t.Fatalf("set: %v", err)
	}

	// Reading just before expiry restarts the window, so the dialogue
	// outlives the original TTL as long as messages keep coming.
	mr.FastForward(50 * time.Second)
	if _, err := sessions.Get(ctx, 10); err != nil {
		t.Fatalf("get: %v", err)
	}
	mr.FastForward(50 * time.Second)

	state, err := sessions.Get(ctx, 10)
	if err != nil {
		t.Fatalf("expected refreshed session to survive, got %v", err)
	}
	if state != repository.StateAwaitingName {
		t.Fatalf("expected awaiting_name, got %q", state)
	}
}

func TestSessionsAreIndependentPerStudent(t *testing.T) {
	t.Parallel()
	sessions, _ := newTestSessions(t, time.Minute)
	ctx := context.Background()

	if err := sessions.Set(ctx, 1, repository.StateAwaitingName); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := sessions.Set(ctx, 2, repository.StateAwaitingNumber); err != nil {
		t.Fatalf("set: %v", err)
	}

	state, err := sessions.Get(ctx, 1)
	if err != nil || state != repository.StateAwaitingName {
		t.Fatalf("expected awaiting_name for student 1, got %q (%v)", state, err)
	}
	state, err = sessions.Get(ctx, 2)
	if err != nil || state != repository.StateAwaitingNumber {
		t.Fatalf("expected awaiting_number for student 2, got %q (%v)", state, err)
	}
}
