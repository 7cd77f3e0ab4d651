package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mlgrader/internal/common/cache"
	appErr "mlgrader/pkg/errors"
)

// DialogueState is the position of a student inside the registration dialogue.
type DialogueState string

const (
	StateAwaitingName   DialogueState = "awaiting_name"
	StateAwaitingNumber DialogueState = "awaiting_number"
)

const sessionKeyPrefix = "reg:session:"

const defaultSessionTTL = 30 * time.Minute

// ErrSessionNotFound is returned when the student has no active dialogue.
var ErrSessionNotFound = errors.New("registration session not found")

// SessionRepository tracks per-student registration dialogue state. Each
// incoming message is interpreted against the stored state, so the dialogue
// survives restarts of the submit process.
type SessionRepository interface {
	Get(ctx context.Context, identity int64) (DialogueState, error)
	Set(ctx context.Context, identity int64, state DialogueState) error
	Delete(ctx context.Context, identity int64) error
}

// RedisSessionRepository implements SessionRepository on the shared cache.
type RedisSessionRepository struct {
	cache cache.Cache
	ttl   time.Duration
}

// NewSessionRepository creates a session repository. A non-positive ttl falls
// back to the default; an expired session simply requires a fresh /start.
func NewSessionRepository(cacheClient cache.Cache, ttl time.Duration) *RedisSessionRepository {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &RedisSessionRepository{cache: cacheClient, ttl: ttl}
}

func sessionKey(identity int64) string {
	return fmt.Sprintf("%s%d", sessionKeyPrefix, identity)
}

// Get returns the student's dialogue state. Every read slides the expiry
// forward so a slow typist is not cut off mid-dialogue.
func (r *RedisSessionRepository) Get(ctx context.Context, identity int64) (DialogueState, error) {
	value, err := r.cache.Get(ctx, sessionKey(identity))
	if err != nil {
		return "", appErr.Wrapf(err, appErr.CacheError, "get registration session failed")
	}
	if value == "" {
		return "", ErrSessionNotFound
	}
	state := DialogueState(value)
	if state != StateAwaitingName && state != StateAwaitingNumber {
		// Unknown payload under our key; treat as no session.
		return "", ErrSessionNotFound
	}
	if err := r.cache.Expire(ctx, sessionKey(identity), r.ttl); err != nil {
		return "", appErr.Wrapf(err, appErr.CacheError, "refresh registration session failed")
	}
	return state, nil
}

// Set stores the student's dialogue state, refreshing the TTL.
func (r *RedisSessionRepository) Set(ctx context.Context, identity int64, state DialogueState) error {
	if err := r.cache.Set(ctx, sessionKey(identity), string(state), r.ttl); err != nil {
		return appErr.Wrapf(err, appErr.SessionStoreFailed, "set registration session failed")
	}
	return nil
}

// Delete ends the student's dialogue.
func (r *RedisSessionRepository) Delete(ctx context.Context, identity int64) error {
	if err := r.cache.Del(ctx, sessionKey(identity)); err != nil {
		return appErr.Wrapf(err, appErr.CacheError, "delete registration session failed")
	}
	return nil
}
