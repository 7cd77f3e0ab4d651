package service_test

import (
	"context"
	"time"

	"mlgrader/internal/store"
	"mlgrader/internal/submit/repository"
)

// fakeStore is an in-memory Store for service tests. Only the behavior the
// submit services touch is modeled.
type fakeStore struct {
	students map[int64]*store.Student
	statuses map[int64]store.Status
	scores   map[int64]map[store.Task][]store.TaskScore
	enqueued []int64

	enqueueErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		students: make(map[int64]*store.Student),
		statuses: make(map[int64]store.Status),
		scores:   make(map[int64]map[store.Task][]store.TaskScore),
	}
}

func (f *fakeStore) addRegistered(identity int64, name string, number int64) {
	f.students[identity] = &store.Student{
		Identity:      identity,
		FullName:      name,
		StudentNumber: number,
		NumberSet:     true,
	}
}

func (f *fakeStore) addScore(identity int64, task store.Task, score store.TaskScore) {
	if f.scores[identity] == nil {
		f.scores[identity] = make(map[store.Task][]store.TaskScore)
	}
	f.scores[identity][task] = append(f.scores[identity][task], score)
}

func (f *fakeStore) UpsertStudentName(ctx context.Context, identity int64, name string) error {
	s := f.students[identity]
	if s == nil {
		s = &store.Student{Identity: identity}
		f.students[identity] = s
	}
	s.FullName = name
	return nil
}

func (f *fakeStore) UpsertStudentNumber(ctx context.Context, identity int64, number int64) error {
	s := f.students[identity]
	if s == nil {
		s = &store.Student{Identity: identity}
		f.students[identity] = s
	}
	s.StudentNumber = number
	s.NumberSet = true
	return nil
}

func (f *fakeStore) GetStudent(ctx context.Context, identity int64) (*store.Student, error) {
	s, ok := f.students[identity]
	if !ok {
		return nil, store.ErrStudentNotFound
	}
	copied := *s
	return &copied, nil
}

func (f *fakeStore) Enqueue(ctx context.Context, identity int64) error {
	if f.enqueueErr != nil {
		return f.enqueueErr
	}
	f.enqueued = append(f.enqueued, identity)
	f.statuses[identity] = store.StatusQueued
	return nil
}

func (f *fakeStore) ClaimOldestQueued(ctx context.Context) (*store.Job, error) {
	return nil, store.ErrNoQueuedJob
}

func (f *fakeStore) Complete(ctx context.Context, identity int64, task store.Task, clean, attack float64) error {
	f.statuses[identity] = store.StatusNone
	f.addScore(identity, task, store.TaskScore{SubmittedAt: time.Now(), Clean: clean, Attack: attack})
	return nil
}

func (f *fakeStore) Fail(ctx context.Context, identity int64) error {
	f.statuses[identity] = store.StatusNone
	return nil
}

func (f *fakeStore) UncheckedStatus(ctx context.Context, identity int64) (store.Status, error) {
	return f.statuses[identity], nil
}

func (f *fakeStore) BestOrLatest(ctx context.Context, identity int64, task store.Task, mode store.Mode) (*store.TaskScore, error) {
	scores := f.scores[identity][task]
	if len(scores) == 0 {
		return nil, store.ErrNoScoredJob
	}
	best := scores[0]
	for _, s := range scores[1:] {
		switch mode {
		case store.ModeBest:
			if s.Attack > best.Attack {
				best = s
			}
		case store.ModeLatest:
			if s.SubmittedAt.After(best.SubmittedAt) {
				best = s
			}
		}
	}
	return &best, nil
}

func (f *fakeStore) Leaderboard(ctx context.Context, task store.Task) ([]store.LeaderboardRow, error) {
	return nil, nil
}

// fakeSessions is an in-memory SessionRepository.
type fakeSessions struct {
	states map[int64]repository.DialogueState
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{states: make(map[int64]repository.DialogueState)}
}

func (f *fakeSessions) Get(ctx context.Context, identity int64) (repository.DialogueState, error) {
	state, ok := f.states[identity]
	if !ok {
		return "", repository.ErrSessionNotFound
	}
	return state, nil
}

func (f *fakeSessions) Set(ctx context.Context, identity int64, state repository.DialogueState) error {
	f.states[identity] = state
	return nil
}

func (f *fakeSessions) Delete(ctx context.Context, identity int64) error {
	delete(f.states, identity)
	return nil
}
