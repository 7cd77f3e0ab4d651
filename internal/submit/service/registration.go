package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"unicode"

	"mlgrader/internal/store"
	"mlgrader/internal/submit/repository"
	"mlgrader/pkg/utils/logger"

	"go.uber.org/zap"
)

const (
	msgNamePrompt     = "Hi! To register, send your full name: two or three words, last name first."
	msgNameWordCount  = "The full name must consist of two or three words!"
	msgNameNotLetters = "The full name must contain letters only!"
	msgNumberPrompt   = "Got it. Now send your student card number."
	msgNumberInvalid  = "The student card number must be an integer!"
	msgRegistered     = "Registration complete! You can now upload a zip archive with your solution."
	msgHint           = "Send /start to register, /status to see your results, or upload a zip archive with your solution."
)

// RegistrationService drives the registration dialogue. The dialogue is a
// two-step state machine: /start asks for the full name, a valid name asks
// for the student card number, a valid number completes registration. Any
// invalid input repeats the current prompt without advancing.
type RegistrationService struct {
	store          store.Store
	sessions       repository.SessionRepository
	leaderboardURL string
}

// NewRegistrationService creates the dialogue service. leaderboardURL, when
// set, is appended to the completion message so students know where results
// are published.
func NewRegistrationService(st store.Store, sessions repository.SessionRepository, leaderboardURL string) *RegistrationService {
	return &RegistrationService{store: st, sessions: sessions, leaderboardURL: leaderboardURL}
}

// HandleMessage interprets one incoming text message and returns the reply.
func (s *RegistrationService) HandleMessage(ctx context.Context, identity int64, text string) (string, error) {
	text = strings.TrimSpace(text)

	if text == "/start" {
		if err := s.sessions.Set(ctx, identity, repository.StateAwaitingName); err != nil {
			return "", err
		}
		return msgNamePrompt, nil
	}

	state, err := s.sessions.Get(ctx, identity)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return msgHint, nil
	}
	if err != nil {
		return "", err
	}

	switch state {
	case repository.StateAwaitingName:
		return s.handleName(ctx, identity, text)
	case repository.StateAwaitingNumber:
		return s.handleNumber(ctx, identity, text)
	default:
		return msgHint, nil
	}
}

func (s *RegistrationService) handleName(ctx context.Context, identity int64, text string) (string, error) {
	fullName, ok := normalizeFullName(text)
	if !ok {
		words := strings.Fields(text)
		if len(words) < 2 || len(words) > 3 {
			return msgNameWordCount, nil
		}
		return msgNameNotLetters, nil
	}
	if err := s.store.UpsertStudentName(ctx, identity, fullName); err != nil {
		return "", err
	}
	if err := s.sessions.Set(ctx, identity, repository.StateAwaitingNumber); err != nil {
		return "", err
	}
	logger.Info(ctx, "student name recorded", zap.Int64("identity", identity))
	return msgNumberPrompt, nil
}

func (s *RegistrationService) handleNumber(ctx context.Context, identity int64, text string) (string, error) {
	number, err := strconv.ParseInt(text, 10, 64)
	if err != nil || number <= 0 {
		return msgNumberInvalid, nil
	}
	if err := s.store.UpsertStudentNumber(ctx, identity, number); err != nil {
		return "", err
	}
	if err := s.sessions.Delete(ctx, identity); err != nil {
		return "", err
	}
	logger.Info(ctx, "student registered", zap.Int64("identity", identity), zap.Int64("student_number", number))
	reply := msgRegistered
	if s.leaderboardURL != "" {
		reply += " Results are published at " + s.leaderboardURL
	}
	return reply, nil
}

// normalizeFullName validates and canonicalizes a full name: two or three
// words, letters only, each word title-cased.
func normalizeFullName(text string) (string, bool) {
	words := strings.Fields(text)
	if len(words) < 2 || len(words) > 3 {
		return "", false
	}
	normalized := make([]string, 0, len(words))
	for _, word := range words {
		for _, r := range word {
			if !unicode.IsLetter(r) {
				return "", false
			}
		}
		normalized = append(normalized, titleWord(word))
	}
	return strings.Join(normalized, " "), true
}

func titleWord(word string) string {
	runes := []rune(strings.ToLower(word))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
