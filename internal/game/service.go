// Package game owns the session state machine: waiting -> in_progress ->
// completed, answer validation, and the reconciliation between the in-memory
// cache and the backing store.
package game

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/victornm/pairup/internal/domain"
	"github.com/victornm/pairup/internal/errors"
	"github.com/victornm/pairup/internal/event"
	"github.com/victornm/pairup/internal/question"
	"github.com/victornm/pairup/internal/telemetry"
)

const (
	defaultRoundLength = 10
	scoreMultiplier    = 10
	codeSpace          = 1000 // session codes are 000..999
)

// Recorder records one completed session on the leaderboard. Recording the
// same player pair twice is the recorder's problem, not the caller's.
type Recorder interface {
	Record(ctx context.Context, e domain.LeaderboardEntry) error
}

type Config struct {
	Store       Store
	Cache       Cache
	Questions   question.Source
	Leaderboard Recorder
	EventBus    *event.Bus
	RoundLength int
}

type Service struct {
	store Store
	cache Cache
	qs    question.Source
	lb    Recorder
	eb    *event.Bus
	round int
	locks *keyedMutex
}

func NewService(c Config) *Service {
	if c.RoundLength <= 0 {
		c.RoundLength = defaultRoundLength
	}

	return &Service{
		store: c.Store,
		cache: c.Cache,
		qs:    c.Questions,
		lb:    c.Leaderboard,
		eb:    c.EventBus,
		round: c.RoundLength,
		locks: newKeyedMutex(),
	}
}

type CreateSessionRequest struct {
	Name string
}

// CreateSession allocates a fresh code, asks the question source for a list
// personalized to the creator, and stores a new waiting session. Any
// generation failure falls back to the default list; the caller never sees a
// question-source error.
func (s *Service) CreateSession(ctx context.Context, req CreateSessionRequest) (*domain.Session, error) {
	if req.Name == "" {
		return nil, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("name is required"))
	}

	code, err := s.generateCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate session code: %w", err)
	}

	ss := &domain.Session{
		Code:      code,
		Player1:   domain.Player{Name: req.Name},
		Status:    domain.StatusWaiting,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.store.Create(ctx, ss); err != nil {
		return nil, err
	}

	qs, err := s.qs.Generate(ctx, question.GenerateRequest{
		Player1: req.Name,
		Count:   s.round,
	})
	if err != nil || len(qs) == 0 {
		if err != nil {
			slog.WarnContext(ctx, "game: question generation failed, using fallback", "code", code, "error", err)
		}
		telemetry.QuestionFallbacks.Inc()
		qs = question.Fallback(s.round)
	}
	ss.Questions = qs

	s.cache.Put(code, ss)
	telemetry.SessionsCreated.Inc()

	return ss.Clone(), nil
}

// generateCode draws 3-digit codes until one is unknown to both cache and
// store.
func (s *Service) generateCode(ctx context.Context) (string, error) {
	for {
		n, err := rand.Int(rand.Reader, big.NewInt(codeSpace))
		if err != nil {
			return "", err
		}
		code := fmt.Sprintf("%03d", n)

		if _, ok := s.cache.Get(code); ok {
			continue
		}

		_, err = s.store.Get(ctx, code)
		if errors.Is(err, errors.CodeNotFound) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
}

type JoinSessionRequest struct {
	SessionCode string
	Name        string
}

// JoinSession attaches the second player and moves the session to
// in_progress. When the cached question list is missing, wrong-length, or
// still the generic fallback, it is re-personalized for both names; the
// session always leaves here with exactly one round of questions.
func (s *Service) JoinSession(ctx context.Context, req JoinSessionRequest) (*domain.Session, error) {
	if req.Name == "" {
		return nil, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("name is required"))
	}

	unlock := s.locks.lock(req.SessionCode)
	defer unlock()

	ss, err := s.load(ctx, req.SessionCode)
	if err != nil {
		return nil, err
	}

	if ss.Player2.Name != "" {
		return nil, errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("session is full: code=%s", req.SessionCode))
	}

	ss.Player2.Name = req.Name
	ss.Status = domain.StatusInProgress

	if err := s.store.Update(ctx, ss); err != nil {
		return nil, err
	}

	if len(ss.Questions) != s.round || question.IsFallback(ss.Questions) {
		ss.Questions = s.resolveQuestions(ctx, ss)
	}

	s.cache.Put(ss.Code, ss)

	return ss.Clone(), nil
}

type SubmitAnswerRequest struct {
	SessionCode  string
	PlayerNumber int
	Answer       int
}

type SubmitAnswerResponse struct {
	Session *domain.Session
	// AlreadyAnswered marks the no-op path: the player's sequence was
	// already full and nothing was appended.
	AlreadyAnswered bool
}

// SubmitAnswer appends one choice to the addressed player's sequence. When
// both sequences reach the round length it computes the shared score,
// completes the session exactly once, and records the leaderboard entry.
func (s *Service) SubmitAnswer(ctx context.Context, req SubmitAnswerRequest) (*SubmitAnswerResponse, error) {
	if req.PlayerNumber != 1 && req.PlayerNumber != 2 {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("invalid player number: %d", req.PlayerNumber))
	}
	if req.Answer != 1 && req.Answer != 2 {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("invalid answer: %d", req.Answer))
	}

	unlock := s.locks.lock(req.SessionCode)
	defer unlock()

	ss, err := s.load(ctx, req.SessionCode)
	if err != nil {
		return nil, err
	}

	if len(ss.Questions) != s.round {
		ss.Questions = s.resolveQuestions(ctx, ss)
		s.cache.Put(ss.Code, ss)
	}
	total := len(ss.Questions)

	p := ss.PlayerByNumber(req.PlayerNumber)
	if len(p.Answers) >= total {
		return &SubmitAnswerResponse{Session: ss.Clone(), AlreadyAnswered: true}, nil
	}

	p.Answers = append(p.Answers, req.Answer)
	if n := len(p.Answers); n > ss.CurrentQuestion {
		ss.CurrentQuestion = n
	}

	completed := len(ss.Player1.Answers) == total &&
		len(ss.Player2.Answers) == total &&
		ss.Status != domain.StatusCompleted

	var matches int
	if completed {
		for i := 0; i < total; i++ {
			if ss.Player1.Answers[i] == ss.Player2.Answers[i] {
				matches++
			}
		}

		score := matches * scoreMultiplier
		ss.Player1.Score = score
		ss.Player2.Score = score
		ss.Status = domain.StatusCompleted
	}

	if err := s.store.Update(ctx, ss); err != nil {
		return nil, err
	}
	s.cache.Put(ss.Code, ss)

	if completed {
		if err := s.lb.Record(ctx, domain.LeaderboardEntry{
			Player1:         ss.Player1.Name,
			Player2:         ss.Player2.Name,
			MatchingAnswers: matches,
			Score:           ss.Player1.Score,
			CreatedAt:       time.Now().UTC(),
		}); err != nil {
			return nil, fmt.Errorf("record leaderboard entry: %w", err)
		}

		telemetry.SessionsCompleted.Inc()
		if s.eb != nil {
			s.eb.Publish(ctx, domain.EventSessionCompleted{Session: *ss.Clone()})
		}
	}

	return &SubmitAnswerResponse{Session: ss.Clone()}, nil
}

type GetSessionRequest struct {
	SessionCode string
}

// GetSession returns the current session state, rebuilding the cache entry
// from the store on a cold read. On a warm read the store stays
// authoritative for answers, scores, status and progress.
func (s *Service) GetSession(ctx context.Context, req GetSessionRequest) (*domain.Session, error) {
	unlock := s.locks.lock(req.SessionCode)
	defer unlock()

	stored, err := s.store.Get(ctx, req.SessionCode)
	if err != nil {
		return nil, err
	}

	ss, ok := s.cache.Get(req.SessionCode)
	if !ok {
		ss = stored
	} else {
		ss.Player1.Name = stored.Player1.Name
		ss.Player1.Answers = stored.Player1.Answers
		ss.Player1.Score = stored.Player1.Score
		ss.Player2.Name = stored.Player2.Name
		ss.Player2.Answers = stored.Player2.Answers
		ss.Player2.Score = stored.Player2.Score
		ss.Status = stored.Status
		ss.CurrentQuestion = stored.CurrentQuestion
	}

	if len(ss.Questions) != s.round {
		ss.Questions = s.resolveQuestions(ctx, ss)
	}

	s.cache.Put(ss.Code, ss)

	return ss.Clone(), nil
}

// load returns the cached working copy, or rebuilds one from the store on a
// miss. Callers must hold the session lock. The rebuilt entry has no
// question list yet; callers re-derive it per their own policy.
func (s *Service) load(ctx context.Context, code string) (*domain.Session, error) {
	if ss, ok := s.cache.Get(code); ok {
		return ss, nil
	}

	return s.store.Get(ctx, code)
}

// resolveQuestions re-derives a strict round-length question list for a
// session whose cached list is missing or malformed. With both players known
// it tries one re-personalized generation and accepts only a full-length
// result; anything else is the default list.
func (s *Service) resolveQuestions(ctx context.Context, ss *domain.Session) []domain.Question {
	if ss.Player2.Name == "" {
		return question.Fallback(s.round)
	}

	qs, err := s.qs.Generate(ctx, question.GenerateRequest{
		Player1: ss.Player1.Name,
		Player2: ss.Player2.Name,
		Count:   s.round,
	})
	if err != nil || len(qs) < s.round {
		if err != nil {
			slog.WarnContext(ctx, "game: question regeneration failed, using fallback", "code", ss.Code, "error", err)
		}
		telemetry.QuestionFallbacks.Inc()
		return question.Fallback(s.round)
	}

	return qs[:s.round]
}
