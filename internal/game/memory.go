package game

import (
	"context"
	"sync"

	"github.com/victornm/pairup/internal/domain"
	"github.com/victornm/pairup/internal/errors"
)

// MemoryStore keeps sessions in process memory. It backs tests and local
// runs without postgres, with the same snapshot semantics as the real store:
// values going in and out are deep copies, and questions are not retained.
type MemoryStore struct {
	mu sync.RWMutex
	m  map[string]*domain.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[string]*domain.Session)}
}

func (s *MemoryStore) Create(_ context.Context, ss *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.m[ss.Code]; ok {
		return errors.New(errors.CodeAlreadyExists,
			errors.WithMessagef("session already exists: code=%s", ss.Code))
	}

	s.m[ss.Code] = snapshot(ss)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, code string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ss, ok := s.m[code]
	if !ok {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("session not found: code=%s", code))
	}

	return ss.Clone(), nil
}

func (s *MemoryStore) Update(_ context.Context, ss *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.m[ss.Code]; !ok {
		return errors.New(errors.CodeNotFound,
			errors.WithMessagef("session not found: code=%s", ss.Code))
	}

	s.m[ss.Code] = snapshot(ss)
	return nil
}

func snapshot(ss *domain.Session) *domain.Session {
	c := ss.Clone()
	c.Questions = nil
	return c
}
