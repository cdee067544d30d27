package game

import (
	"sync"

	"github.com/victornm/pairup/internal/domain"
)

// Cache holds the live working copy of a session, including the resolved
// question list the store never persists. It is an optimization, not a
// source of truth; any miss is rebuilt from the store.
type Cache interface {
	Get(code string) (*domain.Session, bool)
	Put(code string, s *domain.Session)
	Evict(code string)
}

type memoryCache struct {
	mu sync.RWMutex
	m  map[string]*domain.Session
}

// NewMemoryCache returns a process-local session cache.
func NewMemoryCache() Cache {
	return &memoryCache{m: make(map[string]*domain.Session)}
}

func (c *memoryCache) Get(code string) (*domain.Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.m[code]
	if !ok {
		return nil, false
	}

	return s.Clone(), true
}

func (c *memoryCache) Put(code string, s *domain.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.m[code] = s.Clone()
}

func (c *memoryCache) Evict(code string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.m, code)
}
