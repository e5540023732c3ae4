package memory

import (
	"sync"

	"cs-quiz-bot/internal/app"
)

// RoundStore is an in-memory implementation of app.RoundStore. It keeps one
// serialization context per channel plus an index from round ID back to the
// owning context.
type RoundStore struct {
	mu       sync.RWMutex
	contexts map[string]*app.RoundContext
	byRound  map[string]*app.RoundContext
}

func NewRoundStore() *RoundStore {
	return &RoundStore{
		contexts: make(map[string]*app.RoundContext),
		byRound:  make(map[string]*app.RoundContext),
	}
}

func (s *RoundStore) GetOrCreate(channelID string) *app.RoundContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rc, ok := s.contexts[channelID]; ok {
		return rc
	}
	rc := app.NewRoundContext(channelID)
	s.contexts[channelID] = rc
	return rc
}

func (s *RoundStore) Get(channelID string) (*app.RoundContext, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rc, ok := s.contexts[channelID]
	return rc, ok
}

func (s *RoundStore) Register(roundID string, rc *app.RoundContext) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byRound[roundID] = rc
}

func (s *RoundStore) Lookup(roundID string) (*app.RoundContext, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rc, ok := s.byRound[roundID]
	return rc, ok
}

func (s *RoundStore) Release(roundID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byRound, roundID)
}
