package redis

import (
	"context"
	"sync"
	"time"

	"cs-quiz-bot/internal/app"

	"github.com/redis/go-redis/v9"
)

// RoundStore is a Redis-aware implementation of app.RoundStore.
// Notes:
//   - Round contexts stay in-process; the channel mutex is the serialization
//     point and moving it out of process would change the ordering authority.
//   - Redis marks open-round liveness so operators (and a future cross-
//     instance router) can see which channels hold an open round.
type RoundStore struct {
	client *redis.Client
	ttl    time.Duration

	mu       sync.RWMutex
	contexts map[string]*app.RoundContext
	byRound  map[string]*app.RoundContext
}

func NewRoundStore(client *redis.Client, ttl time.Duration) *RoundStore {
	return &RoundStore{
		client:   client,
		ttl:      ttl,
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
	s.byRound[roundID] = rc
	s.mu.Unlock()
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(rc.ChannelID()), roundID, s.ttl).Err()
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

func (s *RoundStore) key(channelID string) string {
	return "quiz:round:" + channelID
}
