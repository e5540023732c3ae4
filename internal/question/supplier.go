package question

import (
	"context"
	"log"

	"cs-quiz-bot/internal/domain"

	"github.com/google/uuid"
)

// Generator is the upstream question source contract.
type Generator interface {
	Generate(ctx context.Context, topic string) (domain.Question, error)
}

// TopicState remembers the last topic posted per channel so fallback picks
// can rotate away from it.
type TopicState interface {
	LastTopic(ctx context.Context, channelID string) (string, error)
	SetLastTopic(ctx context.Context, channelID, topic string) error
}

// Supplier fetches a question for a channel, substituting a fallback from
// the static pool whenever the upstream source is unavailable. Upstream
// failure is never surfaced to the caller.
type Supplier struct {
	gen   Generator
	pool  *FallbackPool
	state TopicState
}

func NewSupplier(gen Generator, pool *FallbackPool, state TopicState) *Supplier {
	return &Supplier{gen: gen, pool: pool, state: state}
}

// Fetch returns the next question for channelID. An empty topic lets the
// generator pick one.
func (s *Supplier) Fetch(ctx context.Context, channelID, topic string) (domain.Question, error) {
	lastTopic, err := s.state.LastTopic(ctx, channelID)
	if err != nil {
		log.Printf("last topic for channel %s: %v", channelID, err)
	}

	q, err := s.gen.Generate(ctx, topic)
	if err != nil {
		log.Printf("question source unavailable, using fallback: %v", err)
		q = s.pool.Pick(lastTopic)
	}
	q.ID = uuid.NewString()

	if err := s.state.SetLastTopic(ctx, channelID, q.Topic); err != nil {
		log.Printf("set last topic for channel %s: %v", channelID, err)
	}
	return q, nil
}
