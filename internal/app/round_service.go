package app

import (
	"context"
	"log"
	"sync"
	"time"

	"cs-quiz-bot/internal/domain"

	"github.com/google/uuid"
)

// RoundStore abstracts how per-channel round contexts are kept (in-memory,
// Redis-marked, etc). A context is the serialization point for one channel.
type RoundStore interface {
	GetOrCreate(channelID string) *RoundContext
	Get(channelID string) (*RoundContext, bool)
	Register(roundID string, rc *RoundContext)
	Lookup(roundID string) (*RoundContext, bool)
	// Release drops the index entry for a superseded round so the mapping
	// stays bounded at one round per channel.
	Release(roundID string)
}

// ScoreStore persists rounds and attempts. RecordAttempt must be idempotent
// on (roundID, userID) so retries cannot double-score.
type ScoreStore interface {
	SaveRound(ctx context.Context, round domain.Round) error
	MarkClosed(ctx context.Context, round domain.Round) error
	RecordAttempt(ctx context.Context, attempt domain.Attempt, points int) (bool, error)
	Leaderboard(ctx context.Context, limit int) (domain.Leaderboard, error)
}

// Policy tunes scoring behavior.
type Policy struct {
	// Points awarded to the round winner.
	Points int
	// OneAttemptPerUser rejects a second submission from the same user
	// within one round instead of tracking repeated wrong answers.
	OneAttemptPerUser bool
}

// SubmitResult is what a single answer submission observes.
type SubmitResult struct {
	Outcome domain.Outcome
	// Round is a snapshot taken at the decision point. For submissions
	// against rounds this service no longer tracks, only ID and State
	// are populated.
	Round domain.Round
}

// RoundService owns round lifecycles: it serializes concurrent answer
// submissions per channel and guarantees exactly-once winner determination.
// The in-memory decision is authoritative; durable writes are catch-up and
// never un-declare a winner.
type RoundService struct {
	rounds RoundStore
	scores ScoreStore
	policy Policy
	hub    *Hub
	now    func() time.Time
}

func NewRoundService(rounds RoundStore, scores ScoreStore, policy Policy) *RoundService {
	if policy.Points <= 0 {
		policy.Points = 10
	}
	return &RoundService{
		rounds: rounds,
		scores: scores,
		policy: policy,
		hub:    NewHub(),
		now:    time.Now,
	}
}

// WithClock is test-only for deterministic timestamps.
func (s *RoundService) WithClock(now func() time.Time) *RoundService {
	s.now = now
	return s
}

// Hub exposes the leaderboard broadcast hub for transports.
func (s *RoundService) Hub() *Hub {
	return s.hub
}

// OpenRound opens a new round holding question for channelID. It fails with
// domain.ErrRoundConflict while another round is open there and never
// silently replaces an existing round.
func (s *RoundService) OpenRound(ctx context.Context, channelID string, question domain.Question) (domain.Round, error) {
	rc := s.rounds.GetOrCreate(channelID)
	prev, hadPrev := rc.snapshot()
	round := domain.Round{
		ID:        uuid.NewString(),
		ChannelID: channelID,
		Question:  question,
		OpenedAt:  s.now(),
		State:     domain.RoundOpen,
	}
	opened, err := rc.open(round)
	if err != nil {
		return domain.Round{}, err
	}
	s.rounds.Register(opened.ID, rc)
	if hadPrev {
		s.rounds.Release(prev.ID)
	}

	if err := s.scores.SaveRound(ctx, opened); err != nil {
		log.Printf("save round %s: %v", opened.ID, err)
	}
	return opened, nil
}

// CurrentRound returns the open round for a channel, if any.
func (s *RoundService) CurrentRound(channelID string) (domain.Round, bool) {
	rc, ok := s.rounds.Get(channelID)
	if !ok {
		return domain.Round{}, false
	}
	return rc.openRound()
}

// LatestRound returns the most recent round for a channel, open or closed.
func (s *RoundService) LatestRound(channelID string) (domain.Round, bool) {
	rc, ok := s.rounds.Get(channelID)
	if !ok {
		return domain.Round{}, false
	}
	return rc.snapshot()
}

// SubmitAnswer offers one answer to a round. Option letters outside A-D fail
// with domain.ErrInvalidOption before any state is touched; everything else
// resolves to a defined Outcome. The first correct submission closes the
// round and triggers exactly one score write; racing submissions that reach
// the serialization point later observe RejectedRoundClosed.
func (s *RoundService) SubmitAnswer(ctx context.Context, roundID, userID, username, option string) (SubmitResult, error) {
	if !domain.ValidOption(option) {
		return SubmitResult{}, domain.ErrInvalidOption
	}

	rc, ok := s.rounds.Lookup(roundID)
	if !ok {
		return SubmitResult{}, domain.ErrRoundNotFound
	}

	now := s.now()
	outcome, snapshot := rc.submit(roundID, userID, option, s.policy.OneAttemptPerUser, now)
	result := SubmitResult{Outcome: outcome, Round: snapshot}

	// The decision above is the serialization point; persistence happens
	// after it commits and failures are logged, never surfaced as a
	// changed outcome.
	switch outcome {
	case domain.AcceptedCorrect:
		attempt := domain.Attempt{
			RoundID:     roundID,
			UserID:      userID,
			Username:    username,
			Option:      option,
			Correct:     true,
			SubmittedAt: now,
		}
		if _, err := s.scores.RecordAttempt(ctx, attempt, s.policy.Points); err != nil {
			log.Printf("record winning attempt for round %s: %v", roundID, err)
		}
		if err := s.scores.MarkClosed(ctx, snapshot); err != nil {
			log.Printf("mark round %s closed: %v", roundID, err)
		}
		s.publishLeaderboard(ctx)
	case domain.RejectedIncorrect:
		attempt := domain.Attempt{
			RoundID:     roundID,
			UserID:      userID,
			Username:    username,
			Option:      option,
			Correct:     false,
			SubmittedAt: now,
		}
		if _, err := s.scores.RecordAttempt(ctx, attempt, 0); err != nil {
			log.Printf("record attempt for round %s: %v", roundID, err)
		}
	}
	return result, nil
}

// CloseRound is the administrative/timeout path: it transitions an open
// round to closed with no winner and is a no-op on already-closed rounds.
// Racing it against a correct submission is safe; whichever takes the
// channel mutex first wins and the loser observes the terminal state.
func (s *RoundService) CloseRound(ctx context.Context, roundID, reason string) (domain.Round, error) {
	rc, ok := s.rounds.Lookup(roundID)
	if !ok {
		return domain.Round{}, domain.ErrRoundNotFound
	}
	snapshot, changed := rc.close(roundID, reason, s.now())
	if changed {
		if err := s.scores.MarkClosed(ctx, snapshot); err != nil {
			log.Printf("mark round %s closed: %v", roundID, err)
		}
	}
	return snapshot, nil
}

// Leaderboard returns the current scoreboard.
func (s *RoundService) Leaderboard(ctx context.Context, limit int) (domain.Leaderboard, error) {
	return s.scores.Leaderboard(ctx, limit)
}

func (s *RoundService) publishLeaderboard(ctx context.Context) {
	lb, err := s.scores.Leaderboard(ctx, 10)
	if err != nil {
		log.Printf("leaderboard snapshot: %v", err)
		return
	}
	s.hub.Publish(lb)
}

// RoundContext is the single serialization point for one channel. The mutex
// is the sole authority on submission order; arrival order at the lock, not
// wall-clock timestamps, defines "first correct answer".
type RoundContext struct {
	channelID string

	mu        sync.Mutex
	current   *domain.Round
	attempted map[string]struct{}
}

// NewRoundContext is exported for store implementations.
func NewRoundContext(channelID string) *RoundContext {
	return &RoundContext{channelID: channelID}
}

// ChannelID identifies the channel this context serializes.
func (rc *RoundContext) ChannelID() string {
	return rc.channelID
}

func (rc *RoundContext) open(round domain.Round) (domain.Round, error) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.current != nil && rc.current.State == domain.RoundOpen {
		return domain.Round{}, domain.ErrRoundConflict
	}
	rc.current = &round
	rc.attempted = make(map[string]struct{})
	return round, nil
}

func (rc *RoundContext) submit(roundID, userID, option string, oneAttempt bool, now time.Time) (domain.Outcome, domain.Round) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if rc.current == nil || rc.current.ID != roundID {
		// A round this context no longer tracks is terminal by definition.
		return domain.RejectedRoundClosed, domain.Round{ID: roundID, ChannelID: rc.channelID, State: domain.RoundClosed}
	}
	if rc.current.State == domain.RoundClosed {
		return domain.RejectedRoundClosed, *rc.current
	}
	if oneAttempt {
		if _, dup := rc.attempted[userID]; dup {
			return domain.RejectedDuplicateUser, *rc.current
		}
	}
	rc.attempted[userID] = struct{}{}

	if option == rc.current.Question.Correct {
		rc.current.State = domain.RoundClosed
		rc.current.Winner = userID
		closedAt := now
		rc.current.ClosedAt = &closedAt
		rc.current.CloseReason = "answered"
		return domain.AcceptedCorrect, *rc.current
	}
	return domain.RejectedIncorrect, *rc.current
}

func (rc *RoundContext) close(roundID, reason string, now time.Time) (domain.Round, bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if rc.current == nil || rc.current.ID != roundID {
		return domain.Round{ID: roundID, ChannelID: rc.channelID, State: domain.RoundClosed}, false
	}
	if rc.current.State == domain.RoundClosed {
		return *rc.current, false
	}
	rc.current.State = domain.RoundClosed
	closedAt := now
	rc.current.ClosedAt = &closedAt
	rc.current.CloseReason = reason
	return *rc.current, true
}

func (rc *RoundContext) openRound() (domain.Round, bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.current == nil || rc.current.State != domain.RoundOpen {
		return domain.Round{}, false
	}
	return *rc.current, true
}

func (rc *RoundContext) snapshot() (domain.Round, bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.current == nil {
		return domain.Round{}, false
	}
	return *rc.current, true
}
