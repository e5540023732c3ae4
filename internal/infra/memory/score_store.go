package memory

import (
	"context"
	"sort"
	"sync"

	"cs-quiz-bot/internal/domain"
)

// ScoreStore is an in-memory persistence store for rounds, attempts, and
// user aggregates. It backs tests and token-only deployments without
// Postgres; semantics match the postgres store, including the idempotent
// (roundID, userID) attempt write.
type ScoreStore struct {
	mu       sync.RWMutex
	users    map[string]*domain.UserStats
	attempts map[string]domain.Attempt
	rounds   map[string]domain.Round
	order    []string // round IDs, oldest first
	guilds   map[string]domain.GuildConfig
}

func NewScoreStore() *ScoreStore {
	return &ScoreStore{
		users:    make(map[string]*domain.UserStats),
		attempts: make(map[string]domain.Attempt),
		rounds:   make(map[string]domain.Round),
		guilds:   make(map[string]domain.GuildConfig),
	}
}

func attemptKey(roundID, userID string) string {
	return roundID + "|" + userID
}

func (s *ScoreStore) SaveRound(_ context.Context, round domain.Round) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rounds[round.ID]; !ok {
		s.order = append(s.order, round.ID)
	}
	s.rounds[round.ID] = round
	return nil
}

func (s *ScoreStore) MarkClosed(_ context.Context, round domain.Round) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.rounds[round.ID]
	if !ok {
		s.order = append(s.order, round.ID)
		s.rounds[round.ID] = round
		return nil
	}
	// A closed round never reopens and a winner is never overwritten.
	if stored.State == domain.RoundClosed {
		return nil
	}
	stored.State = domain.RoundClosed
	stored.Winner = round.Winner
	stored.ClosedAt = round.ClosedAt
	stored.CloseReason = round.CloseReason
	s.rounds[round.ID] = stored
	return nil
}

// RecordAttempt stores one attempt and bumps the user's aggregates. A repeat
// write for the same (roundID, userID) is ignored and reports applied=false.
func (s *ScoreStore) RecordAttempt(_ context.Context, attempt domain.Attempt, points int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := attemptKey(attempt.RoundID, attempt.UserID)
	if _, dup := s.attempts[key]; dup {
		return false, nil
	}
	s.attempts[key] = attempt

	user, ok := s.users[attempt.UserID]
	if !ok {
		user = &domain.UserStats{UserID: attempt.UserID}
		s.users[attempt.UserID] = user
	}
	user.Username = attempt.Username
	at := attempt.SubmittedAt
	user.LastAnswerAt = &at
	if attempt.Correct {
		user.Score += points
		user.Correct++
	} else {
		user.Wrong++
	}
	return true, nil
}

func (s *ScoreStore) Leaderboard(_ context.Context, limit int) (domain.Leaderboard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]domain.LeaderboardEntry, 0, len(s.users))
	for _, u := range s.users {
		entries = append(entries, domain.LeaderboardEntry{
			UserID:   u.UserID,
			Username: u.Username,
			Score:    u.Score,
			Correct:  u.Correct,
			Wrong:    u.Wrong,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if entries[i].Correct != entries[j].Correct {
			return entries[i].Correct > entries[j].Correct
		}
		return entries[i].Username < entries[j].Username
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	var updated domain.Leaderboard
	updated.Entries = entries
	for _, u := range s.users {
		if u.LastAnswerAt != nil && u.LastAnswerAt.After(updated.UpdatedAt) {
			updated.UpdatedAt = *u.LastAnswerAt
		}
	}
	return updated, nil
}

func (s *ScoreStore) UserStats(_ context.Context, userID string) (domain.UserStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[userID]
	if !ok {
		return domain.UserStats{}, domain.ErrUserNotFound
	}
	return *user, nil
}

// History returns a user's attempts, oldest first.
func (s *ScoreStore) History(_ context.Context, userID string) ([]domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var history []domain.Attempt
	for _, a := range s.attempts {
		if a.UserID == userID {
			history = append(history, a)
		}
	}
	sort.Slice(history, func(i, j int) bool {
		return history[i].SubmittedAt.Before(history[j].SubmittedAt)
	})
	return history, nil
}

// RecentRounds returns the most recently opened rounds, newest first.
func (s *ScoreStore) RecentRounds(_ context.Context, limit int) ([]domain.Round, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var rounds []domain.Round
	for i := len(s.order) - 1; i >= 0 && (limit <= 0 || len(rounds) < limit); i-- {
		rounds = append(rounds, s.rounds[s.order[i]])
	}
	return rounds, nil
}

func (s *ScoreStore) GuildConfig(_ context.Context, guildID string) (domain.GuildConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if cfg, ok := s.guilds[guildID]; ok {
		return cfg, nil
	}
	return domain.GuildConfig{GuildID: guildID}, nil
}

func (s *ScoreStore) SetGuildConfig(_ context.Context, cfg domain.GuildConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guilds[cfg.GuildID] = cfg
	return nil
}

// ResetScores zeroes every user aggregate but keeps attempt history.
func (s *ScoreStore) ResetScores(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		u.Score = 0
		u.Correct = 0
		u.Wrong = 0
	}
	return nil
}
