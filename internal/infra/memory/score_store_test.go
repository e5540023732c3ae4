package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"cs-quiz-bot/internal/domain"
)

func attempt(roundID, userID string, correct bool, at time.Time) domain.Attempt {
	return domain.Attempt{
		RoundID:     roundID,
		UserID:      userID,
		Username:    "name-" + userID,
		Option:      "B",
		Correct:     correct,
		SubmittedAt: at,
	}
}

func TestRecordAttemptIdempotent(t *testing.T) {
	store := NewScoreStore()
	ctx := context.Background()
	now := time.Now()

	applied, err := store.RecordAttempt(ctx, attempt("r1", "u1", true, now), 10)
	if err != nil {
		t.Fatalf("first write: %v", err)
	}
	if !applied {
		t.Fatalf("first write not applied")
	}

	applied, err = store.RecordAttempt(ctx, attempt("r1", "u1", true, now), 10)
	if err != nil {
		t.Fatalf("repeat write: %v", err)
	}
	if applied {
		t.Fatalf("repeat write applied")
	}

	stats, err := store.UserStats(ctx, "u1")
	if err != nil {
		t.Fatalf("user stats: %v", err)
	}
	if stats.Score != 10 || stats.Correct != 1 {
		t.Fatalf("repeat write double-counted: %+v", stats)
	}
}

func TestLeaderboardOrdering(t *testing.T) {
	store := NewScoreStore()
	ctx := context.Background()
	now := time.Now()

	// u1: 20 points, u2: 10, u3: 10 but fewer correct after a wrong answer.
	for i, a := range []struct {
		round, user string
		correct     bool
		points      int
	}{
		{"r1", "u1", true, 10},
		{"r2", "u1", true, 10},
		{"r3", "u2", true, 10},
		{"r4", "u3", true, 10},
		{"r5", "u3", false, 0},
	} {
		if _, err := store.RecordAttempt(ctx, attempt(a.round, a.user, a.correct, now.Add(time.Duration(i)*time.Second)), a.points); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}

	lb, err := store.Leaderboard(ctx, 0)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	var order []string
	for _, e := range lb.Entries {
		order = append(order, e.UserID)
	}
	want := []string{"u1", "u2", "u3"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}

	limited, err := store.Leaderboard(ctx, 2)
	if err != nil {
		t.Fatalf("limited leaderboard: %v", err)
	}
	if len(limited.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(limited.Entries))
	}
}

func TestMarkClosedKeepsWinner(t *testing.T) {
	store := NewScoreStore()
	ctx := context.Background()

	round := domain.Round{ID: "r1", ChannelID: "c1", State: domain.RoundOpen, OpenedAt: time.Now()}
	if err := store.SaveRound(ctx, round); err != nil {
		t.Fatalf("save round: %v", err)
	}

	closedAt := time.Now()
	won := round
	won.State = domain.RoundClosed
	won.Winner = "u1"
	won.ClosedAt = &closedAt
	won.CloseReason = "answered"
	if err := store.MarkClosed(ctx, won); err != nil {
		t.Fatalf("mark closed: %v", err)
	}

	// A late timeout close must not erase the winner.
	timedOut := round
	timedOut.State = domain.RoundClosed
	timedOut.ClosedAt = &closedAt
	timedOut.CloseReason = "timeout"
	if err := store.MarkClosed(ctx, timedOut); err != nil {
		t.Fatalf("second mark closed: %v", err)
	}

	rounds, err := store.RecentRounds(ctx, 1)
	if err != nil {
		t.Fatalf("recent rounds: %v", err)
	}
	if rounds[0].Winner != "u1" || rounds[0].CloseReason != "answered" {
		t.Fatalf("winner overwritten: %+v", rounds[0])
	}
}

func TestHistoryAndRecentRounds(t *testing.T) {
	store := NewScoreStore()
	ctx := context.Background()
	base := time.Now()

	for i, id := range []string{"r1", "r2", "r3"} {
		round := domain.Round{ID: id, ChannelID: "c1", State: domain.RoundOpen, OpenedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := store.SaveRound(ctx, round); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
		if _, err := store.RecordAttempt(ctx, attempt(id, "u1", i == 2, base.Add(time.Duration(i)*time.Minute)), 10); err != nil {
			t.Fatalf("attempt %s: %v", id, err)
		}
	}

	history, err := store.History(ctx, "u1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 3 || history[0].RoundID != "r1" || history[2].RoundID != "r3" {
		t.Fatalf("history not oldest first: %+v", history)
	}

	recent, err := store.RecentRounds(ctx, 2)
	if err != nil {
		t.Fatalf("recent rounds: %v", err)
	}
	if len(recent) != 2 || recent[0].ID != "r3" || recent[1].ID != "r2" {
		t.Fatalf("recent rounds not newest first: %+v", recent)
	}
}

func TestResetScoresKeepsHistory(t *testing.T) {
	store := NewScoreStore()
	ctx := context.Background()

	if _, err := store.RecordAttempt(ctx, attempt("r1", "u1", true, time.Now()), 10); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := store.ResetScores(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}

	stats, err := store.UserStats(ctx, "u1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Score != 0 || stats.Correct != 0 {
		t.Fatalf("scores not reset: %+v", stats)
	}
	history, err := store.History(ctx, "u1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history lost on reset: %+v", history)
	}
}

func TestGuildConfigRoundTrip(t *testing.T) {
	store := NewScoreStore()
	ctx := context.Background()

	cfg, err := store.GuildConfig(ctx, "g1")
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	if cfg.GuildID != "g1" || cfg.DailyChannelID != "" {
		t.Fatalf("unexpected default: %+v", cfg)
	}

	if err := store.SetGuildConfig(ctx, domain.GuildConfig{GuildID: "g1", DailyChannelID: "c9", AdminRoleID: "role"}); err != nil {
		t.Fatalf("set config: %v", err)
	}
	cfg, err = store.GuildConfig(ctx, "g1")
	if err != nil {
		t.Fatalf("get config: %v", err)
	}
	if cfg.DailyChannelID != "c9" || cfg.AdminRoleID != "role" {
		t.Fatalf("config not stored: %+v", cfg)
	}
}

func TestUserStatsUnknownUser(t *testing.T) {
	store := NewScoreStore()
	if _, err := store.UserStats(context.Background(), "nobody"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
