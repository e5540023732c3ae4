package charts

import (
	"bytes"
	"testing"
	"time"

	"cs-quiz-bot/internal/domain"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func assertPNG(t *testing.T, img []byte, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(img, pngMagic) {
		t.Fatalf("output is not a PNG (%d bytes)", len(img))
	}
}

func TestLeaderboardChart(t *testing.T) {
	r := NewRenderer()
	lb := domain.Leaderboard{
		Entries: []domain.LeaderboardEntry{
			{Username: "alice", Score: 40},
			{Username: "bob", Score: 20},
			{Username: "carol", Score: 10},
		},
		UpdatedAt: time.Now(),
	}
	img, err := r.Leaderboard(lb)
	assertPNG(t, img, err)

	if _, err := r.Leaderboard(domain.Leaderboard{}); err == nil {
		t.Fatalf("expected error for empty leaderboard")
	}
}

func TestUserHistoryChart(t *testing.T) {
	r := NewRenderer()
	base := time.Now().Add(-time.Hour)
	history := []domain.Attempt{
		{Correct: true, SubmittedAt: base},
		{Correct: false, SubmittedAt: base.Add(10 * time.Minute)},
		{Correct: true, SubmittedAt: base.Add(20 * time.Minute)},
	}
	img, err := r.UserHistory("alice", history, 10)
	assertPNG(t, img, err)

	if _, err := r.UserHistory("alice", nil, 10); err == nil {
		t.Fatalf("expected error for empty history")
	}
}

func TestAccuracyChart(t *testing.T) {
	r := NewRenderer()
	img, err := r.Accuracy(domain.UserStats{UserID: "u1", Username: "alice", Correct: 3, Wrong: 1})
	assertPNG(t, img, err)

	if _, err := r.Accuracy(domain.UserStats{UserID: "u1"}); err == nil {
		t.Fatalf("expected error for user without attempts")
	}
}
