package domain

import (
	"strings"
	"time"
)

// OptionKeys is the fixed answer grammar. Every question carries exactly
// one option per key.
var OptionKeys = []string{"A", "B", "C", "D"}

// Question models an MCQ question with exactly one correct option keyed A-D.
// Immutable once created.
type Question struct {
	ID          string            `json:"id"`
	Topic       string            `json:"topic"`
	Prompt      string            `json:"prompt"`
	Options     map[string]string `json:"options"`
	Correct     string            `json:"correct"`
	Explanation string            `json:"explanation,omitempty"`
	Difficulty  string            `json:"difficulty,omitempty"`
	Source      string            `json:"source,omitempty"` // model name, or "fallback"
}

// RoundState is the lifecycle state of a round.
type RoundState string

const (
	RoundOpen   RoundState = "open"
	RoundClosed RoundState = "closed"
)

// Round is the lifecycle of one posted question, from open to close.
// At most one round is open per channel at any instant; a closed round
// never reopens and a winner is assigned at most once.
type Round struct {
	ID          string     `json:"id"`
	ChannelID   string     `json:"channelId"`
	Question    Question   `json:"question"`
	OpenedAt    time.Time  `json:"openedAt"`
	State       RoundState `json:"state"`
	Winner      string     `json:"winner,omitempty"`
	ClosedAt    *time.Time `json:"closedAt,omitempty"`
	CloseReason string     `json:"closeReason,omitempty"`
}

// Solved reports whether the round closed with a winner.
func (r Round) Solved() bool {
	return r.State == RoundClosed && r.Winner != ""
}

// Outcome classifies the result of a single answer submission.
type Outcome string

const (
	AcceptedCorrect       Outcome = "accepted_correct"
	RejectedIncorrect     Outcome = "rejected_incorrect"
	RejectedRoundClosed   Outcome = "rejected_round_closed"
	RejectedDuplicateUser Outcome = "rejected_duplicate_user"
)

// Attempt records one answer submission against a round.
type Attempt struct {
	RoundID     string    `json:"roundId"`
	UserID      string    `json:"userId"`
	Username    string    `json:"username"`
	Option      string    `json:"option"`
	Correct     bool      `json:"correct"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// UserStats is the per-user aggregate owned by the persistence store.
type UserStats struct {
	UserID       string     `json:"userId"`
	Username     string     `json:"username"`
	Score        int        `json:"score"`
	Correct      int        `json:"correct"`
	Wrong        int        `json:"wrong"`
	LastAnswerAt *time.Time `json:"lastAnswerAt,omitempty"`
}

// Accuracy returns the fraction of correct attempts, or 0 with no attempts.
func (s UserStats) Accuracy() float64 {
	total := s.Correct + s.Wrong
	if total == 0 {
		return 0
	}
	return float64(s.Correct) / float64(total)
}

// LeaderboardEntry is a snapshot-friendly view of a scored user.
type LeaderboardEntry struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Score    int    `json:"score"`
	Correct  int    `json:"correct"`
	Wrong    int    `json:"wrong"`
}

// Leaderboard captures the ordered scoreboard at a point in time.
type Leaderboard struct {
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// GuildConfig holds per-guild bot settings.
type GuildConfig struct {
	GuildID        string `json:"guildId"`
	DailyChannelID string `json:"dailyChannelId,omitempty"`
	AdminRoleID    string `json:"adminRoleId,omitempty"`
}

// ValidOption reports whether letter is one of the four fixed option keys.
func ValidOption(letter string) bool {
	switch letter {
	case "A", "B", "C", "D":
		return true
	}
	return false
}

// NormalizeOption canonicalizes user-supplied answer tokens to A-D.
// Accepts forms like "b", "B)", "b.", "option c", "choice d" and the
// digits 1-4. Tokens it cannot map are returned upper-cased, so callers
// still see ValidOption fail for garbage input.
func NormalizeOption(raw string) string {
	token := strings.ToUpper(strings.TrimSpace(raw))
	if ValidOption(token) {
		return token
	}
	if len(token) > 1 && ValidOption(token[:1]) {
		switch token[1] {
		case ')', '.', ' ', '-':
			return token[:1]
		}
	}
	token = strings.TrimPrefix(token, "OPTION ")
	token = strings.TrimPrefix(token, "CHOICE ")
	if len(token) == 1 && token[0] >= '1' && token[0] <= '4' {
		return string(rune('A' + token[0] - '1'))
	}
	return token
}
