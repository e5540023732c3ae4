package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"cs-quiz-bot/internal/domain"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Store is the durable persistence store for rounds, responses, and user
// aggregates. Response writes are idempotent on (round_id, user_id), so a
// retried score update cannot double-count.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) SaveRound(ctx context.Context, round domain.Round) error {
	options, err := json.Marshal(round.Question.Options)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO rounds (id, channel_id, topic, prompt, options, correct_option, explanation, difficulty, source, state, opened_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING`,
		round.ID, round.ChannelID, round.Question.Topic, round.Question.Prompt, options,
		round.Question.Correct, round.Question.Explanation, round.Question.Difficulty,
		round.Question.Source, string(round.State), round.OpenedAt)
	if err != nil {
		return fmt.Errorf("save round: %w", err)
	}
	return nil
}

// MarkClosed records the terminal state of a round. The state guard means a
// round already closed in the database keeps its original winner.
func (s *Store) MarkClosed(ctx context.Context, round domain.Round) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE rounds
		SET state = 'closed', winner_id = NULLIF($2, ''), closed_at = $3, close_reason = $4
		WHERE id = $1 AND state = 'open'`,
		round.ID, round.Winner, round.ClosedAt, round.CloseReason)
	if err != nil {
		return fmt.Errorf("mark round closed: %w", err)
	}
	return nil
}

// RecordAttempt inserts one response and bumps the user's aggregates in the
// same transaction. A duplicate (round, user) pair is ignored and reports
// applied=false without touching the aggregates.
func (s *Store) RecordAttempt(ctx context.Context, attempt domain.Attempt, points int) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		INSERT INTO responses (round_id, user_id, answer, is_correct, answered_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT ON CONSTRAINT uq_round_user DO NOTHING`,
		attempt.RoundID, attempt.UserID, attempt.Option, attempt.Correct, attempt.SubmittedAt)
	if err != nil {
		return false, fmt.Errorf("insert response: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	correct, wrong := 0, 0
	if attempt.Correct {
		correct = 1
	} else {
		wrong = 1
		points = 0
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO users (id, name, score, correct, wrong, last_answer_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
		    score = users.score + EXCLUDED.score,
		    correct = users.correct + EXCLUDED.correct,
		    wrong = users.wrong + EXCLUDED.wrong,
		    last_answer_at = EXCLUDED.last_answer_at`,
		attempt.UserID, attempt.Username, points, correct, wrong, attempt.SubmittedAt); err != nil {
		return false, fmt.Errorf("update user stats: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

func (s *Store) Leaderboard(ctx context.Context, limit int) (domain.Leaderboard, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, score, correct, wrong
		FROM users
		ORDER BY score DESC, correct DESC, name ASC
		LIMIT $1`, limit)
	if err != nil {
		return domain.Leaderboard{}, fmt.Errorf("leaderboard: %w", err)
	}
	defer rows.Close()

	var lb domain.Leaderboard
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Username, &e.Score, &e.Correct, &e.Wrong); err != nil {
			return domain.Leaderboard{}, fmt.Errorf("scan leaderboard: %w", err)
		}
		lb.Entries = append(lb.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return domain.Leaderboard{}, err
	}
	_ = s.pool.QueryRow(ctx, `SELECT COALESCE(MAX(last_answer_at), NOW()) FROM users`).Scan(&lb.UpdatedAt)
	return lb, nil
}

func (s *Store) UserStats(ctx context.Context, userID string) (domain.UserStats, error) {
	var stats domain.UserStats
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, score, correct, wrong, last_answer_at
		FROM users WHERE id = $1`, userID).
		Scan(&stats.UserID, &stats.Username, &stats.Score, &stats.Correct, &stats.Wrong, &stats.LastAnswerAt)
	if err == pgx.ErrNoRows {
		return domain.UserStats{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.UserStats{}, fmt.Errorf("user stats: %w", err)
	}
	return stats, nil
}

// History returns a user's attempts, oldest first.
func (s *Store) History(ctx context.Context, userID string) ([]domain.Attempt, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.round_id, r.user_id, COALESCE(u.name, ''), r.answer, r.is_correct, r.answered_at
		FROM responses r
		LEFT JOIN users u ON u.id = r.user_id
		WHERE r.user_id = $1
		ORDER BY r.answered_at ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	defer rows.Close()

	var history []domain.Attempt
	for rows.Next() {
		var a domain.Attempt
		if err := rows.Scan(&a.RoundID, &a.UserID, &a.Username, &a.Option, &a.Correct, &a.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		history = append(history, a)
	}
	return history, rows.Err()
}

// RecentRounds returns the most recently opened rounds, newest first.
func (s *Store) RecentRounds(ctx context.Context, limit int) ([]domain.Round, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, channel_id, topic, prompt, options, correct_option,
		       COALESCE(explanation, ''), COALESCE(difficulty, ''), COALESCE(source, ''),
		       state, COALESCE(winner_id, ''), opened_at, closed_at, COALESCE(close_reason, '')
		FROM rounds
		ORDER BY opened_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent rounds: %w", err)
	}
	defer rows.Close()

	var rounds []domain.Round
	for rows.Next() {
		var r domain.Round
		var state string
		var options []byte
		if err := rows.Scan(&r.ID, &r.ChannelID, &r.Question.Topic, &r.Question.Prompt, &options,
			&r.Question.Correct, &r.Question.Explanation, &r.Question.Difficulty, &r.Question.Source,
			&state, &r.Winner, &r.OpenedAt, &r.ClosedAt, &r.CloseReason); err != nil {
			return nil, fmt.Errorf("scan round: %w", err)
		}
		if err := json.Unmarshal(options, &r.Question.Options); err != nil {
			return nil, fmt.Errorf("unmarshal options: %w", err)
		}
		r.Question.ID = r.ID
		r.State = domain.RoundState(state)
		rounds = append(rounds, r)
	}
	return rounds, rows.Err()
}

func (s *Store) GuildConfig(ctx context.Context, guildID string) (domain.GuildConfig, error) {
	cfg := domain.GuildConfig{GuildID: guildID}
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(daily_channel_id, ''), COALESCE(admin_role_id, '')
		FROM guild_config WHERE guild_id = $1`, guildID).
		Scan(&cfg.DailyChannelID, &cfg.AdminRoleID)
	if err == pgx.ErrNoRows {
		return cfg, nil
	}
	if err != nil {
		return domain.GuildConfig{}, fmt.Errorf("guild config: %w", err)
	}
	return cfg, nil
}

func (s *Store) SetGuildConfig(ctx context.Context, cfg domain.GuildConfig) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO guild_config (guild_id, daily_channel_id, admin_role_id)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''))
		ON CONFLICT (guild_id) DO UPDATE
		SET daily_channel_id = EXCLUDED.daily_channel_id,
		    admin_role_id = EXCLUDED.admin_role_id`,
		cfg.GuildID, cfg.DailyChannelID, cfg.AdminRoleID)
	if err != nil {
		return fmt.Errorf("set guild config: %w", err)
	}
	return nil
}

// ResetScores zeroes every user aggregate but keeps response history.
func (s *Store) ResetScores(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `UPDATE users SET score = 0, correct = 0, wrong = 0`); err != nil {
		return fmt.Errorf("reset scores: %w", err)
	}
	return nil
}
