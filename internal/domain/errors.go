package domain

import "errors"

var (
	// ErrRoundConflict is returned when a round is already open for the channel.
	ErrRoundConflict = errors.New("a round is already open for this channel")
	// ErrRoundNotFound is returned when a submitted round ID is unknown.
	ErrRoundNotFound = errors.New("round not found")
	// ErrInvalidOption indicates an answer outside the A-D grammar.
	ErrInvalidOption = errors.New("option must be one of A, B, C, D")
	// ErrQuestionUnavailable indicates the upstream question source failed;
	// callers substitute a fallback question instead of surfacing it.
	ErrQuestionUnavailable = errors.New("question source unavailable")
	// ErrUserNotFound is returned when stats are requested for an unknown user.
	ErrUserNotFound = errors.New("user not found")
)
