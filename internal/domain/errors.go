package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the engine and matcher wraps exactly one of these.
var (
	// ErrValidation marks malformed or missing input. No state was changed.
	ErrValidation = errors.New("validation error")
	// ErrAccessDenied marks an authorization failure. No state was changed.
	ErrAccessDenied = errors.New("access denied")
	// ErrNotFound marks an id that does not resolve.
	ErrNotFound = errors.New("not found")
	// ErrStateConflict marks an operation that is invalid for the current status.
	ErrStateConflict = errors.New("state conflict")
	// ErrExpired marks a challenge, battle or queue entry past its deadline.
	ErrExpired = errors.New("expired")
	// ErrStorage marks a durable read or write failure.
	ErrStorage = errors.New("storage error")
	// ErrOpponentUnavailable marks a busy opponent.
	ErrOpponentUnavailable = errors.New("opponent unavailable")
)

var (
	ErrMissingID         = fmt.Errorf("%w: missing id", ErrValidation)
	ErrSelfChallenge     = fmt.Errorf("%w: cannot challenge yourself", ErrValidation)
	ErrInvalidAnswer     = fmt.Errorf("%w: invalid answer", ErrValidation)
	ErrInvalidQueue      = fmt.Errorf("%w: invalid queue type", ErrValidation)
	ErrQuestionNotInQuiz = fmt.Errorf("%w: question does not belong to this battle", ErrValidation)

	ErrNoQuizAccess   = fmt.Errorf("%w: no access to quiz", ErrAccessDenied)
	ErrNotParticipant = fmt.Errorf("%w: not a participant in this battle", ErrAccessDenied)
	ErrNotOpponent    = fmt.Errorf("%w: only the challenged player can respond", ErrAccessDenied)

	ErrBattleNotFound = fmt.Errorf("%w: battle", ErrNotFound)
	// ErrQuizNotFound comes from quiz loaders for unknown ids.
	ErrQuizNotFound = fmt.Errorf("%w: quiz", ErrNotFound)
	ErrUserNotFound = fmt.Errorf("%w: user", ErrNotFound)

	ErrBattleNotPending = fmt.Errorf("%w: battle is not pending", ErrStateConflict)
	ErrBattleNotActive  = fmt.Errorf("%w: battle is not active", ErrStateConflict)
	ErrAlreadyAnswered  = fmt.Errorf("%w: question already answered", ErrStateConflict)
	ErrAlreadyQueued    = fmt.Errorf("%w: already waiting in queue", ErrStateConflict)
	ErrInBattle         = fmt.Errorf("%w: already in a pending or active battle", ErrStateConflict)

	ErrChallengeExpired = fmt.Errorf("%w: challenge", ErrExpired)
	ErrBattleTimedOut   = fmt.Errorf("%w: battle time limit reached", ErrExpired)

	ErrOpponentBusy = fmt.Errorf("%w: opponent is already in a battle", ErrOpponentUnavailable)
)

// StorageError wraps a driver failure so it matches both ErrStorage and the cause.
func StorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
