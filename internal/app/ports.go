package app

import (
	"context"
	"time"

	"quiz-battle-arena/internal/domain"
)

// QuestionSource loads quiz content and answers access questions.
type QuestionSource interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	UserHasQuizAccess(ctx context.Context, userID, quizID string) (bool, error)
}

// IdentityProvider resolves user ids. Used for existence checks and event enrichment only.
type IdentityProvider interface {
	GetUser(ctx context.Context, userID string) (domain.User, error)
}

// SettleFunc turns the locked completion input into the rows to write.
type SettleFunc func(in domain.SettlementInput) (domain.Settlement, error)

// BattleStore is the durable record of battles, progress, stats and badges.
// Every status change is a compare-and-swap on the current status.
type BattleStore interface {
	// CreateBattle fails with domain.ErrInBattle or domain.ErrOpponentBusy when a player
	// already has a pending or active battle; the check and insert are atomic.
	CreateBattle(ctx context.Context, battle domain.Battle) error
	GetBattle(ctx context.Context, battleID string) (domain.Battle, error)
	// TransitionBattle moves a battle from one status to another and reports false
	// when the stored status was no longer from.
	TransitionBattle(ctx context.Context, battleID string, from, to domain.BattleStatus, at time.Time) (bool, error)
	// HasOpenBattle reports whether the user plays in a pending or active battle.
	HasOpenBattle(ctx context.Context, userID string) (bool, error)
	ListBattlesByStatus(ctx context.Context, status domain.BattleStatus, limit int) ([]domain.Battle, error)

	// RecordAnswer inserts a progress entry into an active battle, assigning its question order.
	// It fails with domain.ErrBattleNotActive once the battle has left active, and a
	// second answer to the same question fails with domain.ErrAlreadyAnswered.
	RecordAnswer(ctx context.Context, entry domain.ProgressEntry) (domain.ProgressEntry, error)
	ListProgress(ctx context.Context, battleID string) ([]domain.ProgressEntry, error)

	// CompleteBattle locks an active battle, runs settle and persists its result atomically.
	// It fails with domain.ErrBattleNotActive if another path completed the battle first.
	CompleteBattle(ctx context.Context, battleID string, settle SettleFunc) (domain.Settlement, error)

	GetStats(ctx context.Context, userID string) (domain.UserStats, error)
	AddPoints(ctx context.Context, userID string, points int) (domain.UserStats, error)
	TopStats(ctx context.Context, limit int) ([]domain.UserStats, error)
	ListBadges(ctx context.Context, userID string) ([]domain.BadgeAward, error)
	CountDirectOpponents(ctx context.Context, userID string) (int, error)
}

// QueueStore is the durable matchmaking waiting list.
type QueueStore interface {
	// Enqueue fails with domain.ErrAlreadyQueued when the user already waits.
	Enqueue(ctx context.Context, entry domain.QueueEntry) error
	WaitingEntry(ctx context.Context, userID string) (domain.QueueEntry, bool, error)
	LatestMatch(ctx context.Context, userID string, since time.Time) (domain.QueueEntry, bool, error)
	CancelWaiting(ctx context.Context, userID string) (bool, error)
	// ListWaiting returns waiting entries ordered by join time.
	ListWaiting(ctx context.Context) ([]domain.QueueEntry, error)
	// MatchPair inserts battle and flips both entries waiting→matched, or changes nothing
	// and reports false when either entry is no longer waiting.
	MatchPair(ctx context.Context, entryA, entryB string, battle domain.Battle) (bool, error)
	ExpireWaiting(ctx context.Context, joinedBefore time.Time) (int, error)
	QueueStats(ctx context.Context, now time.Time) (domain.QueueStats, error)
}

// Locker guards a matching pass across processes.
type Locker interface {
	// TryLock returns a release func, or ok=false if someone else holds the lock.
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}
