package app

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"quiz-battle-arena/internal/domain"

	"github.com/google/uuid"
)

const (
	matchBaseScore     = 50
	matchSkillBonusMax = 50
	matchWaitBonusMax  = 20
	matchJitter        = 5

	matchLockKey = "matchmaking:process"
	matchLockTTL = 10 * time.Second
)

// QueueMatcher manages the matchmaking queue and pairs waiting players into battles.
type QueueMatcher struct {
	queue   QueueStore
	battles BattleStore
	quizzes QuestionSource
	engine  *BattleEngine
	rules   domain.Rules
	locker  Locker
	now     func() time.Time
	newID   func() string
	jitter  func() int
	logger  *slog.Logger

	mu sync.Mutex // serializes passes within this process
}

// MatcherOption customizes a QueueMatcher.
type MatcherOption func(*QueueMatcher)

// WithLocker adds a cross-process lock around each matching pass.
func WithLocker(l Locker) MatcherOption {
	return func(m *QueueMatcher) { m.locker = l }
}

// WithJitter replaces the random match-score jitter; tests pin it to zero.
func WithJitter(jitter func() int) MatcherOption {
	return func(m *QueueMatcher) { m.jitter = jitter }
}

func WithMatcherClock(now func() time.Time) MatcherOption {
	return func(m *QueueMatcher) { m.now = now }
}

func WithMatcherLogger(l *slog.Logger) MatcherOption {
	return func(m *QueueMatcher) { m.logger = l }
}

func NewQueueMatcher(queue QueueStore, battles BattleStore, quizzes QuestionSource, engine *BattleEngine, opts ...MatcherOption) *QueueMatcher {
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	var rndMu sync.Mutex
	m := &QueueMatcher{
		queue:   queue,
		battles: battles,
		quizzes: quizzes,
		engine:  engine,
		rules:   engine.Rules(),
		now:     time.Now,
		newID:   uuid.NewString,
		jitter: func() int {
			rndMu.Lock()
			defer rndMu.Unlock()
			return rnd.Intn(2*matchJitter+1) - matchJitter
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// JoinQueue puts the user on the waiting list and immediately tries to pair.
func (m *QueueMatcher) JoinQueue(ctx context.Context, userID, quizID string, queueType domain.QueueType) (domain.QueueEntry, error) {
	if userID == "" || quizID == "" {
		return domain.QueueEntry{}, domain.ErrMissingID
	}
	if !queueType.Valid() {
		return domain.QueueEntry{}, domain.ErrInvalidQueue
	}
	if _, ok, err := m.queue.WaitingEntry(ctx, userID); err != nil {
		return domain.QueueEntry{}, err
	} else if ok {
		return domain.QueueEntry{}, domain.ErrAlreadyQueued
	}
	busy, err := m.battles.HasOpenBattle(ctx, userID)
	if err != nil {
		return domain.QueueEntry{}, err
	}
	if busy {
		return domain.QueueEntry{}, domain.ErrInBattle
	}
	if _, err := m.quizzes.GetQuiz(ctx, quizID); err != nil {
		return domain.QueueEntry{}, err
	}
	allowed, err := m.quizzes.UserHasQuizAccess(ctx, userID, quizID)
	if err != nil {
		return domain.QueueEntry{}, err
	}
	if !allowed {
		return domain.QueueEntry{}, domain.ErrNoQuizAccess
	}

	entry, err := domain.NewQueueEntry(m.newID(), userID, quizID, queueType, m.now())
	if err != nil {
		return domain.QueueEntry{}, err
	}
	if err := m.queue.Enqueue(ctx, entry); err != nil {
		return domain.QueueEntry{}, err
	}
	m.engine.publish(ctx, domain.QueueJoined{
		EntryID:   entry.ID,
		UserID:    userID,
		QuizID:    quizID,
		QueueType: queueType,
		At:        entry.JoinedAt,
	})

	if _, err := m.ProcessQueue(ctx); err != nil {
		m.logger.Warn("queue processing after join failed", "user_id", userID, "error", err)
	}
	return entry, nil
}

// LeaveQueue cancels the user's waiting entry. Leaving without one is not an error.
func (m *QueueMatcher) LeaveQueue(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, domain.ErrMissingID
	}
	return m.queue.CancelWaiting(ctx, userID)
}

// QueueStatus describes where a user stands in matchmaking.
type QueueStatus struct {
	InQueue     bool               `json:"inQueue"`
	Entry       *domain.QueueEntry `json:"entry,omitempty"`
	WaitSeconds float64            `json:"waitSeconds"`
}

func (m *QueueMatcher) QueueStatus(ctx context.Context, userID string) (QueueStatus, error) {
	if userID == "" {
		return QueueStatus{}, domain.ErrMissingID
	}
	entry, ok, err := m.queue.WaitingEntry(ctx, userID)
	if err != nil || !ok {
		return QueueStatus{}, err
	}
	return QueueStatus{
		InQueue:     true,
		Entry:       &entry,
		WaitSeconds: m.now().Sub(entry.JoinedAt).Seconds(),
	}, nil
}

// MatchResult answers a client's "has a match been found" poll.
type MatchResult struct {
	Matched bool           `json:"matched"`
	Battle  *domain.Battle `json:"battle,omitempty"`
}

// CheckMatch reports the user's most recent match that is still pending or active.
func (m *QueueMatcher) CheckMatch(ctx context.Context, userID string) (MatchResult, error) {
	if userID == "" {
		return MatchResult{}, domain.ErrMissingID
	}
	since := m.now().Add(-m.rules.QueueTimeout)
	entry, ok, err := m.queue.LatestMatch(ctx, userID, since)
	if err != nil || !ok {
		return MatchResult{}, err
	}
	battle, err := m.battles.GetBattle(ctx, entry.BattleID)
	if err != nil {
		return MatchResult{}, err
	}
	if battle.Status.Terminal() {
		return MatchResult{}, nil
	}
	return MatchResult{Matched: true, Battle: &battle}, nil
}

// ProcessQueue runs one greedy pairing pass over every quiz and returns the battles created.
func (m *QueueMatcher) ProcessQueue(ctx context.Context) ([]domain.Battle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.locker != nil {
		release, ok, err := m.locker.TryLock(ctx, matchLockKey, matchLockTTL)
		if err != nil {
			return nil, err
		}
		if !ok {
			m.logger.Debug("matching pass skipped, lock held elsewhere")
			return nil, nil
		}
		defer release()
	}

	waiting, err := m.queue.ListWaiting(ctx)
	if err != nil {
		return nil, err
	}
	byQuiz := make(map[string][]domain.QueueEntry)
	var quizOrder []string
	for _, e := range waiting {
		if _, seen := byQuiz[e.QuizID]; !seen {
			quizOrder = append(quizOrder, e.QuizID)
		}
		byQuiz[e.QuizID] = append(byQuiz[e.QuizID], e)
	}

	var created []domain.Battle
	for _, quizID := range quizOrder {
		entries := byQuiz[quizID]
		if len(entries) < 2 {
			continue
		}
		battles, err := m.pairQuiz(ctx, entries)
		created = append(created, battles...)
		if err != nil {
			return created, err
		}
	}
	return created, nil
}

func (m *QueueMatcher) pairQuiz(ctx context.Context, entries []domain.QueueEntry) ([]domain.Battle, error) {
	ratings := make(map[string]int, len(entries))
	for _, e := range entries {
		stats, err := m.battles.GetStats(ctx, e.UserID)
		if err != nil {
			return nil, err
		}
		ratings[e.UserID] = stats.Rating
	}

	now := m.now()
	used := make([]bool, len(entries))
	var created []domain.Battle
	for i := range entries {
		if used[i] {
			continue
		}
		best, bestScore := m.bestPartner(entries, used, i, ratings, now)
		var battle domain.Battle
		for best >= 0 {
			var ok bool
			var err error
			battle, ok, err = m.engine.openQueueBattle(ctx, m.queue, entries[i], entries[best])
			if err != nil {
				return created, err
			}
			if ok {
				break
			}
			m.logger.Debug("queue pair skipped", "first", entries[i].UserID, "second", entries[best].UserID)
			free, err := m.stillAvailable(ctx, entries[i])
			if err != nil {
				return created, err
			}
			if !free {
				used[i] = true
				break
			}
			// the partner is the one that went away; try the next best
			used[best] = true
			best, bestScore = m.bestPartner(entries, used, i, ratings, now)
		}
		if used[i] || best < 0 {
			continue
		}
		used[i], used[best] = true, true
		created = append(created, battle)
		m.logger.Info("queue match created",
			"battle_id", battle.ID, "quiz_id", battle.QuizID,
			"challenger", battle.ChallengerID, "opponent", battle.OpponentID, "score", bestScore)
		m.engine.publish(ctx, domain.QueueMatchedEvent{
			BattleID: battle.ID,
			QuizID:   battle.QuizID,
			Players:  []string{battle.ChallengerID, battle.OpponentID},
			Score:    bestScore,
			At:       now,
		})
	}
	return created, nil
}

// bestPartner returns the highest scoring unused entry after i, or -1.
func (m *QueueMatcher) bestPartner(entries []domain.QueueEntry, used []bool, i int, ratings map[string]int, now time.Time) (int, int) {
	best, bestScore := -1, -1
	for j := i + 1; j < len(entries); j++ {
		if used[j] || entries[j].UserID == entries[i].UserID {
			continue
		}
		if score := m.matchScore(entries[i], entries[j], ratings, now); score > bestScore {
			best, bestScore = j, score
		}
	}
	return best, bestScore
}

// stillAvailable reports whether the entry is still waiting and its user is free to play.
func (m *QueueMatcher) stillAvailable(ctx context.Context, entry domain.QueueEntry) (bool, error) {
	waiting, ok, err := m.queue.WaitingEntry(ctx, entry.UserID)
	if err != nil || !ok || waiting.ID != entry.ID {
		return false, err
	}
	busy, err := m.battles.HasOpenBattle(ctx, entry.UserID)
	return !busy, err
}

// matchScore rates how good a pairing is on a 0..100 scale.
func (m *QueueMatcher) matchScore(a, b domain.QueueEntry, ratings map[string]int, now time.Time) int {
	score := matchBaseScore
	if a.QueueType == domain.QueueSkill || b.QueueType == domain.QueueSkill {
		diff := ratings[a.UserID] - ratings[b.UserID]
		if diff < 0 {
			diff = -diff
		}
		score += max(0, matchSkillBonusMax-diff/4)
	}
	avgWait := (now.Sub(a.JoinedAt).Minutes() + now.Sub(b.JoinedAt).Minutes()) / 2
	score += min(matchWaitBonusMax, max(0, int(avgWait)))
	score += m.jitter()
	return min(100, max(0, score))
}

// CleanupExpired expires waiting entries older than the queue timeout.
func (m *QueueMatcher) CleanupExpired(ctx context.Context) (int, error) {
	return m.queue.ExpireWaiting(ctx, m.now().Add(-m.rules.QueueTimeout))
}

func (m *QueueMatcher) QueueStats(ctx context.Context) (domain.QueueStats, error) {
	return m.queue.QueueStats(ctx, m.now())
}
