package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"quiz-battle-arena/internal/domain"

	"golang.org/x/sync/singleflight"
)

// QuizLoader fetches quiz content and access rules from a backing store.
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	UserHasQuizAccess(ctx context.Context, userID, quizID string) (bool, error)
}

// QuizRepository caches quizzes with TTL to avoid repeated DB hits.
// Access checks are never cached.
type QuizRepository struct {
	loader QuizLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedQuiz
}

type cachedQuiz struct {
	quiz      domain.Quiz
	expiresAt time.Time
}

func NewQuizRepository(loader QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedQuiz),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := r.cached(quizID); ok {
		return quiz, nil
	}

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		if quiz, ok := r.cached(quizID); ok {
			return quiz, nil
		}
		quiz, err := r.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}
		r.mu.Lock()
		r.cache[quizID] = cachedQuiz{quiz: quiz, expiresAt: r.clock().Add(r.ttlWithJitter())}
		r.mu.Unlock()
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

func (r *QuizRepository) UserHasQuizAccess(ctx context.Context, userID, quizID string) (bool, error) {
	return r.loader.UserHasQuizAccess(ctx, userID, quizID)
}

// Invalidate drops a cached quiz so the next read reloads it.
func (r *QuizRepository) Invalidate(quizID string) {
	r.mu.Lock()
	delete(r.cache, quizID)
	r.mu.Unlock()
}

func (r *QuizRepository) cached(quizID string) (domain.Quiz, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[quizID]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return domain.Quiz{}, false
	}
	return entry.quiz, true
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticQuizLoader is backed by in-memory maps (useful for tests/demos).
// A quiz with no roster is open to everyone once published.
type StaticQuizLoader struct {
	quizzes map[string]domain.Quiz
	rosters map[string]map[string]bool
}

func NewStaticQuizLoader(quizzes map[string]domain.Quiz) *StaticQuizLoader {
	return &StaticQuizLoader{quizzes: quizzes, rosters: make(map[string]map[string]bool)}
}

// Restrict limits a quiz to the given users.
func (l *StaticQuizLoader) Restrict(quizID string, userIDs ...string) *StaticQuizLoader {
	roster := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		roster[id] = true
	}
	l.rosters[quizID] = roster
	return l
}

func (l *StaticQuizLoader) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := l.quizzes[quizID]; ok {
		return quiz, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

func (l *StaticQuizLoader) UserHasQuizAccess(_ context.Context, userID, quizID string) (bool, error) {
	quiz, ok := l.quizzes[quizID]
	if !ok || !quiz.Published {
		return false, nil
	}
	if roster, restricted := l.rosters[quizID]; restricted {
		return roster[userID], nil
	}
	return true, nil
}
