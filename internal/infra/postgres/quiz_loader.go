package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"quiz-battle-arena/internal/domain"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuizLoader loads quiz JSONB and access rosters from Postgres.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var (
		raw       []byte
		published bool
	)
	err := l.pool.QueryRow(ctx, `SELECT data, published FROM quizzes WHERE id=$1`, quizID).Scan(&raw, &published)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, domain.StorageError("load quiz", err)
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal quiz %s: %w", quizID, err)
	}
	quiz.ID, quiz.Published = quizID, published
	return quiz, nil
}

// UserHasQuizAccess allows a published quiz to everyone unless it has a roster.
func (l *QuizLoader) UserHasQuizAccess(ctx context.Context, userID, quizID string) (bool, error) {
	var allowed bool
	err := l.pool.QueryRow(ctx, `
		SELECT q.published AND (
			NOT EXISTS (SELECT 1 FROM quiz_access a WHERE a.quiz_id = q.id)
			OR EXISTS (SELECT 1 FROM quiz_access a WHERE a.quiz_id = q.id AND a.user_id = $2)
		)
		FROM quizzes q WHERE q.id = $1`, quizID, userID).Scan(&allowed)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, domain.StorageError("quiz access", err)
	}
	return allowed, nil
}

// SaveQuiz upserts quiz content and replaces its roster. An empty roster opens the quiz.
func (l *QuizLoader) SaveQuiz(ctx context.Context, quiz domain.Quiz, roster ...string) error {
	raw, err := json.Marshal(quiz)
	if err != nil {
		return fmt.Errorf("marshal quiz %s: %w", quiz.ID, err)
	}
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return domain.StorageError("save quiz", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO quizzes (id, data, published) VALUES ($1, $2::jsonb, $3)
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, published = EXCLUDED.published`,
		quiz.ID, string(raw), quiz.Published); err != nil {
		return domain.StorageError("save quiz", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM quiz_access WHERE quiz_id = $1`, quiz.ID); err != nil {
		return domain.StorageError("save quiz", err)
	}
	for _, userID := range roster {
		if _, err := tx.Exec(ctx, `INSERT INTO quiz_access (quiz_id, user_id) VALUES ($1, $2)`, quiz.ID, userID); err != nil {
			return domain.StorageError("save quiz", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.StorageError("save quiz", err)
	}
	return nil
}
