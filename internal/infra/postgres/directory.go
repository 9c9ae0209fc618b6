package postgres

import (
	"context"
	"errors"

	"quiz-battle-arena/internal/domain"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Directory resolves users from the users table.
type Directory struct {
	pool *pgxpool.Pool
}

func NewDirectory(pool *pgxpool.Pool) *Directory {
	return &Directory{pool: pool}
}

func (d *Directory) GetUser(ctx context.Context, userID string) (domain.User, error) {
	user := domain.User{ID: userID}
	err := d.pool.QueryRow(ctx, `SELECT display_name, email FROM users WHERE id=$1`, userID).
		Scan(&user.DisplayName, &user.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, domain.StorageError("get user", err)
	}
	return user, nil
}

// PutUser inserts or renames a user.
func (d *Directory) PutUser(ctx context.Context, user domain.User) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO users (id, display_name, email) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET display_name = EXCLUDED.display_name, email = EXCLUDED.email`,
		user.ID, user.DisplayName, user.Email)
	if err != nil {
		return domain.StorageError("put user", err)
	}
	return nil
}
