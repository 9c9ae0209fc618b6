package memory

import (
	"context"
	"sync"

	"quiz-battle-arena/internal/domain"
)

// Directory is an in-memory identity provider.
type Directory struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

func NewDirectory(users ...domain.User) *Directory {
	d := &Directory{users: make(map[string]domain.User, len(users))}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

func (d *Directory) Put(user domain.User) {
	d.mu.Lock()
	d.users[user.ID] = user
	d.mu.Unlock()
}

func (d *Directory) GetUser(_ context.Context, userID string) (domain.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if u, ok := d.users[userID]; ok {
		return u, nil
	}
	return domain.User{}, domain.ErrUserNotFound
}
