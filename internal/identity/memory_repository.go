package identity

import (
	"context"
	"strings"
	"sync"
)

type memoryRepository struct {
	mu    sync.RWMutex
	users map[string]User
}

// NewMemoryRepository builds an in-memory user store for testing.
func NewMemoryRepository() Repository {
	return &memoryRepository{users: make(map[string]User)}
}

func (r *memoryRepository) Create(_ context.Context, user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.Email = strings.ToLower(user.Email)
	for _, existing := range r.users {
		if existing.Email == user.Email || (user.Username != "" && existing.Username == user.Username) {
			return ErrUserExists
		}
	}
	r.users[user.ID] = user
	return nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (r *memoryRepository) FindByEmail(_ context.Context, email string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.find(func(u User) bool { return u.Email == email })
}

func (r *memoryRepository) FindByUsername(_ context.Context, username string) (User, error) {
	username = strings.TrimSpace(username)
	return r.find(func(u User) bool { return u.Username == username })
}

func (r *memoryRepository) find(match func(User) bool) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if match(user) {
			return user, nil
		}
	}
	return User{}, ErrUserNotFound
}
