package memory

import (
	"context"
	"sort"
	"sync"

	"adaptive-quiz-service/internal/domain"
)

// UserStore is an in-memory implementation of app.UserStore.
type UserStore struct {
	mu         sync.RWMutex
	nextID     int64
	users      map[int64]domain.User
	byEmail    map[string]int64
	byUsername map[string]int64
	usedTokens map[string]struct{}
	onDelete   []func(userID int64)
}

func NewUserStore() *UserStore {
	return &UserStore{
		users:      make(map[int64]domain.User),
		byEmail:    make(map[string]int64),
		byUsername: make(map[string]int64),
		usedTokens: make(map[string]struct{}),
	}
}

func (s *UserStore) CreateUser(_ context.Context, user domain.User) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[user.Email]; ok {
		return domain.User{}, domain.ErrUserExists
	}
	if _, ok := s.byUsername[user.Username]; ok {
		return domain.User{}, domain.ErrUserExists
	}
	s.nextID++
	user.ID = s.nextID
	s.users[user.ID] = user
	s.byEmail[user.Email] = user.ID
	s.byUsername[user.Username] = user.ID
	return user, nil
}

func (s *UserStore) UserByEmail(_ context.Context, email string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return s.users[id], nil
}

func (s *UserStore) UserByID(_ context.Context, id int64) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

func (s *UserStore) UpdatePassword(_ context.Context, id int64, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	user.PasswordHash = hash
	s.users[id] = user
	return nil
}

func (s *UserStore) ConsumeResetToken(_ context.Context, tokenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.usedTokens[tokenID]; ok {
		return domain.ErrTokenUsed
	}
	s.usedTokens[tokenID] = struct{}{}
	return nil
}

func (s *UserStore) ListUsers(_ context.Context) ([]domain.User, error) {
	s.mu.RLock()
	users := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	s.mu.RUnlock()

	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

// OnDelete registers fn to run after a user is deleted, so the other stores
// can drop what the user owned.
func (s *UserStore) OnDelete(fn func(userID int64)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDelete = append(s.onDelete, fn)
}

func (s *UserStore) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	user, ok := s.users[id]
	if !ok {
		s.mu.Unlock()
		return domain.ErrUserNotFound
	}
	delete(s.users, id)
	delete(s.byEmail, user.Email)
	delete(s.byUsername, user.Username)
	hooks := append([]func(int64){}, s.onDelete...)
	s.mu.Unlock()

	for _, fn := range hooks {
		fn(id)
	}
	return nil
}
