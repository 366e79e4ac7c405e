package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"regdesk/internal/user/models"
	id "regdesk/pkg/domain"
	"regdesk/pkg/platform/sentinel"
)

// MemoryStore is the in-memory user store for unit tests and local runs.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[id.UserID]*models.User
}

// NewMemory constructs an empty in-memory user store.
func NewMemory() *MemoryStore {
	return &MemoryStore{users: make(map[id.UserID]*models.User)}
}

func (s *MemoryStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return sentinel.ErrConflict
		}
	}
	if _, exists := s.users[user.ID]; exists {
		return sentinel.ErrConflict
	}
	dup := *user
	s.users[user.ID] = &dup
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, found := s.users[userID]
	if !found {
		return nil, sentinel.ErrNotFound
	}
	dup := *user
	return &dup, nil
}

func (s *MemoryStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) {
			dup := *user
			return &dup, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) List(_ context.Context) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.User, 0, len(s.users))
	for _, user := range s.users {
		dup := *user
		out = append(out, &dup)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}
