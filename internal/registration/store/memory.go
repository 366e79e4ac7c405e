package store

import (
	"context"
	"sort"
	"sync"

	"regdesk/internal/registration/models"
	id "regdesk/pkg/domain"
	"regdesk/pkg/platform/sentinel"
)

// MemoryStore is the in-memory Store used by unit tests and local
// development. A single mutex serializes Execute, giving it the same
// lost-update protection the PostgreSQL store gets from row locks.
type MemoryStore struct {
	mu            sync.RWMutex
	registrations map[id.RegistrationID]*models.Registration
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{registrations: make(map[id.RegistrationID]*models.Registration)}
}

func (s *MemoryStore) Create(_ context.Context, reg *models.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.registrations[reg.ID]; exists {
		return sentinel.ErrConflict
	}
	s.registrations[reg.ID] = reg.Clone()
	return nil
}

func (s *MemoryStore) GetByID(_ context.Context, regID id.RegistrationID) (*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reg, found := s.registrations[regID]
	if !found {
		return nil, sentinel.ErrNotFound
	}
	return reg.Clone(), nil
}

func (s *MemoryStore) List(_ context.Context) ([]*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Registration, 0, len(s.registrations))
	for _, reg := range s.registrations {
		out = append(out, reg.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) Execute(_ context.Context, regID id.RegistrationID,
	validate func(*models.Registration) error,
	mutate func(*models.Registration) error,
) (*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, found := s.registrations[regID]
	if !found {
		return nil, sentinel.ErrNotFound
	}

	// Callbacks work on a copy so a failed mutate leaves the stored
	// aggregate untouched.
	working := current.Clone()
	if validate != nil {
		if err := validate(working); err != nil {
			return nil, err
		}
	}
	if err := mutate(working); err != nil {
		return nil, err
	}

	s.registrations[regID] = working
	return working.Clone(), nil
}

func (s *MemoryStore) Delete(_ context.Context, regID id.RegistrationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.registrations[regID]; !found {
		return sentinel.ErrNotFound
	}
	delete(s.registrations, regID)
	return nil
}
