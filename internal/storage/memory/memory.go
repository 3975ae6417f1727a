// Package memory provides an in-memory RegistrationStore. It is safe for
// concurrent use and is primarily intended for tests and local development.
package memory

import (
	"context"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/verdant-network/reward-layer/internal/domain/submission"
	"github.com/verdant-network/reward-layer/internal/storage"
)

// Store is an in-memory implementation of storage.RegistrationStore.
type Store struct {
	mu            sync.RWMutex
	registrations map[string]submission.Registration
	batchRuns     map[string]storage.BatchRun
}

var _ storage.RegistrationStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		registrations: make(map[string]submission.Registration),
		batchRuns:     make(map[string]storage.BatchRun),
	}
}

func cloneRegistration(reg submission.Registration) submission.Registration {
	if reg.Amount != nil {
		reg.Amount = new(big.Int).Set(reg.Amount)
	}
	return reg
}

func (s *Store) CreateRegistration(_ context.Context, reg submission.Registration) (submission.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	reg.CreatedAt = now
	reg.UpdatedAt = now

	s.registrations[reg.ID] = cloneRegistration(reg)
	return reg, nil
}

func (s *Store) UpdateRegistration(_ context.Context, reg submission.Registration) (submission.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.registrations[reg.ID]
	if !ok {
		return submission.Registration{}, storage.ErrNotFound
	}

	reg.CreatedAt = existing.CreatedAt
	reg.UpdatedAt = time.Now().UTC()
	s.registrations[reg.ID] = cloneRegistration(reg)
	return reg, nil
}

func (s *Store) GetRegistration(_ context.Context, id string) (submission.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reg, ok := s.registrations[id]
	if !ok {
		return submission.Registration{}, storage.ErrNotFound
	}
	return cloneRegistration(reg), nil
}

func (s *Store) ListRegistrations(_ context.Context, address string) ([]submission.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []submission.Registration
	for _, reg := range s.registrations {
		if address == "" || reg.Address == address {
			result = append(result, cloneRegistration(reg))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *Store) CreateBatchRun(_ context.Context, run storage.BatchRun) (storage.BatchRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	run.CreatedAt = time.Now().UTC()
	s.batchRuns[run.ID] = run
	return run, nil
}
