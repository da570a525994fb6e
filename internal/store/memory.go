package store

import (
	"context"
	"sort"
	"sync"

	"backend-antrian-bank/internal/models"
)

// MemoryStore keeps entries in process memory. Used for development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []models.QueueEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Insert(_ context.Context, e *models.QueueEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.entries {
		if existing.ID == e.ID {
			return ErrConflict
		}
	}
	s.entries = append(s.entries, *e)
	return nil
}

func (s *MemoryStore) GetByQueueNumber(_ context.Context, queueNumber string) (*models.QueueEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// newest first, insertion order is creation order
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].QueueNumber == queueNumber {
			e := s.entries[i]
			return &e, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (*models.QueueEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(id); i >= 0 {
		e := s.entries[i]
		return &e, nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) Update(_ context.Context, id string, patch models.EntryPatch) (*models.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	patch.Apply(&s.entries[i])
	e := s.entries[i]
	return &e, nil
}

func (s *MemoryStore) ListOrderedByPosition(_ context.Context) ([]models.QueueEntry, error) {
	s.mu.RLock()
	out := make([]models.QueueEntry, len(s.entries))
	copy(out, s.entries)
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// SwapPositions gives a the position of b and b the position of a under one lock.
func (s *MemoryStore) SwapPositions(_ context.Context, a, b models.QueueEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ia, ib := s.indexOf(a.ID), s.indexOf(b.ID)
	if ia < 0 || ib < 0 {
		return ErrNotFound
	}
	s.entries[ia].Position = b.Position
	s.entries[ib].Position = a.Position
	return nil
}

func (s *MemoryStore) indexOf(id string) int {
	for i := range s.entries {
		if s.entries[i].ID == id {
			return i
		}
	}
	return -1
}
