package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/curator/internal/core/domain"
	"github.com/custodia-labs/curator/internal/core/ports/driven"
)

// Ensure ConflictStore implements the interface.
var _ driven.ConflictStore = (*ConflictStore)(nil)

// ConflictStore is an in-memory implementation of driven.ConflictStore.
type ConflictStore struct {
	mu        sync.RWMutex
	conflicts map[string]domain.Conflict
}

// NewConflictStore creates a new in-memory conflict store.
func NewConflictStore() *ConflictStore {
	return &ConflictStore{
		conflicts: make(map[string]domain.Conflict),
	}
}

// Save stores a new conflict. The pair is normalised before writing.
func (s *ConflictStore) Save(_ context.Context, conflict domain.Conflict) error {
	if conflict.ID == "" {
		return domain.ErrInvalidInput
	}
	conflict.ChunkIDA, conflict.ChunkIDB = domain.NormalisePair(conflict.ChunkIDA, conflict.ChunkIDB)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conflicts[conflict.ID] = conflict
	return nil
}

// Get retrieves a conflict by ID.
func (s *ConflictStore) Get(_ context.Context, id string) (*domain.Conflict, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conflict, ok := s.conflicts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &conflict, nil
}

// FindOpenPair returns the open conflict for a chunk pair, if any.
func (s *ConflictStore) FindOpenPair(_ context.Context, chunkIDA, chunkIDB string) (*domain.Conflict, error) {
	a, b := domain.NormalisePair(chunkIDA, chunkIDB)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, conflict := range s.conflicts {
		if conflict.Status == domain.ConflictOpen &&
			conflict.ChunkIDA == a && conflict.ChunkIDB == b {
			c := conflict
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

// ListOpen retrieves all open conflicts, newest first.
func (s *ConflictStore) ListOpen(_ context.Context) ([]domain.Conflict, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var conflicts []domain.Conflict
	for _, conflict := range s.conflicts {
		if conflict.Status == domain.ConflictOpen {
			conflicts = append(conflicts, conflict)
		}
	}
	sort.SliceStable(conflicts, func(i, j int) bool {
		return conflicts[i].DetectedAt.After(conflicts[j].DetectedAt)
	})
	return conflicts, nil
}

// UpdateStatus closes a conflict.
func (s *ConflictStore) UpdateStatus(_ context.Context, id string, status domain.ConflictStatus) error {
	if !status.IsValid() {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	conflict, ok := s.conflicts[id]
	if !ok {
		return domain.ErrNotFound
	}
	conflict.Status = status
	conflict.ResolvedAt = time.Now().UTC()
	s.conflicts[id] = conflict
	return nil
}
