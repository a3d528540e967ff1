package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/curator/internal/core/domain"
	"github.com/custodia-labs/curator/internal/core/ports/driven"
)

// Ensure QualityStore implements the interface.
var _ driven.QualityStore = (*QualityStore)(nil)

// QualityStore is an in-memory implementation of driven.QualityStore.
type QualityStore struct {
	mu     sync.RWMutex
	scores map[string]domain.QualityScore
}

// NewQualityStore creates a new in-memory quality store.
func NewQualityStore() *QualityStore {
	return &QualityStore{
		scores: make(map[string]domain.QualityScore),
	}
}

// Get retrieves the quality state for a chunk.
func (s *QualityStore) Get(_ context.Context, chunkID string) (*domain.QualityScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	score, ok := s.scores[chunkID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &score, nil
}

// Save stores or updates quality state.
func (s *QualityStore) Save(_ context.Context, score domain.QualityScore) error {
	if score.ChunkID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[score.ChunkID] = score
	return nil
}

// List retrieves all quality records.
func (s *QualityStore) List(_ context.Context) ([]domain.QualityScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	scores := make([]domain.QualityScore, 0, len(s.scores))
	for _, score := range s.scores {
		scores = append(scores, score)
	}
	sort.Slice(scores, func(i, j int) bool {
		return scores[i].ChunkID < scores[j].ChunkID
	})
	return scores, nil
}

// ListByStatus retrieves records in a given lifecycle state.
func (s *QualityStore) ListByStatus(
	_ context.Context, status domain.QualityStatus,
) ([]domain.QualityScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var scores []domain.QualityScore
	for _, score := range s.scores {
		if score.Status == status {
			scores = append(scores, score)
		}
	}
	sort.Slice(scores, func(i, j int) bool {
		return scores[i].ChunkID < scores[j].ChunkID
	})
	return scores, nil
}

// Delete removes quality state for a chunk.
func (s *QualityStore) Delete(_ context.Context, chunkID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.scores, chunkID)
	return nil
}
