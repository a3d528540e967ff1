package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/curator/internal/core/domain"
	"github.com/custodia-labs/curator/internal/core/ports/driven"
)

// Ensure FeedbackStore implements the interface.
var _ driven.FeedbackStore = (*FeedbackStore)(nil)

// FeedbackStore is an in-memory implementation of driven.FeedbackStore.
type FeedbackStore struct {
	mu     sync.RWMutex
	events []domain.FeedbackEvent
}

// NewFeedbackStore creates a new in-memory feedback store.
func NewFeedbackStore() *FeedbackStore {
	return &FeedbackStore{}
}

// Append stores a new feedback event.
func (s *FeedbackStore) Append(_ context.Context, event domain.FeedbackEvent) error {
	if event.ID == "" || event.ChunkID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// ListByChunk retrieves all events for a chunk, newest first.
func (s *FeedbackStore) ListByChunk(_ context.Context, chunkID string) ([]domain.FeedbackEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var events []domain.FeedbackEvent
	for _, e := range s.events {
		if e.ChunkID == chunkID {
			events = append(events, e)
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].CreatedAt.After(events[j].CreatedAt)
	})
	return events, nil
}

// Stats summarises feedback counts for a chunk.
func (s *FeedbackStore) Stats(_ context.Context, chunkID string) (domain.FeedbackStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var stats domain.FeedbackStats
	for _, e := range s.events {
		if e.ChunkID != chunkID {
			continue
		}
		stats.Total++
		if !e.Type.IsPositive() {
			stats.Negative++
		}
	}
	return stats, nil
}

// MarkReviewed sets the admin review flag on an event.
func (s *FeedbackStore) MarkReviewed(_ context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.events {
		if s.events[i].ID == eventID {
			s.events[i].Reviewed = true
			return nil
		}
	}
	return domain.ErrNotFound
}
