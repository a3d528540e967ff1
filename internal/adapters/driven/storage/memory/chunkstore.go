package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/curator/internal/core/domain"
	"github.com/custodia-labs/curator/internal/core/ports/driven"
)

// Ensure ChunkStore implements the interface.
var _ driven.ChunkStore = (*ChunkStore)(nil)

// ChunkStore is an in-memory implementation of driven.ChunkStore.
type ChunkStore struct {
	mu     sync.RWMutex
	chunks map[string]domain.Chunk
}

// NewChunkStore creates a new in-memory chunk store.
func NewChunkStore() *ChunkStore {
	return &ChunkStore{
		chunks: make(map[string]domain.Chunk),
	}
}

// SaveChunks stores or updates chunks.
func (s *ChunkStore) SaveChunks(_ context.Context, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, chunk := range chunks {
		s.chunks[chunk.ID] = chunk
	}
	return nil
}

// GetChunk retrieves a chunk by ID.
func (s *ChunkStore) GetChunk(_ context.Context, id string) (*domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunk, ok := s.chunks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &chunk, nil
}

// ListByPage retrieves all chunks for a page ordered by index.
func (s *ChunkStore) ListByPage(_ context.Context, pageID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var chunks []domain.Chunk
	for _, chunk := range s.chunks {
		if chunk.PageID == pageID {
			chunks = append(chunks, chunk)
		}
	}
	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].Index < chunks[j].Index
	})
	return chunks, nil
}

// ListAll retrieves every stored chunk.
func (s *ChunkStore) ListAll(_ context.Context) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunks := make([]domain.Chunk, 0, len(s.chunks))
	for _, chunk := range s.chunks {
		chunks = append(chunks, chunk)
	}
	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].ID < chunks[j].ID
	})
	return chunks, nil
}

// DeleteChunk removes a chunk.
func (s *ChunkStore) DeleteChunk(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chunks, id)
	return nil
}

// DeleteByPage removes all chunks for a page.
func (s *ChunkStore) DeleteByPage(_ context.Context, pageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, chunk := range s.chunks {
		if chunk.PageID == pageID {
			delete(s.chunks, id)
		}
	}
	return nil
}
