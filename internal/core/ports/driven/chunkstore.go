package driven

import (
	"context"

	"github.com/custodia-labs/curator/internal/core/domain"
)

// ChunkStore provides persistence for chunks.
type ChunkStore interface {
	// SaveChunks stores or updates chunks. Saves are idempotent:
	// content-identical chunks keep their IDs and are not recreated.
	SaveChunks(ctx context.Context, chunks []domain.Chunk) error

	// GetChunk retrieves a chunk by ID.
	GetChunk(ctx context.Context, id string) (*domain.Chunk, error)

	// ListByPage retrieves all chunks for a page ordered by index.
	ListByPage(ctx context.Context, pageID string) ([]domain.Chunk, error)

	// ListAll retrieves every stored chunk. Used for index rebuilds
	// and batch maintenance.
	ListAll(ctx context.Context) ([]domain.Chunk, error)

	// DeleteChunk removes a chunk.
	DeleteChunk(ctx context.Context, id string) error

	// DeleteByPage removes all chunks for a page.
	DeleteByPage(ctx context.Context, pageID string) error
}
