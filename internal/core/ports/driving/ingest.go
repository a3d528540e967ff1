package driving

import (
	"context"

	"github.com/custodia-labs/curator/internal/core/domain"
)

// IngestService indexes source pages into searchable chunks.
type IngestService interface {
	// IngestPage chunks a page, persists the chunks and refreshes the
	// keyword index. Re-ingesting unchanged content is a no-op for
	// chunk identity and quality state.
	IngestPage(ctx context.Context, page *domain.Page) (*domain.BatchSummary, error)

	// RemovePage deletes a page's chunks and their derived state.
	RemovePage(ctx context.Context, pageID string) error

	// RebuildIndex reconstructs the keyword index from the chunk
	// store.
	RebuildIndex(ctx context.Context) error

	// WarmIndex primes the keyword index on startup, restoring a
	// persisted snapshot when one is available.
	WarmIndex(ctx context.Context) error
}
