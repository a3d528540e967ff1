package driven

import (
	"context"

	"github.com/custodia-labs/curator/internal/core/domain"
)

// ArchiveWriter serialises hard-archived chunks to a durable export
// format. Export is the last step before a chunk leaves the active
// indices; restoration is a manual operation outside the pipeline.
type ArchiveWriter interface {
	// Export writes the given records and returns the location of the
	// produced artefact.
	Export(ctx context.Context, records []domain.ArchivedChunk) (string, error)
}
