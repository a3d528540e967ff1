package driven

import (
	"context"

	"github.com/custodia-labs/curator/internal/core/domain"
)

// QualityStore persists per-chunk quality state.
//
// The store is a dumb record holder: all scoring logic, clamping and
// state transitions live in the quality scorer service, which is the
// single writer.
type QualityStore interface {
	// Get retrieves the quality state for a chunk.
	Get(ctx context.Context, chunkID string) (*domain.QualityScore, error)

	// Save stores or updates quality state.
	Save(ctx context.Context, score domain.QualityScore) error

	// List retrieves all quality records.
	List(ctx context.Context) ([]domain.QualityScore, error)

	// ListByStatus retrieves records in a given lifecycle state.
	ListByStatus(ctx context.Context, status domain.QualityStatus) ([]domain.QualityScore, error)

	// Delete removes quality state for a chunk.
	Delete(ctx context.Context, chunkID string) error
}
