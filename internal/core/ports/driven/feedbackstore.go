package driven

import (
	"context"

	"github.com/custodia-labs/curator/internal/core/domain"
)

// FeedbackStore persists feedback events. Events are append-only;
// only the review annotation may change after creation.
type FeedbackStore interface {
	// Append stores a new feedback event.
	Append(ctx context.Context, event domain.FeedbackEvent) error

	// ListByChunk retrieves all events for a chunk, newest first.
	ListByChunk(ctx context.Context, chunkID string) ([]domain.FeedbackEvent, error)

	// Stats summarises feedback counts for a chunk.
	Stats(ctx context.Context, chunkID string) (domain.FeedbackStats, error)

	// MarkReviewed sets the admin review flag on an event.
	MarkReviewed(ctx context.Context, eventID string) error
}
