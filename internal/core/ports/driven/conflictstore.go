package driven

import (
	"context"

	"github.com/custodia-labs/curator/internal/core/domain"
)

// ConflictStore persists detected conflicts between chunk pairs.
type ConflictStore interface {
	// Save stores a new conflict.
	Save(ctx context.Context, conflict domain.Conflict) error

	// Get retrieves a conflict by ID.
	Get(ctx context.Context, id string) (*domain.Conflict, error)

	// FindOpenPair returns the open conflict for a chunk pair, if
	// any. The pair is matched order-independently.
	FindOpenPair(ctx context.Context, chunkIDA, chunkIDB string) (*domain.Conflict, error)

	// ListOpen retrieves all open conflicts, newest first.
	ListOpen(ctx context.Context) ([]domain.Conflict, error)

	// UpdateStatus closes a conflict (dismissed or resolved).
	UpdateStatus(ctx context.Context, id string, status domain.ConflictStatus) error
}
