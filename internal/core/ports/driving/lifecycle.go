package driving

import (
	"context"

	"github.com/custodia-labs/curator/internal/core/domain"
)

// LifecycleService runs the periodic batch maintenance jobs. Each job
// is single-flight per type and may run concurrently with live query
// traffic.
type LifecycleService interface {
	// RecalculateScores applies usage-adjusted decay to all active
	// chunks. Idempotent: a second run with no new feedback or access
	// produces identical scores.
	RecalculateScores(ctx context.Context) (*domain.BatchSummary, error)

	// RunArchival moves low-score or stale chunks to cold storage and
	// hard-archives expired cold-storage chunks.
	RunArchival(ctx context.Context) (*domain.BatchSummary, error)

	// DetectObsolete flags chunks for review by age, score and
	// negative-feedback signals, sorted by severity.
	DetectObsolete(ctx context.Context) ([]domain.ObsoleteFlag, error)

	// DetectConflicts scans the given chunks (all chunks when empty)
	// for contradictions against semantically similar neighbours.
	DetectConflicts(ctx context.Context, chunkIDs []string) (*domain.BatchSummary, error)
}
