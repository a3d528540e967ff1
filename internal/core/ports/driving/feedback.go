package driving

import (
	"context"

	"github.com/custodia-labs/curator/internal/core/domain"
)

// FeedbackService accepts user signals on chunks. The quality score
// is the source of truth and is updated first; the immutable event is
// recorded afterwards for analytics.
type FeedbackService interface {
	// SubmitFeedback applies a feedback event to a chunk's quality
	// score and records it.
	SubmitFeedback(ctx context.Context, chunkID, userID string, ft domain.FeedbackType, comment string) (*domain.QualityScore, error)

	// RepromoteChunk is the explicit admin action that moves a
	// deprecated chunk back to active.
	RepromoteChunk(ctx context.Context, chunkID string) error
}
