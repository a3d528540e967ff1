package driving

import (
	"context"

	"github.com/custodia-labs/curator/internal/core/domain"
)

// SearchService provides quality-boosted hybrid search to external
// actors.
type SearchService interface {
	// Search runs keyword, vector and graph retrieval, fuses the
	// ranked lists and applies quality boosting. Backend outages
	// yield empty degraded results, never an error surfaced to the
	// conversation.
	Search(ctx context.Context, query string, opts domain.SearchOptions) (*domain.SearchResponse, error)
}
