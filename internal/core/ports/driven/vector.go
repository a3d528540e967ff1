package driven

import "context"

// VectorSearcher provides semantically and relationally ranked chunk
// candidates for a query. The core treats it as an opaque ranked-list
// source; embedding model and graph storage are the provider's
// concern.
type VectorSearcher interface {
	// Search returns the top-k semantically ranked candidates.
	Search(ctx context.Context, query string, k int) ([]VectorHit, error)

	// SearchGraph returns candidates ranked by graph-relationship
	// traversal from the query's best matches.
	SearchGraph(ctx context.Context, query string, k int) ([]VectorHit, error)

	// Similar returns chunks above a similarity floor for an existing
	// chunk. Used by conflict detection.
	Similar(ctx context.Context, chunkID string, k int) ([]VectorHit, error)

	// Healthy reports provider availability.
	Healthy(ctx context.Context) bool
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Score is the provider's relevance score. For Similar this is
	// the cosine similarity (0-1).
	Score float64
}
