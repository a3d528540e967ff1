package driven

import "context"

// SearchEngine provides keyword search operations.
// Backed by the in-process BM25 index. It complements semantic search
// by catching abbreviations, product names and IDs that embeddings
// miss.
type SearchEngine interface {
	// Build replaces the entire index with the given corpus. Chunk
	// IDs and contents must have equal length; metadata is optional
	// per-chunk. Empty inputs are a logged no-op.
	Build(ctx context.Context, chunkIDs []string, contents []string, metadata []map[string]string) error

	// Search performs a keyword search and returns the top-k chunk
	// IDs by descending BM25 score, excluding zero or negative
	// scores. An unbuilt index yields an empty result, never an
	// error.
	Search(ctx context.Context, query string, k int) ([]SearchHit, error)

	// Save persists the tokenized corpus for fast restarts.
	Save(path string) error

	// Load restores a saved corpus. Rebuilding from the persisted
	// corpus reproduces identical scores.
	Load(path string) error
}

// SearchHit represents a keyword search result.
type SearchHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Score is the BM25 relevance score.
	Score float64
}
