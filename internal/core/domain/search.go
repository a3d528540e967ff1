package domain

import "time"

// Default and maximum result counts for search requests.
const (
	DefaultTopK = 10
	MaxTopK     = 100
)

// SearchFilters narrow an already-ranked result list. Filters never
// re-rank; they only remove entries.
type SearchFilters struct {
	// SpaceKey restricts results to one space.
	SpaceKey string

	// DocType restricts results to one document classification.
	DocType string

	// Topics requires at least one matching topic label.
	Topics []string

	// UpdatedAfter drops chunks whose page was last modified before
	// this time.
	UpdatedAfter time.Time
}

// Empty returns true when no filter is set.
func (f SearchFilters) Empty() bool {
	return f.SpaceKey == "" && f.DocType == "" && len(f.Topics) == 0 && f.UpdatedAfter.IsZero()
}

// SearchOptions configures a search query.
type SearchOptions struct {
	// TopK is the maximum number of results (default 10, capped at 100).
	TopK int

	// Filters narrow the ranked results.
	Filters SearchFilters

	// IncludeContent controls whether chunk content is returned.
	IncludeContent bool

	// ApplyQualityBoost blends chunk quality into the final ranking.
	// Enabled by default by callers.
	ApplyQualityBoost bool
}

// SearchResult represents a single search hit after fusion and
// quality boosting.
type SearchResult struct {
	// Chunk is the matched chunk.
	Chunk Chunk

	// Score is the final relevance score after quality boosting.
	Score float64

	// FusedScore is the relevance score before quality boosting.
	FusedScore float64

	// QualityScore is the chunk's trust score at query time.
	QualityScore float64

	// SourceRanks records the 0-indexed rank this chunk held in each
	// contributing retrieval source ("keyword", "vector", "graph").
	SourceRanks map[string]int
}

// SearchResponse is the full answer to a search request.
type SearchResponse struct {
	// Query is the original query string.
	Query string

	// Results are the ranked hits.
	Results []SearchResult

	// TotalFound is the number of candidates before pagination.
	TotalFound int

	// TookMs is the server-side processing time.
	TookMs int64

	// Degraded is true when one or more retrieval backends were
	// unavailable. Callers should treat empty degraded results as
	// "no knowledge", not as an error.
	Degraded bool
}

// RankedResult is an ephemeral fusion output entry. It exists only
// for the duration of a search request and is never persisted.
type RankedResult struct {
	// ChunkID is the candidate chunk.
	ChunkID string

	// Score is the fused relevance score.
	Score float64

	// SourceRanks maps source name to the 0-indexed rank the chunk
	// held in that source's list.
	SourceRanks map[string]int
}
