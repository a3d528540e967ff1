package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/curator/internal/core/domain"
	"github.com/custodia-labs/curator/internal/core/ports/driven"
	"github.com/custodia-labs/curator/internal/core/ports/driving"
	"github.com/custodia-labs/curator/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// Retrieval source names used in fusion and result metadata.
const (
	SourceKeyword = "keyword"
	SourceVector  = "vector"
	SourceGraph   = "graph"
)

// SearchWeights are the per-source fusion weights.
type SearchWeights struct {
	Keyword float64
	Vector  float64
	Graph   float64
}

// DefaultSearchWeights weighs all retrieval modalities equally.
func DefaultSearchWeights() SearchWeights {
	return SearchWeights{Keyword: 1.0, Vector: 1.0, Graph: 1.0}
}

// SearchService is the quality-boosted hybrid retriever. It runs the
// keyword, vector and graph legs in parallel, fuses the ranked lists
// with RRF and blends each chunk's current quality score into the
// final ranking.
//
// The retrieval path is request-scoped and stateless: the only shared
// state it touches is read access to the keyword index and the
// quality store, so concurrent queries are safe.
type SearchService struct {
	chunkStore     driven.ChunkStore
	keywordIndex   driven.SearchEngine
	vectorSearcher driven.VectorSearcher
	scorer         *QualityScorer
	weights        SearchWeights
}

// NewSearchService creates a search service. vectorSearcher is
// optional (can be nil); search degrades to keyword-only.
func NewSearchService(
	chunkStore driven.ChunkStore,
	keywordIndex driven.SearchEngine,
	vectorSearcher driven.VectorSearcher,
	scorer *QualityScorer,
	weights SearchWeights,
) *SearchService {
	return &SearchService{
		chunkStore:     chunkStore,
		keywordIndex:   keywordIndex,
		vectorSearcher: vectorSearcher,
		scorer:         scorer,
		weights:        weights,
	}
}

// Search performs hybrid search with quality boosting.
func (s *SearchService) Search(
	ctx context.Context, query string, opts domain.SearchOptions,
) (*domain.SearchResponse, error) {
	logger.Section("Search Execution")
	logger.Debug("Query: %q", query)
	started := time.Now()

	resp := &domain.SearchResponse{Query: query, Results: []domain.SearchResult{}}

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty query: %w", domain.ErrInvalidInput)
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = domain.DefaultTopK
	}
	if topK > domain.MaxTopK {
		topK = domain.MaxTopK
	}

	// Fetch more candidates than requested so post-filters and
	// status checks don't starve the final page.
	internalLimit := topK * 3
	logger.Debug("TopK: %d, internal limit: %d", topK, internalLimit)

	lists, weights, degraded := s.gatherCandidates(ctx, query, internalLimit)
	resp.Degraded = degraded

	if len(lists) == 0 {
		logger.Warn("All retrieval backends unavailable, returning empty degraded result")
		resp.TookMs = time.Since(started).Milliseconds()
		return resp, nil
	}

	fused, err := ReciprocalRankFusion(lists, weights, RRFConstant)
	if err != nil {
		return nil, fmt.Errorf("rank fusion: %w", err)
	}
	logger.Debug("Fused %d candidate lists into %d results", len(lists), len(fused))

	results := s.hydrate(ctx, fused, opts)

	if !opts.Filters.Empty() {
		results = filterResults(results, opts.Filters)
		logger.Debug("After filters: %d results", len(results))
	}

	resp.TotalFound = len(results)
	if len(results) > topK {
		results = results[:topK]
	}
	resp.Results = results
	resp.TookMs = time.Since(started).Milliseconds()

	// Access recording feeds the decay protection window. It is
	// eventually consistent by design; the next query may still see
	// the previous counts.
	s.recordAccess(results)

	logger.Info("Final results: %d (degraded=%t, took=%dms)", len(results), resp.Degraded, resp.TookMs)
	return resp, nil
}

// gatherCandidates runs all available retrieval legs in parallel and
// returns the surviving ranked lists with their fusion weights.
// A failed leg degrades the response instead of failing the query.
func (s *SearchService) gatherCandidates(
	ctx context.Context, query string, limit int,
) ([]RankedList, []float64, bool) {
	var (
		wg          sync.WaitGroup
		keywordHits []driven.SearchHit
		vectorHits  []driven.VectorHit
		graphHits   []driven.VectorHit
		keywordErr  error
		vectorErr   error
		graphErr    error
	)

	vectorUp := s.vectorSearcher != nil && s.vectorSearcher.Healthy(ctx)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if s.keywordIndex == nil {
			keywordErr = domain.ErrSearchUnavailable
			return
		}
		keywordHits, keywordErr = s.keywordIndex.Search(ctx, query, limit)
	}()

	if vectorUp {
		wg.Add(2)
		go func() {
			defer wg.Done()
			vectorHits, vectorErr = s.vectorSearcher.Search(ctx, query, limit)
		}()
		go func() {
			defer wg.Done()
			graphHits, graphErr = s.vectorSearcher.SearchGraph(ctx, query, limit)
		}()
	}

	wg.Wait()

	var lists []RankedList
	var weights []float64
	degraded := !vectorUp && s.vectorSearcher != nil

	if keywordErr != nil {
		logger.Warn("Keyword leg failed: %v", keywordErr)
		degraded = true
	} else {
		lists = append(lists, RankedList{Source: SourceKeyword, Candidates: hitsToCandidates(keywordHits)})
		weights = append(weights, s.weights.Keyword)
	}

	if vectorUp {
		if vectorErr != nil {
			logger.Warn("Vector leg failed: %v", vectorErr)
			degraded = true
		} else {
			lists = append(lists, RankedList{Source: SourceVector, Candidates: vectorToCandidates(vectorHits)})
			weights = append(weights, s.weights.Vector)
		}

		if graphErr != nil {
			logger.Warn("Graph leg failed: %v", graphErr)
			degraded = true
		} else {
			lists = append(lists, RankedList{Source: SourceGraph, Candidates: vectorToCandidates(graphHits)})
			weights = append(weights, s.weights.Graph)
		}
	}

	return lists, weights, degraded
}

// hydrate resolves fused chunk IDs into full results, applies quality
// boosting and drops chunks retired from default visibility.
func (s *SearchService) hydrate(
	ctx context.Context, fused []domain.RankedResult, opts domain.SearchOptions,
) []domain.SearchResult {
	cfg := s.scorer.Config()
	results := make([]domain.SearchResult, 0, len(fused))

	for _, rr := range fused {
		chunk, err := s.chunkStore.GetChunk(ctx, rr.ChunkID)
		if err != nil {
			// Deleted since indexing; skip quietly.
			logger.Debug("Skipping unresolvable chunk %s: %v", rr.ChunkID, err)
			continue
		}

		quality := domain.MaxScore / 2 // neutral midpoint when unscored
		if qs, err := s.scorer.Get(ctx, rr.ChunkID); err == nil {
			if qs.Status == domain.StatusColdStorage || qs.Status == domain.StatusHardArchived {
				continue
			}
			quality = qs.Score
		}

		final := rr.Score
		if opts.ApplyQualityBoost {
			final = BoostScore(rr.Score, quality, cfg.BoostWeight)
		}

		result := domain.SearchResult{
			Chunk:        *chunk,
			Score:        final,
			FusedScore:   rr.Score,
			QualityScore: quality,
			SourceRanks:  rr.SourceRanks,
		}
		if !opts.IncludeContent {
			result.Chunk.Content = ""
		}
		results = append(results, result)
	}

	if opts.ApplyQualityBoost {
		sortResults(results)
	}
	return results
}

// BoostScore blends a chunk's quality into its fused relevance:
//
//	final = fused * (1 + w*(quality/100 - 0.5))
//
// A chunk at the quality midpoint (50) is unaffected. The adjustment
// is bounded and symmetric so one very trusted chunk cannot swamp
// relevance, while known-bad content still sinks.
func BoostScore(fused, quality, boostWeight float64) float64 {
	return fused * (1 + boostWeight*(quality/domain.MaxScore-0.5))
}

// sortResults orders by boosted score descending with deterministic
// chunk-ID tie-break.
func sortResults(results []domain.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.ID < results[j].Chunk.ID
	})
}

// filterResults narrows an already-ranked list. Filters remove
// entries but never change their relative order.
func filterResults(results []domain.SearchResult, f domain.SearchFilters) []domain.SearchResult {
	filtered := make([]domain.SearchResult, 0, len(results))
	for i := range results {
		chunk := results[i].Chunk
		if f.SpaceKey != "" && chunk.SpaceKey != f.SpaceKey {
			continue
		}
		if f.DocType != "" && chunk.DocType != f.DocType {
			continue
		}
		if len(f.Topics) > 0 && !hasAnyTopic(chunk.Topics, f.Topics) {
			continue
		}
		if !f.UpdatedAfter.IsZero() && chunk.UpdatedAt.Before(f.UpdatedAfter) {
			continue
		}
		filtered = append(filtered, results[i])
	}
	return filtered
}

func hasAnyTopic(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

// recordAccess bumps access counters for served chunks without
// blocking the response.
func (s *SearchService) recordAccess(results []domain.SearchResult) {
	if s.scorer == nil || len(results) == 0 {
		return
	}
	ids := make([]string, len(results))
	for i := range results {
		ids[i] = results[i].Chunk.ID
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		for _, id := range ids {
			if err := s.scorer.RecordAccess(ctx, id); err != nil {
				logger.Debug("Access recording failed for %s: %v", id, err)
			}
		}
	}()
}

func hitsToCandidates(hits []driven.SearchHit) []Candidate {
	out := make([]Candidate, len(hits))
	for i, h := range hits {
		out[i] = Candidate{ChunkID: h.ChunkID, Score: h.Score}
	}
	return out
}

func vectorToCandidates(hits []driven.VectorHit) []Candidate {
	out := make([]Candidate, len(hits))
	for i, h := range hits {
		out[i] = Candidate{ChunkID: h.ChunkID, Score: h.Score}
	}
	return out
}
