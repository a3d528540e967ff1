package services

import (
	"sort"

	"github.com/custodia-labs/curator/internal/core/domain"
)

// RRFConstant is the standard reciprocal rank fusion constant. It
// dampens the advantage of rank-1 items so a single source cannot
// dominate the merged list.
const RRFConstant = 60

// Candidate is one entry of a ranked source list handed to fusion.
type Candidate struct {
	// ChunkID identifies the candidate chunk.
	ChunkID string

	// Score is the source's native relevance score. RRF ignores it;
	// ScoreFusion normalises it.
	Score float64
}

// RankedList is a named, ordered candidate list from one retrieval
// source.
type RankedList struct {
	// Source names the producing retrieval modality ("keyword",
	// "vector", "graph").
	Source string

	// Candidates are ordered best first.
	Candidates []Candidate
}

// ReciprocalRankFusion merges ranked lists into one list using RRF:
// each document accumulates w_i / (k + rank + 1) from every list it
// appears in. Documents present in several lists accumulate several
// contributions - consensus across retrieval modalities is rewarded
// deliberately.
//
// weights may be nil (equal weights); otherwise its length must match
// the list count. Ties break by earliest first-appearance rank, then
// chunk ID, so output order is reproducible.
func ReciprocalRankFusion(lists []RankedList, weights []float64, k int) ([]domain.RankedResult, error) {
	if len(lists) == 0 {
		return []domain.RankedResult{}, nil
	}
	if weights == nil {
		weights = make([]float64, len(lists))
		for i := range weights {
			weights[i] = 1.0
		}
	}
	if len(weights) != len(lists) {
		return nil, domain.ErrInvalidInput
	}
	if k <= 0 {
		k = RRFConstant
	}

	type entry struct {
		score     float64
		firstRank int
		sources   map[string]int
	}

	merged := make(map[string]*entry)

	for li, list := range lists {
		for rank, cand := range list.Candidates {
			e, ok := merged[cand.ChunkID]
			if !ok {
				e = &entry{firstRank: rank, sources: make(map[string]int)}
				merged[cand.ChunkID] = e
			}
			e.score += weights[li] / float64(k+rank+1)
			if _, seen := e.sources[list.Source]; !seen {
				e.sources[list.Source] = rank
			}
			if rank < e.firstRank {
				e.firstRank = rank
			}
		}
	}

	results := make([]domain.RankedResult, 0, len(merged))
	for id, e := range merged {
		results = append(results, domain.RankedResult{
			ChunkID:     id,
			Score:       e.score,
			SourceRanks: e.sources,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		ri := merged[results[i].ChunkID].firstRank
		rj := merged[results[j].ChunkID].firstRank
		if ri != rj {
			return ri < rj
		}
		return results[i].ChunkID < results[j].ChunkID
	})

	return results, nil
}

// ScoreFusion merges lists by weighted sum of min-max normalised
// native scores. It respects score magnitudes but is sensitive to
// outliers, which is why RRF is the default for heterogeneous sources
// (BM25 scores and cosine similarities are not comparable without
// normalisation).
func ScoreFusion(lists []RankedList, weights []float64) ([]domain.RankedResult, error) {
	if len(lists) == 0 {
		return []domain.RankedResult{}, nil
	}
	if weights == nil {
		weights = make([]float64, len(lists))
		for i := range weights {
			weights[i] = 1.0
		}
	}
	if len(weights) != len(lists) {
		return nil, domain.ErrInvalidInput
	}

	type entry struct {
		score     float64
		firstRank int
		sources   map[string]int
	}

	merged := make(map[string]*entry)

	for li, list := range lists {
		if len(list.Candidates) == 0 {
			continue
		}

		minScore, maxScore := list.Candidates[0].Score, list.Candidates[0].Score
		for _, cand := range list.Candidates {
			if cand.Score < minScore {
				minScore = cand.Score
			}
			if cand.Score > maxScore {
				maxScore = cand.Score
			}
		}
		span := maxScore - minScore

		for rank, cand := range list.Candidates {
			normalised := 1.0
			if span > 0 {
				normalised = (cand.Score - minScore) / span
			}

			e, ok := merged[cand.ChunkID]
			if !ok {
				e = &entry{firstRank: rank, sources: make(map[string]int)}
				merged[cand.ChunkID] = e
			}
			e.score += weights[li] * normalised
			if _, seen := e.sources[list.Source]; !seen {
				e.sources[list.Source] = rank
			}
			if rank < e.firstRank {
				e.firstRank = rank
			}
		}
	}

	results := make([]domain.RankedResult, 0, len(merged))
	for id, e := range merged {
		results = append(results, domain.RankedResult{
			ChunkID:     id,
			Score:       e.score,
			SourceRanks: e.sources,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		ri := merged[results[i].ChunkID].firstRank
		rj := merged[results[j].ChunkID].firstRank
		if ri != rj {
			return ri < rj
		}
		return results[i].ChunkID < results[j].ChunkID
	})

	return results, nil
}
