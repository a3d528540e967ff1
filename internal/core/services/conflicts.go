package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/curator/internal/core/domain"
	"github.com/custodia-labs/curator/internal/core/ports/driven"
	"github.com/custodia-labs/curator/internal/logger"
)

// conflictJudgePrompt asks the LLM for a strict JSON verdict on
// whether two chunks contradict each other.
const conflictJudgePrompt = `You are reviewing a knowledge base for contradictions.

Chunk A:
%s

Chunk B:
%s

Do these two passages make contradictory factual claims about the same subject?
Respond with JSON only, no prose:
{"contradictory": true|false, "confidence": 0.0-1.0, "summary": "one sentence describing the contradiction, or empty"}`

// ConflictDetector finds contradictions between semantically similar
// chunks. For each scanned chunk it asks the vector provider for
// near neighbours and has the LLM judge pairs above the similarity
// threshold. Detection is idempotent: an existing open conflict for a
// pair suppresses re-creation.
type ConflictDetector struct {
	chunkStore driven.ChunkStore
	vector     driven.VectorSearcher
	llm        driven.LLMService
	store      driven.ConflictStore
	cfg        domain.ConflictConfig

	now func() time.Time
}

// NewConflictDetector creates a detector. All dependencies are
// required; construct it only when an LLM service is configured.
func NewConflictDetector(
	chunkStore driven.ChunkStore,
	vector driven.VectorSearcher,
	llm driven.LLMService,
	store driven.ConflictStore,
	cfg domain.ConflictConfig,
) (*ConflictDetector, error) {
	if llm == nil {
		return nil, domain.ErrLLMUnavailable
	}
	if vector == nil {
		return nil, domain.ErrVectorUnavailable
	}
	return &ConflictDetector{
		chunkStore: chunkStore,
		vector:     vector,
		llm:        llm,
		store:      store,
		cfg:        cfg,
		now:        time.Now,
	}, nil
}

// Scan examines the given chunks for conflicts with their nearest
// neighbours. Items are processed independently; per-item failures
// are counted in the summary.
func (d *ConflictDetector) Scan(ctx context.Context, chunkIDs []string) (*domain.BatchSummary, error) {
	logger.Section("Conflict Scan")
	started := d.now()
	summary := &domain.BatchSummary{Job: "conflict_scan"}

	for _, chunkID := range chunkIDs {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		summary.Processed++

		created, err := d.scanOne(ctx, chunkID)
		if err != nil {
			logger.Warn("Conflict scan failed for %s: %v", chunkID, err)
			summary.Failed++
			continue
		}
		if created == 0 {
			summary.Skipped++
		} else {
			summary.Succeeded += created
		}
	}

	summary.Took = d.now().Sub(started)
	logger.Info("Conflict scan: %d chunks, %d conflicts created, %d failed",
		summary.Processed, summary.Succeeded, summary.Failed)
	return summary, nil
}

// scanOne checks a single chunk against its neighbours and returns
// the number of conflicts created.
func (d *ConflictDetector) scanOne(ctx context.Context, chunkID string) (int, error) {
	chunk, err := d.chunkStore.GetChunk(ctx, chunkID)
	if err != nil {
		return 0, fmt.Errorf("get chunk: %w", err)
	}

	var neighbours []driven.VectorHit
	err = retryWithBackoff(ctx, defaultRetryAttempts, defaultRetryBase, func() error {
		var searchErr error
		neighbours, searchErr = d.vector.Similar(ctx, chunkID, d.cfg.MaxNeighbours)
		return searchErr
	})
	if err != nil {
		return 0, fmt.Errorf("similar chunks: %w", err)
	}

	created := 0
	for _, hit := range neighbours {
		if hit.ChunkID == chunkID || hit.Score < d.cfg.SimilarityThreshold {
			continue
		}

		a, b := domain.NormalisePair(chunkID, hit.ChunkID)

		existing, err := d.store.FindOpenPair(ctx, a, b)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return created, fmt.Errorf("find open pair: %w", err)
		}
		if existing != nil {
			logger.Debug("Open conflict already exists for %s/%s, skipping", a, b)
			continue
		}

		other, err := d.chunkStore.GetChunk(ctx, hit.ChunkID)
		if err != nil {
			logger.Debug("Neighbour %s unresolvable: %v", hit.ChunkID, err)
			continue
		}

		verdict, err := d.judge(ctx, chunk.Content, other.Content)
		if err != nil {
			return created, fmt.Errorf("judge pair %s/%s: %w", a, b, err)
		}
		if !verdict.contradictory || verdict.confidence < d.cfg.ConfidenceThreshold {
			continue
		}

		conflict := domain.Conflict{
			ID:         uuid.New().String(),
			ChunkIDA:   a,
			ChunkIDB:   b,
			Similarity: hit.Score,
			Confidence: verdict.confidence,
			Summary:    verdict.summary,
			Status:     domain.ConflictOpen,
			DetectedAt: d.now(),
		}
		if err := d.store.Save(ctx, conflict); err != nil {
			return created, fmt.Errorf("save conflict: %w", err)
		}

		logger.Info("Conflict detected between %s and %s (similarity %.2f, confidence %.2f)",
			a, b, hit.Score, verdict.confidence)
		created++
	}

	return created, nil
}

// judgeVerdict is the parsed LLM answer for one pair.
type judgeVerdict struct {
	contradictory bool
	confidence    float64
	summary       string
}

// judge asks the LLM whether two passages contradict. Transient
// backend failures are retried with bounded backoff; malformed model
// output degrades to a negative verdict.
func (d *ConflictDetector) judge(ctx context.Context, contentA, contentB string) (judgeVerdict, error) {
	prompt := fmt.Sprintf(conflictJudgePrompt, contentA, contentB)

	var raw map[string]any
	err := retryWithBackoff(ctx, defaultRetryAttempts, defaultRetryBase, func() error {
		var genErr error
		raw, genErr = d.llm.GenerateJSON(ctx, prompt, driven.GenerateOptions{
			MaxTokens:   256,
			Temperature: 0,
		})
		return genErr
	})
	if err != nil {
		return judgeVerdict{}, err
	}

	verdict := judgeVerdict{}
	if v, ok := raw["contradictory"].(bool); ok {
		verdict.contradictory = v
	}
	if v, ok := raw["confidence"].(float64); ok {
		verdict.confidence = v
	}
	if v, ok := raw["summary"].(string); ok {
		verdict.summary = v
	}
	return verdict, nil
}
