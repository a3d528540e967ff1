package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/curator/internal/core/domain"
	"github.com/custodia-labs/curator/internal/core/ports/driven"
	"github.com/custodia-labs/curator/internal/core/ports/driving"
	"github.com/custodia-labs/curator/internal/logger"
)

// Ensure LifecycleService implements the interface.
var _ driving.LifecycleService = (*LifecycleService)(nil)

// Minimum feedback sample before the negative-ratio signal fires.
// Below this, a single bad review would dominate the ratio.
const minFeedbackSample = 5

// NegativeRatioThreshold is the negative-feedback fraction that flags
// a chunk as obsolete.
const NegativeRatioThreshold = 0.6

// LifecycleService runs the periodic batch maintenance jobs:
// archival, obsolete detection and conflict scanning. Jobs are
// single-flight per type and process items independently - one item's
// failure is counted, never fatal to the batch.
type LifecycleService struct {
	chunkStore driven.ChunkStore
	scorer     *QualityScorer
	feedback   driven.FeedbackStore
	archive    driven.ArchiveWriter
	conflicts  *ConflictDetector

	mu       sync.Mutex
	inFlight map[string]bool

	now func() time.Time
}

// NewLifecycleService creates the lifecycle pipeline. conflicts is
// optional (nil disables conflict scanning).
func NewLifecycleService(
	chunkStore driven.ChunkStore,
	scorer *QualityScorer,
	feedback driven.FeedbackStore,
	archive driven.ArchiveWriter,
	conflicts *ConflictDetector,
) *LifecycleService {
	return &LifecycleService{
		chunkStore: chunkStore,
		scorer:     scorer,
		feedback:   feedback,
		archive:    archive,
		conflicts:  conflicts,
		inFlight:   make(map[string]bool),
		now:        time.Now,
	}
}

// acquire marks a job type as running. Returns ErrJobInProgress when
// an instance is already in flight.
func (l *LifecycleService) acquire(job string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inFlight[job] {
		return nil, fmt.Errorf("%s: %w", job, domain.ErrJobInProgress)
	}
	l.inFlight[job] = true
	return func() {
		l.mu.Lock()
		delete(l.inFlight, job)
		l.mu.Unlock()
	}, nil
}

// RecalculateScores delegates to the quality scorer's decay run.
func (l *LifecycleService) RecalculateScores(ctx context.Context) (*domain.BatchSummary, error) {
	return l.scorer.Recalculate(ctx)
}

// RunArchival moves low-score or stale chunks into cold storage, then
// exports and hard-archives chunks that have aged out of cold
// storage. Hard archival is irreversible via this pipeline.
func (l *LifecycleService) RunArchival(ctx context.Context) (*domain.BatchSummary, error) {
	release, err := l.acquire("archival")
	if err != nil {
		return nil, err
	}
	defer release()

	logger.Section("Archival Run")
	started := l.now()
	cfg := l.scorer.Config()
	summary := &domain.BatchSummary{Job: "archival"}

	scores, err := l.scorer.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list quality: %w", err)
	}

	maxAge := time.Duration(cfg.MaxAgeDays) * 24 * time.Hour
	coldAge := time.Duration(cfg.ColdArchiveDays) * 24 * time.Hour

	var toExport []domain.ArchivedChunk

	for i := range scores {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		score := scores[i]
		summary.Processed++

		switch score.Status {
		case domain.StatusActive, domain.StatusDeprecated:
			stale := !score.LastAccessedAt.IsZero() && l.now().Sub(score.LastAccessedAt) > maxAge
			if score.Score >= cfg.ArchiveThreshold && !stale {
				summary.Skipped++
				continue
			}
			if err := l.scorer.Transition(ctx, score.ChunkID, domain.StatusColdStorage); err != nil {
				logger.Warn("Cold-storage transition failed for %s: %v", score.ChunkID, err)
				summary.Failed++
				continue
			}
			summary.Succeeded++

		case domain.StatusColdStorage:
			if l.now().Sub(score.StatusChangedAt) <= coldAge {
				summary.Skipped++
				continue
			}

			chunk, err := l.chunkStore.GetChunk(ctx, score.ChunkID)
			if err != nil {
				logger.Warn("Hard archive: chunk %s unresolvable: %v", score.ChunkID, err)
				summary.Failed++
				continue
			}
			toExport = append(toExport, domain.ArchivedChunk{
				Chunk:      *chunk,
				Quality:    score,
				ArchivedAt: l.now(),
			})

		default:
			summary.Skipped++
		}
	}

	if len(toExport) > 0 {
		location, err := l.archive.Export(ctx, toExport)
		if err != nil {
			// Without a durable export nothing gets hard-archived;
			// the next run picks these chunks up again.
			logger.Warn("Archive export failed, deferring hard archival: %v", err)
			summary.Failed += len(toExport)
		} else {
			logger.Info("Exported %d chunks to %s", len(toExport), location)
			for _, rec := range toExport {
				if err := l.scorer.Transition(ctx, rec.Chunk.ID, domain.StatusHardArchived); err != nil {
					logger.Warn("Hard-archive transition failed for %s: %v", rec.Chunk.ID, err)
					summary.Failed++
					continue
				}
				summary.Succeeded++
			}
		}
	}

	summary.Took = l.now().Sub(started)
	logger.Info("Archival: %d processed, %d moved, %d skipped, %d failed",
		summary.Processed, summary.Succeeded, summary.Skipped, summary.Failed)
	return summary, nil
}

// DetectObsolete flags chunks for review using three independent
// signals: age beyond threshold, quality below the deprecation
// threshold, and a high negative-feedback ratio (only with enough
// sample). Output is sorted by severity, then by reason count.
func (l *LifecycleService) DetectObsolete(ctx context.Context) ([]domain.ObsoleteFlag, error) {
	release, err := l.acquire("obsolete")
	if err != nil {
		return nil, err
	}
	defer release()

	logger.Section("Obsolete Detection")
	cfg := l.scorer.Config()

	chunks, err := l.chunkStore.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}

	var flags []domain.ObsoleteFlag

	for i := range chunks {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		chunk := chunks[i]

		score, err := l.scorer.Get(ctx, chunk.ID)
		if err != nil {
			logger.Debug("Obsolete scan: no quality record for %s: %v", chunk.ID, err)
			continue
		}
		if score.Status == domain.StatusHardArchived {
			continue
		}

		ageDays := int(l.now().Sub(chunk.UpdatedAt).Hours() / 24)

		stats, err := l.feedback.Stats(ctx, chunk.ID)
		if err != nil {
			logger.Debug("Obsolete scan: feedback stats failed for %s: %v", chunk.ID, err)
			stats = domain.FeedbackStats{}
		}

		flag := domain.ObsoleteFlag{
			ChunkID:       chunk.ID,
			AgeDays:       ageDays,
			QualityScore:  score.Score,
			NegativeRatio: stats.NegativeRatio(),
		}

		if ageDays > cfg.MaxAgeDays {
			flag.Reasons = append(flag.Reasons, "age")
		}
		if score.Score < cfg.DeprecatedThreshold {
			flag.Reasons = append(flag.Reasons, "low_quality")
		}
		if stats.Total >= minFeedbackSample && stats.NegativeRatio() > NegativeRatioThreshold {
			flag.Reasons = append(flag.Reasons, "negative_feedback")
		}

		if len(flag.Reasons) == 0 {
			continue
		}

		flag.Severity = gradeSeverity(len(flag.Reasons), ageDays, cfg.MaxAgeDays)
		flags = append(flags, flag)
	}

	sort.SliceStable(flags, func(i, j int) bool {
		if flags[i].Severity.Rank() != flags[j].Severity.Rank() {
			return flags[i].Severity.Rank() > flags[j].Severity.Rank()
		}
		return len(flags[i].Reasons) > len(flags[j].Reasons)
	})

	logger.Info("Obsolete detection: %d chunks flagged", len(flags))
	return flags, nil
}

// gradeSeverity combines the number of triggered signals with how far
// past the age threshold the chunk is.
func gradeSeverity(reasons, ageDays, maxAgeDays int) domain.Severity {
	severity := domain.SeverityLow
	switch {
	case reasons >= 3:
		severity = domain.SeverityHigh
	case reasons == 2:
		severity = domain.SeverityMedium
	}

	// Content more than twice past its age threshold escalates one
	// level.
	if maxAgeDays > 0 && ageDays >= 2*maxAgeDays {
		switch severity {
		case domain.SeverityLow:
			severity = domain.SeverityMedium
		case domain.SeverityMedium:
			severity = domain.SeverityHigh
		}
	}
	return severity
}

// DetectConflicts delegates to the conflict detector for the given
// chunks, or for all active chunks when none are specified.
func (l *LifecycleService) DetectConflicts(ctx context.Context, chunkIDs []string) (*domain.BatchSummary, error) {
	if l.conflicts == nil {
		return nil, domain.ErrLLMUnavailable
	}

	release, err := l.acquire("conflicts")
	if err != nil {
		return nil, err
	}
	defer release()

	if len(chunkIDs) == 0 {
		chunks, err := l.chunkStore.ListAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("list chunks: %w", err)
		}
		for i := range chunks {
			chunkIDs = append(chunkIDs, chunks[i].ID)
		}
	}

	return l.conflicts.Scan(ctx, chunkIDs)
}
