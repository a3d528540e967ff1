package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/curator/internal/core/domain"
	"github.com/custodia-labs/curator/internal/core/ports/driven"
	"github.com/custodia-labs/curator/internal/core/ports/driving"
	"github.com/custodia-labs/curator/internal/logger"
)

// Ensure QualityScorer implements the feedback interface.
var _ driving.FeedbackService = (*QualityScorer)(nil)

// QualityScorer owns all quality score state. Every mutation goes
// through this service: updates are delta-based and serialized per
// chunk ID, so concurrent feedback on the same chunk never loses a
// write while feedback on different chunks proceeds without
// contention.
type QualityScorer struct {
	store    driven.QualityStore
	feedback driven.FeedbackStore

	cfgMu sync.RWMutex
	cfg   domain.QualityConfig

	keys keyedMutex

	recalcMu sync.Mutex
	recalc   bool

	// now is the clock, replaceable in tests.
	now func() time.Time
}

// NewQualityScorer creates a scorer over the given stores.
func NewQualityScorer(store driven.QualityStore, feedback driven.FeedbackStore, cfg domain.QualityConfig) (*QualityScorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("quality config: %w", err)
	}
	return &QualityScorer{
		store:    store,
		feedback: feedback,
		cfg:      cfg,
		now:      time.Now,
	}, nil
}

// Config returns the current lifecycle configuration.
func (q *QualityScorer) Config() domain.QualityConfig {
	q.cfgMu.RLock()
	defer q.cfgMu.RUnlock()
	return q.cfg
}

// SetConfig replaces the lifecycle configuration. Called on config
// hot reload; invalid configurations are rejected and the previous
// one stays in effect.
func (q *QualityScorer) SetConfig(cfg domain.QualityConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("quality config: %w", err)
	}
	q.cfgMu.Lock()
	q.cfg = cfg
	q.cfgMu.Unlock()
	logger.Info("Quality config reloaded")
	return nil
}

// Get returns the quality state for a chunk.
func (q *QualityScorer) Get(ctx context.Context, chunkID string) (*domain.QualityScore, error) {
	return q.store.Get(ctx, chunkID)
}

// EnsureScore creates the initial quality record for a newly indexed
// chunk. Existing records are left untouched so scores survive
// re-indexing.
func (q *QualityScorer) EnsureScore(ctx context.Context, chunkID string) error {
	unlock := q.keys.lock(chunkID)
	defer unlock()

	_, err := q.store.Get(ctx, chunkID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("get quality: %w", err)
	}

	now := q.now()
	score := domain.QualityScore{
		ChunkID:         chunkID,
		Score:           domain.InitialScore,
		Status:          domain.StatusActive,
		LastAccessedAt:  now,
		StatusChangedAt: now,
		DecayedAt:       now,
		UpdatedAt:       now,
	}
	if err := q.store.Save(ctx, score); err != nil {
		return fmt.Errorf("save quality: %w", err)
	}
	return nil
}

// ApplyFeedback applies a feedback delta to a chunk's score, updates
// the lifecycle status if a threshold was crossed, and records the
// immutable event. The score update is the source of truth and
// happens first.
func (q *QualityScorer) ApplyFeedback(
	ctx context.Context, chunkID, userID string, ft domain.FeedbackType, comment string,
) (*domain.QualityScore, error) {
	if !ft.IsValid() {
		return nil, fmt.Errorf("feedback type %q: %w", ft, domain.ErrInvalidInput)
	}
	if chunkID == "" {
		return nil, domain.ErrInvalidInput
	}

	cfg := q.Config()

	unlock := q.keys.lock(chunkID)
	score, err := q.readOrInit(ctx, chunkID)
	if err != nil {
		unlock()
		return nil, err
	}

	impact := cfg.ImpactFor(ft)
	previous := score.Score
	score.Score = domain.ClampScore(score.Score + impact)
	score.FeedbackCount++
	score.UpdatedAt = q.now()
	q.applyThresholds(score, cfg)

	if err := q.store.Save(ctx, *score); err != nil {
		unlock()
		return nil, fmt.Errorf("save quality: %w", err)
	}
	unlock()

	logger.Debug("Feedback %s on %s: %.1f -> %.1f (status %s)",
		ft, chunkID, previous, score.Score, score.Status)

	event := domain.FeedbackEvent{
		ID:        uuid.New().String(),
		ChunkID:   chunkID,
		UserID:    userID,
		Type:      ft,
		Comment:   comment,
		CreatedAt: q.now(),
	}
	if err := q.feedback.Append(ctx, event); err != nil {
		// The score already advanced; losing the analytics event is
		// logged, not fatal.
		logger.Warn("Failed to record feedback event for %s: %v", chunkID, err)
	}

	return score, nil
}

// SubmitFeedback implements driving.FeedbackService.
func (q *QualityScorer) SubmitFeedback(
	ctx context.Context, chunkID, userID string, ft domain.FeedbackType, comment string,
) (*domain.QualityScore, error) {
	return q.ApplyFeedback(ctx, chunkID, userID, ft, comment)
}

// RepromoteChunk is the explicit admin action that returns a
// deprecated chunk to active.
func (q *QualityScorer) RepromoteChunk(ctx context.Context, chunkID string) error {
	return q.Transition(ctx, chunkID, domain.StatusActive)
}

// RecordAccess bumps the rolling access counter for a served chunk.
// Frequent access protects a chunk from decay.
func (q *QualityScorer) RecordAccess(ctx context.Context, chunkID string) error {
	unlock := q.keys.lock(chunkID)
	defer unlock()

	score, err := q.readOrInit(ctx, chunkID)
	if err != nil {
		return err
	}

	score.AccessCount++
	score.LastAccessedAt = q.now()
	score.UpdatedAt = q.now()

	if err := q.store.Save(ctx, *score); err != nil {
		return fmt.Errorf("save quality: %w", err)
	}
	return nil
}

// Transition moves a chunk to a new lifecycle state, enforcing the
// state machine. Re-promotion (deprecated -> active) is only reachable
// through this explicit call.
func (q *QualityScorer) Transition(ctx context.Context, chunkID string, next domain.QualityStatus) error {
	if !next.IsValid() {
		return domain.ErrInvalidInput
	}

	unlock := q.keys.lock(chunkID)
	defer unlock()

	score, err := q.store.Get(ctx, chunkID)
	if err != nil {
		return fmt.Errorf("get quality: %w", err)
	}
	if score.Status == next {
		return nil
	}
	if !score.Status.CanTransitionTo(next) {
		return fmt.Errorf("%s -> %s: %w", score.Status, next, domain.ErrInvalidTransition)
	}

	score.Status = next
	score.StatusChangedAt = q.now()
	score.UpdatedAt = q.now()

	if err := q.store.Save(ctx, *score); err != nil {
		return fmt.Errorf("save quality: %w", err)
	}

	logger.Info("Chunk %s transitioned to %s", chunkID, next)
	return nil
}

// Delete removes quality state for a deleted chunk.
func (q *QualityScorer) Delete(ctx context.Context, chunkID string) error {
	unlock := q.keys.lock(chunkID)
	defer unlock()
	return q.store.Delete(ctx, chunkID)
}

// Recalculate applies usage-adjusted decay to every chunk that is not
// hard-archived. Single-flight: a second concurrent run returns
// ErrJobInProgress. Idempotent: decay is charged per whole elapsed
// day since DecayedAt, so an immediate re-run changes nothing.
func (q *QualityScorer) Recalculate(ctx context.Context) (*domain.BatchSummary, error) {
	q.recalcMu.Lock()
	if q.recalc {
		q.recalcMu.Unlock()
		return nil, domain.ErrJobInProgress
	}
	q.recalc = true
	q.recalcMu.Unlock()

	defer func() {
		q.recalcMu.Lock()
		q.recalc = false
		q.recalcMu.Unlock()
	}()

	logger.Section("Quality Recalculation")
	started := q.now()
	cfg := q.Config()

	scores, err := q.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list quality: %w", err)
	}

	summary := &domain.BatchSummary{Job: "quality_decay"}

	// The listing only enumerates chunk IDs. Each record is re-read
	// and decayed under its per-key lock so a feedback delta landing
	// mid-run is never overwritten by a stale copy.
	for i := range scores {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		chunkID := scores[i].ChunkID
		summary.Processed++

		unlock := q.keys.lock(chunkID)
		score, err := q.store.Get(ctx, chunkID)
		if err != nil {
			unlock()
			if errors.Is(err, domain.ErrNotFound) {
				// Deleted since the listing.
				summary.Skipped++
				continue
			}
			logger.Warn("Decay read failed for %s: %v", chunkID, err)
			summary.Failed++
			continue
		}

		if score.Status == domain.StatusHardArchived {
			unlock()
			summary.Skipped++
			continue
		}

		if !q.decayOne(score, cfg) {
			unlock()
			summary.Skipped++
			continue
		}

		err = q.store.Save(ctx, *score)
		unlock()
		if err != nil {
			logger.Warn("Decay save failed for %s: %v", chunkID, err)
			summary.Failed++
			continue
		}
		summary.Succeeded++
	}

	summary.Took = q.now().Sub(started)
	logger.Info("Decay run: %d processed, %d updated, %d skipped, %d failed",
		summary.Processed, summary.Succeeded, summary.Skipped, summary.Failed)
	return summary, nil
}

// decayOne applies decay to a single record in place. Returns true
// when the record changed.
func (q *QualityScorer) decayOne(score *domain.QualityScore, cfg domain.QualityConfig) bool {
	since := score.DecayedAt
	if score.LastAccessedAt.After(since) {
		since = score.LastAccessedAt
	}

	days := int(q.now().Sub(since).Hours() / 24)
	if days < 1 {
		return false
	}

	// Decay slows in proportion to recent access: actively used
	// content stays trusted longer even when not recently reviewed.
	protection := float64(score.AccessCount) / float64(cfg.AccessProtection)
	if protection > 1 {
		protection = 1
	}
	rate := cfg.DecayPerDay * (1 - protection)

	if rate > 0 && score.Score > cfg.DecayFloor {
		decayed := score.Score - rate*float64(days)
		if decayed < cfg.DecayFloor {
			decayed = cfg.DecayFloor
		}
		score.Score = domain.ClampScore(decayed)
	}

	// The rolling access window ages alongside the score.
	score.AccessCount /= 2

	score.DecayedAt = q.now()
	score.UpdatedAt = q.now()
	q.applyThresholds(score, cfg)
	return true
}

// applyThresholds moves a record through threshold-driven state
// transitions. Explicit re-promotion is never triggered here.
func (q *QualityScorer) applyThresholds(score *domain.QualityScore, cfg domain.QualityConfig) {
	switch {
	case score.Score < cfg.ArchiveThreshold && score.Status.CanTransitionTo(domain.StatusColdStorage):
		score.Status = domain.StatusColdStorage
		score.StatusChangedAt = q.now()
	case score.Score < cfg.DeprecatedThreshold && score.Status == domain.StatusActive:
		score.Status = domain.StatusDeprecated
		score.StatusChangedAt = q.now()
	}
}

// readOrInit fetches a record, creating the initial one when absent.
// Caller must hold the per-key lock.
func (q *QualityScorer) readOrInit(ctx context.Context, chunkID string) (*domain.QualityScore, error) {
	score, err := q.store.Get(ctx, chunkID)
	if err == nil {
		return score, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("get quality: %w", err)
	}

	now := q.now()
	return &domain.QualityScore{
		ChunkID:         chunkID,
		Score:           domain.InitialScore,
		Status:          domain.StatusActive,
		LastAccessedAt:  now,
		StatusChangedAt: now,
		DecayedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// keyedMutex serializes operations per key while letting distinct
// keys proceed independently.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// lock acquires the mutex for key and returns the release function.
func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
