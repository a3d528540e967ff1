package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/curator/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/curator/internal/core/domain"
)

func newTestScorer(t *testing.T) (*QualityScorer, *memory.QualityStore, *memory.FeedbackStore) {
	t.Helper()
	quality := memory.NewQualityStore()
	feedback := memory.NewFeedbackStore()
	scorer, err := NewQualityScorer(quality, feedback, domain.DefaultQualityConfig())
	require.NoError(t, err)
	return scorer, quality, feedback
}

func TestNewQualityScorer_RejectsInvalidConfig(t *testing.T) {
	cfg := domain.DefaultQualityConfig()
	cfg.ArchiveThreshold = cfg.DeprecatedThreshold // must be strictly below

	_, err := NewQualityScorer(memory.NewQualityStore(), memory.NewFeedbackStore(), cfg)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestEnsureScore_InitialisesOnce(t *testing.T) {
	scorer, _, _ := newTestScorer(t)
	ctx := context.Background()

	require.NoError(t, scorer.EnsureScore(ctx, "chunk-1"))

	score, err := scorer.Get(ctx, "chunk-1")
	require.NoError(t, err)
	assert.Equal(t, domain.InitialScore, score.Score)
	assert.Equal(t, domain.StatusActive, score.Status)

	// A second ensure after feedback must not reset accumulated state.
	_, err = scorer.ApplyFeedback(ctx, "chunk-1", "u1", domain.FeedbackHelpful, "")
	require.NoError(t, err)
	require.NoError(t, scorer.EnsureScore(ctx, "chunk-1"))

	score, err = scorer.Get(ctx, "chunk-1")
	require.NoError(t, err)
	assert.Equal(t, domain.InitialScore+2, score.Score)
	assert.Equal(t, 1, score.FeedbackCount)
}

func TestApplyFeedback_ImpactSequence(t *testing.T) {
	scorer, quality, _ := newTestScorer(t)
	ctx := context.Background()

	require.NoError(t, quality.Save(ctx, domain.QualityScore{
		ChunkID: "c1", Score: 100, Status: domain.StatusActive,
	}))

	steps := []struct {
		ft   domain.FeedbackType
		want float64
	}{
		{domain.FeedbackIncorrect, 75}, // -25
		{domain.FeedbackHelpful, 77},   // +2
		{domain.FeedbackHelpful, 79},   // +2
	}

	for _, step := range steps {
		score, err := scorer.ApplyFeedback(ctx, "c1", "u1", step.ft, "")
		require.NoError(t, err)
		assert.Equal(t, step.want, score.Score)
	}

	score, err := scorer.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 3, score.FeedbackCount)
}

func TestApplyFeedback_ClampsAtBounds(t *testing.T) {
	scorer, quality, _ := newTestScorer(t)
	ctx := context.Background()

	require.NoError(t, quality.Save(ctx, domain.QualityScore{
		ChunkID: "high", Score: 99, Status: domain.StatusActive,
	}))
	score, err := scorer.ApplyFeedback(ctx, "high", "u1", domain.FeedbackHelpful, "")
	require.NoError(t, err)
	assert.Equal(t, domain.MaxScore, score.Score)

	require.NoError(t, quality.Save(ctx, domain.QualityScore{
		ChunkID: "low", Score: 5, Status: domain.StatusColdStorage,
	}))
	score, err = scorer.ApplyFeedback(ctx, "low", "u1", domain.FeedbackIncorrect, "")
	require.NoError(t, err)
	assert.Equal(t, domain.MinScore, score.Score)
}

func TestApplyFeedback_InvalidType(t *testing.T) {
	scorer, _, _ := newTestScorer(t)

	_, err := scorer.ApplyFeedback(context.Background(), "c1", "u1", "meh", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestApplyFeedback_RecordsEvent(t *testing.T) {
	scorer, _, feedback := newTestScorer(t)
	ctx := context.Background()

	_, err := scorer.ApplyFeedback(ctx, "c1", "alice", domain.FeedbackOutdated, "superseded by v2 runbook")
	require.NoError(t, err)

	events, err := feedback.ListByChunk(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "alice", events[0].UserID)
	assert.Equal(t, domain.FeedbackOutdated, events[0].Type)
	assert.Equal(t, "superseded by v2 runbook", events[0].Comment)
	assert.NotEmpty(t, events[0].ID)
}

func TestApplyFeedback_CrossesDeprecationThreshold(t *testing.T) {
	scorer, quality, _ := newTestScorer(t)
	ctx := context.Background()

	require.NoError(t, quality.Save(ctx, domain.QualityScore{
		ChunkID: "c1", Score: 45, Status: domain.StatusActive,
	}))

	score, err := scorer.ApplyFeedback(ctx, "c1", "u1", domain.FeedbackOutdated, "")
	require.NoError(t, err)
	assert.Equal(t, 30.0, score.Score)
	assert.Equal(t, domain.StatusDeprecated, score.Status)
}

func TestApplyFeedback_CrossesArchiveThreshold(t *testing.T) {
	scorer, quality, _ := newTestScorer(t)
	ctx := context.Background()

	require.NoError(t, quality.Save(ctx, domain.QualityScore{
		ChunkID: "c1", Score: 20, Status: domain.StatusDeprecated,
	}))

	score, err := scorer.ApplyFeedback(ctx, "c1", "u1", domain.FeedbackIncorrect, "")
	require.NoError(t, err)
	assert.Equal(t, 0.0, score.Score)
	assert.Equal(t, domain.StatusColdStorage, score.Status)
}

func TestApplyFeedback_RecoveryDoesNotRepromote(t *testing.T) {
	scorer, quality, _ := newTestScorer(t)
	ctx := context.Background()

	require.NoError(t, quality.Save(ctx, domain.QualityScore{
		ChunkID: "c1", Score: 39, Status: domain.StatusDeprecated,
	}))

	// Push the score well above the deprecation threshold.
	for range 10 {
		_, err := scorer.ApplyFeedback(ctx, "c1", "u1", domain.FeedbackHelpful, "")
		require.NoError(t, err)
	}

	score, err := scorer.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Greater(t, score.Score, 40.0)
	assert.Equal(t, domain.StatusDeprecated, score.Status)
}

func TestRepromoteChunk(t *testing.T) {
	scorer, quality, _ := newTestScorer(t)
	ctx := context.Background()

	require.NoError(t, quality.Save(ctx, domain.QualityScore{
		ChunkID: "c1", Score: 55, Status: domain.StatusDeprecated,
	}))

	require.NoError(t, scorer.RepromoteChunk(ctx, "c1"))

	score, err := scorer.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, score.Status)
}

func TestRepromoteChunk_FromColdStorageRejected(t *testing.T) {
	scorer, quality, _ := newTestScorer(t)
	ctx := context.Background()

	require.NoError(t, quality.Save(ctx, domain.QualityScore{
		ChunkID: "c1", Score: 5, Status: domain.StatusColdStorage,
	}))

	err := scorer.RepromoteChunk(ctx, "c1")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestTransition_HardArchivedIsTerminal(t *testing.T) {
	scorer, quality, _ := newTestScorer(t)
	ctx := context.Background()

	require.NoError(t, quality.Save(ctx, domain.QualityScore{
		ChunkID: "c1", Score: 5, Status: domain.StatusHardArchived,
	}))

	err := scorer.Transition(ctx, "c1", domain.StatusActive)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestRecordAccess(t *testing.T) {
	scorer, _, _ := newTestScorer(t)
	ctx := context.Background()

	require.NoError(t, scorer.RecordAccess(ctx, "c1"))
	require.NoError(t, scorer.RecordAccess(ctx, "c1"))

	score, err := scorer.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 2, score.AccessCount)
}

func TestRecalculate_AppliesDailyDecay(t *testing.T) {
	scorer, quality, _ := newTestScorer(t)
	ctx := context.Background()

	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	scorer.now = func() time.Time { return now }

	past := now.Add(-10 * 24 * time.Hour)
	require.NoError(t, quality.Save(ctx, domain.QualityScore{
		ChunkID: "c1", Score: 70, Status: domain.StatusActive,
		DecayedAt: past, LastAccessedAt: past,
	}))

	summary, err := scorer.Recalculate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)

	score, err := scorer.Get(ctx, "c1")
	require.NoError(t, err)
	// 10 days at 0.5/day with no access protection.
	assert.InDelta(t, 65.0, score.Score, 1e-9)
	assert.Equal(t, now, score.DecayedAt)
}

func TestRecalculate_Idempotent(t *testing.T) {
	scorer, quality, _ := newTestScorer(t)
	ctx := context.Background()

	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	scorer.now = func() time.Time { return now }

	past := now.Add(-5 * 24 * time.Hour)
	require.NoError(t, quality.Save(ctx, domain.QualityScore{
		ChunkID: "c1", Score: 70, Status: domain.StatusActive,
		DecayedAt: past, LastAccessedAt: past,
	}))

	_, err := scorer.Recalculate(ctx)
	require.NoError(t, err)
	first, err := scorer.Get(ctx, "c1")
	require.NoError(t, err)

	// Less than a whole day has passed since DecayedAt was stamped, so
	// the second run changes nothing.
	summary, err := scorer.Recalculate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Succeeded)

	second, err := scorer.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, first.Score, second.Score)
}

func TestRecalculate_AccessProtectionSuppressesDecay(t *testing.T) {
	scorer, quality, _ := newTestScorer(t)
	ctx := context.Background()

	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	scorer.now = func() time.Time { return now }

	past := now.Add(-10 * 24 * time.Hour)
	require.NoError(t, quality.Save(ctx, domain.QualityScore{
		ChunkID: "hot", Score: 70, Status: domain.StatusActive,
		AccessCount: 10, // at the protection ceiling
		DecayedAt:   past, LastAccessedAt: past,
	}))

	_, err := scorer.Recalculate(ctx)
	require.NoError(t, err)

	score, err := scorer.Get(ctx, "hot")
	require.NoError(t, err)
	assert.Equal(t, 70.0, score.Score)
	// The rolling window still ages.
	assert.Equal(t, 5, score.AccessCount)
}

func TestRecalculate_StopsAtDecayFloor(t *testing.T) {
	scorer, quality, _ := newTestScorer(t)
	ctx := context.Background()

	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	scorer.now = func() time.Time { return now }

	past := now.Add(-100 * 24 * time.Hour)
	require.NoError(t, quality.Save(ctx, domain.QualityScore{
		ChunkID: "old", Score: 30, Status: domain.StatusActive,
		DecayedAt: past, LastAccessedAt: past,
	}))

	_, err := scorer.Recalculate(ctx)
	require.NoError(t, err)

	score, err := scorer.Get(ctx, "old")
	require.NoError(t, err)
	// 100 days at 0.5/day would reach -20; decay stops at the floor.
	assert.Equal(t, 20.0, score.Score)
}

func TestRecalculate_SkipsHardArchived(t *testing.T) {
	scorer, quality, _ := newTestScorer(t)
	ctx := context.Background()

	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	scorer.now = func() time.Time { return now }

	past := now.Add(-30 * 24 * time.Hour)
	require.NoError(t, quality.Save(ctx, domain.QualityScore{
		ChunkID: "gone", Score: 3, Status: domain.StatusHardArchived,
		DecayedAt: past, LastAccessedAt: past,
	}))

	summary, err := scorer.Recalculate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)

	score, err := scorer.Get(ctx, "gone")
	require.NoError(t, err)
	assert.Equal(t, 3.0, score.Score)
}

func TestRecalculate_SingleFlight(t *testing.T) {
	scorer, _, _ := newTestScorer(t)

	scorer.recalcMu.Lock()
	scorer.recalc = true
	scorer.recalcMu.Unlock()

	_, err := scorer.Recalculate(context.Background())
	assert.ErrorIs(t, err, domain.ErrJobInProgress)
}

func TestApplyFeedback_ConcurrentSameChunk(t *testing.T) {
	scorer, quality, _ := newTestScorer(t)
	ctx := context.Background()

	require.NoError(t, quality.Save(ctx, domain.QualityScore{
		ChunkID: "hot", Score: 50, Status: domain.StatusActive,
	}))

	const workers = 50
	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			_, err := scorer.ApplyFeedback(ctx, "hot", "u", domain.FeedbackHelpful, "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	score, err := scorer.Get(ctx, "hot")
	require.NoError(t, err)
	// No lost updates: every delta is applied exactly once.
	assert.Equal(t, workers, score.FeedbackCount)
	assert.Equal(t, domain.MaxScore, score.Score) // 50 + 50*2 clamps at 100
}

func TestSetConfig_RejectsInvalid(t *testing.T) {
	scorer, _, _ := newTestScorer(t)

	bad := domain.DefaultQualityConfig()
	bad.Impacts[domain.FeedbackHelpful] = -5

	err := scorer.SetConfig(bad)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	// The previous configuration stays in force.
	assert.Equal(t, 2.0, scorer.Config().ImpactFor(domain.FeedbackHelpful))
}

func TestKeyedMutex_DistinctKeysDoNotBlock(t *testing.T) {
	var km keyedMutex

	unlockA := km.lock("a")
	done := make(chan struct{})
	go func() {
		unlockB := km.lock("b")
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a distinct key blocked")
	}
	unlockA()
}

// gatedQualityStore pauses Recalculate between the listing and the
// per-chunk writes so another writer can land in that window.
type gatedQualityStore struct {
	*memory.QualityStore
	listed  chan struct{}
	proceed chan struct{}
}

func (s *gatedQualityStore) List(ctx context.Context) ([]domain.QualityScore, error) {
	scores, err := s.QualityStore.List(ctx)
	close(s.listed)
	<-s.proceed
	return scores, err
}

func TestRecalculate_FeedbackDuringDecayRunIsNotLost(t *testing.T) {
	store := &gatedQualityStore{
		QualityStore: memory.NewQualityStore(),
		listed:       make(chan struct{}),
		proceed:      make(chan struct{}),
	}
	scorer, err := NewQualityScorer(store, memory.NewFeedbackStore(), domain.DefaultQualityConfig())
	require.NoError(t, err)

	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	scorer.now = func() time.Time { return now }

	past := now.Add(-10 * 24 * time.Hour)
	require.NoError(t, store.Save(context.Background(), domain.QualityScore{
		ChunkID: "c1", Score: 70, Status: domain.StatusActive,
		LastAccessedAt: past, DecayedAt: past, UpdatedAt: past,
	}))

	errCh := make(chan error, 1)
	go func() {
		_, err := scorer.Recalculate(context.Background())
		errCh <- err
	}()

	// Land a feedback delta after the decay run has taken its listing
	// but before it writes anything.
	<-store.listed
	_, err = scorer.ApplyFeedback(context.Background(), "c1", "u1", domain.FeedbackIncorrect, "")
	require.NoError(t, err)
	close(store.proceed)
	require.NoError(t, <-errCh)

	got, err := store.Get(context.Background(), "c1")
	require.NoError(t, err)
	// The feedback delta (70 - 25 = 45) and ten days of decay (-5.0)
	// both apply; neither write erases the other.
	assert.Equal(t, 40.0, got.Score)
	assert.Equal(t, 1, got.FeedbackCount)
}
