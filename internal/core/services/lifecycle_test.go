package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/curator/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/curator/internal/core/domain"
)

// --- Mock implementations ---

// mockArchiveWriter implements driven.ArchiveWriter for testing.
type mockArchiveWriter struct {
	exported  []domain.ArchivedChunk
	exportErr error
}

func (m *mockArchiveWriter) Export(_ context.Context, records []domain.ArchivedChunk) (string, error) {
	if m.exportErr != nil {
		return "", m.exportErr
	}
	m.exported = append(m.exported, records...)
	return "/tmp/archive.jsonl", nil
}

// --- Helpers ---

type lifecycleFixture struct {
	svc      *LifecycleService
	chunks   *memory.ChunkStore
	quality  *memory.QualityStore
	feedback *memory.FeedbackStore
	archive  *mockArchiveWriter
	now      time.Time
}

func newLifecycleFixture(t *testing.T) *lifecycleFixture {
	t.Helper()
	f := &lifecycleFixture{
		chunks:   memory.NewChunkStore(),
		quality:  memory.NewQualityStore(),
		feedback: memory.NewFeedbackStore(),
		archive:  &mockArchiveWriter{},
		now:      time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC),
	}

	scorer, err := NewQualityScorer(f.quality, f.feedback, domain.DefaultQualityConfig())
	require.NoError(t, err)
	scorer.now = func() time.Time { return f.now }

	f.svc = NewLifecycleService(f.chunks, scorer, f.feedback, f.archive, nil)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *lifecycleFixture) seed(t *testing.T, chunk domain.Chunk, score domain.QualityScore) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.chunks.SaveChunks(ctx, []domain.Chunk{chunk}))
	require.NoError(t, f.quality.Save(ctx, score))
}

// --- Tests ---

func TestRunArchival_LowScoreMovesToColdStorage(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	f.seed(t,
		domain.Chunk{ID: "low", PageID: "p1", Content: "x"},
		domain.QualityScore{
			ChunkID: "low", Score: 5, Status: domain.StatusDeprecated,
			LastAccessedAt: f.now.Add(-time.Hour),
		})

	summary, err := f.svc.RunArchival(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)

	score, err := f.quality.Get(ctx, "low")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusColdStorage, score.Status)
}

func TestRunArchival_StaleChunkMovesRegardlessOfScore(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	f.seed(t,
		domain.Chunk{ID: "stale", PageID: "p1", Content: "x"},
		domain.QualityScore{
			ChunkID: "stale", Score: 85, Status: domain.StatusActive,
			LastAccessedAt: f.now.Add(-400 * 24 * time.Hour),
		})

	summary, err := f.svc.RunArchival(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)

	score, err := f.quality.Get(ctx, "stale")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusColdStorage, score.Status)
}

func TestRunArchival_HealthyChunkUntouched(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	f.seed(t,
		domain.Chunk{ID: "fine", PageID: "p1", Content: "x"},
		domain.QualityScore{
			ChunkID: "fine", Score: 75, Status: domain.StatusActive,
			LastAccessedAt: f.now.Add(-time.Hour),
		})

	summary, err := f.svc.RunArchival(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Zero(t, summary.Succeeded)
}

func TestRunArchival_ExpiredColdStorageIsExportedThenHardArchived(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	f.seed(t,
		domain.Chunk{ID: "cold", PageID: "p1", Content: "frozen content"},
		domain.QualityScore{
			ChunkID: "cold", Score: 4, Status: domain.StatusColdStorage,
			StatusChangedAt: f.now.Add(-120 * 24 * time.Hour),
			LastAccessedAt:  f.now.Add(-200 * 24 * time.Hour),
		})

	summary, err := f.svc.RunArchival(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)

	require.Len(t, f.archive.exported, 1)
	assert.Equal(t, "cold", f.archive.exported[0].Chunk.ID)
	assert.Equal(t, "frozen content", f.archive.exported[0].Chunk.Content)

	score, err := f.quality.Get(ctx, "cold")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusHardArchived, score.Status)
}

func TestRunArchival_RecentColdStorageWaits(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	f.seed(t,
		domain.Chunk{ID: "cold", PageID: "p1", Content: "x"},
		domain.QualityScore{
			ChunkID: "cold", Score: 4, Status: domain.StatusColdStorage,
			StatusChangedAt: f.now.Add(-30 * 24 * time.Hour),
		})

	summary, err := f.svc.RunArchival(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Empty(t, f.archive.exported)
}

func TestRunArchival_ExportFailureDefersHardArchival(t *testing.T) {
	f := newLifecycleFixture(t)
	f.archive.exportErr = errors.New("disk full")
	ctx := context.Background()

	f.seed(t,
		domain.Chunk{ID: "cold", PageID: "p1", Content: "x"},
		domain.QualityScore{
			ChunkID: "cold", Score: 4, Status: domain.StatusColdStorage,
			StatusChangedAt: f.now.Add(-120 * 24 * time.Hour),
		})

	summary, err := f.svc.RunArchival(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)

	// Without a durable export the chunk stays in cold storage for
	// the next run.
	score, err := f.quality.Get(ctx, "cold")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusColdStorage, score.Status)
}

func TestDetectObsolete_AllSignals(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	f.seed(t,
		domain.Chunk{
			ID: "ancient", PageID: "p1", Content: "x",
			UpdatedAt: f.now.Add(-800 * 24 * time.Hour),
		},
		domain.QualityScore{ChunkID: "ancient", Score: 15, Status: domain.StatusDeprecated})

	// Six events, four negative: ratio 0.67 over a sufficient sample.
	for i, ft := range []domain.FeedbackType{
		domain.FeedbackHelpful, domain.FeedbackHelpful,
		domain.FeedbackOutdated, domain.FeedbackIncorrect,
		domain.FeedbackOutdated, domain.FeedbackConfusing,
	} {
		require.NoError(t, f.feedback.Append(ctx, domain.FeedbackEvent{
			ID: domain.ChunkID("fb", i, string(ft)), ChunkID: "ancient", Type: ft,
		}))
	}

	flags, err := f.svc.DetectObsolete(ctx)
	require.NoError(t, err)
	require.Len(t, flags, 1)

	flag := flags[0]
	assert.ElementsMatch(t, []string{"age", "low_quality", "negative_feedback"}, flag.Reasons)
	assert.Equal(t, domain.SeverityHigh, flag.Severity)
	assert.Equal(t, 800, flag.AgeDays)
	assert.InDelta(t, 4.0/6.0, flag.NegativeRatio, 1e-9)
}

func TestDetectObsolete_SmallSampleIgnoresRatio(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	f.seed(t,
		domain.Chunk{ID: "sparse", PageID: "p1", Content: "x", UpdatedAt: f.now.Add(-24 * time.Hour)},
		domain.QualityScore{ChunkID: "sparse", Score: 30, Status: domain.StatusActive})

	// Two negative events: 100% negative but below the sample floor.
	for i := range 2 {
		require.NoError(t, f.feedback.Append(ctx, domain.FeedbackEvent{
			ID: domain.ChunkID("fb", i, "neg"), ChunkID: "sparse", Type: domain.FeedbackIncorrect,
		}))
	}

	flags, err := f.svc.DetectObsolete(ctx)
	require.NoError(t, err)
	require.Len(t, flags, 1)
	assert.Equal(t, []string{"low_quality"}, flags[0].Reasons)
	assert.Equal(t, domain.SeverityLow, flags[0].Severity)
}

func TestDetectObsolete_AgeEscalatesSeverity(t *testing.T) {
	f := newLifecycleFixture(t)

	// Single signal but far beyond twice the age threshold.
	f.seed(t,
		domain.Chunk{
			ID: "relic", PageID: "p1", Content: "x",
			UpdatedAt: f.now.Add(-800 * 24 * time.Hour),
		},
		domain.QualityScore{ChunkID: "relic", Score: 75, Status: domain.StatusActive})

	flags, err := f.svc.DetectObsolete(context.Background())
	require.NoError(t, err)
	require.Len(t, flags, 1)
	assert.Equal(t, []string{"age"}, flags[0].Reasons)
	assert.Equal(t, domain.SeverityMedium, flags[0].Severity)
}

func TestDetectObsolete_SortedBySeverity(t *testing.T) {
	f := newLifecycleFixture(t)

	f.seed(t,
		domain.Chunk{ID: "mild", PageID: "p1", Content: "x", UpdatedAt: f.now.Add(-24 * time.Hour)},
		domain.QualityScore{ChunkID: "mild", Score: 35, Status: domain.StatusActive})
	f.seed(t,
		domain.Chunk{
			ID: "bad", PageID: "p1", Content: "x",
			UpdatedAt: f.now.Add(-400 * 24 * time.Hour),
		},
		domain.QualityScore{ChunkID: "bad", Score: 20, Status: domain.StatusDeprecated})

	flags, err := f.svc.DetectObsolete(context.Background())
	require.NoError(t, err)
	require.Len(t, flags, 2)
	assert.Equal(t, "bad", flags[0].ChunkID)
	assert.Equal(t, "mild", flags[1].ChunkID)
}

func TestDetectObsolete_SkipsHardArchived(t *testing.T) {
	f := newLifecycleFixture(t)

	f.seed(t,
		domain.Chunk{
			ID: "gone", PageID: "p1", Content: "x",
			UpdatedAt: f.now.Add(-900 * 24 * time.Hour),
		},
		domain.QualityScore{ChunkID: "gone", Score: 2, Status: domain.StatusHardArchived})

	flags, err := f.svc.DetectObsolete(context.Background())
	require.NoError(t, err)
	assert.Empty(t, flags)
}

func TestDetectConflicts_WithoutDetector(t *testing.T) {
	f := newLifecycleFixture(t)

	_, err := f.svc.DetectConflicts(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestLifecycle_SingleFlight(t *testing.T) {
	f := newLifecycleFixture(t)

	release, err := f.svc.acquire("archival")
	require.NoError(t, err)

	_, err = f.svc.RunArchival(context.Background())
	assert.ErrorIs(t, err, domain.ErrJobInProgress)

	release()

	_, err = f.svc.RunArchival(context.Background())
	assert.NoError(t, err)
}
