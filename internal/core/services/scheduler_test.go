package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/curator/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/curator/internal/core/domain"
)

// --- Mock implementations ---

// mockLifecycle implements driving.LifecycleService for testing.
type mockLifecycle struct {
	mu        sync.Mutex
	decayRuns int
	archRuns  int
	scanRuns  int
	decayErr  error
	summary   domain.BatchSummary
}

func (m *mockLifecycle) RecalculateScores(_ context.Context) (*domain.BatchSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decayRuns++
	if m.decayErr != nil {
		return nil, m.decayErr
	}
	s := m.summary
	return &s, nil
}

func (m *mockLifecycle) RunArchival(_ context.Context) (*domain.BatchSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.archRuns++
	s := m.summary
	return &s, nil
}

func (m *mockLifecycle) DetectObsolete(_ context.Context) ([]domain.ObsoleteFlag, error) {
	return nil, nil
}

func (m *mockLifecycle) DetectConflicts(_ context.Context, _ []string) (*domain.BatchSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scanRuns++
	s := m.summary
	return &s, nil
}

func (m *mockLifecycle) runs() (int, int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.decayRuns, m.archRuns, m.scanRuns
}

// gatedLifecycle blocks the decay run until released so a test can
// overlap a second scheduler sweep with an in-progress task.
type gatedLifecycle struct {
	mockLifecycle
	started chan struct{}
	release chan struct{}
}

func (m *gatedLifecycle) RecalculateScores(_ context.Context) (*domain.BatchSummary, error) {
	m.mu.Lock()
	m.decayRuns++
	m.mu.Unlock()
	select {
	case m.started <- struct{}{}:
	default:
	}
	<-m.release
	s := m.summary
	return &s, nil
}

// --- Tests ---

func TestScheduler_InitialisesConfiguredTasks(t *testing.T) {
	store := memory.NewSchedulerStore()
	sched := NewScheduler(domain.DefaultSchedulerConfig(), store, &mockLifecycle{})
	ctx := context.Background()

	require.NoError(t, sched.initialiseTasks(ctx))

	tasks, err := store.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 3)

	byID := make(map[string]domain.ScheduledTask)
	for _, task := range tasks {
		byID[task.ID] = task
	}
	assert.Equal(t, 24*time.Hour, byID[domain.TaskIDQualityDecay].Interval)
	assert.Equal(t, 24*time.Hour, byID[domain.TaskIDArchival].Interval)
	assert.Equal(t, 6*time.Hour, byID[domain.TaskIDConflictScan].Interval)
	for _, task := range tasks {
		assert.True(t, task.Enabled)
		assert.False(t, task.NextRun.IsZero())
	}
}

func TestScheduler_DisabledTaskNotCreated(t *testing.T) {
	cfg := domain.DefaultSchedulerConfig()
	taskCfg := cfg.TaskConfigs[domain.TaskIDConflictScan]
	taskCfg.Enabled = false
	cfg.TaskConfigs[domain.TaskIDConflictScan] = taskCfg

	store := memory.NewSchedulerStore()
	sched := NewScheduler(cfg, store, &mockLifecycle{})

	require.NoError(t, sched.initialiseTasks(context.Background()))

	tasks, err := store.ListTasks(context.Background())
	require.NoError(t, err)
	assert.Len(t, tasks, 2)
}

func TestScheduler_IntervalChangeReschedules(t *testing.T) {
	store := memory.NewSchedulerStore()
	ctx := context.Background()

	staleNext := time.Now().Add(90 * 24 * time.Hour)
	require.NoError(t, store.SaveTask(ctx, &domain.ScheduledTask{
		ID:       domain.TaskIDQualityDecay,
		Name:     "Quality Decay",
		Interval: 90 * 24 * time.Hour,
		Enabled:  true,
		NextRun:  staleNext,
	}))

	sched := NewScheduler(domain.DefaultSchedulerConfig(), store, &mockLifecycle{})
	require.NoError(t, sched.initialiseTasks(ctx))

	task, err := store.GetTask(ctx, domain.TaskIDQualityDecay)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, 24*time.Hour, task.Interval)
	assert.True(t, task.NextRun.Before(staleNext))
}

func TestScheduler_RunsDueTasks(t *testing.T) {
	store := memory.NewSchedulerStore()
	lifecycle := &mockLifecycle{}
	sched := NewScheduler(domain.DefaultSchedulerConfig(), store, lifecycle)
	ctx := context.Background()

	// Due in the past.
	require.NoError(t, store.SaveTask(ctx, &domain.ScheduledTask{
		ID: domain.TaskIDQualityDecay, Name: "Quality Decay",
		Interval: 24 * time.Hour, Enabled: true,
		NextRun: time.Now().Add(-time.Minute),
	}))
	// Not yet due.
	require.NoError(t, store.SaveTask(ctx, &domain.ScheduledTask{
		ID: domain.TaskIDArchival, Name: "Archival",
		Interval: 24 * time.Hour, Enabled: true,
		NextRun: time.Now().Add(time.Hour),
	}))
	// Due but disabled.
	require.NoError(t, store.SaveTask(ctx, &domain.ScheduledTask{
		ID: domain.TaskIDConflictScan, Name: "Conflict Scan",
		Interval: 6 * time.Hour, Enabled: false,
		NextRun: time.Now().Add(-time.Minute),
	}))

	sched.checkAndRunDueTasks(ctx)
	sched.wg.Wait()

	decay, arch, scan := lifecycle.runs()
	assert.Equal(t, 1, decay)
	assert.Zero(t, arch)
	assert.Zero(t, scan)

	task, err := store.GetTask(ctx, domain.TaskIDQualityDecay)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.False(t, task.LastRun.IsZero())
	assert.False(t, task.LastSuccess.IsZero())
	assert.Empty(t, task.LastError)
	assert.True(t, task.NextRun.After(time.Now()))
}

func TestScheduler_RecordsTaskFailure(t *testing.T) {
	store := memory.NewSchedulerStore()
	lifecycle := &mockLifecycle{decayErr: errors.New("store offline")}
	sched := NewScheduler(domain.DefaultSchedulerConfig(), store, lifecycle)
	ctx := context.Background()

	require.NoError(t, store.SaveTask(ctx, &domain.ScheduledTask{
		ID: domain.TaskIDQualityDecay, Name: "Quality Decay",
		Interval: 24 * time.Hour, Enabled: true,
	}))

	sched.checkAndRunDueTasks(ctx)
	sched.wg.Wait()

	task, err := store.GetTask(ctx, domain.TaskIDQualityDecay)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, "store offline", task.LastError)
	assert.True(t, task.LastSuccess.IsZero())
}

func TestScheduler_SkipsTaskStillRunning(t *testing.T) {
	store := memory.NewSchedulerStore()
	lifecycle := &gatedLifecycle{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	sched := NewScheduler(domain.DefaultSchedulerConfig(), store, lifecycle)
	ctx := context.Background()

	require.NoError(t, store.SaveTask(ctx, &domain.ScheduledTask{
		ID: domain.TaskIDQualityDecay, Name: "Quality Decay",
		Interval: 24 * time.Hour, Enabled: true,
		NextRun: time.Now().Add(-time.Minute),
	}))

	sched.checkAndRunDueTasks(ctx)
	<-lifecycle.started

	// A second sweep fires while the first run is still in progress.
	// The task record has not been updated yet, so it still looks due.
	sched.checkAndRunDueTasks(ctx)

	close(lifecycle.release)
	sched.wg.Wait()

	decay, _, _ := lifecycle.runs()
	assert.Equal(t, 1, decay)

	task, err := store.GetTask(ctx, domain.TaskIDQualityDecay)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Empty(t, task.LastError)
	assert.False(t, task.LastSuccess.IsZero())
}

func TestScheduler_StartStop(t *testing.T) {
	store := memory.NewSchedulerStore()
	lifecycle := &mockLifecycle{}
	sched := NewScheduler(domain.DefaultSchedulerConfig(), store, lifecycle)

	done := make(chan error, 1)
	go func() {
		done <- sched.Start(context.Background())
	}()

	// Give the startup sweep a moment, then stop.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, sched.Stop())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
