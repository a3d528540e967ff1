package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/curator/internal/core/domain"
	"github.com/custodia-labs/curator/internal/core/ports/driven"
	"github.com/custodia-labs/curator/internal/core/ports/driving"
	"github.com/custodia-labs/curator/internal/logger"
)

// Scheduler drives the periodic maintenance tasks: quality decay,
// archival and conflict scanning. It is a pure core service with no
// external control API.
type Scheduler struct {
	config    domain.SchedulerConfig
	store     driven.SchedulerStore
	lifecycle driving.LifecycleService

	mu       sync.Mutex
	running  bool
	inFlight map[string]bool
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewScheduler creates a scheduler with configuration.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	lifecycle driving.LifecycleService,
) *Scheduler {
	return &Scheduler{
		config:    config,
		store:     store,
		lifecycle: lifecycle,
		inFlight:  make(map[string]bool),
	}
}

// Start begins the scheduler loop. Blocks until Stop is called or the
// context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	if err := s.initialiseTasks(ctx); err != nil {
		logger.Warn("Scheduler: failed to initialise tasks: %v", err)
	}

	return s.run(ctx)
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	// Wait for running tasks to complete
	s.wg.Wait()

	return nil
}

// initialiseTasks ensures all configured tasks exist in the store.
func (s *Scheduler) initialiseTasks(ctx context.Context) error {
	tasks := []struct {
		id   string
		name string
	}{
		{domain.TaskIDQualityDecay, "Quality Decay"},
		{domain.TaskIDArchival, "Archival"},
		{domain.TaskIDConflictScan, "Conflict Scan"},
	}

	for _, t := range tasks {
		taskCfg := s.config.GetTaskConfig(t.id)
		if !taskCfg.Enabled {
			continue
		}
		if err := s.ensureTask(ctx, t.id, t.name, taskCfg); err != nil {
			return err
		}
	}

	return nil
}

// ensureTask creates or updates a task in the store.
func (s *Scheduler) ensureTask(ctx context.Context, id, name string, cfg domain.TaskConfig) error {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}

	if task == nil {
		task = &domain.ScheduledTask{
			ID:       id,
			Name:     name,
			Interval: cfg.Interval,
			Enabled:  cfg.Enabled,
			NextRun:  time.Now().Add(cfg.Interval),
		}
	} else {
		if task.Interval != cfg.Interval {
			task.Interval = cfg.Interval
			// Recalculate next run from now
			task.NextRun = time.Now().Add(cfg.Interval)
		}
		task.Enabled = cfg.Enabled
	}

	return s.store.SaveTask(ctx, task)
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context) error {
	// Check for due tasks immediately on startup
	s.checkAndRunDueTasks(ctx)

	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			s.checkAndRunDueTasks(ctx)
		}
	}
}

// checkAndRunDueTasks finds and executes tasks that are due.
func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		logger.Warn("Scheduler: failed to list tasks: %v", err)
		return
	}

	now := time.Now()
	for i := range tasks {
		task := &tasks[i]
		if !task.Enabled {
			continue
		}
		if task.NextRun.IsZero() || !task.NextRun.After(now) {
			s.runTask(ctx, task)
		}
	}
}

// runTask executes a single task in the background and records its
// outcome on the task record. A task still running from a previous
// tick is skipped so its outcome is not clobbered.
func (s *Scheduler) runTask(ctx context.Context, task *domain.ScheduledTask) {
	s.mu.Lock()
	if s.inFlight[task.ID] {
		s.mu.Unlock()
		logger.Debug("Scheduler: task %s still running, skipping", task.ID)
		return
	}
	s.inFlight[task.ID] = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.inFlight, task.ID)
			s.mu.Unlock()
		}()

		startedAt := time.Now()
		logger.Debug("Scheduler: running task %s", task.ID)

		var err error
		switch task.ID {
		case domain.TaskIDQualityDecay:
			_, err = s.lifecycle.RecalculateScores(ctx)
		case domain.TaskIDArchival:
			_, err = s.lifecycle.RunArchival(ctx)
		case domain.TaskIDConflictScan:
			_, err = s.lifecycle.DetectConflicts(ctx, nil)
		default:
			logger.Warn("Scheduler: unknown task ID: %s", task.ID)
			return
		}

		endedAt := time.Now()
		if err != nil {
			task.LastError = err.Error()
			logger.Warn("Scheduler: task %s failed: %v", task.ID, err)
		} else {
			task.LastError = ""
			task.LastSuccess = endedAt
		}

		task.LastRun = startedAt
		task.NextRun = endedAt.Add(task.Interval)

		if saveErr := s.store.SaveTask(ctx, task); saveErr != nil {
			logger.Warn("Scheduler: failed to save task %s: %v", task.ID, saveErr)
		}
	}()
}
