package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/curator/internal/core/domain"
	"github.com/custodia-labs/curator/internal/core/ports/driven"
)

// Ensure SchedulerStore implements the interface.
var _ driven.SchedulerStore = (*SchedulerStore)(nil)

// SchedulerStore is an in-memory implementation of driven.SchedulerStore.
type SchedulerStore struct {
	mu    sync.RWMutex
	tasks map[string]domain.ScheduledTask
}

// NewSchedulerStore creates a new in-memory scheduler store.
func NewSchedulerStore() *SchedulerStore {
	return &SchedulerStore{
		tasks: make(map[string]domain.ScheduledTask),
	}
}

// GetTask retrieves a task by ID. Returns nil and no error if the
// task does not exist.
func (s *SchedulerStore) GetTask(_ context.Context, id string) (*domain.ScheduledTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, nil
	}
	return &task, nil
}

// SaveTask stores or updates a task.
func (s *SchedulerStore) SaveTask(_ context.Context, task *domain.ScheduledTask) error {
	if task == nil || task.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = *task
	return nil
}

// ListTasks retrieves all tasks.
func (s *SchedulerStore) ListTasks(_ context.Context) ([]domain.ScheduledTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tasks := make([]domain.ScheduledTask, 0, len(s.tasks))
	for _, task := range s.tasks {
		tasks = append(tasks, task)
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].ID < tasks[j].ID
	})
	return tasks, nil
}
