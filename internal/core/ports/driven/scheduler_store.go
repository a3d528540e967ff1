package driven

import (
	"context"

	"github.com/custodia-labs/curator/internal/core/domain"
)

// SchedulerStore persists scheduled task state.
type SchedulerStore interface {
	// GetTask retrieves a task by ID. Returns (nil, nil) when the
	// task does not exist.
	GetTask(ctx context.Context, id string) (*domain.ScheduledTask, error)

	// SaveTask stores or updates a task.
	SaveTask(ctx context.Context, task *domain.ScheduledTask) error

	// ListTasks retrieves all tasks.
	ListTasks(ctx context.Context) ([]domain.ScheduledTask, error)
}
