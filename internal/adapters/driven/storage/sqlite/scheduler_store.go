package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/curator/internal/core/domain"
	"github.com/custodia-labs/curator/internal/core/ports/driven"
)

// schedulerStore implements driven.SchedulerStore.
type schedulerStore struct {
	store *Store
}

var _ driven.SchedulerStore = (*schedulerStore)(nil)

// GetTask retrieves a scheduled task by ID.
// Returns nil and no error if the task does not exist.
func (s *schedulerStore) GetTask(ctx context.Context, taskID string) (*domain.ScheduledTask, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, name, interval_seconds, last_run, next_run, last_error, last_success, enabled
		FROM scheduled_tasks WHERE id = ?
	`, taskID)

	task, err := scanScheduledTask(row)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil // Per interface: return nil and no error if not found
	}
	if err != nil {
		return nil, err
	}
	return task, nil
}

// ListTasks returns all scheduled tasks.
func (s *schedulerStore) ListTasks(ctx context.Context) ([]domain.ScheduledTask, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, name, interval_seconds, last_run, next_run, last_error, last_success, enabled
		FROM scheduled_tasks
	`)
	if err != nil {
		return nil, fmt.Errorf("querying scheduled tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.ScheduledTask //nolint:prealloc // size unknown from query
	for rows.Next() {
		task, err := scanScheduledTaskRows(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating scheduled tasks: %w", err)
	}

	return tasks, nil
}

// SaveTask persists a task's state.
// Creates or updates the task based on ID.
func (s *schedulerStore) SaveTask(ctx context.Context, task *domain.ScheduledTask) error {
	if task == nil {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO scheduled_tasks (id, name, interval_seconds, last_run, next_run, last_error, last_success, enabled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			interval_seconds = excluded.interval_seconds,
			last_run = excluded.last_run,
			next_run = excluded.next_run,
			last_error = excluded.last_error,
			last_success = excluded.last_success,
			enabled = excluded.enabled
	`, task.ID, task.Name, int64(task.Interval.Seconds()),
		formatNullableTime(task.LastRun), formatNullableTime(task.NextRun),
		nullString(task.LastError), formatNullableTime(task.LastSuccess),
		boolToInt(task.Enabled))

	if err != nil {
		return fmt.Errorf("saving scheduled task: %w", err)
	}
	return nil
}

// scanScheduledTask scans a single scheduled task row.
func scanScheduledTask(row *sql.Row) (*domain.ScheduledTask, error) {
	var task domain.ScheduledTask
	var intervalSeconds int64
	var lastRun, nextRun, lastError, lastSuccess sql.NullString
	var enabled int

	if err := row.Scan(&task.ID, &task.Name, &intervalSeconds,
		&lastRun, &nextRun, &lastError, &lastSuccess, &enabled); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning scheduled task: %w", err)
	}

	task.Interval = time.Duration(intervalSeconds) * time.Second
	task.LastRun = parseNullableTime(lastRun)
	task.NextRun = parseNullableTime(nextRun)
	if lastError.Valid {
		task.LastError = lastError.String
	}
	task.LastSuccess = parseNullableTime(lastSuccess)
	task.Enabled = enabled == 1

	return &task, nil
}

// scanScheduledTaskRows scans a scheduled task from *sql.Rows.
func scanScheduledTaskRows(rows *sql.Rows) (*domain.ScheduledTask, error) {
	var task domain.ScheduledTask
	var intervalSeconds int64
	var lastRun, nextRun, lastError, lastSuccess sql.NullString
	var enabled int

	if err := rows.Scan(&task.ID, &task.Name, &intervalSeconds,
		&lastRun, &nextRun, &lastError, &lastSuccess, &enabled); err != nil {
		return nil, fmt.Errorf("scanning scheduled task: %w", err)
	}

	task.Interval = time.Duration(intervalSeconds) * time.Second
	task.LastRun = parseNullableTime(lastRun)
	task.NextRun = parseNullableTime(nextRun)
	if lastError.Valid {
		task.LastError = lastError.String
	}
	task.LastSuccess = parseNullableTime(lastSuccess)
	task.Enabled = enabled == 1

	return &task, nil
}
