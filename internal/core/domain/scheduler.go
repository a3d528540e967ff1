package domain

import "time"

// ScheduledTask represents a recurring background maintenance task.
type ScheduledTask struct {
	// ID is the unique identifier for the task.
	ID string

	// Name is a human-readable name for the task.
	Name string

	// Interval defines how often the task should run.
	Interval time.Duration

	// LastRun is when the task last ran.
	LastRun time.Time

	// NextRun is when the task should run next.
	NextRun time.Time

	// LastError contains the last error message, if any.
	LastError string

	// LastSuccess is when the task last completed successfully.
	LastSuccess time.Time

	// Enabled indicates whether the task is active.
	Enabled bool
}

// SchedulerConfig holds scheduler configuration.
type SchedulerConfig struct {
	// Enabled is the master switch for the scheduler.
	Enabled bool

	// TaskConfigs holds per-task configuration.
	TaskConfigs map[string]TaskConfig
}

// TaskConfig holds configuration for a single task.
type TaskConfig struct {
	// Enabled indicates whether this task should run.
	Enabled bool

	// Interval defines how often the task should run.
	Interval time.Duration
}

// GetTaskConfig returns the configuration for a specific task.
// Returns a zero TaskConfig if the task is not configured.
func (c *SchedulerConfig) GetTaskConfig(taskID string) TaskConfig {
	if c.TaskConfigs == nil {
		return TaskConfig{}
	}
	return c.TaskConfigs[taskID]
}

// DefaultSchedulerConfig returns sensible defaults for the scheduler.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled: true,
		TaskConfigs: map[string]TaskConfig{
			TaskIDQualityDecay: {
				Enabled:  true,
				Interval: 24 * time.Hour,
			},
			TaskIDArchival: {
				Enabled:  true,
				Interval: 24 * time.Hour,
			},
			TaskIDConflictScan: {
				Enabled:  true,
				Interval: 6 * time.Hour,
			},
		},
	}
}

// Task IDs for built-in maintenance tasks.
const (
	TaskIDQualityDecay = "quality-decay"
	TaskIDArchival     = "archival"
	TaskIDConflictScan = "conflict-scan"
)
