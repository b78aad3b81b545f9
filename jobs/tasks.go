package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskDatasourceWarmup refreshes the datasource cache for every domain.
	TaskDatasourceWarmup = "datasource:warmup"
	// TaskRollupSnapshot persists daily rollups.
	TaskRollupSnapshot = "rollups:snapshot"
)

// Default cron schedules, evaluated in UTC.
const (
	WarmupCronSpec   = "*/15 * * * *"
	SnapshotCronSpec = "10 0 * * *"
)

// DatasourceWarmupPayload controls a warmup run.
type DatasourceWarmupPayload struct {
	// KeepCache skips the version bump and only fills missing entries.
	KeepCache bool `json:"keep_cache,omitempty"`
}

// RollupSnapshotPayload selects the domain to capture. Empty means all.
type RollupSnapshotPayload struct {
	Domain string `json:"domain,omitempty"`
}

// NewDatasourceWarmupTask constructs an Asynq task.
func NewDatasourceWarmupTask(payload DatasourceWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDatasourceWarmup, data), nil
}

// NewRollupSnapshotTask constructs an Asynq task.
func NewRollupSnapshotTask(payload RollupSnapshotPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRollupSnapshot, data), nil
}

// DefaultCron returns the periodic registrations used by the worker.
func DefaultCron() ([]CronRegistration, error) {
	warmup, err := NewDatasourceWarmupTask(DatasourceWarmupPayload{})
	if err != nil {
		return nil, err
	}
	snapshot, err := NewRollupSnapshotTask(RollupSnapshotPayload{})
	if err != nil {
		return nil, err
	}
	return []CronRegistration{
		{Spec: WarmupCronSpec, Task: warmup, Options: []asynq.Option{asynq.Queue(QueueDefault), asynq.MaxRetry(1)}},
		{Spec: SnapshotCronSpec, Task: snapshot, Options: []asynq.Option{asynq.Queue(QueueDefault)}},
	}, nil
}
