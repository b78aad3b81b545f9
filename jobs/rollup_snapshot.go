package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/carepanel/carepanel/internal/jobs"
	"github.com/carepanel/carepanel/internal/transactions"
)

// Capturer persists daily rollups.
type Capturer interface {
	Capture(ctx context.Context, domain string) (int, error)
	CaptureAll(ctx context.Context) (map[string]int, error)
}

// RollupSnapshotJob processes rollup snapshot tasks.
type RollupSnapshotJob struct {
	service Capturer
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewRollupSnapshotJob constructs a job handler.
func NewRollupSnapshotJob(service Capturer, logger *slog.Logger, metrics *jobmetrics.Metrics) *RollupSnapshotJob {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	return &RollupSnapshotJob{service: service, logger: logger.With(slog.String("job", TaskRollupSnapshot)), metrics: metrics}
}

// Handle fulfils the asynq.HandlerFunc contract.
func (j *RollupSnapshotJob) Handle(ctx context.Context, task *asynq.Task) (err error) {
	if j == nil || j.service == nil {
		return errors.New("rollup snapshot: handler not configured")
	}
	var payload RollupSnapshotPayload
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	if payload.Domain != "" {
		if _, err := transactions.LookupDomain(payload.Domain); err != nil {
			return asynq.SkipRetry
		}
	}

	tracker := j.metrics.Track(TaskRollupSnapshot)
	defer func() { err = tracker.End(err) }()

	if payload.Domain != "" {
		n, err := j.service.Capture(ctx, payload.Domain)
		if err != nil {
			j.logger.Error("rollup snapshot", slog.String("domain", payload.Domain), slog.Any("error", err))
			return err
		}
		j.metrics.AddItems(TaskRollupSnapshot, payload.Domain, n)
		j.logger.Info("captured rollups", slog.String("domain", payload.Domain), slog.Int("rows", n))
		return nil
	}

	written, err := j.service.CaptureAll(ctx)
	for domain, n := range written {
		j.metrics.AddItems(TaskRollupSnapshot, domain, n)
	}
	if err != nil {
		return err
	}
	j.logger.Info("captured rollups", slog.Int("domains", len(written)))
	return nil
}
