package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/carepanel/carepanel/internal/clinic"
	jobmetrics "github.com/carepanel/carepanel/internal/jobs"
	"github.com/carepanel/carepanel/internal/transactions"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// Prefetcher is the part of the clinic service a warmup touches.
type Prefetcher interface {
	Report(ctx context.Context, domain string, filter transactions.Filter) (clinic.Report, error)
	Resource(ctx context.Context, name string) (json.RawMessage, error)
}

// Invalidator drops every cached datasource entry.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// DatasourceWarmupJob refreshes cached payloads so dashboard reads hit Redis.
type DatasourceWarmupJob struct {
	Service Prefetcher
	Cache   Invalidator
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	// StepTimeout bounds each prefetch. Zero uses 20s.
	StepTimeout time.Duration
}

// NewDatasourceWarmupJob wires dependencies for the warmup handler.
func NewDatasourceWarmupJob(service Prefetcher, cache Invalidator, logger *slog.Logger, metrics *jobmetrics.Metrics) *DatasourceWarmupJob {
	return &DatasourceWarmupJob{Service: service, Cache: cache, Logger: logger, Metrics: metrics}
}

// Handle processes datasource warmup tasks.
func (j *DatasourceWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("datasource warmup: handler not configured")
	}
	var payload DatasourceWarmupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	tracker := j.metrics().Track(TaskDatasourceWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	start := time.Now()
	logger.Info("starting datasource warmup", slog.Bool("keep_cache", payload.KeepCache))

	if j.Cache != nil && !payload.KeepCache {
		if err := j.Cache.Invalidate(ctx); err != nil {
			resultErr = err
			logger.Error("bump datasource cache", slog.Any("error", err))
			return resultErr
		}
	}

	var errs []error
	for _, d := range transactions.Domains() {
		err := j.step(ctx, func(stepCtx context.Context) error {
			_, err := j.Service.Report(stepCtx, d.Name, transactions.Filter{})
			return err
		})
		if err != nil {
			logger.Warn("warm domain", slog.String("domain", d.Name), slog.Any("error", err))
			errs = append(errs, err)
			continue
		}
		j.metrics().AddItems(TaskDatasourceWarmup, d.Name, 1)
	}
	for _, r := range clinic.Resources() {
		err := j.step(ctx, func(stepCtx context.Context) error {
			_, err := j.Service.Resource(stepCtx, r.Name)
			return err
		})
		if err != nil {
			logger.Warn("warm resource", slog.String("resource", r.Name), slog.Any("error", err))
			errs = append(errs, err)
			continue
		}
		j.metrics().AddItems(TaskDatasourceWarmup, "resources", 1)
	}

	resultErr = errors.Join(errs...)
	logger.Info("completed datasource warmup", slog.Int("failures", len(errs)), slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *DatasourceWarmupJob) step(ctx context.Context, fn func(context.Context) error) error {
	timeout := j.StepTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(stepCtx)
}

func (j *DatasourceWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskDatasourceWarmup))
	}
	return slog.Default().With(slog.String("job", TaskDatasourceWarmup))
}

func (j *DatasourceWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
