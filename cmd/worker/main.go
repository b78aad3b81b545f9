package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/carepanel/carepanel/internal/app"
	"github.com/carepanel/carepanel/internal/clinic"
	"github.com/carepanel/carepanel/internal/datasource"
	jobmetrics "github.com/carepanel/carepanel/internal/jobs"
	"github.com/carepanel/carepanel/internal/platform/cache"
	"github.com/carepanel/carepanel/internal/platform/db"
	"github.com/carepanel/carepanel/internal/snapshots"
	"github.com/carepanel/carepanel/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if cfg.RedisAddr == "" {
		logger.Error("worker requires REDIS_ADDR")
		os.Exit(1)
	}
	redisOpt, err := cache.AsynqOpt(cfg.RedisAddr)
	if err != nil {
		logger.Error("parse redis address", slog.Any("error", err))
		os.Exit(1)
	}
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := jobmetrics.NewMetrics(nil)

	fetcher := datasource.NewFetcher(datasource.Options{
		FallbackURL: cfg.FallbackURL(),
		Timeout:     cfg.DatasourceTimeout,
		Logger:      logger,
	})
	source := datasource.NewCachedSource(fetcher, datasource.NewCache(redisClient, cfg.DatasourceCacheTTL), logger)
	clinicService := clinic.NewService(source, clinic.Options{
		BaseURL: cfg.APIBaseURL,
		Timeout: cfg.DatasourceTimeout,
	})

	warmupJob := jobs.NewDatasourceWarmupJob(clinicService, source, logger, metrics)
	handlers := []jobs.TaskHandler{
		{Type: jobs.TaskDatasourceWarmup, Handler: warmupJob.Handle},
	}

	cron, err := jobs.DefaultCron()
	if err != nil {
		logger.Error("build cron tasks", slog.Any("error", err))
		os.Exit(1)
	}

	if cfg.PGDSN != "" {
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			logger.Error("connect postgres", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()
		repo := snapshots.NewRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			logger.Error("ensure snapshot schema", slog.Any("error", err))
			os.Exit(1)
		}
		snapshotJob := jobs.NewRollupSnapshotJob(snapshots.NewService(repo, clinicService, logger), logger, metrics)
		handlers = append(handlers, jobs.TaskHandler{Type: jobs.TaskRollupSnapshot, Handler: snapshotJob.Handle})
	} else {
		logger.Info("PG_DSN not set, rollup snapshots disabled")
		cron = withoutTask(cron, jobs.TaskRollupSnapshot)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpt,
		Logger:    logger,
		Handlers:  handlers,
		Cron:      cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

func withoutTask(cron []jobs.CronRegistration, taskType string) []jobs.CronRegistration {
	out := cron[:0]
	for _, entry := range cron {
		if entry.Task != nil && entry.Task.Type() == taskType {
			continue
		}
		out = append(out, entry)
	}
	return out
}
