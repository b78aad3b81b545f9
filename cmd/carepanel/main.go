package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/carepanel/carepanel/internal/app"
	"github.com/carepanel/carepanel/internal/clinic"
	clinichttp "github.com/carepanel/carepanel/internal/clinic/http"
	"github.com/carepanel/carepanel/internal/datasource"
	"github.com/carepanel/carepanel/internal/observability"
	"github.com/carepanel/carepanel/internal/platform/cache"
	"github.com/carepanel/carepanel/internal/platform/db"
	"github.com/carepanel/carepanel/internal/snapshots"
	"github.com/carepanel/carepanel/jobs"
	"github.com/carepanel/carepanel/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	metrics := observability.NewMetrics()

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient, err = cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Warn("redis unavailable, datasource cache disabled", slog.Any("error", err))
		} else {
			defer func() {
				if err := redisClient.Close(); err != nil {
					logger.Warn("redis close", slog.Any("error", err))
				}
			}()
		}
	}

	fetcher := datasource.NewFetcher(datasource.Options{
		FallbackURL: cfg.FallbackURL(),
		Timeout:     cfg.DatasourceTimeout,
		Logger:      logger,
		Recorder:    metrics,
	})
	source := datasource.NewCachedSource(fetcher, datasource.NewCache(redisClient, cfg.DatasourceCacheTTL), logger)
	clinicService := clinic.NewService(source, clinic.Options{
		BaseURL: cfg.APIBaseURL,
		Timeout: cfg.DatasourceTimeout,
	})

	var snapshotService clinichttp.SnapshotService
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
		snapshotService = snapshots.NewService(repo, clinicService, logger)
	}

	var inspector *asynq.Inspector
	var enqueuer jobs.Enqueuer
	if redisClient != nil {
		if opt, err := cache.AsynqOpt(cfg.RedisAddr); err == nil {
			inspector = asynq.NewInspector(opt)
			defer func() {
				if err := inspector.Close(); err != nil {
					logger.Warn("inspector close", slog.Any("error", err))
				}
			}()
			jobClient, err := jobs.NewClient(opt)
			if err != nil {
				logger.Error("job client", slog.Any("error", err))
				os.Exit(1)
			}
			defer func() {
				if err := jobClient.Close(); err != nil {
					logger.Warn("job client close", slog.Any("error", err))
				}
			}()
			enqueuer = jobClient
		}
	}

	var pdfClient *report.Client
	var pdfRenderer clinichttp.PDFRenderer
	if cfg.GotenbergURL != "" {
		pdfClient = report.NewClient(cfg.GotenbergURL, cfg.GotenbergTimeout)
		pdfRenderer = pdfClient
	}

	clinicHandler := clinichttp.NewHandler(logger, clinicService, clinichttp.Options{
		Snapshots:       snapshotService,
		PDF:             pdfRenderer,
		Locale:          cfg.DisplayLocale,
		ExportRateLimit: cfg.ExportRateLimit,
		Timeout:         cfg.AppRequestTimeout,
	})

	router := app.NewRouter(app.RouterParams{
		Logger:        logger,
		Config:        cfg,
		ClinicHandler: clinicHandler,
		JobHandler:    jobs.NewHandler(inspector, enqueuer, logger),
		ReportHandler: report.NewHandler(pdfClient, logger),
		Metrics:       metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server",
			slog.String("addr", cfg.AppAddr),
			slog.String("api_base_url", cfg.APIBaseURL),
			slog.String("fallback_url", cfg.FallbackURL()),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
