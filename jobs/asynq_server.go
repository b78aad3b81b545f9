package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/carepanel/carepanel/internal/platform/httpx"
	"github.com/carepanel/carepanel/internal/transactions"
)

// Worker wraps the Asynq server and optional scheduler.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	scheduler *asynq.Scheduler
	logger    *slog.Logger
}

// TaskHandler allows injecting custom Asynq handlers during worker setup.
type TaskHandler struct {
	Type    string
	Handler asynq.HandlerFunc
}

// CronRegistration wires a cron expression to a prepared task.
type CronRegistration struct {
	Spec    string
	Task    *asynq.Task
	Options []asynq.Option
}

// WorkerConfig collects dependencies required to bootstrap the worker.
type WorkerConfig struct {
	RedisOpts asynq.RedisClientOpt
	Logger    *slog.Logger
	Handlers  []TaskHandler
	Cron      []CronRegistration
	// Concurrency defaults to 2.
	Concurrency int
}

// NewWorker constructs a Worker instance.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 2
	}
	srv := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			QueueDefault: 1,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.Error("task failed", slog.String("type", task.Type()), slog.Any("error", err))
		}),
	})
	mux := asynq.NewServeMux()
	for _, h := range cfg.Handlers {
		if h.Type == "" || h.Handler == nil {
			continue
		}
		mux.HandleFunc(h.Type, h.Handler)
	}

	var scheduler *asynq.Scheduler
	if len(cfg.Cron) > 0 {
		scheduler = asynq.NewScheduler(cfg.RedisOpts, &asynq.SchedulerOpts{Location: time.UTC})
		for _, entry := range cfg.Cron {
			if entry.Spec == "" || entry.Task == nil {
				continue
			}
			if _, err := scheduler.Register(entry.Spec, entry.Task, entry.Options...); err != nil {
				return nil, err
			}
		}
	}

	return &Worker{server: srv, mux: mux, scheduler: scheduler, logger: logger}, nil
}

// Run starts processing jobs until context cancellation.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("worker: not configured")
	}
	if w.scheduler != nil {
		if err := w.scheduler.Start(); err != nil {
			return err
		}
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.server.Run(w.mux)
	}()
	select {
	case <-ctx.Done():
		if w.scheduler != nil {
			w.scheduler.Shutdown()
		}
		w.server.Shutdown()
		return ctx.Err()
	case err := <-errCh:
		if w.scheduler != nil {
			w.scheduler.Shutdown()
		}
		return err
	}
}

// Client submits jobs to the queue.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) (*Client, error) {
	client := asynq.NewClient(redisOpts)
	return &Client{client: client}, nil
}

// EnqueueWarmup enqueues an out-of-schedule datasource warmup.
func (c *Client) EnqueueWarmup(ctx context.Context, payload DatasourceWarmupPayload) (*asynq.TaskInfo, error) {
	task, err := NewDatasourceWarmupTask(payload)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault), asynq.Unique(time.Minute))
}

// EnqueueSnapshot enqueues a rollup capture for one domain or all of them.
func (c *Client) EnqueueSnapshot(ctx context.Context, payload RollupSnapshotPayload) (*asynq.TaskInfo, error) {
	task, err := NewRollupSnapshotTask(payload)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault))
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}

// Enqueuer submits out-of-schedule jobs. *Client satisfies it.
type Enqueuer interface {
	EnqueueWarmup(ctx context.Context, payload DatasourceWarmupPayload) (*asynq.TaskInfo, error)
	EnqueueSnapshot(ctx context.Context, payload RollupSnapshotPayload) (*asynq.TaskInfo, error)
}

// Handler exposes HTTP endpoints for job observability and manual triggers.
type Handler struct {
	inspector *asynq.Inspector
	enqueuer  Enqueuer
	logger    *slog.Logger
}

// NewHandler constructs an HTTP handler for jobs endpoints. A nil enqueuer
// disables the trigger endpoints.
func NewHandler(inspector *asynq.Inspector, enqueuer Enqueuer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{inspector: inspector, enqueuer: enqueuer, logger: logger}
}

// MountRoutes attaches job routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/health", h.health)
	r.Post("/warmup", h.triggerWarmup)
	r.Post("/snapshot", h.triggerSnapshot)
	r.Post("/snapshot/{domain}", h.triggerSnapshot)
}

type enqueued struct {
	ID    string `json:"id"`
	Queue string `json:"queue"`
	Type  string `json:"type"`
}

func (h *Handler) triggerWarmup(w http.ResponseWriter, r *http.Request) {
	if h.enqueuer == nil {
		h.queueDisabled(w)
		return
	}
	payload := DatasourceWarmupPayload{KeepCache: r.URL.Query().Get("keep_cache") == "true"}
	info, err := h.enqueuer.EnqueueWarmup(r.Context(), payload)
	h.respondEnqueued(w, TaskDatasourceWarmup, info, err)
}

func (h *Handler) triggerSnapshot(w http.ResponseWriter, r *http.Request) {
	if h.enqueuer == nil {
		h.queueDisabled(w)
		return
	}
	domain := chi.URLParam(r, "domain")
	if domain != "" {
		d, err := transactions.LookupDomain(domain)
		if err != nil {
			httpx.RespondError(w, fmt.Errorf("domain %q: %w", domain, httpx.ErrNotFound))
			return
		}
		domain = d.Name
	}
	info, err := h.enqueuer.EnqueueSnapshot(r.Context(), RollupSnapshotPayload{Domain: domain})
	h.respondEnqueued(w, TaskRollupSnapshot, info, err)
}

func (h *Handler) respondEnqueued(w http.ResponseWriter, taskType string, info *asynq.TaskInfo, err error) {
	switch {
	case errors.Is(err, asynq.ErrDuplicateTask):
		httpx.Problem(w, http.StatusConflict, "Job Already Queued", taskType+" is already pending")
		return
	case err != nil:
		h.logger.Warn("enqueue job", slog.String("type", taskType), slog.Any("error", err))
		httpx.RespondError(w, fmt.Errorf("enqueue %s: %w", taskType, httpx.ErrUnavailable))
		return
	}
	out := enqueued{Queue: QueueDefault, Type: taskType}
	if info != nil {
		out.ID = info.ID
		out.Queue = info.Queue
		out.Type = info.Type
	}
	h.logger.Info("job enqueued", slog.String("type", out.Type), slog.String("id", out.ID))
	httpx.JSON(w, http.StatusAccepted, out)
}

func (h *Handler) queueDisabled(w http.ResponseWriter) {
	httpx.Problem(w, http.StatusServiceUnavailable, "Job Queue Disabled", "REDIS_ADDR is not configured")
}

type queueHealth struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active,omitempty"`
	Scheduled int    `json:"scheduled,omitempty"`
	Retry     int    `json:"retry,omitempty"`
	Failed    int    `json:"failed_today,omitempty"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if h.inspector == nil {
		httpx.JSON(w, http.StatusOK, queueHealth{Queue: QueueDefault})
		return
	}
	info, err := h.inspector.GetQueueInfo(QueueDefault)
	if err != nil {
		h.logger.Warn("jobs health", slog.Any("error", err))
		httpx.RespondError(w, fmt.Errorf("queue %s: %w", QueueDefault, httpx.ErrUnavailable))
		return
	}
	out := queueHealth{Queue: QueueDefault}
	if info != nil {
		out = queueHealth{
			Queue:     info.Queue,
			Pending:   info.Pending,
			Active:    info.Active,
			Scheduled: info.Scheduled,
			Retry:     info.Retry,
			Failed:    info.Failed,
		}
	}
	httpx.JSON(w, http.StatusOK, out)
}
