package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	clinichttp "github.com/carepanel/carepanel/internal/clinic/http"
	"github.com/carepanel/carepanel/internal/observability"
	"github.com/carepanel/carepanel/internal/platform/httpx"
	"github.com/carepanel/carepanel/jobs"
	"github.com/carepanel/carepanel/report"
	"github.com/carepanel/carepanel/web"
)

// MockDocumentPath is where the embedded fallback document is served.
const MockDocumentPath = "/mock/data.json"

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger        *slog.Logger
	Config        *Config
	ClinicHandler *clinichttp.Handler
	JobHandler    *jobs.Handler
	ReportHandler *report.Handler
	Metrics       *observability.Metrics
}

// NewRouter constructs the chi.Router with CarePanel defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mockFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		r.Get(MockDocumentPath, staticCacheHandler(http.FileServer(http.FS(mockFS))).ServeHTTP)
	}

	r.Group(func(limited chi.Router) {
		limited.Use(RateLimiter(params.Config))
		if params.ClinicHandler != nil {
			params.ClinicHandler.MountRoutes(limited)
		}
		if params.JobHandler != nil {
			limited.Route("/jobs", params.JobHandler.MountRoutes)
		}
		if params.ReportHandler != nil {
			limited.Route("/reports", params.ReportHandler.MountRoutes)
		}
		if params.Metrics != nil {
			limited.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteProblem(w, httpx.ProblemDetail{Status: http.StatusNotFound, Title: "Not Found", Instance: r.URL.Path})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteProblem(w, httpx.ProblemDetail{Status: http.StatusMethodNotAllowed, Title: "Method Not Allowed", Instance: r.URL.Path})
	})

	return r
}

// staticCacheHandler lets browsers and CDNs keep the mock document for an hour.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
