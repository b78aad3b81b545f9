package clinichttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/carepanel/carepanel/internal/platform/httpx"
)

// MountRoutes registers the dashboard API onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(h.rateLimit, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "export rate limit reached")
		}),
	)

	r.Get("/api/overview", h.handleOverview)
	r.Get("/api/transactions", h.handleDomainIndex)
	r.Route("/api/transactions/{domain}", func(dr chi.Router) {
		dr.Get("/", h.handleTransactions)
		dr.Get("/entities", h.handleEntities)
		dr.Get("/daily", h.handleDaily)
		dr.Group(func(gr chi.Router) {
			gr.Use(limiter)
			gr.Get("/export.csv", h.handleCSV)
			gr.Get("/export.xlsx", h.handleXLSX)
			gr.Get("/export.pdf", h.handlePDF)
		})
	})
	r.Get("/api/resources", h.handleResourceIndex)
	r.Get("/api/resources/{name}", h.handleResource)
	r.Get("/api/snapshots/{domain}", h.handleSnapshots)
}
