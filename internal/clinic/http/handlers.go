package clinichttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/carepanel/carepanel/internal/clinic"
	"github.com/carepanel/carepanel/internal/clinic/export"
	"github.com/carepanel/carepanel/internal/datasource"
	"github.com/carepanel/carepanel/internal/platform/httpx"
	"github.com/carepanel/carepanel/internal/snapshots"
	"github.com/carepanel/carepanel/internal/transactions"
)

const requestTimeout = 10 * time.Second

// ClinicService defines the data contract used by the handler.
type ClinicService interface {
	Transactions(ctx context.Context, domain string, filter transactions.Filter) ([]transactions.Record, error)
	Report(ctx context.Context, domain string, filter transactions.Filter) (clinic.Report, error)
	Resource(ctx context.Context, name string) (json.RawMessage, error)
}

// SnapshotService reads persisted daily rollups.
type SnapshotService interface {
	List(ctx context.Context, domain string, from, to time.Time) ([]snapshots.Rollup, error)
}

// PDFRenderer converts an HTML document into a PDF.
type PDFRenderer interface {
	RenderHTML(ctx context.Context, html []byte) ([]byte, error)
}

// Handler serves the dashboard JSON API and exports.
type Handler struct {
	logger    *slog.Logger
	service   ClinicService
	snapshots SnapshotService
	pdf       PDFRenderer
	formatter export.Formatter
	validator *validator.Validate
	bufPool   sync.Pool
	now       func() time.Time
	timeout   time.Duration
	rateLimit int
}

// Options configures optional handler collaborators.
type Options struct {
	Snapshots SnapshotService
	// PDF enables export.pdf. Nil answers 503.
	PDF    PDFRenderer
	Locale string
	// ExportRateLimit is the number of export requests allowed per client
	// per minute. Zero uses 10.
	ExportRateLimit int
	Timeout         time.Duration
}

// NewHandler constructs the clinic HTTP handler.
func NewHandler(logger *slog.Logger, service ClinicService, opts Options) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		logger:    logger,
		service:   service,
		snapshots: opts.Snapshots,
		pdf:       opts.PDF,
		formatter: export.NewFormatter(opts.Locale),
		validator: validator.New(),
		now:       time.Now,
		timeout:   opts.Timeout,
		rateLimit: opts.ExportRateLimit,
	}
	if h.timeout <= 0 {
		h.timeout = requestTimeout
	}
	if h.rateLimit <= 0 {
		h.rateLimit = 10
	}
	h.bufPool.New = func() interface{} { return new(bytes.Buffer) }
	return h
}

// WithNow overrides the handler clock for testing.
func (h *Handler) WithNow(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

func (h *Handler) handleTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := h.parseFilter(r)
	if err != nil {
		h.respondError(w, "parse filters", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	records, err := h.service.Transactions(ctx, chi.URLParam(r, "domain"), filter)
	if err != nil {
		h.respondError(w, "load transactions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, records)
}

func (h *Handler) handleEntities(w http.ResponseWriter, r *http.Request) {
	report, ok := h.loadReport(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, report.Entities)
}

func (h *Handler) handleDaily(w http.ResponseWriter, r *http.Request) {
	report, ok := h.loadReport(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, report.Daily)
}

func (h *Handler) handleCSV(w http.ResponseWriter, r *http.Request) {
	report, ok := h.loadReport(w, r)
	if !ok {
		return
	}

	buf := h.bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.bufPool.Put(buf)
	}()

	if err := export.WriteEntityCSV(buf, report.Entities); err != nil {
		h.respondError(w, "write entity csv", err)
		return
	}
	buf.WriteString("\n")
	if err := export.WriteDailyCSV(buf, report.Daily); err != nil {
		h.respondError(w, "write daily csv", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", h.exportName(report.Domain, "csv")))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logError("stream csv", err)
	}
}

func (h *Handler) handleXLSX(w http.ResponseWriter, r *http.Request) {
	report, ok := h.loadReport(w, r)
	if !ok {
		return
	}

	buf := h.bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.bufPool.Put(buf)
	}()

	if err := export.WriteWorkbook(buf, report.Entities, report.Daily); err != nil {
		h.respondError(w, "write workbook", err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", h.exportName(report.Domain, "xlsx")))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logError("stream xlsx", err)
	}
}

func (h *Handler) handlePDF(w http.ResponseWriter, r *http.Request) {
	if h.pdf == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "PDF Export Disabled", "no PDF renderer is configured")
		return
	}
	report, ok := h.loadReport(w, r)
	if !ok {
		return
	}

	buf := h.bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.bufPool.Put(buf)
	}()

	page := export.SummaryPage{
		Title:       pageTitle(report.Domain),
		Domain:      report.Domain,
		GeneratedAt: h.now().UTC(),
		Entities:    report.Entities,
		Daily:       report.Daily,
	}
	if err := export.WriteSummaryHTML(buf, page, h.formatter); err != nil {
		h.respondError(w, "write summary html", err)
		return
	}
	pdf, err := h.pdf.RenderHTML(r.Context(), buf.Bytes())
	if err != nil {
		h.logError("render pdf", err)
		httpx.Problem(w, http.StatusBadGateway, "PDF Render Failed", "")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", h.exportName(report.Domain, "pdf")))
	if _, err := w.Write(pdf); err != nil {
		h.logError("stream pdf", err)
	}
}

// DomainTotal is one row of the overview.
type DomainTotal struct {
	Domain          string  `json:"domain"`
	Entities        int     `json:"entities"`
	Transactions    int     `json:"transactions"`
	Revenue         float64 `json:"revenue"`
	AverageAmount   float64 `json:"averageAmount"`
	ActiveDays      int     `json:"activeDays"`
	LastActivityDay string  `json:"lastActivityDay,omitempty"`
	DisplayRevenue  string  `json:"displayRevenue"`
	DisplayAverage  string  `json:"displayAverage"`
	DisplayCount    string  `json:"displayTransactions"`
}

func (h *Handler) handleOverview(w http.ResponseWriter, r *http.Request) {
	filter, err := h.parseFilter(r)
	if err != nil {
		h.respondError(w, "parse filters", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	totals, err := h.loadOverview(ctx, filter)
	if err != nil {
		h.respondError(w, "load overview", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"generatedAt": h.now().UTC(),
		"domains":     totals,
	})
}

func (h *Handler) loadOverview(ctx context.Context, filter transactions.Filter) ([]DomainTotal, error) {
	domains := transactions.Domains()
	totals := make([]DomainTotal, len(domains))

	g, ctx := errgroup.WithContext(ctx)
	for i, d := range domains {
		i, d := i, d
		g.Go(func() error {
			report, err := h.service.Report(ctx, d.Name, filter)
			if err != nil {
				return fmt.Errorf("%s: %w", d.Name, err)
			}
			totals[i] = h.total(report)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return totals, nil
}

func (h *Handler) total(report clinic.Report) DomainTotal {
	t := DomainTotal{Domain: report.Domain, Entities: len(report.Entities), ActiveDays: len(report.Daily)}
	for _, day := range report.Daily {
		t.Transactions += day.Transactions
		t.Revenue += day.Revenue
	}
	if t.Transactions > 0 {
		t.AverageAmount = t.Revenue / float64(t.Transactions)
	}
	if n := len(report.Daily); n > 0 {
		t.LastActivityDay = report.Daily[n-1].Day
	}
	t.DisplayRevenue = h.formatter.Amount(t.Revenue)
	t.DisplayAverage = h.formatter.Amount(t.AverageAmount)
	t.DisplayCount = h.formatter.Count(t.Transactions)
	return t
}

func (h *Handler) handleResource(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	body, err := h.service.Resource(ctx, chi.URLParam(r, "name"))
	if err != nil {
		h.respondError(w, "load resource", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *Handler) handleResourceIndex(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, clinic.Resources())
}

func (h *Handler) handleDomainIndex(w http.ResponseWriter, r *http.Request) {
	out := make([]map[string]string, 0)
	for _, d := range transactions.Domains() {
		out = append(out, map[string]string{"name": d.Name, "path": d.Path, "fallbackKey": d.FallbackKey})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	if h.snapshots == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Snapshots Disabled", "rollup history is not configured")
		return
	}
	q := rangeQuery{From: strings.TrimSpace(r.URL.Query().Get("from")), To: strings.TrimSpace(r.URL.Query().Get("to"))}
	if err := h.validator.Struct(q); err != nil {
		h.respondError(w, "parse range", validationError{fields: fieldNames(err)})
		return
	}
	from, _ := parseDay(q.From)
	to, _ := parseDay(q.To)

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	rows, err := h.snapshots.List(ctx, chi.URLParam(r, "domain"), from, to)
	if err != nil {
		h.respondError(w, "list snapshots", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}

func (h *Handler) loadReport(w http.ResponseWriter, r *http.Request) (clinic.Report, bool) {
	filter, err := h.parseFilter(r)
	if err != nil {
		h.respondError(w, "parse filters", err)
		return clinic.Report{}, false
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	report, err := h.service.Report(ctx, chi.URLParam(r, "domain"), filter)
	if err != nil {
		h.respondError(w, "load report", err)
		return clinic.Report{}, false
	}
	for i := range report.Daily {
		report.Daily[i].Label = h.formatter.DayLabel(report.Daily[i].Date)
	}
	return report, true
}

func pageTitle(domain string) string {
	if domain == "" {
		return "Transactions"
	}
	return strings.ToUpper(domain[:1]) + domain[1:] + " transactions"
}

func (h *Handler) exportName(domain, ext string) string {
	return fmt.Sprintf("%s-transactions-%s.%s", domain, h.now().UTC().Format("2006-01-02"), ext)
}

// respondError maps data layer errors onto problem responses.
func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	var vErr validationError
	switch {
	case errors.As(err, &vErr):
		httpx.Problem(w, http.StatusBadRequest, "Invalid Parameters", vErr.Error())
	case errors.Is(err, transactions.ErrUnknownDomain), errors.Is(err, clinic.ErrUnknownResource):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, snapshots.ErrInvalidRange):
		httpx.Problem(w, http.StatusBadRequest, "Invalid Parameters", err.Error())
	case errors.Is(err, datasource.ErrNoDataAvailable):
		h.logError(op, err)
		httpx.Problem(w, http.StatusServiceUnavailable, "Data Unavailable", "unable to load data, try again")
	case errors.Is(err, datasource.ErrFallbackKeyNotFound):
		h.logError(op, err)
		httpx.Problem(w, http.StatusInternalServerError, "Data Source Misconfigured", "data source misconfigured")
	case errors.Is(err, context.DeadlineExceeded):
		h.logError(op, err)
		httpx.Problem(w, http.StatusGatewayTimeout, "Timeout", "data source did not answer in time")
	default:
		h.logError(op, err)
		httpx.RespondError(w, err)
	}
}

func (h *Handler) logError(op string, err error) {
	if h.logger != nil {
		h.logger.Error(op, slog.Any("error", err))
	}
}
