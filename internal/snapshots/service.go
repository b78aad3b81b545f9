package snapshots

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/carepanel/carepanel/internal/clinic"
	"github.com/carepanel/carepanel/internal/transactions"
)

// Store abstracts persistence so the service can be tested without Postgres.
type Store interface {
	UpsertDaily(ctx context.Context, rows []Rollup) error
	ListDaily(ctx context.Context, domain string, from, to time.Time) ([]Rollup, error)
}

// ReportSource yields the live rollups of a domain.
type ReportSource interface {
	Report(ctx context.Context, domain string, filter transactions.Filter) (clinic.Report, error)
}

// Service captures live daily rollups and serves the persisted history.
type Service struct {
	store  Store
	source ReportSource
	logger *slog.Logger
	now    func() time.Time
}

// NewService wires the store with a report source.
func NewService(store Store, source ReportSource, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, source: source, logger: logger, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// Capture persists the current daily rollups of one domain and returns the
// number of rows written.
func (s *Service) Capture(ctx context.Context, domain string) (int, error) {
	d, err := transactions.LookupDomain(domain)
	if err != nil {
		return 0, err
	}
	report, err := s.source.Report(ctx, d.Name, transactions.Filter{})
	if err != nil {
		return 0, fmt.Errorf("load %s rollups: %w", d.Name, err)
	}
	rows := FromDaily(d.Name, report.Daily, s.now().UTC())
	if err := s.store.UpsertDaily(ctx, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// CaptureAll captures every domain. A failing domain does not stop the
// others; the joined error lists every failure.
func (s *Service) CaptureAll(ctx context.Context) (map[string]int, error) {
	written := make(map[string]int)
	var errs []error
	for _, d := range transactions.Domains() {
		n, err := s.Capture(ctx, d.Name)
		if err != nil {
			s.logger.Error("capture rollups", slog.String("domain", d.Name), slog.Any("error", err))
			errs = append(errs, err)
			continue
		}
		written[d.Name] = n
	}
	return written, errors.Join(errs...)
}

// List returns persisted rollups between from and to inclusive. Zero bounds
// default to the last DefaultWindow ending today.
func (s *Service) List(ctx context.Context, domain string, from, to time.Time) ([]Rollup, error) {
	d, err := transactions.LookupDomain(domain)
	if err != nil {
		return nil, err
	}
	if to.IsZero() {
		to = s.now().UTC()
	}
	if from.IsZero() {
		from = to.Add(-DefaultWindow)
	}
	from = truncateDay(from)
	to = truncateDay(to)
	if from.After(to) {
		return nil, ErrInvalidRange
	}
	return s.store.ListDaily(ctx, d.Name, from, to)
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
