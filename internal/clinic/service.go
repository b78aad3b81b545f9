package clinic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/carepanel/carepanel/internal/datasource"
	"github.com/carepanel/carepanel/internal/transactions"
)

// Report bundles the filtered records of a domain with both rollups.
type Report struct {
	Domain   string                       `json:"domain"`
	Records  []transactions.Record        `json:"records"`
	Entities []transactions.EntitySummary `json:"entities"`
	Daily    []transactions.DailySummary  `json:"daily"`
}

// Options configures a Service.
type Options struct {
	// BaseURL is the primary API root, e.g. https://api.host/api. Empty
	// means every read goes straight to the fallback document.
	BaseURL    string
	Timeout    time.Duration
	Normalizer *transactions.Normalizer
}

// Service exposes the dashboard data with fixed endpoint and fallback key
// pairs per domain and resource.
type Service struct {
	src        datasource.Source
	baseURL    string
	timeout    time.Duration
	normalizer transactions.Normalizer
}

// NewService wires a data source with the endpoint configuration.
func NewService(src datasource.Source, opts Options) *Service {
	normalizer := transactions.NewNormalizer()
	if opts.Normalizer != nil {
		normalizer = *opts.Normalizer
	}
	return &Service{
		src:        src,
		baseURL:    strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		timeout:    opts.Timeout,
		normalizer: normalizer,
	}
}

func (s *Service) request(path, key string) datasource.Request {
	req := datasource.Request{FallbackKey: key, Timeout: s.timeout}
	if s.baseURL != "" {
		req.URL = s.baseURL + path
	}
	return req
}

// Transactions loads, normalizes and filters the records of a domain.
func (s *Service) Transactions(ctx context.Context, domain string, filter transactions.Filter) ([]transactions.Record, error) {
	d, err := transactions.LookupDomain(domain)
	if err != nil {
		return nil, err
	}
	records, err := s.load(ctx, d)
	if err != nil {
		return nil, err
	}
	return filter.Apply(records), nil
}

// EntitySummaries returns per-entity rollups of the filtered records.
func (s *Service) EntitySummaries(ctx context.Context, domain string, filter transactions.Filter) ([]transactions.EntitySummary, error) {
	report, err := s.Report(ctx, domain, filter)
	if err != nil {
		return nil, err
	}
	return report.Entities, nil
}

// DailySummaries returns per-day rollups of the filtered records.
func (s *Service) DailySummaries(ctx context.Context, domain string, filter transactions.Filter) ([]transactions.DailySummary, error) {
	report, err := s.Report(ctx, domain, filter)
	if err != nil {
		return nil, err
	}
	return report.Daily, nil
}

// Report performs a single fetch and computes both rollups from it.
func (s *Service) Report(ctx context.Context, domain string, filter transactions.Filter) (Report, error) {
	d, err := transactions.LookupDomain(domain)
	if err != nil {
		return Report{}, err
	}
	records, err := s.load(ctx, d)
	if err != nil {
		return Report{}, err
	}
	visible := filter.Apply(records)
	agg := transactions.DefaultAggregator()
	return Report{
		Domain:   d.Name,
		Records:  visible,
		Entities: agg.SummarizeByEntity(visible),
		Daily:    agg.SummarizeByDay(visible),
	}, nil
}

// Resource returns a catalog entry as JSON, envelope already removed.
func (s *Service) Resource(ctx context.Context, name string) (json.RawMessage, error) {
	r, err := LookupResource(name)
	if err != nil {
		return nil, err
	}
	return s.src.Fetch(ctx, s.request(r.Path, r.FallbackKey))
}

// FetchPatientTransactions loads every patient transaction.
func (s *Service) FetchPatientTransactions(ctx context.Context) ([]transactions.Record, error) {
	return s.Transactions(ctx, "patient", transactions.Filter{})
}

// FetchDoctorTransactions loads every doctor transaction.
func (s *Service) FetchDoctorTransactions(ctx context.Context) ([]transactions.Record, error) {
	return s.Transactions(ctx, "doctor", transactions.Filter{})
}

// FetchNurseTransactions loads every nurse transaction.
func (s *Service) FetchNurseTransactions(ctx context.Context) ([]transactions.Record, error) {
	return s.Transactions(ctx, "nurse", transactions.Filter{})
}

// FetchPharmacyTransactions loads every pharmacy transaction.
func (s *Service) FetchPharmacyTransactions(ctx context.Context) ([]transactions.Record, error) {
	return s.Transactions(ctx, "pharmacy", transactions.Filter{})
}

// FetchRevenueTransactions loads every department revenue entry.
func (s *Service) FetchRevenueTransactions(ctx context.Context) ([]transactions.Record, error) {
	return s.Transactions(ctx, "revenue", transactions.Filter{})
}

func (s *Service) load(ctx context.Context, d transactions.Domain) ([]transactions.Record, error) {
	body, err := s.src.Fetch(ctx, s.request(d.Path, d.FallbackKey))
	if err != nil {
		return nil, err
	}
	records, err := s.normalizer.Decode(body, d)
	if err != nil {
		return nil, fmt.Errorf("decode %s transactions: %w", d.Name, err)
	}
	return records, nil
}
