package snapshots

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carepanel/carepanel/internal/clinic"
	"github.com/carepanel/carepanel/internal/transactions"
)

type memoryStore struct {
	rows     map[string]Rollup
	lastFrom time.Time
	lastTo   time.Time
	err      error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{rows: make(map[string]Rollup)}
}

func (m *memoryStore) UpsertDaily(ctx context.Context, rows []Rollup) error {
	if m.err != nil {
		return m.err
	}
	for _, r := range rows {
		m.rows[r.Domain+"/"+r.Day.Format("2006-01-02")] = r
	}
	return nil
}

func (m *memoryStore) ListDaily(ctx context.Context, domain string, from, to time.Time) ([]Rollup, error) {
	m.lastFrom, m.lastTo = from, to
	var out []Rollup
	for _, r := range m.rows {
		if r.Domain == domain && !r.Day.Before(from) && !r.Day.After(to) {
			out = append(out, r)
		}
	}
	return out, nil
}

type stubReports struct {
	daily map[string][]transactions.DailySummary
	fail  map[string]bool
}

func (s stubReports) Report(ctx context.Context, domain string, filter transactions.Filter) (clinic.Report, error) {
	if s.fail[domain] {
		return clinic.Report{}, errors.New("upstream down")
	}
	return clinic.Report{Domain: domain, Daily: s.daily[domain]}, nil
}

var captureTime = time.Date(2024, 3, 10, 0, 10, 0, 0, time.UTC)

func day(d int) time.Time { return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC) }

func newTestService(store Store, src ReportSource) *Service {
	svc := NewService(store, src, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.WithNow(func() time.Time { return captureTime })
	return svc
}

func TestCaptureUpsertsDailyRows(t *testing.T) {
	store := newMemoryStore()
	src := stubReports{daily: map[string][]transactions.DailySummary{
		"nurse": {
			{Date: day(8), Transactions: 2, Revenue: 100, AverageAmount: 50},
			{Date: day(9), Transactions: 1, Revenue: 30, AverageAmount: 30},
		},
	}}
	svc := newTestService(store, src)

	n, err := svc.Capture(context.Background(), "NURSE")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	row := store.rows["nurse/2024-03-08"]
	assert.Equal(t, 2, row.Transactions)
	assert.Equal(t, captureTime, row.CapturedAt)

	// Re-capturing the same day replaces the row.
	src.daily["nurse"][0].Revenue = 120
	_, err = svc.Capture(context.Background(), "nurse")
	require.NoError(t, err)
	assert.Len(t, store.rows, 2)
	assert.InDelta(t, 120, store.rows["nurse/2024-03-08"].Revenue, 1e-9)
}

func TestCaptureAllContinuesPastFailures(t *testing.T) {
	store := newMemoryStore()
	src := stubReports{
		daily: map[string][]transactions.DailySummary{"doctor": {{Date: day(1), Transactions: 1, Revenue: 10, AverageAmount: 10}}},
		fail:  map[string]bool{"pharmacy": true},
	}
	written, err := newTestService(store, src).CaptureAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pharmacy")
	assert.Equal(t, 1, written["doctor"])
	assert.NotContains(t, written, "pharmacy")
	assert.Len(t, written, 4)
}

func TestListDefaultsAndValidation(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store, stubReports{})

	_, err := svc.List(context.Background(), "revenue", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, day(10), store.lastTo)
	assert.Equal(t, day(10).Add(-DefaultWindow), store.lastFrom)

	_, err = svc.List(context.Background(), "revenue", day(9), day(2))
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = svc.List(context.Background(), "janitor", time.Time{}, time.Time{})
	assert.ErrorIs(t, err, transactions.ErrUnknownDomain)
}

func TestCaptureStoreError(t *testing.T) {
	store := newMemoryStore()
	store.err = errors.New("db down")
	src := stubReports{daily: map[string][]transactions.DailySummary{"nurse": {{Date: day(1)}}}}
	_, err := newTestService(store, src).Capture(context.Background(), "nurse")
	assert.EqualError(t, err, "db down")
}
