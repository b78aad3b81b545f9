package clinic

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carepanel/carepanel/internal/datasource"
	"github.com/carepanel/carepanel/internal/transactions"
)

type stubSource struct {
	bodies   map[string]string
	err      error
	requests []datasource.Request
}

func (s *stubSource) Fetch(ctx context.Context, req datasource.Request) (json.RawMessage, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	body, ok := s.bodies[req.FallbackKey]
	if !ok {
		return nil, fmt.Errorf("%w: %q", datasource.ErrFallbackKeyNotFound, req.FallbackKey)
	}
	return json.RawMessage(body), nil
}

const nurseBody = `[
	{"nurseId":"A","nurseName":"Ana","amount":100,"date":"2024-01-02T10:00:00Z","rating":4,"status":"completed"},
	{"nurseId":"B","nurseName":"Ben","amount":50,"date":"2024-01-01T09:00:00Z","status":"pending"},
	{"nurseId":"A","nurseName":"Ana","amount":30,"date":"2024-01-02T15:00:00Z","status":"completed"}
]`

func newTestService(src datasource.Source, baseURL string) *Service {
	n := transactions.Normalizer{
		Now:   func() time.Time { return time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC) },
		NewID: func() string { return "fixed-id" },
	}
	return NewService(src, Options{BaseURL: baseURL, Timeout: time.Second, Normalizer: &n})
}

func TestReportComputesBothRollups(t *testing.T) {
	src := &stubSource{bodies: map[string]string{"nurseTransactions": nurseBody}}
	svc := newTestService(src, "https://api.test/api/")

	report, err := svc.Report(context.Background(), "Nurse", transactions.Filter{})
	require.NoError(t, err)
	assert.Equal(t, "nurse", report.Domain)
	require.Len(t, report.Entities, 2)
	assert.Equal(t, "A", report.Entities[0].EntityID)
	assert.InDelta(t, 130, report.Entities[0].TotalAmount, 1e-9)
	require.Len(t, report.Daily, 2)
	assert.Equal(t, "2024-01-01", report.Daily[0].Day)
	assert.InDelta(t, 65, report.Daily[1].AverageAmount, 1e-9)

	require.Len(t, src.requests, 1)
	assert.Equal(t, "https://api.test/api/nurse-transactions", src.requests[0].URL)
	assert.Equal(t, time.Second, src.requests[0].Timeout)
}

func TestSummariesUseFilteredSubset(t *testing.T) {
	src := &stubSource{bodies: map[string]string{"nurseTransactions": nurseBody}}
	svc := newTestService(src, "")

	entities, err := svc.EntitySummaries(context.Background(), "nurse", transactions.Filter{Status: transactions.StatusCompleted})
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, 2, entities[0].TotalTransactions)

	daily, err := svc.DailySummaries(context.Background(), "nurse", transactions.Filter{EntityID: "B"})
	require.NoError(t, err)
	require.Len(t, daily, 1)
	assert.InDelta(t, 50, daily[0].Revenue, 1e-9)

	// Without a base URL the request carries only the fallback key.
	assert.Empty(t, src.requests[0].URL)
}

func TestTransactionsShorthands(t *testing.T) {
	src := &stubSource{bodies: map[string]string{
		"patientTransactions":  `[{"patientId":"P1","amount":10}]`,
		"doctorTransactions":   `{"transactions":[{"doctorId":"D1","amount":20}]}`,
		"nurseTransactions":    nurseBody,
		"pharmacyTransactions": `[]`,
		"revenueTransactions":  `{"data":[{"departmentId":"ER","amount":5}]}`,
	}}
	svc := newTestService(src, "")
	ctx := context.Background()

	patients, err := svc.FetchPatientTransactions(ctx)
	require.NoError(t, err)
	assert.Equal(t, "P1", patients[0].EntityID)

	doctors, err := svc.FetchDoctorTransactions(ctx)
	require.NoError(t, err)
	assert.Equal(t, "D1", doctors[0].EntityID)

	nurses, err := svc.FetchNurseTransactions(ctx)
	require.NoError(t, err)
	assert.Len(t, nurses, 3)

	pharmacy, err := svc.FetchPharmacyTransactions(ctx)
	require.NoError(t, err)
	assert.Empty(t, pharmacy)

	revenue, err := svc.FetchRevenueTransactions(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ER", revenue[0].EntityID)
}

func TestUnknownDomainAndResource(t *testing.T) {
	svc := newTestService(&stubSource{}, "")
	_, err := svc.Transactions(context.Background(), "janitor", transactions.Filter{})
	assert.ErrorIs(t, err, transactions.ErrUnknownDomain)

	_, err = svc.Resource(context.Background(), "parking")
	assert.ErrorIs(t, err, ErrUnknownResource)
}

func TestResourceUsesCatalogKey(t *testing.T) {
	src := &stubSource{bodies: map[string]string{"aboutUs.timelineData": `[{"year":2001}]`}}
	svc := newTestService(src, "https://api.test/api")

	body, err := svc.Resource(context.Background(), "timeline")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"year":2001}]`, string(body))
	assert.Equal(t, "https://api.test/api/about/timeline", src.requests[0].URL)
}

func TestSourceErrorsPropagate(t *testing.T) {
	svc := newTestService(&stubSource{err: datasource.ErrNoDataAvailable}, "")
	_, err := svc.Report(context.Background(), "doctor", transactions.Filter{})
	assert.ErrorIs(t, err, datasource.ErrNoDataAvailable)

	svc = newTestService(&stubSource{bodies: map[string]string{"doctorTransactions": `{"total":1}`}}, "")
	_, err = svc.Report(context.Background(), "doctor", transactions.Filter{})
	assert.ErrorIs(t, err, transactions.ErrMalformedPayload)
}

func TestResourcesCatalog(t *testing.T) {
	all := Resources()
	require.Len(t, all, 9)
	assert.Equal(t, "billing", all[0].Name)
	r, err := LookupResource(" Support ")
	require.NoError(t, err)
	assert.Equal(t, "support", r.FallbackKey)
}
