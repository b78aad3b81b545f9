package transactions

import (
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNormalizer() Normalizer {
	seq := 0
	return Normalizer{
		Now: func() time.Time { return time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC) },
		NewID: func() string {
			seq++
			return "abcd-ef01-" + strconv.Itoa(seq)
		},
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		input string
		want  Status
	}{
		{"completed", StatusCompleted},
		{"PENDING", StatusPending},
		{" Failed ", StatusFailed},
		{"Refunded", StatusRefunded},
		{"", StatusCompleted},
		{"cancelled", StatusCompleted},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseStatus(tt.input)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.Valid())
		})
	}
}

func TestNormalizeFillsDefaults(t *testing.T) {
	nurse, err := LookupDomain("nurse")
	require.NoError(t, err)

	records := fixedNormalizer().Normalize([]map[string]any{{}}, nurse)
	require.Len(t, records, 1)
	rec := records[0]

	assert.Equal(t, "abcd-ef01-1", rec.ID)
	assert.Equal(t, "unknown", rec.EntityID)
	assert.Equal(t, "Unknown Nurse", rec.EntityName)
	assert.Equal(t, "TXN-ABCDEF01", rec.TransactionID)
	assert.True(t, rec.Date.Equal(time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)))
	assert.Zero(t, rec.Amount)
	assert.Equal(t, StatusCompleted, rec.Status)
	assert.Equal(t, "general", rec.ServiceType)
	assert.Equal(t, "cash", rec.PaymentMethod)
	assert.Nil(t, rec.Rating)
	assert.Nil(t, rec.Duration)
}

func TestNormalizeReadsDomainFields(t *testing.T) {
	doctor, err := LookupDomain("Doctor")
	require.NoError(t, err)

	raw := []map[string]any{{
		"id":            "rec-1",
		"doctorId":      json.Number("42"),
		"doctorName":    "Dr. Amara",
		"transactionId": "TXN-1",
		"date":          "2023-06-01T08:15:00Z",
		"amount":        "120.50",
		"status":        "Pending",
		"duration":      json.Number("45"),
		"commission":    12.05,
		"rating":        json.Number("4.5"),
		"serviceType":   "consultation",
		"items":         []any{"a", "b"},
	}}
	rec := fixedNormalizer().Normalize(raw, doctor)[0]

	assert.Equal(t, "rec-1", rec.ID)
	assert.Equal(t, "42", rec.EntityID)
	assert.Equal(t, "Dr. Amara", rec.EntityName)
	assert.Equal(t, "TXN-1", rec.TransactionID)
	assert.True(t, rec.Date.Equal(time.Date(2023, 6, 1, 8, 15, 0, 0, time.UTC)))
	assert.InDelta(t, 120.5, rec.Amount, 1e-9)
	assert.Equal(t, StatusPending, rec.Status)
	require.NotNil(t, rec.Duration)
	assert.InDelta(t, 45, *rec.Duration, 1e-9)
	require.NotNil(t, rec.Commission)
	require.NotNil(t, rec.Rating)
	assert.InDelta(t, 4.5, *rec.Rating, 1e-9)
	assert.Equal(t, 2, rec.Items)
}

func TestNormalizeGenericEntityKeys(t *testing.T) {
	pharmacy, err := LookupDomain("pharmacy")
	require.NoError(t, err)
	rec := fixedNormalizer().Normalize([]map[string]any{{"entityId": "P9", "entityName": "Central"}}, pharmacy)[0]
	assert.Equal(t, "P9", rec.EntityID)
	assert.Equal(t, "Central", rec.EntityName)
}

func TestNormalizeRejectsInvalidValues(t *testing.T) {
	patient, err := LookupDomain("patient")
	require.NoError(t, err)
	n := fixedNormalizer()

	rec := n.Normalize([]map[string]any{{
		"amount": -25.0,
		"date":   "not-a-date",
		"rating": 9.0,
		"status": "archived",
	}}, patient)[0]

	assert.Zero(t, rec.Amount)
	assert.True(t, rec.Date.Equal(n.Now()))
	assert.Nil(t, rec.Rating)
	assert.Equal(t, StatusCompleted, rec.Status)
}

func TestDecodeAcceptsArrayAndWrappedPayloads(t *testing.T) {
	revenue, err := LookupDomain("revenue")
	require.NoError(t, err)
	n := fixedNormalizer()

	cases := map[string]string{
		"array":        `[{"departmentId":"D1","amount":10},{"departmentId":"D2","amount":5}]`,
		"transactions": `{"transactions":[{"departmentId":"D1","amount":10},{"departmentId":"D2","amount":5}]}`,
		"data":         `{"data":[{"departmentId":"D1","amount":10},{"departmentId":"D2","amount":5}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			records, err := n.Decode(json.RawMessage(body), revenue)
			require.NoError(t, err)
			require.Len(t, records, 2)
			assert.Equal(t, "D1", records[0].EntityID)
			assert.InDelta(t, 10, records[0].Amount, 1e-9)
		})
	}
}

func TestDecodeRejectsNonList(t *testing.T) {
	nurse, err := LookupDomain("nurse")
	require.NoError(t, err)
	_, err = fixedNormalizer().Decode(json.RawMessage(`{"total": 3}`), nurse)
	assert.ErrorIs(t, err, ErrMalformedPayload)

	_, err = fixedNormalizer().Decode(json.RawMessage(`not json`), nurse)
	assert.ErrorIs(t, err, ErrMalformedPayload)

	records, err := fixedNormalizer().Decode(json.RawMessage(`null`), nurse)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestLookupDomainUnknown(t *testing.T) {
	_, err := LookupDomain("janitor")
	assert.ErrorIs(t, err, ErrUnknownDomain)
	assert.Len(t, Domains(), 5)
}
