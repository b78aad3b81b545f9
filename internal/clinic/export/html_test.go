package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/carepanel/carepanel/internal/transactions"
)

func TestWriteSummaryHTML(t *testing.T) {
	var buf bytes.Buffer
	page := SummaryPage{
		Title:       "Doctor transactions",
		Domain:      "doctor",
		GeneratedAt: time.Date(2024, 3, 2, 9, 30, 0, 0, time.UTC),
		Entities:    append(sampleEntities(), transactions.EntitySummary{EntityID: "C", EntityName: "<script>", TotalTransactions: 1200, TotalAmount: 1234.5}),
		Daily:       sampleDaily(),
	}
	if err := WriteSummaryHTML(&buf, page, NewFormatter("en-US")); err != nil {
		t.Fatalf("write html: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"<title>Doctor transactions</title>",
		"Generated 2024-03-02 09:30 UTC",
		"<td>Ana</td>",
		"2024-01-02",
		"1,234.50",
		"1,200",
		"&lt;script&gt;",
		"<td>Jan 2</td>",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("html missing %q:\n%s", want, out)
		}
	}
}

func TestWriteSummaryHTMLEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSummaryHTML(&buf, SummaryPage{Title: "Empty", GeneratedAt: time.Now()}, Formatter{}); err != nil {
		t.Fatalf("write html: %v", err)
	}
	if !strings.Contains(buf.String(), "No transactions") {
		t.Fatalf("expected empty marker")
	}
}
