package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/carepanel/carepanel/internal/transactions"
)

func sampleEntities() []transactions.EntitySummary {
	return []transactions.EntitySummary{
		{EntityID: "A", EntityName: "Ana", TotalTransactions: 2, TotalAmount: 130.456, AverageRating: 4, LastTransactionDate: time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC)},
		{EntityID: "B", EntityName: "Ben", TotalTransactions: 1, TotalAmount: 50},
	}
}

func sampleDaily() []transactions.DailySummary {
	return []transactions.DailySummary{
		{Day: "2024-01-01", Label: "Jan 1", Transactions: 1, Revenue: 50, AverageAmount: 50},
		{Day: "2024-01-02", Label: "Jan 2", Transactions: 2, Revenue: 130, AverageAmount: 65},
	}
}

func TestWriteEntityCSV(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := WriteEntityCSV(buf, sampleEntities()); err != nil {
		t.Fatalf("entity csv error: %v", err)
	}
	records, err := csv.NewReader(bytes.NewReader(buf.Bytes())).ReadAll()
	if err != nil {
		t.Fatalf("csv read error: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(records))
	}
	if records[1][0] != "A" || records[1][3] != "130.46" {
		t.Fatalf("unexpected first row %v", records[1])
	}
	if records[1][8] != "2024-01-02T15:00:00Z" {
		t.Fatalf("unexpected last transaction %q", records[1][8])
	}
	if records[2][8] != "" {
		t.Fatalf("expected empty date for zero time, got %q", records[2][8])
	}
}

func TestWriteDailyCSV(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := WriteDailyCSV(buf, sampleDaily()); err != nil {
		t.Fatalf("daily csv error: %v", err)
	}
	records, err := csv.NewReader(bytes.NewReader(buf.Bytes())).ReadAll()
	if err != nil {
		t.Fatalf("csv read error: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[2][1] != "Jan 2" || records[2][4] != "65.00" {
		t.Fatalf("unexpected daily row %v", records[2])
	}
}

func TestWriteWorkbook(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := WriteWorkbook(buf, sampleEntities(), sampleDaily()); err != nil {
		t.Fatalf("workbook error: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != entitySheet || sheets[1] != dailySheet {
		t.Fatalf("unexpected sheets %v", sheets)
	}
	name, err := f.GetCellValue(entitySheet, "B2")
	if err != nil || name != "Ana" {
		t.Fatalf("expected Ana in B2, got %q (%v)", name, err)
	}
	amount, err := f.GetCellValue(entitySheet, "D2")
	if err != nil || amount != "130.46" {
		t.Fatalf("expected rounded amount, got %q (%v)", amount, err)
	}
	rows, err := f.GetRows(dailySheet)
	if err != nil {
		t.Fatalf("daily rows: %v", err)
	}
	if len(rows) != 3 || rows[1][0] != "2024-01-01" {
		t.Fatalf("unexpected daily rows %v", rows)
	}
}

func TestFormatter(t *testing.T) {
	if got := FormatAmount(1234.5); got != "1234.50" {
		t.Fatalf("unexpected plain amount %q", got)
	}
	if got := NewFormatter("en-US").Amount(1234.5); got != "1,234.50" {
		t.Fatalf("unexpected en amount %q", got)
	}
	if got := NewFormatter("id-ID").Amount(1234.5); got != "1.234,50" {
		t.Fatalf("unexpected id amount %q", got)
	}
	if got := NewFormatter("not a tag!").Count(12000); got != "12,000" {
		t.Fatalf("unexpected fallback count %q", got)
	}
	var zero Formatter
	if got := zero.Amount(2); got != "2.00" {
		t.Fatalf("unexpected zero formatter amount %q", got)
	}
}

func TestFormatterDayLabel(t *testing.T) {
	may := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	if got := NewFormatter("de-DE").DayLabel(may); got != "Mai 2" {
		t.Fatalf("unexpected de label %q", got)
	}
	if got := NewFormatter("de").DayLabel(may); got != "Mai 2" {
		t.Fatalf("unexpected de label without region %q", got)
	}
	if got := NewFormatter("en-US").DayLabel(may); got != "May 2" {
		t.Fatalf("unexpected en label %q", got)
	}
	var zero Formatter
	if got := zero.DayLabel(may); got != "May 2" {
		t.Fatalf("unexpected zero formatter label %q", got)
	}
}
