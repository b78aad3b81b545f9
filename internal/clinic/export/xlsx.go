package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/carepanel/carepanel/internal/transactions"
)

const (
	entitySheet = "Entities"
	dailySheet  = "Daily"
)

// WriteWorkbook streams an XLSX file with one sheet per rollup. Amounts are
// written as numbers rounded to two decimals so spreadsheets can sum them.
func WriteWorkbook(w io.Writer, entities []transactions.EntitySummary, daily []transactions.DailySummary) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", entitySheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(dailySheet); err != nil {
		return err
	}

	if err := writeRow(f, entitySheet, 1, toCells(entityHeader)); err != nil {
		return err
	}
	for i, s := range entities {
		last := ""
		if !s.LastTransactionDate.IsZero() {
			last = s.LastTransactionDate.UTC().Format("2006-01-02 15:04")
		}
		row := []any{
			s.EntityID,
			s.EntityName,
			s.TotalTransactions,
			round2(s.TotalAmount),
			round2(s.TotalCommission),
			round2(s.TotalDuration),
			round2(s.AverageRating),
			round2(s.AverageDuration),
			last,
		}
		if err := writeRow(f, entitySheet, i+2, row); err != nil {
			return err
		}
	}

	if err := writeRow(f, dailySheet, 1, toCells(dailyHeader)); err != nil {
		return err
	}
	for i, s := range daily {
		row := []any{s.Day, s.Label, s.Transactions, round2(s.Revenue), round2(s.AverageAmount)}
		if err := writeRow(f, dailySheet, i+2, row); err != nil {
			return err
		}
	}

	return f.Write(w)
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func toCells(header []string) []any {
	out := make([]any, len(header))
	for i, h := range header {
		out[i] = h
	}
	return out
}
