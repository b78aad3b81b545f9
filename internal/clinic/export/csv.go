package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/carepanel/carepanel/internal/transactions"
)

var entityHeader = []string{"Entity ID", "Entity", "Transactions", "Total Amount", "Total Commission", "Total Duration", "Average Rating", "Average Duration", "Last Transaction"}

var dailyHeader = []string{"Date", "Label", "Transactions", "Revenue", "Average Amount"}

// WriteEntityCSV serialises entity summaries in aggregation order.
func WriteEntityCSV(w io.Writer, summaries []transactions.EntitySummary) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writer.Write(entityHeader); err != nil {
		return err
	}
	for _, s := range summaries {
		if err := writer.Write(entityRow(s)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteDailyCSV emits one row per calendar day.
func WriteDailyCSV(w io.Writer, summaries []transactions.DailySummary) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writer.Write(dailyHeader); err != nil {
		return err
	}
	for _, s := range summaries {
		if err := writer.Write(dailyRow(s)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func entityRow(s transactions.EntitySummary) []string {
	last := ""
	if !s.LastTransactionDate.IsZero() {
		last = s.LastTransactionDate.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	return []string{
		s.EntityID,
		s.EntityName,
		strconv.Itoa(s.TotalTransactions),
		FormatAmount(s.TotalAmount),
		FormatAmount(s.TotalCommission),
		FormatAmount(s.TotalDuration),
		FormatAmount(s.AverageRating),
		FormatAmount(s.AverageDuration),
		last,
	}
}

func dailyRow(s transactions.DailySummary) []string {
	return []string{
		s.Day,
		s.Label,
		strconv.Itoa(s.Transactions),
		FormatAmount(s.Revenue),
		FormatAmount(s.AverageAmount),
	}
}
