package transactions

import (
	"sort"
	"time"
)

// Aggregator groups records with pluggable extractors so every domain shares
// one implementation of the entity and daily rollups.
type Aggregator struct {
	Key    func(Record) string
	Name   func(Record) string
	Amount func(Record) float64
}

// DefaultAggregator groups by EntityID and sums Amount.
func DefaultAggregator() Aggregator {
	return Aggregator{
		Key:    func(r Record) string { return r.EntityID },
		Name:   func(r Record) string { return r.EntityName },
		Amount: func(r Record) float64 { return r.Amount },
	}
}

func (a Aggregator) withDefaults() Aggregator {
	def := DefaultAggregator()
	if a.Key == nil {
		a.Key = def.Key
	}
	if a.Name == nil {
		a.Name = def.Name
	}
	if a.Amount == nil {
		a.Amount = def.Amount
	}
	return a
}

// SummarizeByEntity rolls records up per entity in a single pass. Output
// follows first-seen order. Rating and duration averages are running means
// over the records that carry the field, each with its own counter.
func (a Aggregator) SummarizeByEntity(records []Record) []EntitySummary {
	a = a.withDefaults()
	index := make(map[string]int)
	out := make([]EntitySummary, 0)
	for _, rec := range records {
		key := a.Key(rec)
		pos, seen := index[key]
		if !seen {
			pos = len(out)
			index[key] = pos
			out = append(out, EntitySummary{
				EntityID:            key,
				EntityName:          a.Name(rec),
				LastTransactionDate: rec.Date,
			})
		}
		sum := &out[pos]
		sum.TotalTransactions++
		sum.TotalAmount += a.Amount(rec)
		if rec.Date.After(sum.LastTransactionDate) {
			sum.LastTransactionDate = rec.Date
		}
		if rec.Commission != nil {
			sum.TotalCommission += *rec.Commission
		}
		if rec.Duration != nil {
			sum.TotalDuration += *rec.Duration
			sum.TimedTransactions++
			sum.AverageDuration = runningMean(sum.AverageDuration, *rec.Duration, sum.TimedTransactions)
		}
		if rec.Rating != nil {
			sum.RatedTransactions++
			sum.AverageRating = runningMean(sum.AverageRating, *rec.Rating, sum.RatedTransactions)
		}
	}
	return out
}

// SummarizeByDay rolls records up per UTC calendar day, ascending by date.
func (a Aggregator) SummarizeByDay(records []Record) []DailySummary {
	a = a.withDefaults()
	index := make(map[time.Time]int)
	out := make([]DailySummary, 0)
	for _, rec := range records {
		day := utcDay(rec.Date)
		pos, seen := index[day]
		if !seen {
			pos = len(out)
			index[day] = pos
			out = append(out, DailySummary{Date: day})
		}
		sum := &out[pos]
		sum.Transactions++
		sum.Revenue += a.Amount(rec)
		sum.AverageAmount = sum.Revenue / float64(sum.Transactions)
	}
	// Labels like "Jan 2" do not sort chronologically; order on the date first.
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	for i := range out {
		out[i].Day = out[i].Date.Format(dayLayout)
		out[i].Label = out[i].Date.Format(labelLayout)
	}
	return out
}

// SummarizeByEntity applies the default aggregator.
func SummarizeByEntity(records []Record) []EntitySummary {
	return DefaultAggregator().SummarizeByEntity(records)
}

// SummarizeByDay applies the default aggregator.
func SummarizeByDay(records []Record) []DailySummary {
	return DefaultAggregator().SummarizeByDay(records)
}

func runningMean(prev, value float64, n int) float64 {
	if n <= 1 {
		return value
	}
	return (prev*float64(n-1) + value) / float64(n)
}

func utcDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
