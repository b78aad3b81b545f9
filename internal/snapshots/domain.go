package snapshots

import (
	"errors"
	"time"

	"github.com/carepanel/carepanel/internal/transactions"
)

// ErrInvalidRange is returned when a listing window ends before it starts.
var ErrInvalidRange = errors.New("snapshots: from must not be after to")

// DefaultWindow is the history returned when the caller gives no range.
const DefaultWindow = 30 * 24 * time.Hour

// Rollup is one persisted daily summary of a domain.
type Rollup struct {
	Domain        string    `json:"domain"`
	Day           time.Time `json:"date"`
	Transactions  int       `json:"transactions"`
	Revenue       float64   `json:"revenue"`
	AverageAmount float64   `json:"averageAmount"`
	CapturedAt    time.Time `json:"capturedAt"`
}

// FromDaily converts aggregator output into rows stamped with capturedAt.
func FromDaily(domain string, daily []transactions.DailySummary, capturedAt time.Time) []Rollup {
	out := make([]Rollup, 0, len(daily))
	for _, d := range daily {
		out = append(out, Rollup{
			Domain:        domain,
			Day:           d.Date,
			Transactions:  d.Transactions,
			Revenue:       d.Revenue,
			AverageAmount: d.AverageAmount,
			CapturedAt:    capturedAt,
		})
	}
	return out
}
