// Package transactions normalizes raw transaction payloads and rolls them up
// into per-entity and per-day summaries for the dashboard's financial pages.
package transactions

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a transaction.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusPending   Status = "pending"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
)

// ParseStatus maps a raw status to the fixed enum. Unknown and empty values
// become StatusCompleted.
func ParseStatus(raw string) Status {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusPending:
		return StatusPending
	case StatusFailed:
		return StatusFailed
	case StatusRefunded:
		return StatusRefunded
	default:
		return StatusCompleted
	}
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusCompleted, StatusPending, StatusFailed, StatusRefunded:
		return true
	}
	return false
}

// Record is a normalized transaction shared by the nurse, patient, pharmacy,
// doctor and revenue domains.
type Record struct {
	ID            string    `json:"id"`
	EntityID      string    `json:"entityId"`
	EntityName    string    `json:"entityName"`
	TransactionID string    `json:"transactionId"`
	Date          time.Time `json:"date"`
	Amount        float64   `json:"amount"`
	Status        Status    `json:"status"`
	Duration      *float64  `json:"duration,omitempty"`
	Commission    *float64  `json:"commission,omitempty"`
	Rating        *float64  `json:"rating,omitempty"`
	ServiceType   string    `json:"serviceType"`
	Items         int       `json:"items"`
	PaymentMethod string    `json:"paymentMethod"`
}

// EntitySummary rolls up the transactions of a single nurse, doctor, patient,
// pharmacy or department.
type EntitySummary struct {
	EntityID            string    `json:"entityId"`
	EntityName          string    `json:"entityName"`
	TotalTransactions   int       `json:"totalTransactions"`
	TotalAmount         float64   `json:"totalAmount"`
	TotalDuration       float64   `json:"totalDuration"`
	TotalCommission     float64   `json:"totalCommission"`
	LastTransactionDate time.Time `json:"lastTransactionDate"`
	AverageRating       float64   `json:"averageRating"`
	RatedTransactions   int       `json:"ratedTransactions"`
	AverageDuration     float64   `json:"averageDuration"`
	TimedTransactions   int       `json:"timedTransactions"`
}

// DailySummary rolls up every transaction of one UTC calendar day.
type DailySummary struct {
	Date          time.Time `json:"date"`
	Day           string    `json:"day"`
	Label         string    `json:"label"`
	Transactions  int       `json:"transactions"`
	Revenue       float64   `json:"revenue"`
	AverageAmount float64   `json:"averageAmount"`
}

const (
	dayLayout   = "2006-01-02"
	labelLayout = "Jan 2"
)
