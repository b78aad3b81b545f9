package transactions

import (
	"strings"
	"time"
)

// Filter narrows the visible subset that summaries are computed from. Zero
// values disable the corresponding predicate.
type Filter struct {
	Status   Status
	EntityID string
	From     time.Time
	To       time.Time
	Search   string
}

// Match reports whether the record passes every active predicate. From and To
// are inclusive calendar days in UTC.
func (f Filter) Match(r Record) bool {
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.EntityID != "" && r.EntityID != f.EntityID {
		return false
	}
	day := utcDay(r.Date)
	if !f.From.IsZero() && day.Before(utcDay(f.From)) {
		return false
	}
	if !f.To.IsZero() && day.After(utcDay(f.To)) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		if !strings.Contains(strings.ToLower(r.EntityName), q) &&
			!strings.Contains(strings.ToLower(r.EntityID), q) &&
			!strings.Contains(strings.ToLower(r.TransactionID), q) {
			return false
		}
	}
	return true
}

// Apply returns the matching records in input order. The input is not
// modified.
func (f Filter) Apply(records []Record) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}
