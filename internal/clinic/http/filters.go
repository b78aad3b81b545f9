package clinichttp

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/carepanel/carepanel/internal/platform/httpx"
	"github.com/carepanel/carepanel/internal/transactions"
)

const dayLayout = "2006-01-02"

type filterQuery struct {
	Status   string `validate:"omitempty,oneof=completed pending failed refunded"`
	EntityID string `validate:"omitempty,max=64"`
	From     string `validate:"omitempty,datetime=2006-01-02"`
	To       string `validate:"omitempty,datetime=2006-01-02"`
	Search   string `validate:"omitempty,max=100"`
}

type rangeQuery struct {
	From string `validate:"omitempty,datetime=2006-01-02"`
	To   string `validate:"omitempty,datetime=2006-01-02"`
}

type validationError struct {
	fields []string
}

func (v validationError) Error() string {
	return fmt.Sprintf("invalid %s", strings.Join(v.fields, ", "))
}

func (v validationError) Unwrap() error { return httpx.ErrValidation }

func (h *Handler) parseFilter(r *http.Request) (transactions.Filter, error) {
	q := r.URL.Query()
	query := filterQuery{
		Status:   strings.ToLower(strings.TrimSpace(q.Get("status"))),
		EntityID: strings.TrimSpace(q.Get("entity")),
		From:     strings.TrimSpace(q.Get("from")),
		To:       strings.TrimSpace(q.Get("to")),
		Search:   strings.TrimSpace(q.Get("q")),
	}
	if err := h.validator.Struct(query); err != nil {
		return transactions.Filter{}, validationError{fields: fieldNames(err)}
	}

	from, _ := parseDay(query.From)
	to, _ := parseDay(query.To)
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return transactions.Filter{}, validationError{fields: []string{"from", "to"}}
	}

	return transactions.Filter{
		Status:   transactions.Status(query.Status),
		EntityID: query.EntityID,
		From:     from,
		To:       to,
		Search:   query.Search,
	}, nil
}

func fieldNames(err error) []string {
	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		return []string{"query"}
	}
	names := make([]string, 0, len(vErrs))
	for _, fieldErr := range vErrs {
		names = append(names, strings.ToLower(fieldErr.Field()))
	}
	sort.Strings(names)
	return names
}

func parseDay(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(dayLayout, raw)
}
