package transactions

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrMalformedPayload is returned when a payload holds no transaction list.
var ErrMalformedPayload = errors.New("transactions: payload is not a transaction list")

const (
	defaultServiceType   = "general"
	defaultPaymentMethod = "cash"
	unknownEntityID      = "unknown"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	dayLayout,
}

// Normalizer turns loosely shaped JSON objects into Records, filling every
// missing field with its default.
type Normalizer struct {
	Now   func() time.Time
	NewID func() string
}

// NewNormalizer returns a Normalizer using the wall clock and random UUIDs.
func NewNormalizer() Normalizer {
	return Normalizer{Now: time.Now, NewID: uuid.NewString}
}

func (n Normalizer) now() time.Time {
	if n.Now == nil {
		return time.Now().UTC()
	}
	return n.Now().UTC()
}

func (n Normalizer) newID() string {
	if n.NewID == nil {
		return uuid.NewString()
	}
	return n.NewID()
}

// Decode parses a primary or fallback payload into normalized records. The
// payload may be a bare array or an object carrying a "transactions" or
// "data" array.
func (n Normalizer) Decode(data json.RawMessage, d Domain) ([]Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if payload == nil {
		return []Record{}, nil
	}
	items, ok := payload.([]any)
	if !ok {
		obj, isObj := payload.(map[string]any)
		if !isObj {
			return nil, ErrMalformedPayload
		}
		if items, ok = obj["transactions"].([]any); !ok {
			if items, ok = obj["data"].([]any); !ok {
				return nil, ErrMalformedPayload
			}
		}
	}
	raw := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]any); ok {
			raw = append(raw, obj)
		}
	}
	return n.Normalize(raw, d), nil
}

// Normalize converts raw objects in input order.
func (n Normalizer) Normalize(raw []map[string]any, d Domain) []Record {
	now := n.now()
	records := make([]Record, 0, len(raw))
	for _, obj := range raw {
		records = append(records, n.record(obj, d, now))
	}
	return records
}

func (n Normalizer) record(obj map[string]any, d Domain, now time.Time) Record {
	rec := Record{
		ID:            firstString(obj, "id", "_id"),
		EntityID:      firstString(obj, d.EntityField, "entityId"),
		EntityName:    firstString(obj, d.NameField, "entityName"),
		TransactionID: firstString(obj, "transactionId"),
		Status:        ParseStatus(firstString(obj, "status")),
		ServiceType:   firstString(obj, "serviceType"),
		PaymentMethod: firstString(obj, "paymentMethod"),
		Amount:        nonNegative(obj["amount"]),
		Duration:      optionalFloat(obj["duration"]),
		Commission:    optionalFloat(obj["commission"]),
		Rating:        optionalRating(obj["rating"]),
		Items:         itemCount(obj["items"]),
	}
	if rec.ID == "" {
		rec.ID = n.newID()
	}
	if rec.EntityID == "" {
		rec.EntityID = unknownEntityID
	}
	if rec.EntityName == "" {
		rec.EntityName = d.Placeholder
	}
	if rec.TransactionID == "" {
		rec.TransactionID = "TXN-" + idSuffix(n.newID())
	}
	if rec.ServiceType == "" {
		rec.ServiceType = defaultServiceType
	}
	if rec.PaymentMethod == "" {
		rec.PaymentMethod = defaultPaymentMethod
	}
	rec.Date = parseDate(firstString(obj, "date", "createdAt"), now)
	return rec
}

func idSuffix(id string) string {
	s := strings.ToUpper(strings.ReplaceAll(id, "-", ""))
	if len(s) > 8 {
		s = s[:8]
	}
	return s
}

// parseDate returns fallback for empty or unparseable input.
func parseDate(raw string, fallback time.Time) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return fallback
}

func firstString(obj map[string]any, keys ...string) string {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if s := toString(obj[key]); s != "" {
			return s
		}
	}
	return ""
}

func toString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

func toFloat64(v any) (float64, bool) {
	var f float64
	switch val := v.(type) {
	case json.Number:
		parsed, err := val.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case float64:
		f = val
	case float32:
		f = float64(val)
	case int:
		f = float64(val)
	case int64:
		f = float64(val)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func nonNegative(v any) float64 {
	f, ok := toFloat64(v)
	if !ok || f < 0 {
		return 0
	}
	return f
}

func optionalFloat(v any) *float64 {
	f, ok := toFloat64(v)
	if !ok || f < 0 {
		return nil
	}
	return &f
}

func optionalRating(v any) *float64 {
	f := optionalFloat(v)
	if f == nil || *f < 1 || *f > 5 {
		return nil
	}
	return f
}

func itemCount(v any) int {
	switch val := v.(type) {
	case []any:
		return len(val)
	default:
		f, ok := toFloat64(val)
		if !ok || f < 0 {
			return 0
		}
		return int(f)
	}
}
