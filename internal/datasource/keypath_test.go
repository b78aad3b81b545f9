package datasource

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	doc := json.RawMessage(mockDocument)

	tests := []struct {
		key  string
		want string
	}{
		{"billing", `[{"id": "B-1", "amount": 120}]`},
		{"billing.0.amount", `120`},
		{"a.b", `{"c": {"deep": true}}`},
		{"a.b.c.deep", `true`},
		{"nothing", `null`},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := Resolve(doc, tt.key)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestResolveNotFound(t *testing.T) {
	doc := json.RawMessage(mockDocument)
	for _, key := range []string{"", "missing", "a.missing.c", "a.b.c.deep.more", "billing.x", "billing.-1", "billing.1", "nothing.x"} {
		_, err := Resolve(doc, key)
		assert.ErrorIs(t, err, ErrFallbackKeyNotFound, "key %q", key)
	}
}

func TestUnwrap(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bare array", `[1,2]`, `[1,2]`},
		{"envelope", `{"success":true,"data":{"total":3}}`, `{"total":3}`},
		{"data without success", `{"data":[1]}`, `[1]`},
		{"plain object", `{"total":3}`, `{"total":3}`},
		{"scalar", `42`, `42`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Unwrap(json.RawMessage(tt.body))
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}

	_, err := Unwrap(json.RawMessage(`{"success":false,"data":[]}`))
	assert.ErrorIs(t, err, ErrUnsuccessfulEnvelope)
}
