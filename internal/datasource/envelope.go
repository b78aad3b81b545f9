package datasource

import (
	"bytes"
	"encoding/json"
)

// Unwrap normalizes the two response shapes the API uses. Objects carrying a
// "data" property yield that property; anything else is returned unchanged.
// An envelope with "success": false reports ErrUnsuccessfulEnvelope.
func Unwrap(body json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return body, nil
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return body, nil
	}
	if raw, ok := envelope["success"]; ok {
		var success bool
		if err := json.Unmarshal(raw, &success); err == nil && !success {
			return nil, ErrUnsuccessfulEnvelope
		}
	}
	if data, ok := envelope["data"]; ok {
		return data, nil
	}
	return body, nil
}

// unwrapEnvelope is the strict form used for mock document values: only an
// object holding both a boolean "success" and a "data" property is an
// envelope. Any other value, including objects with a "data" property next
// to other fields, is returned unchanged.
func unwrapEnvelope(value json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(value)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return value, nil
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return value, nil
	}
	rawSuccess, hasSuccess := envelope["success"]
	data, hasData := envelope["data"]
	if !hasSuccess || !hasData {
		return value, nil
	}
	var success bool
	if err := json.Unmarshal(rawSuccess, &success); err != nil {
		return value, nil
	}
	if !success {
		return nil, ErrUnsuccessfulEnvelope
	}
	return data, nil
}
