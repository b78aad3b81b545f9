package datasource

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Resolve walks a dot-separated key through a JSON document. Objects are
// indexed by property name and arrays by numeric position. A null or scalar
// in the middle of the path, or a missing property, yields
// ErrFallbackKeyNotFound. A null at the end of the path is a found value.
func Resolve(doc json.RawMessage, key string) (json.RawMessage, error) {
	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("%w: empty key", ErrFallbackKeyNotFound)
	}
	current := doc
	for _, part := range strings.Split(key, ".") {
		next, ok := step(current, part)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrFallbackKeyNotFound, key)
		}
		current = next
	}
	return current, nil
}

func step(current json.RawMessage, part string) (json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(current)
	if len(trimmed) == 0 {
		return nil, false
	}
	switch trimmed[0] {
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil, false
		}
		value, ok := obj[part]
		return value, ok
	case '[':
		idx, err := strconv.Atoi(part)
		if err != nil || idx < 0 {
			return nil, false
		}
		var arr []json.RawMessage
		if err := json.Unmarshal(trimmed, &arr); err != nil {
			return nil, false
		}
		if idx >= len(arr) {
			return nil, false
		}
		return arr[idx], true
	default:
		return nil, false
	}
}
