package datasource

import (
	"errors"
	"fmt"
)

var (
	// ErrFallbackKeyNotFound indicates the dotted key does not exist in the
	// mock document. It points at a mismatch between a resource's fallback
	// key and the document's shape.
	ErrFallbackKeyNotFound = errors.New("datasource: fallback key not found")
	// ErrNoDataAvailable indicates both the primary source and the mock
	// document could not be read.
	ErrNoDataAvailable = errors.New("datasource: no data available")
	// ErrUnsuccessfulEnvelope is reported for {"success": false} bodies.
	ErrUnsuccessfulEnvelope = errors.New("datasource: envelope reported failure")
)

// primaryError describes why the primary source was skipped. It never leaves
// the package; the fetcher recovers from it through the fallback document.
type primaryError struct {
	url    string
	status int
	err    error
}

func (e *primaryError) Error() string {
	if e.status != 0 {
		return fmt.Sprintf("datasource: primary %s: unexpected status %d", e.url, e.status)
	}
	return fmt.Sprintf("datasource: primary %s: %v", e.url, e.err)
}

func (e *primaryError) Unwrap() error { return e.err }
