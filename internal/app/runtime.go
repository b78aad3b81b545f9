package app

import (
	"os"
	"sync/atomic"
)

const testModeEnv = "CAREPANEL_TEST_MODE"

var testModeOverride atomic.Pointer[bool]

// InTestMode reports whether the mains should return before dialing Redis,
// Postgres or binding a port.
func InTestMode() bool {
	if v := testModeOverride.Load(); v != nil {
		return *v
	}
	return os.Getenv(testModeEnv) == "1"
}

// SetTestMode pins the test mode flag regardless of the environment.
func SetTestMode(on bool) {
	testModeOverride.Store(&on)
}
