// Package guard switches the application into test mode when imported, so a
// test can call a main function without dialing Redis or Postgres.
package guard

import "os"

func init() {
	if os.Getenv("CAREPANEL_TEST_MODE") == "" {
		_ = os.Setenv("CAREPANEL_TEST_MODE", "1")
	}
}
