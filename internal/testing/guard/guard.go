// Package guard forces test mode before any runtime package initialises,
// so tests can never open real network listeners or queues.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("HARBOR_TEST_MODE") == "" {
			_ = os.Setenv("HARBOR_TEST_MODE", "1")
		}
	})
}
