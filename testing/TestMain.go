package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("FLEETLEDGER_TEST_MODE", "1")
		if os.Getenv("INVOICE_PREFIX") == "" {
			_ = os.Setenv("INVOICE_PREFIX", "RVT")
		}
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
