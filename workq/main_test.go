package workq

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain checks that no queue goroutine (dispatch, or a Submit task
// blocked on Acquire) survives past the package's tests, the way
// standardbeagle/lci's test suite guards its own goroutine-heavy code.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
