// Package cos provides small low-level utilities shared across unxip's
// packages: error aggregation and process-fatal exit helpers.
package cos

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/xcodereleases/unxip/cmn/debug"
	"github.com/xcodereleases/unxip/cmn/nlog"
)

// Errs is a bounded, deduplicating error aggregator: up to maxErrs distinct
// errors are retained, further ones are counted but dropped. No pipeline
// stage uses it: the TOC, PBZX and CPIO stages each return their first
// fatal error directly.
type Errs struct {
	errs []error
	cnt  int64
	mu   sync.Mutex
}

const maxErrs = 4

func (e *Errs) Add(err error) {
	debug.Assert(err != nil)
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, added := range e.errs {
		if added.Error() == err.Error() {
			return
		}
	}
	if len(e.errs) < maxErrs {
		e.errs = append(e.errs, err)
	}
	atomic.AddInt64(&e.cnt, 1)
}

func (e *Errs) Cnt() int { return int(atomic.LoadInt64(&e.cnt)) }

func (e *Errs) Error() string {
	cnt := e.Cnt()
	if cnt == 0 {
		return ""
	}
	e.mu.Lock()
	err := errors.Join(e.errs...)
	e.mu.Unlock()
	if cnt > len(e.errs) {
		return fmt.Sprintf("%v (and %d more)", err, cnt-len(e.errs))
	}
	return err.Error()
}

const fatalPrefix = "unxip: "

// Exitf prints a single-line diagnostic to stderr and exits non-zero, per
// the CLI's fatal-error contract (archive path + OS error string).
func Exitf(f string, a ...any) {
	nlog.Flush()
	fmt.Fprintln(os.Stderr, fatalPrefix+fmt.Sprintf(f, a...))
	os.Exit(1)
}
