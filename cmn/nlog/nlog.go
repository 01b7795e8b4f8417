// Package nlog is unxip's logger: leveled, timestamped, safe for
// concurrent use from the extraction pipeline's worker goroutines.
//
// Unlike aistore's namesake package (a long-running daemon's rotating,
// double-buffered log writer) unxip is a one-shot CLI: there is no log
// directory to rotate into, so this version keeps the severity model and
// call surface but writes straight through a single mutex-guarded buffered
// writer, flushed on exit.
package nlog

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/xcodereleases/unxip/cmn/mono"
)

type severity int

const (
	sevInfo severity = iota
	sevWarn
	sevErr
)

var (
	mu      sync.Mutex
	out     = bufio.NewWriter(os.Stderr)
	verbose bool
	start   = mono.NanoTime()
)

// InitFlags wires -v into flset; Info-level lines are suppressed
// unless verbose is set, matching the CLI's -v flag (see cmd/unxip).
func InitFlags(flset *flag.FlagSet) {
	flset.BoolVar(&verbose, "v", false, "verbose: also log per-file diagnostics")
}

func SetVerbose(v bool) { verbose = v }
func Verbose() bool     { return verbose }

func log(sev severity, format string, args ...any) {
	if sev == sevInfo && !verbose {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(out, "%s %c ", time.Duration(mono.NanoTime()-start).Round(time.Millisecond), sevLetter(sev))
	if format == "" {
		fmt.Fprintln(out, args...)
	} else {
		fmt.Fprintf(out, format, args...)
		if len(format) == 0 || format[len(format)-1] != '\n' {
			out.WriteByte('\n')
		}
	}
	if sev >= sevWarn {
		out.Flush()
	}
}

func sevLetter(sev severity) byte {
	switch sev {
	case sevWarn:
		return 'W'
	case sevErr:
		return 'E'
	default:
		return 'I'
	}
}

func Infof(format string, args ...any)    { log(sevInfo, format, args...) }
func Infoln(args ...any)                  { log(sevInfo, "", args...) }
func Warningf(format string, args ...any) { log(sevWarn, format, args...) }
func Warningln(args ...any)               { log(sevWarn, "", args...) }
func Errorf(format string, args ...any)   { log(sevErr, format, args...) }
func Errorln(args ...any)                 { log(sevErr, "", args...) }

// Flush drains buffered output; call before process exit.
func Flush() {
	mu.Lock()
	defer mu.Unlock()
	out.Flush()
}

// SetOutput redirects logging, for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = bufio.NewWriter(w)
}
