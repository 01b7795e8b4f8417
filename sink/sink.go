// Package sink defines the materialization capability set (C7) that the
// extraction scheduler drives, plus the Default (plain POSIX) and DryRun
// reference implementations. The Compressed implementation lives in
// package decmpfs, which depends on this package rather than the reverse.
package sink

import (
	"os"

	"github.com/xcodereleases/unxip/cpio"
)

// Sink is the external contract the scheduler (extract.Scheduler) is
// polymorphic over. Every method is fallible; per-file failures are
// swallowed by the caller (spec §7), not by the sink itself.
type Sink interface {
	CreateDirectory(f *cpio.File) error
	CreateFile(f *cpio.File) error
	Hardlink(originalName string, f *cpio.File) error
	Symlink(target string, f *cpio.File) error
	Chmod(f *cpio.File, mode os.FileMode) error
}
