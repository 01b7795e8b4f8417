package sink

import (
	"os"

	"github.com/xcodereleases/unxip/cpio"
)

// DryRun performs no filesystem mutations; every call succeeds
// immediately. Used by the `-n` CLI flag to validate an archive and
// report what would happen without touching disk.
type DryRun struct{}

func (DryRun) CreateDirectory(*cpio.File) error    { return nil }
func (DryRun) CreateFile(*cpio.File) error         { return nil }
func (DryRun) Hardlink(string, *cpio.File) error   { return nil }
func (DryRun) Symlink(string, *cpio.File) error    { return nil }
func (DryRun) Chmod(*cpio.File, os.FileMode) error { return nil }
