package decmpfs

import "golang.org/x/sys/unix"

// UF_COMPRESSED signals to HFS+/APFS that a file's data lives in the
// decmpfs xattr/resource-fork pair instead of the data fork (spec §6).
const ufCompressed = 0x00000020

func chflagsCompressed(path string) error {
	return unix.Chflags(path, ufCompressed)
}
