package decmpfs

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/xcodereleases/unxip/cpio"
	"github.com/xcodereleases/unxip/sink"
)

// decmpfsXattr is the extended attribute name recording a file's compressed
// layout (spec §6).
const decmpfsXattr = "com.apple.decmpfs"

// resourceForkSuffix addresses a file's alternate data stream on HFS+/APFS.
const resourceForkSuffix = "/..namedfork/rsrc"

// typeLZFSE64KResourceFork is decmpfs's on-disk compression-type constant
// for an LZFSE payload stored in 64 KiB blocks in the resource fork.
const typeLZFSE64KResourceFork = 0x0000000C

// Compressed wraps a Default sink: regular files are offered to the C8
// encoder first, and only fall back to Default's plain write if encoding
// isn't worth it or any step of the compressed write path fails (spec
// §4.7, §7 — "any failure anywhere in this path falls back to plain
// payload write").
type Compressed struct {
	*sink.Default
	Ctx       context.Context
	BatchSize int
}

func NewCompressed(root string, ctx context.Context, batchSize int) *Compressed {
	return &Compressed{Default: sink.NewDefault(root), Ctx: ctx, BatchSize: batchSize}
}

func (c *Compressed) CreateFile(f *cpio.File) error {
	src := concatData(f)
	if len(src) == 0 {
		return c.Default.CreateFile(f)
	}

	blob, ok := Encode(c.Ctx, src, c.BatchSize)
	if !ok {
		return c.Default.CreateFile(f)
	}

	path := filepath.Join(c.Default.Root, f.Name)
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, os.FileMode(f.Mode&0o777))
	if err != nil {
		return c.Default.CreateFile(f)
	}
	out.Close() // empty data fork

	if err := writeDecmpfs(path, uint64(len(src)), blob); err != nil {
		return c.Default.CreateFile(f)
	}
	return nil
}

func writeDecmpfs(path string, decompressedSize uint64, blob []byte) error {
	var xattr [16]byte
	copy(xattr[0:4], "fpmc")
	binary.LittleEndian.PutUint32(xattr[4:8], typeLZFSE64KResourceFork)
	binary.LittleEndian.PutUint64(xattr[8:16], decompressedSize)
	if err := unix.Setxattr(path, decmpfsXattr, xattr[:], 0); err != nil {
		return err
	}

	rsrc, err := os.OpenFile(path+resourceForkSuffix, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := rsrc.Write(blob); err != nil {
		rsrc.Close()
		return err
	}
	if err := rsrc.Close(); err != nil {
		return err
	}
	return chflagsCompressed(path)
}

func concatData(f *cpio.File) []byte {
	if len(f.Data) == 1 {
		return f.Data[0]
	}
	out := make([]byte, 0, f.Size)
	for _, d := range f.Data {
		out = append(out, d...)
	}
	return out
}
