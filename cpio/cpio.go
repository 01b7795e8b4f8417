// Package cpio parses the "odc" (ASCII, 6/11-digit octal) CPIO format that
// PBZX decompresses into (C5, CPIO Parser). File payloads are captured as
// zero-copy slices into whatever pbzx.Chunk buffers they fall in.
package cpio

import (
	"context"
	"strconv"

	"github.com/xcodereleases/unxip/pbzx"
	"github.com/xcodereleases/unxip/workq"
	"github.com/xcodereleases/unxip/xiperr"
)

const (
	magic   = "070707"
	trailer = "TRAILER!!!"
)

// Identifier is the (dev, ino) pair CPIO uses to group hardlinks.
type Identifier struct {
	Dev, Ino uint64
}

// File is one parsed CPIO entry. Data, concatenated in order, is exactly
// the entry's payload; it references byte slices owned by the pbzx.Chunks
// in ChunkRefs. Keeping ChunkRefs alongside Data is not load-bearing for
// memory safety — Go's garbage collector already keeps a Chunk's backing
// array alive for as long as any slice of Data points into it — but it
// documents the retained relationship spec §3 calls chunk_refs, and lets a
// caller reason about or report how many chunks a given file straddles.
type File struct {
	Dev, Ino  uint64
	Mode      uint32
	Name      string
	Size      int64
	Data      [][]byte
	ChunkRefs []*pbzx.Chunk
}

func (f *File) Identifier() Identifier { return Identifier{Dev: f.Dev, Ino: f.Ino} }

// Result is one Parse output: either a File or a terminal error.
type Result struct {
	File File
	Err  error
}

// Parse consumes chunks (the ordered stream a pbzx.Decode queue yields) and
// emits Files in archive order on the returned channel, closing it after
// the CPIO trailer or a fatal error. bufSize bounds how many parsed-but-
// unconsumed Files may accumulate (spec: CPU count), providing
// backpressure back through the chunk reader into the PBZX decode queue.
func Parse(ctx context.Context, chunks <-chan workq.Result[pbzx.Chunk], bufSize int) <-chan Result {
	if bufSize < 1 {
		bufSize = 1
	}
	out := make(chan Result, bufSize)
	go func() {
		defer close(out)
		r := newChunkReader(chunks)
		for {
			if ctx.Err() != nil {
				emit(ctx, out, Result{Err: xiperr.ErrCancelled})
				return
			}
			f, done, err := parseOne(r)
			if err != nil {
				emit(ctx, out, Result{Err: err})
				return
			}
			if done {
				return
			}
			if !emit(ctx, out, Result{File: *f}) {
				return
			}
		}
	}()
	return out
}

func emit(ctx context.Context, out chan<- Result, r Result) bool {
	select {
	case out <- r:
		return true
	case <-ctx.Done():
		return false
	}
}

// parseOne reads one CPIO header+name+payload. done is true once the
// trailer entry has been consumed (no File is returned for it).
// odc header layout (76 bytes total): 6-byte magic, then fixed-width ASCII
// octal fields — dev, ino, mode, uid, gid, nlink, rdev (6 digits each),
// mtime (11), namesize (6), filesize (11) — immediately followed by
// namesize bytes of NUL-terminated name and filesize bytes of payload.
const headerSize = 76

func parseOne(r *chunkReader) (f *File, done bool, err error) {
	hdr, err := r.readExact(headerSize)
	if err != nil {
		return nil, false, err
	}
	if string(hdr[0:6]) != magic {
		return nil, false, xiperr.Malformedf("cpio", "bad magic %q", hdr[0:6])
	}
	dev, err := parseOctal(hdr[6:12])
	if err != nil {
		return nil, false, err
	}
	ino, err := parseOctal(hdr[12:18])
	if err != nil {
		return nil, false, err
	}
	mode, err := parseOctal(hdr[18:24])
	if err != nil {
		return nil, false, err
	}
	// uid[24:30], gid[30:36], nlink[36:42], rdev[42:48], mtime[48:59]: discarded
	namesize, err := parseOctal(hdr[59:65])
	if err != nil {
		return nil, false, err
	}
	filesize, err := parseOctal(hdr[65:76])
	if err != nil {
		return nil, false, err
	}

	nameBytes, err := r.readExact(int(namesize))
	if err != nil {
		return nil, false, err
	}
	name := cString(nameBytes)

	if name == trailer {
		return nil, true, nil
	}

	data, refs, err := r.readSpan(int(filesize))
	if err != nil {
		return nil, false, err
	}

	return &File{
		Dev:       dev,
		Ino:       ino,
		Mode:      uint32(mode),
		Name:      name,
		Size:      int64(filesize),
		Data:      data,
		ChunkRefs: refs,
	}, false, nil
}

func parseOctal(b []byte) (uint64, error) {
	v, err := strconv.ParseUint(string(b), 8, 64)
	if err != nil {
		return 0, xiperr.Malformedf("cpio", "bad octal field %q: %v", b, err)
	}
	return v, nil
}

func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
