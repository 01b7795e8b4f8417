// Package pbzx decodes Apple's PBZX chunk framing (C4, Chunk Decoder):
// each chunk is either stored raw or LZMA-compressed, and chunks are
// decoded in parallel through workq while the output stream preserves
// archive order.
package pbzx

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"

	"github.com/ulikunitz/xz/lzma"

	"github.com/xcodereleases/unxip/workq"
	"github.com/xcodereleases/unxip/xiperr"
)

// Chunk is a decoded PBZX record. Owned chunks were allocated by this
// package (LZMA output) and are ordinary Go heap values — the garbage
// collector, not manual refcounting, is what keeps them alive for as long
// as any cpio.File.Data slice still references their Bytes (see spec §3's
// chunk_refs invariant: Go's GC satisfies it for free). Non-owned chunks
// are zero-cost sub-slices of the memory-mapped archive.
type Chunk struct {
	Bytes []byte
	Owned bool
}

const lzmaMagic = "\xfd7zX"

// Decode reads the PBZX stream in data (already sliced to the Content
// range found by xar.LocatePBZX), submits one decode task per record to an
// ordered workq.Queue, and returns that queue. The caller drains
// q.Results() for an archive-ordered stream of Chunks.
//
// Decode returns at once; the record framing is walked sequentially by one
// background goroutine — framing is self-describing only in stream order,
// since compressed_size is needed to find the next record's header — while
// each record's actual LZMA decompression is what workq parallelizes. A
// framing error arrives as the last, failed result on q.Results(); the
// returned error is always nil.
func Decode(ctx context.Context, data []byte, batchSize int) (*workq.Queue[Chunk], error) {
	q := workq.New[Chunk](ctx, batchSize, true)
	go func() {
		defer q.Close()
		if err := feed(data, q); err != nil {
			q.Submit(func() (Chunk, error) { return Chunk{}, err })
		}
	}()
	return q, nil
}

func feed(data []byte, q *workq.Queue[Chunk]) error {
	if len(data) < 4 || string(data[:4]) != "pbzx" {
		return xiperr.Malformedf("pbzx", "bad magic")
	}
	if len(data) < 12 {
		return xiperr.Malformedf("pbzx", "truncated header")
	}
	flags := binary.BigEndian.Uint64(data[4:12])
	pos := int64(12)
	end := int64(len(data))

	for {
		if pos+16 > end {
			return xiperr.Malformedf("pbzx", "truncated record header")
		}
		decSize := binary.BigEndian.Uint64(data[pos : pos+8])
		cmpSize := binary.BigEndian.Uint64(data[pos+8 : pos+16])
		pos += 16
		if pos+int64(cmpSize) > end {
			return xiperr.Malformedf("pbzx", "record payload out of bounds")
		}
		payload := data[pos : pos+int64(cmpSize)]
		pos += int64(cmpSize)

		stored := cmpSize == flags
		q.Submit(decodeTask(payload, decSize, stored))

		if decSize != flags {
			return nil // short record terminates the stream
		}
		if pos >= end {
			return xiperr.Malformedf("pbzx", "stream ended without a terminal short record")
		}
	}
}

func decodeTask(payload []byte, decSize uint64, stored bool) func() (Chunk, error) {
	return func() (Chunk, error) {
		if stored {
			return Chunk{Bytes: payload, Owned: false}, nil
		}
		if len(payload) < 4 || string(payload[:4]) != lzmaMagic {
			return Chunk{}, xiperr.Malformedf("pbzx", "LZMA payload missing magic")
		}
		out := make([]byte, decSize)
		n, err := decodeLZMA(payload, out)
		if err != nil {
			return Chunk{}, xiperr.Decodef("lzma", "%v", err)
		}
		if uint64(n) != decSize {
			return Chunk{}, xiperr.Decodef("lzma", "produced %d bytes, want %d", n, decSize)
		}
		return Chunk{Bytes: out, Owned: true}, nil
	}
}

// decodeLZMA decodes a single Apple PBZX LZMA1 frame: the {0xFD,'7','z','X'}
// tag followed by a standard 13-byte LZMA1 header (properties byte +
// 4-byte little-endian dict size + 8-byte little-endian uncompressed size,
// the latter always 0xFFFFFFFFFFFFFFFF/unset in PBZX framing since the
// decompressed size is already known from the PBZX record header).
func decodeLZMA(payload, out []byte) (int, error) {
	r, err := lzma.NewReader(bytes.NewReader(payload[4:]))
	if err != nil {
		return 0, err
	}
	n, err := io.ReadFull(r, out)
	if err != nil {
		return n, err
	}
	// confirm the stream had exactly decSize bytes, not more
	var extra [1]byte
	if m, _ := r.Read(extra[:]); m > 0 {
		return n, io.ErrShortBuffer
	}
	return n, nil
}
