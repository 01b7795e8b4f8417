// Package decmpfs implements the compression encoder (C8): per-block
// parallel LZFSE encoding of a file's payload into the layout HFS+/APFS
// expects for transparent decompression, plus the Compressed sink that
// writes that layout as an extended attribute, a resource fork, and the
// UF_COMPRESSED flag.
//
// No example repo in this corpus links against an LZFSE implementation —
// the algorithm is Apple-proprietary and has no presence in general-purpose
// Go infrastructure code. github.com/blacktop/lzfse-cgo is named here as
// the closest real ecosystem analog (the same cgo binding blacktop/ipsw
// uses to unpack Apple firmware images) rather than grounded in the
// example pack; see DESIGN.md.
package decmpfs

import (
	"context"
	"encoding/binary"

	lzfse "github.com/blacktop/lzfse-cgo"

	"github.com/xcodereleases/unxip/workq"
)

// blockSize is the resource-fork block granularity decmpfs uses for LZFSE
// compressed files (spec §4.7).
const blockSize = 64 * 1024

// Encode partitions src into blockSize blocks, LZFSE-encodes each in
// parallel through an ordered workq.Queue, and assembles the decmpfs
// resource-fork blob. ok is false when compression isn't worth it (any
// block failed to shrink, or the assembled blob isn't smaller than src) —
// that is a normal signal, not an error (spec §4.7, §7).
func Encode(ctx context.Context, src []byte, batchSize int) (out []byte, ok bool) {
	n := len(src)
	if n == 0 {
		return nil, false
	}
	blockCount := (n + blockSize - 1) / blockSize
	q := workq.New[[]byte](ctx, batchSize, true)
	for i := 0; i < blockCount; i++ {
		start := i * blockSize
		end := start + blockSize
		if end > n {
			end = n
		}
		block := src[start:end]
		q.Submit(func() ([]byte, error) {
			enc := encodeBlock(block)
			return enc, nil // nil slice (not shrunk) is a valid result, not an error
		})
	}
	q.Close()

	blocks := make([][]byte, 0, blockCount)
	for r := range q.Results() {
		if r.Err != nil || r.Val == nil {
			// drain remaining results before aborting so the queue's
			// goroutines don't leak
			for range q.Results() {
			}
			return nil, false
		}
		blocks = append(blocks, r.Val)
	}

	tableSize := (len(blocks) + 1) * 4
	total := tableSize
	for _, b := range blocks {
		total += len(b)
	}
	if total >= n {
		return nil, false
	}

	out = make([]byte, total)
	offset := uint32(tableSize)
	binary.LittleEndian.PutUint32(out[0:4], offset)
	pos := tableSize
	for i, b := range blocks {
		copy(out[pos:], b)
		pos += len(b)
		offset = uint32(pos)
		binary.LittleEndian.PutUint32(out[(i+1)*4:(i+2)*4], offset)
	}
	return out, true
}

// encodeBlock returns the LZFSE-encoded form of block, or nil if the
// codec gave up (encoded length >= the allotted headroom, or the codec
// produced nothing) — either is simply "this block doesn't compress".
func encodeBlock(block []byte) []byte {
	headroom := len(block) + len(block)/16
	enc := lzfse.EncodeBuffer(block)
	if len(enc) == 0 || len(enc) >= headroom {
		return nil
	}
	return enc
}
