package cpio

import (
	"io"

	"github.com/xcodereleases/unxip/pbzx"
	"github.com/xcodereleases/unxip/workq"
	"github.com/xcodereleases/unxip/xiperr"
)

// chunkReader turns the ordered stream of pbzx.Chunks into a byte stream,
// tracking (current chunk, offset within it) across chunk boundaries.
// readExact copies small fixed-size fields into a fresh buffer when they
// straddle a boundary; readSpan never copies — it returns zero-copy
// sub-slices of the chunks a payload falls in, plus the chunks themselves
// so callers can keep them reachable (see File.ChunkRefs).
type chunkReader struct {
	chunks <-chan workq.Result[pbzx.Chunk]
	cur    pbzx.Chunk
	have   bool // cur holds a chunk with unread bytes
	pos    int  // offset into cur.Bytes already consumed
}

func newChunkReader(chunks <-chan workq.Result[pbzx.Chunk]) *chunkReader {
	return &chunkReader{chunks: chunks}
}

// advance pulls the next chunk when cur is exhausted. It returns io.EOF if
// the chunk stream ends with no more data.
func (r *chunkReader) advance() error {
	for !r.have || r.pos >= len(r.cur.Bytes) {
		res, ok := <-r.chunks
		if !ok {
			return io.EOF
		}
		if res.Err != nil {
			return res.Err
		}
		r.cur = res.Val
		r.pos = 0
		r.have = true
		if len(r.cur.Bytes) == 0 {
			continue // a zero-length chunk is legal but carries nothing
		}
	}
	return nil
}

// readExact returns exactly n bytes. When n fits entirely within the
// current chunk it returns a sub-slice in place; otherwise it copies across
// the boundary into a freshly allocated buffer (spec §9: a fresh allocation
// per boundary-spanning field is acceptable — only file payloads must stay
// zero-copy).
func (r *chunkReader) readExact(n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	if err := r.advance(); err != nil {
		if err == io.EOF {
			return nil, xiperr.Malformedf("cpio", "truncated stream reading %d bytes", n)
		}
		return nil, err
	}
	avail := len(r.cur.Bytes) - r.pos
	if avail >= n {
		b := r.cur.Bytes[r.pos : r.pos+n]
		r.pos += n
		return b, nil
	}

	out := make([]byte, n)
	copy(out, r.cur.Bytes[r.pos:])
	filled := avail
	r.pos = len(r.cur.Bytes)
	for filled < n {
		if err := r.advance(); err != nil {
			if err == io.EOF {
				return nil, xiperr.Malformedf("cpio", "truncated stream reading %d bytes", n)
			}
			return nil, err
		}
		take := n - filled
		if take > len(r.cur.Bytes)-r.pos {
			take = len(r.cur.Bytes) - r.pos
		}
		copy(out[filled:], r.cur.Bytes[r.pos:r.pos+take])
		filled += take
		r.pos += take
	}
	return out, nil
}

// readSpan returns n bytes of file payload as zero-copy sub-slices of the
// chunks it spans, along with the chunks referenced (deduplicated by
// pointer-adjacent runs, i.e. one entry per distinct chunk touched).
func (r *chunkReader) readSpan(n int) ([][]byte, []*pbzx.Chunk, error) {
	if n == 0 {
		return nil, nil, nil
	}
	var data [][]byte
	var refs []*pbzx.Chunk
	remaining := n
	for remaining > 0 {
		if err := r.advance(); err != nil {
			if err == io.EOF {
				return nil, nil, xiperr.Malformedf("cpio", "truncated payload, %d bytes short", remaining)
			}
			return nil, nil, err
		}
		avail := len(r.cur.Bytes) - r.pos
		take := remaining
		if take > avail {
			take = avail
		}
		chunk := r.cur
		data = append(data, chunk.Bytes[r.pos:r.pos+take])
		refs = append(refs, &chunk)
		r.pos += take
		remaining -= take
	}
	return data, refs, nil
}
