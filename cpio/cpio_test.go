package cpio

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xcodereleases/unxip/pbzx"
	"github.com/xcodereleases/unxip/workq"
	"github.com/xcodereleases/unxip/xiperr"
)

func octal(v uint64, width int) string {
	return fmt.Sprintf("%0*o", width, v)
}

func appendEntry(buf []byte, name string, data []byte) []byte {
	buf = append(buf, magic...)
	buf = append(buf, octal(0, 6)...)            // dev
	buf = append(buf, octal(1, 6)...)             // ino
	buf = append(buf, octal(0100644, 6)...)       // mode
	buf = append(buf, octal(0, 6)...)             // uid
	buf = append(buf, octal(0, 6)...)             // gid
	buf = append(buf, octal(1, 6)...)             // nlink
	buf = append(buf, octal(0, 6)...)             // rdev
	buf = append(buf, octal(0, 11)...)            // mtime
	buf = append(buf, octal(uint64(len(name)+1), 6)...)
	buf = append(buf, octal(uint64(len(data)), 11)...)
	buf = append(buf, name...)
	buf = append(buf, 0)
	buf = append(buf, data...)
	return buf
}

func appendTrailer(buf []byte) []byte {
	buf = append(buf, magic...)
	for i := 0; i < 7; i++ { // dev, ino, mode, uid, gid, nlink, rdev
		buf = append(buf, octal(0, 6)...)
	}
	buf = append(buf, octal(0, 11)...)
	buf = append(buf, octal(uint64(len(trailer)+1), 6)...)
	buf = append(buf, octal(0, 11)...)
	buf = append(buf, trailer...)
	buf = append(buf, 0)
	return buf
}

// feedChunks splits raw into pieces of at most size bytes and pushes them,
// in order, onto a workq.Result channel, simulating the ordered output of
// pbzx.Decode.
func feedChunks(raw []byte, size int) <-chan workq.Result[pbzx.Chunk] {
	ch := make(chan workq.Result[pbzx.Chunk], 4)
	go func() {
		defer close(ch)
		var idx uint64
		for len(raw) > 0 {
			n := size
			if n > len(raw) {
				n = len(raw)
			}
			ch <- workq.Result[pbzx.Chunk]{Idx: idx, Val: pbzx.Chunk{Bytes: raw[:n], Owned: false}}
			raw = raw[n:]
			idx++
		}
	}()
	return ch
}

func TestParseSingleEntry(t *testing.T) {
	var raw []byte
	raw = appendEntry(raw, "hello.txt", []byte("hello world"))
	raw = appendTrailer(raw)

	ch := feedChunks(raw, 4096)
	out := Parse(context.Background(), ch, 4)

	var files []File
	for r := range out {
		require.NoError(t, r.Err)
		files = append(files, r.File)
	}
	require.Len(t, files, 1)
	require.Equal(t, "hello.txt", files[0].Name)
	require.Equal(t, int64(11), files[0].Size)
	require.Equal(t, uint64(1), files[0].Ino)

	var got []byte
	for _, d := range files[0].Data {
		got = append(got, d...)
	}
	require.Equal(t, "hello world", string(got))
}

// TestParsePayloadSpansChunkBoundary covers scenario S3: a file payload
// split across several chunks must still be recovered, and every chunk it
// touches must appear in ChunkRefs.
func TestParsePayloadSpansChunkBoundary(t *testing.T) {
	payload := make([]byte, 200)
	for i := range payload {
		payload[i] = byte(i)
	}
	var raw []byte
	raw = appendEntry(raw, "big.bin", payload)
	raw = appendTrailer(raw)

	// force small chunks so the 200-byte payload straddles several of them
	ch := feedChunks(raw, 64)
	out := Parse(context.Background(), ch, 4)

	var files []File
	for r := range out {
		require.NoError(t, r.Err)
		files = append(files, r.File)
	}
	require.Len(t, files, 1)

	var got []byte
	for _, d := range files[0].Data {
		got = append(got, d...)
	}
	require.Equal(t, payload, got)
	require.Greater(t, len(files[0].ChunkRefs), 1)
}

func TestParseMultipleEntries(t *testing.T) {
	var raw []byte
	raw = appendEntry(raw, "a", []byte("AAA"))
	raw = appendEntry(raw, "b", []byte("BB"))
	raw = appendEntry(raw, "c", nil)
	raw = appendTrailer(raw)

	ch := feedChunks(raw, 37) // an awkward size relative to header boundaries
	out := Parse(context.Background(), ch, 4)

	var names []string
	for r := range out {
		require.NoError(t, r.Err)
		names = append(names, r.File.Name)
	}
	require.Equal(t, []string{"a", "b", "c"}, names)
}

func TestParseBadMagicIsMalformed(t *testing.T) {
	// long enough to fill a whole header, so the magic check is what fails
	raw := bytes.Repeat([]byte("not a cpio header at all, just junk data padding out "), 2)
	ch := feedChunks(raw, 16)
	out := Parse(context.Background(), ch, 4)

	r := <-out
	var malformed *xiperr.Malformed
	require.ErrorAs(t, r.Err, &malformed)
}
