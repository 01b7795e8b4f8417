package pbzx

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz/lzma"
)

func lzmaCompress(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := lzma.NewWriter(&buf)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return append([]byte(lzmaMagic), buf.Bytes()...)
}

func appendRecord(buf *bytes.Buffer, decSize uint64, payload []byte) {
	var hdr [16]byte
	binary.BigEndian.PutUint64(hdr[0:8], decSize)
	binary.BigEndian.PutUint64(hdr[8:16], uint64(len(payload)))
	buf.Write(hdr[:])
	buf.Write(payload)
}

func buildPBZX(t *testing.T, flags uint64, stored []byte, compressed []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("pbzx")
	var fb [8]byte
	binary.BigEndian.PutUint64(fb[:], flags)
	buf.Write(fb[:])

	// full-sized stored chunk
	appendRecord(&buf, flags, stored)
	// short, compressed final chunk
	lz := lzmaCompress(t, compressed)
	appendRecord(&buf, uint64(len(compressed)), lz)
	return buf.Bytes()
}

func TestDecodeOrdersStoredAndCompressedChunks(t *testing.T) {
	flags := uint64(64)
	stored := bytes.Repeat([]byte{0xAB}, int(flags))
	compressed := []byte("hello from a compressed chunk")

	data := buildPBZX(t, flags, stored, compressed)

	q, err := Decode(context.Background(), data, 2)
	require.NoError(t, err)

	var chunks []Chunk
	for r := range q.Results() {
		require.NoError(t, r.Err)
		chunks = append(chunks, r.Val)
	}
	require.Len(t, chunks, 2)

	require.False(t, chunks[0].Owned)
	require.Equal(t, stored, chunks[0].Bytes)

	require.True(t, chunks[1].Owned)
	require.Equal(t, compressed, chunks[1].Bytes)
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	q, err := Decode(context.Background(), []byte("nope"), 2)
	require.NoError(t, err)
	r := <-q.Results()
	require.Error(t, r.Err)
}
