// Package xiptest builds synthetic .xip archives in memory for tests: a
// CPIO entry list, wrapped in PBZX chunk framing, wrapped in a XAR
// container — the same three layers package xar, pbzx, and cpio each
// parse one of. No real Xcode .xip sample ships with this repo, so
// integration-level tests construct their own fixtures instead.
//
// Adapted from aistore's tools/tarch, which built tar/zip fixtures the
// same way (random names, a FileSpec-like record, one writer call per
// entry) for its own archive-format tests.
package xiptest

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"math/rand"

	"github.com/ulikunitz/xz/lzma"
)

// FileSpec describes one CPIO entry to embed in a fixture archive.
type FileSpec struct {
	Name string
	Mode uint32
	Dev  uint64
	Ino  uint64
	Data []byte
}

func octal(v uint64, width int) string { return fmt.Sprintf("%0*o", width, v) }

// BuildCPIO serializes specs into an odc CPIO byte stream terminated by
// the TRAILER!!! entry, mirroring the field layout package cpio parses.
func BuildCPIO(specs []FileSpec) []byte {
	var buf bytes.Buffer
	for _, s := range specs {
		writeEntry(&buf, s.Dev, s.Ino, s.Mode, s.Name, s.Data)
	}
	writeEntry(&buf, 0, 0, 0, "TRAILER!!!", nil)
	return buf.Bytes()
}

func writeEntry(buf *bytes.Buffer, dev, ino uint64, mode uint32, name string, data []byte) {
	buf.WriteString("070707")
	buf.WriteString(octal(dev, 6))
	buf.WriteString(octal(ino, 6))
	buf.WriteString(octal(uint64(mode), 6))
	buf.WriteString(octal(0, 6))  // uid
	buf.WriteString(octal(0, 6))  // gid
	buf.WriteString(octal(1, 6))  // nlink
	buf.WriteString(octal(0, 6))  // rdev
	buf.WriteString(octal(0, 11)) // mtime
	buf.WriteString(octal(uint64(len(name)+1), 6))
	buf.WriteString(octal(uint64(len(data)), 11))
	buf.WriteString(name)
	buf.WriteByte(0)
	buf.Write(data)
}

// BuildPBZX wraps cpioStream in PBZX chunk framing, splitting it into
// chunkSize chunks. When compress is true every full-size chunk is
// LZMA-encoded (the realistic case); otherwise full-size chunks are stored
// raw. The final, short chunk is always LZMA-encoded: package pbzx treats a
// record as stored only when its compressed size equals chunkSize, which a
// short raw chunk cannot satisfy.
func BuildPBZX(cpioStream []byte, chunkSize int, compress bool) []byte {
	var buf bytes.Buffer
	buf.WriteString("pbzx")
	var fb [8]byte
	binary.BigEndian.PutUint64(fb[:], uint64(chunkSize))
	buf.Write(fb[:])

	for len(cpioStream) > 0 {
		n := chunkSize
		if n > len(cpioStream) {
			n = len(cpioStream)
		}
		chunk := cpioStream[:n]
		cpioStream = cpioStream[n:]

		full := n == chunkSize
		var payload []byte
		cmpSize := uint64(n)
		if !full || compress {
			payload = lzmaFrame(chunk)
			cmpSize = uint64(len(payload))
		} else {
			payload = chunk
		}

		var hdr [16]byte
		binary.BigEndian.PutUint64(hdr[0:8], uint64(n))
		binary.BigEndian.PutUint64(hdr[8:16], cmpSize)
		buf.Write(hdr[:])
		buf.Write(payload)
	}
	return buf.Bytes()
}

func lzmaFrame(block []byte) []byte {
	var out bytes.Buffer
	out.WriteString("\xfd7zX")
	w, err := lzma.NewWriter(&out)
	if err != nil {
		panic(err) // fixture construction only; a broken encoder means a broken test
	}
	if _, err := w.Write(block); err != nil {
		panic(err)
	}
	if err := w.Close(); err != nil {
		panic(err)
	}
	return out.Bytes()
}

// BuildXAR wraps a PBZX byte stream in a minimal XAR container whose TOC
// names the single Content entry, matching what package xar's LocatePBZX
// expects.
func BuildXAR(pbzxStream []byte) []byte {
	tocXML := fmt.Sprintf(`<?xml version="1.0"?><xar><toc><file><name>Content</name><data><offset>0</offset><length>%d</length></data></file></toc></xar>`, len(pbzxStream))

	var tocBuf bytes.Buffer
	zw := zlib.NewWriter(&tocBuf)
	zw.Write([]byte(tocXML))
	zw.Close()

	var out bytes.Buffer
	out.WriteString("xar!")
	var hdr [24]byte
	binary.BigEndian.PutUint16(hdr[0:2], 28) // header_size
	binary.BigEndian.PutUint16(hdr[2:4], 1)  // version
	binary.BigEndian.PutUint64(hdr[4:12], uint64(tocBuf.Len()))
	binary.BigEndian.PutUint64(hdr[12:20], uint64(len(tocXML)))
	// checksum (ignored by the reader) left zero
	out.Write(hdr[:])
	out.Write(tocBuf.Bytes())
	out.Write(pbzxStream)
	return out.Bytes()
}

// BuildXip is the convenience entry point: CPIO specs straight to a
// complete in-memory XAR byte slice.
func BuildXip(specs []FileSpec, chunkSize int, compress bool) []byte {
	return BuildXAR(BuildPBZX(BuildCPIO(specs), chunkSize, compress))
}

// RandomBytes returns n pseudo-random bytes, useful for building
// fixtures whose compressibility (or lack of it) matters to a test.
func RandomBytes(rng *rand.Rand, n int) []byte {
	b := make([]byte, n)
	rng.Read(b)
	return b
}
