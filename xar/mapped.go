// Package xar parses the outer XAR container of a .xip archive: it owns
// the memory-mapped archive bytes (C1, Mapped Input) and locates the PBZX
// payload inside the XAR table of contents (C2, TOC Locator).
package xar

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Mapped is a read-only, zero-copy view of an entire archive file. Every
// Chunk, File, and byte-slice produced downstream that is not independently
// allocated (PBZX chunks stored uncompressed) is a sub-slice of Bytes, so
// Mapped must outlive the whole extraction.
type Mapped struct {
	Bytes []byte
	f     *os.File
}

// Open memory-maps path for the lifetime of the returned Mapped. Close
// unmaps it; callers must ensure nothing still references Bytes at that
// point (see Chunk.Owned in package pbzx for which slices are independent
// copies and safe to outlive the mapping... all others are not).
func Open(path string) (*Mapped, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	size := fi.Size()
	if size == 0 {
		f.Close()
		return nil, fmt.Errorf("xar: %s is empty", path)
	}
	b, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("xar: mmap %s: %w", path, err)
	}
	return &Mapped{Bytes: b, f: f}, nil
}

func (m *Mapped) Close() error {
	err := unix.Munmap(m.Bytes)
	if cerr := m.f.Close(); err == nil {
		err = cerr
	}
	return err
}
