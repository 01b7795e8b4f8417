package sink

import (
	"net"
	"os"
	"path/filepath"

	"github.com/xcodereleases/unxip/cpio"
)

// Default is the plain-POSIX reference sink: every CPIO entry is
// materialized exactly as its mode and payload describe, with no
// compression.
type Default struct {
	Root string
}

func NewDefault(root string) *Default { return &Default{Root: root} }

func (s *Default) path(name string) string { return filepath.Join(s.Root, name) }

func (s *Default) CreateDirectory(f *cpio.File) error {
	return os.Mkdir(s.path(f.Name), os.FileMode(f.Mode&0o777))
}

func (s *Default) CreateFile(f *cpio.File) error {
	mode := os.FileMode(f.Mode & 0o777)
	if f.Mode&0o1000 != 0 {
		mode |= os.ModeSticky // os.FileMode carries S_ISVTX as ModeSticky, not 0o1000
	}
	out, err := os.OpenFile(s.path(f.Name), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()
	if len(f.Data) == 1 {
		_, err = out.Write(f.Data[0])
		return err
	}
	// net.Buffers implements writev when its WriteTo target supports it,
	// preserving data's slice order (spec §5) without a concatenating copy.
	bufs := net.Buffers(f.Data)
	_, err = bufs.WriteTo(out)
	return err
}

func (s *Default) Hardlink(originalName string, f *cpio.File) error {
	return os.Link(s.path(originalName), s.path(f.Name))
}

func (s *Default) Symlink(target string, f *cpio.File) error {
	return os.Symlink(target, s.path(f.Name))
}

func (s *Default) Chmod(f *cpio.File, mode os.FileMode) error {
	return os.Chmod(s.path(f.Name), mode)
}
