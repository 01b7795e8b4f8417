package sink

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xcodereleases/unxip/cpio"
)

func TestDefaultCreateFileMultiSliceOrder(t *testing.T) {
	root := t.TempDir()
	s := NewDefault(root)

	f := &cpio.File{
		Name: "out.bin",
		Mode: 0o100644,
		Size: 6,
		Data: [][]byte{[]byte("abc"), []byte("def")},
	}
	require.NoError(t, s.CreateFile(f))

	got, err := os.ReadFile(filepath.Join(root, "out.bin"))
	require.NoError(t, err)
	require.Equal(t, "abcdef", string(got))
}

func TestDefaultHardlinkAndSymlink(t *testing.T) {
	root := t.TempDir()
	s := NewDefault(root)

	orig := &cpio.File{Name: "orig.txt", Mode: 0o100644, Data: [][]byte{[]byte("hi")}, Size: 2}
	require.NoError(t, s.CreateFile(orig))

	link := &cpio.File{Name: "alias.txt", Mode: 0o100644}
	require.NoError(t, s.Hardlink("orig.txt", link))

	fi1, err := os.Stat(filepath.Join(root, "orig.txt"))
	require.NoError(t, err)
	fi2, err := os.Stat(filepath.Join(root, "alias.txt"))
	require.NoError(t, err)
	require.True(t, os.SameFile(fi1, fi2))

	sym := &cpio.File{Name: "link", Mode: 0o120777}
	require.NoError(t, s.Symlink("orig.txt", sym))
	target, err := os.Readlink(filepath.Join(root, "link"))
	require.NoError(t, err)
	require.Equal(t, "orig.txt", target)
}

func TestDryRunTouchesNothing(t *testing.T) {
	var d DryRun
	f := &cpio.File{Name: "anything"}
	require.NoError(t, d.CreateDirectory(f))
	require.NoError(t, d.CreateFile(f))
	require.NoError(t, d.Hardlink("x", f))
	require.NoError(t, d.Symlink("x", f))
	require.NoError(t, d.Chmod(f, 0o644))
	_, err := os.Lstat(f.Name)
	require.True(t, os.IsNotExist(err))
}
