package extract

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xcodereleases/unxip/cpio"
)

// recordingSink logs every call (in completion order, guarded by a mutex)
// so tests can assert happens-before relationships without touching disk.
type recordingSink struct {
	mu    sync.Mutex
	calls []string
}

func (s *recordingSink) log(format string, a ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, fmt.Sprintf(format, a...))
}

func (s *recordingSink) CreateDirectory(f *cpio.File) error {
	s.log("mkdir %s", f.Name)
	return nil
}
func (s *recordingSink) CreateFile(f *cpio.File) error {
	s.log("create %s", f.Name)
	return nil
}
func (s *recordingSink) Hardlink(orig string, f *cpio.File) error {
	s.log("hardlink %s<-%s", orig, f.Name)
	return nil
}
func (s *recordingSink) Symlink(target string, f *cpio.File) error {
	s.log("symlink %s->%s", f.Name, target)
	return nil
}
func (s *recordingSink) Chmod(f *cpio.File, mode os.FileMode) error {
	s.log("chmod %s %o", f.Name, mode)
	return nil
}

func feedResults(files []cpio.File) <-chan cpio.Result {
	ch := make(chan cpio.Result, len(files))
	for _, f := range files {
		ch <- cpio.Result{File: f}
	}
	close(ch)
	return ch
}

func indexOf(calls []string, substr string) int {
	for i, c := range calls {
		if strings.Contains(c, substr) {
			return i
		}
	}
	return -1
}

// TestHardlinkAwaitsOriginal covers scenario S4: a hardlink entry arriving
// after several unrelated siblings must still observably wait for its
// origin's create_file call.
func TestHardlinkAwaitsOriginal(t *testing.T) {
	files := []cpio.File{
		{Name: ".", Mode: modeDir},
		{Name: "a", Mode: modeDir},
		{Name: "a/file", Mode: modeReg, Dev: 1, Ino: 7},
		{Name: "a/x", Mode: modeReg, Dev: 1, Ino: 20},
		{Name: "a/y", Mode: modeReg, Dev: 1, Ino: 21},
		{Name: "a/link", Mode: modeReg, Dev: 1, Ino: 7},
	}
	s := &recordingSink{}
	sch := NewScheduler(s, nil)
	err := sch.Run(context.Background(), feedResults(files))
	require.NoError(t, err)

	createIdx := indexOf(s.calls, "create a/file")
	linkIdx := indexOf(s.calls, "hardlink a/file<-a/link")
	require.GreaterOrEqual(t, createIdx, 0)
	require.GreaterOrEqual(t, linkIdx, 0)
	require.Less(t, createIdx, linkIdx)
}

// TestStickySymlinkChmodsAfterSymlink covers scenario S5.
func TestStickySymlinkChmodsAfterSymlink(t *testing.T) {
	files := []cpio.File{
		{Name: ".", Mode: modeDir},
		{Name: "link", Mode: modeLnk | modeVTX | 0o777, Data: [][]byte{[]byte("target")}, Size: 6},
	}
	s := &recordingSink{}
	sch := NewScheduler(s, nil)
	err := sch.Run(context.Background(), feedResults(files))
	require.NoError(t, err)

	symIdx := indexOf(s.calls, "symlink link->target")
	chmodIdx := indexOf(s.calls, "chmod link")
	require.GreaterOrEqual(t, symIdx, 0)
	require.GreaterOrEqual(t, chmodIdx, 0)
	require.Less(t, symIdx, chmodIdx)
}

func TestDirectoryPrecedesChildren(t *testing.T) {
	files := []cpio.File{
		{Name: ".", Mode: modeDir},
		{Name: "dir", Mode: modeDir},
		{Name: "dir/file", Mode: modeReg, Dev: 2, Ino: 99},
	}
	s := &recordingSink{}
	sch := NewScheduler(s, nil)
	err := sch.Run(context.Background(), feedResults(files))
	require.NoError(t, err)

	mkdirIdx := indexOf(s.calls, "mkdir dir")
	createIdx := indexOf(s.calls, "create dir/file")
	require.GreaterOrEqual(t, mkdirIdx, 0)
	require.GreaterOrEqual(t, createIdx, 0)
	require.Less(t, mkdirIdx, createIdx)
}

func TestUnknownParentIsFatal(t *testing.T) {
	files := []cpio.File{
		{Name: "orphan/file", Mode: modeReg},
	}
	s := &recordingSink{}
	sch := NewScheduler(s, nil)
	err := sch.Run(context.Background(), feedResults(files))
	require.Error(t, err)
}
