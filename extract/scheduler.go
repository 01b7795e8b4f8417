// Package extract implements the per-file dependency scheduler (C6): it
// consumes the ordered File stream from package cpio and dispatches
// create/link/symlink work to a sink.Sink through an unordered workq.Queue,
// respecting the happens-before relation CPIO ordering already gives us
// for free (parent directories precede their contents; hardlink origins
// precede their aliases).
package extract

import (
	"context"
	"os"
	"path"
	"strings"

	"github.com/xcodereleases/unxip/cpio"
	"github.com/xcodereleases/unxip/sink"
	"github.com/xcodereleases/unxip/workq"
	"github.com/xcodereleases/unxip/xiperr"
)

// POSIX mode bits the CPIO header encodes. Not worth importing a
// platform-specific syscall package for four well-known constants.
const (
	modeFmt  = 0o170000
	modeDir  = 0o040000
	modeReg  = 0o100000
	modeLnk  = 0o120000
	modeVTX  = 0o001000
	modePerm = 0o007777
)

// ErrHandler receives a per-file sink failure (operation name, file name,
// error). It never stops extraction — see spec §7's swallow policy. The
// CLI wires this to a verbose-mode stderr logger.
type ErrHandler func(op, name string, err error)

// Batch is the unordered work-pool size the scheduler submits to, matching
// the source's 64 (spec §4.5).
const Batch = 64

// Scheduler drives sink calls for an ordered stream of cpio.Files. DirTask
// and LinkOrigin are single-writer: only the goroutine calling Run mutates
// them, so no lock is needed (spec §3, §5).
type Scheduler struct {
	sink    sink.Sink
	onErr   ErrHandler
	dirTask map[string]handle
	// linkOrigin maps a CPIO (dev,ino) identity to its first-seen name and
	// that entry's completion handle, so later entries sharing the
	// identity become hardlinks (spec §4.5 step 4).
	linkOrigin map[cpio.Identifier]struct {
		name string
		h    handle
	}
}

func NewScheduler(s sink.Sink, onErr ErrHandler) *Scheduler {
	if onErr == nil {
		onErr = func(string, string, error) {}
	}
	return &Scheduler{
		sink:    s,
		onErr:   onErr,
		dirTask: make(map[string]handle),
		linkOrigin: make(map[cpio.Identifier]struct {
			name string
			h    handle
		}),
	}
}

// Run consumes files in arrival order, submitting one task per entry to an
// unordered, batch-size-Batch workq.Queue, then drains the pool before
// returning. ctx cancellation aborts remaining dispatch (spec §5:
// cancellation drops all streams) but does not retroactively undo
// already-submitted tasks.
func (s *Scheduler) Run(ctx context.Context, files <-chan cpio.Result) error {
	q := workq.New[struct{}](ctx, Batch, false)

	var fatal error
	for r := range files {
		if r.Err != nil {
			fatal = r.Err
			break
		}
		if err := s.dispatch(q, r.File); err != nil {
			fatal = err
			break
		}
	}
	q.Close()
	for res := range q.Results() {
		if res.Err != nil && fatal == nil {
			fatal = res.Err
		}
	}
	return fatal
}

func (s *Scheduler) dispatch(q *workq.Queue[struct{}], f cpio.File) error {
	if f.Name == "." {
		return nil
	}
	parent := parentOf(f.Name)
	parentTask, ok := s.dirTask[parent]
	if !ok && parent != "." {
		return xiperr.Malformedf("cpio", "entry %q has no prior directory entry for parent %q", f.Name, parent)
	}

	id := f.Identifier()
	if origin, isLink := s.linkOrigin[id]; isLink {
		originName, originTask := origin.name, origin.h
		q.Submit(func() (struct{}, error) {
			wait(originTask)
			wait(parentTask)
			if err := s.sink.Hardlink(originName, &f); err != nil {
				s.onErr("hardlink", f.Name, err)
			}
			return struct{}{}, nil
		})
		return nil
	}

	switch f.Mode & modeFmt {
	case modeLnk:
		q.Submit(func() (struct{}, error) {
			wait(parentTask)
			target := string(concatData(f))
			if err := s.sink.Symlink(target, &f); err != nil {
				s.onErr("symlink", f.Name, err)
				return struct{}{}, nil
			}
			if f.Mode&modeVTX != 0 {
				// os.FileMode carries the sticky bit as os.ModeSticky, not 0o1000
				if err := s.sink.Chmod(&f, os.FileMode(f.Mode&0o777)|os.ModeSticky); err != nil {
					s.onErr("chmod", f.Name, err)
				}
			}
			return struct{}{}, nil
		})

	case modeDir:
		h := newHandle()
		s.dirTask[f.Name] = h
		q.Submit(func() (struct{}, error) {
			defer h.done()
			wait(parentTask)
			if err := s.sink.CreateDirectory(&f); err != nil {
				s.onErr("mkdir", f.Name, err)
				return struct{}{}, nil
			}
			if f.Mode&modeVTX != 0 {
				if err := s.sink.Chmod(&f, os.FileMode(f.Mode&0o777)|os.ModeSticky); err != nil {
					s.onErr("chmod", f.Name, err)
				}
			}
			return struct{}{}, nil
		})

	case modeReg:
		h := newHandle()
		s.linkOrigin[id] = struct {
			name string
			h    handle
		}{name: f.Name, h: h}
		q.Submit(func() (struct{}, error) {
			defer h.done()
			wait(parentTask)
			if err := s.sink.CreateFile(&f); err != nil {
				s.onErr("create", f.Name, err)
			}
			return struct{}{}, nil
		})

	default:
		return xiperr.Malformedf("cpio", "entry %q has unsupported mode %#o", f.Name, f.Mode)
	}
	return nil
}

func parentOf(name string) string {
	name = strings.TrimSuffix(name, "/")
	dir := path.Dir(name)
	if dir == "." || dir == "/" {
		return "."
	}
	return dir
}

func concatData(f cpio.File) []byte {
	if len(f.Data) == 1 {
		return f.Data[0]
	}
	out := make([]byte, 0, f.Size)
	for _, d := range f.Data {
		out = append(out, d...)
	}
	return out
}
