// Package xiperr defines the error taxonomy shared by unxip's pipeline
// stages (see spec §7): malformed input, decode failure, and the
// cooperative-cancellation sentinel. IOError is not a distinct type here —
// syscall failures surface as the *os.PathError / *os.SyscallError the
// standard library already produces, which callers test with errors.Is.
package xiperr

import "fmt"

// Malformed reports that the archive's framing (XAR header, TOC XML, PBZX
// record, CPIO header) violates the format's invariants. Always fatal.
type Malformed struct {
	Stage string
	Msg   string
}

func (e *Malformed) Error() string { return fmt.Sprintf("malformed %s: %s", e.Stage, e.Msg) }

func Malformedf(stage, format string, a ...any) *Malformed {
	return &Malformed{Stage: stage, Msg: fmt.Sprintf(format, a...)}
}

// Decode reports that a compression codec (zlib, LZMA, LZFSE) rejected its
// input or produced an unexpected output length. Always fatal when it
// originates from C2/C4/C5; C8's LZFSE encode instead treats codec failure
// as a "don't compress" signal, not an error (see decmpfs).
type Decode struct {
	Codec string
	Msg   string
}

func (e *Decode) Error() string { return fmt.Sprintf("%s decode: %s", e.Codec, e.Msg) }

func Decodef(codec, format string, a ...any) *Decode {
	return &Decode{Codec: codec, Msg: fmt.Sprintf(format, a...)}
}

// ErrCancelled is observed by long-running tasks at their suspension
// points once the driver context is cancelled.
var ErrCancelled = fmt.Errorf("cancelled")
