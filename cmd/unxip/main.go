// Package main is the unxip command-line driver: it wires the mapped
// archive, the TOC locator, the PBZX decoder, the CPIO parser, and the
// extraction scheduler into one pipeline (spec §2's C1→C2→C4→C5→C6→C7
// data flow, with C8 invoked by the Compressed sink).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/xcodereleases/unxip/cmn/cos"
	"github.com/xcodereleases/unxip/cmn/nlog"
	"github.com/xcodereleases/unxip/cpio"
	"github.com/xcodereleases/unxip/decmpfs"
	"github.com/xcodereleases/unxip/extract"
	"github.com/xcodereleases/unxip/pbzx"
	"github.com/xcodereleases/unxip/sink"
	"github.com/xcodereleases/unxip/sys"
	"github.com/xcodereleases/unxip/xar"
)

var (
	noCompress bool
	dryRun     bool
	showJSON   bool
)

func init() {
	flag.BoolVar(&noCompress, "c", false, "disable decmpfs compression of extracted files")
	flag.BoolVar(&dryRun, "n", false, "dry run: parse and schedule but touch no files")
	flag.BoolVar(&showJSON, "json", false, "print the run summary as JSON")
	nlog.InitFlags(flag.CommandLine) // registers -v; per-file diagnostics use nlog.Verbose()
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: unxip [-c] [-n] [-v] [-json] <input.xip> [output-dir]")
	flag.PrintDefaults()
}

type summary struct {
	Input    string `json:"input"`
	Output   string `json:"output"`
	Files    int64  `json:"files"`
	Errors   int64  `json:"errors"`
	Duration string `json:"duration"`
}

func main() {
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	input := flag.Arg(0)
	output := "."
	if flag.NArg() >= 2 {
		output = flag.Arg(1)
	}

	installSignalHandler()
	defer nlog.Flush()
	sys.SetMaxProcs()

	start := time.Now()
	errCount, fileCount, err := run(input, output)
	if err != nil {
		cos.Exitf("%s: %v", input, err)
	}

	sum := summary{
		Input:    input,
		Output:   output,
		Files:    fileCount,
		Errors:   errCount,
		Duration: time.Since(start).String(),
	}
	if showJSON {
		b, _ := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(sum)
		fmt.Println(string(b))
	} else {
		nlog.Infof("extracted %d files (%d errors) in %s", sum.Files, sum.Errors, sum.Duration)
	}
}

func run(input, output string) (errCount, fileCount int64, err error) {
	m, err := xar.Open(input)
	if err != nil {
		return 0, 0, err
	}
	defer m.Close()

	rng, err := xar.LocatePBZX(m)
	if err != nil {
		return 0, 0, err
	}
	content := m.Bytes[rng.Offset : rng.Offset+rng.Length]

	batch := sys.NumCPU()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chunks, err := pbzx.Decode(ctx, content, batch)
	if err != nil {
		return 0, 0, err
	}
	files := cpio.Parse(ctx, chunks.Results(), batch)

	if !dryRun {
		if err := os.MkdirAll(output, 0o755); err != nil {
			return 0, 0, err
		}
	}

	var s sink.Sink
	switch {
	case dryRun:
		s = sink.DryRun{}
	case noCompress:
		s = sink.NewDefault(output)
	default:
		s = decmpfs.NewCompressed(output, ctx, batch)
	}

	// extract.Scheduler dispatches to a bounded-parallel workq.Queue, so
	// onErr and countingSink are invoked from many worker goroutines at
	// once: both counters need to be atomic, not plain int64.
	var errs, n atomic.Int64
	onErr := func(op, name string, ferr error) {
		errs.Add(1)
		if nlog.Verbose() {
			nlog.Warningf("%s %s: %v", op, name, ferr)
		}
	}
	counted := countingSink{Sink: s, n: &n}

	sched := extract.NewScheduler(counted, onErr)
	runErr := sched.Run(ctx, files)
	return errs.Load(), n.Load(), runErr
}

// countingSink tallies successful create_file calls for the summary
// output; it does not affect sink semantics.
type countingSink struct {
	sink.Sink
	n *atomic.Int64
}

func (c countingSink) CreateFile(f *cpio.File) error {
	err := c.Sink.CreateFile(f)
	if err == nil {
		c.n.Add(1)
	}
	return err
}

func installSignalHandler() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ch
		nlog.Flush()
		os.Exit(130)
	}()
}
