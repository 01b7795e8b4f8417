// Package sys reads host/container CPU information used to size unxip's
// worker pools (the ordered work queue's default batch size).
package sys

import (
	"os"
	"runtime"

	"github.com/xcodereleases/unxip/cmn/nlog"
)

const maxProcsEnvVar = "GOMAXPROCS"

var (
	contCPUs      int
	containerized bool
)

func init() {
	contCPUs = runtime.NumCPU()
	if containerized = isContainerized(); containerized {
		if c, err := containerNumCPU(); err == nil {
			contCPUs = c
		} else {
			nlog.Errorln(err)
		}
	}
}

func Containerized() bool { return containerized }

// NumCPU returns the number of CPUs available to this process: the
// container's cgroup quota when running containerized, else
// runtime.NumCPU(). This is the default batch size for the ordered work
// queue (§4.2).
func NumCPU() int { return contCPUs }

// SetMaxProcs sets GOMAXPROCS = NumCPU unless already overridden via the Go
// runtime environment.
func SetMaxProcs() {
	if val, exists := os.LookupEnv(maxProcsEnvVar); exists {
		nlog.Warningf("GOMAXPROCS is set via Go environment %q: %q", maxProcsEnvVar, val)
		return
	}
	maxprocs := runtime.GOMAXPROCS(0)
	ncpu := NumCPU()
	if maxprocs > ncpu {
		nlog.Warningf("reducing GOMAXPROCS (%d) to %d (num CPUs)", maxprocs, ncpu)
		runtime.GOMAXPROCS(ncpu)
	}
}
