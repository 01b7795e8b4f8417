//go:build !linux

package sys

import "errors"

// cgroup CPU quotas are a Linux-only concept; on macOS (the common host for
// extracting Xcode .xip archives) and other platforms we just report the
// host CPU count.
func isContainerized() bool { return false }

func containerNumCPU() (int, error) {
	return 0, errors.New("sys: container CPU detection not supported on this platform")
}
