// Package sys provides methods to read system information
package sys

import (
	"bufio"
	"errors"
	"os"
	"runtime"
	"strconv"
	"strings"
)

const (
	rootProcess   = "/proc/1/cgroup"
	contCPULimit  = "/sys/fs/cgroup/cpu/cpu.cfs_quota_us"
	contCPUPeriod = "/sys/fs/cgroup/cpu/cpu.cfs_period_us"
)

// isContainerized returns true if the process is running inside a
// container (docker/lxc/k8s): see
// https://stackoverflow.com/questions/20010199
func isContainerized() bool {
	f, err := os.Open(rootProcess)
	if err != nil {
		return false
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if strings.Contains(line, "docker") || strings.Contains(line, "lxc") || strings.Contains(line, "kube") {
			return true
		}
	}
	return false
}

func readOneInt64(path string) (int64, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(strings.TrimSpace(string(b)), 10, 64)
}

// containerNumCPU returns an approximate number of CPUs allocated to the
// container via its cfs_quota_us/cfs_period_us cgroup files. An unlimited
// quota yields runtime.NumCPU(); an unreadable one is returned as an error
// (the package init then keeps runtime.NumCPU()).
func containerNumCPU() (int, error) {
	quota, err := readOneInt64(contCPULimit)
	if err != nil {
		return 0, err
	}
	if quota <= 0 {
		return runtime.NumCPU(), nil
	}
	period, err := readOneInt64(contCPUPeriod)
	if err != nil {
		return 0, err
	}
	if period == 0 {
		return 0, errors.New("sys: failed to read container CPU period")
	}
	approx := (uint64(quota) + uint64(period) - 1) / uint64(period)
	if approx < 1 {
		approx = 1
	}
	return int(approx), nil
}
