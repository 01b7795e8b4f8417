// Package mono provides a monotonic clock reading for log timestamping.
package mono

import "time"

// base anchors NanoTime; time.Since reads the monotonic clock reading that
// time.Now records.
var base = time.Now()

// NanoTime returns a monotonic nanosecond timestamp, suitable only for
// measuring elapsed durations (not wall-clock time).
func NanoTime() int64 {
	return int64(time.Since(base))
}
