package extract

// handle is a cloneable, awaitable completion token for one per-file task.
// It is realized as a channel that the owning task closes when done,
// regardless of whether the task's sink call succeeded — completion, not
// success, is what downstream dependents wait for (spec §4.5: per-file
// sink errors are swallowed, not propagated through the dependency DAG).
type handle chan struct{}

func newHandle() handle { return make(handle) }

func (h handle) done() { close(h) }

// wait blocks until h completes, or returns immediately if h is nil (used
// for the implicit root "." which has no directory-creation task).
func wait(h handle) {
	if h != nil {
		<-h
	}
}
