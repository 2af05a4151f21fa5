// Package reporter prints verbose per-job progress lines to stderr
// when -v/--verbose is set. It is grounded on internal/scanner/progress.go's
// Log method, simplified from a channel-fanned-out broadcaster to a
// single mutex-guarded writer since job progress has exactly one
// consumer (the terminal), not many subscribers.
package reporter

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Reporter serializes progress lines from multiple worker goroutines
// onto a single writer.
type Reporter struct {
	mu sync.Mutex
	w  io.Writer
}

// New creates a Reporter writing to w (typically os.Stderr).
func New(w io.Writer) *Reporter {
	return &Reporter{w: w}
}

// Start announces a job beginning execution.
func (r *Reporter) Start(jobID, slot int, command string) {
	r.println(fmt.Sprintf("[job %d] slot %d: %s", jobID, slot, command))
}

// Done announces a job's completion, its duration, and its exit code.
func (r *Reporter) Done(jobID, slot int, elapsed time.Duration, exitCode int) {
	r.println(fmt.Sprintf("[job %d] slot %d: exit %d (%s)", jobID, slot, exitCode, elapsed.Round(time.Millisecond)))
}

// DryRun announces a job that was expanded but not run.
func (r *Reporter) DryRun(jobID, slot int, command string) {
	r.println(fmt.Sprintf("[job %d] slot %d: dry-run: %s", jobID, slot, command))
}

func (r *Reporter) println(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.w, line)
}
