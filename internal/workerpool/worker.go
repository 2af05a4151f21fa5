package workerpool

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/mmenanno/gopar/internal/command"
	"github.com/mmenanno/gopar/internal/output"
	"github.com/mmenanno/gopar/internal/shellutil"
	"github.com/mmenanno/gopar/internal/token"
)

// worker pulls jobs from the pool's shared iterator until it is
// exhausted. Its slot id is fixed for its whole lifetime, which is
// sufficient to guarantee two concurrent jobs never share a slot:
// each worker only ever runs one job at a time.
type worker struct {
	pool *Pool
	slot int
}

func (w *worker) run() {
	for {
		record, jobID, _, ok := w.pool.iterator.Next()
		if !ok {
			return
		}
		if w.pool.limiter != nil && !w.pool.cfg.DryRun {
			// Global pacing: every job start, across every worker,
			// waits on the same limiter.
			w.pool.limiter.Wait(context.Background())
		}
		w.runJob(record, jobID)
	}
}

func (w *worker) runJob(record string, jobID int) {
	raw, argv := w.expand(record, jobID)

	if w.pool.cfg.DryRun {
		w.pool.events <- output.StartEvent(jobID)
		w.pool.events <- output.StdoutEvent(jobID, []byte(raw+"\n"))
		w.pool.events <- output.CompletedEvent(jobID)
		if w.pool.reporter != nil {
			w.pool.reporter.DryRun(jobID, w.slot, raw)
		}
		return
	}

	if len(argv) == 0 {
		w.pool.events <- output.FailedEvent(jobID, fmt.Sprintf("gopar: job %d: empty command\n", jobID))
		return
	}

	useShell := w.pool.cfg.ForceShell || shellutil.Required(raw)

	var jobCtx context.Context
	var cancel context.CancelFunc
	if w.pool.cfg.Timeout > 0 {
		jobCtx, cancel = context.WithTimeout(context.Background(), w.pool.cfg.Timeout)
	} else {
		jobCtx, cancel = context.Background(), func() {}
	}
	defer cancel()

	var cmd *exec.Cmd
	if useShell {
		cmd = exec.CommandContext(jobCtx, shellutil.Shell(), "-c", raw)
	} else {
		cmd = exec.CommandContext(jobCtx, argv[0], argv[1:]...)
	}
	if w.pool.cfg.Pipe {
		cmd.Stdin = strings.NewReader(record + "\n")
	}

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		w.pool.events <- output.FailedEvent(jobID, fmt.Sprintf("gopar: job %d: %v\n", jobID, err))
		return
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		w.pool.events <- output.FailedEvent(jobID, fmt.Sprintf("gopar: job %d: %v\n", jobID, err))
		return
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		w.pool.events <- output.FailedEvent(jobID, fmt.Sprintf("gopar: job %d: spawn: %v\n", jobID, err))
		return
	}

	w.pool.events <- output.StartEvent(jobID)
	if w.pool.reporter != nil {
		w.pool.reporter.Start(jobID, w.slot, raw)
	}

	var drainWG sync.WaitGroup
	drainWG.Add(2)
	go w.drain(stdoutPipe, jobID, false, &drainWG)
	go w.drain(stderrPipe, jobID, true, &drainWG)
	drainWG.Wait()

	waitErr := cmd.Wait()
	exitCode := exitCodeOf(waitErr)

	if w.pool.jobLog != nil {
		if err := w.pool.jobLog.Record(jobID, w.slot, raw, exitCode, start, time.Now()); err != nil {
			w.pool.events <- output.StderrEvent(jobID, []byte(fmt.Sprintf("gopar: job %d: joblog: %v\n", jobID, err)))
		}
	}

	w.pool.events <- output.CompletedEvent(jobID)

	if w.pool.reporter != nil {
		w.pool.reporter.Done(jobID, w.slot, time.Since(start), exitCode)
	}
}

// expand builds the argv for a job: when inputs are themselves the
// commands to run, the record is split on whitespace as-is; otherwise
// the template is expanded against the record, slot, and job id. In
// pipe mode, a template with no substitution token receives the input
// only via stdin, not as a trailing argument -- so it is expanded
// against an empty input here.
func (w *worker) expand(record string, jobID int) (raw string, argv []string) {
	if w.pool.cfg.InputsAreCommands {
		return record, strings.Fields(record)
	}
	substitutionInput := record
	if w.pool.cfg.Pipe && !token.HasSubstitution(w.pool.cfg.Template) {
		substitutionInput = ""
	}
	built := command.Build(w.pool.cfg.Template, substitutionInput, w.slot, jobID)
	return built.Raw, built.Argv
}

// drain copies chunks from a child's pipe to the serializer's event
// channel until EOF (including an EOF forced by the timeout's kill).
func (w *worker) drain(r io.Reader, jobID int, stderr bool, wg *sync.WaitGroup) {
	defer wg.Done()
	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if stderr {
				w.pool.events <- output.StderrEvent(jobID, chunk)
			} else {
				w.pool.events <- output.StdoutEvent(jobID, chunk)
			}
		}
		if err != nil {
			return
		}
	}
}

func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return -1
}
