// Package workerpool runs a fixed-size pool of workers that share a
// single input iterator, build and spawn child processes per job, and
// enforce per-job timeouts and global inter-job delay pacing.
//
// There is no external cancel signal: a run always proceeds to
// end-of-stream on the shared iterator, so the pool's lifecycle is
// just a sync.WaitGroup over its worker goroutines.
package workerpool

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/mmenanno/gopar/internal/inputsrc"
	"github.com/mmenanno/gopar/internal/joblog"
	"github.com/mmenanno/gopar/internal/output"
	"github.com/mmenanno/gopar/internal/reporter"
	"github.com/mmenanno/gopar/internal/token"
)

// Config is the immutable, shared-read-only configuration every
// worker consults.
type Config struct {
	NumWorkers        int
	Delay             time.Duration
	Timeout           time.Duration
	Template          []token.Token
	InputsAreCommands bool
	Pipe              bool // -p/--pipe: also feed input as stdin; a template with no substitution token gets it only via stdin
	ForceShell        bool // config file's shell: true; delegate to a shell regardless of metacharacter scan
	DryRun            bool
	RunID             string
}

// Pool owns the shared InputIterator, the output event channel, and
// the delay-pacing rate limiter used by every worker.
type Pool struct {
	cfg      Config
	iterator *inputsrc.Iterator
	events   chan output.Event
	reporter *reporter.Reporter // nil when not verbose
	jobLog   *joblog.Log        // nil when --joblog not set
	limiter  *rate.Limiter      // nil when Delay == 0
}

// New creates a Pool. events must be the same channel the
// output.Serializer is draining; Pool closes it once every worker has
// exited.
func New(cfg Config, it *inputsrc.Iterator, events chan output.Event, rep *reporter.Reporter, jl *joblog.Log) *Pool {
	p := &Pool{
		cfg:      cfg,
		iterator: it,
		events:   events,
		reporter: rep,
		jobLog:   jl,
	}
	if cfg.Delay > 0 {
		// A single shared rate.Limiter paces job starts across every
		// worker; Wait(ctx) is itself concurrency-safe, so it cannot
		// double-count the delay the way a hand-rolled "last_start"
		// clock could if two workers raced on it.
		p.limiter = rate.NewLimiter(rate.Every(cfg.Delay), 1)
	}
	return p
}

// Run starts cfg.NumWorkers goroutines, each with its own fixed slot
// id (1-based; slots never collide because each worker only ever runs
// one job at a time), waits for all of them to reach end-of-stream on
// the shared iterator, and closes the event channel.
func (p *Pool) Run() {
	var wg sync.WaitGroup
	for slot := 1; slot <= p.cfg.NumWorkers; slot++ {
		wg.Add(1)
		w := &worker{pool: p, slot: slot}
		go func() {
			defer wg.Done()
			w.run()
		}()
	}
	wg.Wait()
	close(p.events)
	if p.jobLog != nil {
		p.jobLog.Close()
	}
}
