// Command gopar is a parallel command executor in the spirit of GNU
// parallel: it expands a command template against one or more input
// sources, runs the resulting commands across a bounded worker pool,
// and serializes their output in job-id order.
package main

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmenanno/gopar/internal/command"
	"github.com/mmenanno/gopar/internal/config"
	"github.com/mmenanno/gopar/internal/diskbuffer"
	"github.com/mmenanno/gopar/internal/inputsrc"
	"github.com/mmenanno/gopar/internal/jobrun"
	"github.com/mmenanno/gopar/internal/joblog"
	"github.com/mmenanno/gopar/internal/output"
	"github.com/mmenanno/gopar/internal/reporter"
	"github.com/mmenanno/gopar/internal/token"
	"github.com/mmenanno/gopar/internal/workerpool"
)

// Version is set at build time.
var Version = "dev"

// dependencies lists the third-party libraries gopar links against,
// printed by --version alongside the version string.
var dependencies = []string{
	"github.com/spf13/cobra",
	"gopkg.in/yaml.v3",
	"github.com/mattn/go-sqlite3",
	"golang.org/x/time",
	"github.com/google/uuid",
}

const diskBufferCapacity = 64 * 1024

var (
	configPath  string
	jobsSpec    string
	maxArgs     int
	pipe        bool
	quote       bool
	shellquote  bool
	quiet       bool
	silent      bool
	verbose     bool
	delaySecs   float64
	timeoutSecs float64
	dryRun      bool
	numCPUCores bool
	printVer    bool
	jobLogPath  string
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "gopar: internal error: %v\n", r)
			os.Exit(1)
		}
	}()

	rootCmd := &cobra.Command{
		Use:                   "gopar [flags] command {} ::: inputs...",
		Short:                 "Run a command against many inputs in parallel",
		DisableFlagsInUseLine: true,
		SilenceUsage:          true,
		RunE:                  run,
	}

	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML defaults file")
	rootCmd.Flags().StringVarP(&jobsSpec, "jobs", "j", "", "Parallelism: N, N%, or -N (cores - N)")
	rootCmd.Flags().IntVarP(&maxArgs, "max-args", "n", 0, "Batch size for input packing")
	rootCmd.Flags().BoolVarP(&pipe, "pipe", "p", false, "Pipe each input as stdin instead of substituting")
	rootCmd.Flags().BoolVarP(&quote, "quote", "q", false, "Basic template quoting")
	rootCmd.Flags().BoolVar(&shellquote, "shellquote", false, "Shell-safe template quoting")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "s", false, "Suppress stdout of children")
	rootCmd.Flags().BoolVar(&silent, "silent", false, "Alias for --quiet")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Emit progress lines per job start/complete")
	rootCmd.Flags().Float64Var(&delaySecs, "delay", 0, "Minimum seconds between successive job starts")
	rootCmd.Flags().Float64Var(&timeoutSecs, "timeout", 0, "Per-job wall-clock timeout in seconds")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print expanded commands, do not execute")
	rootCmd.Flags().BoolVar(&numCPUCores, "num-cpu-cores", false, "Print detected CPU count and exit")
	rootCmd.Flags().BoolVar(&printVer, "version", false, "Print version and dependency list, exit 0")
	rootCmd.Flags().StringVar(&jobLogPath, "joblog", "", "Optional SQLite file recording each job's outcome")

	// Flags must precede the template/input-list arguments: once the
	// first positional (non-flag) token appears, everything after it
	// -- including tokens that look like flags -- is the template and
	// its ::: / :::: groups.
	rootCmd.Flags().SetInterspersed(false)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if numCPUCores {
		fmt.Println(runtime.NumCPU())
		return nil
	}
	if printVer {
		fmt.Printf("gopar %s\n", Version)
		fmt.Println("dependencies:")
		for _, d := range dependencies {
			fmt.Printf("  %s\n", d)
		}
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	runID := jobrun.NewID()

	numWorkers, err := resolveJobs(cfg)
	if err != nil {
		return err
	}

	buf, cleanup, err := newQueueBuffer()
	if err != nil {
		return err
	}
	defer cleanup()

	template, inputsAreCommands, ninputs, err := inputsrc.Materialize(args, effectiveMaxArgs(cfg), os.Stdin, buf)
	if err != nil {
		return fmt.Errorf("gopar: %w", err)
	}

	quoted := command.Quote(template, resolveQuoteMode())
	tokens := token.Tokenize(quoted)

	reader, err := buf.OpenReader()
	if err != nil {
		return fmt.Errorf("gopar: %w", err)
	}
	defer reader.Close()

	iterator := inputsrc.NewIterator(reader, ninputs)
	defer iterator.Close()

	var rep *reporter.Reporter
	if effectiveVerbose(cfg) {
		rep = reporter.New(os.Stderr)
	}

	var jl *joblog.Log
	if path := effectiveJobLog(cfg); path != "" {
		jl, err = joblog.Open(path, runID)
		if err != nil {
			return fmt.Errorf("gopar: %w", err)
		}
	}

	events := make(chan output.Event, 256)
	poolCfg := workerpool.Config{
		NumWorkers:        numWorkers,
		Delay:             secondsFlag(delaySecs, cfg.Delay),
		Timeout:           secondsFlag(timeoutSecs, cfg.Timeout),
		Template:          tokens,
		InputsAreCommands: inputsAreCommands,
		Pipe:              pipe,
		ForceShell:        cfg.Shell,
		DryRun:            dryRun,
		RunID:             runID,
	}
	pool := workerpool.New(poolCfg, iterator, events, rep, jl)

	done := make(chan struct{})
	go func() {
		pool.Run()
		close(done)
	}()

	serializer := output.New(os.Stdout, os.Stderr, effectiveQuiet(cfg))
	serializeErr := serializer.Run(events)
	<-done

	return serializeErr
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("gopar: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("gopar: invalid config: %w", err)
	}
	return cfg, nil
}

func resolveJobs(cfg *config.Config) (int, error) {
	spec := jobsSpec
	if spec == "" {
		spec = cfg.Jobs
	}
	n, err := config.ResolveJobs(spec, runtime.NumCPU())
	if err != nil {
		return 0, fmt.Errorf("gopar: --jobs: %w", err)
	}
	return n, nil
}

// resolveQuoteMode implements the documented precedence: when both -q
// and --shellquote are given, --shellquote wins.
func resolveQuoteMode() command.QuoteMode {
	switch {
	case shellquote:
		return command.QuoteShell
	case quote:
		return command.QuoteBasic
	default:
		return command.QuoteNone
	}
}

func effectiveMaxArgs(cfg *config.Config) int {
	if maxArgs != 0 {
		return maxArgs
	}
	return cfg.MaxArgs
}

func effectiveVerbose(cfg *config.Config) bool {
	return verbose || cfg.Verbose
}

func effectiveQuiet(cfg *config.Config) bool {
	return quiet || silent || cfg.Quiet
}

func effectiveJobLog(cfg *config.Config) string {
	if jobLogPath != "" {
		return jobLogPath
	}
	return cfg.JobLog
}

// secondsFlag prefers the CLI flag value (in seconds) over the config
// default when the flag was explicitly set to a nonzero value.
func secondsFlag(flagSeconds float64, cfgDefault time.Duration) time.Duration {
	if flagSeconds > 0 {
		return time.Duration(flagSeconds * float64(time.Second))
	}
	return cfgDefault
}

// newQueueBuffer creates the temp-file-backed queue that Materialize
// writes records into.
func newQueueBuffer() (*diskbuffer.DiskBuffer, func(), error) {
	f, err := os.CreateTemp("", "gopar-queue-*")
	if err != nil {
		return nil, nil, fmt.Errorf("gopar: create queue file: %w", err)
	}
	path := f.Name()
	f.Close()

	buf, err := diskbuffer.New(path, diskBufferCapacity)
	if err != nil {
		return nil, nil, fmt.Errorf("gopar: %w", err)
	}

	cleanup := func() {
		buf.Close()
		buf.Delete()
	}
	return buf, cleanup, nil
}
