// Package config loads gopar's optional YAML defaults file and
// resolves the CPU-relative --jobs grammar.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the defaults applied before CLI flags override them.
type Config struct {
	Jobs    string        `yaml:"jobs"`     // "4", "200%", "-1"; see ResolveJobs
	MaxArgs int           `yaml:"max_args"` // 0 or 1 disables batching
	Delay   time.Duration `yaml:"delay"`
	Timeout time.Duration `yaml:"timeout"`
	Quiet   bool          `yaml:"quiet"`
	Verbose bool          `yaml:"verbose"`
	Shell   bool          `yaml:"shell"`
	JobLog  string        `yaml:"job_log"` // empty disables --joblog persistence
}

// Default returns gopar's built-in defaults.
func Default() *Config {
	return &Config{
		Jobs:    "100%",
		MaxArgs: 0,
		Delay:   0,
		Timeout: 0,
		Quiet:   false,
		Verbose: false,
		Shell:   false,
		JobLog:  "",
	}
}

// Load reads a YAML config file, returning Default() if path doesn't
// exist.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg as YAML to path, creating parent directories as
// needed.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("config: create directory %s: %w", dir, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// Validate checks that a loaded config's values are sane before they
// feed into resolution against the runtime environment.
func (c *Config) Validate() error {
	if c.Jobs == "" {
		return fmt.Errorf("jobs must not be empty")
	}
	if c.MaxArgs < 0 {
		return fmt.Errorf("max_args cannot be negative")
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}
	if _, err := ResolveJobs(c.Jobs, 1); err != nil {
		return fmt.Errorf("jobs: %w", err)
	}
	return nil
}

// ResolveJobs turns a --jobs spec into a worker count.
//
// Accepted forms:
//   - a plain integer ("4"): used as-is (clamped to >=1)
//   - a percentage ("200%"): percent of detectedCores, rounded down
//   - a negative integer ("-1"): detectedCores - |N|
//
// The result is always clamped to at least 1.
func ResolveJobs(spec string, detectedCores int) (int, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return 0, fmt.Errorf("empty jobs spec")
	}

	if strings.HasSuffix(spec, "%") {
		pct, err := strconv.Atoi(strings.TrimSuffix(spec, "%"))
		if err != nil {
			return 0, fmt.Errorf("invalid percentage %q: %w", spec, err)
		}
		n := detectedCores * pct / 100
		return clampMin1(n), nil
	}

	n, err := strconv.Atoi(spec)
	if err != nil {
		return 0, fmt.Errorf("invalid jobs value %q: %w", spec, err)
	}
	if n < 0 {
		return clampMin1(detectedCores - (-n)), nil
	}
	return clampMin1(n), nil
}

func clampMin1(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
