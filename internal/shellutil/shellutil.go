// Package shellutil decides whether a job's command needs an external
// shell interpreter.
package shellutil

import (
	"os/exec"
	"strings"
	"sync"
)

// metacharacters are the substrings whose presence in a built command
// string forces shell delegation: pipe, redirection, command
// separator, subshell, logical operator, glob, variable reference,
// backtick.
var metacharacters = []string{
	"|", ">", "<", ";", "(", ")", "&&", "||", "&",
	"*", "?", "[", "$", "`",
}

// Required reports whether raw (the built, pre-split command string)
// contains any shell metacharacter and therefore must be executed
// through a shell rather than exec'd directly.
func Required(raw string) bool {
	for _, m := range metacharacters {
		if strings.Contains(raw, m) {
			return true
		}
	}
	return false
}

var (
	dashOnce sync.Once
	dashPath string
)

// DashExists probes the environment for a dash binary, caching the
// result for the lifetime of the process.
func DashExists() bool {
	dashOnce.Do(func() {
		if p, err := exec.LookPath("dash"); err == nil {
			dashPath = p
		}
	})
	return dashPath != ""
}

// Shell returns the path to the shell to use for a job requiring
// shell delegation: dash if available (lighter weight, POSIX-only),
// otherwise the system default ("sh").
func Shell() string {
	if DashExists() {
		return dashPath
	}
	if p, err := exec.LookPath("sh"); err == nil {
		return p
	}
	return "/bin/sh"
}
