// Package command expands a tokenized template against a single input
// line, slot id, and job id into the argv of a child process.
package command

import (
	"strconv"
	"strings"

	"github.com/mmenanno/gopar/internal/token"
)

// Built is the result of expanding a template against one job: Raw is
// the substituted command string before whitespace splitting, Argv is
// Raw split on whitespace into argv elements.
type Built struct {
	Raw  string
	Argv []string
}

// Build expands tokens against input (the record text for this job),
// slot (1-based worker slot id), and job (1-based job id).
func Build(tokens []token.Token, input string, slot, job int) Built {
	var b strings.Builder
	for _, t := range tokens {
		switch t.Kind {
		case token.Literal:
			b.WriteRune(t.Char)
		case token.Placeholder:
			b.WriteString(input)
		case token.RemoveExtension:
			b.WriteString(removeExtension(input))
		case token.Basename:
			b.WriteString(basename(input))
		case token.Dirname:
			b.WriteString(dirname(input))
		case token.BaseAndExt:
			b.WriteString(basename(removeExtension(input)))
		case token.Slot:
			b.WriteString(strconv.Itoa(slot))
		case token.Job:
			b.WriteString(strconv.Itoa(job))
		}
	}

	if !token.HasSubstitution(tokens) && input != "" {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(input)
	}

	raw := b.String()
	return Built{Raw: raw, Argv: strings.Fields(raw)}
}

// removeExtension strips from the last '.' to the end of input. If
// input has no '.', or its only '.' is the very first character, it is
// returned unchanged (same zero-is-sentinel rule as basename).
func removeExtension(input string) string {
	if idx := strings.LastIndexByte(input, '.'); idx > 0 {
		return input[:idx]
	}
	return input
}

// basename strips everything up to and including the last '/'. If
// input has no '/', it is returned unchanged. A '/' as the very first
// character is treated the same as no '/' at all (matches the
// original implementation's zero-is-sentinel index tracking).
func basename(input string) string {
	if idx := strings.LastIndexByte(input, '/'); idx > 0 {
		return input[idx+1:]
	}
	return input
}

// dirname strips from the last '/' to the end of input. If input has
// no '/', or its only '/' is the very first character, it is returned
// unchanged (same zero-is-sentinel rule as basename).
func dirname(input string) string {
	if idx := strings.LastIndexByte(input, '/'); idx > 0 {
		return input[:idx]
	}
	return input
}
