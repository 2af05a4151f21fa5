package command

import "strings"

// QuoteMode selects how a command template is quoted before it is
// tokenized. Quoting is applied once, at startup, to the raw template
// string -- never per job.
type QuoteMode int

const (
	// QuoteNone leaves the template untouched.
	QuoteNone QuoteMode = iota
	// QuoteBasic wraps the template in single quotes, escaping any
	// embedded single quotes.
	QuoteBasic
	// QuoteShell is QuoteBasic plus escaping of shell metacharacters,
	// so the quoted template also survives an outer shell layer.
	QuoteShell
)

// shellMetacharacters is the set QuoteShell backslash-escapes in
// addition to basic quoting: dollar, backtick, double quote, backslash,
// and newline. It is a different, smaller set than the one
// shellutil.Required scans for.
const shellMetacharacters = "$`\"\\\n"

// Quote applies mode to template and returns the wrapped string. The
// result is what gets tokenized, so any {placeholder} text inside
// template survives untouched -- only the surrounding literal text is
// escaped.
func Quote(template string, mode QuoteMode) string {
	switch mode {
	case QuoteBasic:
		return quoteSingle(template)
	case QuoteShell:
		return quoteSingle(escapeShellMeta(template))
	default:
		return template
	}
}

// quoteSingle wraps s in single quotes, closing and reopening the
// quote around any embedded single quote: ' -> '\''.
func quoteSingle(s string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range s {
		if r == '\'' {
			b.WriteString(`'\''`)
		} else {
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

// escapeShellMeta backslash-escapes characters that would otherwise be
// interpreted by an outer shell layer before the result is itself
// single-quoted.
func escapeShellMeta(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(shellMetacharacters, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
