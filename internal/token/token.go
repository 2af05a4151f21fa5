// Package token tokenizes a gopar command template into literal
// characters and placeholder tokens.
package token

import "strings"

// Kind identifies what a Token substitutes for.
type Kind int

const (
	// Literal passes its Char through unchanged.
	Literal Kind = iota
	// Placeholder substitutes the full input line ({}).
	Placeholder
	// RemoveExtension substitutes the input line with its extension
	// stripped ({.}).
	RemoveExtension
	// Basename substitutes the input line's final path component ({/}).
	Basename
	// Dirname substitutes the input line with its final path component
	// stripped ({//}).
	Dirname
	// BaseAndExt substitutes the basename of the extension-stripped
	// input line ({/.}).
	BaseAndExt
	// Slot substitutes the decimal slot id ({%}).
	Slot
	// Job substitutes the decimal job id ({#}).
	Job
)

// Token is one element of a tokenized template. Immutable after
// Tokenize returns.
type Token struct {
	Kind Kind
	Char rune // valid only when Kind == Literal
}

// patterns maps the brace contents recognized between { and } to their
// token kind.
var patterns = map[string]Kind{
	".":  RemoveExtension,
	"#":  Job,
	"%":  Slot,
	"/":  Basename,
	"//": Dirname,
	"/.": BaseAndExt,
}

// Substitutes reports whether k is one of the substitution kinds (i.e.
// not Literal).
func (k Kind) Substitutes() bool {
	return k != Literal
}

// Tokenize scans template into an ordered token sequence. A '{' enters
// placeholder mode; a matching '}' closes it. Unknown brace contents,
// and an unterminated '{' at end of string, are emitted as literal
// characters.
func Tokenize(template string) []Token {
	tokens := make([]Token, 0, len(template))
	var pattern strings.Builder
	matching := false

	for _, r := range template {
		switch {
		case r == '{' && !matching:
			matching = true
		case r == '}' && matching:
			matching = false
			if pattern.Len() == 0 {
				tokens = append(tokens, Token{Kind: Placeholder})
			} else {
				p := pattern.String()
				if kind, ok := patterns[p]; ok {
					tokens = append(tokens, Token{Kind: kind})
				} else {
					tokens = append(tokens, Token{Kind: Literal, Char: '{'})
					for _, c := range p {
						tokens = append(tokens, Token{Kind: Literal, Char: c})
					}
					tokens = append(tokens, Token{Kind: Literal, Char: '}'})
				}
				pattern.Reset()
			}
		case matching:
			pattern.WriteRune(r)
		default:
			tokens = append(tokens, Token{Kind: Literal, Char: r})
		}
	}

	// Unmatched '{' at end-of-string: emit literally, pattern included.
	if matching {
		tokens = append(tokens, Token{Kind: Literal, Char: '{'})
		for _, c := range pattern.String() {
			tokens = append(tokens, Token{Kind: Literal, Char: c})
		}
	}

	return tokens
}

// HasSubstitution reports whether any token in tokens substitutes the
// input, slot, or job id.
func HasSubstitution(tokens []Token) bool {
	for _, t := range tokens {
		if t.Kind.Substitutes() {
			return true
		}
	}
	return false
}

// Render re-emits tokens as template text. Used to check the
// round-trip tokenization property: for any template whose {...}
// groups all match the known table, Render(Tokenize(s)) == s.
func Render(tokens []Token) string {
	var b strings.Builder
	for _, t := range tokens {
		switch t.Kind {
		case Literal:
			b.WriteRune(t.Char)
		case Placeholder:
			b.WriteString("{}")
		case RemoveExtension:
			b.WriteString("{.}")
		case Basename:
			b.WriteString("{/}")
		case Dirname:
			b.WriteString("{//}")
		case BaseAndExt:
			b.WriteString("{/.}")
		case Slot:
			b.WriteString("{%}")
		case Job:
			b.WriteString("{#}")
		}
	}
	return b.String()
}
