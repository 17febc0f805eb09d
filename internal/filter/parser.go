package filter

import (
	"errors"
	"strings"

	"github.com/alecthomas/participle/v2"
)

// parser is the compiled grammar. Built exactly once at package
// initialization and treated as read-only thereafter; participle parsers
// are safe for concurrent ParseString calls, so no synchronization is
// needed across requests.
var parser = participle.MustBuild[Filter](
	participle.Lexer(filterLexer),
	participle.Elide("Whitespace"),
	participle.Unquote("String"),
	participle.UseLookahead(2),
)

// Parse parses a filter string under the given grammar version.
//
// Parsing is pure and CPU-bound: no I/O, no shared mutable state. On
// malformed input it returns a *SyntaxError with the position and the
// offending fragment when the lexer could isolate one. The whole input must
// reduce to a single filter production; trailing tokens are an error, never
// a silently accepted partial match.
func Parse(input string, version Version) (*Filter, error) {
	d, ok := dialects[version]
	if !ok {
		return nil, ErrUnknownVersion
	}

	tree, err := parser.ParseString("", input)
	if err != nil {
		return nil, syntaxError(input, err)
	}
	if err := d.check(tree); err != nil {
		return nil, err
	}
	return tree, nil
}

// syntaxError converts a participle error into the package error type,
// slicing the offending fragment out of the input when a position is known.
func syntaxError(input string, err error) *SyntaxError {
	se := &SyntaxError{Message: err.Error()}

	var perr participle.Error
	if errors.As(err, &perr) {
		pos := perr.Position()
		se.Message = perr.Message()
		se.Line = pos.Line
		se.Column = pos.Column
		se.Fragment = fragmentAt(input, pos.Offset)
	}
	return se
}

// fragmentAt returns a short slice of input starting at offset, trimmed at
// the next whitespace run, for inclusion in error messages.
func fragmentAt(input string, offset int) string {
	if offset < 0 || offset >= len(input) {
		return ""
	}
	frag := input[offset:]
	if i := strings.IndexAny(frag, " \t\n\r"); i > 0 {
		frag = frag[:i]
	}
	const maxFragment = 32
	if len(frag) > maxFragment {
		frag = frag[:maxFragment]
	}
	return frag
}
