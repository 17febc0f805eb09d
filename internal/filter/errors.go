package filter

import (
	"errors"
	"fmt"
)

// SyntaxError reports input that cannot be derived from the selected
// grammar version. It is always a client error: the HTTP layer maps it to a
// bad-request response, never a server error.
type SyntaxError struct {
	// Message is a human-readable description of the failure.
	Message string

	// Line and Column locate the failure in the input (1-based), when the
	// parser could determine them.
	Line   int
	Column int

	// Fragment is the offending piece of input, when available.
	Fragment string
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	switch {
	case e.Fragment != "" && e.Line > 0:
		return fmt.Sprintf("filter syntax error at %d:%d near %q: %s", e.Line, e.Column, e.Fragment, e.Message)
	case e.Line > 0:
		return fmt.Sprintf("filter syntax error at %d:%d: %s", e.Line, e.Column, e.Message)
	default:
		return fmt.Sprintf("filter syntax error: %s", e.Message)
	}
}

// IsSyntaxError reports whether err is (or wraps) a SyntaxError.
// Uses errors.As to handle wrapped errors.
func IsSyntaxError(err error) bool {
	var se *SyntaxError
	return errors.As(err, &se)
}

// ErrUnknownVersion is returned by Parse for a grammar version this build
// does not support. Unlike a SyntaxError this is a caller configuration
// problem, not a user input problem.
var ErrUnknownVersion = errors.New("filter: unknown grammar version")
