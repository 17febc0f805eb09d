package clause

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes transform-time failures.
type ErrorCode string

const (
	// ErrCodeUnknownProperty means a property reference resolved to nothing
	// in the Resource Mapper and is not a recognized provider-namespaced
	// field. A user error.
	ErrCodeUnknownProperty ErrorCode = "UNKNOWN_PROPERTY"

	// ErrCodeUnsupportedOperator means an operator was applied to an
	// operand shape it cannot express for the property's declared type, or
	// the selected backend has no translation for it. A user error.
	ErrCodeUnsupportedOperator ErrorCode = "UNSUPPORTED_OPERATOR"

	// ErrCodeInvalidZip means a zipped set operation named properties that
	// are not declared correlated, or its value tuples do not align with
	// the property list. A user error.
	ErrCodeInvalidZip ErrorCode = "INVALID_ZIP"

	// ErrCodeMissingHandler means a transformer or backend compiler
	// encountered a production or clause kind it has no handler for. This
	// is a grammar/transformer version mismatch: a deployment defect, not a
	// user error, and it should be surfaced loudly.
	ErrCodeMissingHandler ErrorCode = "MISSING_HANDLER"
)

// Error is a typed transform failure. The Code decides whether the HTTP
// layer maps it to a client error (bad filter) or a server error
// (deployment defect); see IsUserError.
type Error struct {
	Code     ErrorCode
	Message  string
	Property string // logical property name, when one is involved
	Operator string // operator spelling, when one is involved
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Property != "" && e.Operator != "":
		return fmt.Sprintf("%s: %s (property=%s, operator=%s)", e.Code, e.Message, e.Property, e.Operator)
	case e.Property != "":
		return fmt.Sprintf("%s: %s (property=%s)", e.Code, e.Message, e.Property)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// IsUserError reports whether err is a transform failure caused by the
// filter itself (unknown property, unsupported operator/operand shape,
// malformed zip), as opposed to a configuration defect. Syntax errors are
// classified separately by the filter package. Uses errors.As to handle
// wrapped errors.
func IsUserError(err error) bool {
	var te *Error
	if errors.As(err, &te) {
		return te.Code != ErrCodeMissingHandler
	}
	return false
}

// NewUnknownPropertyError builds an UNKNOWN_PROPERTY error.
func NewUnknownPropertyError(property string) *Error {
	return &Error{
		Code:     ErrCodeUnknownProperty,
		Message:  "property is not part of the schema or any configured provider namespace",
		Property: property,
	}
}

// NewUnsupportedOperatorError builds an UNSUPPORTED_OPERATOR error.
func NewUnsupportedOperatorError(operator, property, message string) *Error {
	return &Error{
		Code:     ErrCodeUnsupportedOperator,
		Message:  message,
		Property: property,
		Operator: operator,
	}
}

// NewInvalidZipError builds an INVALID_ZIP error.
func NewInvalidZipError(message string) *Error {
	return &Error{Code: ErrCodeInvalidZip, Message: message}
}

// NewMissingHandlerError builds a MISSING_HANDLER configuration error.
func NewMissingHandlerError(message string) *Error {
	return &Error{Code: ErrCodeMissingHandler, Message: message}
}
