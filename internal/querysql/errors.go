package querysql

import (
	"errors"
	"fmt"
)

// CompileError represents a query that cannot be translated to SQL.
//
// Compile errors are permanent for a given input: the same query always
// fails the same way, and no partial SQL is produced.
type CompileError struct {
	// Code identifies the error category.
	Code CompileErrorCode

	// Message is a human-readable description.
	Message string

	// Clause is the index of the offending clause, or -1 when not tied to one.
	Clause int

	// Err is the underlying cause (e.g. a *schema.ResolveError).
	Err error
}

// CompileErrorCode categorizes compile errors.
type CompileErrorCode string

const (
	// ErrCodeUnsupportedNesting indicates a second Flatten after the first.
	ErrCodeUnsupportedNesting CompileErrorCode = "UNSUPPORTED_NESTING"

	// ErrCodeUnresolvedField indicates a member path that cannot be mapped to a field.
	ErrCodeUnresolvedField CompileErrorCode = "UNRESOLVED_FIELD"

	// ErrCodeUnsupportedExpression indicates an expression the predicate builder cannot render.
	ErrCodeUnsupportedExpression CompileErrorCode = "UNSUPPORTED_EXPRESSION"

	// ErrCodeInvalidQuery indicates a malformed clause sequence.
	ErrCodeInvalidQuery CompileErrorCode = "INVALID_QUERY"
)

// Error implements the error interface.
func (e *CompileError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Clause >= 0 {
		msg = fmt.Sprintf("%s (clause=%d)", msg, e.Clause)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *CompileError) Unwrap() error {
	return e.Err
}

// IsUnsupportedNesting returns true if the error is a nested-flatten error.
// Uses errors.As to handle wrapped errors.
func IsUnsupportedNesting(err error) bool {
	return hasCode(err, ErrCodeUnsupportedNesting)
}

// IsUnresolvedField returns true if the error is an unresolved-field error.
// Uses errors.As to handle wrapped errors.
func IsUnresolvedField(err error) bool {
	return hasCode(err, ErrCodeUnresolvedField)
}

// IsUnsupportedExpression returns true if the error is an unsupported-expression error.
func IsUnsupportedExpression(err error) bool {
	return hasCode(err, ErrCodeUnsupportedExpression)
}

func hasCode(err error, code CompileErrorCode) bool {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// NewNestingError creates a CompileError for a nested Flatten clause.
func NewNestingError(first, second int) *CompileError {
	return &CompileError{
		Code:    ErrCodeUnsupportedNesting,
		Message: fmt.Sprintf("flatten after flatten is not supported (first at clause %d)", first),
		Clause:  second,
	}
}

// NewUnresolvedFieldError creates a CompileError for a member path that
// could not be resolved.
func NewUnresolvedFieldError(clause int, message string, cause error) *CompileError {
	return &CompileError{
		Code:    ErrCodeUnresolvedField,
		Message: message,
		Clause:  clause,
		Err:     cause,
	}
}

func unsupportedExpression(format string, args ...any) *CompileError {
	return &CompileError{
		Code:    ErrCodeUnsupportedExpression,
		Message: fmt.Sprintf(format, args...),
		Clause:  -1,
	}
}

func invalidQuery(clause int, format string, args ...any) *CompileError {
	return &CompileError{
		Code:    ErrCodeInvalidQuery,
		Message: fmt.Sprintf(format, args...),
		Clause:  clause,
	}
}
