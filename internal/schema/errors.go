package schema

import (
	"errors"
	"fmt"
	"strings"
)

// ResolveError reports a member path that cannot be mapped onto a document.
type ResolveError struct {
	// Document is the document or child-document name the path was resolved against.
	Document string

	// Path is the member path that failed.
	Path []string

	// Reason describes why resolution failed.
	Reason string
}

// Error implements the error interface.
func (e *ResolveError) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("cannot resolve %s: %s", e.Document, e.Reason)
	}
	return fmt.Sprintf("cannot resolve %s on %s: %s", strings.Join(e.Path, "."), e.Document, e.Reason)
}

// IsResolveError returns true if err is (or wraps) a ResolveError.
func IsResolveError(err error) bool {
	var re *ResolveError
	return errors.As(err, &re)
}
