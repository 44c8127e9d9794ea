package data

import (
	"errors"
	"fmt"

	"safetyhub/internal/issue"
)

// InvalidRequestError reports a (source, package, user) combination the
// configuration does not declare.
//
// It is always surfaced synchronously to the caller and never retried
// internally: it indicates a caller or configuration bug, not a transient
// condition. Source-reported errors and refresh timeouts are NOT errors in
// this sense - they are ordinary state transitions stored per source key.
type InvalidRequestError struct {
	SourceID    string
	PackageName string
	UserID      issue.UserID
	Reason      string
}

// Error implements the error interface.
func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid request for source %s (package=%s, user=%d): %s",
		e.SourceID, e.PackageName, e.UserID, e.Reason)
}

// IsInvalidRequest returns true if the error is an InvalidRequestError.
// Uses errors.As to handle wrapped errors.
func IsInvalidRequest(err error) bool {
	var ire *InvalidRequestError
	return errors.As(err, &ire)
}
