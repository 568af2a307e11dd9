// Package errors re-exports the slice of github.com/cockroachdb/errors
// that Herald uses: constructors that capture stack traces, wrapping
// with context, and Is/As inspection.
//
//	if err := store.Claim(ctx, id); err != nil {
//	    return errors.Wrap(err, "failed to claim job")
//	}
//
// The sentinels below carry HTTP intent. The API layer maps
// ErrNotFound to 404 and ErrInvalidRequest to 400, so service code
// signals status by wrapping the right sentinel instead of importing
// net/http.
//
// Full upstream documentation:
// https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Constructors and wrappers.
var (
	New       = crdb.New
	Newf      = crdb.Newf
	Wrap      = crdb.Wrap
	Wrapf     = crdb.Wrapf
	WithStack = crdb.WithStack
)

// Inspection.
var (
	Is     = crdb.Is
	As     = crdb.As
	Unwrap = crdb.Unwrap
)

// GetStack exposes the reportable stack trace of an error, nil when
// the error carries none.
var GetStack = crdb.GetReportableStackTrace

// Cross-cutting sentinels. Wrap them to add context; the sentinel
// stays reachable through errors.Is.
var (
	// ErrNotFound marks lookups that miss. Stores with richer context
	// define their own not-found sentinels; the API layer treats both
	// the same.
	ErrNotFound = New("not found")

	// ErrInvalidRequest marks input the caller can fix.
	ErrInvalidRequest = New("invalid request")
)

// IsNotFoundError reports whether err is or wraps ErrNotFound.
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsInvalidRequestError reports whether err is or wraps ErrInvalidRequest.
func IsInvalidRequestError(err error) bool {
	return err != nil && Is(err, ErrInvalidRequest)
}

// NewInvalidRequestError builds an invalid-request error with a
// formatted message, keeping ErrInvalidRequest in the chain.
func NewInvalidRequestError(format string, args ...interface{}) error {
	return Wrap(ErrInvalidRequest, Newf(format, args...).Error())
}
