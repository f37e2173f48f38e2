// Package errdefs defines general error types and error operations.
package errdefs

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals that the requested object doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidParameter signals that the user input is invalid.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrUnauthorized is used to signify that the user is not authorized to
	// perform a specific action.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUnavailable signals that the requested action/subsystem is not available.
	ErrUnavailable = errors.New("unavailable")

	// ErrForbidden signals that the requested action cannot be performed under
	// any circumstances. When a ErrForbidden is returned, the caller should never
	// retry the action.
	ErrForbidden = errors.New("forbidden")

	// ErrSystem signals that some internal error occurred.
	ErrSystem = errors.New("system error")

	// ErrUnsupported indicates that the action was not supported.
	ErrUnsupported = errors.New("unsupported")

	// ErrUnknown signals that the kind of error that occurred is not known.
	ErrUnknown = errors.New("unknown error")
)

// Newf wraps the base error and a formatted error created by fmt.Errorf,
// returns the error joined.
func Newf(base error, format string, args ...any) error {
	return errors.Join(base, fmt.Errorf(format, args...))
}

// NewE wraps the base error and the input error, returns the error joined.
func NewE(base error, err error) error {
	if err == nil || errors.Is(err, base) {
		return err
	}
	return errors.Join(base, err)
}
