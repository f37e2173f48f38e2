package refname

import "errors"

var (
	// ErrEmptyInput is returned when there is nothing to parse.
	ErrEmptyInput = errors.New("empty input")

	// ErrBadName is an error for when a structurally malformed reference is
	// supplied, such as a missing repository segment.
	ErrBadName = errors.New("bad name")
)
