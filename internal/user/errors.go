package user

import "errors"

var (
	// ErrNotFound means the directory has no matching user.
	ErrNotFound = errors.New("user: not found")

	// ErrUnavailable wraps transport or availability failures of the
	// directory. Callers treat it as a generic service failure.
	ErrUnavailable = errors.New("user: directory unavailable")
)
