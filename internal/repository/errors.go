package repository

import "errors"

// ErrNotFound indicates an entity was not located.
var ErrNotFound = errors.New("repository: not found")

// ErrInvalidArgument indicates the store rejected a value as malformed or
// conflicting.
var ErrInvalidArgument = errors.New("repository: invalid argument")

// ErrUnavailable indicates the telemetry store could not be reached. It is
// fatal to the current operation and is not retried.
var ErrUnavailable = errors.New("repository: store unavailable")
