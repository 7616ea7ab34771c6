package storage

import "errors"

// Storage errors shared by all backends.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnavailable is returned when the backend cannot be reached.
	// Callers degrade to best-effort in-memory accumulation and report the
	// degraded state, rather than crash.
	ErrUnavailable = errors.New("storage unavailable")
)
