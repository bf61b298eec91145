// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across store/repo/service layers.
var (
	// ErrStorage indicates the persistence substrate failed (unavailable, I/O error, quota).
	ErrStorage = errors.New("storage error")

	// ErrQuotaExceeded indicates a write would exceed the store quota. Always reported together with ErrStorage.
	ErrQuotaExceeded = errors.New("storage quota exceeded")

	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., username taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates caller-supplied data failed validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates failed authentication/authorization.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrTransport indicates an external endpoint could not be reached or answered with a failure status.
	ErrTransport = errors.New("transport error")
)
