package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// trip does not exist or has been soft-deleted. The two cases are not
// distinguished.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. blank title, end date before start date, missing
// search keyword).
// Handlers should map this to HTTP 400 or 422.
var ErrValidation = errors.New("validation error")

// ErrStorage wraps any failure of the underlying storage engine, including a
// stored days column that cannot be decoded.
// Handlers should map this to HTTP 500 without exposing the cause.
var ErrStorage = errors.New("storage failure")
