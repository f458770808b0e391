package errors

import "errors"

// Domain errors
var (
	// Scan errors
	ErrScanNotFound     = errors.New("scan not found")
	ErrEmptySessionID   = errors.New("session ID cannot be empty")
	ErrEmptyURL         = errors.New("page URL cannot be empty")
	ErrInvalidSnapshot  = errors.New("invalid page snapshot")
	ErrRateLimitReached = errors.New("scan rate limit reached")

	// Detector errors
	ErrDetectorTimeout = errors.New("detector timed out")
	ErrDetectorPanic   = errors.New("detector panicked")

	// Repository errors
	ErrRepositoryOperation   = errors.New("repository operation failed")
	ErrKeyNotFound           = errors.New("key not found")
	ErrSerializationFailed   = errors.New("serialization failed")
	ErrDeserializationFailed = errors.New("deserialization failed")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidInput    = errors.New("invalid input")
	ErrMissingRequired = errors.New("missing required field")
)
