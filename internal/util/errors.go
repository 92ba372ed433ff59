package util

import "errors"

// Sentinel errors for common failure modes
var (
	// ErrConflict indicates a destination file conflict
	ErrConflict = errors.New("destination conflict")

	// ErrNotFound indicates a required resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")
)
