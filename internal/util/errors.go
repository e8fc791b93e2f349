package util

import "errors"

// Sentinel errors for common failure modes
var (
	// ErrValidation indicates a file's tags failed validation (missing
	// artist/title, reserved artist name)
	ErrValidation = errors.New("validation failed")

	// ErrUnsupported indicates a file format is not supported
	ErrUnsupported = errors.New("unsupported")

	// ErrCorrupt indicates a file is corrupt or unreadable as its claimed format
	ErrCorrupt = errors.New("corrupt file")

	// ErrNotFound indicates a required resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidConfig indicates invalid or missing configuration
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrPermission indicates a permission error
	ErrPermission = errors.New("permission denied")
)
