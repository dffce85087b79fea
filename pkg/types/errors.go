package types

import "errors"

// Validation failures shared across packages
var (
	ErrInvalidSortMode  = errors.New("invalid sort mode")
	ErrUnknownLanguage  = errors.New("unknown language")
	ErrConflictingInput = errors.New("conflicting filters")
	ErrInvalidPattern   = errors.New("invalid pattern")
	ErrInvalidBounds    = errors.New("minimum exceeds maximum")
	ErrInvalidDirection = errors.New("invalid slice direction")
)
