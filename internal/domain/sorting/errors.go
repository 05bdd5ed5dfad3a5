package sorting

import "errors"

// Sentinel kinds for sort errors.
var (
	ErrInvalidField     = errors.New("invalid sort field")
	ErrInvalidDirection = errors.New("invalid sort direction")
)
