package listing

import "errors"

// Sentinel errors returned by View.
var (
	ErrNotActivated = errors.New("listing not activated")
	ErrNotFound     = errors.New("event not in listing")
	ErrNotDeletable = errors.New("event has no delete control")
	ErrLoadFailed   = errors.New("load events")
)
