package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound      = errors.New("event not found")
	ErrForbidden     = errors.New("only the creator may delete this event")
	ErrUnknownDriver = errors.New("unknown store driver")
)
