package service

import "errors"

// Sentinel errors returned by Service.
var (
	ErrNotStarted       = errors.New("service not started")
	ErrCreateInProgress = errors.New("a create with this idempotency key is in progress")
	ErrInvalidSchedule  = errors.New("invalid refresh schedule")
)
