package deletion

import "errors"

// Sentinel errors returned by Flow.
var (
	ErrNoPendingTarget = errors.New("no pending delete target")
	ErrBusy            = errors.New("delete already in progress")
	ErrDeleteFailed    = errors.New("delete failed")
	ErrReloadFailed    = errors.New("reload after delete failed")
)
