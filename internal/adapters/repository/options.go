package repository

import "github.com/iieadb/eventboard/pkg/logger"

// Store driver names.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type options struct {
	logger   logger.Logger
	maxConns int32
	minConns int32
}

func defaultOptions() options {
	return options{
		logger:   logger.Nop(),
		maxConns: 10,
		minConns: 1,
	}
}

// Option applies a configuration option to a store.
type Option func(*options)

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithPoolSize sets the postgres pool bounds. Other drivers ignore it.
func WithPoolSize(maxConns, minConns int32) Option {
	return func(o *options) {
		if maxConns > 0 {
			o.maxConns = maxConns
		}
		if minConns >= 0 && minConns <= o.maxConns {
			o.minConns = minConns
		}
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
