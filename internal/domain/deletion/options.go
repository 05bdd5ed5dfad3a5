package deletion

import "github.com/iieadb/eventboard/pkg/logger"

// Option applies a configuration option to the Flow.
type Option func(*Flow)

// WithLogger sets a custom logger for the flow.
func WithLogger(l logger.Logger) Option {
	return func(f *Flow) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithObserver registers a callback invoked for every outcome
// (see the Outcome constants). Callbacks run without the flow lock held.
func WithObserver(fn func(Outcome)) Option {
	return func(f *Flow) {
		if fn != nil {
			f.observers = append(f.observers, fn)
		}
	}
}
