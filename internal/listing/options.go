package listing

import (
	"github.com/iieadb/eventboard/internal/domain/sorting"
	"github.com/iieadb/eventboard/pkg/logger"
)

// Option applies a configuration option to the View.
type Option func(*View)

// WithLogger sets a custom logger for the view and its delete flow.
func WithLogger(l logger.Logger) Option {
	return func(v *View) {
		if l != nil {
			v.logger = l
		}
	}
}

// WithSortKey sets the initial ordering. Invalid keys are ignored.
func WithSortKey(key sorting.Key) Option {
	return func(v *View) {
		if key.Validate() == nil {
			v.key = key
		}
	}
}

// WithHolder shares a snapshot holder with other readers.
func WithHolder(h *Holder) Option {
	return func(v *View) {
		if h != nil {
			v.holder = h
		}
	}
}
