package scheduler

import (
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

type options struct {
	clock             clockwork.Clock
	logger            *slog.Logger
	workers           int
	completionTimeout time.Duration
}

func defaultOptions() options {
	return options{
		clock:             clockwork.NewRealClock(),
		workers:           8,
		completionTimeout: 30 * time.Second,
	}
}

// Option configures a Scheduler.
type Option func(*options)

// WithClock replaces the wall clock, typically with a fake in tests.
func WithClock(c clockwork.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithWorkers bounds how many completions run at once.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithCompletionTimeout bounds a single completion.
func WithCompletionTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.completionTimeout = d
		}
	}
}
