package di

import (
	"time"

	"go.uber.org/zap"
)

// Observer receives container activity. Implementations must be safe for
// concurrent use once the container is built.
type Observer interface {
	// Instantiated is called after every provider invocation attempt.
	Instantiated(definition string, policy Policy, took time.Duration, err error)

	// Resolved is called when a top-level Get or GetAll returns.
	Resolved(signature string, took time.Duration, err error)

	// Dispatched is called when Dispatch returns; handlers is the number of
	// handlers that ran.
	Dispatched(signature string, handlers int, err error)
}

type nopObserver struct{}

func (nopObserver) Instantiated(string, Policy, time.Duration, error) {}
func (nopObserver) Resolved(string, time.Duration, error)             {}
func (nopObserver) Dispatched(string, int, error)                     {}

// Option configures Build.
type Option func(*options)

type options struct {
	log *zap.Logger
	obs Observer
}

func defaultOptions() options {
	return options{log: zap.NewNop(), obs: nopObserver{}}
}

// WithLogger sets the logger. Plan and instantiation steps are logged at
// debug level, the build summary at info level. A nil logger is ignored.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithObserver installs an Observer. A nil observer is ignored.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.obs = obs
		}
	}
}
