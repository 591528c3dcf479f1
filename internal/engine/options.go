package engine

import (
	"log/slog"

	"github.com/benbjohnson/clock"

	"github.com/roach88/launchpop/internal/counter"
	"github.com/roach88/launchpop/internal/dom"
)

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the time source. Tests pass clock.NewMock().
func WithClock(c clock.Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithLogger sets the logger. A nil logger uses slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithWindow sets the host window. Without one, every DOM-touching routine
// is a no-op.
func WithWindow(w dom.Window) Option {
	return func(e *Engine) {
		e.window = w
	}
}

// WithLocalStore sets the durable store holding last-shown timestamps.
// Passing nil disables the minutes gate.
func WithLocalStore(s counter.Store) Option {
	return func(e *Engine) {
		e.local = s
	}
}

// WithSessionStore sets the session store holding show counts.
// Passing nil disables the max gate.
func WithSessionStore(s counter.Store) Option {
	return func(e *Engine) {
		e.session = s
	}
}

// WithDefaults sets the engine-wide defaults.
func WithDefaults(d Defaults) Option {
	return func(e *Engine) {
		e.defaults = d.normalized()
	}
}
