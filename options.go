package conduit

import (
	"maps"
	"slices"
)

// Option configures a Context created by New.
type Option func(c *Context)

// WithData seeds the record. The map is copied.
func WithData(data Data) Option {
	return func(c *Context) {
		if data != nil {
			c.data = maps.Clone(data)
		}
	}
}

// WithSteps sets the steps used when Run is called without any.
func WithSteps(steps ...any) Option {
	return func(c *Context) {
		c.steps = slices.Clone(steps)
	}
}

// WithMode sets the execution mode. The default is ModeSeries.
func WithMode(mode Mode) Option {
	return func(c *Context) {
		c.mode = mode
	}
}

// WithOverwrite controls whether a merge may replace an existing key.
// When disabled, a colliding merge errors the Context with a
// *CollisionError. The default is true.
func WithOverwrite(overwrite bool) Option {
	return func(c *Context) {
		c.overwrite = overwrite
	}
}

// WithResolveOnError makes the Completion resolve instead of reject when
// the Context errors. The error is still available from Err.
func WithResolveOnError(resolve bool) Option {
	return func(c *Context) {
		c.resolveOnError = resolve
	}
}

// WithName sets the display name. It defaults to the lower-cased mode.
func WithName(name string) Option {
	return func(c *Context) {
		c.name = name
	}
}

// WithObserver attaches an Observer. Nested contexts without their own
// observer inherit it.
func WithObserver(o Observer) Option {
	return func(c *Context) {
		c.observer = o
	}
}
