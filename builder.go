package conduit

import (
	"context"
	"fmt"
)

// Builder provides a fluent API for defining pipelines:
//
//	b := conduit.NewBuilder("checkout").
//	    Step("load", loadCart).
//	    Parallel("price", priceItems, applyCoupons).
//	    Step("charge", charge)
//
//	comp, err := b.Run(ctx)
//
// A Builder can be built any number of times. Every Build returns a fresh
// Context with fresh nested contexts for the Parallel and Series groups.
type Builder struct {
	name  string
	steps []func(parent *Context) any
}

// NewBuilder creates a new pipeline builder with the given name.
func NewBuilder(name string) *Builder {
	return &Builder{name: name}
}

// Name returns the pipeline name.
func (b *Builder) Name() string {
	return b.name
}

// Len returns the number of top-level steps added so far.
func (b *Builder) Len() int {
	return len(b.steps)
}

// Step appends a step. A *Context added here can only run once, so a
// Builder holding one can only be run once too; use Parallel and Series
// for groups.
func (b *Builder) Step(name string, step any) *Builder {
	if name == "" {
		panic("conduit: step name must not be empty")
	}
	if isNil(step) {
		panic(fmt.Sprintf("conduit: step %q is nil", name))
	}

	b.steps = append(b.steps, func(*Context) any {
		return Named(name, step)
	})
	return b
}

// Parallel appends a nested Context running steps in parallel.
func (b *Builder) Parallel(name string, steps ...any) *Builder {
	return b.group(name, ModeParallel, steps)
}

// Series appends a nested Context running steps in series.
func (b *Builder) Series(name string, steps ...any) *Builder {
	return b.group(name, ModeSeries, steps)
}

// If appends a step choosing between thenStep and elseStep with cond.
func (b *Builder) If(name string, cond func(data Data) bool, thenStep, elseStep any) *Builder {
	if cond == nil {
		panic(fmt.Sprintf("conduit: condition of step %q is nil", name))
	}
	return b.Step(name, If(cond, thenStep, elseStep))
}

// Switch appends a step choosing a branch by the key selector returns.
func (b *Builder) Switch(name string, selector func(data Data) string, branches map[string]any, defaultStep any) *Builder {
	if selector == nil {
		panic(fmt.Sprintf("conduit: selector of step %q is nil", name))
	}
	return b.Step(name, Switch(selector, branches, defaultStep))
}

func (b *Builder) group(name string, mode Mode, steps []any) *Builder {
	if name == "" {
		panic("conduit: step name must not be empty")
	}
	if len(steps) == 0 {
		panic(fmt.Sprintf("conduit: group %q has no steps", name))
	}
	for i, step := range steps {
		if isNil(step) {
			panic(fmt.Sprintf("conduit: group %q step #%d is nil", name, i+1))
		}
	}

	b.steps = append(b.steps, func(parent *Context) any {
		return New(
			WithName(name),
			WithMode(mode),
			WithOverwrite(parent.overwrite),
			WithSteps(steps...),
		)
	})
	return b
}

// Build creates a pending Context running the steps in series. opts are
// applied after the builder's name, so WithName can override it.
func (b *Builder) Build(opts ...Option) *Context {
	c := New(append([]Option{WithName(b.name)}, opts...)...)

	steps := make([]any, len(b.steps))
	for i, mk := range b.steps {
		steps[i] = mk(c)
	}
	c.steps = steps
	return c
}

// Run builds a Context and starts it.
func (b *Builder) Run(ctx context.Context, opts ...Option) (*Completion, error) {
	return b.Build(opts...).Run(ctx)
}
