package conduit

import "context"

// Handler receives the Context once it reaches a terminal state.
// Use ContextFunc or ResultFunc.
type Handler interface {
	complete(c *Context)
}

// ContextFunc is a Handler receiving the finished Context.
type ContextFunc func(c *Context)

func (f ContextFunc) complete(c *Context) { f(c) }

// ResultFunc is a Handler receiving the recorded error, nil unless the run
// errored, and a snapshot of the record. A failed run reports a nil error;
// use ContextFunc to tell it apart from success.
type ResultFunc func(err error, data Data)

func (f ResultFunc) complete(c *Context) { f(c.Err(), c.Data()) }

type promiseHandler struct {
	p *Promise
}

func (h promiseHandler) complete(c *Context) {
	if c.Errored() && !c.resolveOnError {
		h.p.Reject(c.Err())
		return
	}
	h.p.Resolve(c)
}

// Completion settles when its Context reaches a terminal state.
type Completion struct {
	c *Context
	p *Promise
}

// Context returns the Context being run.
func (f *Completion) Context() *Context { return f.c }

// Done is closed at the terminal transition.
func (f *Completion) Done() <-chan struct{} { return f.p.Done() }

// Wait blocks until the run finishes or ctx is done. It returns the
// recorded error when the run errored, unless the Context was built with
// WithResolveOnError. Succeeded and Failed runs return a nil error.
func (f *Completion) Wait(ctx context.Context) (*Context, error) {
	if _, err := f.p.Await(ctx); err != nil {
		return f.c, err
	}
	return f.c, nil
}
