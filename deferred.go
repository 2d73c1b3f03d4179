package conduit

import (
	"context"
	"sync"
)

// Deferred is a value that settles later, either to a value or to an error.
//
// Subscribe registers fn to be called exactly once with the settled
// outcome. If the value has already settled, fn may be called before
// Subscribe returns; otherwise it runs on the goroutine that settles it.
//
// A Deferred can be used as a pipeline step (its value is dispatched as
// the next step) or as a value inside a record (it is resolved before the
// record is merged).
type Deferred interface {
	Subscribe(fn func(value any, err error))
}

// Promise is the standard Deferred implementation.
type Promise struct {
	mu      sync.Mutex
	settled bool
	value   any
	err     error
	subs    []func(any, error)
	done    chan struct{}
}

var _ Deferred = (*Promise)(nil)

// NewPromise returns an unsettled Promise.
func NewPromise() *Promise {
	return &Promise{done: make(chan struct{})}
}

// Resolved returns a Promise already settled with v.
func Resolved(v any) *Promise {
	p := NewPromise()
	p.Resolve(v)
	return p
}

// Rejected returns a Promise already settled with err.
func Rejected(err error) *Promise {
	p := NewPromise()
	p.Reject(err)
	return p
}

// Go runs fn on a new goroutine and returns a Promise settled with its
// result. A panic in fn rejects the promise with a *PanicError.
func Go(fn func() (any, error)) *Promise {
	p := NewPromise()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				p.Reject(newPanicError(r))
			}
		}()
		v, err := fn()
		if err != nil {
			p.Reject(err)
			return
		}
		p.Resolve(v)
	}()
	return p
}

// Resolve settles the promise with v. It reports false if the promise was
// already settled.
func (p *Promise) Resolve(v any) bool {
	return p.settle(v, nil)
}

// Reject settles the promise with err. It reports false if the promise was
// already settled.
func (p *Promise) Reject(err error) bool {
	if err == nil {
		err = ErrNilThrow
	}
	return p.settle(nil, err)
}

func (p *Promise) settle(v any, err error) bool {
	p.mu.Lock()
	if p.settled {
		p.mu.Unlock()
		return false
	}
	p.settled = true
	p.value, p.err = v, err
	subs := p.subs
	p.subs = nil
	close(p.done)
	p.mu.Unlock()

	for _, fn := range subs {
		fn(v, err)
	}
	return true
}

// Subscribe calls fn once the promise settles, immediately if it already has.
func (p *Promise) Subscribe(fn func(value any, err error)) {
	p.mu.Lock()
	if !p.settled {
		p.subs = append(p.subs, fn)
		p.mu.Unlock()
		return
	}
	v, err := p.value, p.err
	p.mu.Unlock()
	fn(v, err)
}

// Done is closed once the promise has settled.
func (p *Promise) Done() <-chan struct{} {
	return p.done
}

// Await blocks until the promise settles or ctx is done.
// A settled promise always wins over a done ctx.
func (p *Promise) Await(ctx context.Context) (any, error) {
	select {
	case <-p.done:
		return p.result()
	default:
	}
	select {
	case <-p.done:
		return p.result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *Promise) result() (any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value, p.err
}

type outcome struct {
	value any
	err   error
}

// await waits for any Deferred. A value that is itself Deferred is awaited
// in turn.
func await(ctx context.Context, d Deferred) (any, error) {
	for {
		var res outcome
		if p, ok := d.(*Promise); ok {
			res.value, res.err = p.Await(ctx)
		} else {
			ch := make(chan outcome, 1)
			d.Subscribe(func(value any, err error) {
				ch <- outcome{value: value, err: err}
			})
			select {
			case res = <-ch:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		if res.err != nil {
			return nil, res.err
		}
		next, ok := res.value.(Deferred)
		if !ok {
			return res.value, nil
		}
		d = next
	}
}
