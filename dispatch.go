package conduit

import (
	"context"
	"fmt"
	"runtime/debug"
)

// StepInfo describes a dispatched step.
type StepInfo struct {
	// Index is the 0-based position of the step in its Context.
	Index int
	Name  string
	Kind  Kind
}

func newPanicError(r any) *PanicError {
	return &PanicError{Value: r, Stack: debug.Stack()}
}

func (c *Context) dispatch(step any, index int) {
	info := StepInfo{Index: index, Name: stepName(step), Kind: Classify(step)}
	c.obs().OnStepDispatch(c.ctx, c.self, info)
	c.process(step, info)
}

// process executes one step value. It is re-entered with the value a
// function step returned or a deferred step settled to.
func (c *Context) process(step any, info StepInfo) {
	defer func() {
		if r := recover(); r != nil {
			c.fault(newPanicError(r), &info)
		}
	}()

	step, _ = unwrapNamed(step)
	info.Kind = Classify(step)

	switch info.Kind {
	case KindDeferred:
		c.processDeferred(step.(Deferred), info)
	case KindNested:
		c.processNested(step.(*Context), info)
	case KindData:
		data, _ := step.(Data)
		if m, ok := step.(map[string]any); ok {
			data = Data(m)
		}
		_ = c.next(data, &info)
	case KindCallback:
		c.processCallback(step, info)
	case KindFunc:
		c.processFunc(step, info)
	default:
		c.fault(&InvalidStepError{
			Name:   info.Name,
			Kind:   info.Kind,
			Type:   fmt.Sprintf("%T", step),
			Reason: invalidReason(step),
		}, &info)
	}
}

func (c *Context) processDeferred(d Deferred, info StepInfo) {
	d.Subscribe(func(value any, err error) {
		switch {
		case err != nil:
			c.fault(err, &info)
		case value == nil:
			_ = c.next(nil, &info)
		default:
			c.process(value, info)
		}
	})
}

func (c *Context) processNested(nested *Context, info StepInfo) {
	nested.adopt(c)

	comp, err := nested.Run(c.ctx)
	if err != nil {
		c.fault(err, &info)
		return
	}
	comp.p.Subscribe(func(any, error) {
		switch nested.State() {
		case StateSucceeded:
			_ = c.next(nested.Data(), &info)
		case StateFailed:
			c.fault(nested.Failure(), &info)
		default:
			c.fault(nested.Err(), &info)
		}
	})
}

func (c *Context) processCallback(step any, info StepInfo) {
	data := c.Data()
	done := c.wrap("", &info)

	switch fn := step.(type) {
	case CallbackFunc:
		fn(data, done)
	case func(Data, Callback):
		fn(data, done)
	case func(Data, func(error, any)):
		fn(data, done)
	}
}

func (c *Context) processFunc(step any, info StepInfo) {
	before := c.advances.Load()

	var result any
	switch fn := step.(type) {
	case func(*Context):
		fn(c)
	case Func:
		result = fn(c)
	case func(*Context) any:
		result = fn(c)
	case func(*Context) error:
		if err := fn(c); err != nil {
			c.fault(err, &info)
			return
		}
	case AsyncFunc:
		c.processAsync(fn, before, info)
		return
	case func(context.Context, *Context) (any, error):
		c.processAsync(fn, before, info)
		return
	}
	c.settle(before, result, info)
}

func (c *Context) processAsync(fn AsyncFunc, before int64, info StepInfo) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				c.fault(newPanicError(r), &info)
			}
		}()

		result, err := fn(c.ctx, c)
		if err != nil {
			c.fault(err, &info)
			return
		}
		c.settle(before, result, info)
	}()
}

// settle decides what happens after a function step returned. If the step
// already moved the pipeline, or returned nothing, it is left alone;
// otherwise the returned value is processed as the next step.
func (c *Context) settle(before int64, result any, info StepInfo) {
	if c.Finished() || c.advances.Load() != before || isNil(result) {
		return
	}
	c.process(result, info)
}
