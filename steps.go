package conduit

import (
	"context"
	"time"
)

// Sleep returns a step that waits for d and then advances without data.
// It gives up with the run's context error if the run is cancelled.
func Sleep(d time.Duration) AsyncFunc {
	return func(ctx context.Context, c *Context) (any, error) {
		if d > 0 {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-t.C:
			}
		}
		return Data{}, nil
	}
}

// Transform returns a step computing a partial record from a snapshot of
// the current one. The result is merged and the pipeline advances.
func Transform(fn func(ctx context.Context, data Data) (Data, error)) AsyncFunc {
	return func(ctx context.Context, c *Context) (any, error) {
		out, err := fn(ctx, c.Data())
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = Data{}
		}
		return out, nil
	}
}

// Set returns a step storing the result of fn under key.
func Set(key string, fn func(ctx context.Context, data Data) (any, error)) AsyncFunc {
	return Transform(func(ctx context.Context, data Data) (Data, error) {
		v, err := fn(ctx, data)
		if err != nil {
			return nil, err
		}
		return Data{key: v}, nil
	})
}

// If returns a step that runs thenStep when cond holds for the current
// record and elseStep otherwise. A nil branch just advances.
func If(cond func(data Data) bool, thenStep, elseStep any) Func {
	return func(c *Context) any {
		step := elseStep
		if cond(c.Data()) {
			step = thenStep
		}
		if isNil(step) {
			return Data{}
		}
		return step
	}
}

// Switch returns a step that runs the branch named by selector, or
// defaultStep when no branch matches. A nil defaultStep just advances.
func Switch(selector func(data Data) string, branches map[string]any, defaultStep any) Func {
	return func(c *Context) any {
		step, ok := branches[selector(c.Data())]
		if !ok {
			step = defaultStep
		}
		if isNil(step) {
			return Data{}
		}
		return step
	}
}
