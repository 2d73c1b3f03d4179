package conduit

import (
	"context"
	"maps"
	"slices"

	"golang.org/x/sync/errgroup"
)

// merge resolves deferred values in partial and writes it into the record.
// The write is all or nothing: with overwrite disabled, the first colliding
// key in sorted order aborts the merge and nothing is written.
func (c *Context) merge(partial Data) error {
	resolved, err := resolveData(c.ctx, partial)
	if err != nil {
		return err
	}

	keys := slices.Sorted(maps.Keys(resolved))

	c.mu.Lock()
	if c.state != StateRunning {
		c.mu.Unlock()
		return ErrFinished
	}
	if !c.overwrite {
		for _, k := range keys {
			if _, exists := c.data[k]; exists {
				c.mu.Unlock()
				return &CollisionError{Key: k}
			}
		}
	}
	for _, k := range keys {
		c.data[k] = resolved[k]
	}
	ctx := c.ctx
	c.mu.Unlock()

	c.obs().OnDataMerged(ctx, c.self, keys)
	return nil
}

// resolveData returns a copy of partial with every Deferred value replaced
// by what it settled to. Values are awaited concurrently; the first
// rejection wins.
func resolveData(ctx context.Context, partial Data) (Data, error) {
	out := maps.Clone(partial)

	var pending []string
	for k, v := range out {
		if _, ok := v.(Deferred); ok && !isNil(v) {
			pending = append(pending, k)
		}
	}
	if len(pending) == 0 {
		return out, nil
	}

	values := make([]any, len(pending))
	g, gctx := errgroup.WithContext(ctx)
	for i, k := range pending {
		d := out[k].(Deferred)
		g.Go(func() error {
			v, err := await(gctx, d)
			if err != nil {
				return err
			}
			values[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, k := range pending {
		out[k] = values[i]
	}
	return out, nil
}
