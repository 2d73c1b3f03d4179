package conduit

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParallelMergesAllSiblings(t *testing.T) {
	t.Parallel()

	steps := make([]any, 10)
	for i := range steps {
		key := fmt.Sprintf("k%d", i)
		steps[i] = AsyncFunc(func(ctx context.Context, c *Context) (any, error) {
			time.Sleep(time.Duration(10-i) * time.Millisecond)
			return Data{key: i}, nil
		})
	}

	c, err := mustRun(t)(RunParallel(context.Background(), steps...))
	require.NoError(t, err)
	require.True(t, c.Succeeded())
	require.Len(t, c.Data(), 10)
	for i := range steps {
		require.Equal(t, i, c.Data()[fmt.Sprintf("k%d", i)])
	}
}

func TestParallelFinishesOnce(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := Parallel(
		Data{"a": 1},
		Sleep(5*time.Millisecond),
		func(c *Context) { _ = c.Next(Data{"b": 2}) },
	)
	require.NoError(t, c.RunWith(context.Background(), ContextFunc(func(*Context) {
		calls.Add(1)
	})))

	require.Eventually(t, func() bool { return calls.Load() == 1 }, 5*time.Second, time.Millisecond)
	require.Never(t, func() bool { return calls.Load() > 1 }, 50*time.Millisecond, 5*time.Millisecond)
	require.Equal(t, Data{"a": 1, "b": 2}, c.Data())
}

func TestParallelSiblingsHaveOwnAdvanceCount(t *testing.T) {
	t.Parallel()

	c, err := mustRun(t)(RunParallel(context.Background(),
		func(c *Context) any {
			time.Sleep(20 * time.Millisecond)
			return Data{"b": 2}
		},
		func(c *Context) { _ = c.Next(Data{"a": 1}) },
	))
	require.NoError(t, err)
	require.Equal(t, Data{"a": 1, "b": 2}, c.Data(),
		"a sibling advancing must not suppress another sibling's result")
}

func TestParallelLateCallsAfterFail(t *testing.T) {
	t.Parallel()

	late := make(chan error, 1)
	c, err := mustRun(t)(RunParallel(context.Background(),
		func(c *Context) { _ = c.Fail("no") },
		func(c *Context) {
			go func() {
				time.Sleep(20 * time.Millisecond)
				late <- c.Next(Data{"x": 1})
			}()
		},
	))
	require.NoError(t, err)
	require.True(t, c.Failed())

	select {
	case err := <-late:
		require.ErrorIs(t, err, ErrFinished)
	case <-time.After(5 * time.Second):
		t.Fatal("late sibling did not report")
	}
	require.False(t, c.Has("x"))
}

func TestNestedCompositionOrdering(t *testing.T) {
	t.Parallel()

	var seq atomic.Int32
	slow := func(key string) AsyncFunc {
		return func(ctx context.Context, c *Context) (any, error) {
			time.Sleep(10 * time.Millisecond)
			return Data{key: seq.Add(1)}, nil
		}
	}
	record := func(key string) func(*Context) {
		return func(c *Context) { _ = c.Next(Data{key: seq.Add(1)}) }
	}

	c, err := mustRun(t)(RunSeries(context.Background(),
		Parallel(slow("p1"), slow("p2")),
		Series(record("s1"), record("s2")),
	))
	require.NoError(t, err)

	data := c.Data()
	require.ElementsMatch(t, []any{int32(1), int32(2)}, []any{data["p1"], data["p2"]})
	require.Equal(t, int32(3), data["s1"])
	require.Equal(t, int32(4), data["s2"])
}

func TestNestedRunHasOwnRecordAndParent(t *testing.T) {
	t.Parallel()

	var sawOuter atomic.Bool
	nested := Series(
		func(c *Context) {
			sawOuter.Store(c.Has("outer"))
			_ = c.Next(Data{"inner": 1})
		},
	)
	outer := New(WithName("outer"))

	_, err := mustRun(t)(outer.Run(context.Background(), Data{"outer": true}, nested))
	require.NoError(t, err)
	require.False(t, sawOuter.Load(), "a nested run starts from its own record")
	require.Same(t, outer, nested.Parent())
	require.Nil(t, outer.Parent())
	require.Equal(t, Data{"outer": true, "inner": 1}, outer.Data())
	require.True(t, nested.Succeeded())
}

func TestNestedFailurePropagates(t *testing.T) {
	t.Parallel()

	c, err := mustRun(t)(RunSeries(context.Background(),
		Named("inner", Series(func(c *Context) { _ = c.Fail("inner") })),
		Data{"after": 1},
	))
	require.Error(t, err)
	require.True(t, c.Errored(), "a nested failure is an error of the outer run")
	require.Nil(t, c.Failure())
	require.False(t, c.Has("after"))

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	require.Equal(t, "inner", stepErr.Step)
	require.Equal(t, KindNested, stepErr.Kind)

	var failure *FailureError
	require.ErrorAs(t, c.Err(), &failure)
	require.Equal(t, "inner", failure.Value)
}

func TestNestedParallelFailurePropagates(t *testing.T) {
	t.Parallel()

	c, err := mustRun(t)(RunSeries(context.Background(),
		[]any{
			Data{"a": 1},
			func(c *Context) { _ = c.Fail("sibling") },
		},
		Data{"after": 1},
	))
	require.Error(t, err)
	require.True(t, c.Errored())
	require.False(t, c.Has("after"))

	var failure *FailureError
	require.ErrorAs(t, err, &failure)
	require.Equal(t, "sibling", failure.Value)
}

func TestNestedErrorPropagates(t *testing.T) {
	t.Parallel()

	c, err := mustRun(t)(RunSeries(context.Background(),
		Named("inner", Series(func(c *Context) error { return errBoom })),
	))
	require.ErrorIs(t, err, errBoom)
	require.True(t, c.Errored())

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	require.Equal(t, "inner", stepErr.Step)
	require.Equal(t, KindNested, stepErr.Kind)
}

func TestNestedContextRunsOnlyOnce(t *testing.T) {
	t.Parallel()

	nested := Series(Data{"a": 1})
	_, err := mustRun(t)(nested.Run(context.Background()))
	require.NoError(t, err)

	_, err = mustRun(t)(RunSeries(context.Background(), nested))
	require.ErrorIs(t, err, ErrAlreadyRun)
}

func TestGroupsRunAsParallelContexts(t *testing.T) {
	t.Parallel()

	var seenGroup atomic.Bool
	c, err := mustRun(t)(RunSeries(context.Background(),
		Data{"a": 1},
		[]any{
			Data{"b": 2},
			func(c *Context) { _ = c.Next(Data{"c": 3}) },
		},
		func(c *Context) {
			seenGroup.Store(c.Has("b") && c.Has("c"))
			_ = c.Next(nil)
		},
	))
	require.NoError(t, err)
	require.True(t, seenGroup.Load(), "the group must finish before the next step")
	require.Equal(t, Data{"a": 1, "b": 2, "c": 3}, c.Data())
}

func TestGroupsFromWithSteps(t *testing.T) {
	t.Parallel()

	c := New(WithSteps([]any{Data{"x": 1}, Data{"y": 2}}))
	_, err := mustRun(t)(c.Run(context.Background()))
	require.NoError(t, err)
	require.Equal(t, Data{"x": 1, "y": 2}, c.Data())
}

func TestGroupsInheritOverwrite(t *testing.T) {
	t.Parallel()

	c := New(WithOverwrite(false))
	_, err := mustRun(t)(c.Run(context.Background(),
		[]any{Data{"a": 1}, Sleep(5 * time.Millisecond), func(c *Context) {
			time.Sleep(time.Millisecond)
			_ = c.Next(Data{"a": 2})
		}},
	))
	var collision *CollisionError
	require.ErrorAs(t, err, &collision)
	require.Equal(t, "a", collision.Key)
}

func TestGroupsNestOneLevel(t *testing.T) {
	t.Parallel()

	_, err := mustRun(t)(RunSeries(context.Background(),
		[]any{Data{"a": 1}, []any{Data{"b": 2}}},
	))
	var invalid *InvalidStepError
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, "groups may only be nested one level deep", invalid.Reason)
}
