package conduit

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Data is the record a pipeline builds incrementally.
type Data map[string]any

// Context runs a sequence of steps, in series or in parallel, against a
// single shared record and ends in exactly one terminal state.
//
// Steps receive the *Context they run in and drive it with Next, Succeed,
// Fail and Throw. Parallel siblings each receive their own handle onto
// the same run; handles only differ in which calls they have observed.
type Context struct {
	*run

	// advances counts Next and terminal calls made through this handle.
	advances atomic.Int64
}

type run struct {
	self *Context

	id             string
	name           string
	mode           Mode
	overwrite      bool
	resolveOnError bool
	observer       Observer

	// group is set on contexts created from a []any step. Their own
	// []any steps are left to fail as invalid.
	group bool

	mu         sync.Mutex
	ctx        context.Context
	state      State
	data       Data
	steps      []any
	index      int
	completed  int
	err        error
	failure    error
	handler    Handler
	parent     *Context
	startedAt  time.Time
	finishedAt time.Time
}

// New creates a pending Context. By default it runs in series, starts
// with an empty record and lets later writes overwrite earlier ones.
func New(opts ...Option) *Context {
	c := &Context{run: &run{
		id:        uuid.NewString(),
		mode:      ModeSeries,
		overwrite: true,
		state:     StatePending,
		data:      make(Data),
	}}
	c.self = c
	for _, opt := range opts {
		opt(c)
	}
	if c.name == "" {
		c.name = strings.ToLower(string(c.mode))
	}
	return c
}

// lane returns a new handle onto the same run.
func (c *Context) lane() *Context {
	return &Context{run: c.run}
}

// Run starts the Context and returns a Completion that settles at the
// terminal transition. Steps passed here replace those given to WithSteps.
//
// Run only fails synchronously on structural misuse: ErrAlreadyRun,
// ErrNoSteps or a *MissingStepError. Everything that goes wrong inside a
// step is reported through the Completion and the Context state.
func (c *Context) Run(ctx context.Context, steps ...any) (*Completion, error) {
	comp := &Completion{c: c.self, p: NewPromise()}
	if err := c.start(ctx, steps, promiseHandler{p: comp.p}); err != nil {
		return nil, err
	}
	return comp, nil
}

// RunWith starts the Context and invokes h exactly once at the terminal
// transition.
func (c *Context) RunWith(ctx context.Context, h Handler, steps ...any) error {
	return c.start(ctx, steps, h)
}

func (c *Context) start(ctx context.Context, steps []any, h Handler) error {
	if ctx == nil {
		ctx = context.Background()
	}

	c.mu.Lock()
	if c.state != StatePending {
		c.mu.Unlock()
		return ErrAlreadyRun
	}
	if len(steps) == 0 {
		steps = c.steps
	}
	if len(steps) == 0 {
		c.mu.Unlock()
		return ErrNoSteps
	}

	prepared := make([]any, len(steps))
	for i, step := range steps {
		inner, name := unwrapNamed(step)
		if isNil(inner) {
			c.mu.Unlock()
			return &MissingStepError{Index: i + 1}
		}
		if group, ok := inner.([]any); ok && !c.group {
			if name == "" {
				name = fmt.Sprintf("%s.group%d", c.name, i+1)
			}
			g := New(
				WithName(name),
				WithMode(ModeParallel),
				WithOverwrite(c.overwrite),
				WithObserver(c.observer),
				WithSteps(group...),
			)
			g.group = true
			step = g
		}
		prepared[i] = step
	}

	c.steps = prepared
	c.handler = h
	c.ctx = ctx
	c.state = StateRunning
	c.startedAt = time.Now()
	c.mu.Unlock()

	c.obs().OnRunStart(ctx, c.self)

	go c.kickoff()
	return nil
}

func (c *Context) kickoff() {
	if c.mode == ModeParallel {
		for i, step := range c.steps {
			go c.lane().dispatch(step, i)
		}
		return
	}
	_ = c.advance()
}

// Next merges data into the record and moves the pipeline forward: in
// series it dispatches the next step or succeeds after the last one; in
// parallel it counts one completed sibling and succeeds after the last.
//
// A failed merge moves the Context to StateErrored and is returned.
func (c *Context) Next(data Data) error {
	return c.next(data, nil)
}

func (c *Context) next(data Data, info *StepInfo) error {
	if err := c.checkRunning(); err != nil {
		return err
	}
	c.advances.Add(1)

	if len(data) > 0 {
		if err := c.merge(data); err != nil {
			if !errors.Is(err, ErrFinished) {
				c.fault(err, info)
			}
			return err
		}
	}
	return c.advance()
}

func (c *Context) advance() error {
	c.mu.Lock()
	if c.state != StateRunning {
		c.mu.Unlock()
		return ErrFinished
	}

	if c.mode == ModeParallel {
		c.completed++
		done := c.completed == len(c.steps)
		c.mu.Unlock()
		if done {
			return c.finish(StateSucceeded, nil)
		}
		return nil
	}

	if c.index >= len(c.steps) {
		c.mu.Unlock()
		return c.finish(StateSucceeded, nil)
	}
	i := c.index
	step := c.steps[i]
	c.index++
	c.mu.Unlock()

	c.dispatch(step, i)
	return nil
}

// Succeed merges data, if any, and ends the run as StateSucceeded no
// matter how many steps are left. Remaining steps never run.
func (c *Context) Succeed(data Data) error {
	if err := c.checkRunning(); err != nil {
		return err
	}
	c.advances.Add(1)

	if len(data) > 0 {
		if err := c.merge(data); err != nil {
			if !errors.Is(err, ErrFinished) {
				_ = c.finish(StateErrored, err)
			}
			return err
		}
	}
	return c.finish(StateSucceeded, nil)
}

// Fail ends the run as StateFailed. Non-error values are wrapped in a
// *FailureError. Failed is an expected outcome: the Completion resolves.
func (c *Context) Fail(failure any) error {
	if err := c.checkRunning(); err != nil {
		return err
	}
	c.advances.Add(1)
	return c.finish(StateFailed, asFailure(failure))
}

// Throw ends the run as StateErrored with err. Unless the Context was
// built with WithResolveOnError, the Completion rejects with err.
func (c *Context) Throw(err error) error {
	if err := c.checkRunning(); err != nil {
		return err
	}
	c.advances.Add(1)
	if err == nil {
		err = ErrNilThrow
	}
	return c.finish(StateErrored, err)
}

// Wrap returns a callback bridging (err, result) style code into the
// pipeline: a non-nil err is thrown, otherwise result is passed to Next.
// With a non-empty key, result is stored under that key; without one it
// must be a record. Only the first call has any effect.
func (c *Context) Wrap(key string) Callback {
	return c.wrap(key, nil)
}

func (c *Context) wrap(key string, info *StepInfo) Callback {
	var called atomic.Bool
	return func(err error, result any) {
		if !called.CompareAndSwap(false, true) {
			return
		}
		if err != nil {
			c.fault(err, info)
			return
		}
		data, err := toRecord(result, key)
		if err != nil {
			c.fault(err, info)
			return
		}
		_ = c.next(data, info)
	}
}

func toRecord(result any, key string) (Data, error) {
	if key != "" {
		return Data{key: result}, nil
	}
	switch r := result.(type) {
	case nil:
		return nil, nil
	case Data:
		return r, nil
	case map[string]any:
		return Data(r), nil
	}
	return nil, fmt.Errorf("conduit: callback result of type %T is not a record", result)
}

func (c *Context) checkRunning() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.state == StatePending:
		return ErrNotRunning
	case c.state.IsTerminal():
		return ErrFinished
	}
	return nil
}

// finish performs the one terminal transition of the run.
func (c *Context) finish(state State, err error) error {
	c.mu.Lock()
	if c.state != StateRunning {
		c.mu.Unlock()
		return ErrFinished
	}
	c.state = state
	switch state {
	case StateErrored:
		c.err = err
	case StateFailed:
		c.failure = err
	}
	c.finishedAt = time.Now()
	h := c.handler
	c.handler = nil
	ctx := c.ctx
	c.mu.Unlock()

	c.obs().OnRunFinish(ctx, c.self)
	if h != nil {
		h.complete(c.self)
	}
	return nil
}

// fault ends the run as StateErrored, attributing err to the step
// described by info when there is one.
func (c *Context) fault(err error, info *StepInfo) {
	if info != nil {
		if _, invalid := err.(*InvalidStepError); !invalid {
			err = &StepError{Step: info.Name, Index: info.Index, Kind: info.Kind, Err: err}
		}
	}
	c.advances.Add(1)
	_ = c.finish(StateErrored, err)
}

// adopt prepares a pending nested Context to run under parent.
func (c *Context) adopt(parent *Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StatePending {
		return
	}
	c.parent = parent.self
	if c.observer == nil {
		c.observer = parent.observer
	}
}

func (c *Context) obs() Observer {
	if c.observer == nil {
		return NoopObserver{}
	}
	return c.observer
}

// ID returns the unique run ID.
func (c *Context) ID() string { return c.id }

// Name returns the display name of the Context.
func (c *Context) Name() string { return c.name }

// Mode returns the execution mode.
func (c *Context) Mode() Mode { return c.mode }

// State returns the current lifecycle state.
func (c *Context) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the error recorded when the Context errored.
func (c *Context) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Failure returns the failure recorded by Fail.
func (c *Context) Failure() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failure
}

// Data returns a snapshot of the record.
func (c *Context) Data() Data {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.data)
}

// Get returns the value stored under key.
func (c *Context) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok
}

// Has reports whether key is present in the record.
func (c *Context) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Parent returns the Context that dispatched this one as a nested step,
// or nil.
func (c *Context) Parent() *Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.parent
}

// Len returns the number of steps of the run.
func (c *Context) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.steps)
}

// StartedAt returns when Run was called, or the zero time.
func (c *Context) StartedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startedAt
}

// FinishedAt returns when the terminal transition happened, or the zero time.
func (c *Context) FinishedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finishedAt
}

func (c *Context) Pending() bool   { return c.State() == StatePending }
func (c *Context) Running() bool   { return c.State() == StateRunning }
func (c *Context) Errored() bool   { return c.State() == StateErrored }
func (c *Context) Failed() bool    { return c.State() == StateFailed }
func (c *Context) Succeeded() bool { return c.State() == StateSucceeded }
func (c *Context) Finished() bool  { return c.State().IsTerminal() }
