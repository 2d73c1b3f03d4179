package conduit

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyRun is returned by Run and RunWith when the Context has
	// already been started. A Context runs exactly once.
	ErrAlreadyRun = errors.New("conduit: already run")

	// ErrNoSteps is returned when a run is started without any steps.
	ErrNoSteps = errors.New("conduit: no steps defined")

	// ErrNotRunning is returned by Next, Succeed, Fail and Throw when the
	// Context has not been started yet.
	ErrNotRunning = errors.New("conduit: context is not running")

	// ErrFinished is returned by Next, Succeed, Fail and Throw when the
	// Context already reached a terminal state. The call has no effect.
	ErrFinished = errors.New("conduit: context already finished")

	// ErrNilThrow is recorded when Throw is called with a nil error.
	ErrNilThrow = errors.New("conduit: nil error thrown")
)

// MissingStepError reports an absent step slot at start time.
// Index is 1-based, as shown to humans.
type MissingStepError struct {
	Index int
}

func (e *MissingStepError) Error() string {
	return fmt.Sprintf("conduit: step #%d does not exist", e.Index)
}

// CollisionError is returned when a merge writes a key that already exists
// in the record of a Context constructed with overwrite disabled.
type CollisionError struct {
	Key string
}

func (e *CollisionError) Error() string {
	return "conduit: key already exists: " + e.Key
}

// InvalidStepError reports a step value that cannot be dispatched.
type InvalidStepError struct {
	Name   string
	Kind   Kind
	Type   string
	Reason string
}

func (e *InvalidStepError) Error() string {
	return fmt.Sprintf("conduit: invalid pipeline step %s (%s, %s): %s", e.Name, e.Type, e.Kind, e.Reason)
}

// StepError wraps an error raised while a step was executing: a returned
// error, a rejected deferred value, a nested run that errored, or a
// recovered panic.
type StepError struct {
	Step  string
	Index int
	Kind  Kind
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("conduit: step %q (#%d): %v", e.Step, e.Index+1, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// PanicError carries a value recovered from a panicking step.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes the panic value when it is itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// FailureError wraps a non-error value passed to Fail.
type FailureError struct {
	Value any
}

func (e *FailureError) Error() string {
	if e.Value == nil {
		return "conduit: failed"
	}
	return fmt.Sprintf("conduit: failed: %v", e.Value)
}

func asFailure(v any) error {
	if err, ok := v.(error); ok && err != nil {
		return err
	}
	return &FailureError{Value: v}
}
