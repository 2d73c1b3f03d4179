package conduit

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"strings"
)

// Kind is the classified variant of a step value.
type Kind int

const (
	KindInvalid Kind = iota
	// KindData is a plain record merged into the shared record.
	KindData
	// KindFunc is a function taking the Context. It either drives the
	// pipeline itself or returns a value that is processed as the next step.
	KindFunc
	// KindCallback is a function taking (data, callback).
	KindCallback
	// KindDeferred is a value that settles later.
	KindDeferred
	// KindNested is a *Context used as a step.
	KindNested
)

func (k Kind) String() string {
	switch k {
	case KindData:
		return "data"
	case KindFunc:
		return "func"
	case KindCallback:
		return "callback"
	case KindDeferred:
		return "deferred"
	case KindNested:
		return "nested"
	}
	return "invalid"
}

// Func is a step function that returns a value to process as the next step,
// or nil when it drives the Context itself.
type Func func(c *Context) any

// AsyncFunc is a step function that may block. It runs on its own goroutine;
// once it returns, its result follows the same rules as Func.
type AsyncFunc func(ctx context.Context, c *Context) (any, error)

// Callback settles a callback-style step: a non-nil err raises it, otherwise
// result is merged and the pipeline advances.
type Callback func(err error, result any)

// CallbackFunc is a callback-style step. It receives a snapshot of the
// record and must call done exactly once.
type CallbackFunc func(data Data, done Callback)

// namedStep attaches a display name to a step. It is transparent to
// classification and dispatch.
type namedStep struct {
	name string
	step any
}

// Named returns step with a display name used in errors and observer events.
func Named(name string, step any) any {
	return namedStep{name: name, step: step}
}

func unwrapNamed(step any) (any, string) {
	name := ""
	for {
		n, ok := step.(namedStep)
		if !ok {
			return step, name
		}
		if name == "" {
			name = n.name
		}
		step = n.step
	}
}

// Classify reports which variant step is.
func Classify(step any) Kind {
	step, _ = unwrapNamed(step)
	if isNil(step) {
		return KindInvalid
	}

	switch step.(type) {
	case *Context:
		return KindNested
	case Deferred:
		return KindDeferred
	case Data, map[string]any:
		return KindData
	case func(*Context), Func, func(*Context) any, func(*Context) error,
		AsyncFunc, func(context.Context, *Context) (any, error):
		return KindFunc
	case CallbackFunc, func(Data, Callback), func(Data, func(error, any)):
		return KindCallback
	}
	return KindInvalid
}

// arity reports the declared parameter count of a function value.
func arity(step any) (int, bool) {
	t := reflect.TypeOf(step)
	if t == nil || t.Kind() != reflect.Func {
		return 0, false
	}
	return t.NumIn(), true
}

// invalidReason explains why step is KindInvalid.
func invalidReason(step any) string {
	if isNil(step) {
		return "step is nil"
	}
	if _, ok := step.([]any); ok {
		return "groups may only be nested one level deep"
	}
	if n, ok := arity(step); ok {
		if n < 1 || n > 2 {
			return fmt.Sprintf("step functions must take 1 or 2 arguments, got %d", n)
		}
		return "unsupported step function signature"
	}
	return "unsupported step type"
}

// stepName returns a human readable name for step.
func stepName(step any) string {
	inner, name := unwrapNamed(step)
	if name != "" {
		return name
	}
	if isNil(inner) {
		return "<nil>"
	}
	switch s := inner.(type) {
	case *Context:
		return s.Name()
	case Deferred:
		return "deferred"
	case Data, map[string]any:
		return "data"
	}
	if _, ok := arity(inner); ok {
		fn := runtime.FuncForPC(reflect.ValueOf(inner).Pointer())
		if fn != nil {
			full := fn.Name()
			if i := strings.LastIndex(full, "/"); i >= 0 {
				full = full[i+1:]
			}
			return full
		}
	}
	return fmt.Sprintf("%T", inner)
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Func, reflect.Slice, reflect.Interface, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
