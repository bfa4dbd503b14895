package core

import (
	"context"
)

// Task is the unit of work (Closure)
type Task func(ctx context.Context)

// TaskWithResult is a unit of work that produces a value or an error.
// This is the shape consumed by the bridge and the background registry.
type TaskWithResult[T any] func(ctx context.Context) (T, error)

// =============================================================================
// Ambient Loop Detection
// =============================================================================

type loopKeyType struct{}

var loopKey loopKeyType

// RunningLoop reports the Loop currently executing scheduled work for this
// context, or nil when the caller is not running under a Loop.
//
// Every task a Loop executes receives a context carrying that Loop, so this
// is an explicit state query; no error-driven probing is involved.
func RunningLoop(ctx context.Context) *Loop {
	if ctx == nil {
		return nil
	}
	if v := ctx.Value(loopKey); v != nil {
		return v.(*Loop)
	}
	return nil
}

// WithoutLoop returns a context derived from ctx with the ambient Loop mark
// removed. Values, deadlines and cancellation of ctx still apply.
//
// The bridge uses this for its isolated path, so that work handed to a fresh
// Loop does not observe the caller's Loop as its own.
func WithoutLoop(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	if ctx.Value(loopKey) == nil {
		return ctx
	}
	return detachedLoopContext{ctx}
}

// detachedLoopContext hides the loop key while delegating everything else.
type detachedLoopContext struct {
	context.Context
}

func (c detachedLoopContext) Value(key any) any {
	if key == loopKey {
		return nil
	}
	return c.Context.Value(key)
}
