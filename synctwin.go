package loopbridge

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// SyncTwin builds the blocking twin of a scheduled method. The twin invokes
// the original method as a unit of work and feeds it through the bridge, so
// it can be called from plain blocking code (pass context.Background()) as
// well as from inside scheduled code (pass the task context; the bridge then
// takes its isolated path).
//
// The original method is untouched: calling it directly behaves exactly as
// before. Types typically install twins as struct fields at construction:
//
//	type Incrementer struct {
//		Incr func(ctx context.Context, x int) (int, error)
//	}
//
//	func NewIncrementer() *Incrementer {
//		inc := &Incrementer{}
//		inc.Incr = loopbridge.SyncTwin(inc.incrAsync)
//		return inc
//	}
func SyncTwin[A, R any](method func(ctx context.Context, arg A) (R, error)) func(ctx context.Context, arg A) (R, error) {
	return func(ctx context.Context, arg A) (R, error) {
		return RunToCompletion(ctx, func(taskCtx context.Context) (R, error) {
			return method(taskCtx, arg)
		})
	}
}

// twinFunc is the type-erased form of an installed twin.
type twinFunc func(ctx context.Context, arg any) (any, error)

// TwinBuilder collects twin declarations for one type. Register twins while
// constructing the type, then Build the immutable set.
type TwinBuilder struct {
	mu    sync.Mutex
	twins map[string]twinFunc
	built bool
}

// NewTwinBuilder creates an empty builder.
func NewTwinBuilder() *TwinBuilder {
	return &TwinBuilder{twins: make(map[string]twinFunc)}
}

// RegisterTwin declares that method should gain a blocking twin callable
// under name. Registering a name twice returns ErrDuplicateTwin; this module
// refuses silent last-wins semantics for conflicting declarations.
func RegisterTwin[A, R any](b *TwinBuilder, name string, method func(ctx context.Context, arg A) (R, error)) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidTwinName
	}
	if method == nil {
		return fmt.Errorf("%w: nil method for %q", ErrInvalidTwinName, name)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.built {
		return ErrTwinSetBuilt
	}
	if _, exists := b.twins[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateTwin, name)
	}

	b.twins[name] = func(ctx context.Context, arg any) (any, error) {
		typed, ok := arg.(A)
		if !ok {
			var want A
			return nil, fmt.Errorf("%w: twin %q wants %T, got %T", ErrTwinArgument, name, want, arg)
		}
		return RunToCompletion(ctx, func(taskCtx context.Context) (any, error) {
			value, err := method(taskCtx, typed)
			return value, err
		})
	}
	return nil
}

// MustRegisterTwin is RegisterTwin but panics on error. Intended for
// construction-time wiring where a failure is a programming mistake.
func MustRegisterTwin[A, R any](b *TwinBuilder, name string, method func(ctx context.Context, arg A) (R, error)) {
	if err := RegisterTwin(b, name, method); err != nil {
		panic(err)
	}
}

// Build finalizes the declarations into an immutable TwinSet. The builder
// rejects further registrations afterwards.
func (b *TwinBuilder) Build() *TwinSet {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.built = true
	twins := make(map[string]twinFunc, len(b.twins))
	for name, fn := range b.twins {
		twins[name] = fn
	}
	return &TwinSet{twins: twins}
}

// TwinSet is the installed table of blocking twins for one type. It is
// immutable and safe for concurrent use.
type TwinSet struct {
	twins map[string]twinFunc
}

// Call invokes the twin registered under name with arg, driving the
// underlying scheduled method to completion through the bridge. The method's
// error, if any, is returned unmodified.
func (s *TwinSet) Call(ctx context.Context, name string, arg any) (any, error) {
	fn, ok := s.twins[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTwin, name)
	}
	return fn(ctx, arg)
}

// Has reports whether a twin is installed under name.
func (s *TwinSet) Has(name string) bool {
	_, ok := s.twins[name]
	return ok
}

// Names returns the installed twin names in sorted order.
func (s *TwinSet) Names() []string {
	names := make([]string, 0, len(s.twins))
	for name := range s.twins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
