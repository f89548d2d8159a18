package directives

import (
	"context"
	"fmt"
	"sync"

	arguments "github.com/hanpama/lighthouse/internal/arguments"
	executor "github.com/hanpama/lighthouse/internal/executor"
	language "github.com/hanpama/lighthouse/internal/language"
)

// ResolveFunc resolves one field instance from its bound arguments.
type ResolveFunc func(ctx context.Context, source any, args *arguments.ArgumentSet, info *executor.ResolveInfo) (any, error)

// ArgManipulator rewrites the arguments of a field before it resolves.
type ArgManipulator interface {
	ManipulateArgs(ctx context.Context, d *language.Directive, args *arguments.ArgumentSet, info *executor.ResolveInfo) (*arguments.ArgumentSet, error)
}

// FieldMiddleware wraps the resolver of a field.
type FieldMiddleware interface {
	WrapResolver(d *language.Directive, next ResolveFunc) ResolveFunc
}

// Registry maps directive names to their implementations. A directive may
// implement ArgManipulator, FieldMiddleware or both.
type Registry struct {
	mu    sync.RWMutex
	impls map[string]any
}

func NewRegistry() *Registry {
	return &Registry{impls: make(map[string]any)}
}

// Register binds name to impl. impl must implement ArgManipulator or
// FieldMiddleware.
func (r *Registry) Register(name string, impl any) {
	switch impl.(type) {
	case ArgManipulator, FieldMiddleware:
	default:
		panic(fmt.Sprintf("directives: %T implements no directive interface", impl))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.impls[name] = impl
}

func (r *Registry) lookup(name string) any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.impls[name]
}

// ManipulateArgs runs the argument manipulators among dirs in declaration
// order.
func (r *Registry) ManipulateArgs(ctx context.Context, dirs language.DirectiveList, args *arguments.ArgumentSet, info *executor.ResolveInfo) (*arguments.ArgumentSet, error) {
	for _, d := range dirs {
		m, ok := r.lookup(d.Name).(ArgManipulator)
		if !ok {
			continue
		}
		var err error
		if args, err = m.ManipulateArgs(ctx, d, args, info); err != nil {
			return nil, fmt.Errorf("@%s: %w", d.Name, err)
		}
	}
	return args, nil
}

// Wrap applies the field middleware among dirs. The first directive ends up
// outermost.
func (r *Registry) Wrap(dirs language.DirectiveList, next ResolveFunc) ResolveFunc {
	for i := len(dirs) - 1; i >= 0; i-- {
		if mw, ok := r.lookup(dirs[i].Name).(FieldMiddleware); ok {
			next = mw.WrapResolver(dirs[i], next)
		}
	}
	return next
}

func stringArg(d *language.Directive, name string) (string, error) {
	a := d.Arguments.ForName(name)
	if a == nil || a.Value == nil || a.Value.Kind == language.NullValue {
		return "", fmt.Errorf("missing argument %q", name)
	}
	if a.Value.Kind != language.StringValue && a.Value.Kind != language.BlockValue {
		return "", fmt.Errorf("argument %q must be a string", name)
	}
	return a.Value.Raw, nil
}

func boolArg(d *language.Directive, name string) bool {
	a := d.Arguments.ForName(name)
	return a != nil && a.Value != nil && a.Value.Kind == language.BooleanValue && a.Value.Raw == "true"
}
