package resolver

import (
	"context"
	"sync"

	arguments "github.com/hanpama/lighthouse/internal/arguments"
	directives "github.com/hanpama/lighthouse/internal/directives"
	executor "github.com/hanpama/lighthouse/internal/executor"
	schema "github.com/hanpama/lighthouse/internal/schema"
)

// BatchItem is one field instance handed to a BatchFunc.
type BatchItem struct {
	Source any
	Args   *arguments.ArgumentSet
	Info   *executor.ResolveInfo
}

// BatchFunc resolves every instance of one field collected at an execution
// depth. It returns one value per item, in order. A value that is an error
// fails its item only; a non-nil error fails the whole batch.
type BatchFunc func(ctx context.Context, items []BatchItem) ([]any, error)

// TypeResolver names the concrete object type of a value of an abstract type.
type TypeResolver func(ctx context.Context, value any) (string, error)

// Registry holds the resolvers of a schema.
//
// Fields of the root types are registered under a namespace. A root field
// looks up each namespace configured for its root type in order, then the
// schema's own root type name. Other fields are registered under their
// object type name.
type Registry struct {
	mu         sync.RWMutex
	namespaces schema.RootNamespaces
	fields     map[fieldKey]directives.ResolveFunc
	batches    map[fieldKey]BatchFunc
	types      map[string]TypeResolver
}

type fieldKey struct {
	owner string
	field string
}

func NewRegistry(namespaces schema.RootNamespaces) *Registry {
	return &Registry{
		namespaces: namespaces,
		fields:     make(map[fieldKey]directives.ResolveFunc),
		batches:    make(map[fieldKey]BatchFunc),
		types:      make(map[string]TypeResolver),
	}
}

// Register binds fn to field of owner, a type name or root namespace.
func (r *Registry) Register(owner, field string, fn directives.ResolveFunc) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fields[fieldKey{owner, field}] = fn
	return r
}

// RegisterBatch binds a batch resolver to field of owner. Only fields the
// executor resolves asynchronously reach batch resolvers.
func (r *Registry) RegisterBatch(owner, field string, fn BatchFunc) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches[fieldKey{owner, field}] = fn
	return r
}

// RegisterType binds the type resolver of an interface or union.
func (r *Registry) RegisterType(abstractType string, fn TypeResolver) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[abstractType] = fn
	return r
}

// owners lists the keys a field of typeName is looked up under. root is the
// canonical root type name (schema.RootQuery, ...) or empty.
func (r *Registry) owners(typeName, root string) []string {
	if root == "" {
		return []string{typeName}
	}
	return append(r.namespaces.DefaultNamespaces(root), typeName)
}

// Resolver returns the resolver registered for field.
func (r *Registry) Resolver(typeName, root, field string) (directives.ResolveFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, owner := range r.owners(typeName, root) {
		if fn, ok := r.fields[fieldKey{owner, field}]; ok {
			return fn, true
		}
	}
	return nil, false
}

// Batch returns the batch resolver registered for field.
func (r *Registry) Batch(typeName, root, field string) (BatchFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, owner := range r.owners(typeName, root) {
		if fn, ok := r.batches[fieldKey{owner, field}]; ok {
			return fn, true
		}
	}
	return nil, false
}

func (r *Registry) typeResolver(abstractType string) (TypeResolver, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.types[abstractType]
	return fn, ok
}

// Echo resolves a field to its supplied arguments. It backs root fields
// without a resolver when echo mode is on.
func Echo(_ context.Context, _ any, args *arguments.ArgumentSet, _ *executor.ResolveInfo) (any, error) {
	return args.ToArray(), nil
}
