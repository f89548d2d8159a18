package resolver

import (
	"context"
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	arguments "github.com/hanpama/lighthouse/internal/arguments"
	directives "github.com/hanpama/lighthouse/internal/directives"
	executor "github.com/hanpama/lighthouse/internal/executor"
	scalars "github.com/hanpama/lighthouse/internal/scalars"
	schema "github.com/hanpama/lighthouse/internal/schema"
	subscriptions "github.com/hanpama/lighthouse/internal/subscriptions"
)

// Runtime implements executor.Runtime on top of a Registry.
//
// Every field runs the same pipeline: its coerced arguments are bound into
// an ArgumentSet, argument directives rewrite the set, @spread and @rename
// are applied and the resolver runs wrapped in the field's middleware
// directives. The resolver is, in order of preference, the subscription
// registry for Subscription root fields, a registered resolver, Echo for
// root fields when echo mode is on, or Property.
//
// BatchResolveAsync groups tasks by (objectType, field) and runs groups
// concurrently. Results keep task order; a panicking group fails only its
// own tasks.
type Runtime struct {
	schema        *schema.Schema
	registry      *Registry
	builder       *arguments.Builder
	directives    *directives.Registry
	subscriptions *subscriptions.Registry
	scalars       *scalars.Registry
	echo          bool
	limit         int
	log           *zap.Logger
}

var _ executor.Runtime = (*Runtime)(nil)

type Option func(*Runtime)

func WithDirectives(d *directives.Registry) Option { return func(r *Runtime) { r.directives = d } }

func WithSubscriptions(s *subscriptions.Registry) Option {
	return func(r *Runtime) { r.subscriptions = s }
}

func WithScalars(s *scalars.Registry) Option { return func(r *Runtime) { r.scalars = s } }

// WithEcho makes root fields without a resolver return their arguments.
func WithEcho(v bool) Option { return func(r *Runtime) { r.echo = v } }

// WithConcurrency bounds the number of batch groups resolved at once.
// n <= 0 means no limit.
func WithConcurrency(n int) Option { return func(r *Runtime) { r.limit = n } }

func WithLogger(l *zap.Logger) Option { return func(r *Runtime) { r.log = l } }

func NewRuntime(s *schema.Schema, registry *Registry, opts ...Option) *Runtime {
	r := &Runtime{
		schema:   s,
		registry: registry,
		log:      zap.NewNop(),
	}
	for _, o := range opts {
		o(r)
	}
	r.builder = &arguments.Builder{Schema: s}
	if r.scalars != nil {
		r.builder.Scalars = r.scalars
	}
	return r
}

func (r *Runtime) ResolveSync(ctx context.Context, info *executor.ResolveInfo, source any, args map[string]any) (any, error) {
	set, err := r.arguments(ctx, info, args)
	if err != nil {
		return nil, err
	}
	return r.fieldFunc(info)(ctx, source, set, info)
}

func (r *Runtime) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	results := make([]executor.AsyncResolveResult, len(tasks))
	if len(tasks) == 0 {
		return results
	}

	type groupKey struct {
		objectType string
		field      string
	}
	var groups [][]int
	index := make(map[groupKey]int)
	for i, t := range tasks {
		k := groupKey{t.ObjectType, t.Field}
		gi, ok := index[k]
		if !ok {
			gi = len(groups)
			index[k] = gi
			groups = append(groups, nil)
		}
		groups[gi] = append(groups[gi], i)
	}

	var g errgroup.Group
	if r.limit > 0 {
		g.SetLimit(r.limit)
	}
	for _, idxs := range groups {
		g.Go(func() error {
			r.runGroup(ctx, tasks, idxs, results)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (r *Runtime) runGroup(ctx context.Context, tasks []executor.AsyncResolveTask, idxs []int, results []executor.AsyncResolveResult) {
	first := tasks[idxs[0]]
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("resolver panic",
				zap.String("field", first.ObjectType+"."+first.Field),
				zap.Any("panic", p),
				zap.ByteString("stack", debug.Stack()))
			for _, i := range idxs {
				results[i] = executor.AsyncResolveResult{Error: fmt.Errorf("internal error resolving %s.%s", first.ObjectType, first.Field)}
			}
		}
	}()

	if batch, ok := r.registry.Batch(first.ObjectType, r.rootKind(first.ObjectType), first.Field); ok {
		r.runBatch(ctx, batch, tasks, idxs, results)
		return
	}
	for _, i := range idxs {
		v, err := r.ResolveSync(ctx, tasks[i].Info, tasks[i].Source, tasks[i].Args)
		results[i] = executor.AsyncResolveResult{Value: v, Error: err}
	}
}

func (r *Runtime) runBatch(ctx context.Context, batch BatchFunc, tasks []executor.AsyncResolveTask, idxs []int, results []executor.AsyncResolveResult) {
	items := make([]BatchItem, 0, len(idxs))
	included := make([]int, 0, len(idxs))
	for _, i := range idxs {
		set, err := r.arguments(ctx, tasks[i].Info, tasks[i].Args)
		if err != nil {
			results[i] = executor.AsyncResolveResult{Error: err}
			continue
		}
		items = append(items, BatchItem{Source: tasks[i].Source, Args: set, Info: tasks[i].Info})
		included = append(included, i)
	}
	if len(items) == 0 {
		return
	}
	values, err := batch(ctx, items)
	if err == nil && len(values) != len(items) {
		err = fmt.Errorf("batch resolver returned %d values for %d items", len(values), len(items))
	}
	for j, i := range included {
		if err != nil {
			results[i] = executor.AsyncResolveResult{Error: err}
			continue
		}
		if e, ok := values[j].(error); ok {
			results[i] = executor.AsyncResolveResult{Error: e}
			continue
		}
		results[i] = executor.AsyncResolveResult{Value: values[j]}
	}
}

// ResolveType uses the registered type resolver of abstractType, falling
// back to the "__typename" key of map values.
func (r *Runtime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	if fn, ok := r.registry.typeResolver(abstractType); ok {
		return fn(ctx, value)
	}
	if m, ok := value.(map[string]any); ok {
		if name, ok := m["__typename"].(string); ok && name != "" {
			return name, nil
		}
	}
	return "", fmt.Errorf("cannot resolve the concrete type of %s for %T", abstractType, value)
}

func (r *Runtime) arguments(ctx context.Context, info *executor.ResolveInfo, args map[string]any) (*arguments.ArgumentSet, error) {
	set, err := r.builder.Build(info.FieldDefinition, args, info.ArgumentGiven)
	if err != nil {
		return nil, err
	}
	if r.directives != nil {
		if set, err = r.directives.ManipulateArgs(ctx, info.FieldDefinition.Directives, set, info); err != nil {
			return nil, err
		}
	}
	return set.Spread().Rename(), nil
}

func (r *Runtime) fieldFunc(info *executor.ResolveInfo) directives.ResolveFunc {
	parent := info.ParentType.Name
	root := r.rootKind(parent)

	var fn directives.ResolveFunc
	switch registered, ok := r.registry.Resolver(parent, root, info.FieldName); {
	case root == schema.RootSubscription && r.subscriptions != nil && r.subscriptions.Has(info.FieldName):
		fn = r.subscriptions.ResolveField
	case ok:
		fn = registered
	case root != "" && r.echo:
		fn = Echo
	default:
		fn = Property
	}
	if r.directives != nil {
		fn = r.directives.Wrap(info.FieldDefinition.Directives, fn)
	}
	return fn
}

// rootKind maps a schema root type name, which may be customised, to the
// canonical root name the namespaces are configured for.
func (r *Runtime) rootKind(typeName string) string {
	switch typeName {
	case "":
		return ""
	case r.schema.QueryType:
		return schema.RootQuery
	case r.schema.MutationType:
		return schema.RootMutation
	case r.schema.SubscriptionType:
		return schema.RootSubscription
	}
	return ""
}
