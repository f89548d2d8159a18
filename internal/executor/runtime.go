package executor

import (
	"context"
)

// Runtime binds the executor to resolvers. The resolver runtime implements
// it on top of registered resolvers, directives and the subscription
// registry.
//
// Within one depth every sync field is resolved through ResolveSync before
// BatchResolveAsync is called once with the async tasks of that depth.
// ResolveSync never sees an async field. Returned errors become located
// GraphQL errors and trigger Non-Null propagation where the type requires it.
//
// info describes the field instance. For root fields info.ParentType is the
// root type and source is the root value given to ExecuteRequest. args holds
// the coerced arguments including defaults; info.ArgumentGiven tells supplied
// arguments apart. Implementations must not mutate source or args and must
// be safe for concurrent operations.
type Runtime interface {
	// ResolveSync returns the raw value of a sync field. (nil, nil) is null.
	ResolveSync(ctx context.Context, info *ResolveInfo, source any, args map[string]any) (any, error)

	// BatchResolveAsync resolves the async tasks of one depth. It returns
	// exactly one result per task in task order; a failed element leaves
	// the others untouched. Tasks under paths already nulled are never
	// passed in.
	BatchResolveAsync(ctx context.Context, tasks []AsyncResolveTask) []AsyncResolveResult

	// ResolveType names the concrete object type of a value of an interface
	// or union. The name must be a possible type of abstractType.
	ResolveType(ctx context.Context, abstractType string, value any) (string, error)

	// SerializeLeafValue turns a scalar or enum value into a JSON-safe value.
	// Enums serialize to their name.
	SerializeLeafValue(ctx context.Context, scalarOrEnumTypeName string, value any) (any, error)
}

type AsyncResolveTask struct {
	ObjectType string
	Field      string
	// Source is the parent value; nil for root fields unless a root value
	// was given.
	Source any
	Args   map[string]any
	Info   *ResolveInfo
}

type AsyncResolveResult struct {
	Value any
	Error error
}
