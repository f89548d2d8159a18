package executor

import (
	"context"
	"fmt"
	"sync"
)

// MockResolver resolves one field instance of a MockRuntime.
type MockResolver func(ctx context.Context, source any, args map[string]any) (any, error)

// NewMockValueResolver returns a resolver that always yields val.
func NewMockValueResolver(val any) MockResolver {
	return func(context.Context, any, map[string]any) (any, error) { return val, nil }
}

// NewMockErrorResolver returns a resolver that always fails with err.
func NewMockErrorResolver(err error) MockResolver {
	return func(context.Context, any, map[string]any) (any, error) { return nil, err }
}

type CallKind string

const (
	CallKindSync  CallKind = "sync"
	CallKindAsync CallKind = "async"
)

// Call records one field instance handed to the runtime. Async calls of
// one BatchResolveAsync share a BatchID, counted from 1; sync calls have 0.
type Call struct {
	Kind       CallKind
	ObjectType string
	Field      string
	Path       Path
	Source     any
	Args       map[string]any
	BatchID    int
}

// MockRuntime is a Runtime for tests. Resolvers are keyed "Type.field";
// fields without one resolve to null. Every call is logged with the
// ResolveInfo it carried.
type MockRuntime struct {
	mu        sync.Mutex
	resolvers map[string]MockResolver
	calls     []Call
	infos     []*ResolveInfo
	batches   int

	resolveType func(abstractType string, value any) (string, error)
	serialize   func(typeName string, value any) (any, error)
}

var _ Runtime = (*MockRuntime)(nil)

func NewMockRuntime(resolvers map[string]MockResolver) *MockRuntime {
	m := &MockRuntime{resolvers: make(map[string]MockResolver, len(resolvers))}
	for k, r := range resolvers {
		m.resolvers[k] = r
	}
	return m
}

func (m *MockRuntime) SetResolver(objectType, field string, r MockResolver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolvers[objectType+"."+field] = r
}

// SetTypeResolver replaces the default type resolution, which reads the
// "__typename" key of map values.
func (m *MockRuntime) SetTypeResolver(fn func(abstractType string, value any) (string, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolveType = fn
}

// SetSerializer replaces the default leaf serialization, which returns
// values unchanged.
func (m *MockRuntime) SetSerializer(fn func(typeName string, value any) (any, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.serialize = fn
}

func (m *MockRuntime) ResolveSync(ctx context.Context, info *ResolveInfo, source any, args map[string]any) (any, error) {
	m.record(CallKindSync, 0, info, source, args)
	return m.resolve(ctx, info, source, args)
}

// BatchResolveAsync resolves tasks one by one in order under a fresh BatchID.
func (m *MockRuntime) BatchResolveAsync(ctx context.Context, tasks []AsyncResolveTask) []AsyncResolveResult {
	if len(tasks) == 0 {
		return nil
	}
	m.mu.Lock()
	m.batches++
	batch := m.batches
	m.mu.Unlock()

	results := make([]AsyncResolveResult, len(tasks))
	for i, task := range tasks {
		m.record(CallKindAsync, batch, task.Info, task.Source, task.Args)
		v, err := m.resolve(ctx, task.Info, task.Source, task.Args)
		results[i] = AsyncResolveResult{Value: v, Error: err}
	}
	return results
}

func (m *MockRuntime) ResolveType(_ context.Context, abstractType string, value any) (string, error) {
	m.mu.Lock()
	fn := m.resolveType
	m.mu.Unlock()
	if fn != nil {
		return fn(abstractType, value)
	}
	if v, ok := value.(map[string]any); ok {
		if name, ok := v["__typename"].(string); ok {
			return name, nil
		}
	}
	return "", fmt.Errorf("cannot resolve the type of %T for %s", value, abstractType)
}

func (m *MockRuntime) SerializeLeafValue(_ context.Context, typeName string, value any) (any, error) {
	m.mu.Lock()
	fn := m.serialize
	m.mu.Unlock()
	if fn != nil {
		return fn(typeName, value)
	}
	return value, nil
}

// GetCalls returns the calls logged so far, in order.
func (m *MockRuntime) GetCalls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// Infos returns the ResolveInfo of every logged call, in call order.
func (m *MockRuntime) Infos() []*ResolveInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*ResolveInfo(nil), m.infos...)
}

// Reset clears the log and the batch counter.
func (m *MockRuntime) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls, m.infos, m.batches = nil, nil, 0
}

func (m *MockRuntime) resolve(ctx context.Context, info *ResolveInfo, source any, args map[string]any) (any, error) {
	m.mu.Lock()
	r := m.resolvers[info.ParentType.Name+"."+info.FieldName]
	m.mu.Unlock()
	if r == nil {
		return nil, nil
	}
	return r(ctx, source, args)
}

func (m *MockRuntime) record(kind CallKind, batch int, info *ResolveInfo, source any, args map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{
		Kind:       kind,
		ObjectType: info.ParentType.Name,
		Field:      info.FieldName,
		Path:       info.Path,
		Source:     source,
		Args:       args,
		BatchID:    batch,
	})
	m.infos = append(m.infos, info)
}
