package executor

import (
	"context"
	"maps"
	"sync"
)

type extensionsKey struct{}

type extensionSet struct {
	mu sync.Mutex
	m  map[string]any
}

func withExtensions(ctx context.Context) (context.Context, *extensionSet) {
	ext := &extensionSet{}
	return context.WithValue(ctx, extensionsKey{}, ext), ext
}

func (e *extensionSet) snapshot() map[string]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.m) == 0 {
		return nil
	}
	return maps.Clone(e.m)
}

// SetExtension adds an entry to the "extensions" map of the response being
// executed with ctx. It reports false when ctx does not belong to an
// execution.
func SetExtension(ctx context.Context, key string, value any) bool {
	ext, ok := ctx.Value(extensionsKey{}).(*extensionSet)
	if !ok {
		return false
	}
	ext.mu.Lock()
	defer ext.mu.Unlock()
	if ext.m == nil {
		ext.m = make(map[string]any)
	}
	ext.m[key] = value
	return true
}
