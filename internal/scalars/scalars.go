package scalars

import (
	"fmt"
	"sync"
)

// Scalar converts values of a custom scalar between their internal form and
// the JSON-safe form sent to clients.
type Scalar interface {
	// Serialize turns an internal value into its wire form.
	Serialize(value any) (any, error)
	// ParseValue turns client input into the internal value.
	ParseValue(value any) (any, error)
}

// Registry holds custom scalars by GraphQL type name.
type Registry struct {
	mu      sync.RWMutex
	scalars map[string]Scalar
}

// NewRegistry returns a registry with DateTime and Date registered.
func NewRegistry() *Registry {
	r := &Registry{scalars: make(map[string]Scalar)}
	r.Register("DateTime", DateTime)
	r.Register("Date", Date)
	return r
}

// Register adds or replaces the scalar for name.
func (r *Registry) Register(name string, s Scalar) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scalars[name] = s
}

func (r *Registry) Lookup(name string) (Scalar, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.scalars[name]
	return s, ok
}

// Names lists the registered scalar names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.scalars))
	for name := range r.scalars {
		out = append(out, name)
	}
	return out
}

// ParseValue parses value with the scalar registered for typeName. ok is
// false when typeName is not registered.
func (r *Registry) ParseValue(typeName string, value any) (parsed any, ok bool, err error) {
	s, ok := r.Lookup(typeName)
	if !ok {
		return nil, false, nil
	}
	parsed, err = s.ParseValue(value)
	if err != nil {
		return nil, true, fmt.Errorf("%s: %w", typeName, err)
	}
	return parsed, true, nil
}

// Serialize serializes value with the scalar registered for typeName. ok is
// false when typeName is not registered.
func (r *Registry) Serialize(typeName string, value any) (out any, ok bool, err error) {
	s, ok := r.Lookup(typeName)
	if !ok {
		return nil, false, nil
	}
	out, err = s.Serialize(value)
	if err != nil {
		return nil, true, fmt.Errorf("%s: %w", typeName, err)
	}
	return out, true, nil
}
