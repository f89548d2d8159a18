package arguments

import (
	"iter"
	"maps"
	"slices"
	"strings"

	language "github.com/hanpama/lighthouse/internal/language"
)

// Map is an insertion-ordered mapping from names to arguments. Overwriting an
// existing key keeps its position. The zero value is ready to use.
type Map struct {
	keys []string
	m    map[string]*Argument
}

// Get returns the argument stored under key.
func (m *Map) Get(key string) (*Argument, bool) {
	a, ok := m.m[key]
	return a, ok
}

// Set stores arg under key.
func (m *Map) Set(key string, arg *Argument) {
	if m.m == nil {
		m.m = make(map[string]*Argument)
	}
	if _, ok := m.m[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.m[key] = arg
}

// Delete removes key. It reports whether the key was present.
func (m *Map) Delete(key string) bool {
	if _, ok := m.m[key]; !ok {
		return false
	}
	delete(m.m, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of entries.
func (m *Map) Len() int { return len(m.keys) }

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string { return append([]string(nil), m.keys...) }

// All iterates over the entries in insertion order.
func (m *Map) All() iter.Seq2[string, *Argument] {
	return func(yield func(string, *Argument) bool) {
		for _, k := range m.keys {
			if !yield(k, m.m[k]) {
				return
			}
		}
	}
}

// ArgumentSet is the bound argument tree of one field or input object.
//
// Arguments holds what the client supplied. Undefined holds arguments that
// were not supplied but have a schema default. A key never lives in both.
type ArgumentSet struct {
	Arguments Map
	Undefined Map
	// Directives of the owning field or parent argument.
	Directives language.DirectiveList
}

// New returns an empty set.
func New() *ArgumentSet {
	return &ArgumentSet{}
}

// FromMap builds a set from plain values. Nested maps become nested sets and
// non-empty lists of maps become set lists. Keys are added in sorted order.
func FromMap(values map[string]any) *ArgumentSet {
	s := New()
	for _, k := range slices.Sorted(maps.Keys(values)) {
		s.Arguments.Set(k, &Argument{Value: fromPlain(values[k])})
	}
	return s
}

func fromPlain(v any) Value {
	switch x := v.(type) {
	case map[string]any:
		return FromMap(x)
	case []any:
		sets := make(SetList, 0, len(x))
		for _, item := range x {
			m, ok := item.(map[string]any)
			if !ok {
				return ValueOf(x)
			}
			sets = append(sets, FromMap(m))
		}
		if len(sets) == 0 {
			return List{}
		}
		return sets
	}
	return ValueOf(v)
}

// Set stores arg under key in Arguments and drops any Undefined entry of the
// same key.
func (s *ArgumentSet) Set(key string, arg *Argument) *ArgumentSet {
	s.Undefined.Delete(key)
	s.Arguments.Set(key, arg)
	return s
}

// Get returns the supplied argument stored under key.
func (s *ArgumentSet) Get(key string) (*Argument, bool) {
	return s.Arguments.Get(key)
}

// ToArray returns the supplied arguments as plain values. Undefined arguments
// are left out.
func (s *ArgumentSet) ToArray() map[string]any {
	out := make(map[string]any, s.Arguments.Len())
	for name, arg := range s.Arguments.All() {
		out[name] = arg.ToPlain()
	}
	return out
}

// Has reports whether a non-null argument was supplied under key. Zero values
// such as 0, "" and false count as present.
func (s *ArgumentSet) Has(key string) bool {
	arg, ok := s.Arguments.Get(key)
	if !ok || arg == nil {
		return false
	}
	return !IsNull(arg.Value)
}

// ArgumentsWithUndefined returns the supplied arguments followed by the
// undefined ones.
func (s *ArgumentSet) ArgumentsWithUndefined() *Map {
	all := &Map{}
	for k, a := range s.Arguments.All() {
		all.Set(k, a)
	}
	for k, a := range s.Undefined.All() {
		all.Set(k, a)
	}
	return all
}

// AddValue stores value at the dot separated path and returns s.
//
// Missing intermediate keys are created as empty nested sets. A "*" segment
// applies the rest of the path to every element of the list of input objects
// found at that position; on any other value it does nothing. The final
// segment always replaces the argument stored there, dropping its directives.
func (s *ArgumentSet) AddValue(path string, value any) *ArgumentSet {
	setValueAtPath(s, strings.Split(path, "."), ValueOf(value))
	return s
}

func setValueAtPath(set *ArgumentSet, keys []string, value Value) {
	for len(keys) > 1 {
		key := keys[0]
		keys = keys[1:]
		if key == "*" {
			return
		}

		arg, ok := set.Arguments.Get(key)
		if keys[0] == "*" {
			if !ok || arg == nil {
				return
			}
			list, isList := arg.Value.(SetList)
			if !isList || len(keys) == 1 {
				return
			}
			for _, item := range list {
				if item != nil {
					setValueAtPath(item, keys[1:], value)
				}
			}
			return
		}

		if !ok || arg == nil || IsNull(arg.Value) {
			arg = &Argument{Value: New()}
			set.Set(key, arg)
		}
		next, isSet := arg.Value.(*ArgumentSet)
		if !isSet {
			return
		}
		set = next
	}
	set.Set(keys[0], &Argument{Value: value})
}
