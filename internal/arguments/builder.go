package arguments

import (
	"fmt"

	language "github.com/hanpama/lighthouse/internal/language"
	schema "github.com/hanpama/lighthouse/internal/schema"
)

// ScalarParser turns client input for a custom scalar into its internal value.
type ScalarParser interface {
	// ParseValue reports ok=false when typeName is not a known custom scalar.
	ParseValue(typeName string, value any) (parsed any, ok bool, err error)
}

// Builder binds coerced field arguments into an ArgumentSet following the
// field's argument definitions.
type Builder struct {
	Schema  *schema.Schema
	Scalars ScalarParser
}

// Build binds args to the arguments of field. given reports whether the
// client supplied an argument; arguments that were not supplied but carry a
// default end up in Undefined. A nil given treats every key of args as
// supplied.
func (b *Builder) Build(field *schema.Field, args map[string]any, given func(name string) bool) (*ArgumentSet, error) {
	set := New()
	set.Directives = field.Directives
	if given == nil {
		given = func(name string) bool {
			_, ok := args[name]
			return ok
		}
	}
	for _, def := range field.Arguments {
		value, present := args[def.Name]
		target := &set.Arguments
		switch {
		case present && given(def.Name):
		case def.HasDefault():
			target = &set.Undefined
			if !present {
				value = def.DefaultValue
			}
		case !present:
			continue
		}
		arg, err := b.bind(value, def.Type, def.Directives)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", def.Name, err)
		}
		target.Set(def.Name, arg)
	}
	return set, nil
}

func (b *Builder) bind(value any, typ *schema.TypeRef, dirs language.DirectiveList) (*Argument, error) {
	v, err := b.convert(value, typ, dirs)
	if err != nil {
		return nil, err
	}
	return &Argument{Value: v, Type: typ, Directives: dirs}, nil
}

func (b *Builder) convert(value any, typ *schema.TypeRef, dirs language.DirectiveList) (Value, error) {
	if value == nil {
		return Scalar{}, nil
	}
	if typ == nil {
		return ValueOf(value), nil
	}
	typ = typ.Nullable()

	if typ.Kind == schema.TypeRefKindList {
		items, ok := value.([]any)
		if !ok {
			items = []any{value}
		}
		inner := typ.OfType.Nullable()
		if inner.Kind != schema.TypeRefKindList && b.isInputObject(inner.GetNamedType()) {
			sets := make(SetList, len(items))
			for i, item := range items {
				v, err := b.convert(item, inner, dirs)
				if err != nil {
					return nil, fmt.Errorf("[%d]: %w", i, err)
				}
				if set, ok := v.(*ArgumentSet); ok {
					sets[i] = set
				}
			}
			return sets, nil
		}
		list := make(List, len(items))
		for i, item := range items {
			v, err := b.convert(item, inner, dirs)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			list[i] = v
		}
		return list, nil
	}

	name := typ.GetNamedType()
	if t := b.lookup(name); t != nil && t.Kind == schema.TypeKindInputObject {
		m, ok := value.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expected an object for input type %s, got %T", name, value)
		}
		return b.inputSet(t, m, dirs)
	}
	if b.Scalars != nil {
		parsed, ok, err := b.Scalars.ParseValue(name, value)
		if err != nil {
			return nil, err
		}
		if ok {
			return Scalar{Value: parsed}, nil
		}
	}
	return Scalar{Value: value}, nil
}

func (b *Builder) inputSet(t *schema.Type, m map[string]any, dirs language.DirectiveList) (*ArgumentSet, error) {
	set := New()
	set.Directives = dirs
	for _, def := range t.InputFields {
		value, ok := m[def.Name]
		if !ok && !def.HasDefault() {
			continue
		}
		if !ok {
			value = def.DefaultValue
		}
		arg, err := b.bind(value, def.Type, def.Directives)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", t.Name, def.Name, err)
		}
		if ok {
			set.Arguments.Set(def.Name, arg)
		} else {
			set.Undefined.Set(def.Name, arg)
		}
	}
	return set, nil
}

func (b *Builder) lookup(name string) *schema.Type {
	if b.Schema == nil {
		return nil
	}
	return b.Schema.Types[name]
}

func (b *Builder) isInputObject(name string) bool {
	t := b.lookup(name)
	return t != nil && t.Kind == schema.TypeKindInputObject
}
