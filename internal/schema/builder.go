package schema

import (
	"fmt"

	language "github.com/hanpama/lighthouse/internal/language"
	"github.com/vektah/gqlparser/v2/ast"
)

// BuildFromSDL parses and validates the given SDL sources and returns the
// executable schema. Fields of the query root are marked async so they are
// resolved in batches; every other field resolves synchronously.
func BuildFromSDL(sources ...*language.Source) (*Schema, error) {
	validated, err := language.LoadSchema(sources...)
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	return Build(validated), nil
}

// Build converts a validated gqlparser schema. Introspection types and
// built-in directives are left out.
func Build(src *language.ValidatedSchema) *Schema {
	s := NewSchema(src.Description)
	if src.Query != nil {
		s.SetQueryType(src.Query.Name)
	}
	if src.Mutation != nil {
		s.SetMutationType(src.Mutation.Name)
	}
	if src.Subscription != nil {
		s.SetSubscriptionType(src.Subscription.Name)
	}

	for name, def := range src.Types {
		if def.BuiltIn {
			continue
		}
		switch def.Kind {
		case ast.Object:
			s.AddType(buildObject(def, name == s.QueryType))
		case ast.Interface:
			t := buildObject(def, false)
			t.Kind = TypeKindInterface
			for _, impl := range src.PossibleTypes[name] {
				t.AddPossibleType(impl.Name)
			}
			s.AddType(t)
		case ast.Union:
			t := NewType(def.Name, TypeKindUnion, def.Description)
			for _, member := range def.Types {
				t.AddPossibleType(member)
			}
			s.AddType(t)
		case ast.Enum:
			t := NewType(def.Name, TypeKindEnum, def.Description)
			for _, v := range def.EnumValues {
				e := NewEnumValue(v.Name, v.Description)
				if reason, ok := deprecation(v.Directives); ok {
					e.Deprecate(reason)
				}
				t.AddEnumValue(e)
			}
			s.AddType(t)
		case ast.InputObject:
			t := NewType(def.Name, TypeKindInputObject, def.Description).
				SetOneOf(def.Directives.ForName("oneOf") != nil)
			for _, f := range def.Fields {
				in := NewInputValue(f.Name, f.Description, buildTypeRef(f.Type)).
					SetDefault(defaultValue(f.DefaultValue)).
					SetDirectives(f.Directives)
				if reason, ok := deprecation(f.Directives); ok {
					in.Deprecate(reason)
				}
				t.AddInputField(in)
			}
			s.AddType(t)
		case ast.Scalar:
			t := NewType(def.Name, TypeKindScalar, def.Description)
			if d := def.Directives.ForName("specifiedBy"); d != nil {
				if arg := d.Arguments.ForName("url"); arg != nil {
					url := arg.Value.Raw
					t.SpecifiedByURL = &url
				}
			}
			s.AddType(t)
		}
	}

	for _, dir := range src.Directives {
		if dir.Position != nil && dir.Position.Src != nil && dir.Position.Src.BuiltIn {
			continue
		}
		s.AddDirective(buildDirective(dir))
	}
	return s
}

func buildDirective(dir *ast.DirectiveDefinition) *Directive {
	d := NewDirective(dir.Name, dir.Description).SetRepeatable(dir.IsRepeatable)
	for _, loc := range dir.Locations {
		d.Locations = append(d.Locations, string(loc))
	}
	for _, arg := range dir.Arguments {
		d.AddArgument(buildArgument(arg))
	}
	return d
}

func buildObject(def *ast.Definition, async bool) *Type {
	t := NewType(def.Name, TypeKindObject, def.Description)
	for _, name := range def.Interfaces {
		t.AddInterface(name)
	}
	for _, fd := range def.Fields {
		if len(fd.Name) > 1 && fd.Name[:2] == "__" {
			continue
		}
		f := NewField(fd.Name, fd.Description, buildTypeRef(fd.Type)).
			SetAsync(async).
			SetDirectives(fd.Directives)
		if reason, ok := deprecation(fd.Directives); ok {
			f.Deprecate(reason)
		}
		for _, arg := range fd.Arguments {
			f.AddArgument(buildArgument(arg))
		}
		t.AddField(f)
	}
	return t
}

func buildArgument(arg *ast.ArgumentDefinition) *InputValue {
	in := NewInputValue(arg.Name, arg.Description, buildTypeRef(arg.Type)).
		SetDefault(defaultValue(arg.DefaultValue)).
		SetDirectives(arg.Directives)
	if reason, ok := deprecation(arg.Directives); ok {
		in.Deprecate(reason)
	}
	return in
}

func buildTypeRef(t *ast.Type) *TypeRef {
	if t.NonNull {
		inner := *t
		inner.NonNull = false
		return NonNullType(buildTypeRef(&inner))
	}
	if t.Elem != nil {
		return ListType(buildTypeRef(t.Elem))
	}
	return NamedType(t.NamedType)
}

func defaultValue(v *ast.Value) any {
	if v == nil {
		return nil
	}
	val, err := v.Value(nil)
	if err != nil {
		return nil
	}
	return val
}

func deprecation(dirs ast.DirectiveList) (string, bool) {
	d := dirs.ForName("deprecated")
	if d == nil {
		return "", false
	}
	if arg := d.Arguments.ForName("reason"); arg != nil && arg.Value != nil {
		return arg.Value.Raw, true
	}
	return "", true
}

// ----- constructors -----

// NewSchema returns an empty schema with the built-in scalars and the skip and
// include directives registered.
func NewSchema(description string) *Schema {
	s := &Schema{
		Types:       make(map[string]*Type),
		Directives:  make(map[string]*Directive),
		Description: description,
	}
	addBuiltins(s)
	return s
}

func (s *Schema) SetQueryType(name string) *Schema        { s.QueryType = name; return s }
func (s *Schema) SetMutationType(name string) *Schema     { s.MutationType = name; return s }
func (s *Schema) SetSubscriptionType(name string) *Schema { s.SubscriptionType = name; return s }

func (s *Schema) AddType(t *Type) *Schema {
	s.Types[t.Name] = t
	return s
}

func (s *Schema) AddDirective(d *Directive) *Schema {
	s.Directives[d.Name] = d
	return s
}

func NewType(name string, kind TypeKind, description string) *Type {
	return &Type{Name: name, Kind: kind, Description: description}
}

func (t *Type) AddField(f *Field) *Type {
	t.Fields = append(t.Fields, f)
	return t
}

func (t *Type) AddInterface(name string) *Type {
	t.Interfaces = append(t.Interfaces, name)
	return t
}

func (t *Type) AddPossibleType(name string) *Type {
	t.PossibleTypes = append(t.PossibleTypes, name)
	return t
}

func (t *Type) AddEnumValue(v *EnumValue) *Type {
	t.EnumValues = append(t.EnumValues, v)
	return t
}

func (t *Type) AddInputField(v *InputValue) *Type {
	t.InputFields = append(t.InputFields, v)
	return t
}

func (t *Type) SetOneOf(oneOf bool) *Type {
	t.OneOf = oneOf
	return t
}

// NewFieldMap collects field definitions in declaration order.
func NewFieldMap(fields ...*Field) []*Field {
	return append([]*Field(nil), fields...)
}

func NewField(name, description string, typ *TypeRef) *Field {
	return &Field{Name: name, Description: description, Type: typ}
}

func (f *Field) SetAsync(async bool) *Field {
	f.Async = async
	return f
}

func (f *Field) AddArgument(arg *InputValue) *Field {
	f.Arguments = append(f.Arguments, arg)
	return f
}

func (f *Field) SetDirectives(dirs language.DirectiveList) *Field {
	f.Directives = dirs
	return f
}

func (f *Field) Deprecate(reason string) *Field {
	f.IsDeprecated = true
	f.DeprecationReason = reason
	return f
}

func NewInputValue(name, description string, typ *TypeRef) *InputValue {
	return &InputValue{Name: name, Description: description, Type: typ}
}

func (v *InputValue) SetDefault(value any) *InputValue {
	v.DefaultValue = value
	return v
}

func (v *InputValue) SetDirectives(dirs language.DirectiveList) *InputValue {
	v.Directives = dirs
	return v
}

func (v *InputValue) Deprecate(reason string) *InputValue {
	v.IsDeprecated = true
	v.DeprecationReason = reason
	return v
}

func NewEnumValue(name, description string) *EnumValue {
	return &EnumValue{Name: name, Description: description}
}

func (v *EnumValue) Deprecate(reason string) *EnumValue {
	v.IsDeprecated = true
	v.DeprecationReason = reason
	return v
}

func NewDirective(name, description string) *Directive {
	return &Directive{Name: name, Description: description}
}

func (d *Directive) SetRepeatable(repeatable bool) *Directive {
	d.IsRepeatable = repeatable
	return d
}

func (d *Directive) AddArgument(arg *InputValue) *Directive {
	d.Arguments = append(d.Arguments, arg)
	return d
}
