package schema

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"
)

// Render prints the schema as SDL through gqlparser's formatter. Types and
// directives are sorted by name and separated by blank lines; the built-in
// scalars and directives are omitted. A schema block is printed only when a
// root type has a non-default name.
func Render(s *Schema) string {
	if s == nil {
		return ""
	}
	r := renderer{schema: s}
	var chunks []string
	if def := r.schemaDefinition(); def != nil {
		chunks = append(chunks, format(&ast.SchemaDocument{Schema: ast.SchemaDefinitionList{def}}))
	}
	for _, name := range sortedKeys(s.Types) {
		if IsBuiltinType(name) {
			continue
		}
		chunks = append(chunks, format(&ast.SchemaDocument{Definitions: ast.DefinitionList{r.definition(s.Types[name])}}))
	}
	for _, name := range sortedKeys(s.Directives) {
		if IsBuiltinDirective(name) {
			continue
		}
		chunks = append(chunks, format(&ast.SchemaDocument{Directives: ast.DirectiveDefinitionList{r.directive(s.Directives[name])}}))
	}
	return strings.Join(chunks, "\n")
}

func format(doc *ast.SchemaDocument) string {
	var b strings.Builder
	formatter.NewFormatter(&b, formatter.WithIndent("  ")).FormatSchemaDocument(doc)
	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// renderer converts the executable schema back to gqlparser's SDL AST. The
// schema is needed to print enum defaults as enum values.
type renderer struct {
	schema *Schema
}

func (r renderer) schemaDefinition() *ast.SchemaDefinition {
	s := r.schema
	if s.QueryType == RootQuery &&
		(s.MutationType == "" || s.MutationType == RootMutation) &&
		(s.SubscriptionType == "" || s.SubscriptionType == RootSubscription) {
		return nil
	}
	def := &ast.SchemaDefinition{}
	for _, op := range []struct {
		kind ast.Operation
		name string
	}{
		{ast.Query, s.QueryType},
		{ast.Mutation, s.MutationType},
		{ast.Subscription, s.SubscriptionType},
	} {
		if op.name != "" {
			def.OperationTypes = append(def.OperationTypes, &ast.OperationTypeDefinition{Operation: op.kind, Type: op.name})
		}
	}
	return def
}

func (r renderer) definition(t *Type) *ast.Definition {
	def := &ast.Definition{Name: t.Name, Description: t.Description}
	switch t.Kind {
	case TypeKindScalar:
		def.Kind = ast.Scalar
		if t.SpecifiedByURL != nil {
			def.Directives = ast.DirectiveList{applied("specifiedBy", "url", *t.SpecifiedByURL)}
		}
	case TypeKindObject, TypeKindInterface:
		def.Kind = ast.Object
		if t.Kind == TypeKindInterface {
			def.Kind = ast.Interface
		}
		def.Interfaces = t.Interfaces
		for _, f := range t.Fields {
			def.Fields = append(def.Fields, r.field(f))
		}
	case TypeKindUnion:
		def.Kind = ast.Union
		def.Types = t.PossibleTypes
	case TypeKindEnum:
		def.Kind = ast.Enum
		for _, v := range t.EnumValues {
			def.EnumValues = append(def.EnumValues, &ast.EnumValueDefinition{
				Name:        v.Name,
				Description: v.Description,
				Directives:  withDeprecation(nil, v.IsDeprecated, v.DeprecationReason),
			})
		}
	case TypeKindInputObject:
		def.Kind = ast.InputObject
		if t.OneOf {
			def.Directives = ast.DirectiveList{{Name: "oneOf"}}
		}
		for _, in := range t.InputFields {
			def.Fields = append(def.Fields, &ast.FieldDefinition{
				Name:         in.Name,
				Description:  in.Description,
				Type:         astType(in.Type),
				DefaultValue: r.value(in.DefaultValue, in.Type),
				Directives:   withDeprecation(in.Directives, in.IsDeprecated, in.DeprecationReason),
			})
		}
	}
	return def
}

func (r renderer) field(f *Field) *ast.FieldDefinition {
	return &ast.FieldDefinition{
		Name:        f.Name,
		Description: f.Description,
		Arguments:   r.arguments(f.Arguments),
		Type:        astType(f.Type),
		Directives:  withDeprecation(f.Directives, f.IsDeprecated, f.DeprecationReason),
	}
}

func (r renderer) arguments(args []*InputValue) ast.ArgumentDefinitionList {
	var out ast.ArgumentDefinitionList
	for _, arg := range args {
		out = append(out, &ast.ArgumentDefinition{
			Name:         arg.Name,
			Description:  arg.Description,
			Type:         astType(arg.Type),
			DefaultValue: r.value(arg.DefaultValue, arg.Type),
			Directives:   withDeprecation(arg.Directives, arg.IsDeprecated, arg.DeprecationReason),
		})
	}
	return out
}

func (r renderer) directive(d *Directive) *ast.DirectiveDefinition {
	def := &ast.DirectiveDefinition{
		Name:         d.Name,
		Description:  d.Description,
		Arguments:    r.arguments(d.Arguments),
		IsRepeatable: d.IsRepeatable,
		// The formatter reads the source to skip built-in definitions.
		Position: &ast.Position{Src: &ast.Source{}},
	}
	for _, loc := range d.Locations {
		def.Locations = append(def.Locations, ast.DirectiveLocation(loc))
	}
	return def
}

// withDeprecation replaces any applied @deprecated with one built from the
// deprecation state, which is what the executable schema tracks.
func withDeprecation(dirs ast.DirectiveList, deprecated bool, reason string) ast.DirectiveList {
	var out ast.DirectiveList
	for _, d := range dirs {
		if d.Name != "deprecated" {
			out = append(out, d)
		}
	}
	if !deprecated {
		return out
	}
	if reason == "" {
		return append(out, &ast.Directive{Name: "deprecated"})
	}
	return append(out, applied("deprecated", "reason", reason))
}

func applied(name, arg, value string) *ast.Directive {
	return &ast.Directive{
		Name:      name,
		Arguments: ast.ArgumentList{{Name: arg, Value: &ast.Value{Kind: ast.StringValue, Raw: value}}},
	}
}

func astType(t *TypeRef) *ast.Type {
	if t == nil {
		return &ast.Type{}
	}
	switch t.Kind {
	case TypeRefKindList:
		return &ast.Type{Elem: astType(t.OfType)}
	case TypeRefKindNonNull:
		inner := *astType(t.OfType)
		inner.NonNull = true
		return &inner
	}
	return &ast.Type{NamedType: t.Named}
}

func renderTypeRef(t *TypeRef) string {
	if t == nil {
		return ""
	}
	return astType(t).String()
}

// value converts a coerced default back to a literal of type t. Strings of
// enum types print as enum values.
func (r renderer) value(v any, t *TypeRef) *ast.Value {
	if v == nil {
		return nil
	}
	return r.literal(v, t)
}

func (r renderer) literal(v any, t *TypeRef) *ast.Value {
	for t != nil && t.Kind == TypeRefKindNonNull {
		t = t.OfType
	}
	var named *Type
	if t != nil && t.Kind == TypeRefKindNamed {
		named = r.schema.Types[t.Named]
	}

	switch x := v.(type) {
	case nil:
		return &ast.Value{Kind: ast.NullValue, Raw: "null"}
	case string:
		if named != nil && named.Kind == TypeKindEnum {
			return &ast.Value{Kind: ast.EnumValue, Raw: x}
		}
		return &ast.Value{Kind: ast.StringValue, Raw: x}
	case bool:
		return &ast.Value{Kind: ast.BooleanValue, Raw: strconv.FormatBool(x)}
	case int:
		return &ast.Value{Kind: ast.IntValue, Raw: strconv.Itoa(x)}
	case int32:
		return &ast.Value{Kind: ast.IntValue, Raw: strconv.FormatInt(int64(x), 10)}
	case int64:
		return &ast.Value{Kind: ast.IntValue, Raw: strconv.FormatInt(x, 10)}
	case float32:
		return &ast.Value{Kind: ast.FloatValue, Raw: strconv.FormatFloat(float64(x), 'g', -1, 32)}
	case float64:
		return &ast.Value{Kind: ast.FloatValue, Raw: strconv.FormatFloat(x, 'g', -1, 64)}
	case []any:
		var elem *TypeRef
		if t != nil && t.Kind == TypeRefKindList {
			elem = t.OfType
		}
		list := &ast.Value{Kind: ast.ListValue}
		for _, item := range x {
			list.Children = append(list.Children, &ast.ChildValue{Value: r.literal(item, elem)})
		}
		return list
	case map[string]any:
		obj := &ast.Value{Kind: ast.ObjectValue}
		for _, k := range sortedKeys(x) {
			var ft *TypeRef
			if named != nil {
				if f := named.InputField(k); f != nil {
					ft = f.Type
				}
			}
			obj.Children = append(obj.Children, &ast.ChildValue{Name: k, Value: r.literal(x[k], ft)})
		}
		return obj
	}
	return &ast.Value{Kind: ast.EnumValue, Raw: fmt.Sprint(v)}
}
