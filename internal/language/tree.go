package language

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// ErrMalformedDocument is returned when a serialized document tree cannot be
// turned back into a query document.
var ErrMalformedDocument = errors.New("malformed document tree")

// Node kinds of the document tree. They follow the production names of the
// GraphQL grammar so the tree is readable outside of this program.
const (
	KindDocument            = "Document"
	KindOperationDefinition = "OperationDefinition"
	KindFragmentDefinition  = "FragmentDefinition"
	KindVariableDefinition  = "VariableDefinition"
	KindSelectionSet        = "SelectionSet"
	KindField               = "Field"
	KindFragmentSpread      = "FragmentSpread"
	KindInlineFragment      = "InlineFragment"
	KindArgument            = "Argument"
	KindDirective           = "Directive"
	KindNamedType           = "NamedType"
	KindListType            = "ListType"
	KindNonNullType         = "NonNullType"
	KindObjectField         = "ObjectField"
)

var valueKindNames = map[ValueKind]string{
	Variable:     "Variable",
	IntValue:     "IntValue",
	FloatValue:   "FloatValue",
	StringValue:  "StringValue",
	BlockValue:   "BlockStringValue",
	BooleanValue: "BooleanValue",
	NullValue:    "NullValue",
	EnumValue:    "EnumValue",
	ListValue:    "ListValue",
	ObjectValue:  "ObjectValue",
}

var valueKindsByName = func() map[string]ValueKind {
	m := make(map[string]ValueKind, len(valueKindNames))
	for k, name := range valueKindNames {
		m[name] = k
	}
	return m
}()

// EncodeDocument serializes doc into an opaque blob: the document tree of
// DocumentToTree encoded as a protobuf Struct. Encoding is deterministic.
func EncodeDocument(doc *QueryDocument) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("encode document: nil document")
	}
	s, err := structpb.NewStruct(DocumentToTree(doc))
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return proto.MarshalOptions{Deterministic: true}.Marshal(s)
}

// DecodeDocument is the inverse of EncodeDocument.
func DecodeDocument(data []byte) (*QueryDocument, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return DocumentFromTree(s.AsMap())
}

// ---------------------------------------------------------------------------
// AST -> tree

// DocumentToTree converts a query document into a plain tree of
// map[string]any and []any. Every node carries its kind under "kind" and,
// when known, its source location under "loc". Fragments are emitted before
// operations. Schema bindings set by validation are not part of the tree.
func DocumentToTree(doc *QueryDocument) map[string]any {
	defs := make([]any, 0, len(doc.Fragments)+len(doc.Operations))
	for _, f := range doc.Fragments {
		defs = append(defs, fragmentToTree(f))
	}
	for _, op := range doc.Operations {
		defs = append(defs, operationToTree(op))
	}
	n := newNode(KindDocument, doc.Position)
	n["definitions"] = defs
	return n
}

func newNode(kind string, pos *Position) map[string]any {
	n := map[string]any{"kind": kind}
	if pos != nil {
		n["loc"] = map[string]any{
			"start":  pos.Start,
			"end":    pos.End,
			"line":   pos.Line,
			"column": pos.Column,
		}
	}
	return n
}

func operationToTree(op *OperationDefinition) map[string]any {
	n := newNode(KindOperationDefinition, op.Position)
	n["operation"] = string(op.Operation)
	if op.Name != "" {
		n["name"] = op.Name
	}
	n["variableDefinitions"] = variablesToTree(op.VariableDefinitions)
	n["directives"] = directivesToTree(op.Directives)
	n["selectionSet"] = selectionSetToTree(op.SelectionSet)
	return n
}

func fragmentToTree(f *FragmentDefinition) map[string]any {
	n := newNode(KindFragmentDefinition, f.Position)
	n["name"] = f.Name
	n["typeCondition"] = f.TypeCondition
	n["variableDefinitions"] = variablesToTree(f.VariableDefinition)
	n["directives"] = directivesToTree(f.Directives)
	n["selectionSet"] = selectionSetToTree(f.SelectionSet)
	return n
}

func variablesToTree(defs VariableDefinitionList) []any {
	out := make([]any, 0, len(defs))
	for _, d := range defs {
		n := newNode(KindVariableDefinition, d.Position)
		n["variable"] = d.Variable
		n["type"] = typeToTree(d.Type)
		if d.DefaultValue != nil {
			n["defaultValue"] = valueToTree(d.DefaultValue)
		}
		n["directives"] = directivesToTree(d.Directives)
		out = append(out, n)
	}
	return out
}

func typeToTree(t *Type) map[string]any {
	if t.NonNull {
		inner := *t
		inner.NonNull = false
		n := newNode(KindNonNullType, t.Position)
		n["type"] = typeToTree(&inner)
		return n
	}
	if t.Elem != nil {
		n := newNode(KindListType, t.Position)
		n["type"] = typeToTree(t.Elem)
		return n
	}
	n := newNode(KindNamedType, t.Position)
	n["name"] = t.NamedType
	return n
}

func selectionSetToTree(ss SelectionSet) map[string]any {
	sels := make([]any, 0, len(ss))
	for _, sel := range ss {
		switch s := sel.(type) {
		case *Field:
			n := newNode(KindField, s.Position)
			n["alias"] = s.Alias
			n["name"] = s.Name
			n["arguments"] = argumentsToTree(s.Arguments)
			n["directives"] = directivesToTree(s.Directives)
			if s.SelectionSet != nil {
				n["selectionSet"] = selectionSetToTree(s.SelectionSet)
			}
			sels = append(sels, n)
		case *FragmentSpread:
			n := newNode(KindFragmentSpread, s.Position)
			n["name"] = s.Name
			n["directives"] = directivesToTree(s.Directives)
			sels = append(sels, n)
		case *InlineFragment:
			n := newNode(KindInlineFragment, s.Position)
			if s.TypeCondition != "" {
				n["typeCondition"] = s.TypeCondition
			}
			n["directives"] = directivesToTree(s.Directives)
			n["selectionSet"] = selectionSetToTree(s.SelectionSet)
			sels = append(sels, n)
		}
	}
	n := newNode(KindSelectionSet, nil)
	n["selections"] = sels
	return n
}

func argumentsToTree(args ArgumentList) []any {
	out := make([]any, 0, len(args))
	for _, a := range args {
		n := newNode(KindArgument, a.Position)
		n["name"] = a.Name
		n["value"] = valueToTree(a.Value)
		out = append(out, n)
	}
	return out
}

func directivesToTree(dirs DirectiveList) []any {
	out := make([]any, 0, len(dirs))
	for _, d := range dirs {
		n := newNode(KindDirective, d.Position)
		n["name"] = d.Name
		n["arguments"] = argumentsToTree(d.Arguments)
		out = append(out, n)
	}
	return out
}

func valueToTree(v *Value) any {
	if v == nil {
		return nil
	}
	n := newNode(valueKindNames[v.Kind], v.Position)
	switch v.Kind {
	case Variable:
		n["name"] = v.Raw
	case NullValue:
	case ListValue:
		values := make([]any, 0, len(v.Children))
		for _, c := range v.Children {
			values = append(values, valueToTree(c.Value))
		}
		n["values"] = values
	case ObjectValue:
		fields := make([]any, 0, len(v.Children))
		for _, c := range v.Children {
			f := newNode(KindObjectField, c.Position)
			f["name"] = c.Name
			f["value"] = valueToTree(c.Value)
			fields = append(fields, f)
		}
		n["fields"] = fields
	default:
		n["value"] = v.Raw
	}
	return n
}

// ---------------------------------------------------------------------------
// tree -> AST

// DocumentFromTree rebuilds a query document from the output of
// DocumentToTree. It fails with ErrMalformedDocument when the tree does not
// describe a document with at least one definition.
func DocumentFromTree(tree map[string]any) (*QueryDocument, error) {
	if err := expectKind(tree, KindDocument); err != nil {
		return nil, err
	}
	defs, err := listField(tree, "definitions")
	if err != nil {
		return nil, err
	}
	if len(defs) == 0 {
		return nil, malformed("document has no definitions")
	}
	doc := &QueryDocument{Position: positionOf(tree)}
	for _, d := range defs {
		n, kind, err := nodeOf(d)
		if err != nil {
			return nil, err
		}
		switch kind {
		case KindOperationDefinition:
			op, err := operationFromTree(n)
			if err != nil {
				return nil, err
			}
			doc.Operations = append(doc.Operations, op)
		case KindFragmentDefinition:
			f, err := fragmentFromTree(n)
			if err != nil {
				return nil, err
			}
			doc.Fragments = append(doc.Fragments, f)
		default:
			return nil, malformed("unexpected definition kind %q", kind)
		}
	}
	return doc, nil
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedDocument, fmt.Sprintf(format, args...))
}

func nodeOf(v any) (map[string]any, string, error) {
	n, ok := v.(map[string]any)
	if !ok {
		return nil, "", malformed("expected node, got %T", v)
	}
	kind, ok := n["kind"].(string)
	if !ok || kind == "" {
		return nil, "", malformed("node without kind")
	}
	return n, kind, nil
}

func expectKind(v any, want string) error {
	_, kind, err := nodeOf(v)
	if err != nil {
		return err
	}
	if kind != want {
		return malformed("expected %s node, got %s", want, kind)
	}
	return nil
}

func stringField(n map[string]any, key string) (string, error) {
	s, ok := n[key].(string)
	if !ok {
		return "", malformed("%v node: missing %q", n["kind"], key)
	}
	return s, nil
}

func optionalString(n map[string]any, key string) string {
	s, _ := n[key].(string)
	return s
}

func listField(n map[string]any, key string) ([]any, error) {
	v, ok := n[key]
	if !ok || v == nil {
		return nil, nil
	}
	l, ok := v.([]any)
	if !ok {
		return nil, malformed("%v node: %q is not a list", n["kind"], key)
	}
	return l, nil
}

func positionOf(n map[string]any) *Position {
	loc, ok := n["loc"].(map[string]any)
	if !ok {
		return nil
	}
	return &Position{
		Start:  intOf(loc["start"]),
		End:    intOf(loc["end"]),
		Line:   intOf(loc["line"]),
		Column: intOf(loc["column"]),
	}
}

func intOf(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	}
	return 0
}

func operationFromTree(n map[string]any) (*OperationDefinition, error) {
	opName, err := stringField(n, "operation")
	if err != nil {
		return nil, err
	}
	op := Operation(opName)
	switch op {
	case Query, Mutation, Subscription:
	default:
		return nil, malformed("unknown operation type %q", opName)
	}
	vars, err := variablesFromTree(n)
	if err != nil {
		return nil, err
	}
	dirs, err := directivesFromTree(n)
	if err != nil {
		return nil, err
	}
	ss, err := selectionSetFromTree(n["selectionSet"])
	if err != nil {
		return nil, err
	}
	return &OperationDefinition{
		Operation:           op,
		Name:                optionalString(n, "name"),
		VariableDefinitions: vars,
		Directives:          dirs,
		SelectionSet:        ss,
		Position:            positionOf(n),
	}, nil
}

func fragmentFromTree(n map[string]any) (*FragmentDefinition, error) {
	name, err := stringField(n, "name")
	if err != nil {
		return nil, err
	}
	cond, err := stringField(n, "typeCondition")
	if err != nil {
		return nil, err
	}
	vars, err := variablesFromTree(n)
	if err != nil {
		return nil, err
	}
	dirs, err := directivesFromTree(n)
	if err != nil {
		return nil, err
	}
	ss, err := selectionSetFromTree(n["selectionSet"])
	if err != nil {
		return nil, err
	}
	return &FragmentDefinition{
		Name:               name,
		TypeCondition:      cond,
		VariableDefinition: vars,
		Directives:         dirs,
		SelectionSet:       ss,
		Position:           positionOf(n),
	}, nil
}

func variablesFromTree(parent map[string]any) (VariableDefinitionList, error) {
	items, err := listField(parent, "variableDefinitions")
	if err != nil {
		return nil, err
	}
	var out VariableDefinitionList
	for _, item := range items {
		n, kind, err := nodeOf(item)
		if err != nil {
			return nil, err
		}
		if kind != KindVariableDefinition {
			return nil, malformed("expected %s node, got %s", KindVariableDefinition, kind)
		}
		name, err := stringField(n, "variable")
		if err != nil {
			return nil, err
		}
		t, err := typeFromTree(n["type"])
		if err != nil {
			return nil, err
		}
		def, err := valueFromTree(n["defaultValue"])
		if err != nil {
			return nil, err
		}
		dirs, err := directivesFromTree(n)
		if err != nil {
			return nil, err
		}
		out = append(out, &VariableDefinition{
			Variable:     name,
			Type:         t,
			DefaultValue: def,
			Directives:   dirs,
			Position:     positionOf(n),
		})
	}
	return out, nil
}

func typeFromTree(v any) (*Type, error) {
	n, kind, err := nodeOf(v)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindNamedType:
		name, err := stringField(n, "name")
		if err != nil {
			return nil, err
		}
		return &Type{NamedType: name, Position: positionOf(n)}, nil
	case KindListType:
		elem, err := typeFromTree(n["type"])
		if err != nil {
			return nil, err
		}
		return &Type{Elem: elem, Position: positionOf(n)}, nil
	case KindNonNullType:
		inner, err := typeFromTree(n["type"])
		if err != nil {
			return nil, err
		}
		if inner.NonNull {
			return nil, malformed("non-null type wraps a non-null type")
		}
		inner.NonNull = true
		inner.Position = positionOf(n)
		return inner, nil
	}
	return nil, malformed("unexpected type kind %q", kind)
}

func selectionSetFromTree(v any) (SelectionSet, error) {
	if v == nil {
		return nil, nil
	}
	n, kind, err := nodeOf(v)
	if err != nil {
		return nil, err
	}
	if kind != KindSelectionSet {
		return nil, malformed("expected %s node, got %s", KindSelectionSet, kind)
	}
	items, err := listField(n, "selections")
	if err != nil {
		return nil, err
	}
	ss := make(SelectionSet, 0, len(items))
	for _, item := range items {
		sn, kind, err := nodeOf(item)
		if err != nil {
			return nil, err
		}
		dirs, err := directivesFromTree(sn)
		if err != nil {
			return nil, err
		}
		switch kind {
		case KindField:
			name, err := stringField(sn, "name")
			if err != nil {
				return nil, err
			}
			args, err := argumentsFromTree(sn)
			if err != nil {
				return nil, err
			}
			sub, err := selectionSetFromTree(sn["selectionSet"])
			if err != nil {
				return nil, err
			}
			alias := optionalString(sn, "alias")
			if alias == "" {
				alias = name
			}
			ss = append(ss, &Field{
				Alias:        alias,
				Name:         name,
				Arguments:    args,
				Directives:   dirs,
				SelectionSet: sub,
				Position:     positionOf(sn),
			})
		case KindFragmentSpread:
			name, err := stringField(sn, "name")
			if err != nil {
				return nil, err
			}
			ss = append(ss, &FragmentSpread{Name: name, Directives: dirs, Position: positionOf(sn)})
		case KindInlineFragment:
			sub, err := selectionSetFromTree(sn["selectionSet"])
			if err != nil {
				return nil, err
			}
			ss = append(ss, &InlineFragment{
				TypeCondition: optionalString(sn, "typeCondition"),
				Directives:    dirs,
				SelectionSet:  sub,
				Position:      positionOf(sn),
			})
		default:
			return nil, malformed("unexpected selection kind %q", kind)
		}
	}
	return ss, nil
}

func argumentsFromTree(parent map[string]any) (ArgumentList, error) {
	items, err := listField(parent, "arguments")
	if err != nil {
		return nil, err
	}
	var out ArgumentList
	for _, item := range items {
		n, kind, err := nodeOf(item)
		if err != nil {
			return nil, err
		}
		if kind != KindArgument {
			return nil, malformed("expected %s node, got %s", KindArgument, kind)
		}
		name, err := stringField(n, "name")
		if err != nil {
			return nil, err
		}
		val, err := valueFromTree(n["value"])
		if err != nil {
			return nil, err
		}
		if val == nil {
			return nil, malformed("argument %q without value", name)
		}
		out = append(out, &Argument{Name: name, Value: val, Position: positionOf(n)})
	}
	return out, nil
}

func directivesFromTree(parent map[string]any) (DirectiveList, error) {
	items, err := listField(parent, "directives")
	if err != nil {
		return nil, err
	}
	var out DirectiveList
	for _, item := range items {
		n, kind, err := nodeOf(item)
		if err != nil {
			return nil, err
		}
		if kind != KindDirective {
			return nil, malformed("expected %s node, got %s", KindDirective, kind)
		}
		name, err := stringField(n, "name")
		if err != nil {
			return nil, err
		}
		args, err := argumentsFromTree(n)
		if err != nil {
			return nil, err
		}
		out = append(out, &Directive{Name: name, Arguments: args, Position: positionOf(n)})
	}
	return out, nil
}

func valueFromTree(v any) (*Value, error) {
	if v == nil {
		return nil, nil
	}
	n, kindName, err := nodeOf(v)
	if err != nil {
		return nil, err
	}
	kind, ok := valueKindsByName[kindName]
	if !ok {
		return nil, malformed("unexpected value kind %q", kindName)
	}
	val := &Value{Kind: kind, Position: positionOf(n)}
	switch kind {
	case Variable:
		if val.Raw, err = stringField(n, "name"); err != nil {
			return nil, err
		}
	case NullValue:
		val.Raw = "null"
	case ListValue:
		items, err := listField(n, "values")
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			c, err := valueFromTree(item)
			if err != nil {
				return nil, err
			}
			if c == nil {
				return nil, malformed("list value with empty element")
			}
			val.Children = append(val.Children, &ChildValue{Value: c, Position: c.Position})
		}
	case ObjectValue:
		items, err := listField(n, "fields")
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			fn, fkind, err := nodeOf(item)
			if err != nil {
				return nil, err
			}
			if fkind != KindObjectField {
				return nil, malformed("expected %s node, got %s", KindObjectField, fkind)
			}
			name, err := stringField(fn, "name")
			if err != nil {
				return nil, err
			}
			c, err := valueFromTree(fn["value"])
			if err != nil {
				return nil, err
			}
			if c == nil {
				return nil, malformed("object field %q without value", name)
			}
			val.Children = append(val.Children, &ChildValue{Name: name, Value: c, Position: positionOf(fn)})
		}
	default:
		if val.Raw, err = stringField(n, "value"); err != nil {
			return nil, err
		}
	}
	return val, nil
}
