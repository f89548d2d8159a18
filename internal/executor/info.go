package executor

import (
	language "github.com/hanpama/lighthouse/internal/language"
	schema "github.com/hanpama/lighthouse/internal/schema"
)

// ResolveInfo describes the field being resolved. The executor builds one per
// field instance and hands it to the Runtime.
type ResolveInfo struct {
	FieldName       string
	Field           *language.Field   // first AST node of the field group
	FieldNodes      []*language.Field // every merged AST node
	FieldDefinition *schema.Field
	ParentType      *schema.Type
	ReturnType      *schema.TypeRef
	Path            Path
	Operation       *language.OperationDefinition
	Fragments       language.FragmentDefinitionList
	VariableValues  map[string]any
	Schema          *schema.Schema
	RootValue       any
}

// ArgumentGiven reports whether the client supplied the named argument,
// either inline or through a variable that was provided.
func (i *ResolveInfo) ArgumentGiven(name string) bool {
	if i == nil || i.Field == nil {
		return false
	}
	arg := i.Field.Arguments.ForName(name)
	if arg == nil {
		return false
	}
	if arg.Value != nil && arg.Value.Kind == language.Variable {
		_, ok := i.VariableValues[arg.Value.Raw]
		return ok
	}
	return true
}

// IsRootField reports whether the field is selected directly on a root type.
func (i *ResolveInfo) IsRootField() bool {
	return len(i.Path) == 1
}

func (state *executionState) resolveInfo(parent *schema.Type, def *schema.Field, fields []*language.Field, path Path) *ResolveInfo {
	return &ResolveInfo{
		FieldName:       fields[0].Name,
		Field:           fields[0],
		FieldNodes:      fields,
		FieldDefinition: def,
		ParentType:      parent,
		ReturnType:      def.Type,
		Path:            path,
		Operation:       state.operation,
		Fragments:       state.document.Fragments,
		VariableValues:  state.variableValues,
		Schema:          state.schema,
		RootValue:       state.rootValue,
	}
}
