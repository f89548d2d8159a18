package arguments

import (
	language "github.com/hanpama/lighthouse/internal/language"
	schema "github.com/hanpama/lighthouse/internal/schema"
)

// Argument is a single bound argument or input field.
type Argument struct {
	Value Value
	// Type is the declared input type; nil for synthesized arguments.
	Type *schema.TypeRef
	// Directives applied to the argument or input field definition.
	Directives language.DirectiveList
}

// NewArgument wraps a plain Go value. See ValueOf.
func NewArgument(v any) *Argument {
	return &Argument{Value: ValueOf(v)}
}

// ToPlain returns the argument value as plain Go values.
func (a *Argument) ToPlain() any {
	if a == nil {
		return nil
	}
	return Plain(a.Value)
}
