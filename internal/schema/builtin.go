package schema

import (
	"slices"
	"sync"

	language "github.com/hanpama/lighthouse/internal/language"
)

// Every schema carries the standard scalars and the executable directives
// include and skip. They are taken from the parser's prelude so that their
// descriptions and arguments match what query validation checks against,
// and they are left out of rendered SDL.
var (
	builtinScalars    = []string{"String", "Int", "Float", "Boolean", "ID"}
	builtinDirectives = []string{"include", "skip"}
)

var prelude = sync.OnceValue(func() *language.ValidatedSchema {
	s, err := language.LoadSchema()
	if err != nil {
		panic("schema: load prelude: " + err.Error())
	}
	return s
})

// addBuiltins registers fresh copies of the built-in scalars and directives,
// so a schema never shares them with another.
func addBuiltins(s *Schema) {
	p := prelude()
	for _, name := range builtinScalars {
		def := p.Types[name]
		s.AddType(NewType(def.Name, TypeKindScalar, def.Description))
	}
	for _, name := range builtinDirectives {
		s.AddDirective(buildDirective(p.Directives[name]))
	}
}

// IsBuiltinType reports whether name is one of the standard scalars.
func IsBuiltinType(name string) bool { return slices.Contains(builtinScalars, name) }

// IsBuiltinDirective reports whether name is include or skip.
func IsBuiltinDirective(name string) bool { return slices.Contains(builtinDirectives, name) }
