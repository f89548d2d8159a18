package directives

import language "github.com/hanpama/lighthouse/internal/language"

const definitions = `
directive @inject(context: String!, name: String!) repeatable on FIELD_DEFINITION
directive @spread on ARGUMENT_DEFINITION | INPUT_FIELD_DEFINITION
directive @rename(attribute: String!) on FIELD_DEFINITION | ARGUMENT_DEFINITION | INPUT_FIELD_DEFINITION
directive @broadcast(subscription: String!, shouldQueue: Boolean = false) repeatable on FIELD_DEFINITION
`

// Definitions returns the SDL declaring the server directives. It is loaded
// alongside user schema files.
func Definitions() *language.Source {
	return &language.Source{Name: "lighthouse-directives.graphql", Input: definitions, BuiltIn: true}
}
