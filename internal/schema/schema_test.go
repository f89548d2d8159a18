package schema

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	language "github.com/hanpama/lighthouse/internal/language"
	"github.com/stretchr/testify/require"
)

const testSDL = `
type Query {
  user(id: ID!): User
  users(filter: UserFilter, first: Int = 10): [User!]!
}

type Mutation {
  rename(id: ID!, name: String!): User
}

type User {
  id: ID!
  name: String @deprecated(reason: "use fullName")
  fullName: String
}

input UserFilter {
  name: String @rename(attribute: "full_name")
}

directive @rename(attribute: String!) on INPUT_FIELD_DEFINITION | ARGUMENT_DEFINITION
`

func mustBuild(t *testing.T, sdl string) *Schema {
	t.Helper()
	s, err := BuildFromSDL(&language.Source{Name: "test.graphql", Input: sdl})
	require.NoError(t, err)
	return s
}

func TestBuildFromSDL(t *testing.T) {
	s := mustBuild(t, testSDL)

	require.Equal(t, "Query", s.QueryType)
	require.Equal(t, "Mutation", s.MutationType)
	require.Empty(t, s.SubscriptionType)
	require.Nil(t, s.Types["__Schema"], "introspection types are not part of the executable schema")
	str := s.Types["String"]
	require.Equal(t, TypeKindScalar, str.Kind)
	require.NotEmpty(t, str.Description, "built-in scalars carry the prelude descriptions")
	require.NotSame(t, str, NewSchema("").Types["String"])
	require.Len(t, s.Directives["include"].Arguments, 1)
	require.Equal(t, "Boolean!", s.Directives["skip"].Arguments[0].Type.String())

	users := s.GetQueryType().Field("users")
	require.NotNil(t, users)
	require.True(t, users.Async, "query root fields are batched")
	require.Equal(t, "[User!]!", users.Type.String())
	require.Equal(t, int64(10), users.Argument("first").DefaultValue)

	require.False(t, s.GetMutationType().Field("rename").Async, "mutation root fields run serially")
	require.False(t, s.Types["User"].Field("id").Async)

	name := s.Types["User"].Field("name")
	require.True(t, name.IsDeprecated)
	require.Equal(t, "use fullName", name.DeprecationReason)

	filter := s.Types["UserFilter"].InputField("name")
	require.NotNil(t, filter.Directives.ForName("rename"))

	_, builtin := s.Directives["deprecated"]
	require.False(t, builtin)
	require.Contains(t, s.Directives, "rename")
}

func TestBuildFromSDLRejectsInvalidSchema(t *testing.T) {
	_, err := BuildFromSDL(&language.Source{Name: "bad.graphql", Input: `type Query { a: Missing }`})
	require.Error(t, err)
}

func TestRender(t *testing.T) {
	s := mustBuild(t, testSDL)

	want := `type Mutation {
  rename(id: ID!, name: String!): User
}

type Query {
  user(id: ID!): User
  users(filter: UserFilter, first: Int = 10): [User!]!
}

type User {
  id: ID!
  name: String @deprecated(reason: "use fullName")
  fullName: String
}

input UserFilter {
  name: String @rename(attribute: "full_name")
}

directive @rename(attribute: String!) on INPUT_FIELD_DEFINITION | ARGUMENT_DEFINITION
`
	if diff := cmp.Diff(want, Render(s)); diff != "" {
		t.Errorf("Rendered schema mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderCustomRootNames(t *testing.T) {
	s := NewSchema("").SetQueryType("RootQuery")
	s.AddType(NewType("RootQuery", TypeKindObject, "").
		AddField(NewField("ping", "", NonNullType(NamedType("String")))))

	want := `schema {
  query: RootQuery
}

type RootQuery {
  ping: String!
}
`
	if diff := cmp.Diff(want, Render(s)); diff != "" {
		t.Errorf("Rendered schema mismatch (-want +got):\n%s", diff)
	}
}

const featureSDL = `
"""
Publication state.
"""
enum Status {
  DRAFT
  PUBLISHED
  HIDDEN @deprecated(reason: "use DRAFT")
}

interface Node {
  id: ID!
}

type Post implements Node {
  id: ID!
  status: Status
}

type Query {
  """
  Posts by status.
  """
  posts(status: Status = PUBLISHED, statuses: [Status!] = [DRAFT, HIDDEN], where: PostWhere = {status: DRAFT}): [Post!]!
  search: SearchResult
}

input PostWhere @oneOf {
  status: Status
  limit: Int
}

scalar URL @specifiedBy(url: "https://url.spec.whatwg.org/")

union SearchResult = Post

directive @tag(names: [String!]!) repeatable on FIELD_DEFINITION | OBJECT
`

func TestRenderFeatures(t *testing.T) {
	s := mustBuild(t, featureSDL)

	want := `interface Node {
  id: ID!
}

type Post implements Node {
  id: ID!
  status: Status
}

input PostWhere @oneOf {
  status: Status
  limit: Int
}

type Query {
  """
  Posts by status.
  """
  posts(status: Status = PUBLISHED, statuses: [Status!] = [DRAFT,HIDDEN], where: PostWhere = {status:DRAFT}): [Post!]!
  search: SearchResult
}

union SearchResult = Post

"""
Publication state.
"""
enum Status {
  DRAFT
  PUBLISHED
  HIDDEN @deprecated(reason: "use DRAFT")
}

scalar URL @specifiedBy(url: "https://url.spec.whatwg.org/")

directive @tag(names: [String!]!) repeatable on FIELD_DEFINITION | OBJECT
`
	got := Render(s)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Rendered schema mismatch (-want +got):\n%s", diff)
	}

	// The rendered SDL builds the same schema again.
	again := mustBuild(t, got)
	if diff := cmp.Diff(got, Render(again)); diff != "" {
		t.Errorf("Re-rendered schema mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderProgrammaticDeprecation(t *testing.T) {
	s := NewSchema("").SetQueryType("Query")
	s.AddType(NewType("Query", TypeKindObject, "").
		AddField(NewField("old", "", NamedType("String")).Deprecate("")).
		AddField(NewField("older", "", NamedType("String")).Deprecate("gone")))

	want := `type Query {
  old: String @deprecated
  older: String @deprecated(reason: "gone")
}
`
	if diff := cmp.Diff(want, Render(s)); diff != "" {
		t.Errorf("Rendered schema mismatch (-want +got):\n%s", diff)
	}
}
