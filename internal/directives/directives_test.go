package directives_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	arguments "github.com/hanpama/lighthouse/internal/arguments"
	directives "github.com/hanpama/lighthouse/internal/directives"
	executor "github.com/hanpama/lighthouse/internal/executor"
	gqlcontext "github.com/hanpama/lighthouse/internal/gqlcontext"
	language "github.com/hanpama/lighthouse/internal/language"
	schema "github.com/hanpama/lighthouse/internal/schema"
)

const sdl = `
type Query { ping: String }

type Mutation {
  createTasks(input: [TaskInput!]!): [String]
    @inject(context: "user.id", name: "input.*.user_id")
  updateProfile(input: ProfileInput @spread): String
    @inject(context: "user.id", name: "input.owner")
    @inject(context: "headers.X-Tenant", name: "tenant")
  createPost(title: String): String
    @broadcast(subscription: "postCreated")
  queuePost(title: String): String
    @broadcast(subscription: "postCreated", shouldQueue: true)
}

input TaskInput { title: String user_id: ID }
input ProfileInput { name: String owner: ID }
`

func loadSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.BuildFromSDL(directives.Definitions(), &language.Source{Name: t.Name() + ".graphql", Input: sdl})
	require.NoError(t, err)
	return s
}

func build(t *testing.T, s *schema.Schema, field string, args map[string]any) (*schema.Field, *arguments.ArgumentSet) {
	t.Helper()
	def := s.GetMutationType().Field(field)
	require.NotNil(t, def)
	set, err := (&arguments.Builder{Schema: s}).Build(def, args, nil)
	require.NoError(t, err)
	return def, set
}

func userContext(id string) context.Context {
	return gqlcontext.NewContext(context.Background(), &gqlcontext.Context{
		User:    map[string]any{"id": id},
		Headers: map[string][]string{"X-Tenant": {"acme"}},
	})
}

func newRegistry() *directives.Registry {
	r := directives.NewRegistry()
	r.Register(directives.InjectDirective, directives.Inject{})
	return r
}

func TestInjectWildcard(t *testing.T) {
	s := loadSchema(t)
	def, set := build(t, s, "createTasks", map[string]any{
		"input": []any{
			map[string]any{"title": "a"},
			map[string]any{"title": "b", "user_id": "spoofed"},
		},
	})

	got, err := newRegistry().ManipulateArgs(userContext("7"), def.Directives, set, &executor.ResolveInfo{FieldName: def.Name})
	require.NoError(t, err)

	want := map[string]any{"input": []any{
		map[string]any{"title": "a", "user_id": "7"},
		map[string]any{"title": "b", "user_id": "7"},
	}}
	if diff := cmp.Diff(want, got.ToArray()); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestInjectBeforeSpread(t *testing.T) {
	s := loadSchema(t)
	def, set := build(t, s, "updateProfile", map[string]any{
		"input": map[string]any{"name": "ann"},
	})

	got, err := newRegistry().ManipulateArgs(userContext("7"), def.Directives, set, &executor.ResolveInfo{FieldName: def.Name})
	require.NoError(t, err)

	want := map[string]any{"name": "ann", "owner": "7", "tenant": "acme"}
	if diff := cmp.Diff(want, got.Spread().ToArray()); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestInjectMissingValue(t *testing.T) {
	s := loadSchema(t)
	def, set := build(t, s, "updateProfile", map[string]any{})
	ctx := gqlcontext.NewContext(context.Background(), &gqlcontext.Context{})

	got, err := newRegistry().ManipulateArgs(ctx, def.Directives, set, nil)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"input": map[string]any{"owner": nil}, "tenant": nil}, got.ToArray())
	require.False(t, got.Has("tenant"))
}

func TestInjectWithoutContext(t *testing.T) {
	s := loadSchema(t)
	def, set := build(t, s, "createTasks", map[string]any{"input": []any{}})

	_, err := newRegistry().ManipulateArgs(context.Background(), def.Directives, set, nil)
	require.EqualError(t, err, "@inject: no request context")
}

type call struct {
	Field  string
	Root   any
	Queued bool
}

type recorder struct {
	calls []call
	err   error
}

func (r *recorder) Broadcast(_ context.Context, field string, root any) error {
	r.calls = append(r.calls, call{Field: field, Root: root})
	return r.err
}

func (r *recorder) Queue(_ context.Context, field string, root any) error {
	r.calls = append(r.calls, call{Field: field, Root: root, Queued: true})
	return r.err
}

func TestBroadcast(t *testing.T) {
	s := loadSchema(t)
	rec := &recorder{}
	r := directives.NewRegistry()
	r.Register(directives.BroadcastDirective, &directives.Broadcast{Broadcaster: rec})

	resolve := func(_ context.Context, _ any, args *arguments.ArgumentSet, _ *executor.ResolveInfo) (any, error) {
		return args.ToArray()["title"], nil
	}
	for _, field := range []string{"createPost", "queuePost"} {
		def, set := build(t, s, field, map[string]any{"title": field})
		got, err := r.Wrap(def.Directives, resolve)(context.Background(), nil, set, &executor.ResolveInfo{FieldName: field})
		require.NoError(t, err)
		require.Equal(t, field, got)
	}

	want := []call{
		{Field: "postCreated", Root: "createPost"},
		{Field: "postCreated", Root: "queuePost", Queued: true},
	}
	if diff := cmp.Diff(want, rec.calls); diff != "" {
		t.Fatalf("broadcasts mismatch (-want +got):\n%s", diff)
	}
}

func TestBroadcastSkipsFailedResolvers(t *testing.T) {
	s := loadSchema(t)
	rec := &recorder{err: errors.New("transport down")}
	r := directives.NewRegistry()
	r.Register(directives.BroadcastDirective, &directives.Broadcast{Broadcaster: rec})
	def, set := build(t, s, "createPost", map[string]any{"title": "x"})
	info := &executor.ResolveInfo{FieldName: def.Name}

	boom := errors.New("boom")
	failing := func(context.Context, any, *arguments.ArgumentSet, *executor.ResolveInfo) (any, error) {
		return nil, boom
	}
	_, err := r.Wrap(def.Directives, failing)(context.Background(), nil, set, info)
	require.ErrorIs(t, err, boom)
	require.Empty(t, rec.calls)

	// Broadcast errors do not fail the field.
	ok := func(context.Context, any, *arguments.ArgumentSet, *executor.ResolveInfo) (any, error) {
		return "post", nil
	}
	got, err := r.Wrap(def.Directives, ok)(context.Background(), nil, set, info)
	require.NoError(t, err)
	require.Equal(t, "post", got)
	require.Len(t, rec.calls, 1)
}

func TestRegisterRejectsUnknownImplementations(t *testing.T) {
	require.Panics(t, func() { directives.NewRegistry().Register("nope", struct{}{}) })
}
